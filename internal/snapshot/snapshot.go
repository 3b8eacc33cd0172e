package snapshot

import (
	"github.com/cheadlee10/northstar-synergy/internal/types"
	"github.com/cheadlee10/northstar-synergy/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Number of end-of-day rows returned in the summary's recent history
const summaryDailyRows = 30

// Service owns the snapshot store and end-of-day resolution
type Service struct {
	db *Database
}

// NewService creates a new snapshot service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// Record appends one raw observation to the store. A duplicate
// (source, observed_at) observation returns ErrDuplicateSnapshot.
func (s *Service) Record(snap *types.AccountSnapshot) error {
	return s.db.CreateSnapshot(snap)
}

// Store exposes the underlying database for services that share it
func (s *Service) Store() *Database {
	return s.db
}

// ResolveEOD selects the canonical end-of-day snapshot per calendar date for
// one source: the observation with the maximum observed_at, primary key as
// tiebreak. Dates without snapshots are simply absent from the result. An
// empty store yields an empty sequence, never an error.
func (s *Service) ResolveEOD(source string, r DateRange) ([]types.AccountSnapshot, error) {
	snaps, err := s.db.getSnapshotsAscending(source, r)
	if err != nil {
		return nil, err
	}

	var eod []types.AccountSnapshot
	for _, snap := range snaps {
		if n := len(eod); n > 0 && eod[n-1].ObservedDate == snap.ObservedDate {
			eod[n-1] = snap
			continue
		}
		eod = append(eod, snap)
	}
	return eod, nil
}

// Summary returns the latest snapshot's key fields, its category breakdown,
// and the most recent end-of-day rows. Returns nil when the source has no
// snapshots at all: callers must distinguish "no data" from zeros.
func (s *Service) Summary(source string) (*SummaryResponse, error) {
	latest, err := s.db.GetLatest(source)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		log.Debug().Str("source", source).Msg("no snapshots recorded, summary unavailable")
		return nil, nil
	}

	eod, err := s.ResolveEOD(source, DateRange{})
	if err != nil {
		return nil, err
	}
	if len(eod) > summaryDailyRows {
		eod = eod[len(eod)-summaryDailyRows:]
	}

	daily := make([]DailyRow, 0, len(eod))
	for _, rec := range eod {
		daily = append(daily, DailyRow{
			Date:     rec.ObservedDate,
			TotalPnL: rec.TotalPnL,
			Balance:  rec.Balance,
			Fills:    rec.FillCount,
			Wins:     rec.WinCount,
			Losses:   rec.LossCount,
		})
	}

	return &SummaryResponse{
		Live: LiveSummary{
			Balance:       latest.Balance,
			TotalPnL:      latest.TotalPnL,
			TotalValue:    latest.TotalValue,
			OpenPositions: latest.OpenPositionCount,
			TotalOrders:   latest.OrderCount,
			TotalFills:    latest.FillCount,
			WinCount:      latest.WinCount,
			LossCount:     latest.LossCount,
			LastUpdate:    latest.ObservedAt,
		},
		Categories: categoryMap(latest.Categories),
		Daily:      daily,
	}, nil
}

// Timeseries returns the full end-of-day series for a source with per-category
// P&L at each point
func (s *Service) Timeseries(source string) ([]TimeseriesPoint, error) {
	eod, err := s.ResolveEOD(source, DateRange{})
	if err != nil {
		return nil, err
	}

	points := make([]TimeseriesPoint, 0, len(eod))
	for _, rec := range eod {
		points = append(points, TimeseriesPoint{
			Date:       rec.ObservedDate,
			TotalPnL:   rec.TotalPnL,
			Balance:    rec.Balance,
			Categories: categoryMap(rec.Categories),
		})
	}
	return points, nil
}

func categoryMap(cats []types.CategoryPnL) map[string]float64 {
	out := make(map[string]float64, len(cats))
	for _, c := range cats {
		out[c.Category] = c.PnL
	}
	return out
}

// GinHandlers contains HTTP handlers for snapshot endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for snapshot endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// SummaryHandler handles GET requests for the live account summary
func (h *GinHandlers) SummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := h.service.Summary(types.SourceAccount)
		if err != nil {
			log.Error().Err(err).Msg("failed to build account summary")
			response.InternalError(c, "Failed to build account summary")
			return
		}
		if summary == nil {
			response.NotFound(c, "No snapshot data available")
			return
		}
		response.Success(c, summary)
	}
}

// TimeseriesHandler handles GET requests for the end-of-day category timeseries
func (h *GinHandlers) TimeseriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		points, err := h.service.Timeseries(types.SourceAccount)
		response.Handle(c, points, err)
	}
}
