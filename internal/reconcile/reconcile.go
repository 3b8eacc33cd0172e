// Package reconcile matches secondary-feed snapshots against the primary feed
// by nearest observation time and flags disagreement on shared metrics with a
// tiered warn/critical taxonomy. Results are persisted as an audit trail that
// survives restarts.
package reconcile

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cheadlee10/northstar-synergy/internal/config"
	"github.com/cheadlee10/northstar-synergy/internal/types"
	"github.com/cheadlee10/northstar-synergy/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Severity order for combining per-metric results
type severity int

const (
	sevOK severity = iota
	sevWarn
	sevCritical
)

func (s severity) status() string {
	switch s {
	case sevCritical:
		return StatusCritical
	case sevWarn:
		return StatusWarn
	default:
		return StatusOK
	}
}

// Default listing sizes for the read endpoints
const (
	defaultRecentLimit = 25
	defaultAlertLimit  = 50
)

// Service reconciles secondary-feed snapshots against the primary feed
type Service struct {
	db  *Database
	cfg config.ReconcileConfig
}

// NewService creates a reconciliation service with injected thresholds
func NewService(gormDB *gorm.DB, cfg config.ReconcileConfig) *Service {
	return &Service{
		db:  NewDatabase(gormDB),
		cfg: cfg,
	}
}

// Reconcile matches one secondary snapshot against the nearest primary
// observation and upserts the resulting record. When no primary observation
// lies within the tolerance window the record is NO_MATCH with no deltas:
// a missing comparison is not the same as a disagreeing one.
func (s *Service) Reconcile(secondary *types.AccountSnapshot) (*Record, error) {
	logger := log.With().
		Uint("secondary_snapshot_id", secondary.ID).
		Str("service", "reconcile").
		Logger()

	primary, err := s.db.GetNearestSnapshot(types.SourceAccount, secondary.ObservedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to find nearest primary snapshot: %w", err)
	}

	var secondsApart int
	if primary != nil {
		secondsApart = int(math.Abs(primary.ObservedAt.Sub(secondary.ObservedAt).Seconds()))
	}

	if primary == nil || secondsApart > s.cfg.MaxSecondsApart {
		rec := &Record{
			SecondarySnapshotID: secondary.ID,
			Status:              StatusNoMatch,
			AlertMessage:        fmt.Sprintf("no primary snapshot within %ds", s.cfg.MaxSecondsApart),
		}
		if err := s.db.UpsertRecord(rec); err != nil {
			return nil, fmt.Errorf("failed to save reconciliation record: %w", err)
		}
		logger.Warn().Int("seconds_apart", secondsApart).Msg("no primary snapshot within tolerance")
		return rec, nil
	}

	deltaBalance := round2(secondary.Balance - primary.Balance)
	deltaPositions := secondary.OpenPositionCount - primary.OpenPositionCount
	deltaRealized := round2(secondary.DailyPnL - primary.DailyPnL)
	deltaTotalValue := round2(secondary.TotalValue - primary.Balance)

	overall := sevOK
	var reasons []string

	if sev := classify(math.Abs(deltaBalance), s.cfg.WarnBalanceDelta, s.cfg.CriticalBalanceDelta); sev > sevOK {
		overall = maxSeverity(overall, sev)
		reasons = append(reasons, "balance delta $"+formatAmount(deltaBalance))
	}
	if sev := classify(math.Abs(float64(deltaPositions)), float64(s.cfg.WarnPositionDelta), float64(s.cfg.CriticalPositionDelta)); sev > sevOK {
		overall = maxSeverity(overall, sev)
		reasons = append(reasons, "open positions delta "+strconv.Itoa(deltaPositions))
	}
	if sev := classify(math.Abs(deltaRealized), s.cfg.WarnRealizedDelta, s.cfg.CriticalRealizedDelta); sev > sevOK {
		overall = maxSeverity(overall, sev)
		reasons = append(reasons, "realized P&L delta $"+formatAmount(deltaRealized))
	}

	rec := &Record{
		SecondarySnapshotID:      secondary.ID,
		PrimarySnapshotID:        &primary.ID,
		PrimaryObservedAt:        &primary.ObservedAt,
		SecondsApart:             &secondsApart,
		DeltaBalance:             &deltaBalance,
		DeltaOpenPositions:       &deltaPositions,
		DeltaRealizedPnL:         &deltaRealized,
		DeltaTotalValueVsBalance: &deltaTotalValue,
		Status:                   overall.status(),
		AlertMessage:             strings.Join(reasons, "; "),
	}

	if err := s.db.UpsertRecord(rec); err != nil {
		return nil, fmt.Errorf("failed to save reconciliation record: %w", err)
	}

	logger.Info().
		Uint("primary_snapshot_id", primary.ID).
		Int("seconds_apart", secondsApart).
		Float64("delta_balance", deltaBalance).
		Int("delta_open_positions", deltaPositions).
		Float64("delta_realized_pnl", deltaRealized).
		Str("status", rec.Status).
		Msg("reconciled secondary snapshot")

	return rec, nil
}

// ReconcileSource re-reconciles every snapshot of a secondary source.
// Upserts keep the pass idempotent; it is safe to run after backfills.
func (s *Service) ReconcileSource(source string) (int, error) {
	snaps, err := s.db.GetSnapshots(source)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range snaps {
		if _, err := s.Reconcile(&snaps[i]); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Recent returns the latest reconciliation records
func (s *Service) Recent(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return s.db.GetRecent(limit)
}

// Discrepancies returns only WARN, CRITICAL and NO_MATCH records
func (s *Service) Discrepancies(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultAlertLimit
	}
	return s.db.GetDiscrepancies(limit)
}

// classify compares a delta magnitude against the two increasing thresholds
func classify(abs, warn, critical float64) severity {
	switch {
	case abs >= critical:
		return sevCritical
	case abs >= warn:
		return sevWarn
	default:
		return sevOK
	}
}

func maxSeverity(a, b severity) severity {
	if b > a {
		return b
	}
	return a
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// GinHandlers contains HTTP handlers for reconciliation endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for reconciliation endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// RecentHandler handles GET requests for the latest reconciliation records.
// Query parameter: limit
func (h *GinHandlers) RecentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
		recs, err := h.service.Recent(limit)
		response.Handle(c, recs, err)
	}
}

// AlertsHandler handles GET requests for the discrepancies-only view
func (h *GinHandlers) AlertsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
		recs, err := h.service.Discrepancies(limit)
		response.Handle(c, recs, err)
	}
}
