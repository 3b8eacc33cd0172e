// Package period computes profit and loss over named calendar windows,
// anchored to a baseline strictly before the window. Using the last end-of-day
// record before the window, rather than the window's own first record, means
// P&L accrued earlier on the window's first day is counted exactly once.
package period

import (
	"time"

	"github.com/cheadlee10/northstar-synergy/internal/snapshot"
	"github.com/cheadlee10/northstar-synergy/internal/types"
	"github.com/cheadlee10/northstar-synergy/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Result is the period P&L for one window. A nil Result means no end-of-day
// record fell inside the window: absent, not zero.
type Result struct {
	Window       string  `json:"window"`
	BaselineDate string  `json:"baseline_date"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	PnL          float64 `json:"pnl"`
	BalanceDelta float64 `json:"balance_delta"`
	Fills        int     `json:"fills"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
}

// Service computes period P&L from resolved end-of-day records
type Service struct {
	snapshots *snapshot.Service
}

// NewService creates a period P&L service backed by the snapshot store
func NewService(snapshots *snapshot.Service) *Service {
	return &Service{snapshots: snapshots}
}

// Compute resolves the named window against now and reports the P&L between
// the pre-window baseline and the last end-of-day record in the window.
// Baseline rule: the latest end-of-day record strictly before the window's
// first in-window date; if none exists the first in-window record is its own
// baseline, which yields the zero-baseline case for all-time.
func (s *Service) Compute(source, windowName string, now time.Time) (*Result, error) {
	w, err := ResolveWindow(windowName, now)
	if err != nil {
		return nil, err
	}

	eod, err := s.snapshots.ResolveEOD(source, snapshot.DateRange{})
	if err != nil {
		return nil, err
	}

	var baseline *types.AccountSnapshot
	var first, last *types.AccountSnapshot
	for i := range eod {
		rec := &eod[i]
		if w.Contains(rec.ObservedDate) {
			if first == nil {
				first = rec
			}
			last = rec
			continue
		}
		if first == nil && (w.From == "" || rec.ObservedDate < w.From) {
			baseline = rec
		}
	}

	if last == nil {
		log.Debug().
			Str("source", source).
			Str("window", windowName).
			Msg("no end-of-day records in window, period absent")
		return nil, nil
	}
	if baseline == nil {
		baseline = first
	}

	return &Result{
		Window:       w.Name,
		BaselineDate: baseline.ObservedDate,
		StartDate:    first.ObservedDate,
		EndDate:      last.ObservedDate,
		PnL:          last.Balance - baseline.Balance,
		BalanceDelta: last.Balance - baseline.Balance,
		Fills:        last.FillCount,
		Wins:         last.WinCount,
		Losses:       last.LossCount,
	}, nil
}

// ComputeAll computes every supported window at once, omitting absent periods
func (s *Service) ComputeAll(source string, now time.Time) (map[string]*Result, error) {
	results := make(map[string]*Result)
	for _, name := range WindowNames() {
		res, err := s.Compute(source, name, now)
		if err != nil {
			return nil, err
		}
		if res != nil {
			results[name] = res
		}
	}
	return results, nil
}

// GinHandlers contains HTTP handlers for period P&L endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for period P&L endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// PeriodHandler handles GET requests for a single named window.
// URL parameter: window (today, week, month, quarter, year, all)
func (h *GinHandlers) PeriodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("window")
		if _, err := ResolveWindow(name, time.Now()); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		res, err := h.service.Compute(types.SourceAccount, name, time.Now())
		if err != nil {
			log.Error().Err(err).Str("window", name).Msg("period computation failed")
			response.InternalError(c, "Failed to compute period")
			return
		}
		if res == nil {
			response.NotFound(c, "No data available for this window")
			return
		}
		response.Success(c, res)
	}
}

// AllPeriodsHandler handles GET requests for every supported window at once
func (h *GinHandlers) AllPeriodsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		results, err := h.service.ComputeAll(types.SourceAccount, time.Now())
		response.Handle(c, results, err)
	}
}
