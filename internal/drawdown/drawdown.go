// Package drawdown derives the equity and underwater curves for one source's
// end-of-day history in a single forward pass, tracking the running peak,
// the deepest drawdown and its duration, and every completed recovery.
package drawdown

import (
	"math"

	"github.com/cheadlee10/northstar-synergy/internal/config"
	"github.com/cheadlee10/northstar-synergy/internal/snapshot"
	"github.com/cheadlee10/northstar-synergy/internal/types"
	"github.com/cheadlee10/northstar-synergy/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Risk zones derived from the magnitude of the maximum drawdown
const (
	ZoneGreen = "green"
	ZoneAmber = "amber"
	ZoneRed   = "red"
)

// EquityPoint is one day of the equity curve, relative to the first observation
type EquityPoint struct {
	Date     string  `json:"date"`
	Equity   float64 `json:"equity"`
	DailyPnL float64 `json:"daily_pnl"`
}

// UnderwaterPoint is one day of the drawdown curve; Drawdown is always <= 0
type UnderwaterPoint struct {
	Date        string  `json:"date"`
	Drawdown    float64 `json:"drawdown"`
	DrawdownPct float64 `json:"drawdown_pct"`
}

// RecoveryEvent marks a drawdown that closed by reaching a new peak
type RecoveryEvent struct {
	DrawdownStartDate string `json:"drawdown_start_date"`
	RecoveredOnDate   string `json:"recovered_on_date"`
	DurationDays      int    `json:"duration_days"`
}

// Report is the full curve bundle for one source
type Report struct {
	EquityCurve     []EquityPoint     `json:"equity_curve"`
	UnderwaterCurve []UnderwaterPoint `json:"underwater_curve"`
	MaxDrawdown     float64           `json:"max_drawdown"`
	MaxDrawdownPct  float64           `json:"max_drawdown_pct"`
	MaxDrawdownDays int               `json:"max_drawdown_days"`
	Zone            string            `json:"zone"`
	CurrentDrawdown float64           `json:"current_drawdown"`
	DaysInDrawdown  int               `json:"days_in_drawdown"`
	RecoveryEvents  []RecoveryEvent   `json:"recovery_events"`
}

// Service computes drawdown reports from resolved end-of-day records
type Service struct {
	snapshots *snapshot.Service
	cfg       config.DrawdownConfig
}

// NewService creates a drawdown service with injected zone ceilings
func NewService(snapshots *snapshot.Service, cfg config.DrawdownConfig) *Service {
	return &Service{snapshots: snapshots, cfg: cfg}
}

// Compute builds the report for one source's complete end-of-day history.
// Returns nil when the source has no snapshots: absent, not zero.
func (s *Service) Compute(source string) (*Report, error) {
	eod, err := s.snapshots.ResolveEOD(source, snapshot.DateRange{})
	if err != nil {
		return nil, err
	}
	if len(eod) == 0 {
		log.Debug().Str("source", source).Msg("no end-of-day records, drawdown report unavailable")
		return nil, nil
	}
	return buildReport(eod, s.cfg), nil
}

// buildReport runs the peak-tracking state machine over the ordered series
func buildReport(eod []types.AccountSnapshot, cfg config.DrawdownConfig) *Report {
	baseline := eod[0].TotalPnL
	runningPeak := baseline
	peakIndex := 0
	drawdownStart := -1 // index of the peak the current drawdown fell from

	report := &Report{
		EquityCurve:     make([]EquityPoint, 0, len(eod)),
		UnderwaterCurve: make([]UnderwaterPoint, 0, len(eod)),
		RecoveryEvents:  []RecoveryEvent{},
	}

	for i, rec := range eod {
		dailyPnL := 0.0
		if i > 0 {
			dailyPnL = rec.TotalPnL - eod[i-1].TotalPnL
		}
		report.EquityCurve = append(report.EquityCurve, EquityPoint{
			Date:     rec.ObservedDate,
			Equity:   rec.TotalPnL - baseline,
			DailyPnL: dailyPnL,
		})

		drawdown := 0.0
		if rec.TotalPnL >= runningPeak {
			if drawdownStart >= 0 && i > drawdownStart {
				report.RecoveryEvents = append(report.RecoveryEvents, RecoveryEvent{
					DrawdownStartDate: eod[drawdownStart].ObservedDate,
					RecoveredOnDate:   rec.ObservedDate,
					DurationDays:      i - drawdownStart,
				})
			}
			runningPeak = rec.TotalPnL
			peakIndex = i
			drawdownStart = -1
		} else {
			drawdown = rec.TotalPnL - runningPeak
			if drawdownStart < 0 {
				drawdownStart = peakIndex
			}
			if drawdown < report.MaxDrawdown {
				report.MaxDrawdown = drawdown
				report.MaxDrawdownDays = i - peakIndex
				report.MaxDrawdownPct = drawdownPct(drawdown, runningPeak)
			}
		}

		report.UnderwaterCurve = append(report.UnderwaterCurve, UnderwaterPoint{
			Date:        rec.ObservedDate,
			Drawdown:    drawdown,
			DrawdownPct: drawdownPct(drawdown, runningPeak),
		})
	}

	last := len(eod) - 1
	report.CurrentDrawdown = report.UnderwaterCurve[last].Drawdown
	if report.CurrentDrawdown < 0 {
		report.DaysInDrawdown = last - peakIndex
	}
	report.Zone = classifyZone(math.Abs(report.MaxDrawdown), cfg)
	return report
}

// drawdownPct guards the zero-peak case: an account that starts flat has no
// meaningful percentage, so it reports 0 instead of dividing by zero
func drawdownPct(drawdown, peak float64) float64 {
	if peak > 0 {
		return drawdown / peak * 100
	}
	return 0
}

func classifyZone(maxDrawdownAbs float64, cfg config.DrawdownConfig) string {
	switch {
	case maxDrawdownAbs <= cfg.HealthyCeiling:
		return ZoneGreen
	case maxDrawdownAbs <= cfg.CautionCeiling:
		return ZoneAmber
	default:
		return ZoneRed
	}
}

// GinHandlers contains HTTP handlers for drawdown endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for drawdown endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// DrawdownHandler handles GET requests for the full curve bundle
func (h *GinHandlers) DrawdownHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := h.service.Compute(types.SourceAccount)
		if err != nil {
			log.Error().Err(err).Msg("drawdown computation failed")
			response.InternalError(c, "Failed to compute drawdown")
			return
		}
		if report == nil {
			response.NotFound(c, "No snapshot data available")
			return
		}
		response.Success(c, report)
	}
}
