// Package exposure aggregates currently-open positions into per-instrument
// and per-cluster totals and computes concentration risk metrics over them.
// Reports are ephemeral: recomputed on each query, never persisted.
package exposure

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/cheadlee10/northstar-synergy/internal/config"
	"github.com/cheadlee10/northstar-synergy/internal/types"
	"github.com/cheadlee10/northstar-synergy/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Alert levels for concentration metrics
const (
	LevelOK       = "OK"
	LevelWarn     = "WARN"
	LevelCritical = "CRITICAL"
)

// PositionLister supplies the open positions of every tracked source.
// The trading engine and account feeds implement it.
type PositionLister interface {
	ListOpenPositions(ctx context.Context) ([]types.OpenPosition, error)
}

// InstrumentExposure is the aggregated exposure of one instrument
type InstrumentExposure struct {
	Instrument string  `json:"instrument"`
	Cluster    string  `json:"cluster"`
	Exposure   float64 `json:"exposure"`
	Share      float64 `json:"share"`
}

// ClusterExposure is the aggregated exposure of one semantic cluster
type ClusterExposure struct {
	Cluster  string  `json:"cluster"`
	Exposure float64 `json:"exposure"`
	Share    float64 `json:"share"`
}

// ConcentrationMetrics are the concentration indices over open exposure
type ConcentrationMetrics struct {
	TopInstrumentShare float64 `json:"top_instrument_share"`
	TopClusterShare    float64 `json:"top_cluster_share"`
	Top3Share          float64 `json:"top3_share"`
	HHI                float64 `json:"hhi"`
}

// Alert flags one concentration metric that breached a threshold
type Alert struct {
	Metric    string  `json:"metric"`
	Level     string  `json:"level"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Message   string  `json:"message"`
}

// Report is the full exposure heatmap. NoOpenPositions marks the fallback
// state for an empty book, which is distinct from zero concentration.
type Report struct {
	TotalExposure   float64              `json:"total_exposure"`
	ByInstrument    []InstrumentExposure `json:"by_instrument"`
	ByCluster       []ClusterExposure    `json:"by_cluster"`
	Concentration   ConcentrationMetrics `json:"concentration_metrics"`
	Alerts          []Alert              `json:"alerts"`
	RiskLevel       string               `json:"risk_level"`
	NoOpenPositions bool                 `json:"no_open_positions"`
}

// Service computes exposure heatmaps from live position listings
type Service struct {
	positions  PositionLister
	classifier *Classifier
	cfg        config.ExposureConfig
}

// NewService creates an exposure service with injected thresholds and taxonomy
func NewService(positions PositionLister, classifier *Classifier, cfg config.ExposureConfig) *Service {
	return &Service{
		positions:  positions,
		classifier: classifier,
		cfg:        cfg,
	}
}

// ComputeHeatmap fetches every open position, clusters it, and derives the
// concentration metrics and alerts
func (s *Service) ComputeHeatmap(ctx context.Context) (*Report, error) {
	positions, err := s.positions.ListOpenPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list open positions: %w", err)
	}
	return s.buildReport(positions), nil
}

func (s *Service) buildReport(positions []types.OpenPosition) *Report {
	byInstrument := make(map[string]*InstrumentExposure)
	byCluster := make(map[string]*ClusterExposure)
	total := 0.0

	for _, pos := range positions {
		amount := exposureAmount(pos)
		if amount <= 0 {
			continue
		}
		total += amount

		cluster := s.classifier.Classify(pos.InstrumentLabel)
		inst, ok := byInstrument[pos.InstrumentLabel]
		if !ok {
			inst = &InstrumentExposure{Instrument: pos.InstrumentLabel, Cluster: cluster}
			byInstrument[pos.InstrumentLabel] = inst
		}
		inst.Exposure += amount

		cl, ok := byCluster[cluster]
		if !ok {
			cl = &ClusterExposure{Cluster: cluster}
			byCluster[cluster] = cl
		}
		cl.Exposure += amount
	}

	if total == 0 {
		log.Debug().Msg("no open positions, exposure heatmap empty")
		return &Report{
			ByInstrument:    []InstrumentExposure{},
			ByCluster:       []ClusterExposure{},
			Alerts:          []Alert{},
			RiskLevel:       LevelOK,
			NoOpenPositions: true,
		}
	}

	report := &Report{
		TotalExposure: total,
		ByInstrument:  make([]InstrumentExposure, 0, len(byInstrument)),
		ByCluster:     make([]ClusterExposure, 0, len(byCluster)),
		Alerts:        []Alert{},
	}

	hhi := 0.0
	for _, inst := range byInstrument {
		inst.Share = inst.Exposure / total
		hhi += inst.Share * inst.Share
		report.ByInstrument = append(report.ByInstrument, *inst)
	}
	for _, cl := range byCluster {
		cl.Share = cl.Exposure / total
		report.ByCluster = append(report.ByCluster, *cl)
	}

	sort.Slice(report.ByInstrument, func(i, j int) bool {
		if report.ByInstrument[i].Exposure != report.ByInstrument[j].Exposure {
			return report.ByInstrument[i].Exposure > report.ByInstrument[j].Exposure
		}
		return report.ByInstrument[i].Instrument < report.ByInstrument[j].Instrument
	})
	sort.Slice(report.ByCluster, func(i, j int) bool {
		if report.ByCluster[i].Exposure != report.ByCluster[j].Exposure {
			return report.ByCluster[i].Exposure > report.ByCluster[j].Exposure
		}
		return report.ByCluster[i].Cluster < report.ByCluster[j].Cluster
	})

	top3 := 0.0
	for i := 0; i < len(report.ByInstrument) && i < 3; i++ {
		top3 += report.ByInstrument[i].Share
	}

	report.Concentration = ConcentrationMetrics{
		TopInstrumentShare: report.ByInstrument[0].Share,
		TopClusterShare:    report.ByCluster[0].Share,
		Top3Share:          math.Min(top3, 1.0),
		HHI:                hhi * 10000,
	}

	report.Alerts = s.evaluateAlerts(report.Concentration)
	report.RiskLevel = worstLevel(report.Alerts)
	return report
}

// exposureAmount prefers the known cost basis, then marked entry value, then
// the stake recorded for discrete-outcome positions
func exposureAmount(pos types.OpenPosition) float64 {
	if pos.CostBasis > 0 {
		return pos.CostBasis
	}
	if pos.EntryPrice > 0 && pos.Quantity > 0 {
		return pos.EntryPrice * pos.Quantity
	}
	return pos.Stake
}

func (s *Service) evaluateAlerts(m ConcentrationMetrics) []Alert {
	alerts := []Alert{}
	checks := []struct {
		metric         string
		value          float64
		warn, critical float64
	}{
		{"top_instrument_share", m.TopInstrumentShare, s.cfg.WarnInstrumentShare, s.cfg.CriticalInstrumentShare},
		{"top_cluster_share", m.TopClusterShare, s.cfg.WarnClusterShare, s.cfg.CriticalClusterShare},
		{"top3_share", m.Top3Share, s.cfg.WarnTop3Share, s.cfg.CriticalTop3Share},
		{"hhi", m.HHI, s.cfg.WarnHHI, s.cfg.CriticalHHI},
	}

	for _, check := range checks {
		switch {
		case check.value >= check.critical:
			alerts = append(alerts, Alert{
				Metric:    check.metric,
				Level:     LevelCritical,
				Value:     check.value,
				Threshold: check.critical,
				Message:   fmt.Sprintf("%s %.4g at or above critical threshold %.4g", check.metric, check.value, check.critical),
			})
		case check.value >= check.warn:
			alerts = append(alerts, Alert{
				Metric:    check.metric,
				Level:     LevelWarn,
				Value:     check.value,
				Threshold: check.warn,
				Message:   fmt.Sprintf("%s %.4g at or above warn threshold %.4g", check.metric, check.value, check.warn),
			})
		}
	}
	return alerts
}

func worstLevel(alerts []Alert) string {
	level := LevelOK
	for _, a := range alerts {
		if a.Level == LevelCritical {
			return LevelCritical
		}
		if a.Level == LevelWarn {
			level = LevelWarn
		}
	}
	return level
}

// GinHandlers contains HTTP handlers for exposure endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for exposure endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// HeatmapHandler handles GET requests for the exposure heatmap
func (h *GinHandlers) HeatmapHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := h.service.ComputeHeatmap(c.Request.Context())
		response.Handle(c, report, err)
	}
}
