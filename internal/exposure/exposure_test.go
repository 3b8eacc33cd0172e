package exposure

import (
	"context"
	"errors"
	"testing"

	"github.com/cheadlee10/northstar-synergy/internal/config"
	"github.com/cheadlee10/northstar-synergy/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCfg = config.ExposureConfig{
	WarnInstrumentShare:     0.35,
	CriticalInstrumentShare: 0.60,
	WarnClusterShare:        0.50,
	CriticalClusterShare:    0.80,
	WarnTop3Share:           0.70,
	CriticalTop3Share:       0.90,
	WarnHHI:                 2500,
	CriticalHHI:             5000,
}

type staticLister struct {
	positions []types.OpenPosition
	err       error
}

func (l *staticLister) ListOpenPositions(ctx context.Context) ([]types.OpenPosition, error) {
	return l.positions, l.err
}

func newTestService(positions []types.OpenPosition) *Service {
	return NewService(&staticLister{positions: positions}, NewClassifier(DefaultRules()), testCfg)
}

func TestComputeHeatmapSharesAndHHI(t *testing.T) {
	svc := newTestService([]types.OpenPosition{
		{InstrumentLabel: "KXBTCD-26AUG31", CostBasis: 600},
		{InstrumentLabel: "KXHIGHNY-26SEP01", CostBasis: 300},
		{InstrumentLabel: "NFL-26SEP-BUF", CostBasis: 100},
	})

	report, err := svc.ComputeHeatmap(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, 1000.0, report.TotalExposure)
	assert.False(t, report.NoOpenPositions)

	require.Len(t, report.ByInstrument, 3)
	assert.Equal(t, "KXBTCD-26AUG31", report.ByInstrument[0].Instrument)
	assert.Equal(t, "crypto", report.ByInstrument[0].Cluster)
	assert.InDelta(t, 0.6, report.ByInstrument[0].Share, 1e-9)

	assert.InDelta(t, 0.6, report.Concentration.TopInstrumentShare, 1e-9)
	assert.InDelta(t, 0.6, report.Concentration.TopClusterShare, 1e-9)
	assert.InDelta(t, 1.0, report.Concentration.Top3Share, 1e-9)
	assert.InDelta(t, 4600, report.Concentration.HHI, 1e-6)
}

func TestComputeHeatmapAlerts(t *testing.T) {
	svc := newTestService([]types.OpenPosition{
		{InstrumentLabel: "KXBTCD-26AUG31", CostBasis: 600},
		{InstrumentLabel: "KXHIGHNY-26SEP01", CostBasis: 300},
		{InstrumentLabel: "NFL-26SEP-BUF", CostBasis: 100},
	})

	report, err := svc.ComputeHeatmap(context.Background())
	require.NoError(t, err)

	// 0.6 instrument share is exactly the critical threshold; the whole
	// book is three instruments so top3 breaches too
	assert.Equal(t, LevelCritical, report.RiskLevel)

	levels := make(map[string]string)
	for _, a := range report.Alerts {
		levels[a.Metric] = a.Level
	}
	assert.Equal(t, LevelCritical, levels["top_instrument_share"])
	assert.Equal(t, LevelWarn, levels["top_cluster_share"])
	assert.Equal(t, LevelCritical, levels["top3_share"])
	assert.Equal(t, LevelWarn, levels["hhi"])
}

func TestComputeHeatmapDiversifiedBookIsQuiet(t *testing.T) {
	positions := make([]types.OpenPosition, 0, 8)
	labels := []string{
		"KXBTCD-1", "KXETHD-1", "KXHIGHNY-1", "KXRAIN-1",
		"FED-DEC", "CPI-SEP", "NFL-BUF", "NBA-BOS",
	}
	for _, label := range labels {
		positions = append(positions, types.OpenPosition{InstrumentLabel: label, CostBasis: 100})
	}

	report, err := newTestService(positions).ComputeHeatmap(context.Background())
	require.NoError(t, err)

	assert.Equal(t, LevelOK, report.RiskLevel)
	assert.Empty(t, report.Alerts)
	assert.InDelta(t, 1250, report.Concentration.HHI, 1e-6)
}

func TestComputeHeatmapClusterTotalsAndBounds(t *testing.T) {
	report, err := newTestService([]types.OpenPosition{
		{InstrumentLabel: "KXBTCD-26AUG31", CostBasis: 600},
		{InstrumentLabel: "KXHIGHNY-26SEP01", CostBasis: 300},
		{InstrumentLabel: "NFL-26SEP-BUF", CostBasis: 100},
	}).ComputeHeatmap(context.Background())
	require.NoError(t, err)

	clusterTotal := 0.0
	for _, cl := range report.ByCluster {
		clusterTotal += cl.Exposure
	}
	assert.InDelta(t, report.TotalExposure, clusterTotal, 1e-9)
	assert.GreaterOrEqual(t, report.Concentration.HHI, 0.0)
	assert.LessOrEqual(t, report.Concentration.HHI, 10000.0)
}

func TestComputeHeatmapSingleInstrumentIsMaximallyConcentrated(t *testing.T) {
	report, err := newTestService([]types.OpenPosition{
		{InstrumentLabel: "KXBTCD-26AUG31", CostBasis: 250},
	}).ComputeHeatmap(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 1.0, report.Concentration.TopInstrumentShare, 1e-9)
	assert.InDelta(t, 10000, report.Concentration.HHI, 1e-6)
}

func TestComputeHeatmapEmptyBook(t *testing.T) {
	report, err := newTestService(nil).ComputeHeatmap(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.True(t, report.NoOpenPositions)
	assert.Equal(t, 0.0, report.TotalExposure)
	assert.Equal(t, LevelOK, report.RiskLevel)
	assert.Empty(t, report.ByInstrument)
	assert.Empty(t, report.Alerts)
}

func TestComputeHeatmapListerError(t *testing.T) {
	svc := NewService(&staticLister{err: errors.New("feed down")}, NewClassifier(DefaultRules()), testCfg)

	_, err := svc.ComputeHeatmap(context.Background())
	assert.Error(t, err)
}

func TestComputeHeatmapAggregatesAcrossSources(t *testing.T) {
	// The same instrument reported by both feeds is one exposure line
	svc := newTestService([]types.OpenPosition{
		{Source: types.SourceAccount, InstrumentLabel: "KXBTCD-26AUG31", CostBasis: 400},
		{Source: types.SourceEngine, InstrumentLabel: "KXBTCD-26AUG31", CostBasis: 200},
	})

	report, err := svc.ComputeHeatmap(context.Background())
	require.NoError(t, err)

	require.Len(t, report.ByInstrument, 1)
	assert.Equal(t, 600.0, report.ByInstrument[0].Exposure)
}

func TestExposureAmountPreference(t *testing.T) {
	tests := []struct {
		name string
		pos  types.OpenPosition
		want float64
	}{
		{"cost basis wins", types.OpenPosition{CostBasis: 50, EntryPrice: 2, Quantity: 100, Stake: 10}, 50},
		{"entry value next", types.OpenPosition{EntryPrice: 2, Quantity: 100, Stake: 10}, 200},
		{"stake fallback", types.OpenPosition{Stake: 10}, 10},
		{"nothing known", types.OpenPosition{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exposureAmount(tt.pos))
		})
	}
}

func TestBuildReportSkipsZeroExposure(t *testing.T) {
	svc := newTestService(nil)
	report := svc.buildReport([]types.OpenPosition{
		{InstrumentLabel: "KXBTCD-26AUG31", CostBasis: 100},
		{InstrumentLabel: "GHOST"}, // no amount at all
	})

	assert.Equal(t, 100.0, report.TotalExposure)
	require.Len(t, report.ByInstrument, 1)
}
