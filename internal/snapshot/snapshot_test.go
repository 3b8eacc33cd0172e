package snapshot

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cheadlee10/northstar-synergy/internal/database"
	"github.com/cheadlee10/northstar-synergy/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return db
}

func observation(source, date string, hour int, balance float64) *types.AccountSnapshot {
	day, _ := time.Parse("2006-01-02", date)
	return &types.AccountSnapshot{
		Source:       source,
		ObservedAt:   day.Add(time.Duration(hour) * time.Hour),
		ObservedDate: date,
		Balance:      balance,
	}
}

func TestResolveEODLastObservationWins(t *testing.T) {
	svc := NewService(newTestDB(t))

	// Three observations on day one, two on day two; the last of each
	// day is the canonical close
	require.NoError(t, svc.Record(observation(types.SourceAccount, "2026-08-01", 9, 100)))
	require.NoError(t, svc.Record(observation(types.SourceAccount, "2026-08-01", 12, 105)))
	require.NoError(t, svc.Record(observation(types.SourceAccount, "2026-08-01", 16, 102)))
	require.NoError(t, svc.Record(observation(types.SourceAccount, "2026-08-02", 10, 103)))
	require.NoError(t, svc.Record(observation(types.SourceAccount, "2026-08-02", 15, 108)))

	eod, err := svc.ResolveEOD(types.SourceAccount, DateRange{})
	require.NoError(t, err)
	require.Len(t, eod, 2)

	assert.Equal(t, "2026-08-01", eod[0].ObservedDate)
	assert.Equal(t, 102.0, eod[0].Balance)
	assert.Equal(t, "2026-08-02", eod[1].ObservedDate)
	assert.Equal(t, 108.0, eod[1].Balance)
}

func TestResolveEODIsolatedPerSource(t *testing.T) {
	svc := NewService(newTestDB(t))

	require.NoError(t, svc.Record(observation(types.SourceAccount, "2026-08-01", 16, 102)))
	require.NoError(t, svc.Record(observation(types.SourceEngine, "2026-08-01", 17, 99)))

	eod, err := svc.ResolveEOD(types.SourceAccount, DateRange{})
	require.NoError(t, err)
	require.Len(t, eod, 1)
	assert.Equal(t, 102.0, eod[0].Balance)

	eod, err = svc.ResolveEOD(types.SourceEngine, DateRange{})
	require.NoError(t, err)
	require.Len(t, eod, 1)
	assert.Equal(t, 99.0, eod[0].Balance)
}

func TestResolveEODDateRange(t *testing.T) {
	svc := NewService(newTestDB(t))

	require.NoError(t, svc.Record(observation(types.SourceAccount, "2026-08-01", 16, 100)))
	require.NoError(t, svc.Record(observation(types.SourceAccount, "2026-08-02", 16, 103)))
	require.NoError(t, svc.Record(observation(types.SourceAccount, "2026-08-03", 16, 106)))

	eod, err := svc.ResolveEOD(types.SourceAccount, DateRange{From: "2026-08-02", To: "2026-08-02"})
	require.NoError(t, err)
	require.Len(t, eod, 1)
	assert.Equal(t, "2026-08-02", eod[0].ObservedDate)
}

func TestResolveEODEmptyStore(t *testing.T) {
	svc := NewService(newTestDB(t))

	eod, err := svc.ResolveEOD(types.SourceAccount, DateRange{})
	require.NoError(t, err)
	assert.Empty(t, eod)
}

func TestRecordRejectsDuplicateObservation(t *testing.T) {
	svc := NewService(newTestDB(t))

	first := observation(types.SourceAccount, "2026-08-01", 9, 100)
	require.NoError(t, svc.Record(first))

	dup := observation(types.SourceAccount, "2026-08-01", 9, 999)
	err := svc.Record(dup)
	assert.ErrorIs(t, err, ErrDuplicateSnapshot)

	// The same timestamp from the other feed is a different observation
	other := observation(types.SourceEngine, "2026-08-01", 9, 100)
	assert.NoError(t, svc.Record(other))
}

func TestSummaryNoData(t *testing.T) {
	svc := NewService(newTestDB(t))

	summary, err := svc.Summary(types.SourceAccount)
	require.NoError(t, err)
	assert.Nil(t, summary)
}

func TestSummaryLiveAndDaily(t *testing.T) {
	svc := NewService(newTestDB(t))

	require.NoError(t, svc.Record(observation(types.SourceAccount, "2026-08-01", 16, 102)))

	latest := observation(types.SourceAccount, "2026-08-02", 15, 108)
	latest.TotalPnL = 8
	latest.OpenPositionCount = 3
	latest.FillCount = 12
	latest.WinCount = 7
	latest.LossCount = 5
	latest.Categories = []types.CategoryPnL{
		{Category: "weather", PnL: 5},
		{Category: "crypto", PnL: 3},
	}
	require.NoError(t, svc.Record(latest))

	summary, err := svc.Summary(types.SourceAccount)
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, 108.0, summary.Live.Balance)
	assert.Equal(t, 8.0, summary.Live.TotalPnL)
	assert.Equal(t, 3, summary.Live.OpenPositions)
	assert.Equal(t, 12, summary.Live.TotalFills)
	assert.Equal(t, 5.0, summary.Categories["weather"])
	assert.Equal(t, 3.0, summary.Categories["crypto"])

	require.Len(t, summary.Daily, 2)
	assert.Equal(t, "2026-08-01", summary.Daily[0].Date)
	assert.Equal(t, "2026-08-02", summary.Daily[1].Date)
}

func TestTimeseriesCarriesCategories(t *testing.T) {
	svc := NewService(newTestDB(t))

	snap := observation(types.SourceAccount, "2026-08-01", 16, 102)
	snap.TotalPnL = 2
	snap.Categories = []types.CategoryPnL{{Category: "sports", PnL: 2}}
	require.NoError(t, svc.Record(snap))

	points, err := svc.Timeseries(types.SourceAccount)
	require.NoError(t, err)
	require.Len(t, points, 1)

	assert.Equal(t, "2026-08-01", points[0].Date)
	assert.Equal(t, 2.0, points[0].TotalPnL)
	assert.Equal(t, 2.0, points[0].Categories["sports"])
}
