package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cheadlee10/northstar-synergy/internal/database"
	"github.com/cheadlee10/northstar-synergy/internal/snapshot"
	"github.com/cheadlee10/northstar-synergy/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubCollector returns a fixed snapshot, a fixed position list, or an error
type stubCollector struct {
	source    string
	snap      *types.AccountSnapshot
	positions []types.OpenPosition
	err       error
	panics    bool
}

func (c *stubCollector) Source() string { return c.source }

func (c *stubCollector) Collect(ctx context.Context) (*types.AccountSnapshot, []types.OpenPosition, error) {
	if c.panics {
		panic("collector exploded")
	}
	if c.err != nil {
		return nil, nil, c.err
	}
	// Copy so repeated runs hit the duplicate guard, not a mutated row
	snap := *c.snap
	return &snap, c.positions, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return db
}

func stubSnapshot(source string) *types.AccountSnapshot {
	at := time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	return &types.AccountSnapshot{
		Source:       source,
		ObservedAt:   at,
		ObservedDate: "2026-08-15",
		Balance:      1000,
	}
}

func TestRunOnceStoresSnapshot(t *testing.T) {
	db := newTestDB(t)
	snapshots := snapshot.NewService(db)
	svc := NewService(db, snapshots, nil, time.Second)

	collector := &stubCollector{source: types.SourceAccount, snap: stubSnapshot(types.SourceAccount)}
	run := svc.RunOnce(context.Background(), collector)

	assert.Equal(t, types.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.RecordsProcessed)
	assert.NotNil(t, run.CompletedAt)

	stored, err := snapshots.Store().GetLatest(types.SourceAccount)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 1000.0, stored.Balance)
}

func TestRunOnceDuplicateObservationCompletes(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, snapshot.NewService(db), nil, time.Second)

	collector := &stubCollector{source: types.SourceAccount, snap: stubSnapshot(types.SourceAccount)}
	first := svc.RunOnce(context.Background(), collector)
	require.Equal(t, types.RunStatusCompleted, first.Status)

	// Same observation again: completed, nothing new stored
	second := svc.RunOnce(context.Background(), collector)
	assert.Equal(t, types.RunStatusCompleted, second.Status)
	assert.Equal(t, 0, second.RecordsProcessed)
}

func TestRunOnceFeedFailureIsAudited(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, snapshot.NewService(db), nil, time.Second)

	collector := &stubCollector{source: types.SourceAccount, err: errors.New("feed down")}
	run := svc.RunOnce(context.Background(), collector)

	assert.Equal(t, types.RunStatusError, run.Status)
	assert.Equal(t, "feed down", run.Error)

	runs, err := svc.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, types.RunStatusError, runs[0].Status)
}

func TestRunOncePanicIsContained(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, snapshot.NewService(db), nil, time.Second)

	collector := &stubCollector{source: types.SourceAccount, panics: true}
	assert.NotPanics(t, func() {
		svc.RunOnce(context.Background(), collector)
	})

	runs, err := svc.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, types.RunStatusError, runs[0].Status)
	assert.Contains(t, runs[0].Error, "panic during ingestion")
}

func TestRunOnceSecondarySourceTriggersReconcile(t *testing.T) {
	db := newTestDB(t)

	reconciled := 0
	svc := NewService(db, snapshot.NewService(db), func(snap *types.AccountSnapshot) error {
		reconciled++
		return nil
	}, time.Second)

	engine := &stubCollector{source: types.SourceEngine, snap: stubSnapshot(types.SourceEngine)}
	run := svc.RunOnce(context.Background(), engine)
	require.Equal(t, types.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, reconciled)

	// The primary feed never reconciles against itself
	account := &stubCollector{source: types.SourceAccount, snap: stubSnapshot(types.SourceAccount)}
	run = svc.RunOnce(context.Background(), account)
	require.Equal(t, types.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, reconciled)
}

func TestRunOnceReconcileFailureKeepsSnapshot(t *testing.T) {
	db := newTestDB(t)
	snapshots := snapshot.NewService(db)

	svc := NewService(db, snapshots, func(snap *types.AccountSnapshot) error {
		return errors.New("reconciliation broken")
	}, time.Second)

	engine := &stubCollector{source: types.SourceEngine, snap: stubSnapshot(types.SourceEngine)}
	run := svc.RunOnce(context.Background(), engine)

	assert.Equal(t, types.RunStatusCompleted, run.Status)
	stored, err := snapshots.Store().GetLatest(types.SourceEngine)
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestRunSourceUnknown(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, snapshot.NewService(db), nil, time.Second)

	_, err := svc.RunSource(context.Background(), "mystery")
	assert.Error(t, err)
}

func TestListOpenPositionsSkipsFailingSource(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, snapshot.NewService(db), nil, time.Second)

	svc.Register(&stubCollector{
		source: types.SourceAccount,
		snap:   stubSnapshot(types.SourceAccount),
		positions: []types.OpenPosition{
			{Source: types.SourceAccount, InstrumentLabel: "KXBTCD", CostBasis: 100},
			{Source: types.SourceAccount, InstrumentLabel: "KXHIGHNY", CostBasis: 50},
		},
	}, time.Minute)
	svc.Register(&stubCollector{source: types.SourceEngine, err: errors.New("feed down")}, time.Minute)

	positions, err := svc.ListOpenPositions(context.Background())
	require.NoError(t, err)
	assert.Len(t, positions, 2)
}
