package reconcile

import (
	"errors"
	"time"

	"github.com/cheadlee10/northstar-synergy/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// GetNearestSnapshot returns the snapshot of the given source closest in time
// to t, or nil when the source has none. Checking the last observation at or
// before t and the first at or after it is sufficient: one of the two is
// always the global nearest.
func (d *Database) GetNearestSnapshot(source string, t time.Time) (*types.AccountSnapshot, error) {
	var before, after types.AccountSnapshot

	errBefore := d.db.Where("source = ? AND observed_at <= ?", source, t).
		Order("observed_at DESC, id DESC").
		First(&before).Error
	errAfter := d.db.Where("source = ? AND observed_at > ?", source, t).
		Order("observed_at ASC, id ASC").
		First(&after).Error

	haveBefore := errBefore == nil
	haveAfter := errAfter == nil
	if errBefore != nil && !errors.Is(errBefore, gorm.ErrRecordNotFound) {
		return nil, errBefore
	}
	if errAfter != nil && !errors.Is(errAfter, gorm.ErrRecordNotFound) {
		return nil, errAfter
	}

	switch {
	case haveBefore && haveAfter:
		if t.Sub(before.ObservedAt) <= after.ObservedAt.Sub(t) {
			return &before, nil
		}
		return &after, nil
	case haveBefore:
		return &before, nil
	case haveAfter:
		return &after, nil
	default:
		return nil, nil
	}
}

// GetSnapshots returns every snapshot for a source in chronological order
func (d *Database) GetSnapshots(source string) ([]types.AccountSnapshot, error) {
	var snaps []types.AccountSnapshot
	if err := d.db.Where("source = ?", source).
		Order("observed_at ASC, id ASC").
		Find(&snaps).Error; err != nil {
		return nil, err
	}
	return snaps, nil
}

// UpsertRecord writes a reconciliation record keyed by the secondary snapshot
// identity. A conflicting row is overwritten in place, which makes repeated
// reconciliation runs idempotent.
func (d *Database) UpsertRecord(rec *Record) error {
	return d.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "secondary_snapshot_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"primary_snapshot_id",
			"primary_observed_at",
			"seconds_apart",
			"delta_balance",
			"delta_open_positions",
			"delta_realized_pnl",
			"delta_total_value_vs_balance",
			"status",
			"alert_message",
			"updated_at",
		}),
	}).Create(rec).Error
}

// GetRecord returns the record for one secondary snapshot, or nil if absent
func (d *Database) GetRecord(secondarySnapshotID uint) (*Record, error) {
	var rec Record
	err := d.db.Where("secondary_snapshot_id = ?", secondarySnapshotID).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// GetRecent returns the most recent reconciliation records, newest first
func (d *Database) GetRecent(limit int) ([]Record, error) {
	var recs []Record
	if err := d.db.Order("secondary_snapshot_id DESC").
		Limit(limit).
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// GetDiscrepancies returns only records needing attention, newest first
func (d *Database) GetDiscrepancies(limit int) ([]Record, error) {
	var recs []Record
	if err := d.db.Where("status IN ?", []string{StatusWarn, StatusCritical, StatusNoMatch}).
		Order("secondary_snapshot_id DESC").
		Limit(limit).
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}
