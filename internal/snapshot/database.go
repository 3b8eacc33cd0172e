package snapshot

import (
	"errors"

	"github.com/cheadlee10/northstar-synergy/internal/types"
	"gorm.io/gorm"
)

// ErrDuplicateSnapshot is returned when an observation for the same
// (source, observed_at) pair already exists. Ingestion treats it as success:
// the row is immutable and already present.
var ErrDuplicateSnapshot = errors.New("snapshot already recorded for source and timestamp")

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// CreateSnapshot appends one raw observation. The composite unique index on
// (source, observed_at) rejects duplicates; no row is ever updated.
func (d *Database) CreateSnapshot(snap *types.AccountSnapshot) error {
	if err := d.db.Create(snap).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateSnapshot
		}
		return err
	}
	return nil
}

// GetLatest returns the most recent snapshot for a source with its category
// breakdown, or nil when the source has no snapshots
func (d *Database) GetLatest(source string) (*types.AccountSnapshot, error) {
	var snap types.AccountSnapshot
	err := d.db.Preload("Categories").
		Where("source = ?", source).
		Order("observed_at DESC, id DESC").
		First(&snap).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snap, nil
}

// GetSnapshotByID returns one snapshot row by primary key, or nil if absent
func (d *Database) GetSnapshotByID(id uint) (*types.AccountSnapshot, error) {
	var snap types.AccountSnapshot
	if err := d.db.Preload("Categories").First(&snap, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snap, nil
}

// getSnapshotsAscending returns every snapshot for a source inside the date
// range, ordered so that the last row of each date group is the end-of-day
// winner: observed_at ascending with primary key as the stable tiebreak.
func (d *Database) getSnapshotsAscending(source string, r DateRange) ([]types.AccountSnapshot, error) {
	q := d.db.Preload("Categories").Where("source = ?", source)
	if r.From != "" {
		q = q.Where("observed_date >= ?", r.From)
	}
	if r.To != "" {
		q = q.Where("observed_date <= ?", r.To)
	}

	var snaps []types.AccountSnapshot
	if err := q.Order("observed_date ASC, observed_at ASC, id ASC").Find(&snaps).Error; err != nil {
		return nil, err
	}
	return snaps, nil
}
