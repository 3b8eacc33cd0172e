package ingest

import (
	"time"

	"github.com/cheadlee10/northstar-synergy/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// CreateRun records the start of one per-source ingestion attempt
func (d *Database) CreateRun(run *types.IngestionRun) error {
	return d.db.Create(run).Error
}

// CompleteRun marks a run finished with its final status and counters
func (d *Database) CompleteRun(run *types.IngestionRun) error {
	now := time.Now()
	run.CompletedAt = &now
	return d.db.Save(run).Error
}

// GetRecentRuns returns the latest ingestion attempts across all sources
func (d *Database) GetRecentRuns(limit int) ([]types.IngestionRun, error) {
	var runs []types.IngestionRun
	if err := d.db.Order("id DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
