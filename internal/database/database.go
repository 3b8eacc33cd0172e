package database

import (
	"fmt"

	"github.com/cheadlee10/northstar-synergy/internal/reconcile"
	"github.com/cheadlee10/northstar-synergy/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase initializes a GORM sqlite connection at the given path and
// migrates all persisted models. The snapshot table's composite unique index
// on (source, observed_at) is created here and acts as the concurrency control
// for ingestion: a duplicate observation fails the insert instead of
// duplicating the row.
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	err = db.AutoMigrate(
		&types.AccountSnapshot{},
		&types.CategoryPnL{},
		&types.IngestionRun{},
		&reconcile.Record{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
