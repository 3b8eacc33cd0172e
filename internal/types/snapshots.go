package types

import (
	"time"

	"gorm.io/gorm"
)

// Feed sources tracked by the engine
const (
	SourceAccount = "account" // externally polled account feed (primary)
	SourceEngine  = "engine"  // local trading-engine feed (secondary)
)

// AccountSnapshot is a raw point-in-time observation of account state from one
// feed. Rows are append-only and never mutated; multiple snapshots per day are
// expected. Uniqueness on (source, observed_at) makes concurrent ingestion safe.
type AccountSnapshot struct {
	gorm.Model        `json:"-"`
	Source            string        `gorm:"uniqueIndex:idx_snapshot_source_observed;index" json:"source"`
	ObservedAt        time.Time     `gorm:"uniqueIndex:idx_snapshot_source_observed" json:"observed_at"`
	ObservedDate      string        `gorm:"index" json:"observed_date"` // YYYY-MM-DD
	Balance           float64       `json:"balance"`
	DailyPnL          float64       `gorm:"column:daily_pnl" json:"daily_pnl"`
	TotalPnL          float64       `gorm:"column:total_pnl" json:"total_pnl"`
	TotalValue        float64       `json:"total_value"` // cash plus marked positions, as reported by the feed
	OpenPositionCount int           `json:"open_position_count"`
	OrderCount        int           `json:"order_count"`
	FillCount         int           `json:"fill_count"`
	WinCount          int           `json:"win_count"`
	LossCount         int           `json:"loss_count"`
	Categories        []CategoryPnL `gorm:"foreignKey:SnapshotID" json:"category_pnl_breakdown,omitempty"`
}

// CategoryPnL is one entry of a snapshot's per-category P&L breakdown
type CategoryPnL struct {
	gorm.Model `json:"-"`
	SnapshotID uint    `gorm:"index" json:"-"`
	Category   string  `json:"category"`
	PnL        float64 `gorm:"column:pnl" json:"pnl"`
}

// OpenPosition is one currently-open position as reported by a feed's
// position listing. Ephemeral: fetched on demand, never persisted.
type OpenPosition struct {
	Source          string  `json:"source"`
	InstrumentLabel string  `json:"instrument_label"`
	Direction       string  `json:"direction"` // LONG, SHORT, YES, NO
	Quantity        float64 `json:"quantity"`
	EntryPrice      float64 `json:"entry_price"`
	CostBasis       float64 `json:"cost_basis,omitempty"`
	Stake           float64 `json:"stake,omitempty"` // discrete-outcome positions without a price
}

// Ingestion run statuses
const (
	RunStatusStarted   = "STARTED"
	RunStatusCompleted = "COMPLETED"
	RunStatusError     = "ERROR"
)

// IngestionRun is the audit record for a single per-source ingestion attempt.
// One row per attempt, written when the attempt starts and updated when it
// completes or fails. A failed run never blocks other sources.
type IngestionRun struct {
	gorm.Model       `json:"-"`
	RunID            string     `gorm:"uniqueIndex" json:"run_id"`
	Source           string     `gorm:"index" json:"source"`
	Status           string     `json:"status"` // STARTED, COMPLETED, ERROR
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	RecordsProcessed int        `json:"records_processed"`
	Error            string     `json:"error,omitempty"`
}
