package reconcile

import (
	"time"

	"gorm.io/gorm"
)

// Agreement statuses, in increasing severity. NO_MATCH means no primary
// observation existed close enough in time to compare against; it is distinct
// from a matched pair that disagrees.
const (
	StatusOK       = "OK"
	StatusWarn     = "WARN"
	StatusCritical = "CRITICAL"
	StatusNoMatch  = "NO_MATCH"
)

// Record is the persisted audit result of reconciling one secondary-feed
// snapshot against the primary feed. Exactly one row per secondary snapshot:
// re-running reconciliation overwrites the row, never duplicates it.
// Delta fields are nil for NO_MATCH, where no comparison was possible.
type Record struct {
	gorm.Model               `json:"-"`
	SecondarySnapshotID      uint       `gorm:"uniqueIndex" json:"secondary_snapshot_id"`
	PrimarySnapshotID        *uint      `json:"matched_primary_snapshot_id"`
	PrimaryObservedAt        *time.Time `json:"primary_observed_at,omitempty"`
	SecondsApart             *int       `json:"seconds_apart"`
	DeltaBalance             *float64   `json:"delta_balance"`
	DeltaOpenPositions       *int       `json:"delta_open_positions"`
	DeltaRealizedPnL         *float64   `gorm:"column:delta_realized_pnl" json:"delta_realized_pnl"`
	DeltaTotalValueVsBalance *float64   `json:"delta_total_value_vs_balance"`
	Status                   string     `gorm:"index" json:"status"`
	AlertMessage             string     `json:"alert_message,omitempty"`
}

// TableName keeps the audit table self-describing
func (Record) TableName() string {
	return "reconciliation_records"
}
