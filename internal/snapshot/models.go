package snapshot

import "time"

// DateRange bounds an EOD resolution by calendar date (YYYY-MM-DD, inclusive).
// Zero values leave the corresponding side unbounded.
type DateRange struct {
	From string
	To   string
}

// LiveSummary is the latest snapshot's key fields
type LiveSummary struct {
	Balance       float64   `json:"balance"`
	TotalPnL      float64   `json:"total_pnl"`
	TotalValue    float64   `json:"total_value"`
	OpenPositions int       `json:"open_positions"`
	TotalOrders   int       `json:"total_orders"`
	TotalFills    int       `json:"total_fills"`
	WinCount      int       `json:"win_count"`
	LossCount     int       `json:"loss_count"`
	LastUpdate    time.Time `json:"last_update"`
}

// DailyRow is one end-of-day row in the summary's recent history
type DailyRow struct {
	Date     string  `json:"date"`
	TotalPnL float64 `json:"total_pnl"`
	Balance  float64 `json:"balance"`
	Fills    int     `json:"fills"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
}

// SummaryResponse is the live account summary with category breakdown and
// the most recent end-of-day history
type SummaryResponse struct {
	Live       LiveSummary        `json:"live"`
	Categories map[string]float64 `json:"categories"`
	Daily      []DailyRow         `json:"daily"`
}

// TimeseriesPoint is one end-of-day observation in the full category timeseries
type TimeseriesPoint struct {
	Date       string             `json:"date"`
	TotalPnL   float64            `json:"total_pnl"`
	Balance    float64            `json:"balance"`
	Categories map[string]float64 `json:"categories"`
}
