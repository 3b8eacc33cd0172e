package ingest

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/cheadlee10/northstar-synergy/internal/types"
	"github.com/rs/zerolog/log"
)

// SimulatedFeed is a stand-in collector for local runs without live feed
// credentials. It random-walks a plausible account state and fails a
// configurable fraction of collections, so the per-source failure boundary
// and the audit trail get exercised end to end.
type SimulatedFeed struct {
	source      string
	minLatency  int // in milliseconds
	maxLatency  int
	successRate float64 // 0-1, probability of a successful collection

	mu       sync.Mutex
	balance  float64
	totalPnL float64
	fills    int
	wins     int
	losses   int
	orders   int
	book     []types.OpenPosition
}

// NewSimulatedAccountFeed builds the primary (externally polled) feed
func NewSimulatedAccountFeed() *SimulatedFeed {
	return &SimulatedFeed{
		source:      types.SourceAccount,
		minLatency:  10,
		maxLatency:  80,
		successRate: 0.97,
		balance:     1000,
		book: []types.OpenPosition{
			{Source: types.SourceAccount, InstrumentLabel: "KXHIGHNY-26SEP01", Direction: "YES", Quantity: 120, EntryPrice: 0.42},
			{Source: types.SourceAccount, InstrumentLabel: "KXBTCD-26AUG31", Direction: "NO", Quantity: 75, EntryPrice: 0.61},
			{Source: types.SourceAccount, InstrumentLabel: "FED-26SEP-HIKE", Direction: "YES", Stake: 40},
		},
	}
}

// NewSimulatedEngineFeed builds the secondary (local trading-engine) feed.
// Its state deliberately wanders slightly off the account feed's so that
// reconciliation produces the occasional WARN.
func NewSimulatedEngineFeed() *SimulatedFeed {
	return &SimulatedFeed{
		source:      types.SourceEngine,
		minLatency:  5,
		maxLatency:  30,
		successRate: 0.93,
		balance:     996,
		book: []types.OpenPosition{
			{Source: types.SourceEngine, InstrumentLabel: "KXHIGHNY-26SEP01", Direction: "YES", Quantity: 120, EntryPrice: 0.42},
			{Source: types.SourceEngine, InstrumentLabel: "KXETHD-26AUG31", Direction: "YES", Quantity: 50, EntryPrice: 0.35},
		},
	}
}

// Source returns the feed's source identifier
func (f *SimulatedFeed) Source() string {
	return f.source
}

// Collect simulates one feed call: latency, a failure fraction, and a small
// random walk of the account state
func (f *SimulatedFeed) Collect(ctx context.Context) (*types.AccountSnapshot, []types.OpenPosition, error) {
	latency := rand.Intn(f.maxLatency-f.minLatency+1) + f.minLatency
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-time.After(time.Duration(latency) * time.Millisecond):
	}

	if rand.Float64() > f.successRate {
		log.Debug().Str("source", f.source).Msg("simulated feed failure")
		return nil, nil, fmt.Errorf("feed %s unavailable", f.source)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	move := (rand.Float64() - 0.48) * 8
	f.balance += move
	f.totalPnL += move
	f.orders++
	if rand.Float64() < 0.6 {
		f.fills++
		if move >= 0 {
			f.wins++
		} else {
			f.losses++
		}
	}

	now := time.Now()
	snap := &types.AccountSnapshot{
		Source:            f.source,
		ObservedAt:        now,
		ObservedDate:      now.Format("2006-01-02"),
		Balance:           f.balance,
		DailyPnL:          move,
		TotalPnL:          f.totalPnL,
		TotalValue:        f.balance + f.bookValue(),
		OpenPositionCount: len(f.book),
		OrderCount:        f.orders,
		FillCount:         f.fills,
		WinCount:          f.wins,
		LossCount:         f.losses,
		Categories: []types.CategoryPnL{
			{Category: "weather", PnL: f.totalPnL * 0.5},
			{Category: "crypto", PnL: f.totalPnL * 0.3},
			{Category: "economics", PnL: f.totalPnL * 0.2},
		},
	}

	positions := make([]types.OpenPosition, len(f.book))
	copy(positions, f.book)
	return snap, positions, nil
}

func (f *SimulatedFeed) bookValue() float64 {
	total := 0.0
	for _, pos := range f.book {
		if pos.EntryPrice > 0 {
			total += pos.EntryPrice * pos.Quantity
		} else {
			total += pos.Stake
		}
	}
	return total
}
