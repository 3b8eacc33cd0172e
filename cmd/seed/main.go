// Command seed populates a database with a deterministic multi-week account
// history across both feeds, then runs a reconciliation pass. It exists so the
// analytics endpoints have something to show on a fresh checkout.
package main

import (
	"errors"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/cheadlee10/northstar-synergy/internal/config"
	"github.com/cheadlee10/northstar-synergy/internal/database"
	"github.com/cheadlee10/northstar-synergy/internal/reconcile"
	"github.com/cheadlee10/northstar-synergy/internal/snapshot"
	"github.com/cheadlee10/northstar-synergy/internal/types"
)

const (
	seedDays         = 45
	startingBalance  = 1000.0
	snapshotsPerDay  = 4 // account feed observations per day
	engineOffsetMins = 3 // engine feed lags the account feed slightly
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zlog.Logger = zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	snapshots := snapshot.NewService(db)
	reconciler := reconcile.NewService(db, cfg.Reconcile)

	inserted := seedHistory(snapshots)
	zlog.Info().Int("snapshots", inserted).Msg("history seeded")

	matched, err := reconciler.ReconcileSource(types.SourceEngine)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Reconciliation pass failed")
	}
	zlog.Info().Int("records", matched).Msg("reconciliation pass complete")
}

// seedHistory writes snapshotsPerDay account observations and one engine
// observation per day. The balance follows a fixed sine-plus-trend curve so
// every run produces the same drawdowns and recoveries.
func seedHistory(snapshots *snapshot.Service) int {
	start := time.Now().AddDate(0, 0, -seedDays).Truncate(24 * time.Hour)
	inserted := 0

	totalPnL := 0.0
	fills, wins, losses, orders := 0, 0, 0, 0

	for day := 0; day < seedDays; day++ {
		date := start.AddDate(0, 0, day)

		// One deterministic daily move: a gentle upward trend with a
		// sine swing that produces a few multi-day drawdowns
		dailyMove := 2.5 + 12*math.Sin(float64(day)/4.0)
		totalPnL += dailyMove
		orders += 3
		fills += 2
		if dailyMove >= 0 {
			wins += 2
		} else {
			losses += 2
		}

		balance := startingBalance + totalPnL

		for obs := 0; obs < snapshotsPerDay; obs++ {
			observedAt := date.Add(time.Duration(9+obs*3) * time.Hour)
			// Intraday noise; the final observation of the day carries
			// the canonical close
			intraday := balance
			if obs < snapshotsPerDay-1 {
				intraday += math.Sin(float64(obs)+float64(day)) * 4
			}

			snap := seedSnapshot(types.SourceAccount, observedAt, intraday, dailyMove, totalPnL)
			snap.FillCount = fills
			snap.WinCount = wins
			snap.LossCount = losses
			snap.OrderCount = orders
			inserted += mustRecord(snapshots, snap)
		}

		// Engine feed: one observation shortly after the midday account
		// poll, with a small balance skew to exercise WARN records
		engineAt := date.Add(15*time.Hour + engineOffsetMins*time.Minute)
		skew := 0.0
		if day%7 == 0 {
			skew = 8.0 // over the warn threshold once a week
		}
		engineSnap := seedSnapshot(types.SourceEngine, engineAt, balance+skew, dailyMove, totalPnL)
		engineSnap.FillCount = fills
		engineSnap.WinCount = wins
		engineSnap.LossCount = losses
		engineSnap.OrderCount = orders
		inserted += mustRecord(snapshots, engineSnap)
	}

	return inserted
}

// mustRecord stores one observation, skipping ones a previous seed run already
// wrote. Any other failure aborts the seed.
func mustRecord(snapshots *snapshot.Service, snap *types.AccountSnapshot) int {
	err := snapshots.Record(snap)
	if errors.Is(err, snapshot.ErrDuplicateSnapshot) {
		return 0
	}
	if err != nil {
		zlog.Fatal().Err(err).Str("source", snap.Source).Msg("Failed to record snapshot")
	}
	return 1
}

func seedSnapshot(source string, observedAt time.Time, balance, dailyPnL, totalPnL float64) *types.AccountSnapshot {
	return &types.AccountSnapshot{
		Source:            source,
		ObservedAt:        observedAt,
		ObservedDate:      observedAt.Format("2006-01-02"),
		Balance:           balance,
		DailyPnL:          dailyPnL,
		TotalPnL:          totalPnL,
		TotalValue:        balance + 120, // open book carried at a fixed value
		OpenPositionCount: 3,
		Categories: []types.CategoryPnL{
			{Category: "weather", PnL: totalPnL * 0.5},
			{Category: "crypto", PnL: totalPnL * 0.3},
			{Category: "economics", PnL: totalPnL * 0.2},
		},
	}
}
