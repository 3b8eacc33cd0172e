// Package ingest polls each feed on its own schedule, appends the collected
// snapshots to the store, and leaves an audit row for every attempt. Sources
// run and fail independently: one feed's outage never blocks another's poll
// or the reconciliation that follows it.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cheadlee10/northstar-synergy/internal/snapshot"
	"github.com/cheadlee10/northstar-synergy/internal/types"
	"github.com/cheadlee10/northstar-synergy/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Collector fetches one feed's current account snapshot and open positions
type Collector interface {
	Source() string
	Collect(ctx context.Context) (*types.AccountSnapshot, []types.OpenPosition, error)
}

// schedule pairs a collector with its poll interval
type schedule struct {
	collector Collector
	interval  time.Duration
}

// Service runs the ingestion jobs and answers position listings
type Service struct {
	db          *Database
	snapshots   *snapshot.Service
	reconcile   func(*types.AccountSnapshot) error
	schedules   []schedule
	feedTimeout time.Duration
}

// NewService creates an ingestion service. reconcileFn, if non-nil, is invoked
// for every newly stored secondary-feed snapshot.
func NewService(gormDB *gorm.DB, snapshots *snapshot.Service, reconcileFn func(*types.AccountSnapshot) error, feedTimeout time.Duration) *Service {
	return &Service{
		db:          NewDatabase(gormDB),
		snapshots:   snapshots,
		reconcile:   reconcileFn,
		feedTimeout: feedTimeout,
	}
}

// Register adds a feed collector with its own poll interval
func (s *Service) Register(c Collector, interval time.Duration) {
	s.schedules = append(s.schedules, schedule{collector: c, interval: interval})
}

// Start launches one polling loop per registered feed and blocks until the
// context is cancelled. Each loop ticks independently.
func (s *Service) Start(ctx context.Context) {
	logger := log.With().Str("component", "ingest_poller").Logger()
	logger.Info().Int("feeds", len(s.schedules)).Msg("starting ingestion poller")

	for _, sched := range s.schedules {
		go s.pollLoop(ctx, sched)
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down ingestion poller")
}

func (s *Service) pollLoop(ctx context.Context, sched schedule) {
	logger := log.With().
		Str("component", "ingest_poller").
		Str("source", sched.collector.Source()).
		Logger()

	ticker := time.NewTicker(sched.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run := s.RunOnce(ctx, sched.collector)
			logger.Debug().
				Str("run_id", run.RunID).
				Str("status", run.Status).
				Msg("ingestion tick finished")
		}
	}
}

// RunOnce executes a single ingestion attempt for one feed inside its own
// failure boundary. Every attempt leaves an audit row; collect errors and
// panics are recorded there and never propagate to other sources.
func (s *Service) RunOnce(ctx context.Context, c Collector) *types.IngestionRun {
	logger := log.With().
		Str("service", "ingest").
		Str("source", c.Source()).
		Logger()

	run := &types.IngestionRun{
		RunID:     "RUN_" + uuid.New().String(),
		Source:    c.Source(),
		Status:    types.RunStatusStarted,
		StartedAt: time.Now(),
	}
	if err := s.db.CreateRun(run); err != nil {
		logger.Error().Err(err).Msg("failed to create ingestion run record")
		run.Status = types.RunStatusError
		run.Error = err.Error()
		return run
	}

	defer func() {
		if r := recover(); r != nil {
			run.Status = types.RunStatusError
			run.Error = fmt.Sprintf("panic during ingestion: %v", r)
			if err := s.db.CompleteRun(run); err != nil {
				logger.Error().Err(err).Msg("failed to record panicked ingestion run")
			}
			logger.Error().Str("run_id", run.RunID).Interface("panic", r).Msg("ingestion attempt panicked")
		}
	}()

	collectCtx, cancel := context.WithTimeout(ctx, s.feedTimeout)
	defer cancel()

	snap, _, err := c.Collect(collectCtx)
	if err != nil {
		run.Status = types.RunStatusError
		run.Error = err.Error()
		if saveErr := s.db.CompleteRun(run); saveErr != nil {
			logger.Error().Err(saveErr).Msg("failed to record failed ingestion run")
		}
		logger.Warn().Err(err).Str("run_id", run.RunID).Msg("feed collection failed")
		return run
	}

	if err := s.snapshots.Record(snap); err != nil {
		if errors.Is(err, snapshot.ErrDuplicateSnapshot) {
			// Observation already stored by an earlier run; nothing new to do
			run.Status = types.RunStatusCompleted
			if saveErr := s.db.CompleteRun(run); saveErr != nil {
				logger.Error().Err(saveErr).Msg("failed to record ingestion run")
			}
			logger.Debug().Str("run_id", run.RunID).Msg("snapshot already recorded")
			return run
		}
		run.Status = types.RunStatusError
		run.Error = err.Error()
		if saveErr := s.db.CompleteRun(run); saveErr != nil {
			logger.Error().Err(saveErr).Msg("failed to record failed ingestion run")
		}
		logger.Error().Err(err).Str("run_id", run.RunID).Msg("failed to store snapshot")
		return run
	}
	run.RecordsProcessed = 1

	if c.Source() != types.SourceAccount && s.reconcile != nil {
		if err := s.reconcile(snap); err != nil {
			// Reconciliation failure is audit-worthy but the snapshot is stored
			logger.Warn().Err(err).Str("run_id", run.RunID).Msg("reconciliation after ingestion failed")
		}
	}

	run.Status = types.RunStatusCompleted
	if err := s.db.CompleteRun(run); err != nil {
		logger.Error().Err(err).Msg("failed to record completed ingestion run")
	}

	logger.Info().
		Str("run_id", run.RunID).
		Int("records_processed", run.RecordsProcessed).
		Msg("ingestion attempt completed")
	return run
}

// RunSource triggers one attempt for a named source. Unknown sources error.
func (s *Service) RunSource(ctx context.Context, source string) (*types.IngestionRun, error) {
	for _, sched := range s.schedules {
		if sched.collector.Source() == source {
			return s.RunOnce(ctx, sched.collector), nil
		}
	}
	return nil, fmt.Errorf("no collector registered for source %q", source)
}

// RecentRuns returns the latest ingestion audit rows
func (s *Service) RecentRuns(limit int) ([]types.IngestionRun, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.db.GetRecentRuns(limit)
}

// ListOpenPositions aggregates open positions across every registered feed.
// A source that fails to answer is logged and skipped so the others still
// contribute to the exposure report.
func (s *Service) ListOpenPositions(ctx context.Context) ([]types.OpenPosition, error) {
	var all []types.OpenPosition
	for _, sched := range s.schedules {
		collectCtx, cancel := context.WithTimeout(ctx, s.feedTimeout)
		_, positions, err := sched.collector.Collect(collectCtx)
		cancel()
		if err != nil {
			log.Warn().
				Err(err).
				Str("source", sched.collector.Source()).
				Msg("skipping source in position listing")
			continue
		}
		all = append(all, positions...)
	}
	return all, nil
}

// GinHandlers contains HTTP handlers for ingestion endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for ingestion endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// TriggerHandler handles POST requests to run one source's ingestion now.
// Requires internal authentication. URL parameter: source
func (h *GinHandlers) TriggerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		run, err := h.service.RunSource(c.Request.Context(), c.Param("source"))
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		response.Success(c, run)
	}
}

// RunsHandler handles GET requests for the ingestion audit trail.
// Query parameter: limit
func (h *GinHandlers) RunsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
		runs, err := h.service.RecentRuns(limit)
		response.Handle(c, runs, err)
	}
}
