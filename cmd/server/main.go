package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/cheadlee10/northstar-synergy/internal/auth"
	"github.com/cheadlee10/northstar-synergy/internal/config"
	"github.com/cheadlee10/northstar-synergy/internal/database"
	"github.com/cheadlee10/northstar-synergy/internal/drawdown"
	"github.com/cheadlee10/northstar-synergy/internal/exposure"
	"github.com/cheadlee10/northstar-synergy/internal/ingest"
	"github.com/cheadlee10/northstar-synergy/internal/period"
	"github.com/cheadlee10/northstar-synergy/internal/reconcile"
	"github.com/cheadlee10/northstar-synergy/internal/snapshot"
	"github.com/cheadlee10/northstar-synergy/internal/types"
	"github.com/cheadlee10/northstar-synergy/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the analytics API server with graceful shutdown
// support. It wires the snapshot store, the derived analytics services, the
// feed poller, and the API routes.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	middleware.SetJWTSecret(cfg.Auth.JWTSecret)
	authService := auth.NewService(cfg.Auth.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)
	// Register test credentials
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret)

	snapshotService := snapshot.NewService(db)
	snapshotHandlers := snapshot.NewGinHandlers(snapshotService)

	periodService := period.NewService(snapshotService)
	periodHandlers := period.NewGinHandlers(periodService)

	drawdownService := drawdown.NewService(snapshotService, cfg.Drawdown)
	drawdownHandlers := drawdown.NewGinHandlers(drawdownService)

	reconcileService := reconcile.NewService(db, cfg.Reconcile)
	reconcileHandlers := reconcile.NewGinHandlers(reconcileService)

	ingestService := ingest.NewService(db, snapshotService, func(snap *types.AccountSnapshot) error {
		_, err := reconcileService.Reconcile(snap)
		return err
	}, cfg.Ingest.FeedTimeout)
	ingestService.Register(ingest.NewSimulatedAccountFeed(), cfg.Ingest.AccountInterval)
	ingestService.Register(ingest.NewSimulatedEngineFeed(), cfg.Ingest.EngineInterval)
	ingestHandlers := ingest.NewGinHandlers(ingestService)

	exposureService := exposure.NewService(ingestService, exposure.NewClassifier(exposure.DefaultRules()), cfg.Exposure)
	exposureHandlers := exposure.NewGinHandlers(exposureService)

	// Start the feed poller
	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	defer pollerCancel()

	go ingestService.Start(pollerCtx)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, authHandlers, snapshotHandlers, periodHandlers, drawdownHandlers, reconcileHandlers, exposureHandlers, ingestHandlers)

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for authentication
// - Analytics routes: Protected by JWT authentication
// - Internal routes: Protected by internal network authentication
func setupRoutes(
	router *gin.Engine,
	authHandlers *auth.GinHandlers,
	snapshotHandlers *snapshot.GinHandlers,
	periodHandlers *period.GinHandlers,
	drawdownHandlers *drawdown.GinHandlers,
	reconcileHandlers *reconcile.GinHandlers,
	exposureHandlers *exposure.GinHandlers,
	ingestHandlers *ingest.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		auth := v1.Group("/auth")
		{
			auth.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Analytics routes
		analytics := v1.Group("")
		analytics.Use(middleware.JWTAuth())
		{
			analytics.GET("/summary", snapshotHandlers.SummaryHandler())
			analytics.GET("/timeseries", snapshotHandlers.TimeseriesHandler())
			analytics.GET("/period/:window", periodHandlers.PeriodHandler())
			analytics.GET("/periods", periodHandlers.AllPeriodsHandler())
			analytics.GET("/drawdown", drawdownHandlers.DrawdownHandler())
			analytics.GET("/reconciliation", reconcileHandlers.RecentHandler())
			analytics.GET("/reconciliation/alerts", reconcileHandlers.AlertsHandler())
			analytics.GET("/exposure-heatmap", exposureHandlers.HeatmapHandler())
		}

		// Internal routes (should be protected by internal network)
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth())
		{
			internal.POST("/ingest/:source", ingestHandlers.TriggerHandler())
			internal.GET("/runs", ingestHandlers.RunsHandler())
		}
	}
}
