// Package config loads service configuration from environment variables and
// .env files. Every threshold the analytics components use is carried here and
// injected at construction time, so tests can run with deterministic values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Ingest    IngestConfig
	Reconcile ReconcileConfig
	Drawdown  DrawdownConfig
	Exposure  ExposureConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds sqlite configuration
type DatabaseConfig struct {
	Path string
}

// AuthConfig holds JWT signing configuration
type AuthConfig struct {
	JWTSecret string
}

// IngestConfig holds the polling schedule and per-feed call timeouts.
// Each source polls and fails independently.
type IngestConfig struct {
	AccountInterval time.Duration
	EngineInterval  time.Duration
	FeedTimeout     time.Duration
}

// ReconcileConfig holds the matching tolerance and the warn/critical
// thresholds per reconciled metric
type ReconcileConfig struct {
	MaxSecondsApart       int
	WarnBalanceDelta      float64
	CriticalBalanceDelta  float64
	WarnPositionDelta     int
	CriticalPositionDelta int
	WarnRealizedDelta     float64
	CriticalRealizedDelta float64
}

// DrawdownConfig holds the zone ceilings on abs(max drawdown), in dollars
type DrawdownConfig struct {
	HealthyCeiling float64 // at or below: green
	CautionCeiling float64 // at or below: amber, above: red
}

// ExposureConfig holds warn/critical thresholds for each concentration metric
type ExposureConfig struct {
	WarnInstrumentShare     float64
	CriticalInstrumentShare float64
	WarnClusterShare        float64
	CriticalClusterShare    float64
	WarnTop3Share           float64
	CriticalTop3Share       float64
	WarnHHI                 float64
	CriticalHHI             float64
}

// LoadConfig loads configuration from the environment, with .env as fallback
func LoadConfig() (*Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "northstar.db"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "northstar-secret-key"),
		},
		Ingest: IngestConfig{
			AccountInterval: getEnvDuration("INGEST_ACCOUNT_INTERVAL", 10*time.Minute),
			EngineInterval:  getEnvDuration("INGEST_ENGINE_INTERVAL", 2*time.Hour),
			FeedTimeout:     getEnvDuration("INGEST_FEED_TIMEOUT", 15*time.Second),
		},
		Reconcile: ReconcileConfig{
			MaxSecondsApart:       getEnvInt("RECONCILE_MAX_SECONDS_APART", 600),
			WarnBalanceDelta:      getEnvFloat("RECONCILE_WARN_BALANCE_DELTA", 5.0),
			CriticalBalanceDelta:  getEnvFloat("RECONCILE_CRITICAL_BALANCE_DELTA", 25.0),
			WarnPositionDelta:     getEnvInt("RECONCILE_WARN_POSITION_DELTA", 1),
			CriticalPositionDelta: getEnvInt("RECONCILE_CRITICAL_POSITION_DELTA", 3),
			WarnRealizedDelta:     getEnvFloat("RECONCILE_WARN_REALIZED_DELTA", 10.0),
			CriticalRealizedDelta: getEnvFloat("RECONCILE_CRITICAL_REALIZED_DELTA", 50.0),
		},
		Drawdown: DrawdownConfig{
			HealthyCeiling: getEnvFloat("DRAWDOWN_HEALTHY_CEILING", 50.0),
			CautionCeiling: getEnvFloat("DRAWDOWN_CAUTION_CEILING", 200.0),
		},
		Exposure: ExposureConfig{
			WarnInstrumentShare:     getEnvFloat("EXPOSURE_WARN_INSTRUMENT_SHARE", 0.35),
			CriticalInstrumentShare: getEnvFloat("EXPOSURE_CRITICAL_INSTRUMENT_SHARE", 0.60),
			WarnClusterShare:        getEnvFloat("EXPOSURE_WARN_CLUSTER_SHARE", 0.50),
			CriticalClusterShare:    getEnvFloat("EXPOSURE_CRITICAL_CLUSTER_SHARE", 0.80),
			WarnTop3Share:           getEnvFloat("EXPOSURE_WARN_TOP3_SHARE", 0.70),
			CriticalTop3Share:       getEnvFloat("EXPOSURE_CRITICAL_TOP3_SHARE", 0.90),
			WarnHHI:                 getEnvFloat("EXPOSURE_WARN_HHI", 2500),
			CriticalHHI:             getEnvFloat("EXPOSURE_CRITICAL_HHI", 5000),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Reconcile.MaxSecondsApart <= 0 {
		return fmt.Errorf("RECONCILE_MAX_SECONDS_APART must be positive, got %d", c.Reconcile.MaxSecondsApart)
	}
	if c.Drawdown.HealthyCeiling > c.Drawdown.CautionCeiling {
		return fmt.Errorf("DRAWDOWN_HEALTHY_CEILING %.2f exceeds DRAWDOWN_CAUTION_CEILING %.2f",
			c.Drawdown.HealthyCeiling, c.Drawdown.CautionCeiling)
	}
	return nil
}

// getEnv returns the environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an int or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvFloat returns the environment variable as a float64 or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns the environment variable as a duration or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
