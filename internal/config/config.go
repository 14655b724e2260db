// Package config handles environment variable loading for ports, database
// strings, worker tuning, and sweep thresholds.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string
	DatabaseURL string

	// HTTP server port for the controller
	HTTPPort int

	// OTLP collector endpoint for tracing
	OTELEndpoint string

	// URL of the controller API (e.g., "http://localhost:8080"),
	// used by workers to forward progress events
	ControllerURL string

	// Per-IP request rate limiting, 0 = unlimited
	RateLimitPerSecond int
	RateLimitBurst     int

	// Optional webhook receiving completion notifications
	NotifyWebhookURL string

	// Worker-specific configuration
	WorkerConcurrency  int
	WorkerPollInterval time.Duration
	WorkerMaxBackoff   time.Duration

	// Per-stage collaborator timeout
	StageTimeout time.Duration

	// Maintenance sweep configuration
	SweepInterval    time.Duration
	StuckThreshold   time.Duration
	PendingThreshold time.Duration
	Retention        time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:           8080,
		OTELEndpoint:       os.Getenv("OTEL_ENDPOINT"),
		RateLimitBurst:     20,
		NotifyWebhookURL:   os.Getenv("NOTIFY_WEBHOOK_URL"),
		WorkerConcurrency:  4,
		WorkerPollInterval: 1 * time.Second,
		WorkerMaxBackoff:   30 * time.Second,
		StageTimeout:       30 * time.Second,
		SweepInterval:      15 * time.Minute,
		StuckThreshold:     30 * time.Minute,
		PendingThreshold:   1 * time.Hour,
		Retention:          90 * 24 * time.Hour,
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg.ControllerURL = os.Getenv("CONTROLLER_URL")
	if cfg.ControllerURL == "" {
		cfg.ControllerURL = "http://localhost:8080"
	}

	if err := intVar(&cfg.HTTPPort, "PORT"); err != nil {
		return nil, err
	}
	if err := intVar(&cfg.WorkerConcurrency, "WORKER_CONCURRENCY"); err != nil {
		return nil, err
	}
	if err := intVar(&cfg.RateLimitPerSecond, "RATE_LIMIT_RPS"); err != nil {
		return nil, err
	}
	if err := intVar(&cfg.RateLimitBurst, "RATE_LIMIT_BURST"); err != nil {
		return nil, err
	}

	durations := map[string]*time.Duration{
		"WORKER_POLL_INTERVAL":    &cfg.WorkerPollInterval,
		"WORKER_MAX_BACKOFF":      &cfg.WorkerMaxBackoff,
		"STAGE_TIMEOUT":           &cfg.StageTimeout,
		"SWEEP_INTERVAL":          &cfg.SweepInterval,
		"SWEEP_STUCK_THRESHOLD":   &cfg.StuckThreshold,
		"SWEEP_PENDING_THRESHOLD": &cfg.PendingThreshold,
		"SWEEP_RETENTION":         &cfg.Retention,
	}
	for name, target := range durations {
		if err := durationVar(target, name); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func intVar(target *int, name string) error {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*target = v
	return nil
}

func durationVar(target *time.Duration, name string) error {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*target = v
	return nil
}
