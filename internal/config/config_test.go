package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	// Clear any existing env vars
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
	if err.Error() != "DATABASE_URL is required" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Check defaults
	if cfg.HTTPPort != 8080 {
		t.Errorf("expected HTTPPort 8080, got %d", cfg.HTTPPort)
	}
	if cfg.ControllerURL != "http://localhost:8080" {
		t.Errorf("expected ControllerURL http://localhost:8080, got %s", cfg.ControllerURL)
	}
	if cfg.RateLimitPerSecond != 0 {
		t.Errorf("expected RateLimitPerSecond 0, got %d", cfg.RateLimitPerSecond)
	}
	if cfg.RateLimitBurst != 20 {
		t.Errorf("expected RateLimitBurst 20, got %d", cfg.RateLimitBurst)
	}
	if cfg.WorkerConcurrency != 4 {
		t.Errorf("expected WorkerConcurrency 4, got %d", cfg.WorkerConcurrency)
	}
	if cfg.WorkerPollInterval != 1*time.Second {
		t.Errorf("expected WorkerPollInterval 1s, got %v", cfg.WorkerPollInterval)
	}
	if cfg.WorkerMaxBackoff != 30*time.Second {
		t.Errorf("expected WorkerMaxBackoff 30s, got %v", cfg.WorkerMaxBackoff)
	}
	if cfg.StageTimeout != 30*time.Second {
		t.Errorf("expected StageTimeout 30s, got %v", cfg.StageTimeout)
	}
	if cfg.SweepInterval != 15*time.Minute {
		t.Errorf("expected SweepInterval 15m, got %v", cfg.SweepInterval)
	}
	if cfg.StuckThreshold != 30*time.Minute {
		t.Errorf("expected StuckThreshold 30m, got %v", cfg.StuckThreshold)
	}
	if cfg.PendingThreshold != 1*time.Hour {
		t.Errorf("expected PendingThreshold 1h, got %v", cfg.PendingThreshold)
	}
	if cfg.Retention != 90*24*time.Hour {
		t.Errorf("expected Retention 90 days, got %v", cfg.Retention)
	}
	if cfg.NotifyWebhookURL != "" {
		t.Errorf("expected empty NotifyWebhookURL, got %s", cfg.NotifyWebhookURL)
	}
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("PORT", "9090")
	t.Setenv("CONTROLLER_URL", "http://controller:9090")
	t.Setenv("RATE_LIMIT_RPS", "50")
	t.Setenv("RATE_LIMIT_BURST", "100")
	t.Setenv("NOTIFY_WEBHOOK_URL", "https://hooks.example.com/reports")
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("WORKER_POLL_INTERVAL", "250ms")
	t.Setenv("STAGE_TIMEOUT", "45s")
	t.Setenv("SWEEP_INTERVAL", "5m")
	t.Setenv("SWEEP_STUCK_THRESHOLD", "10m")
	t.Setenv("SWEEP_PENDING_THRESHOLD", "2h")
	t.Setenv("SWEEP_RETENTION", "720h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 9090 {
		t.Errorf("expected HTTPPort 9090, got %d", cfg.HTTPPort)
	}
	if cfg.ControllerURL != "http://controller:9090" {
		t.Errorf("expected ControllerURL http://controller:9090, got %s", cfg.ControllerURL)
	}
	if cfg.RateLimitPerSecond != 50 {
		t.Errorf("expected RateLimitPerSecond 50, got %d", cfg.RateLimitPerSecond)
	}
	if cfg.RateLimitBurst != 100 {
		t.Errorf("expected RateLimitBurst 100, got %d", cfg.RateLimitBurst)
	}
	if cfg.NotifyWebhookURL != "https://hooks.example.com/reports" {
		t.Errorf("unexpected NotifyWebhookURL %s", cfg.NotifyWebhookURL)
	}
	if cfg.WorkerConcurrency != 8 {
		t.Errorf("expected WorkerConcurrency 8, got %d", cfg.WorkerConcurrency)
	}
	if cfg.WorkerPollInterval != 250*time.Millisecond {
		t.Errorf("expected WorkerPollInterval 250ms, got %v", cfg.WorkerPollInterval)
	}
	if cfg.StageTimeout != 45*time.Second {
		t.Errorf("expected StageTimeout 45s, got %v", cfg.StageTimeout)
	}
	if cfg.SweepInterval != 5*time.Minute {
		t.Errorf("expected SweepInterval 5m, got %v", cfg.SweepInterval)
	}
	if cfg.StuckThreshold != 10*time.Minute {
		t.Errorf("expected StuckThreshold 10m, got %v", cfg.StuckThreshold)
	}
	if cfg.PendingThreshold != 2*time.Hour {
		t.Errorf("expected PendingThreshold 2h, got %v", cfg.PendingThreshold)
	}
	if cfg.Retention != 720*time.Hour {
		t.Errorf("expected Retention 720h, got %v", cfg.Retention)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
	}{
		{"bad port", "PORT", "not-a-number"},
		{"bad concurrency", "WORKER_CONCURRENCY", "many"},
		{"bad rate limit", "RATE_LIMIT_RPS", "1.5.2"},
		{"bad duration", "STAGE_TIMEOUT", "30 parsecs"},
		{"bad sweep interval", "SWEEP_INTERVAL", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/test")
			t.Setenv(tt.env, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", tt.env, tt.value)
			}
		})
	}
}
