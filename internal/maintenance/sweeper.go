// Package maintenance runs the periodic housekeeping sweeps: the
// stuck-report reaper, the stale-pending restarter, and the retention
// purge. Every sweep is idempotent and safe to run concurrently with the
// pipeline and with other sweeps.
package maintenance

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"reportplane/internal/store"

	"github.com/google/uuid"
)

// Config holds the sweep thresholds and cadence.
type Config struct {
	Interval         time.Duration // how often sweeps run (default: 15m)
	StuckThreshold   time.Duration // processing longer than this is stuck (default: 30m)
	PendingThreshold time.Duration // pending longer than this is restarted (default: 1h)
	Retention        time.Duration // reports older than this are purged (default: 90 days)
}

// Store is the persistence surface the sweeper needs.
type Store interface {
	store.MaintenanceStore
	UpdateStatusIfProcessing(ctx context.Context, id uuid.UUID, status store.ReportStatus, errMsg string) (bool, error)
	Enqueue(ctx context.Context, tx store.DBTransaction, reportID uuid.UUID, payload json.RawMessage, visibleAfter time.Time) (int64, error)
}

// Sweeper owns the three periodic jobs.
type Sweeper struct {
	store  Store
	config Config
	logger *slog.Logger
}

// New creates a sweeper.
func New(s Store, config Config, logger *slog.Logger) *Sweeper {
	if config.Interval <= 0 {
		config.Interval = 15 * time.Minute
	}
	if config.StuckThreshold <= 0 {
		config.StuckThreshold = 30 * time.Minute
	}
	if config.PendingThreshold <= 0 {
		config.PendingThreshold = 1 * time.Hour
	}
	if config.Retention <= 0 {
		config.Retention = 90 * 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: s, config: config, logger: logger}
}

// Run executes all sweeps on the configured cadence until the context is
// cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs one round of all three sweeps.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	if n, err := s.ReapStuck(ctx); err != nil {
		s.logger.Error("stuck-report reap failed", "error", err)
	} else if n > 0 {
		s.logger.Warn("reaped stuck reports", "count", n)
	}

	if n, err := s.RestartStalePending(ctx); err != nil {
		s.logger.Error("stale-pending restart failed", "error", err)
	} else if n > 0 {
		s.logger.Info("restarted stale pending reports", "count", n)
	}

	if deleted, shares, err := s.Purge(ctx); err != nil {
		s.logger.Error("retention purge failed", "error", err)
	} else if deleted > 0 || shares > 0 {
		s.logger.Info("retention purge done", "reports_deleted", deleted, "shares_deactivated", shares)
	}
}

// ReapStuck force-fails reports stuck in processing past the threshold.
// The transition is a compare-and-set on status, so a report that completes
// between the read and the write is left alone.
func (s *Sweeper) ReapStuck(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.config.StuckThreshold)
	ids, err := s.store.ListStuckProcessing(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, id := range ids {
		timeoutMsg := "report processing timed out after " + s.config.StuckThreshold.String()
		flipped, err := s.store.UpdateStatusIfProcessing(ctx, id, store.ReportStatusFailed, timeoutMsg)
		if err != nil {
			s.logger.Error("failed to reap report", "report_id", id.String(), "error", err)
			continue
		}
		if flipped {
			s.logger.Warn("report stuck in processing, marked failed", "report_id", id.String())
			reaped++
		}
	}
	return reaped, nil
}

// RestartStalePending re-submits reports that sat pending past the
// threshold. Enqueue is idempotent on the queue side, so re-submitting an
// already-queued report is a no-op.
func (s *Sweeper) RestartStalePending(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.config.PendingThreshold)
	ids, err := s.store.ListStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	restarted := 0
	for _, id := range ids {
		payload, err := json.Marshal(map[string]string{"report_id": id.String()})
		if err != nil {
			continue
		}
		if _, err := s.store.Enqueue(ctx, nil, id, payload, time.Now()); err != nil {
			s.logger.Error("failed to re-enqueue pending report", "report_id", id.String(), "error", err)
			continue
		}
		restarted++
	}
	return restarted, nil
}

// Purge deletes reports past retention and deactivates expired share links.
func (s *Sweeper) Purge(ctx context.Context) (int64, int64, error) {
	cutoff := time.Now().Add(-s.config.Retention)
	deleted, err := s.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, 0, err
	}
	shares, err := s.store.DeactivateExpiredShares(ctx, time.Now())
	if err != nil {
		return deleted, 0, err
	}
	return deleted, shares, nil
}
