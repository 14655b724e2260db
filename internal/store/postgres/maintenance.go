package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ListStuckProcessing returns reports that entered processing before the
// cutoff and never reached a terminal state.
func (s *Store) ListStuckProcessing(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	return s.listIDs(ctx, `
		SELECT id FROM reports
		WHERE status = 'processing' AND processing_started_at < $1
		ORDER BY processing_started_at ASC
	`, cutoff)
}

// ListStalePending returns reports created before the cutoff that were never
// picked up.
func (s *Store) ListStalePending(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	return s.listIDs(ctx, `
		SELECT id FROM reports
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at ASC
	`, cutoff)
}

// PurgeOlderThan deletes reports created before the cutoff. Dependent rows
// go first to respect foreign references.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM report_shares
		WHERE report_id IN (SELECT id FROM reports WHERE created_at < $1)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge shares: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM report_queue
		WHERE report_id IN (SELECT id FROM reports WHERE created_at < $1)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge queue rows: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM reports WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge reports: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return deleted, nil
}

// DeactivateExpiredShares flips is_active off for share links past expiry.
func (s *Store) DeactivateExpiredShares(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE report_shares
		SET is_active = FALSE
		WHERE is_active = TRUE AND expires_at IS NOT NULL AND expires_at < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired shares: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) listIDs(ctx context.Context, query string, args ...interface{}) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
