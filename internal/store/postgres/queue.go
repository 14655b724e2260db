package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"reportplane/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Job-level retry policy. Stage-level faults never reach the queue; these
// bounds apply only to errors escaping the orchestrator itself.
const (
	MaxAttempts       = 3
	RetryBackoffBase  = 60 * time.Second
	VisibilityTimeout = 5 * time.Minute
)

// Enqueue adds a report to the report_queue.
func (s *Store) Enqueue(ctx context.Context, tx store.DBTransaction, reportID uuid.UUID, payload json.RawMessage, visibleAfter time.Time) (int64, error) {
	if visibleAfter.IsZero() {
		visibleAfter = time.Now()
	}

	query := `
		INSERT INTO report_queue (report_id, payload, visible_after)
		SELECT $1, $2, $3
		FROM reports
		WHERE id = $1
		ON CONFLICT (report_id) DO NOTHING
		RETURNING id
	`

	executor := s.getExecutor(tx)

	var id int64
	err := executor.QueryRowContext(ctx, query, reportID, payload, visibleAfter).Scan(&id)
	if err != nil {
		// ON CONFLICT DO NOTHING returns no row when the report is already
		// queued; idempotent re-submission is not an error.
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to enqueue report %s: %w", reportID, err)
	}

	return id, nil
}

// DequeueBatch claims up to 'limit' available reports atomically using
// SELECT ... FOR UPDATE SKIP LOCKED. Returns nil slice if none are available.
func (s *Store) DequeueBatch(ctx context.Context, limit int) ([]store.QueueItem, error) {
	if limit <= 0 {
		limit = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	selectQuery := `
		SELECT id, report_id, attempt, payload
		FROM report_queue
		WHERE visible_after <= NOW()
		ORDER BY created_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT $1
	`

	rows, err := tx.QueryContext(ctx, selectQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("batch dequeue query failed: %w", err)
	}
	defer rows.Close()

	var items []store.QueueItem
	var queueIDs []int64

	for rows.Next() {
		var queueID int64
		var item store.QueueItem
		if err := rows.Scan(&queueID, &item.ReportID, &item.Attempt, &item.Payload); err != nil {
			return nil, fmt.Errorf("batch dequeue scan failed: %w", err)
		}
		// Attempt is 1-based from the claimer's perspective.
		item.Attempt++
		items = append(items, item)
		queueIDs = append(queueIDs, queueID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("batch dequeue rows error: %w", err)
	}

	if len(items) == 0 {
		return nil, nil
	}

	// Claim: bump attempt and push visibility out so no other worker sees
	// these rows while we hold them.
	_, err = tx.ExecContext(ctx, `
		UPDATE report_queue
		SET attempt = attempt + 1,
		    visible_after = NOW() + ($1 * INTERVAL '1 second')
		WHERE id = ANY($2)
	`, VisibilityTimeout.Seconds(), pq.Array(queueIDs))
	if err != nil {
		return nil, fmt.Errorf("batch visibility update failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return items, nil
}

// Complete removes the queue row after a successful generation run.
func (s *Store) Complete(ctx context.Context, tx store.DBTransaction, reportID uuid.UUID) error {
	executor := s.getExecutor(tx)
	_, err := executor.ExecContext(ctx, "DELETE FROM report_queue WHERE report_id = $1", reportID)
	return err
}

// Fail handles a job-level failure with retries. While the attempt budget
// lasts the row is rescheduled with exponential backoff (60s, 120s, 240s...);
// once exhausted the row is dropped and the report marked failed.
func (s *Store) Fail(ctx context.Context, tx store.DBTransaction, reportID uuid.UUID, errMsg string) error {
	executor := s.getExecutor(tx)

	var attempt int
	err := executor.QueryRowContext(ctx, "SELECT attempt FROM report_queue WHERE report_id = $1", reportID).Scan(&attempt)

	exhausted := false
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Row already gone, treat as exhausted.
			exhausted = true
		} else {
			// Return actual DB error to avoid accidentally retrying.
			return err
		}
	} else if attempt >= MaxAttempts {
		exhausted = true
	}

	if !exhausted {
		// Delay before attempt k+1 is base * 2^(k-1) for the k-th failure.
		// A row failed before its first dequeue still has attempt 0 and
		// gets the base delay.
		if attempt < 1 {
			attempt = 1
		}
		backoff := RetryBackoffBase << (attempt - 1)
		_, err = executor.ExecContext(ctx, `
			UPDATE report_queue
			SET visible_after = NOW() + ($1 * INTERVAL '1 second')
			WHERE report_id = $2
		`, backoff.Seconds(), reportID)
		return err
	}

	_, err = executor.ExecContext(ctx, "DELETE FROM report_queue WHERE report_id = $1", reportID)
	if err != nil {
		return fmt.Errorf("failed to delete exhausted report from queue: %w", err)
	}

	appended, err := json.Marshal([]string{errMsg})
	if err != nil {
		return err
	}

	// Terminal records stay as they are; a completed report that somehow
	// still had a queue row must not be flipped back to failed.
	_, err = executor.ExecContext(ctx, `
		UPDATE reports
		SET status = 'failed',
		    errors = errors || $2::jsonb,
		    completed_at = COALESCE(completed_at, NOW()),
		    updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('completed', 'cancelled')
	`, reportID, appended)
	return err
}

// SetVisibleAfter extends the heartbeat.
func (s *Store) SetVisibleAfter(ctx context.Context, tx store.DBTransaction, reportID uuid.UUID, visibleAfter time.Time) error {
	executor := s.getExecutor(tx)
	_, err := executor.ExecContext(ctx, `
		UPDATE report_queue
		SET visible_after = $1
		WHERE report_id = $2
	`, visibleAfter, reportID)
	return err
}

// Count tracks count of items in queue.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM report_queue").Scan(&count)
	return count, err
}
