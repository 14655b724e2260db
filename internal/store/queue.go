package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Queue defines the interface for report generation queue operations.
// Implementations must use SELECT ... FOR UPDATE SKIP LOCKED semantics so
// that no two workers ever hold the same report concurrently.
type Queue interface {
	// Enqueue adds a report to the generation queue.
	Enqueue(ctx context.Context, tx DBTransaction, reportID uuid.UUID, payload json.RawMessage, visibleAfter time.Time) (int64, error)

	// DequeueBatch claims up to 'limit' available reports atomically.
	// Returns nil slice if queue is empty.
	DequeueBatch(ctx context.Context, limit int) ([]QueueItem, error)

	// Complete removes the queue row after a successful generation run.
	Complete(ctx context.Context, tx DBTransaction, reportID uuid.UUID) error

	// Fail handles a job-level failure. While the attempt budget lasts it
	// reschedules the row with exponential backoff; once exhausted it drops
	// the row and marks the report failed with errMsg.
	Fail(ctx context.Context, tx DBTransaction, reportID uuid.UUID, errMsg string) error

	// SetVisibleAfter extends the visibility timeout (heartbeat).
	SetVisibleAfter(ctx context.Context, tx DBTransaction, reportID uuid.UUID, visibleAfter time.Time) error

	// Count tracks count of items in queue.
	Count(ctx context.Context) (int64, error)
}

// QueueItem represents a dequeued report from the queue.
type QueueItem struct {
	ReportID uuid.UUID
	Attempt  int
	Payload  json.RawMessage
}
