package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a report does not exist.
var ErrNotFound = errors.New("report not found")

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx.
// This allows us to pass either a connection pool or an active transaction
// to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// ReportStore handles the persistence of report records.
type ReportStore interface {
	// CreateReport inserts a new pending report.
	CreateReport(ctx context.Context, tx DBTransaction, report *Report) error

	// GetReportByID returns a report by its ID, or ErrNotFound.
	GetReportByID(ctx context.Context, id uuid.UUID) (*Report, error)

	// SaveReport overwrites all mutable fields (status, stages, outputs,
	// errors, timestamps) atomically.
	SaveReport(ctx context.Context, report *Report) error

	// UpdateStatusIfProcessing flips the report to the given status only if
	// it is still processing at write time (compare-and-set). Returns true
	// if the transition was applied.
	UpdateStatusIfProcessing(ctx context.Context, id uuid.UUID, status ReportStatus, errMsg string) (bool, error)

	// CancelReport marks a pending or processing report cancelled.
	CancelReport(ctx context.Context, id uuid.UUID) (bool, error)
}

// ShareStore handles shareable report links.
type ShareStore interface {
	// CreateShare inserts a share link for a report.
	CreateShare(ctx context.Context, share *ReportShare) error

	// GetReportByShareToken resolves an active, unexpired share link to its
	// report, or ErrNotFound.
	GetReportByShareToken(ctx context.Context, token uuid.UUID) (*Report, error)
}

// MaintenanceStore exposes the bulk operations used by the periodic sweeps.
type MaintenanceStore interface {
	// ListStuckProcessing returns IDs of reports stuck in processing since
	// before the cutoff.
	ListStuckProcessing(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)

	// ListStalePending returns IDs of reports pending since before the cutoff.
	ListStalePending(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)

	// PurgeOlderThan deletes reports (and their queue rows and shares)
	// created before the cutoff. Returns the number of reports deleted.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// DeactivateExpiredShares flips is_active off for expired share links.
	// Returns the number of shares deactivated.
	DeactivateExpiredShares(ctx context.Context, now time.Time) (int64, error)
}
