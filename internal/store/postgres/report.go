package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"reportplane/internal/store"

	"github.com/google/uuid"
)

// CreateReport inserts a new pending report.
func (s *Store) CreateReport(ctx context.Context, tx store.DBTransaction, report *store.Report) error {
	executor := s.getExecutor(tx)

	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.Status == "" {
		report.Status = store.ReportStatusPending
	}

	stages, outputs, errs, err := marshalReportJSON(report)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO reports (id, url, domain, company_name, requester_email, status, stages, outputs, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	err = executor.QueryRowContext(ctx, query,
		report.ID, report.URL, report.Domain, report.CompanyName,
		report.RequesterEmail, report.Status, stages, outputs, errs,
	).Scan(&report.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", report.ID, err)
	}
	return nil
}

// GetReportByID returns a report by its ID, or store.ErrNotFound.
func (s *Store) GetReportByID(ctx context.Context, id uuid.UUID) (*store.Report, error) {
	query := `
		SELECT id, url, domain, company_name, requester_email, status,
		       stages, outputs, errors,
		       created_at, processing_started_at, completed_at, processing_seconds
		FROM reports
		WHERE id = $1
	`

	var r store.Report
	var stages, outputs, errs []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.URL, &r.Domain, &r.CompanyName, &r.RequesterEmail, &r.Status,
		&stages, &outputs, &errs,
		&r.CreatedAt, &r.ProcessingStartedAt, &r.CompletedAt, &r.ProcessingSeconds,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report %s: %w", id, err)
	}

	if err := unmarshalReportJSON(&r, stages, outputs, errs); err != nil {
		return nil, err
	}
	return &r, nil
}

// SaveReport overwrites all mutable fields of the report in one statement.
func (s *Store) SaveReport(ctx context.Context, report *store.Report) error {
	report.RecomputeProcessingTime()

	stages, outputs, errs, err := marshalReportJSON(report)
	if err != nil {
		return err
	}

	query := `
		UPDATE reports
		SET status = $2,
		    company_name = $3,
		    stages = $4,
		    outputs = $5,
		    errors = $6,
		    processing_started_at = $7,
		    completed_at = $8,
		    processing_seconds = $9,
		    updated_at = NOW()
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		report.ID, report.Status, report.CompanyName,
		stages, outputs, errs,
		report.ProcessingStartedAt, report.CompletedAt, report.ProcessingSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to save report %s: %w", report.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpdateStatusIfProcessing flips status only if the stored row is still
// processing (compare-and-set). The reaper uses this so it never clobbers a
// report that completed concurrently.
func (s *Store) UpdateStatusIfProcessing(ctx context.Context, id uuid.UUID, status store.ReportStatus, errMsg string) (bool, error) {
	query := `
		UPDATE reports
		SET status = $2,
		    errors = errors || $3::jsonb,
		    completed_at = COALESCE(completed_at, NOW()),
		    updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`
	appended, err := json.Marshal([]string{errMsg})
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, query, id, status, appended)
	if err != nil {
		return false, fmt.Errorf("failed to transition report %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CancelReport marks a pending or processing report cancelled.
func (s *Store) CancelReport(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE reports
		SET status = 'cancelled', completed_at = COALESCE(completed_at, NOW()), updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'processing')
	`
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to cancel report %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateShare inserts a share link for a report.
func (s *Store) CreateShare(ctx context.Context, share *store.ReportShare) error {
	if share.Token == uuid.Nil {
		share.Token = uuid.New()
	}
	query := `
		INSERT INTO report_shares (report_id, token, expires_at, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, created_at
	`
	err := s.db.QueryRowContext(ctx, query, share.ReportID, share.Token, share.ExpiresAt).
		Scan(&share.ID, &share.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create share for report %s: %w", share.ReportID, err)
	}
	share.IsActive = true
	return nil
}

// GetReportByShareToken resolves an active, unexpired share link to its report.
func (s *Store) GetReportByShareToken(ctx context.Context, token uuid.UUID) (*store.Report, error) {
	query := `
		SELECT r.id, r.url, r.domain, r.company_name, r.requester_email, r.status,
		       r.stages, r.outputs, r.errors,
		       r.created_at, r.processing_started_at, r.completed_at, r.processing_seconds
		FROM report_shares s
		JOIN reports r ON r.id = s.report_id
		WHERE s.token = $1
		  AND s.is_active
		  AND (s.expires_at IS NULL OR s.expires_at > NOW())
	`

	var r store.Report
	var stages, outputs, errs []byte
	err := s.db.QueryRowContext(ctx, query, token).Scan(
		&r.ID, &r.URL, &r.Domain, &r.CompanyName, &r.RequesterEmail, &r.Status,
		&stages, &outputs, &errs,
		&r.CreatedAt, &r.ProcessingStartedAt, &r.CompletedAt, &r.ProcessingSeconds,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve share token: %w", err)
	}

	if err := unmarshalReportJSON(&r, stages, outputs, errs); err != nil {
		return nil, err
	}
	return &r, nil
}

func marshalReportJSON(r *store.Report) (stages, outputs, errs []byte, err error) {
	if r.Stages == nil {
		r.Stages = []store.StageProgress{}
	}
	if r.Outputs == nil {
		r.Outputs = map[string]map[string]any{}
	}
	if r.Errors == nil {
		r.Errors = []string{}
	}
	if stages, err = json.Marshal(r.Stages); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal stages: %w", err)
	}
	if outputs, err = json.Marshal(r.Outputs); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal outputs: %w", err)
	}
	if errs, err = json.Marshal(r.Errors); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal errors: %w", err)
	}
	return stages, outputs, errs, nil
}

func unmarshalReportJSON(r *store.Report, stages, outputs, errs []byte) error {
	if len(stages) > 0 {
		if err := json.Unmarshal(stages, &r.Stages); err != nil {
			return fmt.Errorf("failed to unmarshal stages: %w", err)
		}
	}
	if len(outputs) > 0 {
		if err := json.Unmarshal(outputs, &r.Outputs); err != nil {
			return fmt.Errorf("failed to unmarshal outputs: %w", err)
		}
	}
	if len(errs) > 0 {
		if err := json.Unmarshal(errs, &r.Errors); err != nil {
			return fmt.Errorf("failed to unmarshal errors: %w", err)
		}
	}
	return nil
}
