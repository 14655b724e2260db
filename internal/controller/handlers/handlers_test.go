package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"reportplane/internal/store"

	"github.com/google/uuid"
)

// Mock transaction
type mockTx struct {
	commitErr error
}

func (m *mockTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (m *mockTx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (m *mockTx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (m *mockTx) Commit() error { return m.commitErr }

func (m *mockTx) Rollback() error { return nil }

// Mock Store
type mockStore struct {
	// Report hooks
	beginTxErr       error
	commitErr        error
	createReportErr  error
	getReportResp    *store.Report
	getReportErr     error
	saveReportErr    error
	cancelReportResp bool
	cancelReportErr  error
	updateStatusResp bool
	updateStatusErr  error
	enqueueErr       error
	pingErr          error

	// Share hooks
	createShareErr   error
	sharedReportResp *store.Report
	sharedReportErr  error

	// Queue hooks
	dequeueBatchResp []store.QueueItem
	dequeueBatchErr  error
	completeErr      error
	failErr          error
	setVisibleErr    error
	countResp        int64

	// Spies (to verify arguments passed by handlers)
	capturedReport       *store.Report
	capturedPayload      json.RawMessage
	capturedShare        *store.ReportShare
	capturedVisibleAfter time.Time
}

func (m *mockStore) BeginTx(ctx context.Context) (store.Tx, error) {
	if m.beginTxErr != nil {
		return nil, m.beginTxErr
	}
	return &mockTx{commitErr: m.commitErr}, nil
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *mockStore) CreateReport(ctx context.Context, tx store.DBTransaction, report *store.Report) error {
	m.capturedReport = report
	return m.createReportErr
}

func (m *mockStore) GetReportByID(ctx context.Context, id uuid.UUID) (*store.Report, error) {
	return m.getReportResp, m.getReportErr
}

func (m *mockStore) SaveReport(ctx context.Context, report *store.Report) error {
	return m.saveReportErr
}

func (m *mockStore) UpdateStatusIfProcessing(ctx context.Context, id uuid.UUID, status store.ReportStatus, errMsg string) (bool, error) {
	return m.updateStatusResp, m.updateStatusErr
}

func (m *mockStore) CancelReport(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.cancelReportResp, m.cancelReportErr
}

func (m *mockStore) CreateShare(ctx context.Context, share *store.ReportShare) error {
	if m.createShareErr != nil {
		return m.createShareErr
	}
	share.Token = uuid.New()
	share.IsActive = true
	m.capturedShare = share
	return nil
}

func (m *mockStore) GetReportByShareToken(ctx context.Context, token uuid.UUID) (*store.Report, error) {
	return m.sharedReportResp, m.sharedReportErr
}

func (m *mockStore) Enqueue(ctx context.Context, tx store.DBTransaction, reportID uuid.UUID, payload json.RawMessage, visibleAfter time.Time) (int64, error) {
	m.capturedPayload = payload
	m.capturedVisibleAfter = visibleAfter
	return 1, m.enqueueErr
}

func (m *mockStore) DequeueBatch(ctx context.Context, limit int) ([]store.QueueItem, error) {
	return m.dequeueBatchResp, m.dequeueBatchErr
}

func (m *mockStore) Complete(ctx context.Context, tx store.DBTransaction, reportID uuid.UUID) error {
	return m.completeErr
}

func (m *mockStore) Fail(ctx context.Context, tx store.DBTransaction, reportID uuid.UUID, errMsg string) error {
	return m.failErr
}

func (m *mockStore) SetVisibleAfter(ctx context.Context, tx store.DBTransaction, reportID uuid.UUID, visibleAfter time.Time) error {
	m.capturedVisibleAfter = visibleAfter
	return m.setVisibleErr
}

func (m *mockStore) Count(ctx context.Context) (int64, error) {
	return m.countResp, nil
}
