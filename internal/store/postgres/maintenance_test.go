package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestListStuckProcessing(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	cutoff := time.Now().Add(-30 * time.Minute)
	id1, id2 := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT id FROM reports`).
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id1).AddRow(id2))

	ids, err := s.ListStuckProcessing(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ListStuckProcessing failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != id1 || ids[1] != id2 {
		t.Errorf("unexpected ids: %v", ids)
	}
}

func TestPurgeOlderThan_DeletesDependentsFirst(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	cutoff := time.Now().AddDate(0, 0, -90)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM report_shares`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM report_queue`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM reports`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	deleted, err := s.PurgeOlderThan(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("PurgeOlderThan failed: %v", err)
	}
	if deleted != 5 {
		t.Errorf("deleted = %d, want 5", deleted)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDeactivateExpiredShares(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	now := time.Now()
	mock.ExpectExec(`UPDATE report_shares`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := s.DeactivateExpiredShares(context.Background(), now)
	if err != nil {
		t.Fatalf("DeactivateExpiredShares failed: %v", err)
	}
	if n != 2 {
		t.Errorf("deactivated = %d, want 2", n)
	}
}
