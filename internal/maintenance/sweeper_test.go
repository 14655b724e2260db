package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"reportplane/internal/store"

	"github.com/google/uuid"
)

// mockMaintStore scripts the sweeper's persistence surface.
type mockMaintStore struct {
	stuckIDs   []uuid.UUID
	pendingIDs []uuid.UUID
	listErr    error

	// IDs for which the compare-and-set succeeds; others report a concurrent
	// transition.
	stillProcessing map[uuid.UUID]bool
	flipped         []uuid.UUID
	flipMsgs        []string

	enqueued   []uuid.UUID
	enqueueErr error

	purged             int64
	sharesDeactivated  int64
	purgeErr           error
	deactivateErr      error
	purgeCutoff        time.Time
	deactivateObserved time.Time
}

func (m *mockMaintStore) ListStuckProcessing(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	return m.stuckIDs, m.listErr
}

func (m *mockMaintStore) ListStalePending(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	return m.pendingIDs, m.listErr
}

func (m *mockMaintStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.purgeCutoff = cutoff
	return m.purged, m.purgeErr
}

func (m *mockMaintStore) DeactivateExpiredShares(ctx context.Context, now time.Time) (int64, error) {
	m.deactivateObserved = now
	return m.sharesDeactivated, m.deactivateErr
}

func (m *mockMaintStore) UpdateStatusIfProcessing(ctx context.Context, id uuid.UUID, status store.ReportStatus, errMsg string) (bool, error) {
	if !m.stillProcessing[id] {
		return false, nil
	}
	m.flipped = append(m.flipped, id)
	m.flipMsgs = append(m.flipMsgs, errMsg)
	return true, nil
}

func (m *mockMaintStore) Enqueue(ctx context.Context, tx store.DBTransaction, reportID uuid.UUID, payload json.RawMessage, visibleAfter time.Time) (int64, error) {
	if m.enqueueErr != nil {
		return 0, m.enqueueErr
	}
	m.enqueued = append(m.enqueued, reportID)
	return int64(len(m.enqueued)), nil
}

func TestReapStuck_OnlyFlipsStillProcessing(t *testing.T) {
	stuck := uuid.New()
	racer := uuid.New() // completed between list and flip

	m := &mockMaintStore{
		stuckIDs:        []uuid.UUID{stuck, racer},
		stillProcessing: map[uuid.UUID]bool{stuck: true},
	}
	s := New(m, Config{StuckThreshold: 30 * time.Minute}, nil)

	reaped, err := s.ReapStuck(context.Background())
	if err != nil {
		t.Fatalf("ReapStuck failed: %v", err)
	}
	if reaped != 1 {
		t.Errorf("reaped = %d, want 1", reaped)
	}
	if len(m.flipped) != 1 || m.flipped[0] != stuck {
		t.Errorf("flipped = %v", m.flipped)
	}
	if !strings.Contains(m.flipMsgs[0], "timed out") {
		t.Errorf("timeout message = %q", m.flipMsgs[0])
	}
}

func TestReapStuck_ListError(t *testing.T) {
	m := &mockMaintStore{listErr: errors.New("db down")}
	s := New(m, Config{}, nil)

	if _, err := s.ReapStuck(context.Background()); err == nil {
		t.Error("expected error when listing fails")
	}
}

func TestRestartStalePending(t *testing.T) {
	id1, id2 := uuid.New(), uuid.New()
	m := &mockMaintStore{pendingIDs: []uuid.UUID{id1, id2}}
	s := New(m, Config{PendingThreshold: time.Hour}, nil)

	restarted, err := s.RestartStalePending(context.Background())
	if err != nil {
		t.Fatalf("RestartStalePending failed: %v", err)
	}
	if restarted != 2 {
		t.Errorf("restarted = %d, want 2", restarted)
	}
	if len(m.enqueued) != 2 || m.enqueued[0] != id1 || m.enqueued[1] != id2 {
		t.Errorf("enqueued = %v", m.enqueued)
	}
}

func TestRestartStalePending_EnqueueErrorSkips(t *testing.T) {
	m := &mockMaintStore{
		pendingIDs: []uuid.UUID{uuid.New()},
		enqueueErr: errors.New("db down"),
	}
	s := New(m, Config{}, nil)

	restarted, err := s.RestartStalePending(context.Background())
	if err != nil {
		t.Fatalf("RestartStalePending failed: %v", err)
	}
	if restarted != 0 {
		t.Errorf("restarted = %d, want 0", restarted)
	}
}

func TestPurge(t *testing.T) {
	m := &mockMaintStore{purged: 12, sharesDeactivated: 3}
	s := New(m, Config{Retention: 90 * 24 * time.Hour}, nil)

	deleted, shares, err := s.Purge(context.Background())
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if deleted != 12 || shares != 3 {
		t.Errorf("deleted = %d shares = %d", deleted, shares)
	}

	// Cutoff is retention ago, give or take test scheduling.
	wantCutoff := time.Now().Add(-90 * 24 * time.Hour)
	if diff := m.purgeCutoff.Sub(wantCutoff); diff < -time.Minute || diff > time.Minute {
		t.Errorf("purge cutoff %v too far from %v", m.purgeCutoff, wantCutoff)
	}
}

func TestSweepOnce_SurvivesFailures(t *testing.T) {
	m := &mockMaintStore{listErr: errors.New("db down"), purgeErr: errors.New("db down")}
	s := New(m, Config{}, nil)

	// Must not panic; each sweep failure is logged and the next one still runs.
	s.SweepOnce(context.Background())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	m := &mockMaintStore{}
	s := New(m, Config{Interval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
