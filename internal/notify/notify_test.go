package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestWebhook_NotifyCompletion(t *testing.T) {
	reportID := uuid.New()

	var got completionPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL)
	if err := w.NotifyCompletion(context.Background(), "owner@example.com", reportID); err != nil {
		t.Fatalf("NotifyCompletion failed: %v", err)
	}

	if got.ReportID != reportID.String() {
		t.Errorf("report_id = %s", got.ReportID)
	}
	if got.Recipient != "owner@example.com" {
		t.Errorf("recipient = %s", got.Recipient)
	}
	if got.Status != "completed" {
		t.Errorf("status = %s", got.Status)
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestWebhook_EmptyEndpointIsNoOp(t *testing.T) {
	w := NewWebhook("")
	if err := w.NotifyCompletion(context.Background(), "owner@example.com", uuid.New()); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestWebhook_EndpointErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL)
	if err := w.NotifyCompletion(context.Background(), "owner@example.com", uuid.New()); err == nil {
		t.Error("expected error for 5xx response")
	}
}

func TestWebhook_UnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	w := NewWebhook(url)
	if err := w.NotifyCompletion(context.Background(), "owner@example.com", uuid.New()); err == nil {
		t.Error("expected error for unreachable endpoint")
	}
}
