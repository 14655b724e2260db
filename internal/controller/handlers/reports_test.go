package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reportplane/internal/progress"
	"reportplane/internal/store"
	"reportplane/internal/worker"

	"github.com/google/uuid"
)

func TestCreateReport(t *testing.T) {
	validBody := []byte(`{"url": "example.com", "company_name": "Example Inc", "requester_email": "owner@example.com"}`)

	tests := []struct {
		name           string
		body           []byte
		mockSetup      func(*mockStore)
		expectedStatus int
		expectedInBody string
	}{
		{
			name:           "Success",
			body:           validBody,
			mockSetup:      func(m *mockStore) {},
			expectedStatus: http.StatusCreated,
			expectedInBody: "report_id",
		},
		{
			name:           "Invalid JSON",
			body:           []byte(`{invalid-json}`),
			mockSetup:      func(m *mockStore) {},
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "Invalid request body",
		},
		{
			name:           "Missing URL",
			body:           []byte(`{"url": ""}`),
			mockSetup:      func(m *mockStore) {},
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "Invalid url",
		},
		{
			name:           "Unsupported Scheme",
			body:           []byte(`{"url": "ftp://example.com"}`),
			mockSetup:      func(m *mockStore) {},
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "Invalid url",
		},
		{
			name: "Database Transaction Error",
			body: validBody,
			mockSetup: func(m *mockStore) {
				m.beginTxErr = errors.New("db connection failed")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedInBody: "Internal database error",
		},
		{
			name: "Create Report Failure",
			body: validBody,
			mockSetup: func(m *mockStore) {
				m.createReportErr = errors.New("insert failed")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedInBody: "Failed to create report",
		},
		{
			name: "Enqueue Failure",
			body: validBody,
			mockSetup: func(m *mockStore) {
				m.enqueueErr = errors.New("queue full")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedInBody: "Failed to enqueue report",
		},
		{
			name: "Commit Failure",
			body: validBody,
			mockSetup: func(m *mockStore) {
				m.commitErr = errors.New("commit failed")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedInBody: "Failed to commit transaction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockStore{}
			if tt.mockSetup != nil {
				tt.mockSetup(mock)
			}
			h := New(mock, progress.NewHub())

			req := httptest.NewRequest(http.MethodPost, "/reports", bytes.NewReader(tt.body))

			rr := httptest.NewRecorder()
			h.CreateReport(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v body: %v",
					rr.Code, tt.expectedStatus, rr.Body.String())
			}

			if tt.expectedInBody != "" && !strings.Contains(rr.Body.String(), tt.expectedInBody) {
				t.Errorf("handler returned unexpected body: got %v want substring %v",
					rr.Body.String(), tt.expectedInBody)
			}
		})
	}
}

func TestCreateReport_NormalizesAndEnqueues(t *testing.T) {
	mock := &mockStore{}
	hub := progress.NewHub()
	sub := hub.Subscribe(progress.TopicList)
	defer hub.Unsubscribe(sub)

	h := New(mock, hub)

	body := []byte(`{"url": "WWW.Example.com/path", "requester_email": "owner@example.com"}`)
	req := httptest.NewRequest(http.MethodPost, "/reports", bytes.NewReader(body))

	rr := httptest.NewRecorder()
	h.CreateReport(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body: %s", rr.Code, rr.Body.String())
	}

	if mock.capturedReport == nil {
		t.Fatal("report never reached the store")
	}
	if mock.capturedReport.URL != "https://www.example.com/path" {
		t.Errorf("normalized url = %q", mock.capturedReport.URL)
	}
	if mock.capturedReport.Domain != "example.com" {
		t.Errorf("domain = %q", mock.capturedReport.Domain)
	}
	if mock.capturedReport.Status != store.ReportStatusPending {
		t.Errorf("status = %q", mock.capturedReport.Status)
	}
	if mock.capturedReport.RequesterEmail != "owner@example.com" {
		t.Errorf("requester_email = %q", mock.capturedReport.RequesterEmail)
	}

	var payload worker.GenerationPayload
	if err := json.Unmarshal(mock.capturedPayload, &payload); err != nil {
		t.Fatalf("queue payload not a generation payload: %v", err)
	}
	if payload.ReportID != mock.capturedReport.ID {
		t.Errorf("payload report id = %s, want %s", payload.ReportID, mock.capturedReport.ID)
	}
	if payload.Domain != "example.com" {
		t.Errorf("payload domain = %q", payload.Domain)
	}

	select {
	case ev := <-sub.Events():
		if ev.Type != progress.EventReportCreated {
			t.Errorf("event type = %q", ev.Type)
		}
		if ev.ReportID != mock.capturedReport.ID.String() {
			t.Errorf("event report id = %q", ev.ReportID)
		}
	case <-time.After(time.Second):
		t.Error("no report_created event published")
	}
}

func TestGetReport(t *testing.T) {
	reportID := uuid.New()
	sample := &store.Report{
		ID:     reportID,
		URL:    "https://example.com",
		Domain: "example.com",
		Status: store.ReportStatusProcessing,
		Stages: []store.StageProgress{
			{Name: "website_analysis", State: store.StageStateCompleted, Progress: 100},
			{Name: "seo_analysis", State: store.StageStateInProgress, Progress: 40},
		},
		CreatedAt: time.Now().UTC(),
	}

	tests := []struct {
		name           string
		idParam        string
		mockSetup      func(*mockStore)
		expectedStatus int
		expectedInBody string
	}{
		{
			name:    "Success",
			idParam: reportID.String(),
			mockSetup: func(m *mockStore) {
				m.getReportResp = sample
			},
			expectedStatus: http.StatusOK,
			expectedInBody: `"progress_percentage":50`,
		},
		{
			name:           "Invalid UUID Format",
			idParam:        "not-a-uuid",
			mockSetup:      func(m *mockStore) {},
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "Invalid report id",
		},
		{
			name:    "Not Found",
			idParam: uuid.New().String(),
			mockSetup: func(m *mockStore) {
				m.getReportErr = store.ErrNotFound
			},
			expectedStatus: http.StatusNotFound,
			expectedInBody: "Report not found",
		},
		{
			name:    "Database Error",
			idParam: reportID.String(),
			mockSetup: func(m *mockStore) {
				m.getReportErr = errors.New("connection reset")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedInBody: "Failed to load report",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockStore{}
			if tt.mockSetup != nil {
				tt.mockSetup(mock)
			}
			h := New(mock, progress.NewHub())

			mux := http.NewServeMux()
			mux.HandleFunc("GET /reports/{id}", h.GetReport)

			req := httptest.NewRequest(http.MethodGet, "/reports/"+tt.idParam, nil)

			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v body: %v",
					rr.Code, tt.expectedStatus, rr.Body.String())
			}

			if tt.expectedInBody != "" && !strings.Contains(rr.Body.String(), tt.expectedInBody) {
				t.Errorf("handler returned unexpected body: got %v want substring %v",
					rr.Body.String(), tt.expectedInBody)
			}
		})
	}
}

func TestCancelReport(t *testing.T) {
	reportID := uuid.New()
	pendingReport := &store.Report{ID: reportID, Status: store.ReportStatusPending}
	completedReport := &store.Report{ID: reportID, Status: store.ReportStatusCompleted}

	tests := []struct {
		name           string
		idParam        string
		mockSetup      func(*mockStore)
		expectedStatus int
		expectedInBody string
		expectEvents   bool
	}{
		{
			name:    "Cancels Pending Report",
			idParam: reportID.String(),
			mockSetup: func(m *mockStore) {
				m.getReportResp = pendingReport
				m.cancelReportResp = true
			},
			expectedStatus: http.StatusOK,
			expectedInBody: `"cancelled":true`,
			expectEvents:   true,
		},
		{
			name:    "Terminal Report Reports False",
			idParam: reportID.String(),
			mockSetup: func(m *mockStore) {
				m.getReportResp = completedReport
				m.cancelReportResp = false
			},
			expectedStatus: http.StatusOK,
			expectedInBody: `"cancelled":false`,
		},
		{
			name:           "Invalid UUID Format",
			idParam:        "not-a-uuid",
			mockSetup:      func(m *mockStore) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:    "Not Found",
			idParam: uuid.New().String(),
			mockSetup: func(m *mockStore) {
				m.getReportErr = store.ErrNotFound
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:    "Cancel Failure",
			idParam: reportID.String(),
			mockSetup: func(m *mockStore) {
				m.getReportResp = pendingReport
				m.cancelReportErr = errors.New("deadlock detected")
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockStore{}
			if tt.mockSetup != nil {
				tt.mockSetup(mock)
			}
			hub := progress.NewHub()
			listSub := hub.Subscribe(progress.TopicList)
			defer hub.Unsubscribe(listSub)

			h := New(mock, hub)

			mux := http.NewServeMux()
			mux.HandleFunc("POST /reports/{id}/cancel", h.CancelReport)

			req := httptest.NewRequest(http.MethodPost, "/reports/"+tt.idParam+"/cancel", nil)

			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v body: %v",
					rr.Code, tt.expectedStatus, rr.Body.String())
			}

			if tt.expectedInBody != "" && !strings.Contains(rr.Body.String(), tt.expectedInBody) {
				t.Errorf("handler returned unexpected body: got %v want substring %v",
					rr.Body.String(), tt.expectedInBody)
			}

			select {
			case ev := <-listSub.Events():
				if !tt.expectEvents {
					t.Errorf("unexpected event published: %+v", ev)
				} else if ev.Type != progress.EventReportStatusChange {
					t.Errorf("event type = %q", ev.Type)
				}
			default:
				if tt.expectEvents {
					t.Error("no status change event published")
				}
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantURL    string
		wantDomain string
		wantErr    bool
	}{
		{"bare domain gets https", "example.com", "https://example.com", "example.com", false},
		{"www stripped from domain only", "www.example.com", "https://www.example.com", "example.com", false},
		{"explicit http preserved", "http://example.com", "http://example.com", "example.com", false},
		{"host lowercased", "HTTPS://EXAMPLE.COM", "https://EXAMPLE.COM", "example.com", false},
		{"port excluded from domain", "example.com:8080/x", "https://example.com:8080/x", "example.com", false},
		{"empty", "", "", "", true},
		{"whitespace only", "   ", "", "", true},
		{"unsupported scheme", "ftp://example.com", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotURL, gotDomain, err := normalizeURL(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("normalizeURL(%q) expected error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalizeURL(%q) failed: %v", tt.raw, err)
			}
			if gotURL != tt.wantURL {
				t.Errorf("url = %q, want %q", gotURL, tt.wantURL)
			}
			if gotDomain != tt.wantDomain {
				t.Errorf("domain = %q, want %q", gotDomain, tt.wantDomain)
			}
		})
	}
}
