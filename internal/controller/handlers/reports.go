package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reportplane/internal/progress"
	"reportplane/internal/store"
	"reportplane/internal/worker"
	"reportplane/pkg/api"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// CreateReport handles POST /reports.
// It saves a pending report record and enqueues it for generation.
func (h *Handlers) CreateReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	normalized, domain, err := normalizeURL(req.URL)
	if err != nil {
		h.httpError(w, fmt.Sprintf("Invalid url: %v", err), http.StatusBadRequest)
		return
	}

	report := &store.Report{
		ID:             uuid.New(),
		URL:            normalized,
		Domain:         domain,
		CompanyName:    strings.TrimSpace(req.CompanyName),
		RequesterEmail: strings.TrimSpace(req.RequesterEmail),
		Status:         store.ReportStatusPending,
		CreatedAt:      time.Now().UTC(),
	}

	tx, err := h.store.BeginTx(ctx)
	if err != nil {
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	if err := h.store.CreateReport(ctx, tx, report); err != nil {
		h.httpError(w, "Failed to create report", http.StatusInternalServerError)
		return
	}

	// Carry the request trace into the queue payload so the worker's
	// generation span links back to this request.
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	payload, _ := json.Marshal(worker.GenerationPayload{
		ReportID: report.ID,
		Domain:   report.Domain,
		Trace:    carrier,
	})

	if _, err := h.store.Enqueue(ctx, tx, report.ID, payload, time.Now().UTC()); err != nil {
		h.httpError(w, "Failed to enqueue report", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(); err != nil {
		h.httpError(w, "Failed to commit transaction", http.StatusInternalServerError)
		return
	}

	h.hub.Publish(progress.TopicList, progress.Event{
		Type:      progress.EventReportCreated,
		ReportID:  report.ID.String(),
		NewStatus: string(store.ReportStatusPending),
	})

	h.respondJson(w, http.StatusCreated, api.CreateReportResponse{
		ReportID: report.ID.String(),
		Status:   string(report.Status),
	})
}

// GetReport handles GET /reports/{id}.
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid report id", http.StatusBadRequest)
		return
	}

	report, err := h.store.GetReportByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.httpError(w, "Report not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.httpError(w, "Failed to load report", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, reportResponse(report))
}

// CancelReport handles POST /reports/{id}/cancel.
// Only pending or processing reports can be cancelled; cancelling a report
// that is already terminal reports cancelled=false.
func (h *Handlers) CancelReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid report id", http.StatusBadRequest)
		return
	}

	report, err := h.store.GetReportByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		h.httpError(w, "Report not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.httpError(w, "Failed to load report", http.StatusInternalServerError)
		return
	}

	cancelled, err := h.store.CancelReport(ctx, id)
	if err != nil {
		h.httpError(w, "Failed to cancel report", http.StatusInternalServerError)
		return
	}

	if cancelled {
		h.hub.Publish(progress.Topic(id), progress.Event{
			Type:      progress.EventStatusUpdate,
			ReportID:  id.String(),
			NewStatus: string(store.ReportStatusCancelled),
		})
		h.hub.Publish(progress.TopicList, progress.Event{
			Type:      progress.EventReportStatusChange,
			ReportID:  id.String(),
			OldStatus: string(report.Status),
			NewStatus: string(store.ReportStatusCancelled),
		})
	}

	h.respondJson(w, http.StatusOK, api.CancelReportResponse{
		ReportID:  id.String(),
		Cancelled: cancelled,
	})
}

// normalizeURL validates the target website address, defaults the scheme to
// https when missing, and derives the bare domain (host without port, with a
// leading "www." stripped).
func normalizeURL(raw string) (normalized, domain string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", errors.New("url is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", "", errors.New("url has no host")
	}

	domain = strings.TrimPrefix(host, "www.")
	return u.String(), domain, nil
}
