package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"reportplane/internal/store"
	"reportplane/pkg/api"

	"github.com/google/uuid"
)

// ShareReport handles POST /reports/{id}/share.
// It issues a tokenized link so a completed report can be read without
// knowing its ID. Expired links are deactivated by the retention sweep.
func (h *Handlers) ShareReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid report id", http.StatusBadRequest)
		return
	}

	var req api.ShareReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ExpiresInDays < 0 {
		h.httpError(w, "expires_in_days must not be negative", http.StatusBadRequest)
		return
	}

	if _, err := h.store.GetReportByID(ctx, id); errors.Is(err, store.ErrNotFound) {
		h.httpError(w, "Report not found", http.StatusNotFound)
		return
	} else if err != nil {
		h.httpError(w, "Failed to load report", http.StatusInternalServerError)
		return
	}

	share := &store.ReportShare{ReportID: id}
	if req.ExpiresInDays > 0 {
		expires := time.Now().UTC().AddDate(0, 0, req.ExpiresInDays)
		share.ExpiresAt = &expires
	}

	if err := h.store.CreateShare(ctx, share); err != nil {
		h.httpError(w, "Failed to create share link", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusCreated, api.ShareReportResponse{
		ReportID:  id.String(),
		Token:     share.Token.String(),
		ExpiresAt: share.ExpiresAt,
	})
}

// GetSharedReport handles GET /shared/{token}.
func (h *Handlers) GetSharedReport(w http.ResponseWriter, r *http.Request) {
	token, err := uuid.Parse(r.PathValue("token"))
	if err != nil {
		h.httpError(w, "Invalid share token", http.StatusBadRequest)
		return
	}

	report, err := h.store.GetReportByShareToken(r.Context(), token)
	if errors.Is(err, store.ErrNotFound) {
		h.httpError(w, "Share link not found or expired", http.StatusNotFound)
		return
	}
	if err != nil {
		h.httpError(w, "Failed to load report", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, reportResponse(report))
}
