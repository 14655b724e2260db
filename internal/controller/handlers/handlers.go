// Package handlers contains HTTP handlers for the controller API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"reportplane/internal/progress"
	"reportplane/internal/store"
	"reportplane/pkg/api"
)

// StoreFactory combines the interfaces needed for the controller to function.
type StoreFactory interface {
	BeginTx(ctx context.Context) (store.Tx, error)
	Ping(ctx context.Context) error
	store.ReportStore
	store.ShareStore
	store.Queue
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	store StoreFactory
	hub   *progress.Hub
}

// New creates a new Handlers instance with the given dependencies.
func New(s StoreFactory, hub *progress.Hub) *Handlers {
	return &Handlers{store: s, hub: hub}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}

// reportResponse maps the store aggregate to its API shape.
func reportResponse(r *store.Report) api.ReportResponse {
	stages := make([]api.StageProgressResponse, 0, len(r.Stages))
	for _, s := range r.Stages {
		stages = append(stages, api.StageProgressResponse{
			Name:      s.Name,
			State:     s.State,
			Progress:  s.Progress,
			Message:   s.Message,
			UpdatedAt: s.UpdatedAt,
		})
	}

	return api.ReportResponse{
		ID:                 r.ID.String(),
		URL:                r.URL,
		Domain:             r.Domain,
		CompanyName:        r.CompanyName,
		Status:             string(r.Status),
		ProgressPercentage: r.ProgressPercentage(),
		Stages:             stages,
		Outputs:            r.Outputs,
		Errors:             r.Errors,
		CreatedAt:          r.CreatedAt,
		CompletedAt:        r.CompletedAt,
		ProcessingSeconds:  r.ProcessingSeconds,
	}
}
