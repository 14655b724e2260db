package handlers

import (
	"encoding/json"
	"net/http"

	"reportplane/internal/progress"
)

// InternalPublishProgress handles POST /internal/progress.
// Worker agents forward pipeline progress events here so the controller can
// fan them out to its websocket subscribers.
func (h *Handlers) InternalPublishProgress(w http.ResponseWriter, r *http.Request) {
	var env progress.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if env.Topic == "" {
		h.httpError(w, "Topic is required", http.StatusBadRequest)
		return
	}

	h.hub.Publish(env.Topic, env.Event)
	w.WriteHeader(http.StatusAccepted)
}
