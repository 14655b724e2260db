package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"reportplane/internal/progress"
	"reportplane/internal/store"
	"reportplane/pkg/api"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// wsWriteTimeout bounds a single event write to a slow client.
const wsWriteTimeout = 10 * time.Second

// ReportSocket handles GET /reports/{id}/ws.
// It subscribes the client to the report's live progress events. An initial
// status snapshot is sent on connect, and the client may request a fresh one
// at any time with {"type":"get_status"}.
func (h *Handlers) ReportSocket(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid report id", http.StatusBadRequest)
		return
	}

	if _, err := h.store.GetReportByID(r.Context(), id); errors.Is(err, store.ErrNotFound) {
		h.httpError(w, "Report not found", http.StatusNotFound)
		return
	} else if err != nil {
		h.httpError(w, "Failed to load report", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := h.hub.Subscribe(progress.Topic(id))
	defer h.hub.Unsubscribe(sub)

	if err := h.writeStatusSnapshot(ctx, conn, id); err != nil {
		return
	}

	go h.forwardEvents(ctx, cancel, conn, sub)

	for {
		var msg api.WSClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return
		}
		if msg.Type == "get_status" {
			if err := h.writeStatusSnapshot(ctx, conn, id); err != nil {
				return
			}
		}
	}
}

// ListSocket handles GET /reports/ws.
// It streams list-level events: report created, report status changed.
func (h *Handlers) ListSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := h.hub.Subscribe(progress.TopicList)
	defer h.hub.Unsubscribe(sub)

	go h.forwardEvents(ctx, cancel, conn, sub)

	// Drain client frames so pings and close frames are processed.
	for {
		var msg api.WSClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return
		}
	}
}

// forwardEvents pushes hub events to the socket until the subscription or
// the connection goes away.
func (h *Handlers) forwardEvents(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sub *progress.Subscription) {
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "subscription closed")
				return
			}
			writeCtx, writeCancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(writeCtx, conn, ev)
			writeCancel()
			if err != nil {
				return
			}
		}
	}
}

// writeStatusSnapshot sends the current persisted state of the report.
func (h *Handlers) writeStatusSnapshot(ctx context.Context, conn *websocket.Conn, id uuid.UUID) error {
	report, err := h.store.GetReportByID(ctx, id)
	if err != nil {
		return err
	}

	stages := make([]api.StageProgressResponse, 0, len(report.Stages))
	for _, s := range report.Stages {
		stages = append(stages, api.StageProgressResponse{
			Name:      s.Name,
			State:     s.State,
			Progress:  s.Progress,
			Message:   s.Message,
			UpdatedAt: s.UpdatedAt,
		})
	}

	writeCtx, writeCancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer writeCancel()

	return wsjson.Write(writeCtx, conn, api.WSStatusMessage{
		Type:               "status",
		ReportID:           id.String(),
		Status:             string(report.Status),
		ProgressPercentage: report.ProgressPercentage(),
		Stages:             stages,
		Errors:             report.Errors,
	})
}
