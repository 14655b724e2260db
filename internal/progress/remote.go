package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Envelope is the wire format for forwarding an event to the controller's
// internal progress endpoint.
type Envelope struct {
	Topic string `json:"topic"`
	Event Event  `json:"event"`
}

// RemotePublisher forwards events to the controller, which fans them out to
// its websocket subscribers. Delivery is best-effort: a lost event only costs
// a live update, the persisted report record stays authoritative.
type RemotePublisher struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewRemotePublisher creates a publisher targeting the controller base URL.
func NewRemotePublisher(controllerURL string, logger *slog.Logger) *RemotePublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemotePublisher{
		endpoint:   controllerURL + "/internal/progress",
		httpClient: &http.Client{Timeout: 3 * time.Second},
		logger:     logger,
	}
}

// Publish ships the event without blocking the caller.
func (p *RemotePublisher) Publish(topic string, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	body, err := json.Marshal(Envelope{Topic: topic, Event: ev})
	if err != nil {
		p.logger.Error("failed to encode progress event", "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
		if err != nil {
			p.logger.Error("failed to build progress request", "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.httpClient.Do(req)
		if err != nil {
			p.logger.Warn("progress event delivery failed", "topic", topic, "error", err)
			return
		}
		resp.Body.Close()
	}()
}
