// Package notify delivers fire-and-forget completion notifications.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Notifier is the completion notification collaborator. Delivery is
// best-effort; the pipeline never fails because a notification did not land.
type Notifier interface {
	NotifyCompletion(ctx context.Context, recipient string, reportID uuid.UUID) error
}

// completionPayload is the JSON body shipped to the notification endpoint.
// Recipient is the requester's address; the endpoint owns the actual delivery
// (mail relay, chat hook, ...).
type completionPayload struct {
	ReportID  string    `json:"report_id"`
	Recipient string    `json:"recipient"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Webhook posts completion events to a fixed notification endpoint.
// An empty endpoint disables delivery.
type Webhook struct {
	endpoint   string
	httpClient *http.Client
}

// NewWebhook creates a webhook notifier targeting the endpoint.
func NewWebhook(endpoint string) *Webhook {
	return &Webhook{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// NotifyCompletion posts a completion event for the recipient.
func (w *Webhook) NotifyCompletion(ctx context.Context, recipient string, reportID uuid.UUID) error {
	if w.endpoint == "" {
		return nil
	}

	body, err := json.Marshal(completionPayload{
		ReportID:  reportID.String(),
		Recipient: recipient,
		Status:    "completed",
		Timestamp: time.Now(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
