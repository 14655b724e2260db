// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and Controller.
package api

import "time"

// CreateReportRequest is the request body for requesting a new report.
type CreateReportRequest struct {
	URL            string `json:"url"`
	CompanyName    string `json:"company_name,omitempty"`
	RequesterEmail string `json:"requester_email,omitempty"`
}

// CreateReportResponse is the response body after creating a report.
type CreateReportResponse struct {
	ReportID string `json:"report_id"`
	Status   string `json:"status"`
}

// StageProgressResponse is one per-stage progress entry.
type StageProgressResponse struct {
	Name      string    `json:"name"`
	State     string    `json:"state"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReportResponse represents a report in API responses.
type ReportResponse struct {
	ID                 string                    `json:"id"`
	URL                string                    `json:"url"`
	Domain             string                    `json:"domain"`
	CompanyName        string                    `json:"company_name,omitempty"`
	Status             string                    `json:"status"`
	ProgressPercentage int                       `json:"progress_percentage"`
	Stages             []StageProgressResponse   `json:"stages"`
	Outputs            map[string]map[string]any `json:"outputs,omitempty"`
	Errors             []string                  `json:"errors,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
	CompletedAt        *time.Time                `json:"completed_at,omitempty"`
	ProcessingSeconds  *int                      `json:"processing_seconds,omitempty"`
}

// ShareReportRequest is the request body for creating a share link.
type ShareReportRequest struct {
	// ExpiresInDays is how long the link stays valid; 0 means no expiry.
	ExpiresInDays int `json:"expires_in_days,omitempty"`
}

// ShareReportResponse is the response body after creating a share link.
type ShareReportResponse struct {
	ReportID  string     `json:"report_id"`
	Token     string     `json:"token"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CancelReportResponse is the response body after cancelling a report.
type CancelReportResponse struct {
	ReportID  string `json:"report_id"`
	Cancelled bool   `json:"cancelled"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// WSClientMessage is what a websocket client may send upstream.
type WSClientMessage struct {
	Type string `json:"type"`
}

// WSStatusMessage is the pull-based status snapshot sent on request; live
// events stream as progress.Event JSON.
type WSStatusMessage struct {
	Type               string                  `json:"type"`
	ReportID           string                  `json:"report_id"`
	Status             string                  `json:"status"`
	ProgressPercentage int                     `json:"progress_percentage"`
	Stages             []StageProgressResponse `json:"stages"`
	Errors             []string                `json:"errors,omitempty"`
}
