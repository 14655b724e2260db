// Package store contains the database layer for reportplane.
package store

import (
	"time"

	"github.com/google/uuid"
)

// ReportStatus represents the lifecycle state of a report.
type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"
	ReportStatusProcessing ReportStatus = "processing"
	ReportStatusCompleted  ReportStatus = "completed"
	ReportStatusFailed     ReportStatus = "failed"
	ReportStatusCancelled  ReportStatus = "cancelled"
)

// Stage progress states.
const (
	StageStatePending    = "pending"
	StageStateInProgress = "in_progress"
	StageStateCompleted  = "completed"
	StageStateFailed     = "failed"
)

// StageProgress tracks one pipeline stage inside a report.
// Entries are created once when processing starts and mutated in place;
// they are never reordered or removed.
type StageProgress struct {
	Name      string    `json:"name"`
	State     string    `json:"state"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Report is the aggregate root for one report request.
type Report struct {
	ID uuid.UUID

	// Target website seeds, fixed at creation.
	URL         string
	Domain      string
	CompanyName string

	// Optional completion notification address.
	RequesterEmail string

	Status ReportStatus

	// Stages is the ordered per-stage progress list.
	Stages []StageProgress

	// Outputs maps stage output keys (website_data, seo_data, ...) to the
	// last-known payload, real or fallback.
	Outputs map[string]map[string]any

	// Errors is append-only.
	Errors []string

	CreatedAt           time.Time
	ProcessingStartedAt *time.Time
	CompletedAt         *time.Time

	// ProcessingSeconds is derived from the two timestamps above.
	ProcessingSeconds *int
}

// Terminal reports whether the record sits in an end state. A terminal
// report shows no further progress to readers.
func (r *Report) Terminal() bool {
	switch r.Status {
	case ReportStatusCompleted, ReportStatusFailed, ReportStatusCancelled:
		return true
	}
	return false
}

// Settled reports whether the record's outcome is final. A failed report is
// not settled: while its queue row lives, a scheduled retry re-runs the
// pipeline over it. Completed and cancelled records are never re-run.
func (r *Report) Settled() bool {
	switch r.Status {
	case ReportStatusCompleted, ReportStatusCancelled:
		return true
	}
	return false
}

// ProgressPercentage is the share of stages that reached completed, 0..100.
func (r *Report) ProgressPercentage() int {
	if len(r.Stages) == 0 {
		return 0
	}
	completed := 0
	for _, s := range r.Stages {
		if s.State == StageStateCompleted {
			completed++
		}
	}
	return completed * 100 / len(r.Stages)
}

// StageByName returns a pointer into Stages, or nil if absent.
func (r *Report) StageByName(name string) *StageProgress {
	for i := range r.Stages {
		if r.Stages[i].Name == name {
			return &r.Stages[i]
		}
	}
	return nil
}

// SetStage updates the named stage entry in place. Unknown names are
// appended so progress for stages added after the record was created is
// never lost.
func (r *Report) SetStage(name, state string, progress int, message string, now time.Time) {
	if s := r.StageByName(name); s != nil {
		s.State = state
		s.Progress = progress
		s.Message = message
		s.UpdatedAt = now
		return
	}
	r.Stages = append(r.Stages, StageProgress{
		Name: name, State: state, Progress: progress, Message: message, UpdatedAt: now,
	})
}

// RecomputeProcessingTime refreshes ProcessingSeconds from the timestamps.
// Calling it repeatedly with the same timestamps yields the same value.
func (r *Report) RecomputeProcessingTime() {
	if r.CompletedAt == nil || r.ProcessingStartedAt == nil {
		return
	}
	secs := int(r.CompletedAt.Sub(*r.ProcessingStartedAt) / time.Second)
	r.ProcessingSeconds = &secs
}

// AppendError records an error message on the report.
func (r *Report) AppendError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// ReportShare is a shareable link to a report.
// Expired shares are deactivated by the retention sweep.
type ReportShare struct {
	ID        int64
	ReportID  uuid.UUID
	Token     uuid.UUID
	ExpiresAt *time.Time
	IsActive  bool
	CreatedAt time.Time
}
