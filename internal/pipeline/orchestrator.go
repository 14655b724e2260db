package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"reportplane/internal/notify"
	"reportplane/internal/progress"
	"reportplane/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultStageTimeout bounds a single collaborator call. A timeout is
// treated like any other stage failure: fallback substitution, no abort.
const DefaultStageTimeout = 30 * time.Second

// Orchestrator drives one report through every registered stage in order.
// Stage failures are absorbed with fallback payloads; only failures of the
// orchestration control flow itself propagate to the caller.
type Orchestrator struct {
	reports      store.ReportStore
	stages       []Stage
	hub          progress.Publisher
	notifier     notify.Notifier
	stageTimeout time.Duration
	logger       *slog.Logger
}

// Config holds the orchestrator's collaborators.
type Config struct {
	Reports      store.ReportStore
	Stages       []Stage
	Hub          progress.Publisher
	Notifier     notify.Notifier
	StageTimeout time.Duration
	Logger       *slog.Logger
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = DefaultStageTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		reports:      cfg.Reports,
		stages:       cfg.Stages,
		hub:          cfg.Hub,
		notifier:     cfg.Notifier,
		stageTimeout: cfg.StageTimeout,
		logger:       cfg.Logger,
	}
}

// Run generates the report. It returns nil once the record reached a
// terminal state under this run's control (completed, or cancelled by an
// external actor), and an error for job-level failures: the record is then
// marked failed with the error appended before returning, and the caller
// owns the retry policy.
func (o *Orchestrator) Run(ctx context.Context, reportID uuid.UUID) error {
	tracer := otel.Tracer("pipeline")
	ctx, span := tracer.Start(ctx, "generate_report")
	defer span.End()
	span.SetAttributes(attribute.String("report.id", reportID.String()))

	report, err := o.reports.GetReportByID(ctx, reportID)
	if err != nil {
		return fmt.Errorf("load report %s: %w", reportID, err)
	}

	log := o.logger.With("report_id", reportID.String(), "domain", report.Domain)

	// Re-invoking on a settled record is a no-op. A failed record is not
	// settled: the queue schedules retries over it until the attempt budget
	// runs out, and each retry re-runs the full pipeline.
	if report.Settled() {
		log.Info("report already settled, skipping", "status", report.Status)
		return nil
	}

	topic := progress.Topic(reportID)
	now := time.Now()

	// Transition to processing. An already-processing record proceeds
	// without resetting processing_started_at, so a retry resumes cleanly.
	if report.Status != store.ReportStatusProcessing {
		oldStatus := report.Status
		report.Status = store.ReportStatusProcessing
		o.hub.Publish(progress.TopicList, progress.Event{
			Type:      progress.EventReportStatusChange,
			ReportID:  reportID.String(),
			OldStatus: string(oldStatus),
			NewStatus: string(store.ReportStatusProcessing),
		})
	}
	if report.ProcessingStartedAt == nil {
		report.ProcessingStartedAt = &now
	}

	// A retried record may carry completion bookkeeping from an earlier
	// failed run; it restarts with this run's outcome.
	report.CompletedAt = nil
	report.ProcessingSeconds = nil

	// Stage progress entries are created once.
	if len(report.Stages) == 0 {
		for _, stage := range o.stages {
			report.Stages = append(report.Stages, store.StageProgress{
				Name:      stage.Name,
				State:     store.StageStatePending,
				Progress:  0,
				Message:   stage.Message,
				UpdatedAt: now,
			})
		}
	}
	if report.Outputs == nil {
		report.Outputs = make(map[string]map[string]any, len(o.stages))
	}

	if err := o.reports.SaveReport(ctx, report); err != nil {
		return o.failRun(ctx, report, fmt.Errorf("save report at start: %w", err))
	}

	o.hub.Publish(topic, progress.Event{
		Type:      progress.EventStatusUpdate,
		ReportID:  reportID.String(),
		NewStatus: string(store.ReportStatusProcessing),
		Message:   "Starting report generation",
	})
	log.Info("report generation started", "url", report.URL)

	percent := 0
	for _, stage := range o.stages {
		// Cooperative cancellation between stages. A cancelled record is a
		// terminal override, not a failure.
		current, err := o.reports.GetReportByID(ctx, reportID)
		if err != nil {
			return o.failRun(ctx, report, fmt.Errorf("reload report before stage %s: %w", stage.Name, err))
		}
		if current.Status == store.ReportStatusCancelled {
			log.Info("report cancelled, aborting pipeline", "stage", stage.Name)
			return nil
		}

		o.runStage(ctx, log, report, stage, percent)
		percent += stage.Weight

		if err := o.reports.SaveReport(ctx, report); err != nil {
			return o.failRun(ctx, report, fmt.Errorf("save report after stage %s: %w", stage.Name, err))
		}
	}

	// Completion is unconditional: even an all-fallback report is delivered.
	report.Status = store.ReportStatusCompleted
	completed := time.Now()
	report.CompletedAt = &completed
	report.RecomputeProcessingTime()
	if err := o.reports.SaveReport(ctx, report); err != nil {
		return o.failRun(ctx, report, fmt.Errorf("save completed report: %w", err))
	}

	o.hub.Publish(topic, progress.Event{
		Type:     progress.EventReportCompleted,
		ReportID: reportID.String(),
		Progress: 100,
		Message:  "Report generation completed",
	})
	o.hub.Publish(progress.TopicList, progress.Event{
		Type:      progress.EventReportStatusChange,
		ReportID:  reportID.String(),
		OldStatus: string(store.ReportStatusProcessing),
		NewStatus: string(store.ReportStatusCompleted),
	})

	if report.RequesterEmail != "" && o.notifier != nil {
		if err := o.notifier.NotifyCompletion(ctx, report.RequesterEmail, reportID); err != nil {
			log.Error("completion notification failed", "error", err)
		}
	}

	log.Info("report generation completed",
		"errors", len(report.Errors),
		"processing_seconds", derefInt(report.ProcessingSeconds))
	return nil
}

// runStage executes one stage against the report, merging either the real
// payload or the fallback into the outputs. It never returns an error: a
// stage failure is recorded, substituted, and the pipeline moves on.
func (o *Orchestrator) runStage(ctx context.Context, log *slog.Logger, report *store.Report, stage Stage, percentBefore int) {
	topic := progress.Topic(report.ID)

	report.SetStage(stage.Name, store.StageStateInProgress, 0, stage.Message, time.Now())
	o.hub.Publish(topic, progress.Event{
		Type:     progress.EventProgressUpdate,
		ReportID: report.ID.String(),
		Stage:    stage.Name,
		State:    store.StageStateInProgress,
		Progress: percentBefore,
		Message:  stage.Message,
	})
	log.Info("stage started", "stage", stage.Name)

	in := NewInput(report.URL, report.Domain, report.CompanyName, report.Outputs)

	stageCtx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	payload, err := invoke(stageCtx, stage.Collaborator, in)
	cancel()

	if err != nil {
		errMsg := fmt.Sprintf("%s: %v", stage.Name, err)
		log.Error("stage failed, substituting fallback", "stage", stage.Name, "error", err)

		report.AppendError(errMsg)
		report.Outputs[stage.OutputKey] = stage.Fallback(in, err)
		report.SetStage(stage.Name, store.StageStateFailed, 0, errMsg, time.Now())

		o.hub.Publish(topic, progress.Event{
			Type:     progress.EventProgressUpdate,
			ReportID: report.ID.String(),
			Stage:    stage.Name,
			State:    store.StageStateFailed,
			Progress: percentBefore,
			Message:  errMsg,
			Error:    err.Error(),
		})
		return
	}

	report.Outputs[stage.OutputKey] = payload
	adoptCompanyName(report, stage.OutputKey, payload)
	report.SetStage(stage.Name, store.StageStateCompleted, 100, stage.Name+" completed", time.Now())

	o.hub.Publish(topic, progress.Event{
		Type:     progress.EventProgressUpdate,
		ReportID: report.ID.String(),
		Stage:    stage.Name,
		State:    store.StageStateCompleted,
		Progress: percentBefore + stage.Weight,
		Message:  stage.Name + " completed",
	})
	log.Info("stage completed", "stage", stage.Name)
}

// invoke calls the collaborator, translating a panic into a stage error.
// Collaborators must not panic across the boundary, but a violated contract
// is still a stage-level fault, not a pipeline abort.
func invoke(ctx context.Context, c Collaborator, in Input) (payload map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = fmt.Errorf("stage panicked: %v", r)
		}
	}()
	return c.Collect(ctx, in)
}

// adoptCompanyName backfills the report's company name from the website
// analysis when the requester did not supply one.
func adoptCompanyName(report *store.Report, outputKey string, payload map[string]any) {
	if outputKey != "website_data" || report.CompanyName != "" {
		return
	}
	if name, ok := payload["company_name"].(string); ok && name != "" {
		report.CompanyName = name
	}
}

// failRun marks the report failed with the job-level error appended, then
// hands the error back to the job runner for its retry policy. CompletedAt
// stays unset: the queue may still reschedule this report, and only the
// exhaustion path stamps a completion time.
func (o *Orchestrator) failRun(ctx context.Context, report *store.Report, cause error) error {
	report.Status = store.ReportStatusFailed
	report.AppendError(cause.Error())
	if err := o.reports.SaveReport(ctx, report); err != nil {
		o.logger.Error("failed to persist job-level failure", "report_id", report.ID.String(), "error", err)
	}

	o.hub.Publish(progress.Topic(report.ID), progress.Event{
		Type:     progress.EventReportFailed,
		ReportID: report.ID.String(),
		Error:    cause.Error(),
	})
	return cause
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
