// Package worker contains the job runner: the pull-loop that claims queued
// reports and drives the pipeline orchestrator over them.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"reportplane/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Runner is the unit of work executed per claimed report. The pipeline
// orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, reportID uuid.UUID) error
}

// AgentConfig holds configuration for the worker agent.
type AgentConfig struct {
	ID                  string
	Concurrency         int
	PollInterval        time.Duration
	MaxBackoff          time.Duration // Maximum backoff when queue is empty (default: 30s)
	HeartbeatInterval   time.Duration // Interval between heartbeat calls (default: 1m)
	VisibilityExtension time.Duration // How long to extend visibility on heartbeat (default: 5m)
	RunTimeout          time.Duration // Upper bound on one full generation run (default: 30m)
}

// GenerationPayload is the queue payload wrapping a report job.
type GenerationPayload struct {
	ReportID uuid.UUID              `json:"report_id"`
	Domain   string                 `json:"domain,omitempty"`
	Trace    propagation.MapCarrier `json:"trace,omitempty"`
}

// Agent is the worker that runs the pull-loop for report generation.
type Agent struct {
	queue   store.Queue
	reports store.ReportStore
	runner  Runner
	config  AgentConfig
	logger  *slog.Logger
	done    chan struct{}
}

// New creates a new worker agent.
func New(q store.Queue, reports store.ReportStore, runner Runner, config AgentConfig, logger *slog.Logger) *Agent {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 1 * time.Second
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = 1 * time.Minute
	}
	if config.VisibilityExtension <= 0 {
		config.VisibilityExtension = 5 * time.Minute
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = 30 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Agent{
		queue:   q,
		reports: reports,
		runner:  runner,
		config:  config,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Run starts the main pull-loop. It blocks until the context is cancelled.
// On shutdown it stops dequeuing new work and lets in-flight runs finish.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("agent starting", "agent_id", a.config.ID, "concurrency", a.config.Concurrency)

	// Semaphore to limit concurrency
	sem := make(chan struct{}, a.config.Concurrency)
	var wg sync.WaitGroup

	// Channel to signal when a slot becomes available (adaptive polling)
	pollNow := make(chan struct{}, 1)

	// Current backoff duration (increases on empty queue, resets on work found)
	currentBackoff := a.config.PollInterval

	triggerPoll := func() {
		select {
		case pollNow <- struct{}{}:
		default:
			// Already a poll pending
		}
	}

	triggerPoll()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("context cancelled, waiting for running reports to finish")
			wg.Wait()
			close(a.done)
			return ctx.Err()

		case <-time.After(currentBackoff):
			triggerPoll()

		case <-pollNow:
			availableSlots := a.config.Concurrency - len(sem)
			if availableSlots <= 0 {
				continue
			}

			items, err := a.queue.DequeueBatch(ctx, availableSlots)
			if err != nil {
				a.logger.Error("dequeue batch failed", "error", err)
				continue
			}

			if len(items) == 0 {
				// Empty queue - increase backoff (exponential, capped at MaxBackoff)
				currentBackoff = currentBackoff * 2
				if currentBackoff > a.config.MaxBackoff {
					currentBackoff = a.config.MaxBackoff
				}
				continue
			}

			// Found work - reset backoff to minimum
			currentBackoff = a.config.PollInterval

			a.logger.Info("claimed reports", "count", len(items))

			for _, item := range items {
				sem <- struct{}{}

				wg.Add(1)
				go func(item store.QueueItem) {
					defer wg.Done()
					defer func() {
						<-sem
						// Slot freed - trigger immediate re-poll
						triggerPoll()
					}()
					a.processItem(ctx, item)
				}(item)
			}

			if len(items) < availableSlots {
				triggerPoll()
			}
		}
	}
}

// Done returns a channel that is closed when the agent has fully stopped.
func (a *Agent) Done() <-chan struct{} {
	return a.done
}

// processItem runs the orchestrator for a single claimed report.
func (a *Agent) processItem(ctx context.Context, item store.QueueItem) {
	traceCtx := ctx
	var payload GenerationPayload
	if err := json.Unmarshal(item.Payload, &payload); err == nil && payload.Trace != nil {
		traceCtx = otel.GetTextMapPropagator().Extract(ctx, payload.Trace)
	}

	tracer := otel.Tracer("worker-agent")
	spanCtx, span := tracer.Start(traceCtx, "process_report",
		trace.WithAttributes(
			attribute.String("report.id", item.ReportID.String()),
			attribute.Int("report.attempt", item.Attempt),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	log := a.logger.With("report_id", item.ReportID.String(), "attempt", item.Attempt)
	log.Info("processing report")

	// Settled records are a safe no-op: drop the queue row and move on.
	// A failed record keeps its claim: this is the retry re-running it.
	if report, err := a.reports.GetReportByID(spanCtx, item.ReportID); err == nil && report.Settled() {
		log.Info("report already settled, dropping queue row", "status", report.Status)
		if err := a.queue.Complete(context.Background(), nil, item.ReportID); err != nil {
			log.Error("failed to drop queue row", "error", err)
		}
		return
	}

	// The run gets its own deadline, independent of the poll context, so a
	// SIGTERM drains gracefully instead of aborting mid-pipeline.
	runCtx, cancel := context.WithTimeout(spanCtx, a.config.RunTimeout)
	defer cancel()

	heartbeatCtx, cancelHeartbeat := context.WithCancel(context.Background())
	defer cancelHeartbeat()
	go a.runHeartbeat(heartbeatCtx, item.ReportID)

	if err := a.runner.Run(runCtx, item.ReportID); err != nil {
		span.RecordError(err)
		log.Error("report generation failed", "error", err)
		if ferr := a.queue.Fail(context.Background(), nil, item.ReportID, err.Error()); ferr != nil {
			log.Error("failed to schedule retry", "error", ferr)
		}
		return
	}

	log.Info("report generation run finished")
	if err := a.queue.Complete(context.Background(), nil, item.ReportID); err != nil {
		log.Error("failed to complete queue row", "error", err)
	}
}

// runHeartbeat refreshes the visibility timeout periodically while a report
// is being generated, so long runs are not claimed by another worker.
func (a *Agent) runHeartbeat(ctx context.Context, reportID uuid.UUID) {
	ticker := time.NewTicker(a.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			visibleAfter := time.Now().Add(a.config.VisibilityExtension)
			if err := a.queue.SetVisibleAfter(context.Background(), nil, reportID, visibleAfter); err != nil {
				a.logger.Error("heartbeat failed", "report_id", reportID.String(), "error", err)
			}
		}
	}
}
