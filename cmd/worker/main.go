// Package main is the entry point for the reportplane worker.
// The worker pulls queued reports, runs the generation pipeline over them,
// and owns the periodic maintenance sweeps.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"reportplane/internal/config"
	"reportplane/internal/logger"
	"reportplane/internal/maintenance"
	"reportplane/internal/notify"
	"reportplane/internal/observability"
	"reportplane/internal/pipeline"
	"reportplane/internal/progress"
	"reportplane/internal/stages"
	"reportplane/internal/store/postgres"
	"reportplane/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New("reportplane-worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer store.Close()

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "reportplane-worker", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

	hostname, _ := os.Hostname()

	// Progress events are forwarded to the controller, which fans them out
	// to websocket subscribers.
	publisher := progress.NewRemotePublisher(cfg.ControllerURL, slogger)

	orchestrator := pipeline.New(pipeline.Config{
		Reports:      store,
		Stages:       stages.Registry(),
		Hub:          publisher,
		Notifier:     notify.NewWebhook(cfg.NotifyWebhookURL),
		StageTimeout: cfg.StageTimeout,
		Logger:       slogger,
	})

	agent := worker.New(store, store, orchestrator, worker.AgentConfig{
		ID:           hostname,
		Concurrency:  cfg.WorkerConcurrency,
		PollInterval: cfg.WorkerPollInterval,
		MaxBackoff:   cfg.WorkerMaxBackoff,
	}, slogger)

	log.Printf("Worker started with concurrency %d", cfg.WorkerConcurrency)
	go agent.Run(ctx)

	// Maintenance sweeps run alongside the pull-loop.
	sweeper := maintenance.New(store, maintenance.Config{
		Interval:         cfg.SweepInterval,
		StuckThreshold:   cfg.StuckThreshold,
		PendingThreshold: cfg.PendingThreshold,
		Retention:        cfg.Retention,
	}, slogger)
	go sweeper.Run(ctx)

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Printf("Failed to shutdown metrics: %v", err)
		}
	}()

	// Start a dedicated metrics server on port 6162
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		log.Println("Worker metrics listening on :6162")
		if err := http.ListenAndServe(":6162", mux); err != nil {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	cancel()

	<-agent.Done()
}
