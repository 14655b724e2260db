// Package controller contains the controller-specific logic for the HTTP API.
package controller

import (
	"context"
	"net/http"
	"time"

	"reportplane/internal/controller/handlers"
	"reportplane/internal/controller/middleware"
	"reportplane/internal/progress"

	"golang.org/x/time/rate"
)

// Config holds the HTTP server configuration.
type Config struct {
	Addr           string
	RateLimit      rate.Limit // requests per second per client IP, 0 = unlimited
	RateLimitBurst int

	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
}

// Server is the HTTP server for the controller API.
type Server struct {
	httpServer *http.Server
}

// New creates a new controller server.
func New(cfg Config, store handlers.StoreFactory, hub *progress.Hub) *Server {
	h := handlers.New(store, hub)
	limitMW := middleware.RateLimitMiddleware(cfg.RateLimit, cfg.RateLimitBurst)

	mux := http.NewServeMux()

	mux.Handle("POST /reports", limitMW(http.HandlerFunc(h.CreateReport)))
	mux.Handle("GET /reports/{id}", limitMW(http.HandlerFunc(h.GetReport)))
	mux.Handle("POST /reports/{id}/cancel", limitMW(http.HandlerFunc(h.CancelReport)))
	mux.Handle("POST /reports/{id}/share", limitMW(http.HandlerFunc(h.ShareReport)))
	mux.Handle("GET /shared/{token}", limitMW(http.HandlerFunc(h.GetSharedReport)))

	// Websocket subscriptions are long-lived; only the handshake is limited.
	mux.Handle("GET /reports/ws", limitMW(http.HandlerFunc(h.ListSocket)))
	mux.Handle("GET /reports/{id}/ws", limitMW(http.HandlerFunc(h.ReportSocket)))

	// Internal endpoints
	// These are called by the Worker Agent.
	// these should run on a separate port or strict network rules.
	mux.HandleFunc("POST /internal/progress", h.InternalPublishProgress)

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:        cfg.Addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// No WriteTimeout: websocket subscriptions outlive any sane value.
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
