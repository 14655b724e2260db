// Package logger provides structured logging setup using slog.
package logger

import (
	"context"
	"log/slog"
	"os"
)

// reportIDKey is the context key for report-scoped correlation.
type reportIDKey struct{}

// New creates a new structured JSON logger for the given service.
func New(service string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})).With("service", service)
}

// WithReportID returns a new context carrying the report ID.
func WithReportID(ctx context.Context, reportID string) context.Context {
	return context.WithValue(ctx, reportIDKey{}, reportID)
}

// ReportIDFromContext extracts the report ID from the context.
func ReportIDFromContext(ctx context.Context) string {
	if v := ctx.Value(reportIDKey{}); v != nil {
		return v.(string)
	}
	return ""
}

// FromContext returns a logger with context fields attached.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if id := ReportIDFromContext(ctx); id != "" {
		return base.With("report_id", id)
	}
	return base
}
