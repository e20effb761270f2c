// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// PersonnelIDKey is the context key for the acting personnel ID
	PersonnelIDKey contextKey = "personnel_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with request-scoped values extracted.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if personnelID, ok := ctx.Value(PersonnelIDKey).(string); ok && personnelID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("personnel_id", personnelID))}
	}

	return newLogger
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// BookingRejected logs a booking request that failed validation.
func (l *Logger) BookingRejected(siteID uuid.UUID, visitType string, reason string) {
	l.Warn("booking_rejected",
		slog.String("site_id", siteID.String()),
		slog.String("visit_type", visitType),
		slog.String("reason", reason),
	)
}

// StageChanged logs a visit stage transition.
func (l *Logger) StageChanged(visitID uuid.UUID, fromStage, toStage string) {
	l.Info("visit_stage_changed",
		slog.String("visit_id", visitID.String()),
		slog.String("from", fromStage),
		slog.String("to", toStage),
	)
}

// SweepBatch logs the outcome of one expiry sweep batch.
func (l *Logger) SweepBatch(siteID uuid.UUID, expired, noShow, completed int) {
	l.Info("expiry_sweep_batch",
		slog.String("site_id", siteID.String()),
		slog.Int("expired", expired),
		slog.Int("no_show", noShow),
		slog.Int("completed", completed),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
