// Package audit records security-relevant events: principal
// resolutions, break-glass elevations, denied authorization checks and
// emergency ownership grants. Audit failures never block the audited
// operation.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Logger is the audit sink interface.
type Logger interface {
	// Log records one audit event. Implementations fill in ID and
	// Timestamp when absent.
	Log(ctx context.Context, event *Event) error

	// Close flushes and releases the sink.
	Close() error
}

type contextKey string

const loggerKey contextKey = "audit_logger"

// WithLogger attaches an audit logger to the context.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the audit logger from context, falling back to
// a no-op sink.
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey).(Logger); ok {
		return logger
	}
	return NopLogger{}
}

// NopLogger discards every event.
type NopLogger struct{}

func (NopLogger) Log(ctx context.Context, event *Event) error { return nil }
func (NopLogger) Close() error                                { return nil }

// fill populates the generated fields of an event.
func fill(event *Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
}

// Record is shorthand for building and logging an event in one call.
func Record(ctx context.Context, logger Logger, eventType EventType, status EventStatus, subject, username, message string) error {
	if logger == nil {
		logger = NopLogger{}
	}
	return logger.Log(ctx, &Event{
		EventType: eventType,
		Status:    status,
		Subject:   subject,
		Username:  username,
		Message:   message,
	})
}
