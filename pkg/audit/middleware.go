// Package audit provides middleware for auditing HTTP requests
package audit

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/tendant/simple-mfa/pkg/clock"
)

// Config holds the configuration for the audit middleware
type Config struct {
	// Source specifies the source of the audit events
	Source string
	// EventType specifies the type of audit events
	EventType string
	// Logger receives one record per request
	Logger *slog.Logger
	// Clock is used for timestamps and durations, defaults to the real clock
	Clock clock.Clock
}

// Middleware handles HTTP request auditing
type Middleware struct {
	config Config
}

// NewMiddleware creates a new audit middleware instance
func NewMiddleware(config Config) *Middleware {
	if config.Source == "" {
		config.Source = "simple-mfa"
	}
	if config.EventType == "" {
		config.EventType = "audit.mfa.request"
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}

	return &Middleware{config: config}
}

// AuditEvent represents an audit event
type AuditEvent struct {
	ID        uuid.UUID
	URI       string
	Method    string
	Remote    string
	Status    int
	Duration  time.Duration
	Timestamp time.Time
	Metadata  map[string]any
}

// Handler records the outcome of every request. Request bodies are never
// logged, so submitted codes stay out of the audit trail.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := m.config.Clock.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		event := AuditEvent{
			ID:        uuid.New(),
			URI:       r.URL.Path,
			Method:    r.Method,
			Remote:    r.RemoteAddr,
			Status:    status,
			Duration:  m.config.Clock.Now().Sub(start),
			Timestamp: start,
		}
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			event = event.WithMetadata("request_id", reqID)
		}

		m.auditRequest(r.Context(), event)
	})
}

func (m *Middleware) auditRequest(ctx context.Context, event AuditEvent) {
	level := slog.LevelInfo
	if event.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	} else if event.Status >= http.StatusBadRequest {
		level = slog.LevelWarn
	}

	m.config.Logger.Log(ctx, level, "Audit event",
		"id", event.ID.String(),
		"source", m.config.Source,
		"type", m.config.EventType,
		"method", event.Method,
		"uri", event.URI,
		"remote", event.Remote,
		"status", event.Status,
		"duration", event.Duration,
		"timestamp", event.Timestamp.Format(time.RFC3339),
		"metadata", event.Metadata,
	)
}

// WithMetadata adds metadata to the audit event
func (e AuditEvent) WithMetadata(key string, value any) AuditEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}
