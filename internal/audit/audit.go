package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of auditable event
type EventType string

const (
	EventFaceEnrolled   EventType = "FACE_ENROLLED"
	EventFaceRemoved    EventType = "FACE_REMOVED"
	EventFaceRecognized EventType = "FACE_RECOGNIZED"
	EventStoreSynced    EventType = "STORE_SYNCED"
)

// Event represents an audit event. Biometric data (frames, embeddings) is
// never part of an event.
type Event struct {
	ID        uuid.UUID         `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Username  string            `json:"username"`
	EventType EventType         `json:"event_type"`
	Name      string            `json:"name,omitempty"`
	Detector  string            `json:"detector"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event) error
}

// SlogLogger implements Logger using slog
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a new audit logger using slog
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger.With("component", "audit"),
	}
}

// Log records an audit event, at warn level when the operation failed
func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	event = stamp(event)

	eventJSON, err := json.Marshal(event)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to marshal audit event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(event.EventType)),
		)
		return err
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}

	l.logger.LogAttrs(ctx, level, "audit_event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.String("username", event.Username),
		slog.String("detector", event.Detector),
		slog.Bool("success", event.Success),
		slog.String("event_data", string(eventJSON)),
	)

	return nil
}

func stamp(event Event) Event {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return event
}

// NoOpLogger is a logger that does nothing (for testing or when audit is disabled)
type NoOpLogger struct{}

// Log does nothing and returns nil
func (l *NoOpLogger) Log(_ context.Context, _ Event) error {
	return nil
}

// MemoryLogger keeps events in memory, for tests and the CLI summary
type MemoryLogger struct {
	mu     sync.Mutex
	events []Event
}

// Log appends the event
func (l *MemoryLogger) Log(_ context.Context, event Event) error {
	l.mu.Lock()
	l.events = append(l.events, stamp(event))
	l.mu.Unlock()
	return nil
}

// Events returns a copy of the recorded events
func (l *MemoryLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}
