package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/canopyhq/canopy/pkg/observability"
)

// Sink is an append-only destination for audit events
type Sink interface {
	// Append records one event. Implementations must not mutate the event
	// beyond filling ID and Timestamp when unset.
	Append(ctx context.Context, event *Event) error

	// Close flushes and releases the sink.
	Close() error
}

// prepare fills defaults shared by all sinks.
func prepare(event *Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
}

// NopSink discards all events
type NopSink struct{}

func (NopSink) Append(ctx context.Context, event *Event) error { return nil }
func (NopSink) Close() error                                   { return nil }

// LogSink writes events to the structured logger
type LogSink struct {
	logger *observability.Logger
}

// NewLogSink creates a sink that emits events as structured log lines.
func NewLogSink(logger *observability.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Append(ctx context.Context, event *Event) error {
	prepare(event)
	s.logger.WithFields(map[string]interface{}{
		"audit_id":      event.ID,
		"event_type":    string(event.Type),
		"status":        string(event.Status),
		"actor_email":   event.ActorEmail,
		"agency_id":     event.AgencyID,
		"resource_type": string(event.ResourceType),
		"resource_id":   event.ResourceID,
	}).Info(event.Message)
	return nil
}

func (s *LogSink) Close() error { return nil }

// MultiSink fans out to several sinks. Append succeeds if at least one sink
// accepts the event; per-sink failures are reported through the returned
// error only when every sink fails.
type MultiSink struct {
	sinks  []Sink
	logger *observability.Logger
}

// NewMultiSink creates a fan-out sink.
func NewMultiSink(logger *observability.Logger, sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks, logger: logger}
}

func (m *MultiSink) Append(ctx context.Context, event *Event) error {
	prepare(event)
	var lastErr error
	failures := 0
	for _, sink := range m.sinks {
		if err := sink.Append(ctx, event); err != nil {
			failures++
			lastErr = err
			m.logger.WithError(err).Warn("audit sink append failed")
		}
	}
	if failures == len(m.sinks) && lastErr != nil {
		return lastErr
	}
	return nil
}

func (m *MultiSink) Close() error {
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
