package security

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/harun/toolgate/pkg/journal"
)

// AuditLog is the append-only, crash-durable trail of security events.
// Appends are totally ordered and never dropped: a failed append is
// surfaced so the triggering validation can fail closed.
type AuditLog struct {
	journal journal.Journal
}

// NewAuditLog creates an audit log over a journal
func NewAuditLog(j journal.Journal) *AuditLog {
	return &AuditLog{journal: j}
}

// Append durably writes a security event. Returns ErrAuditWrite
// (wrapped) if the journal rejects the write; the event is immutable
// once this returns nil.
func (al *AuditLog) Append(ctx context.Context, event SecurityEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuditWrite, err)
	}

	rec := journal.Record{
		ID:        event.ID,
		Timestamp: event.Timestamp,
		Payload:   payload,
	}
	if err := al.journal.Append(ctx, rec); err != nil {
		return fmt.Errorf("%w: %v", ErrAuditWrite, err)
	}

	// Attach the decision to the active trace so hosts exporting
	// spans see security outcomes inline.
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent(string(event.Type), trace.WithAttributes(
			attribute.String("audit.tool", event.ToolName),
			attribute.String("audit.outcome", string(event.Outcome)),
		))
	}

	log.Debug().
		Str("tool", event.ToolName).
		Str("type", string(event.Type)).
		Str("outcome", string(event.Outcome)).
		Msg("Audit event appended")

	return nil
}

// Filter narrows a Query. Zero-value fields match everything.
type Filter struct {
	Tool  string
	Type  EventType
	Since time.Time
	Until time.Time
}

func (f Filter) matches(event SecurityEvent) bool {
	if f.Tool != "" && event.ToolName != f.Tool {
		return false
	}
	if f.Type != "" && event.Type != f.Type {
		return false
	}
	if !f.Since.IsZero() && event.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && event.Timestamp.After(f.Until) {
		return false
	}
	return true
}

// Query returns matching events in timestamp order
func (al *AuditLog) Query(ctx context.Context, filter Filter) ([]SecurityEvent, error) {
	var events []SecurityEvent

	err := al.journal.Stream(ctx, filter.Since, func(rec journal.Record) error {
		var event SecurityEvent
		if err := json.Unmarshal(rec.Payload, &event); err != nil {
			// Foreign records in a shared journal are not ours to
			// interpret.
			log.Warn().Str("record_id", rec.ID).Err(err).Msg("Skipping undecodable audit record")
			return nil
		}
		if filter.matches(event) {
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}

	return events, nil
}

// Each streams matching events without materializing the whole result
func (al *AuditLog) Each(ctx context.Context, filter Filter, fn func(SecurityEvent) error) error {
	return al.journal.Stream(ctx, filter.Since, func(rec journal.Record) error {
		var event SecurityEvent
		if err := json.Unmarshal(rec.Payload, &event); err != nil {
			return nil
		}
		if !filter.matches(event) {
			return nil
		}
		return fn(event)
	})
}

// Close closes the underlying journal
func (al *AuditLog) Close() error {
	return al.journal.Close()
}
