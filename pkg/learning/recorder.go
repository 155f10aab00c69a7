package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harun/toolgate/internal/metrics"
	"github.com/harun/toolgate/pkg/journal"
)

// UsageRecorder is the append-only sequence of invocation outcomes.
// Entries are never mutated or deleted; retention is a policy external
// to this package.
type UsageRecorder struct {
	journal journal.Journal
	metrics *metrics.Metrics
}

// NewUsageRecorder creates a recorder over a journal
func NewUsageRecorder(j journal.Journal) *UsageRecorder {
	return &UsageRecorder{journal: j}
}

// WithMetrics attaches Prometheus metrics and returns the recorder
func (ur *UsageRecorder) WithMetrics(m *metrics.Metrics) *UsageRecorder {
	ur.metrics = m
	return ur
}

// Record durably appends one usage record. A persistence error is
// reported to the caller but never blocks or rolls back the completed
// tool invocation.
func (ur *UsageRecorder) Record(ctx context.Context, m ToolUsageMetrics) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(m)
	if err != nil {
		ur.observe("error")
		return fmt.Errorf("%w: %v", ErrRecording, err)
	}

	rec := journal.Record{
		Timestamp: m.Timestamp,
		Payload:   payload,
	}
	if err := ur.journal.Append(ctx, rec); err != nil {
		ur.observe("error")
		log.Error().
			Str("tool", m.ToolName).
			Err(err).
			Msg("Failed to record tool usage")
		return fmt.Errorf("%w: %v", ErrRecording, err)
	}

	ur.observe("ok")

	log.Debug().
		Str("tool", m.ToolName).
		Bool("success", m.Success).
		Float64("execution_time", m.ExecutionTime).
		Msg("Tool usage recorded")

	return nil
}

// Stream invokes fn for every record in timestamp order, optionally
// filtered to one tool. Re-streaming yields the same sequence assuming
// no new appends.
func (ur *UsageRecorder) Stream(ctx context.Context, tool string, fn func(ToolUsageMetrics) error) error {
	return ur.journal.Stream(ctx, time.Time{}, func(rec journal.Record) error {
		var m ToolUsageMetrics
		if err := json.Unmarshal(rec.Payload, &m); err != nil {
			log.Warn().Str("record_id", rec.ID).Err(err).Msg("Skipping undecodable usage record")
			return nil
		}
		if tool != "" && m.ToolName != tool {
			return nil
		}
		return fn(m)
	})
}

// Close closes the underlying journal
func (ur *UsageRecorder) Close() error {
	return ur.journal.Close()
}

func (ur *UsageRecorder) observe(status string) {
	if ur.metrics != nil {
		ur.metrics.RecordingsTotal.WithLabelValues(status).Inc()
	}
}
