package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestPropagateToLogger(t *testing.T) {
	ctx := context.Background()
	ctx = WithTraceID(ctx, "trace-123")
	ctx = WithAttemptID(ctx, "attempt-456")
	ctx = WithCallerID(ctx, "agent-789")

	var buf bytes.Buffer
	baseLogger := zerolog.New(&buf)

	logger := PropagateToLogger(ctx, baseLogger)
	logger.Info().Msg("test message")

	output := buf.String()

	if !contains(output, "trace-123") {
		t.Error("Trace ID not in log output")
	}
	if !contains(output, "attempt-456") {
		t.Error("Attempt ID not in log output")
	}
	if !contains(output, "agent-789") {
		t.Error("Caller ID not in log output")
	}
}

func TestLoggerFromContext(t *testing.T) {
	ctx := context.Background()
	ctx = WithTraceID(ctx, "trace-xyz")

	var buf bytes.Buffer
	baseLogger := zerolog.New(&buf)

	logger := LoggerFromContext(ctx, baseLogger)
	logger.Info().Msg("test")

	output := buf.String()
	if !contains(output, "trace-xyz") {
		t.Error("Trace ID not in log output")
	}
}

func TestMergeContext(t *testing.T) {
	sourceCtx := context.Background()
	sourceCtx = WithTraceID(sourceCtx, "trace-source")
	sourceCtx = WithAttemptID(sourceCtx, "attempt-source")

	targetCtx := context.Background()

	mergedCtx := MergeContext(targetCtx, sourceCtx)

	if GetTraceID(mergedCtx) != "trace-source" {
		t.Error("Trace ID not merged")
	}
	if GetAttemptID(mergedCtx) != "attempt-source" {
		t.Error("Attempt ID not merged")
	}
}

func TestMergeContextNoOverwrite(t *testing.T) {
	sourceCtx := context.Background()
	sourceCtx = WithTraceID(sourceCtx, "trace-source")

	targetCtx := context.Background()
	targetCtx = WithTraceID(targetCtx, "trace-target")

	mergedCtx := MergeContext(targetCtx, sourceCtx)

	if GetTraceID(mergedCtx) != "trace-target" {
		t.Error("Trace ID should not be overwritten")
	}
}

func contains(s, substr string) bool {
	return bytes.Contains([]byte(s), []byte(substr))
}
