package tracing

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "trace_id"
	// AttemptIDKey is the context key for the validation attempt ID
	AttemptIDKey ContextKey = "attempt_id"
	// CallerIDKey is the context key for the invoking agent's identity
	CallerIDKey ContextKey = "caller_id"
)

// TraceContext holds tracing information
type TraceContext struct {
	TraceID   string
	AttemptID string
	CallerID  string
}

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithAttemptID adds a validation attempt ID to the context
func WithAttemptID(ctx context.Context, attemptID string) context.Context {
	return context.WithValue(ctx, AttemptIDKey, attemptID)
}

// WithCallerID adds the invoking agent's identity to the context
func WithCallerID(ctx context.Context, callerID string) context.Context {
	return context.WithValue(ctx, CallerIDKey, callerID)
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// GetAttemptID retrieves the validation attempt ID from the context
func GetAttemptID(ctx context.Context) string {
	if attemptID, ok := ctx.Value(AttemptIDKey).(string); ok {
		return attemptID
	}
	return ""
}

// GetCallerID retrieves the invoking agent's identity from the context
func GetCallerID(ctx context.Context) string {
	if callerID, ok := ctx.Value(CallerIDKey).(string); ok {
		return callerID
	}
	return ""
}

// FromContext extracts all tracing information from the context
func FromContext(ctx context.Context) *TraceContext {
	return &TraceContext{
		TraceID:   GetTraceID(ctx),
		AttemptID: GetAttemptID(ctx),
		CallerID:  GetCallerID(ctx),
	}
}

// NewContext creates a new context with tracing information
func NewContext(ctx context.Context, tc *TraceContext) context.Context {
	if tc.TraceID != "" {
		ctx = WithTraceID(ctx, tc.TraceID)
	}
	if tc.AttemptID != "" {
		ctx = WithAttemptID(ctx, tc.AttemptID)
	}
	if tc.CallerID != "" {
		ctx = WithCallerID(ctx, tc.CallerID)
	}
	return ctx
}
