package learning

import (
	"fmt"
	"time"
)

// ToolUsageMetrics is an immutable record of one tool invocation's
// outcome and context
type ToolUsageMetrics struct {
	ToolName      string                 `json:"tool_name"`
	Timestamp     time.Time              `json:"timestamp"`
	Success       bool                   `json:"success"`
	ExecutionTime float64                `json:"execution_time"` // seconds
	ErrorMessage  string                 `json:"error_message,omitempty"`
	Context       map[string]interface{} `json:"context,omitempty"`
	InputParams   map[string]interface{} `json:"input_params,omitempty"`
	OutputResult  map[string]interface{} `json:"output_result,omitempty"`
}

// Validate rejects records that could corrupt the aggregates
func (m ToolUsageMetrics) Validate() error {
	if m.ToolName == "" {
		return fmt.Errorf("%w: tool name cannot be empty", ErrInvalidMetrics)
	}
	if m.ExecutionTime < 0 {
		return fmt.Errorf("%w: execution time must be >= 0", ErrInvalidMetrics)
	}
	return nil
}

// ToolPerformanceMetrics is the derived, rebuildable aggregate for one
// tool. It is always a pure function of the usage log.
type ToolPerformanceMetrics struct {
	ToolName        string           `json:"tool_name"`
	TotalUses       int64            `json:"total_uses"`
	SuccessfulUses  int64            `json:"successful_uses"`
	FailedUses      int64            `json:"failed_uses"`
	MeanSuccessTime *float64         `json:"mean_success_time,omitempty"` // over successes only
	LastUsed        *time.Time       `json:"last_used,omitempty"`
	LastFailures    []time.Time      `json:"last_failures,omitempty"` // most recent first, bounded
	ErrorCounts     map[string]int64 `json:"error_counts,omitempty"`
	ContextCounts   map[string]int64 `json:"context_counts,omitempty"` // "key:value" -> occurrences
}

// SuccessRate returns successes/total, or 0 when no uses are recorded
func (p ToolPerformanceMetrics) SuccessRate() float64 {
	if p.TotalUses == 0 {
		return 0
	}
	return float64(p.SuccessfulUses) / float64(p.TotalUses)
}

// contextKey builds the histogram key for one context pair. Values are
// matched exactly via their formatted form.
func contextKey(key string, value interface{}) string {
	return fmt.Sprintf("%s:%v", key, value)
}
