// Package learning records tool invocation outcomes and turns the
// accumulated history into ranked tool recommendations and failure
// pattern analyses.
//
// The UsageRecorder appends immutable ToolUsageMetrics to a journal.
// The PerformanceIndex derives per-tool aggregates from that log,
// either incrementally or via a full rebuild; the two paths are
// guaranteed to converge. The RecommendationEngine scores permitted,
// capable tools by success rate and contextual fit.
package learning
