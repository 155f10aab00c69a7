package learning

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harun/toolgate/internal/metrics"
)

// maxTrackedFailures bounds the recent-failure timestamp list per tool
const maxTrackedFailures = 10

// PerformanceIndex is the derived aggregate over the usage log. It is
// rebuildable from scratch at any time, and a rebuild over N records
// yields exactly the same aggregates as N incremental updates: both
// paths share one fold function.
type PerformanceIndex struct {
	recorder *UsageRecorder
	metrics  *metrics.Metrics

	mu    sync.RWMutex
	tools map[string]*ToolPerformanceMetrics
}

// NewPerformanceIndex creates an index over a recorder. The index
// starts empty; call Rebuild to hydrate it from the log.
func NewPerformanceIndex(recorder *UsageRecorder) *PerformanceIndex {
	return &PerformanceIndex{
		recorder: recorder,
		tools:    make(map[string]*ToolPerformanceMetrics),
	}
}

// WithMetrics attaches Prometheus metrics and returns the index
func (pi *PerformanceIndex) WithMetrics(m *metrics.Metrics) *PerformanceIndex {
	pi.metrics = m
	return pi
}

// Update incrementally folds one new record into the cached aggregates
func (pi *PerformanceIndex) Update(m ToolUsageMetrics) {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	fold(pi.tools, m)
}

// Rebuild recomputes all aggregates from the full usage stream and
// swaps them in atomically. It may run concurrently with new Record
// calls; records appended after the scan starts are picked up by the
// next rebuild.
func (pi *PerformanceIndex) Rebuild(ctx context.Context) error {
	fresh := make(map[string]*ToolPerformanceMetrics)

	err := pi.recorder.Stream(ctx, "", func(m ToolUsageMetrics) error {
		fold(fresh, m)
		return nil
	})
	if err != nil {
		return err
	}

	pi.mu.Lock()
	pi.tools = fresh
	pi.mu.Unlock()

	if pi.metrics != nil {
		pi.metrics.IndexRebuildsTotal.Inc()
	}

	log.Debug().Int("tools", len(fresh)).Msg("Performance index rebuilt")

	return nil
}

// Get returns a copy of one tool's aggregates
func (pi *PerformanceIndex) Get(tool string) (ToolPerformanceMetrics, bool) {
	pi.mu.RLock()
	defer pi.mu.RUnlock()

	perf, ok := pi.tools[tool]
	if !ok {
		return ToolPerformanceMetrics{ToolName: tool}, false
	}
	return copyPerformance(perf), true
}

// All returns a copy of every tool's aggregates
func (pi *PerformanceIndex) All() map[string]ToolPerformanceMetrics {
	pi.mu.RLock()
	defer pi.mu.RUnlock()

	out := make(map[string]ToolPerformanceMetrics, len(pi.tools))
	for tool, perf := range pi.tools {
		out[tool] = copyPerformance(perf)
	}
	return out
}

// fold applies one usage record to an aggregate map. Update and
// Rebuild both go through here, which is what makes them converge.
func fold(tools map[string]*ToolPerformanceMetrics, m ToolUsageMetrics) {
	perf, ok := tools[m.ToolName]
	if !ok {
		perf = &ToolPerformanceMetrics{
			ToolName:      m.ToolName,
			ErrorCounts:   make(map[string]int64),
			ContextCounts: make(map[string]int64),
		}
		tools[m.ToolName] = perf
	}

	perf.TotalUses++
	ts := m.Timestamp
	perf.LastUsed = &ts

	if m.Success {
		perf.SuccessfulUses++
		// Running mean over successful invocations only
		var prev float64
		if perf.MeanSuccessTime != nil {
			prev = *perf.MeanSuccessTime
		}
		mean := prev + (m.ExecutionTime-prev)/float64(perf.SuccessfulUses)
		perf.MeanSuccessTime = &mean
	} else {
		perf.FailedUses++
		if m.ErrorMessage != "" {
			perf.ErrorCounts[m.ErrorMessage]++
		}
		perf.LastFailures = append([]time.Time{m.Timestamp}, perf.LastFailures...)
		if len(perf.LastFailures) > maxTrackedFailures {
			perf.LastFailures = perf.LastFailures[:maxTrackedFailures]
		}
	}

	for key, value := range m.Context {
		perf.ContextCounts[contextKey(key, value)]++
	}
}

func copyPerformance(perf *ToolPerformanceMetrics) ToolPerformanceMetrics {
	cp := *perf

	if perf.MeanSuccessTime != nil {
		mean := *perf.MeanSuccessTime
		cp.MeanSuccessTime = &mean
	}
	if perf.LastUsed != nil {
		last := *perf.LastUsed
		cp.LastUsed = &last
	}
	cp.LastFailures = append([]time.Time(nil), perf.LastFailures...)

	cp.ErrorCounts = make(map[string]int64, len(perf.ErrorCounts))
	for k, v := range perf.ErrorCounts {
		cp.ErrorCounts[k] = v
	}
	cp.ContextCounts = make(map[string]int64, len(perf.ContextCounts))
	for k, v := range perf.ContextCounts {
		cp.ContextCounts[k] = v
	}

	return cp
}
