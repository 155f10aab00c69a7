package learning

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// topClusters caps how many clusters each grouping reports
const topClusters = 5

// Cluster is one failure grouping and its occurrence count
type Cluster struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// FailureAnalysis summarizes a tool's failure patterns, surfacing
// systemic problems rather than isolated incidents
type FailureAnalysis struct {
	ToolName        string    `json:"tool_name"`
	TotalFailures   int64     `json:"total_failures"`
	FailureRate     float64   `json:"failure_rate"`
	CommonErrors    []Cluster `json:"common_errors"`
	FailureContexts []Cluster `json:"failure_contexts"`
	FailureParams   []Cluster `json:"failure_params"`
}

var digitRuns = regexp.MustCompile(`\d+`)

// normalizeError collapses message variants so retries and counters
// don't split one systemic failure into many clusters
func normalizeError(msg string) string {
	normalized := strings.ToLower(strings.TrimSpace(msg))
	return digitRuns.ReplaceAllString(normalized, "#")
}

// AnalyzeFailures groups a tool's failed usage records by normalized
// error message and by the context and input pairs that co-occur with
// failure, returning the most frequent clusters of each
func (re *RecommendationEngine) AnalyzeFailures(ctx context.Context, tool string) (FailureAnalysis, error) {
	analysis := FailureAnalysis{ToolName: tool}

	var total, failures int64
	errorCounts := make(map[string]int64)
	contextCounts := make(map[string]int64)
	paramCounts := make(map[string]int64)

	err := re.index.recorder.Stream(ctx, tool, func(m ToolUsageMetrics) error {
		total++
		if m.Success {
			return nil
		}
		failures++

		if m.ErrorMessage != "" {
			errorCounts[normalizeError(m.ErrorMessage)]++
		}
		for key, value := range m.Context {
			contextCounts[contextKey(key, value)]++
		}
		for key, value := range m.InputParams {
			paramCounts[contextKey(key, value)]++
		}
		return nil
	})
	if err != nil {
		return FailureAnalysis{}, err
	}

	analysis.TotalFailures = failures
	if total > 0 {
		analysis.FailureRate = float64(failures) / float64(total)
	}
	analysis.CommonErrors = topOf(errorCounts)
	analysis.FailureContexts = topOf(contextCounts)
	analysis.FailureParams = topOf(paramCounts)

	return analysis, nil
}

// topOf returns the highest-count clusters, count descending, key
// ascending on ties for deterministic output
func topOf(counts map[string]int64) []Cluster {
	clusters := make([]Cluster, 0, len(counts))
	for key, count := range counts {
		clusters = append(clusters, Cluster{Key: key, Count: count})
	}

	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Count != clusters[j].Count {
			return clusters[i].Count > clusters[j].Count
		}
		return clusters[i].Key < clusters[j].Key
	})

	if len(clusters) > topClusters {
		clusters = clusters[:topClusters]
	}
	return clusters
}
