package learning

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harun/toolgate/internal/metrics"
	"github.com/harun/toolgate/pkg/security"
)

// Default scoring weights
const (
	DefaultSuccessWeight = 0.7
	DefaultContextWeight = 0.3
)

// PermissionSource supplies the granted permission set per tool.
// *security.PermissionStore satisfies it.
type PermissionSource interface {
	Get(tool string) security.PermissionSet
}

// CapabilityProvider supplies the discovered capability set per tool.
// It is consumed read-only, once per Recommend call.
type CapabilityProvider interface {
	Tools() []string
	Capabilities(tool string) ([]string, bool)
}

// RecommendationEngine scores tools against a requested capability set
// and context using the performance index
type RecommendationEngine struct {
	index   *PerformanceIndex
	perms   PermissionSource
	catalog CapabilityProvider
	metrics *metrics.Metrics

	successWeight float64
	contextWeight float64
}

// EngineOption configures a RecommendationEngine
type EngineOption func(*RecommendationEngine)

// WithWeights overrides the scoring weights
func WithWeights(success, context float64) EngineOption {
	return func(re *RecommendationEngine) {
		re.successWeight = success
		re.contextWeight = context
	}
}

// WithEngineMetrics attaches Prometheus metrics
func WithEngineMetrics(m *metrics.Metrics) EngineOption {
	return func(re *RecommendationEngine) {
		re.metrics = m
	}
}

// NewRecommendationEngine creates an engine over the index, permission
// store and discovery catalog
func NewRecommendationEngine(index *PerformanceIndex, perms PermissionSource, catalog CapabilityProvider, opts ...EngineOption) *RecommendationEngine {
	re := &RecommendationEngine{
		index:         index,
		perms:         perms,
		catalog:       catalog,
		successWeight: DefaultSuccessWeight,
		contextWeight: DefaultContextWeight,
	}
	for _, opt := range opts {
		opt(re)
	}
	return re
}

type scored struct {
	name       string
	score      float64
	totalUses  int64
	hasHistory bool
}

// Recommend returns tool names ordered most-recommended first.
//
// Only tools with a non-empty granted permission set and a capability
// set covering requiredCapabilities are considered. Tools with zero
// recorded invocations are never preferred over tools with a track
// record, but remain in the list so a feasible tool is always offered.
// Ties break on higher total invocation count, then tool name, so the
// ordering is deterministic.
func (re *RecommendationEngine) Recommend(ctx context.Context, queryContext map[string]interface{}, requiredCapabilities []string) []string {
	start := time.Now()

	var candidates []scored
	for _, tool := range re.catalog.Tools() {
		if re.perms.Get(tool).IsEmpty() {
			continue
		}
		caps, ok := re.catalog.Capabilities(tool)
		if !ok || !coversAll(caps, requiredCapabilities) {
			continue
		}

		perf, _ := re.index.Get(tool)
		candidates = append(candidates, scored{
			name:       tool,
			score:      re.score(perf, queryContext),
			totalUses:  perf.TotalUses,
			hasHistory: perf.TotalUses > 0,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.hasHistory != b.hasHistory {
			return a.hasHistory
		}
		if a.score != b.score {
			return a.score > b.score
		}
		if a.totalUses != b.totalUses {
			return a.totalUses > b.totalUses
		}
		return a.name < b.name
	})

	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.name)
	}

	if re.metrics != nil {
		re.metrics.RecommendationDuration.Observe(time.Since(start).Seconds())
	}

	log.Debug().
		Strs("capabilities", requiredCapabilities).
		Int("candidates", len(names)).
		Msg("Recommendations computed")

	return names
}

func (re *RecommendationEngine) score(perf ToolPerformanceMetrics, queryContext map[string]interface{}) float64 {
	return re.successWeight*perf.SuccessRate() +
		re.contextWeight*contextSimilarity(perf, queryContext)
}

// contextSimilarity is the fraction of the query's key-value pairs seen
// with non-zero count in the tool's context histogram
func contextSimilarity(perf ToolPerformanceMetrics, queryContext map[string]interface{}) float64 {
	if len(queryContext) == 0 {
		return 0
	}

	matched := 0
	for key, value := range queryContext {
		if perf.ContextCounts[contextKey(key, value)] > 0 {
			matched++
		}
	}

	return float64(matched) / float64(len(queryContext))
}

func coversAll(caps, required []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(caps))
	for _, c := range caps {
		have[c] = struct{}{}
	}
	for _, r := range required {
		if _, ok := have[r]; !ok {
			return false
		}
	}
	return true
}
