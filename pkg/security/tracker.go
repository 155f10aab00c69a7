package security

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// ResourceTracker holds per-tool resource ceilings plus live counters
// for cumulative usage. Checks and limit mutations for the same tool
// are serialized by a per-tool lock; different tools proceed
// independently.
type ResourceTracker struct {
	filePath string
	mu       sync.RWMutex
	tools    map[string]*toolState
}

type toolState struct {
	mu     sync.Mutex
	limits *ResourceLimit

	// cumulative network requests reserved against MaxNetworkRequests
	networkReserved float64
}

// NewResourceTracker creates a tracker backed by the given JSON file,
// loading existing limits if the file exists
func NewResourceTracker(filePath string) (*ResourceTracker, error) {
	rt := &ResourceTracker{
		filePath: filePath,
		tools:    make(map[string]*toolState),
	}

	if err := rt.Reload(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load resource limits: %w", err)
		}
		log.Info().Str("path", filePath).Msg("Resource limits file does not exist, will create on first set")
	}

	return rt, nil
}

// Path returns the backing file path
func (rt *ResourceTracker) Path() string {
	return rt.filePath
}

// SetLimits replaces the stored limits for a tool (full replace, not
// merge) and persists before returning. It never interleaves with a
// concurrent Check for the same tool.
func (rt *ResourceTracker) SetLimits(tool string, limits ResourceLimit) error {
	if tool == "" {
		return fmt.Errorf("%w: tool name cannot be empty", ErrConfiguration)
	}
	if err := validateLimits(&limits); err != nil {
		return err
	}

	state := rt.state(tool, true)

	state.mu.Lock()
	prev := state.limits
	state.limits = limits.clone()
	state.mu.Unlock()

	if err := rt.save(); err != nil {
		state.mu.Lock()
		state.limits = prev
		state.mu.Unlock()
		return err
	}

	log.Info().
		Str("tool", tool).
		Msg("Resource limits set")

	return nil
}

// Limits returns a copy of the stored limits for a tool, or nil when no
// entry exists
func (rt *ResourceTracker) Limits(tool string) *ResourceLimit {
	state := rt.state(tool, false)
	if state == nil {
		return nil
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	return state.limits.clone()
}

// Clear removes a tool's limits entry and persists the store
func (rt *ResourceTracker) Clear(tool string) error {
	rt.mu.Lock()
	state, existed := rt.tools[tool]
	if existed {
		delete(rt.tools, tool)
	}
	rt.mu.Unlock()

	if !existed {
		return nil
	}

	if err := rt.save(); err != nil {
		rt.mu.Lock()
		rt.tools[tool] = state
		rt.mu.Unlock()
		return err
	}

	log.Info().Str("tool", tool).Msg("Resource limits cleared")

	return nil
}

// Tools returns the names of all tools with a limits entry, sorted
func (rt *ResourceTracker) Tools() []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	tools := make([]string, 0, len(rt.tools))
	for tool, state := range rt.tools {
		state.mu.Lock()
		hasLimits := state.limits != nil
		state.mu.Unlock()
		if hasLimits {
			tools = append(tools, tool)
		}
	}
	sort.Strings(tools)

	return tools
}

// CheckOptions tunes Check behavior for the deployment
type CheckOptions struct {
	// Strict treats a sampled dimension with no configured limit as
	// a validation failure instead of ignoring it
	Strict bool

	// RequireLimits extends strict mode to tools with no limits
	// entry at all: a non-empty sample is denied with unknown_limit
	// rather than treated as unbounded
	RequireLimits bool
}

// Check compares a usage sample against the tool's configured limits.
// The same logic serves pre-execution estimates and post-hoc actual
// usage. The check is atomic with respect to a concurrent SetLimits
// for the same tool.
func (rt *ResourceTracker) Check(tool string, sample UsageSample, opts CheckOptions) Decision {
	state := rt.state(tool, false)
	if state == nil {
		return checkLimits(nil, sample, opts, false)
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	return checkLimits(state.limits, sample, opts, false)
}

// Reserve checks a sample like Check and, on success, folds its
// network_requests dimension into the tool's cumulative counter so the
// MaxNetworkRequests ceiling bounds total usage across invocations.
// Callers that time out must Release to avoid leaking the reservation.
func (rt *ResourceTracker) Reserve(tool string, sample UsageSample, opts CheckOptions) Decision {
	state := rt.state(tool, false)
	if state == nil {
		return rt.Check(tool, sample, opts)
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	limits := state.limits
	if limits != nil && limits.MaxNetworkRequests != nil {
		requested := sample.Dimensions[DimNetworkRequests]
		if state.networkReserved+requested > *limits.MaxNetworkRequests {
			return denied(ReasonResourceExceeded, DimNetworkRequests)
		}
	}

	// Re-run the plain check on the remaining dimensions while still
	// holding the tool lock.
	decision := checkLimits(limits, sample, opts, true)
	if !decision.Allowed {
		return decision
	}

	if limits != nil && limits.MaxNetworkRequests != nil {
		state.networkReserved += sample.Dimensions[DimNetworkRequests]
	}

	return decision
}

// Release undoes a prior Reserve for the sample's network_requests
// dimension
func (rt *ResourceTracker) Release(tool string, sample UsageSample) {
	state := rt.state(tool, false)
	if state == nil {
		return
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	state.networkReserved -= sample.Dimensions[DimNetworkRequests]
	if state.networkReserved < 0 {
		state.networkReserved = 0
	}
}

// checkLimits compares a sample against a limits entry. skipNetwork is
// set by Reserve, which enforces the network ceiling cumulatively
// instead. A nil entry means every dimension is unset, which is allowed
// unless the deployment requires bounded tools.
func checkLimits(limits *ResourceLimit, sample UsageSample, opts CheckOptions, skipNetwork bool) Decision {
	if limits == nil {
		if opts.Strict && opts.RequireLimits && !sample.IsEmpty() {
			return denied(ReasonUnknownLimit, "")
		}
		return allowed()
	}

	// Deterministic dimension order for reproducible denial reasons
	dims := make([]string, 0, len(sample.Dimensions))
	for dim := range sample.Dimensions {
		dims = append(dims, dim)
	}
	sort.Strings(dims)

	for _, dim := range dims {
		if skipNetwork && dim == DimNetworkRequests {
			continue
		}
		value := sample.Dimensions[dim]
		ceiling := limits.limit(dim)
		if ceiling == nil {
			if opts.Strict {
				return denied(ReasonUnknownLimit, dim)
			}
			continue
		}
		if value > *ceiling {
			return denied(ReasonResourceExceeded, dim)
		}
	}

	// Allow-lists fail closed: once configured, an absent or
	// unlisted value is a denial.
	if len(limits.AllowedDomains) > 0 {
		if sample.Domain == "" || !containsString(limits.AllowedDomains, sample.Domain) {
			return denied(ReasonResourceExceeded, "domain")
		}
	}
	if len(limits.AllowedPaths) > 0 {
		if sample.Path == "" || !hasPathPrefix(limits.AllowedPaths, sample.Path) {
			return denied(ReasonResourceExceeded, "path")
		}
	}

	return allowed()
}

// Reload re-reads the backing file, replacing in-memory limits. Live
// reservation counters are preserved for tools that keep an entry.
func (rt *ResourceTracker) Reload() error {
	data, err := os.ReadFile(rt.filePath)
	if err != nil {
		return err
	}

	if err := validateDocument(limitsSchema, data); err != nil {
		return fmt.Errorf("%w: resource limits file %s: %v", ErrConfiguration, rt.filePath, err)
	}

	var raw map[string]ResourceLimit
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: failed to parse resource limits file: %v", ErrConfiguration, err)
	}

	for tool := range raw {
		limits := raw[tool]
		if err := validateLimits(&limits); err != nil {
			return fmt.Errorf("tool %s: %w", tool, err)
		}
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	for tool := range rt.tools {
		if _, ok := raw[tool]; !ok {
			delete(rt.tools, tool)
		}
	}
	for tool, limits := range raw {
		state, ok := rt.tools[tool]
		if !ok {
			state = &toolState{}
			rt.tools[tool] = state
		}
		state.mu.Lock()
		state.limits = limits.clone()
		state.mu.Unlock()
	}

	log.Debug().
		Str("path", rt.filePath).
		Int("tools", len(raw)).
		Msg("Resource limits loaded")

	return nil
}

// state returns the per-tool state, optionally creating it
func (rt *ResourceTracker) state(tool string, create bool) *toolState {
	rt.mu.RLock()
	state, ok := rt.tools[tool]
	rt.mu.RUnlock()
	if ok || !create {
		return state
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if state, ok = rt.tools[tool]; ok {
		return state
	}
	state = &toolState{}
	rt.tools[tool] = state

	return state
}

func (rt *ResourceTracker) save() error {
	rt.mu.RLock()
	raw := make(map[string]*ResourceLimit, len(rt.tools))
	for tool, state := range rt.tools {
		state.mu.Lock()
		if state.limits != nil {
			raw[tool] = state.limits.clone()
		}
		state.mu.Unlock()
	}
	rt.mu.RUnlock()

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal resource limits: %w", err)
	}

	return writeFileAtomic(rt.filePath, data)
}

// validateLimits rejects malformed limit values before any state
// mutation
func validateLimits(limits *ResourceLimit) error {
	check := func(name string, v *float64) error {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: %s must be >= 0", ErrConfiguration, name)
		}
		return nil
	}

	if err := check("max_memory_mb", limits.MaxMemoryMB); err != nil {
		return err
	}
	if limits.MaxCPUPercent != nil && (*limits.MaxCPUPercent < 0 || *limits.MaxCPUPercent > 100) {
		return fmt.Errorf("%w: max_cpu_percent must be within 0-100", ErrConfiguration)
	}
	if err := check("max_execution_time_sec", limits.MaxExecutionTimeSec); err != nil {
		return err
	}
	if err := check("max_file_size_mb", limits.MaxFileSizeMB); err != nil {
		return err
	}
	if err := check("max_network_requests", limits.MaxNetworkRequests); err != nil {
		return err
	}

	for _, domain := range limits.AllowedDomains {
		if strings.TrimSpace(domain) == "" {
			return fmt.Errorf("%w: allowed_domains entries cannot be empty", ErrConfiguration)
		}
	}
	for _, path := range limits.AllowedPaths {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("%w: allowed_paths entries cannot be empty", ErrConfiguration)
		}
	}

	return nil
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func hasPathPrefix(prefixes []string, path string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
