package security

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResourceTracker(t *testing.T) *ResourceTracker {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resource_limits.json")
	rt, err := NewResourceTracker(path)
	require.NoError(t, err)
	return rt
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestResourceTracker_WithinLimitsAllowed(t *testing.T) {
	rt := newResourceTracker(t)
	require.NoError(t, rt.SetLimits("git", ResourceLimit{
		MaxMemoryMB:   floatPtr(1024),
		MaxCPUPercent: floatPtr(50),
	}))

	decision := rt.Check("git", UsageSample{
		Dimensions: map[string]float64{DimMemoryMB: 512, DimCPUPercent: 25},
	}, CheckOptions{})

	assert.True(t, decision.Allowed)
}

func TestResourceTracker_ExceededDenied(t *testing.T) {
	rt := newResourceTracker(t)
	require.NoError(t, rt.SetLimits("git", ResourceLimit{MaxMemoryMB: floatPtr(1024)}))

	decision := rt.Check("git", UsageSample{
		Dimensions: map[string]float64{DimMemoryMB: 2048},
	}, CheckOptions{})

	require.False(t, decision.Allowed)
	assert.Equal(t, ReasonResourceExceeded, decision.Reason)
	assert.Equal(t, DimMemoryMB, decision.Dimension)
}

func TestResourceTracker_UnconfiguredDimensionIgnored(t *testing.T) {
	rt := newResourceTracker(t)
	require.NoError(t, rt.SetLimits("git", ResourceLimit{MaxMemoryMB: floatPtr(1024)}))

	decision := rt.Check("git", UsageSample{
		Dimensions: map[string]float64{DimCPUPercent: 99},
	}, CheckOptions{})

	assert.True(t, decision.Allowed)
}

func TestResourceTracker_StrictDeniesUnconfiguredDimension(t *testing.T) {
	rt := newResourceTracker(t)
	require.NoError(t, rt.SetLimits("git", ResourceLimit{MaxMemoryMB: floatPtr(1024)}))

	decision := rt.Check("git", UsageSample{
		Dimensions: map[string]float64{DimCPUPercent: 10},
	}, CheckOptions{Strict: true})

	require.False(t, decision.Allowed)
	assert.Equal(t, ReasonUnknownLimit, decision.Reason)
	assert.Equal(t, DimCPUPercent, decision.Dimension)
}

func TestResourceTracker_NoEntryAllowedByDefault(t *testing.T) {
	rt := newResourceTracker(t)

	decision := rt.Check("unbounded", UsageSample{
		Dimensions: map[string]float64{DimMemoryMB: 99999},
	}, CheckOptions{Strict: true})

	assert.True(t, decision.Allowed)
}

func TestResourceTracker_RequireLimitsDeniesNoEntry(t *testing.T) {
	rt := newResourceTracker(t)

	decision := rt.Check("unbounded", UsageSample{
		Dimensions: map[string]float64{DimMemoryMB: 1},
	}, CheckOptions{Strict: true, RequireLimits: true})

	require.False(t, decision.Allowed)
	assert.Equal(t, ReasonUnknownLimit, decision.Reason)
}

func TestResourceTracker_DomainAllowListFailsClosed(t *testing.T) {
	rt := newResourceTracker(t)
	require.NoError(t, rt.SetLimits("curl", ResourceLimit{
		AllowedDomains: []string{"api.example.com"},
	}))

	// Listed domain passes
	decision := rt.Check("curl", UsageSample{Domain: "api.example.com"}, CheckOptions{})
	assert.True(t, decision.Allowed)

	// Unlisted domain denied
	decision = rt.Check("curl", UsageSample{Domain: "evil.example.com"}, CheckOptions{})
	require.False(t, decision.Allowed)
	assert.Equal(t, "domain", decision.Dimension)

	// Absent domain denied once a list is configured
	decision = rt.Check("curl", UsageSample{}, CheckOptions{})
	assert.False(t, decision.Allowed)
}

func TestResourceTracker_PathAllowListPrefixMatch(t *testing.T) {
	rt := newResourceTracker(t)
	require.NoError(t, rt.SetLimits("cat", ResourceLimit{
		AllowedPaths: []string{"/workspace/"},
	}))

	assert.True(t, rt.Check("cat", UsageSample{Path: "/workspace/readme.md"}, CheckOptions{}).Allowed)
	assert.False(t, rt.Check("cat", UsageSample{Path: "/etc/passwd"}, CheckOptions{}).Allowed)
}

func TestResourceTracker_SetLimitsReplaces(t *testing.T) {
	rt := newResourceTracker(t)
	require.NoError(t, rt.SetLimits("git", ResourceLimit{
		MaxMemoryMB:   floatPtr(1024),
		MaxCPUPercent: floatPtr(50),
	}))

	require.NoError(t, rt.SetLimits("git", ResourceLimit{MaxMemoryMB: floatPtr(256)}))

	limits := rt.Limits("git")
	require.NotNil(t, limits)
	require.NotNil(t, limits.MaxMemoryMB)
	assert.Equal(t, 256.0, *limits.MaxMemoryMB)
	assert.Nil(t, limits.MaxCPUPercent, "replace semantics, not merge")
}

func TestResourceTracker_RejectsMalformedLimits(t *testing.T) {
	rt := newResourceTracker(t)

	err := rt.SetLimits("git", ResourceLimit{MaxCPUPercent: floatPtr(150)})
	assert.ErrorIs(t, err, ErrConfiguration)

	err = rt.SetLimits("git", ResourceLimit{MaxMemoryMB: floatPtr(-1)})
	assert.ErrorIs(t, err, ErrConfiguration)

	// Nothing was persisted
	assert.Nil(t, rt.Limits("git"))
}

func TestResourceTracker_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource_limits.json")

	rt, err := NewResourceTracker(path)
	require.NoError(t, err)
	require.NoError(t, rt.SetLimits("git", ResourceLimit{MaxMemoryMB: floatPtr(1024)}))

	rt2, err := NewResourceTracker(path)
	require.NoError(t, err)

	limits := rt2.Limits("git")
	require.NotNil(t, limits)
	assert.Equal(t, 1024.0, *limits.MaxMemoryMB)
}

func TestResourceTracker_ReloadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource_limits.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"git": {"max_memory_mb": "lots"}}`), 0644))

	_, err := NewResourceTracker(path)

	require.Error(t, err)
}

func TestResourceTracker_ReserveAndRelease(t *testing.T) {
	rt := newResourceTracker(t)
	require.NoError(t, rt.SetLimits("curl", ResourceLimit{MaxNetworkRequests: floatPtr(10)}))

	sample := UsageSample{Dimensions: map[string]float64{DimNetworkRequests: 6}}

	assert.True(t, rt.Reserve("curl", sample, CheckOptions{}).Allowed)

	// Second reservation would push the cumulative count past the
	// ceiling.
	decision := rt.Reserve("curl", sample, CheckOptions{})
	require.False(t, decision.Allowed)
	assert.Equal(t, DimNetworkRequests, decision.Dimension)

	// After release the budget is available again
	rt.Release("curl", sample)
	assert.True(t, rt.Reserve("curl", sample, CheckOptions{}).Allowed)
}

func TestResourceTracker_ConcurrentChecksAcrossTools(t *testing.T) {
	rt := newResourceTracker(t)
	require.NoError(t, rt.SetLimits("a", ResourceLimit{MaxMemoryMB: floatPtr(100)}))
	require.NoError(t, rt.SetLimits("b", ResourceLimit{MaxMemoryMB: floatPtr(100)}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tool := "a"
			if i%2 == 0 {
				tool = "b"
			}
			decision := rt.Check(tool, UsageSample{
				Dimensions: map[string]float64{DimMemoryMB: 50},
			}, CheckOptions{})
			assert.True(t, decision.Allowed)
		}(i)
	}
	wg.Wait()
}
