package learning

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/toolgate/pkg/journal"
)

func newRecorder(t *testing.T) *UsageRecorder {
	t.Helper()
	fj, err := journal.NewFileJournal(filepath.Join(t.TempDir(), "usage.jsonl"))
	require.NoError(t, err)
	t.Cleanup(func() { fj.Close() })
	return NewUsageRecorder(fj)
}

func TestUsageRecorder_RecordAndStreamRoundTrip(t *testing.T) {
	ur := newRecorder(t)
	ctx := context.Background()

	in := ToolUsageMetrics{
		ToolName:      "npm",
		Success:       true,
		ExecutionTime: 1.25,
		Context:       map[string]interface{}{"task": "install"},
		InputParams:   map[string]interface{}{"package": "left-pad"},
		OutputResult:  map[string]interface{}{"exit_code": float64(0)},
	}
	require.NoError(t, ur.Record(ctx, in))

	var out []ToolUsageMetrics
	require.NoError(t, ur.Stream(ctx, "", func(m ToolUsageMetrics) error {
		out = append(out, m)
		return nil
	}))

	require.Len(t, out, 1)
	got := out[0]
	assert.Equal(t, "npm", got.ToolName)
	assert.True(t, got.Success)
	assert.Equal(t, 1.25, got.ExecutionTime)
	assert.Equal(t, "install", got.Context["task"])
	assert.Equal(t, "left-pad", got.InputParams["package"])
	assert.Equal(t, float64(0), got.OutputResult["exit_code"])
	assert.False(t, got.Timestamp.IsZero())
}

func TestUsageRecorder_StreamFiltersByTool(t *testing.T) {
	ur := newRecorder(t)
	ctx := context.Background()

	require.NoError(t, ur.Record(ctx, ToolUsageMetrics{ToolName: "git", Success: true, ExecutionTime: 0.1}))
	require.NoError(t, ur.Record(ctx, ToolUsageMetrics{ToolName: "npm", Success: true, ExecutionTime: 0.2}))
	require.NoError(t, ur.Record(ctx, ToolUsageMetrics{ToolName: "git", Success: false, ExecutionTime: 0.3}))

	var tools []string
	require.NoError(t, ur.Stream(ctx, "git", func(m ToolUsageMetrics) error {
		tools = append(tools, m.ToolName)
		return nil
	}))

	assert.Equal(t, []string{"git", "git"}, tools)
}

func TestUsageRecorder_StreamOrderedByTimestamp(t *testing.T) {
	ur := newRecorder(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, ur.Record(ctx, ToolUsageMetrics{ToolName: "git", Success: true, ExecutionTime: 0.1}))
	}

	var last time.Time
	require.NoError(t, ur.Stream(ctx, "", func(m ToolUsageMetrics) error {
		require.True(t, m.Timestamp.After(last))
		last = m.Timestamp
		return nil
	}))
}

func TestUsageRecorder_RejectsInvalidMetrics(t *testing.T) {
	ur := newRecorder(t)
	ctx := context.Background()

	err := ur.Record(ctx, ToolUsageMetrics{ToolName: "", Success: true})
	assert.ErrorIs(t, err, ErrInvalidMetrics)

	err = ur.Record(ctx, ToolUsageMetrics{ToolName: "git", ExecutionTime: -1})
	assert.ErrorIs(t, err, ErrInvalidMetrics)
}

func TestUsageRecorder_PersistenceErrorSurfaced(t *testing.T) {
	fj, err := journal.NewFileJournal(filepath.Join(t.TempDir(), "usage.jsonl"))
	require.NoError(t, err)
	require.NoError(t, fj.Close())
	ur := NewUsageRecorder(fj)

	err = ur.Record(context.Background(), ToolUsageMetrics{ToolName: "git", Success: true})

	assert.ErrorIs(t, err, ErrRecording)
}
