package security

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/toolgate/pkg/journal"
)

func newAuditLog(t *testing.T) *AuditLog {
	t.Helper()
	fj, err := journal.NewFileJournal(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)
	t.Cleanup(func() { fj.Close() })
	return NewAuditLog(fj)
}

func TestAuditLog_AppendAndQueryRoundTrip(t *testing.T) {
	al := newAuditLog(t)
	ctx := context.Background()

	in := SecurityEvent{
		ToolName: "git",
		Type:     EventPermissionCheck,
		Outcome:  OutcomeDeny,
		Details:  map[string]interface{}{"reason": ReasonInsufficientPermission},
	}
	require.NoError(t, al.Append(ctx, in))

	events, err := al.Query(ctx, Filter{Tool: "git"})

	require.NoError(t, err)
	require.Len(t, events, 1)
	got := events[0]
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.Timestamp.IsZero())
	assert.Equal(t, "git", got.ToolName)
	assert.Equal(t, EventPermissionCheck, got.Type)
	assert.Equal(t, OutcomeDeny, got.Outcome)
	assert.Equal(t, ReasonInsufficientPermission, got.Details["reason"])
}

func TestAuditLog_QueryFilters(t *testing.T) {
	al := newAuditLog(t)
	ctx := context.Background()

	require.NoError(t, al.Append(ctx, SecurityEvent{ToolName: "git", Type: EventPermissionCheck, Outcome: OutcomeAllow}))
	require.NoError(t, al.Append(ctx, SecurityEvent{ToolName: "npm", Type: EventResourceCheck, Outcome: OutcomeDeny}))
	require.NoError(t, al.Append(ctx, SecurityEvent{ToolName: "git", Type: EventViolation, Outcome: OutcomeDeny}))

	byTool, err := al.Query(ctx, Filter{Tool: "git"})
	require.NoError(t, err)
	assert.Len(t, byTool, 2)

	byType, err := al.Query(ctx, Filter{Type: EventViolation})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "git", byType[0].ToolName)

	all, err := al.Query(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAuditLog_QueryTimeRange(t *testing.T) {
	al := newAuditLog(t)
	ctx := context.Background()

	require.NoError(t, al.Append(ctx, SecurityEvent{ToolName: "git", Type: EventPermissionCheck, Outcome: OutcomeAllow}))

	all, err := al.Query(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	cutoff := all[0].Timestamp

	require.NoError(t, al.Append(ctx, SecurityEvent{ToolName: "git", Type: EventPermissionCheck, Outcome: OutcomeDeny}))

	later, err := al.Query(ctx, Filter{Since: cutoff.Add(time.Nanosecond)})
	require.NoError(t, err)
	require.Len(t, later, 1)
	assert.Equal(t, OutcomeDeny, later[0].Outcome)

	earlier, err := al.Query(ctx, Filter{Until: cutoff})
	require.NoError(t, err)
	require.Len(t, earlier, 1)
	assert.Equal(t, OutcomeAllow, earlier[0].Outcome)
}

func TestAuditLog_QueryOrderedByTimestamp(t *testing.T) {
	al := newAuditLog(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, al.Append(ctx, SecurityEvent{ToolName: "git", Type: EventResourceCheck, Outcome: OutcomeAllow}))
	}

	events, err := al.Query(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, events, 10)

	for i := 1; i < len(events); i++ {
		assert.True(t, events[i].Timestamp.After(events[i-1].Timestamp))
	}
}

// failingJournal rejects every append
type failingJournal struct{}

func (failingJournal) Append(context.Context, journal.Record) error {
	return errors.New("disk full")
}

func (failingJournal) Stream(context.Context, time.Time, func(journal.Record) error) error {
	return nil
}

func (failingJournal) Len() (int, error) { return 0, nil }
func (failingJournal) Close() error      { return nil }

func TestAuditLog_AppendFailureIsAuditWriteError(t *testing.T) {
	al := NewAuditLog(failingJournal{})

	err := al.Append(context.Background(), SecurityEvent{ToolName: "git", Type: EventPermissionCheck, Outcome: OutcomeAllow})

	assert.ErrorIs(t, err, ErrAuditWrite)
}
