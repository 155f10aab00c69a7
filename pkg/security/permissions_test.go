package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPermissionStore(t *testing.T) *PermissionStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "permissions.json")
	ps, err := NewPermissionStore(path)
	require.NoError(t, err)
	return ps
}

func TestParsePermission_Unknown(t *testing.T) {
	_, err := ParsePermission("root")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestPermissionSet_AdminImpliesAll(t *testing.T) {
	set := NewPermissionSet(PermissionAdmin)

	assert.True(t, set.Has(PermissionRead))
	assert.True(t, set.Has(PermissionWrite))
	assert.True(t, set.Has(PermissionExecute))
	assert.True(t, set.Has(PermissionNetwork))
	assert.True(t, set.Has(PermissionSystem))
	assert.True(t, set.Contains(NewPermissionSet(PermissionRead, PermissionSystem)))
}

func TestPermissionSet_Contains(t *testing.T) {
	set := NewPermissionSet(PermissionRead, PermissionWrite)

	assert.True(t, set.Contains(NewPermissionSet(PermissionRead)))
	assert.True(t, set.Contains(NewPermissionSet()))
	assert.False(t, set.Contains(NewPermissionSet(PermissionExecute)))
	assert.False(t, set.Contains(NewPermissionSet(PermissionRead, PermissionExecute)))
}

func TestPermissionStore_SetReplacesNotUnions(t *testing.T) {
	ps := newPermissionStore(t)

	require.NoError(t, ps.Set("git", NewPermissionSet(PermissionRead, PermissionWrite)))
	require.NoError(t, ps.Set("git", NewPermissionSet(PermissionExecute)))

	got := ps.Get("git")
	assert.Equal(t, []string{"execute"}, got.Strings())
	assert.False(t, got.Has(PermissionRead))
}

func TestPermissionStore_UnknownToolIsEmptySet(t *testing.T) {
	ps := newPermissionStore(t)

	got := ps.Get("never-seen")

	assert.True(t, got.IsEmpty())
}

func TestPermissionStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permissions.json")

	ps, err := NewPermissionStore(path)
	require.NoError(t, err)
	require.NoError(t, ps.Set("npm", NewPermissionSet(PermissionRead, PermissionNetwork)))

	ps2, err := NewPermissionStore(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"read", "network"}, ps2.Get("npm").Strings())
}

func TestPermissionStore_Clear(t *testing.T) {
	ps := newPermissionStore(t)
	require.NoError(t, ps.Set("git", NewPermissionSet(PermissionRead)))

	require.NoError(t, ps.Clear("git"))

	assert.True(t, ps.Get("git").IsEmpty())
	assert.Empty(t, ps.Tools())
}

func TestPermissionStore_ReloadRejectsUnknownPermission(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permissions.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"git": ["superuser"]}`), 0644))

	_, err := NewPermissionStore(path)

	require.Error(t, err)
}

func TestPermissionStore_ReloadRejectsMalformedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permissions.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"git": "read"}`), 0644))

	_, err := NewPermissionStore(path)

	require.Error(t, err)
}

func TestPermissionStore_SetEmptyToolName(t *testing.T) {
	ps := newPermissionStore(t)

	err := ps.Set("", NewPermissionSet(PermissionRead))

	assert.ErrorIs(t, err, ErrConfiguration)
}
