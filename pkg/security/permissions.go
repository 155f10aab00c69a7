package security

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// PermissionStore is the persisted mapping of tool name to granted
// permission set. Granting is a full replace of the prior set, never a
// union; the caller supplies the complete desired set each time.
type PermissionStore struct {
	filePath string
	mu       sync.RWMutex
	perms    map[string]PermissionSet
}

// NewPermissionStore creates a store backed by the given JSON file,
// loading existing entries if the file exists
func NewPermissionStore(filePath string) (*PermissionStore, error) {
	ps := &PermissionStore{
		filePath: filePath,
		perms:    make(map[string]PermissionSet),
	}

	if err := ps.Reload(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load permissions: %w", err)
		}
		log.Info().Str("path", filePath).Msg("Permissions file does not exist, will create on first grant")
	}

	return ps, nil
}

// Path returns the backing file path
func (ps *PermissionStore) Path() string {
	return ps.filePath
}

// Set replaces the stored permission set for a tool and persists the
// store before returning
func (ps *PermissionStore) Set(tool string, set PermissionSet) error {
	if tool == "" {
		return fmt.Errorf("%w: tool name cannot be empty", ErrConfiguration)
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	prev, existed := ps.perms[tool]
	ps.perms[tool] = set

	if err := ps.saveLocked(); err != nil {
		// Roll back so memory and disk stay consistent
		if existed {
			ps.perms[tool] = prev
		} else {
			delete(ps.perms, tool)
		}
		return err
	}

	log.Info().
		Str("tool", tool).
		Strs("permissions", set.Strings()).
		Msg("Permissions set")

	return nil
}

// Get returns the granted set for a tool. An unknown tool holds the
// empty set; "unknown" and "no permissions" are indistinguishable.
func (ps *PermissionStore) Get(tool string) PermissionSet {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return ps.perms[tool]
}

// Clear removes a tool's entry and persists the store. The audit trail
// referencing the tool is retained for history.
func (ps *PermissionStore) Clear(tool string) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	prev, existed := ps.perms[tool]
	if !existed {
		return nil
	}
	delete(ps.perms, tool)

	if err := ps.saveLocked(); err != nil {
		ps.perms[tool] = prev
		return err
	}

	log.Info().Str("tool", tool).Msg("Permissions cleared")

	return nil
}

// Tools returns the names of all tools with a stored entry, sorted
func (ps *PermissionStore) Tools() []string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	tools := make([]string, 0, len(ps.perms))
	for tool := range ps.perms {
		tools = append(tools, tool)
	}
	sort.Strings(tools)

	return tools
}

// Reload re-reads the backing file, replacing in-memory state. The file
// is schema-validated first; on any error the previous state is kept.
func (ps *PermissionStore) Reload() error {
	data, err := os.ReadFile(ps.filePath)
	if err != nil {
		return err
	}

	if err := validateDocument(permissionsSchema, data); err != nil {
		return fmt.Errorf("%w: permissions file %s: %v", ErrConfiguration, ps.filePath, err)
	}

	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: failed to parse permissions file: %v", ErrConfiguration, err)
	}

	perms := make(map[string]PermissionSet, len(raw))
	for tool, names := range raw {
		parsed := make([]Permission, 0, len(names))
		for _, name := range names {
			p, perr := ParsePermission(name)
			if perr != nil {
				return fmt.Errorf("tool %s: %w", tool, perr)
			}
			parsed = append(parsed, p)
		}
		perms[tool] = NewPermissionSet(parsed...)
	}

	ps.mu.Lock()
	ps.perms = perms
	ps.mu.Unlock()

	log.Debug().
		Str("path", ps.filePath).
		Int("tools", len(perms)).
		Msg("Permissions loaded")

	return nil
}

// saveLocked writes the store atomically via temp file + rename.
// Callers hold ps.mu.
func (ps *PermissionStore) saveLocked() error {
	raw := make(map[string][]string, len(ps.perms))
	for tool, set := range ps.perms {
		raw[tool] = set.Strings()
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	return writeFileAtomic(ps.filePath, data)
}

// writeFileAtomic writes data via a temp file and rename so readers
// never observe a partial file
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
