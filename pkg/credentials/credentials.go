package credentials

import "errors"

// ErrNotFound indicates no credentials are stored for the tool
var ErrNotFound = errors.New("credentials not found")

// Store persists per-tool credential maps. Implementations encrypt at
// rest; callers only ever see the decrypted key-value pairs.
type Store interface {
	// Get returns the stored credentials for a tool, or ErrNotFound.
	Get(tool string) (map[string]string, error)

	// Put stores credentials for a tool, replacing any existing entry.
	Put(tool string, creds map[string]string) error

	// Delete removes a tool's credentials. Deleting a tool with no
	// stored credentials is not an error.
	Delete(tool string) error

	// List returns the tools that have stored credentials.
	List() ([]string, error)
}
