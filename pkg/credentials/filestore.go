package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	keyFileName = "key"
	credExt     = ".enc"
	keySize     = 32
)

// FileStore keeps one AES-256-GCM encrypted file per tool under dir.
// The key file is created on first use with 0600 permissions.
type FileStore struct {
	dir string
	key []byte
	mu  sync.Mutex
}

// NewFileStore opens or initializes a credential store rooted at dir
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credentials dir: %w", err)
	}

	key, err := loadOrCreateKey(filepath.Join(dir, keyFileName))
	if err != nil {
		return nil, err
	}

	return &FileStore{dir: dir, key: key}, nil
}

func loadOrCreateKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != keySize {
			return nil, fmt.Errorf("key file %s is corrupt", path)
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key = make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}

	log.Info().Str("path", path).Msg("Credential encryption key created")

	return key, nil
}

// Get returns the decrypted credentials for a tool
func (fs *FileStore) Get(tool string) (map[string]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	sealed, err := os.ReadFile(fs.toolPath(tool))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("tool %s: %w", tool, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	plaintext, err := fs.open(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials for %s: %w", tool, err)
	}

	var creds map[string]string
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, fmt.Errorf("failed to decode credentials for %s: %w", tool, err)
	}

	return creds, nil
}

// Put encrypts and stores credentials for a tool, replacing any
// existing entry. The write is atomic.
func (fs *FileStore) Put(tool string, creds map[string]string) error {
	if tool == "" {
		return fmt.Errorf("tool name is required")
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	plaintext, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	sealed, err := fs.seal(plaintext)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	path := fs.toolPath(tool)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	log.Debug().Str("tool", tool).Msg("Credentials stored")

	return nil
}

// Delete removes a tool's credentials
func (fs *FileStore) Delete(tool string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	err := os.Remove(fs.toolPath(tool))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}

	return nil
}

// List returns the tools with stored credentials, name ascending
func (fs *FileStore) List() ([]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	var tools []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, credExt) {
			continue
		}
		tools = append(tools, strings.TrimSuffix(name, credExt))
	}
	sort.Strings(tools)

	return tools, nil
}

func (fs *FileStore) toolPath(tool string) string {
	return filepath.Join(fs.dir, tool+credExt)
}

// seal encrypts plaintext with a fresh nonce prepended to the output
func (fs *FileStore) seal(plaintext []byte) ([]byte, error) {
	gcm, err := fs.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (fs *FileStore) open(sealed []byte) ([]byte, error) {
	gcm, err := fs.gcm()
	if err != nil {
		return nil, err
	}

	if len(sealed) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertext, nil)
}

func (fs *FileStore) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(fs.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
