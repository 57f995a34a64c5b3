// Package session persists the client's session identifier. The id is
// generated once and reused by every later run.
package session

//go:generate mockgen -destination=mock/mock_store.go -package=sessionmock github.com/nathoo/backroom/session Store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrNoSession is returned by a Store that holds no id yet.
var ErrNoSession = errors.New("no session id stored")

// Prefix starts every generated session id.
const Prefix = "session-"

// Store loads and saves the session id.
type Store interface {
	Load() (string, error)
	Save(id string) error
}

// NewID returns a fresh session id.
func NewID() string {
	return Prefix + uuid.NewString()
}

// Ensure returns the stored id, generating and saving one on first use.
func Ensure(s Store) (string, error) {
	id, err := s.Load()
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNoSession) {
		return "", fmt.Errorf("loading session: %w", err)
	}
	id = NewID()
	if err := s.Save(id); err != nil {
		return "", fmt.Errorf("saving session: %w", err)
	}
	return id, nil
}

// FileStore keeps the id in a single file.
type FileStore struct {
	Path string
}

// NewFileStore returns a FileStore for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads the id. A missing or blank file yields ErrNoSession.
func (f *FileStore) Load() (string, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", err
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", ErrNoSession
	}
	return id, nil
}

// Save writes the id, creating parent directories as needed.
func (f *FileStore) Save(id string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(f.Path, []byte(id+"\n"), 0o600)
}

// MemoryStore keeps the id in memory. The zero value is empty.
type MemoryStore struct {
	mu sync.Mutex
	id string
}

// Load returns the id or ErrNoSession.
func (m *MemoryStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.id == "" {
		return "", ErrNoSession
	}
	return m.id, nil
}

// Save replaces the id.
func (m *MemoryStore) Save(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = id
	return nil
}
