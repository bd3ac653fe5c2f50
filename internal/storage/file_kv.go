// Path: internal/storage/file_kv.go
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"recipe-finder/internal/domain"
)

// Compile-time interface check.
var _ domain.KeyValueStore = (*FileKV)(nil)

// FileKV persists preferences as a single JSON object on disk.
// Every Set rewrites the file through a temp file and rename.
type FileKV struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// NewFileKV opens the store at path. A missing file is an empty store; an
// unreadable or corrupt file is reported so the caller can decide to start fresh.
func NewFileKV(path string) (*FileKV, error) {
	s := &FileKV{path: path, values: make(map[string]string)}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("read %s: %w", path, err)
	}
	if len(b) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(b, &s.values); err != nil {
		s.values = make(map[string]string)
		return s, fmt.Errorf("decode %s: %w", path, err)
	}
	return s, nil
}

// Get implements the KeyValueStore interface.
func (s *FileKV) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set implements the KeyValueStore interface.
func (s *FileKV) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
