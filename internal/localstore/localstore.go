// Package localstore is the client's durable key/value blob store. It plays
// the part browser localStorage plays for a web client: every key holds one
// JSON document and the whole store is one file on disk.
package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

type Store struct {
	mu    sync.RWMutex
	blobs map[string]json.RawMessage
	file  string
}

// New creates a store backed by filePath, loading it if the file exists
func New(filePath string) (*Store, error) {
	s := &Store{
		blobs: make(map[string]json.RawMessage),
		file:  filePath,
	}

	if _, err := os.Stat(filePath); err == nil {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("failed to load local store: %w", err)
		}
	}

	return s, nil
}

// NewMemory creates a store that is never written to disk
func NewMemory() *Store {
	return &Store{blobs: make(map[string]json.RawMessage)}
}

// Get decodes the blob under key into v. It reports false if the key is absent.
func (s *Store) Get(key string, v any) (bool, error) {
	s.mu.RLock()
	raw, ok := s.blobs[key]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return true, nil
}

// Set replaces the blob under key with the JSON encoding of v
func (s *Store) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[key] = raw
	return s.save()
}

// Remove deletes key. Removing an absent key is not an error.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[key]; !ok {
		return nil
	}
	delete(s.blobs, key)
	return s.save()
}

// Keys returns the stored keys in sorted order
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// save writes the store through a temp file so a crash never leaves a torn file.
// Callers hold s.mu.
func (s *Store) save() error {
	if s.file == "" {
		return nil
	}

	data, err := json.MarshalIndent(s.blobs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	dir := filepath.Dir(s.file)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := s.file + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return os.Rename(tmp, s.file)
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.file)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, &s.blobs); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	return nil
}
