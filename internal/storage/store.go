// Package storage provides the JSON file store that persists hub state
// across restarts.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store reads and writes named JSON data files under a base directory
type Store struct {
	basePath string
}

// NewStore creates a store rooted at basePath
func NewStore(basePath string) *Store {
	return &Store{basePath: basePath}
}

// Save marshals data and writes it to <basePath>/<name>.json.
// The write goes through a temp file and an atomic rename so a crash never
// leaves a truncated store behind.
func (s *Store) Save(name string, data any) error {
	if err := os.MkdirAll(s.basePath, 0750); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s store: %w", name, err)
	}

	finalPath := s.path(name)
	tmpFile, err := os.CreateTemp(s.basePath, name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s store: %w", name, err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(payload); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s store: %w", name, err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close %s store: %w", name, err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s store: %w", name, err)
	}
	return nil
}

// Load reads <basePath>/<name>.json into out, reporting whether the store
// file existed
func (s *Store) Load(name string, out any) (bool, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s store: %w", name, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return true, fmt.Errorf("failed to decode %s store: %w", name, err)
	}
	return true, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.basePath, name+".json")
}
