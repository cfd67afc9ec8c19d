package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// State is the workflow state kept between station runs.
type State struct {
	Session      *Session `json:"session,omitempty"`
	Profile      string   `json:"profile,omitempty"`
	AnalysisType string   `json:"analysis_type,omitempty"`
}

// Cache stores State locally.
type Cache interface {
	Load() (State, error)
	Save(State) error
	Clear() error
}

// FileCache stores State as a JSON file readable only by its owner.
type FileCache struct {
	path string
}

// NewFileCache returns a cache backed by the file at path.
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// Load returns the zero State when the file does not exist.
func (c *FileCache) Load() (State, error) {
	var state State

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("read session state: %w", err)
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("decode session state: %w", err)
	}
	return state, nil
}

func (c *FileCache) Save(state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session state: %w", err)
	}
	return os.Rename(tmp, c.path)
}

func (c *FileCache) Clear() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear session state: %w", err)
	}
	return nil
}
