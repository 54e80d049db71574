package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// stateFileName is written into the output directory unless a path is given.
const stateFileName = ".convexport-state.json"

// RunState tracks exported conversations so an interrupted or repeated run
// can skip work already on disk.
type RunState struct {
	StartedAt       time.Time         `json:"started_at"`
	LastProcessedAt time.Time         `json:"last_processed_at"`
	Exported        map[string]string `json:"exported"` // fingerprint -> output path
	Runs            int               `json:"runs"`
	Errors          []string          `json:"errors"`

	path string // not serialized
}

// LoadState loads the run state from path, or creates a new one.
func LoadState(path string) (*RunState, error) {
	p := expandHome(path)

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return &RunState{
				StartedAt: time.Now().UTC(),
				Exported:  make(map[string]string),
				path:      p,
			}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var s RunState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	if s.Exported == nil {
		s.Exported = make(map[string]string)
	}
	s.path = p
	return &s, nil
}

// Save persists the state to disk.
func (s *RunState) Save() error {
	s.LastProcessedAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	return os.WriteFile(s.path, data, 0o644)
}

// IsExported returns true if the conversation was exported by an earlier run.
// Conversations without a fingerprint are never considered exported.
func (s *RunState) IsExported(fp string) bool {
	if fp == "" {
		return false
	}
	_, ok := s.Exported[fp]
	return ok
}

// MarkExported records where a conversation was written.
func (s *RunState) MarkExported(fp, path string) {
	if fp == "" {
		return
	}
	if s.Exported == nil {
		s.Exported = make(map[string]string)
	}
	s.Exported[fp] = path
}

// AddError records a processing error.
func (s *RunState) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}
