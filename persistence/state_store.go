// Package persistence stores run state: the resumable execution snapshot
// as a JSON file inside the workspace, and the run history in sqlite.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lexcodex/autoforge/framework"
)

// StateFile is the workspace-relative snapshot location.
const StateFile = "artifacts/plan_state.json"

// ExecutionState is the resumable snapshot written after every task
// transition. It holds everything needed to reconstruct the engine:
// the original request plus the full plan with per-task statuses.
type ExecutionState struct {
	Description string                    `json:"description"`
	ProjectType string                    `json:"project_type"`
	Requirement []string                  `json:"requirements"`
	Plan        *framework.PlanningOutput `json:"plan"`
}

// StateStore reads and writes the snapshot inside one workspace.
type StateStore struct {
	ws *framework.Workspace
}

// NewStateStore binds the store to a workspace.
func NewStateStore(ws *framework.Workspace) *StateStore {
	return &StateStore{ws: ws}
}

// Save atomically replaces the snapshot. Write goes to a temp file first so
// an interrupt mid-write never leaves a truncated snapshot behind.
func (s *StateStore) Save(state *ExecutionState) error {
	if state == nil {
		return errors.New("state missing")
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	path, err := s.ws.Resolve(StateFile)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load returns the snapshot, or (nil, nil) when there is nothing to resume.
// A corrupt snapshot also counts as absent; the caller replans rather than
// crashing on a half-written file.
func (s *StateStore) Load() (*ExecutionState, error) {
	path, err := s.ws.Resolve(StateFile)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var state ExecutionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, nil
	}
	if state.Plan == nil {
		return nil, nil
	}
	return &state, nil
}

// Delete removes the snapshot after a clean finish. Missing file is fine.
func (s *StateStore) Delete() error {
	path, err := s.ws.Resolve(StateFile)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Exists reports whether a resumable snapshot is present and readable.
func (s *StateStore) Exists() bool {
	state, err := s.Load()
	return err == nil && state != nil
}
