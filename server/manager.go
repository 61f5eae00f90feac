// Package server exposes the engine over HTTP and over a jsonrpc2 stdio
// endpoint for editor and automation clients.
package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lexcodex/autoforge/agents"
	"github.com/lexcodex/autoforge/persistence"
)

// EngineFactory builds a fresh engine bound to a workspace directory. The
// manager calls it once per run so concurrent runs never share mutable
// engine state.
type EngineFactory func(workspaceDir string) (*agents.Engine, error)

// ManagedRun is the manager's view of one engine invocation.
type ManagedRun struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	ProjectType string          `json:"project_type"`
	Workspace   string          `json:"workspace"`
	Status      agents.RunState `json:"status"`
	Result      *agents.Result  `json:"result,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at,omitempty"`

	engine *agents.Engine
}

// RunManager starts, tracks, and interrupts engine runs. Runs execute on
// their own goroutines; the manager only ever blocks briefly on its lock.
type RunManager struct {
	Factory EngineFactory
	Store   *persistence.RunStore

	mu   sync.RWMutex
	runs map[string]*ManagedRun
	seq  int
}

// NewRunManager builds a manager. The store may be nil; history is then
// kept in memory only.
func NewRunManager(factory EngineFactory, store *persistence.RunStore) *RunManager {
	return &RunManager{Factory: factory, Store: store, runs: map[string]*ManagedRun{}}
}

// Start launches a new run and returns immediately with its id.
func (m *RunManager) Start(description, projectType, workspace string) (*ManagedRun, error) {
	if description == "" {
		return nil, fmt.Errorf("description required")
	}
	engine, err := m.Factory(workspace)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	m.mu.Lock()
	m.seq++
	run := &ManagedRun{
		ID:          fmt.Sprintf("run-%d-%d", time.Now().Unix(), m.seq),
		Description: description,
		ProjectType: projectType,
		Workspace:   workspace,
		Status:      agents.StatePlanning,
		StartedAt:   time.Now().UTC(),
		engine:      engine,
	}
	m.runs[run.ID] = run
	m.mu.Unlock()

	m.persistCreate(run)
	go m.drive(run, func(ctx context.Context) (*agents.Result, error) {
		return engine.Run(ctx, description, projectType)
	})
	return run, nil
}

// Resume continues an interrupted run in the given workspace as a new
// managed run.
func (m *RunManager) Resume(workspace string) (*ManagedRun, error) {
	engine, err := m.Factory(workspace)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	m.mu.Lock()
	m.seq++
	run := &ManagedRun{
		ID:          fmt.Sprintf("run-%d-%d", time.Now().Unix(), m.seq),
		Description: "resume",
		Workspace:   workspace,
		Status:      agents.StateExecuting,
		StartedAt:   time.Now().UTC(),
		engine:      engine,
	}
	m.runs[run.ID] = run
	m.mu.Unlock()

	m.persistCreate(run)
	go m.drive(run, engine.Resume)
	return run, nil
}

// drive executes the run function and records the outcome. The outcome is
// persisted before it becomes visible on the managed run, so a caller that
// observes FinishedAt can rely on the history store being written.
func (m *RunManager) drive(run *ManagedRun, fn func(context.Context) (*agents.Result, error)) {
	m.mu.RLock()
	fromStatus := run.Status
	m.mu.RUnlock()

	result, err := fn(context.Background())
	if result == nil {
		result = &agents.Result{Status: agents.StateFailed}
		if err != nil {
			result.Error = err.Error()
		}
	}
	finishedAt := time.Now().UTC()

	m.mu.RLock()
	snapshot := *run
	m.mu.RUnlock()
	snapshot.FinishedAt = finishedAt
	snapshot.Result = result
	snapshot.Status = result.Status
	m.persistFinish(&snapshot, fromStatus)

	m.mu.Lock()
	run.FinishedAt = finishedAt
	run.Result = result
	run.Status = result.Status
	m.mu.Unlock()
}

// Get returns a copy of the run's current state.
func (m *RunManager) Get(id string) (*ManagedRun, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, false
	}
	snapshot := *run
	return &snapshot, true
}

// List returns copies of all runs, newest first.
func (m *RunManager) List() []*ManagedRun {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*ManagedRun, 0, len(m.runs))
	for _, run := range m.runs {
		snapshot := *run
		out = append(out, &snapshot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// Interrupt requests a cooperative stop of a running engine.
func (m *RunManager) Interrupt(id string) error {
	m.mu.RLock()
	run, ok := m.runs[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("run %s not found", id)
	}
	run.engine.Interrupt()
	return nil
}

func (m *RunManager) persistCreate(run *ManagedRun) {
	if m.Store == nil {
		return
	}
	_ = m.Store.CreateRun(&persistence.RunRecord{
		ID:          run.ID,
		Description: run.Description,
		ProjectType: run.ProjectType,
		Status:      string(run.Status),
		StartedAt:   run.StartedAt,
	})
	_ = m.Store.RecordTransition(persistence.Transition{
		RunID: run.ID,
		To:    string(run.Status),
		At:    run.StartedAt,
	})
}

func (m *RunManager) persistFinish(run *ManagedRun, from agents.RunState) {
	if m.Store == nil {
		return
	}
	rec := &persistence.RunRecord{
		ID:          run.ID,
		Description: run.Description,
		ProjectType: run.ProjectType,
		Status:      string(run.Status),
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
	}
	detail := ""
	if run.Result != nil {
		rec.Confidence = run.Result.Confidence
		rec.Progress = run.Result.Progress.Percentage
		detail = run.Result.Error
		_ = m.Store.SaveArtifact(run.ID, "result", run.Result)
		if run.Result.Approval != nil {
			a := run.Result.Approval
			_ = m.Store.RecordApproval(run.ID, a.RequestID, a.Approved, a.DecidedBy, a.Reason)
		}
	}
	_ = m.Store.RecordTransition(persistence.Transition{
		RunID:  run.ID,
		From:   string(from),
		To:     string(run.Status),
		Detail: detail,
		At:     run.FinishedAt,
	})
	_ = m.Store.UpdateRun(rec)
}

// ErrHistoryDisabled marks managers running without a backing store.
var ErrHistoryDisabled = errors.New("run history not enabled")

// History returns persisted runs, newest first, across process restarts.
func (m *RunManager) History(limit int) ([]*persistence.RunRecord, error) {
	if m.Store == nil {
		return nil, ErrHistoryDisabled
	}
	return m.Store.ListRuns(limit)
}

// HistoryRun loads one persisted run together with its state trail.
func (m *RunManager) HistoryRun(id string) (*persistence.RunRecord, []persistence.Transition, error) {
	if m.Store == nil {
		return nil, nil, ErrHistoryDisabled
	}
	rec, err := m.Store.GetRun(id)
	if err != nil {
		return nil, nil, err
	}
	trail, err := m.Store.Transitions(id)
	if err != nil {
		return nil, nil, err
	}
	return rec, trail, nil
}

// HistoryApprovals lists the persisted gate decisions of a run.
func (m *RunManager) HistoryApprovals(id string) ([]persistence.Approval, error) {
	if m.Store == nil {
		return nil, ErrHistoryDisabled
	}
	return m.Store.Approvals(id)
}

// HistoryResult loads a finished run's persisted result artifact.
func (m *RunManager) HistoryResult(id string) (*agents.Result, error) {
	if m.Store == nil {
		return nil, ErrHistoryDisabled
	}
	var result agents.Result
	if err := m.Store.Artifact(id, "result", &result); err != nil {
		return nil, err
	}
	return &result, nil
}
