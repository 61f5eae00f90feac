// Package framework hosts the foundational data structures that the planner,
// the execution engine, and every tool depend on: the task graph, the plan
// schema, the workspace sandbox, and the telemetry primitives. Higher-level
// packages (agents, persistence, server) build on top of these types without
// ever reaching around them.
package framework

import (
	"fmt"
	"sync"
	"time"
)

// TaskStatus enumerates the lifecycle states of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskSkipped    TaskStatus = "skipped"
)

// Task is the unit of work produced by the planner and consumed by the
// execution engine. Dependencies reference the IDs of strictly earlier tasks.
type Task struct {
	ID           int        `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Dependencies []int      `json:"dependencies"`
	Status       TaskStatus `json:"status"`
	Result       string     `json:"result,omitempty"`
	Error        string     `json:"error,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at,omitempty"`
}

// Progress summarizes graph completion for callers and telemetry.
type Progress struct {
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	InProgress int     `json:"in_progress"`
	Failed     int     `json:"failed"`
	Pending    int     `json:"pending"`
	Percentage float64 `json:"percentage"`
}

// TaskGraph owns the ordered task list for one engine run. Scheduling is
// deterministic: NextReady scans in insertion order and returns the first
// pending task whose dependencies have all completed. Tasks are never
// deleted; failed tasks that exhaust their retry stay failed and keep the
// graph incomplete.
type TaskGraph struct {
	mu    sync.RWMutex
	tasks []*Task
	index map[int]*Task
}

// NewTaskGraph builds an empty graph.
func NewTaskGraph() *TaskGraph {
	return &TaskGraph{index: make(map[int]*Task)}
}

// Add appends a task to the graph. Duplicate IDs are rejected so state
// reloads cannot silently shadow earlier tasks.
func (g *TaskGraph) Add(task *Task) error {
	if task == nil {
		return fmt.Errorf("nil task")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.index[task.ID]; exists {
		return fmt.Errorf("task %d already exists", task.ID)
	}
	if task.Status == "" {
		task.Status = TaskPending
	}
	if task.Dependencies == nil {
		task.Dependencies = []int{}
	}
	g.tasks = append(g.tasks, task)
	g.index[task.ID] = task
	return nil
}

// NextReady returns the first pending task whose dependencies are all
// completed, or nil when no task is currently eligible.
func (g *TaskGraph) NextReady() *Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, task := range g.tasks {
		if task.Status != TaskPending {
			continue
		}
		if g.depsCompleted(task) {
			return task
		}
	}
	return nil
}

// depsCompleted reports whether every dependency resolves to a completed
// task. A dangling dependency blocks the task forever rather than panicking;
// plan validation rejects those before execution starts.
func (g *TaskGraph) depsCompleted(task *Task) bool {
	for _, dep := range task.Dependencies {
		depTask, ok := g.index[dep]
		if !ok || depTask.Status != TaskCompleted {
			return false
		}
	}
	return true
}

// Get returns a task by ID.
func (g *TaskGraph) Get(id int) (*Task, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	task, ok := g.index[id]
	return task, ok
}

// UpdateStatus transitions a task and records the outcome.
func (g *TaskGraph) UpdateStatus(id int, status TaskStatus, result, errMsg string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	task, ok := g.index[id]
	if !ok {
		return fmt.Errorf("task %d not found", id)
	}
	task.Status = status
	task.UpdatedAt = time.Now().UTC()
	if result != "" {
		task.Result = result
	}
	if errMsg != "" {
		task.Error = errMsg
	}
	return nil
}

// Requeue marks a failed task pending again and moves it to the end of the
// scan order so its dependents are not starved while it waits for a retry.
func (g *TaskGraph) Requeue(id int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	task, ok := g.index[id]
	if !ok {
		return fmt.Errorf("task %d not found", id)
	}
	for i, t := range g.tasks {
		if t.ID == id {
			g.tasks = append(g.tasks[:i], g.tasks[i+1:]...)
			break
		}
	}
	task.Status = TaskPending
	task.Error = ""
	g.tasks = append(g.tasks, task)
	return nil
}

// IsComplete reports whether every task has completed.
func (g *TaskGraph) IsComplete() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, task := range g.tasks {
		if task.Status != TaskCompleted {
			return false
		}
	}
	return len(g.tasks) > 0
}

// Stalled reports whether work remains but nothing is eligible, which
// happens when failed tasks block the rest of the graph.
func (g *TaskGraph) Stalled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	pending := false
	for _, task := range g.tasks {
		if task.Status == TaskPending {
			pending = true
			if g.depsCompleted(task) {
				return false
			}
		}
	}
	return pending
}

// Tasks returns the tasks in scan order. The returned slice is a copy; the
// pointed-to tasks are shared with the graph.
func (g *TaskGraph) Tasks() []*Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Task, len(g.tasks))
	copy(out, g.tasks)
	return out
}

// Progress computes completion counters across all tasks.
func (g *TaskGraph) Progress() Progress {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p := Progress{Total: len(g.tasks)}
	for _, task := range g.tasks {
		switch task.Status {
		case TaskCompleted:
			p.Completed++
		case TaskInProgress:
			p.InProgress++
		case TaskFailed:
			p.Failed++
		default:
			p.Pending++
		}
	}
	if p.Total > 0 {
		p.Percentage = float64(p.Completed) / float64(p.Total) * 100
	}
	return p
}

// ValidateTaskDependencies rejects plans whose dependency lists reference
// missing, self, or forward tasks. Running it before execution guarantees
// NextReady can never deadlock on a malformed plan.
func ValidateTaskDependencies(tasks []*Task) []string {
	var issues []string
	position := make(map[int]int, len(tasks))
	for i, task := range tasks {
		position[task.ID] = i
	}
	for i, task := range tasks {
		for _, dep := range task.Dependencies {
			pos, ok := position[dep]
			switch {
			case !ok:
				issues = append(issues, fmt.Sprintf("task %d depends on missing task %d", task.ID, dep))
			case dep == task.ID:
				issues = append(issues, fmt.Sprintf("task %d depends on itself", task.ID))
			case pos >= i:
				issues = append(issues, fmt.Sprintf("task %d depends on later task %d", task.ID, dep))
			}
		}
	}
	return issues
}
