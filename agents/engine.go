package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lexcodex/autoforge/framework"
	"github.com/lexcodex/autoforge/persistence"
	"github.com/lexcodex/autoforge/scaffold"
)

// RunState is the engine's coarse phase.
type RunState string

const (
	StatePlanning    RunState = "planning"
	StateExecuting   RunState = "executing"
	StateFinalizing  RunState = "finalizing"
	StateCompleted   RunState = "completed"
	StateFailed      RunState = "failed"
	StateInterrupted RunState = "interrupted"
)

// ErrNoResumableState means Resume found no usable snapshot.
var ErrNoResumableState = errors.New("no resumable execution state")

// Result is the engine's final report for one run.
type Result struct {
	Success    bool                        `json:"success"`
	Status     RunState                    `json:"status"`
	Plan       *framework.PlanningOutput   `json:"plan,omitempty"`
	Validation *VerificationReport         `json:"validation,omitempty"`
	CodeCheck  *CodeValidation             `json:"code_validation,omitempty"`
	Security   *framework.SecurityReport   `json:"security,omitempty"`
	Confidence int                         `json:"confidence"`
	Progress   framework.Progress          `json:"progress"`
	Approval   *framework.ApprovalDecision `json:"approval,omitempty"`
	Error      string                      `json:"error,omitempty"`
}

// Engine drives a run end to end: plan, execute tasks through the reason-act
// loop, self-heal failures once, then finalize with the security scan, the
// completion check, and the confidence gate. The snapshot is rewritten after
// every task transition so an interrupt or crash resumes where it stopped.
type Engine struct {
	Workspace *framework.Workspace
	Model     framework.LanguageModel
	Config    *framework.Config
	Planner   *StructuredPlanner
	Executor  *ReactExecutor
	Debugger  *AutoDebugger
	Reflex    *Reflexion
	Gate      *framework.ApprovalGate
	States    *persistence.StateStore
	Telem     framework.Telemetry

	interrupted atomic.Bool
	retryCounts map[int]int
}

// NewEngine wires an engine from its parts with default collaborators for
// anything left nil.
func NewEngine(ws *framework.Workspace, model framework.LanguageModel, cfg *framework.Config, registry *framework.ToolRegistry) *Engine {
	if cfg == nil {
		cfg = framework.DefaultConfig()
	}
	executor := NewReactExecutor(model, registry)
	executor.MaxSteps = cfg.Limits.MaxReactSteps
	return &Engine{
		Workspace:   ws,
		Model:       model,
		Config:      cfg,
		Planner:     NewStructuredPlanner(model),
		Executor:    executor,
		Debugger:    &AutoDebugger{Model: model},
		Reflex:      NewReflexion(model, cfg.Limits.MaxRetries),
		Gate:        framework.NewApprovalGate(0, false),
		States:      persistence.NewStateStore(ws),
		retryCounts: map[int]int{},
	}
}

// Interrupt requests a cooperative stop. The engine honors it at the next
// task boundary, never mid-task.
func (e *Engine) Interrupt() { e.interrupted.Store(true) }

func (e *Engine) emit(event framework.Event) {
	if e.Telem == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	e.Telem.Emit(event)
}

func (e *Engine) debugf(format string, args ...interface{}) {
	if e.Config != nil && e.Config.Logging.DebugAgent {
		log.Printf("[engine] "+format, args...)
	}
}

// Run plans the project from scratch and executes it.
func (e *Engine) Run(ctx context.Context, description, projectType string) (*Result, error) {
	e.interrupted.Store(false)
	e.emit(framework.Event{Type: framework.EventRunStart, Message: description})
	e.debugf("state=%s", StatePlanning)

	intent := (&IntentAnalyzer{Model: e.Model}).Analyze(ctx, description)
	if data, err := json.MarshalIndent(intent, "", "  "); err == nil {
		if err := e.Workspace.WriteFile("artifacts/intent.json", string(data)+"\n"); err != nil {
			e.debugf("intent record failed: %v", err)
		}
	}

	plan, err := e.Planner.BuildPlan(ctx, intent.Goal, projectType)
	if err != nil {
		return &Result{Status: StateFailed, Error: err.Error()}, err
	}
	state := &persistence.ExecutionState{
		Description: description,
		ProjectType: projectType,
		Requirement: plan.Requirements.Functional,
		Plan:        plan,
	}
	if err := e.saveState(state); err != nil {
		return &Result{Status: StateFailed, Plan: plan, Error: err.Error()}, err
	}
	e.emit(framework.Event{Type: framework.EventPlanReady, Message: fmt.Sprintf("%d tasks", len(plan.Tasks))})

	if err := e.prepareWorkspace(description, projectType, plan.Technology); err != nil {
		return &Result{Status: StateFailed, Plan: plan, Error: err.Error()}, err
	}
	return e.execute(ctx, state)
}

// Resume continues a previously interrupted run from the snapshot.
func (e *Engine) Resume(ctx context.Context) (*Result, error) {
	e.interrupted.Store(false)
	state, err := e.States.Load()
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrNoResumableState
	}
	// A crash can strand a task in progress. It never completed, so it
	// runs again.
	for _, task := range state.Plan.Tasks {
		if task.Status == framework.TaskInProgress {
			task.Status = framework.TaskPending
		}
	}
	e.emit(framework.Event{Type: framework.EventRunStart, Message: "resume: " + state.Description})
	return e.execute(ctx, state)
}

// prepareWorkspace seeds manifests and starter files for stacks that need
// them before any generated code lands.
func (e *Engine) prepareWorkspace(description, projectType string, tech framework.Technology) error {
	if err := scaffold.EnsureManifest(e.Workspace, projectName(description), projectType, tech); err != nil {
		return fmt.Errorf("scaffold manifest: %w", err)
	}
	if err := scaffold.SeedWorkspace(e.Workspace, projectType, tech); err != nil {
		return fmt.Errorf("seed workspace: %w", err)
	}
	if err := WritePipelinePlan(e.Workspace, BuildPipelinePlan(projectType, tech)); err != nil {
		return fmt.Errorf("pipeline plan: %w", err)
	}
	return nil
}

// execute runs the task loop and finalization for an already planned state.
func (e *Engine) execute(ctx context.Context, state *persistence.ExecutionState) (*Result, error) {
	plan := state.Plan
	// Persisted snapshots can be hand-edited or corrupted; a malformed
	// dependency list must fail here, before any task runs.
	if issues := framework.ValidateTaskDependencies(plan.Tasks); len(issues) > 0 {
		reason := "invalid task dependencies: " + strings.Join(issues, "; ")
		return &Result{Status: StateFailed, Plan: plan, Error: reason}, errors.New(reason)
	}
	graph := framework.NewTaskGraph()
	for _, task := range plan.Tasks {
		if err := graph.Add(task); err != nil {
			result := &Result{Status: StateFailed, Plan: plan, Error: err.Error()}
			return result, err
		}
	}
	e.debugf("state=%s tasks=%d", StateExecuting, len(plan.Tasks))

	maxIterations := 50
	if e.Config != nil && e.Config.Limits.MaxLoopIterations > 0 {
		maxIterations = e.Config.Limits.MaxLoopIterations
	}

	for iteration := 0; iteration < maxIterations; iteration++ {
		if e.interrupted.Load() || ctx.Err() != nil {
			return e.interrupt(state, graph)
		}
		task := graph.NextReady()
		if task == nil {
			if graph.IsComplete() {
				break
			}
			return e.fail(state, graph, stallReason(graph))
		}

		_ = graph.UpdateStatus(task.ID, framework.TaskInProgress, "", "")
		e.emit(framework.Event{Type: framework.EventTaskStart, TaskID: task.ID, Message: task.Title})
		e.saveQuietly(state)

		reactResult, execErr := e.Executor.ExecuteTask(ctx, task)
		if ctx.Err() != nil {
			_ = graph.UpdateStatus(task.ID, framework.TaskPending, "", "")
			return e.interrupt(state, graph)
		}
		if execErr == nil && reactResult.Finished {
			_ = graph.UpdateStatus(task.ID, framework.TaskCompleted, reactResult.Summary, "")
			e.emit(framework.Event{Type: framework.EventTaskFinish, TaskID: task.ID, Message: task.Title})
		} else {
			errText := reactResult.FinalError
			if execErr != nil {
				errText = execErr.Error()
			}
			e.handleFailure(ctx, graph, task, reactResult, errText)
		}
		e.saveQuietly(state)
	}

	if !graph.IsComplete() {
		return e.fail(state, graph, fmt.Sprintf("iteration cap reached with %d tasks unfinished", countUnfinished(graph)))
	}
	return e.finalize(state, graph)
}

// handleFailure gives each task exactly one diagnosed retry. The quality
// layer reflects on the failed attempt's last output and decides the retry
// strategy; its elaborated prompt and the debugger's suggestions are folded
// into the task description so the next attempt sees them, and the task
// moves to the back of the queue.
func (e *Engine) handleFailure(ctx context.Context, graph *framework.TaskGraph, task *framework.Task, reactResult *ReactResult, errText string) {
	maxRetries := 1
	if e.Config != nil && e.Config.Limits.MaxRetries > 0 {
		maxRetries = e.Config.Limits.MaxRetries
	}
	if e.retryCounts == nil {
		e.retryCounts = map[int]int{}
	}
	if e.retryCounts[task.ID] < maxRetries {
		reflection := e.reflectOnFailure(ctx, task, reactResult, errText)
		if reflection.Strategy != StrategyGiveUp {
			diag := e.Debugger.Diagnose(ctx, task.Title, errText)
			if diag.Actionable() {
				e.retryCounts[task.ID]++
				task.Description = appendSuggestions(task.Description, diag.Suggestions)
				if reflection.ShouldRetry && strings.TrimSpace(reflection.ElaboratedQuery) != "" {
					task.Description = reflection.ElaboratedQuery + "\n\n" + task.Description
				}
				_ = graph.Requeue(task.ID)
				e.emit(framework.Event{Type: framework.EventTaskRequeued, TaskID: task.ID,
					Message: fmt.Sprintf("retry %d (%s): %s", e.retryCounts[task.ID], reflection.Strategy, diag.Class)})
				e.debugf("task %d requeued (%s, %s, line %d)", task.ID, reflection.Strategy, diag.Class, diag.Line)
				return
			}
		}
	}
	_ = graph.UpdateStatus(task.ID, framework.TaskFailed, "", errText)
	e.emit(framework.Event{Type: framework.EventTaskFinish, TaskID: task.ID, Message: "failed: " + task.Title})
}

// reflectOnFailure runs the quality layer over the failed attempt. Without a
// reflexion layer the task retries unchanged.
func (e *Engine) reflectOnFailure(ctx context.Context, task *framework.Task, reactResult *ReactResult, errText string) Reflection {
	if e.Reflex == nil {
		return Reflection{Strategy: StrategySame, ShouldRetry: true}
	}
	return e.Reflex.ReflectAndDecide(ctx, task.Title, lastAttemptText(reactResult), errText, e.retryCounts[task.ID])
}

// lastAttemptText recovers the model's final output from the transcript.
func lastAttemptText(res *ReactResult) string {
	if res == nil || len(res.Steps) == 0 {
		return ""
	}
	last := res.Steps[len(res.Steps)-1]
	if last.Action != "" {
		return strings.TrimSpace(last.Thought + "\n" + last.Action)
	}
	return strings.TrimSpace(last.Thought)
}

// finalize runs the security scan, the completion check, and the confidence
// gate, then clears the snapshot on a clean finish.
func (e *Engine) finalize(state *persistence.ExecutionState, graph *framework.TaskGraph) (*Result, error) {
	e.debugf("state=%s", StateFinalizing)
	plan := state.Plan
	result := &Result{Status: StateCompleted, Plan: plan, Progress: graph.Progress()}

	// Resumed runs skip workspace preparation, so the pipeline sketch is
	// (re)written here.
	if err := WritePipelinePlan(e.Workspace, BuildPipelinePlan(state.ProjectType, plan.Technology)); err != nil {
		e.debugf("pipeline plan failed: %v", err)
	}

	guard := framework.NewSecurityGuard(e.Workspace, 0)
	security, err := guard.Scan()
	if err != nil {
		security = &framework.SecurityReport{}
		e.debugf("security scan failed: %v", err)
	}
	result.Security = security

	features := ExtractExpectedFeatures(plan)
	result.Validation = VerifyFeatures(features, e.Workspace.Root())

	check := ValidateProjectCode(state.ProjectType, e.Workspace.Root())
	result.CodeCheck = &check

	result.Confidence = ConfidenceScore(result.Progress.Percentage, &check, len(security.Findings))

	if result.Confidence < 60 || len(security.Findings) > 0 {
		reason := fmt.Sprintf("confidence %d with %d security findings", result.Confidence, len(security.Findings))
		e.emit(framework.Event{Type: framework.EventApprovalNeeded, Message: reason})
		decision := e.Gate.Request(reason, result.Confidence, len(security.Findings))
		result.Approval = &decision
		if !decision.Approved {
			result.Success = false
			result.Error = "finalization declined: " + decision.Reason
			e.emit(framework.Event{Type: framework.EventRunFinish, Message: string(result.Status)})
			return result, nil
		}
	}

	result.Success = result.Validation.AllComplete
	if !result.Success && result.Error == "" {
		result.Error = fmt.Sprintf("%d expected features missing", len(result.Validation.Missing))
	}
	if err := e.States.Delete(); err != nil {
		e.debugf("state cleanup failed: %v", err)
	}
	e.emit(framework.Event{Type: framework.EventRunFinish, Message: string(result.Status)})
	return result, nil
}

// interrupt persists the snapshot and reports the partial run.
func (e *Engine) interrupt(state *persistence.ExecutionState, graph *framework.TaskGraph) (*Result, error) {
	e.saveQuietly(state)
	e.emit(framework.Event{Type: framework.EventInterrupt})
	e.emit(framework.Event{Type: framework.EventRunFinish, Message: string(StateInterrupted)})
	return &Result{
		Status:   StateInterrupted,
		Plan:     state.Plan,
		Progress: graph.Progress(),
	}, nil
}

func (e *Engine) fail(state *persistence.ExecutionState, graph *framework.TaskGraph, reason string) (*Result, error) {
	e.saveQuietly(state)
	e.emit(framework.Event{Type: framework.EventRunFinish, Message: string(StateFailed)})
	return &Result{
		Status:   StateFailed,
		Plan:     state.Plan,
		Progress: graph.Progress(),
		Error:    reason,
	}, errors.New(reason)
}

func (e *Engine) saveState(state *persistence.ExecutionState) error {
	if err := e.States.Save(state); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	e.emit(framework.Event{Type: framework.EventStateSaved})
	return nil
}

// saveQuietly persists mid-loop; a failed save must not kill the run.
func (e *Engine) saveQuietly(state *persistence.ExecutionState) {
	if err := e.saveState(state); err != nil {
		e.debugf("%v", err)
	}
}

// ConfidenceScore maps execution evidence onto a 0-100 score: a progress
// base, a bonus or penalty from the code validation when it ran, and a
// capped penalty per security finding. A skipped validation leaves the
// score untouched rather than penalizing it.
func ConfidenceScore(progressPercent float64, check *CodeValidation, findings int) int {
	score := 40.0 + 0.4*progressPercent
	if check != nil && check.Ran {
		if check.Passed {
			score += 15
		} else {
			score -= 10
		}
	}
	penalty := 5 * findings
	if penalty > 20 {
		penalty = 20
	}
	score -= float64(penalty)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(score)
}

func appendSuggestions(description string, suggestions []string) string {
	var b strings.Builder
	b.WriteString(description)
	b.WriteString("\n\nPrevious attempt failed. Apply these fixes:")
	for _, s := range suggestions {
		b.WriteString("\n- ")
		b.WriteString(s)
	}
	return b.String()
}

func countUnfinished(graph *framework.TaskGraph) int {
	p := graph.Progress()
	return p.Total - p.Completed
}

// stallReason explains why no task is runnable when work remains.
func stallReason(graph *framework.TaskGraph) string {
	p := graph.Progress()
	if p.Failed > 0 {
		return fmt.Sprintf("%d tasks failed and nothing else can run", p.Failed)
	}
	return "no runnable tasks remain: dependencies are blocked"
}

// projectName derives a short name from the first few words of the request.
func projectName(description string) string {
	words := strings.Fields(description)
	if len(words) > 4 {
		words = words[:4]
	}
	if len(words) == 0 {
		return "generated-project"
	}
	return strings.Join(words, "-")
}
