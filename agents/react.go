package agents

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/lexcodex/autoforge/framework"
	"github.com/lexcodex/autoforge/tools"
)

// DefaultMaxReactSteps bounds one task's reason-act loop.
const DefaultMaxReactSteps = 15

// observationStop makes the oracle halt before inventing its own
// observation; the executor supplies the real one.
const observationStop = "Observation:"

var toolCodePattern = regexp.MustCompile(`(?s)<tool_code>\s*(.*?)\s*</tool_code>`)

// StepRecord captures one completed loop iteration for the transcript.
type StepRecord struct {
	Step        int    `json:"step"`
	Thought     string `json:"thought"`
	Action      string `json:"action"`
	Observation string `json:"observation"`
}

// ReactResult is the outcome of executing one task.
type ReactResult struct {
	Finished   bool         `json:"finished"`
	Summary    string       `json:"summary"`
	Steps      []StepRecord `json:"steps"`
	FinalError string       `json:"final_error,omitempty"`
}

// ReactExecutor drives the reason-act loop for a single task: prompt the
// oracle, parse the tool call out of the reply, execute it, feed the
// observation back, repeat until finish() or the step cap.
type ReactExecutor struct {
	Model    framework.LanguageModel
	Registry *framework.ToolRegistry
	Telem    framework.Telemetry
	MaxSteps int
	Debug    bool
}

// NewReactExecutor builds an executor with the default step cap.
func NewReactExecutor(model framework.LanguageModel, registry *framework.ToolRegistry) *ReactExecutor {
	return &ReactExecutor{Model: model, Registry: registry, MaxSteps: DefaultMaxReactSteps}
}

func (e *ReactExecutor) debugf(format string, args ...interface{}) {
	if !e.Debug {
		return
	}
	log.Printf("[react] "+format, args...)
}

func (e *ReactExecutor) emit(event framework.Event) {
	if e.Telem == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	e.Telem.Emit(event)
}

// ExecuteTask runs the loop for one task. Tool failures are not loop
// failures: the error text becomes the observation and the oracle decides
// what to do next. The loop fails only on oracle errors, unusable replies
// after the step budget, or context cancellation.
func (e *ReactExecutor) ExecuteTask(ctx context.Context, task *framework.Task) (*ReactResult, error) {
	maxSteps := e.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxReactSteps
	}
	result := &ReactResult{}
	transcript := e.systemPrompt(task)

	for step := 1; step <= maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		resp, err := e.Model.Generate(ctx, transcript, &framework.LLMOptions{
			Temperature: 0.1,
			MaxTokens:   1024,
			Stop:        []string{observationStop},
		})
		if err != nil {
			result.FinalError = err.Error()
			return result, fmt.Errorf("react step %d: %w", step, err)
		}
		thought, action := splitThoughtAction(resp.Text)
		record := StepRecord{Step: step, Thought: thought, Action: action}
		e.emit(framework.Event{Type: framework.EventReactStep, TaskID: task.ID, Message: thought})

		if action == "" {
			if ClaimsCompletion(resp.Text) {
				record.Observation = "You state the task is complete but did not call finish(). Call finish() to end the task."
			} else {
				record.Observation = "No <tool_code> block found. Emit exactly one tool call wrapped in <tool_code></tool_code>."
			}
			result.Steps = append(result.Steps, record)
			transcript += resp.Text + "\n" + observationStop + " " + record.Observation + "\n"
			continue
		}

		call, parseErr := framework.ParseToolCall(action)
		if parseErr != nil {
			record.Observation = "Tool call rejected: " + parseErr.Error() + ". Use literal arguments only."
			result.Steps = append(result.Steps, record)
			transcript += resp.Text + "\n" + observationStop + " " + record.Observation + "\n"
			continue
		}

		if call.Name == tools.FinishToolName {
			record.Observation = "done"
			result.Steps = append(result.Steps, record)
			result.Finished = true
			result.Summary = finishSummary(call, thought)
			e.debugf("task %d finished in %d steps", task.ID, step)
			return result, nil
		}

		record.Observation = e.dispatch(ctx, task.ID, call)
		result.Steps = append(result.Steps, record)
		transcript += resp.Text + "\n" + observationStop + " " + record.Observation + "\n"
	}

	result.FinalError = fmt.Sprintf("step budget of %d exhausted without finish()", maxSteps)
	return result, fmt.Errorf("task %d: %s", task.ID, result.FinalError)
}

// dispatch looks up, binds, and executes one parsed call, returning the
// observation text fed back to the oracle.
func (e *ReactExecutor) dispatch(ctx context.Context, taskID int, call *framework.ParsedToolCall) string {
	tool, ok := e.Registry.Get(call.Name)
	if !ok {
		return fmt.Sprintf("Unknown tool %q. Available: %s.", call.Name, strings.Join(e.Registry.Names(), ", "))
	}
	args, err := framework.BindArgs(tool, call)
	if err != nil {
		return "Bad arguments for " + call.Name + ": " + err.Error()
	}
	e.emit(framework.Event{Type: framework.EventToolCall, TaskID: taskID, Message: call.Name})
	res, err := tool.Execute(ctx, args)
	if err != nil {
		e.emit(framework.Event{Type: framework.EventToolResult, TaskID: taskID, Message: call.Name + ": error"})
		return "Tool error: " + err.Error()
	}
	e.emit(framework.Event{Type: framework.EventToolResult, TaskID: taskID, Message: call.Name})
	if !res.Success {
		return "Tool error: " + res.Error
	}
	if strings.TrimSpace(res.Output) == "" {
		return "ok"
	}
	return res.Output
}

func (e *ReactExecutor) systemPrompt(task *framework.Task) string {
	var b strings.Builder
	b.WriteString("You are a coding agent working inside a project workspace.\n")
	b.WriteString("Complete the task below using the tools provided.\n\n")
	b.WriteString(e.Registry.RenderPrompt())
	b.WriteString("\nRules:\n")
	b.WriteString("- Each turn, write a short Thought: line, then exactly one tool call wrapped in <tool_code></tool_code>.\n")
	b.WriteString("- Tool arguments must be literals: strings, numbers, booleans, or none. No expressions or variables.\n")
	b.WriteString("- When the task is done, call finish().\n\n")
	b.WriteString("Task: " + task.Title + "\n")
	if task.Description != "" {
		b.WriteString("Details: " + task.Description + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

// splitThoughtAction separates the Thought: text from the first tool_code
// block. Missing pieces come back empty.
func splitThoughtAction(text string) (thought, action string) {
	if m := toolCodePattern.FindStringSubmatch(text); len(m) == 2 {
		action = strings.TrimSpace(m[1])
	}
	cleaned := toolCodePattern.ReplaceAllString(text, "")
	for _, line := range strings.Split(cleaned, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		thought = strings.TrimSpace(strings.TrimPrefix(line, "Thought:"))
		break
	}
	return thought, action
}

// finishSummary prefers an explicit finish("...") message over the last
// thought.
func finishSummary(call *framework.ParsedToolCall, thought string) string {
	if len(call.Positional) > 0 {
		if s, ok := call.Positional[0].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	if msg, ok := call.Keyword["message"]; ok {
		if s, ok := msg.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	if thought != "" {
		return thought
	}
	return "task completed"
}
