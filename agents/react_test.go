package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/autoforge/framework"
	"github.com/lexcodex/autoforge/tools"
)

// stubRunner satisfies framework.CommandRunner without spawning processes.
type stubRunner struct {
	result *framework.CommandResult
	err    error
}

func (r stubRunner) Run(_ context.Context, _ framework.CommandRequest) (*framework.CommandResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.result != nil {
		return r.result, nil
	}
	return &framework.CommandResult{}, nil
}

func newTestExecutor(t *testing.T, model framework.LanguageModel) (*ReactExecutor, *framework.Workspace) {
	t.Helper()
	ws, err := framework.NewWorkspace(t.TempDir())
	require.NoError(t, err)
	registry, err := tools.SandboxRegistry(ws, stubRunner{})
	require.NoError(t, err)
	return NewReactExecutor(model, registry), ws
}

func TestExecuteTaskWritesFileAndFinishes(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"Thought: create the file\n<tool_code>write_file(\"hello.txt\", \"hi there\")</tool_code>",
		"Thought: all set\n<tool_code>finish(\"wrote hello.txt\")</tool_code>",
	}}
	executor, ws := newTestExecutor(t, model)

	result, err := executor.ExecuteTask(context.Background(), &framework.Task{ID: 1, Title: "create a greeting file"})
	require.NoError(t, err)
	assert.True(t, result.Finished)
	assert.Equal(t, "wrote hello.txt", result.Summary)
	require.Len(t, result.Steps, 2)
	assert.Contains(t, result.Steps[0].Observation, "wrote 8 bytes")

	content, err := ws.ReadFile("hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "hi there", content)
}

func TestExecuteTaskFeedsToolErrorsBack(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"Thought: check the file\n<tool_code>read_file(\"missing.txt\")</tool_code>",
		"Thought: it is absent, done\n<tool_code>finish(\"confirmed absent\")</tool_code>",
	}}
	executor, _ := newTestExecutor(t, model)

	result, err := executor.ExecuteTask(context.Background(), &framework.Task{ID: 2, Title: "inspect"})
	require.NoError(t, err)
	assert.True(t, result.Finished)
	assert.Contains(t, result.Steps[0].Observation, "Tool error")
}

func TestExecuteTaskRejectsExpressions(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"Thought: compute\n<tool_code>write_file(\"a.txt\", 1 + 2)</tool_code>",
		"Thought: retry with a literal\n<tool_code>finish()</tool_code>",
	}}
	executor, _ := newTestExecutor(t, model)

	result, err := executor.ExecuteTask(context.Background(), &framework.Task{ID: 3, Title: "compute"})
	require.NoError(t, err)
	assert.Contains(t, result.Steps[0].Observation, "Tool call rejected")
	assert.True(t, result.Finished)
}

func TestExecuteTaskUnknownTool(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"Thought: try something\n<tool_code>delete_everything(\"/\")</tool_code>",
		"<tool_code>finish(\"gave up on that tool\")</tool_code>",
	}}
	executor, _ := newTestExecutor(t, model)

	result, err := executor.ExecuteTask(context.Background(), &framework.Task{ID: 4, Title: "cleanup"})
	require.NoError(t, err)
	assert.Contains(t, result.Steps[0].Observation, "Unknown tool")
}

func TestExecuteTaskStepBudget(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"Thought: looking around\n<tool_code>list_dir(\"\")</tool_code>",
	}}
	executor, _ := newTestExecutor(t, model)
	executor.MaxSteps = 3

	result, err := executor.ExecuteTask(context.Background(), &framework.Task{ID: 5, Title: "wander"})
	require.Error(t, err)
	assert.False(t, result.Finished)
	assert.Len(t, result.Steps, 3)
	assert.Contains(t, result.FinalError, "step budget")
}

func TestExecuteTaskMissingToolCodeBlock(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"I would create a file now.",
		"<tool_code>finish(\"done\")</tool_code>",
	}}
	executor, _ := newTestExecutor(t, model)

	result, err := executor.ExecuteTask(context.Background(), &framework.Task{ID: 6, Title: "nudge"})
	require.NoError(t, err)
	assert.Contains(t, result.Steps[0].Observation, "No <tool_code> block")
	assert.True(t, result.Finished)
}

func TestExecuteTaskNudgesFinishOnCompletionClaim(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"The implementation is complete. Task complete.",
		"<tool_code>finish(\"done\")</tool_code>",
	}}
	executor, _ := newTestExecutor(t, model)

	result, err := executor.ExecuteTask(context.Background(), &framework.Task{ID: 7, Title: "wrap up"})
	require.NoError(t, err)
	assert.Contains(t, result.Steps[0].Observation, "Call finish()")
	assert.True(t, result.Finished)
}

func TestSplitThoughtAction(t *testing.T) {
	thought, action := splitThoughtAction("Thought: do it\n<tool_code>finish()</tool_code>")
	assert.Equal(t, "do it", thought)
	assert.Equal(t, "finish()", action)

	thought, action = splitThoughtAction("just prose")
	assert.Equal(t, "just prose", thought)
	assert.Empty(t, action)
}
