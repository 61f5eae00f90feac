// Package tools implements the closed tool set the ReAct loop may invoke:
// workspace file I/O, allowlisted command execution, and the finish marker.
// Every tool routes paths through the workspace sandbox and reports model-
// correctable failures in ToolResult.Error rather than as Go errors.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/lexcodex/autoforge/framework"
)

// FinishToolName is the loop-terminating pseudo tool. The ReAct loop
// intercepts it before dispatch; the registry entry exists so the model
// sees it in the prompt.
const FinishToolName = "finish"

// ReadFileTool reads a UTF-8 file from the workspace.
type ReadFileTool struct {
	Workspace *framework.Workspace
}

func (t *ReadFileTool) Name() string        { return "read_file" }
func (t *ReadFileTool) Description() string { return "Reads a text file from the workspace." }
func (t *ReadFileTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "path", Type: "string", Description: "workspace-relative file path", Required: true},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]interface{}) (*framework.ToolResult, error) {
	path := stringArg(args, "path")
	content, err := t.Workspace.ReadFile(path)
	if err != nil {
		return &framework.ToolResult{Success: false, Error: err.Error()}, nil
	}
	return &framework.ToolResult{Success: true, Output: content}, nil
}

// WriteFileTool writes content to a workspace file, creating parents.
type WriteFileTool struct {
	Workspace *framework.Workspace
}

func (t *WriteFileTool) Name() string        { return "write_file" }
func (t *WriteFileTool) Description() string { return "Writes content to a workspace file." }
func (t *WriteFileTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "path", Type: "string", Description: "workspace-relative file path", Required: true},
		{Name: "content", Type: "string", Description: "full file content", Required: true},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]interface{}) (*framework.ToolResult, error) {
	path := stringArg(args, "path")
	content := stringArg(args, "content")
	if err := t.Workspace.WriteFile(path, content); err != nil {
		return &framework.ToolResult{Success: false, Error: err.Error()}, nil
	}
	return &framework.ToolResult{
		Success: true,
		Output:  fmt.Sprintf("wrote %d bytes to %s", len(content), path),
	}, nil
}

// ListDirTool lists a workspace directory.
type ListDirTool struct {
	Workspace *framework.Workspace
}

func (t *ListDirTool) Name() string        { return "list_dir" }
func (t *ListDirTool) Description() string { return "Lists the entries of a workspace directory." }
func (t *ListDirTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "path", Type: "string", Description: "workspace-relative directory", Required: false},
	}
}

func (t *ListDirTool) Execute(ctx context.Context, args map[string]interface{}) (*framework.ToolResult, error) {
	path := stringArg(args, "path")
	entries, err := t.Workspace.ListDir(path)
	if err != nil {
		return &framework.ToolResult{Success: false, Error: err.Error()}, nil
	}
	if len(entries) == 0 {
		return &framework.ToolResult{Success: true, Output: "(empty directory)"}, nil
	}
	return &framework.ToolResult{Success: true, Output: strings.Join(entries, "\n")}, nil
}

// RunCommandTool executes an allowlisted command inside the workspace.
type RunCommandTool struct {
	Runner framework.CommandRunner
}

func (t *RunCommandTool) Name() string { return "run_command" }
func (t *RunCommandTool) Description() string {
	return "Runs an allowlisted command in the workspace and returns stdout/stderr/exit code."
}
func (t *RunCommandTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "command", Type: "string", Description: "command line, split on spaces", Required: true},
	}
}

func (t *RunCommandTool) Execute(ctx context.Context, args map[string]interface{}) (*framework.ToolResult, error) {
	command := strings.TrimSpace(stringArg(args, "command"))
	if command == "" {
		return &framework.ToolResult{Success: false, Error: "command required"}, nil
	}
	// Arguments are split on whitespace only; there is deliberately no shell
	// in the path, so quoting tricks cannot produce a second command.
	argv := strings.Fields(command)
	res, err := t.Runner.Run(ctx, framework.CommandRequest{Args: argv})
	if err != nil {
		return &framework.ToolResult{Success: false, Error: err.Error()}, nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "exit_code: %d\n", res.ExitCode)
	if res.Stdout != "" {
		fmt.Fprintf(&sb, "stdout:\n%s\n", strings.TrimRight(res.Stdout, "\n"))
	}
	if res.Stderr != "" {
		fmt.Fprintf(&sb, "stderr:\n%s\n", strings.TrimRight(res.Stderr, "\n"))
	}
	return &framework.ToolResult{Success: res.ExitCode == 0, Output: sb.String()}, nil
}

// FinishTool is a marker: invoking it means the task is done. The loop
// short-circuits before Execute is ever called.
type FinishTool struct{}

func (FinishTool) Name() string { return FinishToolName }
func (FinishTool) Description() string {
	return "Call finish(summary) when the task is complete."
}
func (FinishTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "summary", Type: "string", Description: "short completion summary", Required: false},
	}
}

func (FinishTool) Execute(ctx context.Context, args map[string]interface{}) (*framework.ToolResult, error) {
	return &framework.ToolResult{Success: true, Output: stringArg(args, "summary")}, nil
}

// SandboxRegistry wires the full closed tool set for one run.
func SandboxRegistry(workspace *framework.Workspace, runner framework.CommandRunner) (*framework.ToolRegistry, error) {
	registry := framework.NewToolRegistry()
	for _, tool := range []framework.Tool{
		&ReadFileTool{Workspace: workspace},
		&WriteFileTool{Workspace: workspace},
		&ListDirTool{Workspace: workspace},
		&RunCommandTool{Runner: runner},
		FinishTool{},
	} {
		if err := registry.Register(tool); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func stringArg(args map[string]interface{}, key string) string {
	value, ok := args[key]
	if !ok || value == nil {
		return ""
	}
	return fmt.Sprint(value)
}
