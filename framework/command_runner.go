package framework

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrCommandNotAllowed marks commands rejected by the allowlist.
var ErrCommandNotAllowed = errors.New("command not allowed")

// CommandRequest captures process execution metadata routed through the
// sandbox.
type CommandRequest struct {
	Workdir string
	Args    []string
	Env     []string
	Input   string
	Timeout time.Duration
}

// CommandResult carries the captured output of a finished process.
type CommandResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// CommandRunner describes a primitive capable of executing commands inside
// the workspace.
type CommandRunner interface {
	Run(ctx context.Context, req CommandRequest) (*CommandResult, error)
}

// DefaultCommandTimeout bounds the wall clock of every sandboxed command.
const DefaultCommandTimeout = 120 * time.Second

// DefaultAllowedCommands is the closed set of binaries tasks may invoke.
var DefaultAllowedCommands = []string{
	"ls", "cat", "mkdir", "touch", "cp", "mv", "echo", "grep", "find", "wc",
	"node", "npm", "npx", "python", "python3", "pip", "pip3",
	"go", "gofmt", "cargo", "gradle", "flutter", "dart", "git",
}

// AllowlistCommandRunner launches argv-style commands whose resolved
// basename is on a fixed allowlist. There is no shell in the path, so
// metacharacters in arguments are passed through as literal bytes and can
// never splice in a second command.
type AllowlistCommandRunner struct {
	workspace *Workspace
	allowed   map[string]bool
	timeout   time.Duration
}

// NewAllowlistCommandRunner builds a runner confined to the workspace.
// A nil or empty allowlist falls back to DefaultAllowedCommands.
func NewAllowlistCommandRunner(workspace *Workspace, allowed []string, timeout time.Duration) (*AllowlistCommandRunner, error) {
	if workspace == nil {
		return nil, errors.New("workspace required")
	}
	if len(allowed) == 0 {
		allowed = DefaultAllowedCommands
	}
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	set := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		set[name] = true
	}
	return &AllowlistCommandRunner{workspace: workspace, allowed: set, timeout: timeout}, nil
}

// Run executes the requested command and captures its output. Non-zero
// exits are reported through ExitCode, not as an error, so the caller can
// feed them back to the model as an observation.
func (r *AllowlistCommandRunner) Run(ctx context.Context, req CommandRequest) (*CommandResult, error) {
	if len(req.Args) == 0 {
		return nil, errors.New("command arguments required")
	}
	binary, err := r.resolveBinary(req.Args[0])
	if err != nil {
		return nil, err
	}
	workdir := r.workspace.Root()
	if req.Workdir != "" {
		workdir, err = r.workspace.Resolve(req.Workdir)
		if err != nil {
			return nil, err
		}
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, binary, req.Args[1:]...)
	cmd.Dir = workdir
	cmd.Env = append(cmd.Environ(), req.Env...)
	if req.Input != "" {
		cmd.Stdin = strings.NewReader(req.Input)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	result := &CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(execCtx.Err(), context.DeadlineExceeded):
			return nil, fmt.Errorf("command %s timed out after %s", req.Args[0], timeout)
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		default:
			return nil, fmt.Errorf("run %s: %w", req.Args[0], err)
		}
	}
	return result, nil
}

// resolveBinary looks the command up on PATH and checks its resolved
// basename against the allowlist. Checking after resolution stops
// "./ls"-style aliases from smuggling in arbitrary binaries.
func (r *AllowlistCommandRunner) resolveBinary(name string) (string, error) {
	if strings.ContainsAny(name, "/\\") {
		return "", fmt.Errorf("%w: %s (paths are not permitted)", ErrCommandNotAllowed, name)
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s not found on PATH", ErrCommandNotAllowed, name)
	}
	base := filepath.Base(path)
	if !r.allowed[base] {
		return "", fmt.Errorf("%w: %s", ErrCommandNotAllowed, base)
	}
	return path, nil
}
