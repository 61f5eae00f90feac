package framework

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestRunner(t *testing.T, allowed []string) (*AllowlistCommandRunner, *Workspace) {
	t.Helper()
	ws, err := NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	runner, err := NewAllowlistCommandRunner(ws, allowed, 5*time.Second)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	return runner, ws
}

// TestRunnerAllowsListedCommand runs a trivially available binary and
// captures its stdout.
func TestRunnerAllowsListedCommand(t *testing.T) {
	runner, _ := newTestRunner(t, []string{"echo"})
	res, err := runner.Run(context.Background(), CommandRequest{Args: []string{"echo", "hello"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.ExitCode != 0 || strings.TrimSpace(res.Stdout) != "hello" {
		t.Fatalf("unexpected result %+v", res)
	}
}

// TestRunnerRejectsUnlistedCommand fails closed for binaries off the
// allowlist.
func TestRunnerRejectsUnlistedCommand(t *testing.T) {
	runner, _ := newTestRunner(t, []string{"echo"})
	_, err := runner.Run(context.Background(), CommandRequest{Args: []string{"cat", "x"}})
	if !errors.Is(err, ErrCommandNotAllowed) {
		t.Fatalf("expected ErrCommandNotAllowed, got %v", err)
	}
}

// TestRunnerRejectsPathArguments refuses explicit paths so the allowlist
// cannot be bypassed with ./aliases.
func TestRunnerRejectsPathArguments(t *testing.T) {
	runner, _ := newTestRunner(t, []string{"echo"})
	for _, name := range []string{"./echo", "/bin/echo", "bin\\echo"} {
		_, err := runner.Run(context.Background(), CommandRequest{Args: []string{name}})
		if !errors.Is(err, ErrCommandNotAllowed) {
			t.Fatalf("binary %q: expected ErrCommandNotAllowed, got %v", name, err)
		}
	}
}

// TestRunnerMetacharactersAreLiteral proves shell metacharacters in
// arguments never splice in a second command because no shell is involved.
func TestRunnerMetacharactersAreLiteral(t *testing.T) {
	runner, _ := newTestRunner(t, []string{"echo"})
	res, err := runner.Run(context.Background(), CommandRequest{Args: []string{"echo", "a; rm -rf /", "&&", "|whoami"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(res.Stdout, "a; rm -rf /") || !strings.Contains(res.Stdout, "|whoami") {
		t.Fatalf("metacharacters were not passed through literally: %q", res.Stdout)
	}
}

// TestRunnerNonZeroExit surfaces the exit code instead of an error so the
// ReAct loop can observe the failure.
func TestRunnerNonZeroExit(t *testing.T) {
	runner, _ := newTestRunner(t, []string{"ls"})
	res, err := runner.Run(context.Background(), CommandRequest{Args: []string{"ls", "definitely-not-here-xyz"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.ExitCode == 0 {
		t.Fatalf("expected non-zero exit, got %+v", res)
	}
}

// TestRunnerWorkdirStaysInWorkspace routes workdir through the sandbox.
func TestRunnerWorkdirStaysInWorkspace(t *testing.T) {
	runner, _ := newTestRunner(t, []string{"ls"})
	_, err := runner.Run(context.Background(), CommandRequest{Args: []string{"ls"}, Workdir: "../outside"})
	if !errors.Is(err, ErrOutsideWorkspace) {
		t.Fatalf("expected ErrOutsideWorkspace, got %v", err)
	}
}
