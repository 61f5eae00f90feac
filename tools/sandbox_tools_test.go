package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/autoforge/framework"
)

func newRegistry(t *testing.T) (*framework.ToolRegistry, *framework.Workspace) {
	t.Helper()
	ws, err := framework.NewWorkspace(t.TempDir())
	require.NoError(t, err)
	runner, err := framework.NewAllowlistCommandRunner(ws, []string{"echo", "ls"}, 5*time.Second)
	require.NoError(t, err)
	registry, err := SandboxRegistry(ws, runner)
	require.NoError(t, err)
	return registry, ws
}

func TestSandboxRegistryContents(t *testing.T) {
	registry, _ := newRegistry(t)
	assert.Equal(t, []string{"read_file", "write_file", "list_dir", "run_command", "finish"}, registry.Names())
}

func TestWriteThenReadFile(t *testing.T) {
	registry, _ := newRegistry(t)
	write, _ := registry.Get("write_file")
	res, err := write.Execute(context.Background(), map[string]interface{}{
		"path":    "src/app.js",
		"content": "console.log('hi')",
	})
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)

	read, _ := registry.Get("read_file")
	res, err = read.Execute(context.Background(), map[string]interface{}{"path": "src/app.js"})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "console.log('hi')", res.Output)
}

func TestReadFileTraversalBecomesToolError(t *testing.T) {
	registry, _ := newRegistry(t)
	read, _ := registry.Get("read_file")
	res, err := read.Execute(context.Background(), map[string]interface{}{"path": "../../etc/passwd"})
	require.NoError(t, err, "sandbox violations must surface as observations, not Go errors")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "workspace")
}

func TestListDirDefaultsToRoot(t *testing.T) {
	registry, ws := newRegistry(t)
	require.NoError(t, ws.WriteFile("a.txt", "x"))
	list, _ := registry.Get("list_dir")
	res, err := list.Execute(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Output, "a.txt")
}

func TestRunCommandCapturesOutput(t *testing.T) {
	registry, _ := newRegistry(t)
	run, _ := registry.Get("run_command")
	res, err := run.Execute(context.Background(), map[string]interface{}{"command": "echo build ok"})
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Output, "exit_code: 0")
	assert.Contains(t, res.Output, "build ok")
}

func TestRunCommandDisallowedBinary(t *testing.T) {
	registry, _ := newRegistry(t)
	run, _ := registry.Get("run_command")
	res, err := run.Execute(context.Background(), map[string]interface{}{"command": "curl http://evil"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not allowed")
}

func TestRunCommandNonZeroExit(t *testing.T) {
	registry, _ := newRegistry(t)
	run, _ := registry.Get("run_command")
	res, err := run.Execute(context.Background(), map[string]interface{}{"command": "ls no-such-entry"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, strings.Contains(res.Output, "exit_code:"), res.Output)
}
