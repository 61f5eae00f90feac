package agents

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/autoforge/framework"
)

func writeWorkspaceFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestExtractExpectedFeatures(t *testing.T) {
	plan := &framework.PlanningOutput{
		Understanding: framework.Understanding{
			PrimaryGoal:    "User authentication",
			SecondaryGoals: []string{"session management"},
		},
		Requirements: framework.Requirements{
			Functional: []string{"user authentication", "password reset"},
		},
		Tasks: []*framework.Task{
			{Title: "Initialize Project"},
			{Title: "Build login form"},
			{Title: "Write Documentation"},
		},
	}
	features := ExtractExpectedFeatures(plan)
	// primary goal dedupes the matching functional requirement, setup and
	// documentation titles are skipped
	assert.Equal(t, []string{
		"User authentication",
		"session management",
		"password reset",
		"Build login form",
	}, features)
}

func TestVerifyFeaturesContentMatch(t *testing.T) {
	dir := t.TempDir()
	writeWorkspaceFile(t, dir, "auth_service.py", "def login(user, password):\n    # authentication happens here\n    return session\n")

	report := VerifyFeatures([]string{"user authentication"}, dir)
	assert.True(t, report.AllComplete)
	assert.Equal(t, []string{"user authentication"}, report.Verified)
	assert.Equal(t, 1.0, report.Confidence)
	assert.Contains(t, report.Evidence["user authentication"], "auth_service.py")
}

func TestVerifyFeaturesFilenameStemMatch(t *testing.T) {
	dir := t.TempDir()
	writeWorkspaceFile(t, dir, "payments.py", "x = 1\n")

	report := VerifyFeatures([]string{"payments dashboard"}, dir)
	assert.Equal(t, []string{"payments dashboard"}, report.Verified)
}

func TestVerifyFeaturesReportsMissing(t *testing.T) {
	dir := t.TempDir()
	writeWorkspaceFile(t, dir, "main.py", "print('hello')\n")

	report := VerifyFeatures([]string{"user authentication", "hello output"}, dir)
	assert.False(t, report.AllComplete)
	assert.Equal(t, []string{"user authentication"}, report.Missing)
	assert.InDelta(t, 0.5, report.Confidence, 0.001)
}

func TestVerifyFeaturesSkipsVendorDirs(t *testing.T) {
	dir := t.TempDir()
	writeWorkspaceFile(t, dir, "node_modules/lib/auth.js", "login authentication session\n")

	report := VerifyFeatures([]string{"login authentication"}, dir)
	assert.False(t, report.AllComplete)
	assert.Empty(t, report.Verified)
}

func TestVerifyFeaturesEmptyListIsComplete(t *testing.T) {
	report := VerifyFeatures(nil, t.TempDir())
	assert.True(t, report.AllComplete)
	assert.Equal(t, 1.0, report.Confidence)
}

func TestGenerateMissingTasksChainsDependencies(t *testing.T) {
	tasks := GenerateMissingTasks([]string{"login page", "logout flow"}, 5)
	assert.Len(t, tasks, 2)
	assert.Equal(t, 5, tasks[0].ID)
	assert.Empty(t, tasks[0].Dependencies)
	assert.Equal(t, 6, tasks[1].ID)
	assert.Equal(t, []int{5}, tasks[1].Dependencies)
	assert.Equal(t, framework.TaskPending, tasks[0].Status)
}
