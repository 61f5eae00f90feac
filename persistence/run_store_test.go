package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunStore(t *testing.T) *RunStore {
	t.Helper()
	store, err := NewRunStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunStoreCreateGetUpdate(t *testing.T) {
	store := newTestRunStore(t)

	rec := &RunRecord{
		ID:          "run-1",
		Description: "build a todo manager",
		ProjectType: "desktop-python",
		Status:      "planning",
	}
	require.NoError(t, store.CreateRun(rec))
	assert.False(t, rec.StartedAt.IsZero(), "CreateRun stamps the start time")

	got, err := store.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "build a todo manager", got.Description)
	assert.Equal(t, "planning", got.Status)
	assert.True(t, got.FinishedAt.IsZero())

	rec.Status = "completed"
	rec.Confidence = 85
	rec.Progress = 100
	rec.FinishedAt = time.Now().UTC()
	require.NoError(t, store.UpdateRun(rec))

	got, err = store.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, 85, got.Confidence)
	assert.InDelta(t, 100.0, got.Progress, 0.001)
	assert.False(t, got.FinishedAt.IsZero())
}

func TestRunStoreGetMissing(t *testing.T) {
	store := newTestRunStore(t)
	_, err := store.GetRun("nope")
	assert.ErrorContains(t, err, "not found")
}

func TestRunStoreUpdateMissing(t *testing.T) {
	store := newTestRunStore(t)
	err := store.UpdateRun(&RunRecord{ID: "ghost", Status: "failed"})
	assert.ErrorContains(t, err, "not found")
}

func TestRunStoreListNewestFirst(t *testing.T) {
	store := newTestRunStore(t)
	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, store.CreateRun(&RunRecord{
			ID:          id,
			Description: id,
			Status:      "completed",
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "old", runs[2].ID)

	runs, err = store.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunStoreTransitionsInOrder(t *testing.T) {
	store := newTestRunStore(t)
	require.NoError(t, store.CreateRun(&RunRecord{ID: "run-t", Description: "d", Status: "planning"}))

	require.NoError(t, store.RecordTransition(Transition{RunID: "run-t", From: "planning", To: "executing"}))
	require.NoError(t, store.RecordTransition(Transition{RunID: "run-t", From: "executing", To: "finalizing", TaskID: 2}))
	require.NoError(t, store.RecordTransition(Transition{RunID: "run-t", From: "finalizing", To: "completed", Detail: "all tasks done"}))

	trail, err := store.Transitions("run-t")
	require.NoError(t, err)
	require.Len(t, trail, 3)
	assert.Equal(t, "executing", trail[0].To)
	assert.Equal(t, 2, trail[1].TaskID)
	assert.Equal(t, "all tasks done", trail[2].Detail)
	for _, tr := range trail {
		assert.False(t, tr.At.IsZero())
	}
}

func TestRunStoreTransitionRequiresRunID(t *testing.T) {
	store := newTestRunStore(t)
	assert.Error(t, store.RecordTransition(Transition{To: "executing"}))
}

func TestRunStoreArtifactRoundTrip(t *testing.T) {
	store := newTestRunStore(t)
	require.NoError(t, store.CreateRun(&RunRecord{ID: "run-a", Description: "d", Status: "executing"}))

	type report struct {
		Findings []string `json:"findings"`
		Score    int      `json:"score"`
	}
	require.NoError(t, store.SaveArtifact("run-a", "security", report{Findings: []string{"secret in config"}, Score: 40}))
	require.NoError(t, store.SaveArtifact("run-a", "security", report{Score: 90}))

	var got report
	require.NoError(t, store.Artifact("run-a", "security", &got))
	assert.Equal(t, 90, got.Score, "latest artifact of a kind wins")
	assert.Empty(t, got.Findings)

	err := store.Artifact("run-a", "missing-kind", &got)
	assert.ErrorContains(t, err, "not found")
}

func TestRunStoreApprovalRoundTrip(t *testing.T) {
	store := newTestRunStore(t)
	require.NoError(t, store.CreateRun(&RunRecord{ID: "run-g", Description: "d", Status: "finalizing"}))
	require.NoError(t, store.RecordApproval("run-g", "req-1", false, "policy", "auto-declined: non-interactive run"))
	require.NoError(t, store.RecordApproval("run-g", "req-2", true, "operator", "reviewed the findings"))

	approvals, err := store.Approvals("run-g")
	require.NoError(t, err)
	require.Len(t, approvals, 2)
	assert.Equal(t, "req-1", approvals[0].RequestID)
	assert.False(t, approvals[0].Approved)
	assert.Equal(t, "policy", approvals[0].DecidedBy)
	assert.True(t, approvals[1].Approved)
	assert.Equal(t, "operator", approvals[1].DecidedBy)
	for _, a := range approvals {
		assert.False(t, a.At.IsZero())
	}

	approvals, err = store.Approvals("run-other")
	require.NoError(t, err)
	assert.Empty(t, approvals)
}
