package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/autoforge/framework"
)

func newTestStateStore(t *testing.T) (*StateStore, *framework.Workspace) {
	t.Helper()
	ws, err := framework.NewWorkspace(t.TempDir())
	require.NoError(t, err)
	return NewStateStore(ws), ws
}

func sampleState() *ExecutionState {
	return &ExecutionState{
		Description: "build a todo manager",
		ProjectType: "desktop-python",
		Requirement: []string{"add todos", "list todos"},
		Plan: &framework.PlanningOutput{
			Tasks: []*framework.Task{
				{ID: 0, Title: "Build core", Status: framework.TaskCompleted},
				{ID: 1, Title: "Write tests", Status: framework.TaskPending, Dependencies: []int{0}},
			},
		},
	}
}

func TestStateStoreRoundTrip(t *testing.T) {
	store, _ := newTestStateStore(t)

	require.NoError(t, store.Save(sampleState()))
	assert.True(t, store.Exists())

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "build a todo manager", loaded.Description)
	assert.Equal(t, "desktop-python", loaded.ProjectType)
	require.Len(t, loaded.Plan.Tasks, 2)
	assert.Equal(t, framework.TaskCompleted, loaded.Plan.Tasks[0].Status)
	assert.Equal(t, framework.TaskPending, loaded.Plan.Tasks[1].Status)
	assert.Equal(t, []int{0}, loaded.Plan.Tasks[1].Dependencies)
}

func TestStateStoreLoadAbsent(t *testing.T) {
	store, _ := newTestStateStore(t)
	state, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, state)
	assert.False(t, store.Exists())
}

func TestStateStoreLoadCorrupt(t *testing.T) {
	store, ws := newTestStateStore(t)
	require.NoError(t, ws.WriteFile(StateFile, "{not json"))

	state, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, state, "a half-written snapshot reads as absent")
}

func TestStateStoreLoadWithoutPlan(t *testing.T) {
	store, ws := newTestStateStore(t)
	require.NoError(t, ws.WriteFile(StateFile, `{"description": "x", "plan": null}`))

	state, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestStateStoreDelete(t *testing.T) {
	store, _ := newTestStateStore(t)
	require.NoError(t, store.Save(sampleState()))
	require.NoError(t, store.Delete())
	assert.False(t, store.Exists())

	// deleting again is not an error
	assert.NoError(t, store.Delete())
}

func TestStateStoreSaveNil(t *testing.T) {
	store, _ := newTestStateStore(t)
	assert.Error(t, store.Save(nil))
}
