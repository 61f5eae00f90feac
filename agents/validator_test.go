package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateAcceptsCleanResponse(t *testing.T) {
	eval := Evaluate("The function writes the parsed records to output.csv in sorted order.", false)
	assert.True(t, eval.IsValid)
	assert.False(t, eval.Confused)
	assert.InDelta(t, 1.0, eval.Confidence, 0.001)
	assert.Empty(t, eval.Issues)
}

func TestEvaluateRejectsShortResponse(t *testing.T) {
	eval := Evaluate("ok", false)
	assert.False(t, eval.IsValid)
	assert.Zero(t, eval.Confidence)
	assert.NotEmpty(t, eval.Issues)
}

func TestEvaluateDetectsConfusion(t *testing.T) {
	eval := Evaluate("I'm not sure, could you clarify what you want me to build?", false)
	assert.True(t, eval.Confused)
	assert.False(t, eval.IsValid)
	// two confusion phrases at -0.3 each
	assert.InDelta(t, 0.4, eval.Confidence, 0.001)
}

func TestEvaluateHedgingPenalty(t *testing.T) {
	eval := Evaluate("Maybe this works, perhaps with tweaks, possibly after review of the data.", false)
	assert.False(t, eval.Confused)
	assert.InDelta(t, 0.8, eval.Confidence, 0.001)
	assert.True(t, eval.IsValid)
}

func TestEvaluateExpectedJSONMissing(t *testing.T) {
	eval := Evaluate("Here is my answer in plain prose with no payload at all.", true)
	assert.InDelta(t, 0.6, eval.Confidence, 0.001)
	assert.True(t, eval.IsValid)

	eval = Evaluate("Result: {\"name\": broken}", true)
	assert.InDelta(t, 0.7, eval.Confidence, 0.001)
}

func TestEvaluateErrorPhrase(t *testing.T) {
	eval := Evaluate("Traceback (most recent call last): something went wrong", false)
	assert.InDelta(t, 0.8, eval.Confidence, 0.001)
}

func TestEvaluateClampsAtZero(t *testing.T) {
	eval := Evaluate("I'm not sure. I am unsure. I'm confused. Could you clarify? Error: failed to run.", true)
	assert.Zero(t, eval.Confidence)
	assert.False(t, eval.IsValid)
	assert.True(t, eval.Confused)
}

func TestClaimsCompletion(t *testing.T) {
	assert.True(t, ClaimsCompletion("All tests pass, task complete."))
	assert.False(t, ClaimsCompletion("Task complete, but there is a TODO: wire the login page."))
	assert.False(t, ClaimsCompletion("Still working through the parser."))
}

func TestRequireFields(t *testing.T) {
	raw := `{"title": "x", "description": "y"}`
	assert.Empty(t, RequireFields(raw, "title", "description"))
	assert.Equal(t, []string{"dependencies"}, RequireFields(raw, "dependencies"))
	assert.Equal(t, []string{"title"}, RequireFields("not json", "title"))
}

func TestExtractJSONPrefersFencedBlock(t *testing.T) {
	raw := "Sure, here you go:\n```json\n{\"a\": 1}\n```\ntrailing prose {not json}"
	assert.Equal(t, `{"a": 1}`, ExtractJSON(raw))
}

func TestExtractJSONFallsBackToBraces(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, ExtractJSON(`prefix {"a": 1} suffix`))
	assert.Equal(t, `[1, 2]`, ExtractJSON(`the list is [1, 2] ok`))
	assert.Empty(t, ExtractJSON("no payload here"))
}
