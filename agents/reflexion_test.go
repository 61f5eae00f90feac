package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReflectAndDecideAcceptsConfidentResponse(t *testing.T) {
	r := NewReflexion(&scriptedModel{}, 1)
	reflection := r.ReflectAndDecide(context.Background(), "write a parser",
		"The parser is implemented in parser.py and handles quoted fields.", "", 0)
	assert.Equal(t, StrategyNone, reflection.Strategy)
	assert.False(t, reflection.ShouldRetry)
	assert.Empty(t, reflection.Critique)
}

func TestReflectAndDecideGivesUpAfterBudget(t *testing.T) {
	r := NewReflexion(&scriptedModel{responses: []string{"it ignored the output format"}}, 1)
	reflection := r.ReflectAndDecide(context.Background(), "write a parser", "I'm not sure what you mean.", "bad output", 1)
	assert.Equal(t, StrategyGiveUp, reflection.Strategy)
	assert.False(t, reflection.ShouldRetry)
	assert.NotEmpty(t, reflection.Critique)
}

func TestReflectAndDecideElaboratesOnConfusion(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"The model asked a question instead of acting.",
		"Write a CSV parser. Step 1: read the file. Output: parser.py only.",
	}}
	r := NewReflexion(model, 3)
	reflection := r.ReflectAndDecide(context.Background(), "write a parser", "I'm not sure, could you clarify?", "", 0)
	assert.Equal(t, StrategyElaborate, reflection.Strategy)
	assert.True(t, reflection.ShouldRetry)
	assert.Contains(t, reflection.ElaboratedQuery, "parser")
}

func TestReflectAndDecideSimplerOnVeryLowConfidence(t *testing.T) {
	// four hedges, JSON penalty does not apply; add error phrase to push
	// confidence under 0.3 without tripping a confusion pattern
	response := "Maybe it works. Perhaps. Possibly. It seems fine. Error: failed to compile the file." +
		" I think the issue might be elsewhere."
	eval := Evaluate(response, false)
	assert.Less(t, eval.Confidence, 0.7)

	r := NewReflexion(&scriptedModel{responses: []string{"weak answer"}}, 3)
	reflection := r.ReflectAndDecide(context.Background(), "task", response, "", 0)
	if eval.Confidence < 0.3 {
		assert.Equal(t, StrategySimpler, reflection.Strategy)
	} else {
		assert.Equal(t, StrategySame, reflection.Strategy)
	}
	assert.True(t, reflection.ShouldRetry)
}

func TestCritiqueFallsBackWithoutOracle(t *testing.T) {
	r := NewReflexion(&scriptedModel{err: errors.New("connection refused")}, 1)
	critique := r.Critique(context.Background(), "resp", "task", "timeout waiting for output")
	assert.Contains(t, critique, "timeout waiting for output")
}

func TestElaborateFallsBackWithoutOracle(t *testing.T) {
	r := NewReflexion(&scriptedModel{err: errors.New("connection refused")}, 1)
	elaborated := r.Elaborate(context.Background(), "build the thing", "", "unclear")
	assert.True(t, strings.HasPrefix(elaborated, "build the thing"))
	assert.Contains(t, elaborated, "Be explicit")
}

func TestNewReflexionDefaultsRetryBudget(t *testing.T) {
	r := NewReflexion(&scriptedModel{}, 0)
	assert.Equal(t, 1, r.MaxRetries)
}
