package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/lexcodex/autoforge/framework"
)

// RetryStrategy is the outcome of the reflexion decision table.
type RetryStrategy string

const (
	StrategyNone      RetryStrategy = "none"
	StrategyGiveUp    RetryStrategy = "give_up"
	StrategyElaborate RetryStrategy = "elaborate"
	StrategySimpler   RetryStrategy = "simpler"
	StrategySame      RetryStrategy = "same"
)

// Reflection is the full decision produced for one failed (or suspect)
// response.
type Reflection struct {
	Critique        string        `json:"critique"`
	ElaboratedQuery string        `json:"elaborated_query,omitempty"`
	ShouldRetry     bool          `json:"should_retry"`
	Strategy        RetryStrategy `json:"strategy"`
	Evaluation      Evaluation    `json:"evaluation"`
}

// Reflexion evaluates oracle output, critiques failures, and elaborates
// retry prompts. The strategy selection is a fixed decision table, not
// free-form reasoning, so its thresholds are directly testable.
type Reflexion struct {
	Model      framework.LanguageModel
	MaxRetries int
	debug      bool
}

// NewReflexion builds the layer with the given retry budget (default 1).
func NewReflexion(model framework.LanguageModel, maxRetries int) *Reflexion {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &Reflexion{Model: model, MaxRetries: maxRetries}
}

// Critique asks the oracle for a short failure analysis. Oracle errors fall
// back to a deterministic string embedding the original error so the caller
// always receives something actionable.
func (r *Reflexion) Critique(ctx context.Context, response, task, errMsg string) string {
	prompt := fmt.Sprintf(`Analyze why this response failed the task. Reply in at most 100 words.
Task: %s
Response: %s
Error: %s`, task, clip(response, 800), errMsg)
	resp, err := r.Model.Generate(ctx, prompt, &framework.LLMOptions{Temperature: 0.3, MaxTokens: 200})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		if errMsg == "" {
			errMsg = "response did not satisfy the task"
		}
		return fmt.Sprintf("The response failed because: %s. The output did not meet the task requirements.", errMsg)
	}
	return strings.TrimSpace(resp.Text)
}

// Elaborate asks the oracle to rewrite the query with explicit steps and an
// explicit output format. Oracle errors append a generic clarifying suffix
// instead.
func (r *Reflexion) Elaborate(ctx context.Context, query, taskContext, failureReason string) string {
	prompt := fmt.Sprintf(`Rewrite the following request so a language model cannot misunderstand it.
Spell out the steps and the exact output format expected.
Original request: %s
Context: %s
Why the last attempt failed: %s
Return only the rewritten request.`, query, taskContext, failureReason)
	resp, err := r.Model.Generate(ctx, prompt, &framework.LLMOptions{Temperature: 0.3, MaxTokens: 400})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		return query + "\n\nBe explicit: list each step you take and state the final output format clearly."
	}
	return strings.TrimSpace(resp.Text)
}

// ReflectAndDecide runs the decision table:
//
//	confidence >= 0.7 and valid -> none (accept)
//	attempt >= max retries      -> give_up
//	confusion detected          -> elaborate
//	confidence < 0.3            -> simpler
//	otherwise                   -> same
func (r *Reflexion) ReflectAndDecide(ctx context.Context, task, response, errMsg string, attempt int) Reflection {
	eval := Evaluate(response, false)
	reflection := Reflection{Evaluation: eval}
	switch {
	case eval.Confidence >= 0.7 && eval.IsValid:
		reflection.Strategy = StrategyNone
		return reflection
	case attempt >= r.MaxRetries:
		reflection.Strategy = StrategyGiveUp
		reflection.Critique = r.Critique(ctx, response, task, errMsg)
		return reflection
	case eval.Confused:
		reflection.Strategy = StrategyElaborate
	case eval.Confidence < 0.3:
		reflection.Strategy = StrategySimpler
	default:
		reflection.Strategy = StrategySame
	}
	reflection.ShouldRetry = true
	reflection.Critique = r.Critique(ctx, response, task, errMsg)
	reflection.ElaboratedQuery = r.Elaborate(ctx, task, "", reflection.Critique)
	return reflection
}

// clip truncates long responses before embedding them in prompts.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
