package agents

import (
	"context"
	"log"

	"github.com/lexcodex/autoforge/framework"
)

// StructuredPlanner turns a short project description into a validated
// PlanningOutput through seven strictly ordered phases, each a pure
// function of the prior phases' outputs plus one oracle call. Every phase
// parses leniently and falls back to a static default on oracle failure, so
// the planner always returns a structurally valid plan.
type StructuredPlanner struct {
	Model framework.LanguageModel
	Debug bool
}

// NewStructuredPlanner builds a planner around the oracle.
func NewStructuredPlanner(model framework.LanguageModel) *StructuredPlanner {
	return &StructuredPlanner{Model: model}
}

func (p *StructuredPlanner) debugf(format string, args ...interface{}) {
	if p == nil || !p.Debug {
		return
	}
	log.Printf("[planner] "+format, args...)
}

// BuildPlan runs all seven phases in order and returns the aggregate. The
// returned error is always nil today; the signature leaves room for callers
// that later want to treat a context cancellation as fatal.
func (p *StructuredPlanner) BuildPlan(ctx context.Context, description, projectType string) (*framework.PlanningOutput, error) {
	plan := &framework.PlanningOutput{}

	plan.Understanding = p.phaseUnderstanding(ctx, description)
	plan.Requirements = p.phaseRequirements(ctx, plan.Understanding)
	plan.Architecture = p.phaseArchitecture(ctx, plan.Understanding, plan.Requirements)
	plan.Technology = p.phaseTechnology(ctx, projectType, plan.Architecture)
	plan.Tasks = p.phaseTaskBreakdown(ctx, description, plan)
	plan.Risks = p.phaseRiskAnalysis(ctx, plan)
	plan.Checklist = p.phaseChecklist(plan)

	plan.Issues = framework.ValidatePlan(plan)
	plan.IsValid = plan.Checklist.All() && len(plan.Issues) == 0
	plan.QualityScore = framework.PlanQualityScore(plan)
	p.debugf("plan ready: tasks=%d quality=%d valid=%t issues=%d",
		len(plan.Tasks), plan.QualityScore, plan.IsValid, len(plan.Issues))
	return plan, nil
}

// normalizeDependencies converts the 1-based author-facing indices the
// oracle produces into the 0-based ids tasks carry, silently dropping self
// and forward references. This leniency can mask planner mistakes but
// keeps obviously usable plans running; the engine still validates every
// plan before execution, so snapshots that bypass normalization are
// rejected rather than dequeued.
func normalizeDependencies(tasks []*framework.Task) {
	for i, task := range tasks {
		var deps []int
		for _, dep := range task.Dependencies {
			idx := dep - 1
			if idx >= 0 && idx < i {
				deps = append(deps, idx)
			}
		}
		if deps == nil {
			deps = []int{}
		}
		task.ID = i
		task.Dependencies = deps
		if task.Status == "" {
			task.Status = framework.TaskPending
		}
	}
}
