package framework

import (
	"fmt"
	"strings"
)

// PlanningOutput aggregates the seven sections produced by the structured
// planner. Every section is always present; individual fields may carry
// static fallbacks when the oracle failed to produce usable output.
type PlanningOutput struct {
	Understanding Understanding  `json:"understanding"`
	Requirements  Requirements   `json:"requirements"`
	Architecture  Architecture   `json:"architecture"`
	Technology    Technology     `json:"technology"`
	Tasks         []*Task        `json:"task_breakdown"`
	Risks         RiskAnalysis   `json:"risk_analysis"`
	Checklist     PlanChecklist  `json:"validation_checklist"`
	QualityScore  int            `json:"quality_score"`
	IsValid       bool           `json:"is_valid"`
	Issues        []string       `json:"issues,omitempty"`
}

// Understanding captures the expanded problem statement from phase 1.
type Understanding struct {
	PrimaryGoal          string   `json:"primary_goal"`
	SecondaryGoals       []string `json:"secondary_goals"`
	ImplicitRequirements []string `json:"implicit_requirements"`
	Assumptions          []string `json:"assumptions"`
	Unknowns             []string `json:"unknowns"`
}

// Requirements splits functional from non-functional items (phase 2).
type Requirements struct {
	Functional    []string `json:"functional"`
	NonFunctional []string `json:"non_functional"`
}

// Component names one architectural building block.
type Component struct {
	Name           string `json:"name"`
	Responsibility string `json:"responsibility"`
}

// Architecture describes components and how data moves between them (phase 3).
type Architecture struct {
	Components []Component `json:"components"`
	DataFlow   string      `json:"data_flow"`
}

// Technology records the selected stack (phase 4).
type Technology struct {
	Language  string `json:"language"`
	Framework string `json:"framework"`
	Testing   string `json:"testing"`
}

// Risk pairs a hazard with its mitigation.
type Risk struct {
	Description string `json:"description"`
	Mitigation  string `json:"mitigation"`
}

// RiskAnalysis lists risks plus a 1-10 complexity estimate (phase 6).
type RiskAnalysis struct {
	Risks      []Risk `json:"risks"`
	Complexity int    `json:"complexity"`
}

// PlanChecklist holds the boolean checks re-derived in phase 7. IsValid on
// the parent plan is the conjunction of these fields.
type PlanChecklist struct {
	GoalDefined       bool `json:"goal_defined"`
	RequirementsFound bool `json:"requirements_found"`
	ComponentsFound   bool `json:"components_found"`
	TechnologyLocked  bool `json:"technology_locked"`
	TasksOrdered      bool `json:"tasks_ordered"`
	RisksAssessed     bool `json:"risks_assessed"`
}

// All reports whether every check passed.
func (c PlanChecklist) All() bool {
	return c.GoalDefined && c.RequirementsFound && c.ComponentsFound &&
		c.TechnologyLocked && c.TasksOrdered && c.RisksAssessed
}

const minPlanTasks = 3

// ValidatePlan applies the per-section minimum-completeness rules and
// returns the issues found. Validation is soft: callers record the issues
// and proceed with whatever plan resulted, but report is_valid=false.
func ValidatePlan(plan *PlanningOutput) []string {
	var issues []string
	if plan == nil {
		return []string{"plan missing"}
	}
	if strings.TrimSpace(plan.Understanding.PrimaryGoal) == "" {
		issues = append(issues, "understanding: primary goal missing")
	}
	if len(plan.Requirements.Functional) == 0 {
		issues = append(issues, "requirements: at least one functional requirement required")
	}
	if len(plan.Architecture.Components) == 0 {
		issues = append(issues, "architecture: no components identified")
	}
	if strings.TrimSpace(plan.Technology.Language) == "" {
		issues = append(issues, "technology: language not selected")
	}
	if len(plan.Tasks) < minPlanTasks {
		issues = append(issues, fmt.Sprintf("task_breakdown: needs at least %d tasks, got %d", minPlanTasks, len(plan.Tasks)))
	}
	issues = append(issues, ValidateTaskDependencies(plan.Tasks)...)
	if len(plan.Risks.Risks) == 0 {
		issues = append(issues, "risk_analysis: no risks listed")
	}
	return issues
}

// PlanQualityScore summarizes plan completeness and depth on a 0-100 scale.
// The score is observability only; it never gates execution.
func PlanQualityScore(plan *PlanningOutput) int {
	if plan == nil {
		return 0
	}
	score := 0
	// Section presence, six points each.
	if plan.Understanding.PrimaryGoal != "" {
		score += 6
	}
	if len(plan.Requirements.Functional)+len(plan.Requirements.NonFunctional) > 0 {
		score += 6
	}
	if len(plan.Architecture.Components) > 0 {
		score += 6
	}
	if plan.Technology.Language != "" {
		score += 6
	}
	if len(plan.Tasks) > 0 {
		score += 6
	}
	if len(plan.Risks.Risks) > 0 {
		score += 6
	}
	// Understanding depth.
	if len(plan.Understanding.SecondaryGoals) > 0 {
		score += 3
	}
	if len(plan.Understanding.ImplicitRequirements) > 0 {
		score += 2
	}
	if len(plan.Understanding.Assumptions) > 0 {
		score += 2
	}
	if len(plan.Understanding.Unknowns) > 0 {
		score += 3
	}
	score += capInt(2*len(plan.Requirements.Functional), 10)
	score += capInt(len(plan.Requirements.NonFunctional), 5)
	score += capInt(2*len(plan.Architecture.Components), 6)
	if strings.TrimSpace(plan.Architecture.DataFlow) != "" {
		score += 4
	}
	score += capInt(2*len(plan.Tasks), 15)
	score += capInt(3*len(plan.Risks.Risks), 10)
	return capInt(score, 100)
}

func capInt(v, max int) int {
	if v > max {
		return max
	}
	return v
}
