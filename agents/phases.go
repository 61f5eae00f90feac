package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/lexcodex/autoforge/framework"
)

// oracleJSON wraps one planning oracle call: generate, extract, decode.
// Any failure returns false and the caller applies the phase's static
// fallback; planning never aborts on a bad oracle.
func (p *StructuredPlanner) oracleJSON(ctx context.Context, phase, prompt string, out interface{}) bool {
	resp, err := p.Model.Generate(ctx, prompt, &framework.LLMOptions{Temperature: 0.2, MaxTokens: 900})
	if err != nil {
		p.debugf("phase %s: oracle error: %v", phase, err)
		return false
	}
	if err := DecodeJSON(resp.Text, out); err != nil {
		p.debugf("phase %s: parse failed: %v", phase, err)
		return false
	}
	return true
}

// Phase 1: expand the short description into goals, implicit requirements,
// assumptions, and unknowns.
func (p *StructuredPlanner) phaseUnderstanding(ctx context.Context, description string) framework.Understanding {
	prompt := fmt.Sprintf(`Analyze this software project request.
Request: %s
Respond with JSON only:
{"primary_goal": "...", "secondary_goals": ["..."], "implicit_requirements": ["..."], "assumptions": ["..."], "unknowns": ["..."]}`, description)
	var out framework.Understanding
	if !p.oracleJSON(ctx, "understanding", prompt, &out) || strings.TrimSpace(out.PrimaryGoal) == "" {
		out = framework.Understanding{
			PrimaryGoal: description,
			Assumptions: []string{"standard tooling is available"},
			Unknowns:    []string{"detailed user expectations"},
		}
	}
	return out
}

// Phase 2: derive functional and non-functional requirements from the
// expanded understanding.
func (p *StructuredPlanner) phaseRequirements(ctx context.Context, u framework.Understanding) framework.Requirements {
	prompt := fmt.Sprintf(`Derive requirements for this goal.
Primary goal: %s
Secondary goals: %s
Respond with JSON only:
{"functional": ["..."], "non_functional": ["..."]}`, u.PrimaryGoal, strings.Join(u.SecondaryGoals, "; "))
	var out framework.Requirements
	if !p.oracleJSON(ctx, "requirements", prompt, &out) || len(out.Functional) == 0 {
		out = framework.Requirements{
			Functional:    []string{"implement " + u.PrimaryGoal},
			NonFunctional: []string{"code is readable and organized"},
		}
	}
	return out
}

// Phase 3: identify components and the data flow between them.
func (p *StructuredPlanner) phaseArchitecture(ctx context.Context, u framework.Understanding, r framework.Requirements) framework.Architecture {
	prompt := fmt.Sprintf(`Design the architecture for this project.
Goal: %s
Functional requirements: %s
Respond with JSON only:
{"components": [{"name": "...", "responsibility": "..."}], "data_flow": "..."}`, u.PrimaryGoal, strings.Join(r.Functional, "; "))
	var out framework.Architecture
	if !p.oracleJSON(ctx, "architecture", prompt, &out) || len(out.Components) == 0 {
		out = framework.Architecture{
			Components: []framework.Component{
				{Name: "core", Responsibility: "main application logic"},
				{Name: "interface", Responsibility: "user-facing entry point"},
			},
			DataFlow: "interface -> core -> interface",
		}
	}
	return out
}

// technologyDefaults is the static lookup applied when the oracle is
// silent, keyed by project type.
var technologyDefaults = map[string]framework.Technology{
	"web":              {Language: "javascript", Framework: "react", Testing: "jest"},
	"web-react":        {Language: "javascript", Framework: "react", Testing: "jest"},
	"web-vue":          {Language: "javascript", Framework: "vue", Testing: "vitest"},
	"web-nextjs":       {Language: "typescript", Framework: "nextjs", Testing: "jest"},
	"web-angular":      {Language: "typescript", Framework: "angular", Testing: "jasmine"},
	"web-svelte":       {Language: "javascript", Framework: "svelte", Testing: "vitest"},
	"android":          {Language: "kotlin", Framework: "android-sdk", Testing: "junit"},
	"ios":              {Language: "swift", Framework: "swiftui", Testing: "xctest"},
	"flutter":          {Language: "dart", Framework: "flutter", Testing: "flutter_test"},
	"desktop-electron": {Language: "javascript", Framework: "electron", Testing: "jest"},
	"desktop-python":   {Language: "python", Framework: "tkinter", Testing: "pytest"},
}

var fallbackTechnology = framework.Technology{Language: "python", Framework: "none", Testing: "pytest"}

// TechnologyForProjectType exposes the lookup for workspace scaffolding.
func TechnologyForProjectType(projectType string) framework.Technology {
	if tech, ok := technologyDefaults[strings.ToLower(projectType)]; ok {
		return tech
	}
	return fallbackTechnology
}

// Phase 4: choose the stack, falling back to the per-project-type table.
func (p *StructuredPlanner) phaseTechnology(ctx context.Context, projectType string, arch framework.Architecture) framework.Technology {
	names := make([]string, 0, len(arch.Components))
	for _, c := range arch.Components {
		names = append(names, c.Name)
	}
	prompt := fmt.Sprintf(`Select the technology stack.
Project type: %s
Components: %s
Respond with JSON only:
{"language": "...", "framework": "...", "testing": "..."}`, projectType, strings.Join(names, ", "))
	var out framework.Technology
	if !p.oracleJSON(ctx, "technology", prompt, &out) || strings.TrimSpace(out.Language) == "" {
		return TechnologyForProjectType(projectType)
	}
	return out
}

// plannerTask is the lenient wire shape of one task-breakdown item.
type plannerTask struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Dependencies []int  `json:"dependencies"`
}

const (
	minBreakdownTasks = 3
	maxBreakdownTasks = 12
)

// FallbackTaskTitles is the fixed five-task skeleton used when the oracle
// cannot produce a usable breakdown.
var FallbackTaskTitles = []string{
	"Initialize Project",
	"Create Core Structure",
	"Implement Features",
	"Write Tests",
	"Write Documentation",
}

// Phase 5: produce the ordered, dependency-annotated task list. Oracle
// dependencies are 1-based; normalizeDependencies converts and prunes them.
func (p *StructuredPlanner) phaseTaskBreakdown(ctx context.Context, description string, plan *framework.PlanningOutput) []*framework.Task {
	prompt := fmt.Sprintf(`Break this project into %d-%d ordered implementation tasks.
Project: %s
Technology: %s / %s
Functional requirements: %s
Dependencies are 1-based indices of earlier tasks.
Respond with JSON only:
{"tasks": [{"title": "...", "description": "...", "dependencies": [1]}]}`,
		minBreakdownTasks, maxBreakdownTasks, description,
		plan.Technology.Language, plan.Technology.Framework,
		strings.Join(plan.Requirements.Functional, "; "))
	var out struct {
		Tasks []plannerTask `json:"tasks"`
	}
	ok := p.oracleJSON(ctx, "task_breakdown", prompt, &out)
	if !ok || len(out.Tasks) < minBreakdownTasks {
		return fallbackTaskBreakdown(description)
	}
	if len(out.Tasks) > maxBreakdownTasks {
		out.Tasks = out.Tasks[:maxBreakdownTasks]
	}
	tasks := make([]*framework.Task, 0, len(out.Tasks))
	for _, item := range out.Tasks {
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		tasks = append(tasks, &framework.Task{
			Title:        item.Title,
			Description:  item.Description,
			Dependencies: item.Dependencies,
		})
	}
	if len(tasks) < minBreakdownTasks {
		return fallbackTaskBreakdown(description)
	}
	normalizeDependencies(tasks)
	return tasks
}

// fallbackTaskBreakdown builds the five-task skeleton, linearly chained.
func fallbackTaskBreakdown(description string) []*framework.Task {
	tasks := make([]*framework.Task, 0, len(FallbackTaskTitles))
	for i, title := range FallbackTaskTitles {
		task := &framework.Task{
			ID:           i,
			Title:        title,
			Description:  fmt.Sprintf("%s for: %s", title, description),
			Status:       framework.TaskPending,
			Dependencies: []int{},
		}
		if i > 0 {
			task.Dependencies = []int{i - 1}
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// Phase 6: list risks and estimate complexity. Task count above ten bumps
// the score by two, capped at ten.
func (p *StructuredPlanner) phaseRiskAnalysis(ctx context.Context, plan *framework.PlanningOutput) framework.RiskAnalysis {
	prompt := fmt.Sprintf(`Assess the risks of this plan.
Goal: %s
Task count: %d
Respond with JSON only:
{"risks": [{"description": "...", "mitigation": "..."}], "complexity": 5}`,
		plan.Understanding.PrimaryGoal, len(plan.Tasks))
	var out framework.RiskAnalysis
	if !p.oracleJSON(ctx, "risk_analysis", prompt, &out) || len(out.Risks) == 0 {
		out = framework.RiskAnalysis{
			Risks: []framework.Risk{
				{Description: "generated code may not meet expectations", Mitigation: "verify features against the plan after execution"},
			},
			Complexity: 5,
		}
	}
	if out.Complexity < 1 {
		out.Complexity = 1
	}
	if len(plan.Tasks) > 10 {
		out.Complexity += 2
	}
	if out.Complexity > 10 {
		out.Complexity = 10
	}
	return out
}

// Phase 7: re-derive the boolean checks over all prior phases. No oracle
// call; the checklist is a deterministic function of the aggregate.
func (p *StructuredPlanner) phaseChecklist(plan *framework.PlanningOutput) framework.PlanChecklist {
	return framework.PlanChecklist{
		GoalDefined:       strings.TrimSpace(plan.Understanding.PrimaryGoal) != "",
		RequirementsFound: len(plan.Requirements.Functional) > 0,
		ComponentsFound:   len(plan.Architecture.Components) > 0,
		TechnologyLocked:  strings.TrimSpace(plan.Technology.Language) != "",
		TasksOrdered:      len(plan.Tasks) > 0 && len(framework.ValidateTaskDependencies(plan.Tasks)) == 0,
		RisksAssessed:     len(plan.Risks.Risks) > 0,
	}
}
