package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lexcodex/autoforge/framework"
)

// Intent is the distilled statement of what the user actually wants, built
// before planning so success is checkable afterwards.
type Intent struct {
	Goal            string   `json:"goal"`
	SuccessCriteria []string `json:"success_criteria"`
	DefinitionDone  []string `json:"definition_of_done"`
}

// IntentAnalyzer derives the intent from the raw description with one
// oracle call, falling back to a deterministic reading.
type IntentAnalyzer struct {
	Model framework.LanguageModel
}

// Analyze never fails: an unusable oracle answer yields the literal goal
// with generic acceptance criteria.
func (a *IntentAnalyzer) Analyze(ctx context.Context, description string) Intent {
	if a.Model != nil {
		prompt := fmt.Sprintf(`State the user's intent for this request.
Request: %s
Respond with JSON only:
{"goal": "...", "success_criteria": ["..."], "definition_of_done": ["..."]}`, description)
		resp, err := a.Model.Generate(ctx, prompt, &framework.LLMOptions{Temperature: 0.2, MaxTokens: 400})
		if err == nil {
			var out Intent
			if DecodeJSON(resp.Text, &out) == nil && strings.TrimSpace(out.Goal) != "" {
				// Partial answers keep the goal; absent sections get
				// deterministic defaults instead of staying empty.
				for _, field := range RequireFields(resp.Text, "success_criteria", "definition_of_done") {
					switch field {
					case "success_criteria":
						out.SuccessCriteria = []string{"the described functionality exists in the workspace"}
					case "definition_of_done":
						out.DefinitionDone = []string{"all planned tasks completed"}
					}
				}
				return out
			}
		}
	}
	return Intent{
		Goal:            description,
		SuccessCriteria: []string{"the described functionality exists in the workspace"},
		DefinitionDone:  []string{"all planned tasks completed", "no unresolved task failures"},
	}
}

// PipelineStep is one stage of the generated delivery pipeline.
type PipelineStep struct {
	Name    string `json:"name"`
	Command string `json:"command"`
}

// PipelinePlan is the CI sketch written alongside the finished project. It
// is a plan for the target project's pipeline, not something this engine
// executes.
type PipelinePlan struct {
	Name  string         `json:"name"`
	Steps []PipelineStep `json:"steps"`
}

// PipelinePlanFile is the workspace-relative location of the pipeline plan.
const PipelinePlanFile = "artifacts/pipeline.plan.json"

const pipelineName = "autonomy-pipeline"

// BuildPipelinePlan assembles the stage list for the project type. Web
// projects get an extra static-asset build stage before packaging.
func BuildPipelinePlan(projectType string, tech framework.Technology) PipelinePlan {
	plan := PipelinePlan{Name: pipelineName}
	plan.Steps = append(plan.Steps,
		PipelineStep{Name: "lint", Command: lintCommand(tech.Language)},
		PipelineStep{Name: "unit_tests", Command: testCommand(tech.Testing)},
		PipelineStep{Name: "security_scan", Command: "autoforge scan ."},
	)
	if strings.HasPrefix(strings.ToLower(projectType), "web") {
		plan.Steps = append(plan.Steps, PipelineStep{Name: "build_static_assets", Command: "npm run build"})
	}
	plan.Steps = append(plan.Steps, PipelineStep{Name: "package_artifacts", Command: "tar czf artifacts/release.tar.gz ."})
	return plan
}

// WritePipelinePlan serializes the plan into the workspace.
func WritePipelinePlan(ws *framework.Workspace, plan PipelinePlan) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pipeline plan: %w", err)
	}
	return ws.WriteFile(PipelinePlanFile, string(data)+"\n")
}

func lintCommand(language string) string {
	switch strings.ToLower(language) {
	case "python":
		return "ruff check ."
	case "javascript", "typescript":
		return "npx eslint ."
	case "go":
		return "go vet ./..."
	default:
		return "echo no linter configured"
	}
}

func testCommand(testing string) string {
	switch strings.ToLower(testing) {
	case "pytest":
		return "pytest"
	case "jest":
		return "npx jest"
	case "vitest":
		return "npx vitest run"
	default:
		return "echo no test runner configured"
	}
}
