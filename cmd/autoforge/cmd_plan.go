package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/lexcodex/autoforge/agents"
)

func newPlanCmd() *cobra.Command {
	var projectType string
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "plan [description]",
		Short: "Synthesize and print a plan without executing it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := joinArgs(args)
			rt, err := buildRuntime(flagWorkspace, false)
			if err != nil {
				return err
			}
			planner := agents.NewStructuredPlanner(rt.model)
			planner.Debug = rt.config.Logging.DebugAgent
			plan, err := planner.BuildPlan(cmd.Context(), description, projectType)
			if err != nil {
				return err
			}
			if jsonOut {
				data, err := json.MarshalIndent(plan, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(data))
				return nil
			}
			cmd.Printf("goal: %s\n", plan.Understanding.PrimaryGoal)
			cmd.Printf("stack: %s / %s (tests: %s)\n",
				plan.Technology.Language, plan.Technology.Framework, plan.Technology.Testing)
			cmd.Printf("quality: %d/100, valid: %t\n", plan.QualityScore, plan.IsValid)
			cmd.Printf("tasks:\n")
			for _, task := range plan.Tasks {
				cmd.Printf("  %d. %s (deps %v)\n", task.ID, task.Title, task.Dependencies)
			}
			for _, issue := range plan.Issues {
				cmd.Printf("issue: %s\n", issue)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&projectType, "type", "", "Project type hint")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the plan as JSON")
	return cmd
}
