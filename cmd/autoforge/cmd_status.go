package main

import (
	"github.com/spf13/cobra"

	"github.com/lexcodex/autoforge/framework"
	"github.com/lexcodex/autoforge/persistence"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the saved state of the workspace, if any",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := framework.NewWorkspace(flagWorkspace)
			if err != nil {
				return err
			}
			store := persistence.NewStateStore(ws)
			state, err := store.Load()
			if err != nil {
				return err
			}
			if state == nil {
				cmd.Println("no saved run in this workspace")
				return nil
			}
			cmd.Printf("description: %s\n", state.Description)
			if state.ProjectType != "" {
				cmd.Printf("type:        %s\n", state.ProjectType)
			}
			cmd.Printf("tasks:\n")
			for _, task := range state.Plan.Tasks {
				marker := " "
				switch task.Status {
				case framework.TaskCompleted:
					marker = "x"
				case framework.TaskFailed:
					marker = "!"
				case framework.TaskInProgress:
					marker = ">"
				}
				cmd.Printf("  [%s] %d. %s\n", marker, task.ID, task.Title)
			}
			cmd.Println("run `autoforge resume` to continue")
			return nil
		},
	}
	return cmd
}
