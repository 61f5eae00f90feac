package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lexcodex/autoforge/agents"
)

func newResumeCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Continue an interrupted run from the saved state",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(flagWorkspace, false)
			if err != nil {
				return err
			}
			engine := rt.engine()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := engine.Resume(ctx)
			if errors.Is(err, agents.ErrNoResumableState) {
				cmd.Println("nothing to resume: no saved state in this workspace")
				return nil
			}
			if err != nil && result == nil {
				return err
			}
			return printResult(cmd, result, jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the final report as JSON")
	return cmd
}
