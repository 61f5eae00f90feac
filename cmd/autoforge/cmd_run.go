package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lexcodex/autoforge/agents"
	"github.com/lexcodex/autoforge/app/tui"
)

func newRunCmd() *cobra.Command {
	var projectType string
	var useTUI bool
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "run [description]",
		Short: "Plan and build a project from a one-line description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := joinArgs(args)
			rt, err := buildRuntime(flagWorkspace, useTUI)
			if err != nil {
				return err
			}
			engine := rt.engine()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if useTUI {
				return runWithTUI(ctx, rt, engine, description, projectType)
			}
			result, err := engine.Run(ctx, description, projectType)
			if err != nil && result == nil {
				return err
			}
			return printResult(cmd, result, jsonOut)
		},
	}
	cmd.Flags().StringVar(&projectType, "type", "", "Project type (web, web-react, android, ios, flutter, desktop-python, ...)")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Show the live run monitor")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the final report as JSON")
	return cmd
}

// runWithTUI drives the engine on a background goroutine while the monitor
// owns the terminal.
func runWithTUI(ctx context.Context, rt *runtime, engine *agents.Engine, description, projectType string) error {
	resultCh := make(chan *agents.Result, 1)
	errCh := make(chan error, 1)
	go func() {
		result, err := engine.Run(ctx, description, projectType)
		if err != nil {
			errCh <- err
		}
		resultCh <- result
		close(rt.events.C)
	}()

	monitor := tui.Monitor{
		Events:    rt.events.C,
		Interrupt: engine.Interrupt,
		Title:     "autoforge: " + description,
	}
	if err := tui.Run(ctx, monitor); err != nil {
		engine.Interrupt()
	}
	select {
	case result := <-resultCh:
		if result != nil {
			fmt.Printf("run %s: confidence %d, progress %.0f%%\n",
				result.Status, result.Confidence, result.Progress.Percentage)
		}
	case err := <-errCh:
		return err
	}
	return nil
}

func printResult(cmd *cobra.Command, result *agents.Result, jsonOut bool) error {
	if result == nil {
		return fmt.Errorf("engine returned no result")
	}
	if jsonOut {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}
	cmd.Printf("status:     %s\n", result.Status)
	cmd.Printf("success:    %t\n", result.Success)
	cmd.Printf("confidence: %d\n", result.Confidence)
	cmd.Printf("progress:   %d/%d tasks (%.0f%%)\n",
		result.Progress.Completed, result.Progress.Total, result.Progress.Percentage)
	if result.Validation != nil && len(result.Validation.Missing) > 0 {
		cmd.Printf("missing features:\n")
		for _, feature := range result.Validation.Missing {
			cmd.Printf("  - %s\n", feature)
		}
	}
	if result.Security != nil && len(result.Security.Findings) > 0 {
		cmd.Printf("security findings: %d\n", len(result.Security.Findings))
	}
	if result.Error != "" {
		cmd.Printf("error: %s\n", result.Error)
	}
	return nil
}

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
