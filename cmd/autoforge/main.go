package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagModel     string
	flagEndpoint  string
	flagWorkspace string
	flagConfig    string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "autoforge",
		Short: "Autonomous project builder driven by a local language model",
	}
	root.PersistentFlags().StringVar(&flagModel, "model", envOrDefault("OLLAMA_MODEL", ""), "Ollama model (overrides config)")
	root.PersistentFlags().StringVar(&flagEndpoint, "ollama", envOrDefault("OLLAMA_ENDPOINT", ""), "Ollama endpoint (overrides config)")
	root.PersistentFlags().StringVar(&flagWorkspace, "workspace", ".", "Project workspace directory")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file (defaults to <workspace>/autoforge_cfg/config.yaml)")

	root.AddCommand(newRunCmd(), newResumeCmd(), newStatusCmd(), newServeCmd(), newRPCCmd(), newScanCmd(), newPlanCmd())
	return root
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
