package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lexcodex/autoforge/agents"
	"github.com/lexcodex/autoforge/persistence"
	"github.com/lexcodex/autoforge/server"
)

// newManager wires a run manager whose engines are built per workspace,
// with run history stored next to the serving workspace.
func newManager(dbPath string) (*server.RunManager, error) {
	var store *persistence.RunStore
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, err
		}
		var err error
		store, err = persistence.NewRunStore(dbPath)
		if err != nil {
			return nil, err
		}
	}
	factory := func(workspaceDir string) (*agents.Engine, error) {
		if workspaceDir == "" {
			workspaceDir = flagWorkspace
		}
		rt, err := buildRuntime(workspaceDir, false)
		if err != nil {
			return nil, err
		}
		return rt.engine(), nil
	}
	return server.NewRunManager(factory, store), nil
}

func newServeCmd() *cobra.Command {
	var addr string
	var dbPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newManager(dbPath)
			if err != nil {
				return err
			}
			api := &server.APIServer{
				Manager: manager,
				Logger:  log.New(os.Stdout, "api ", log.LstdFlags),
			}
			cmd.Printf("Starting API server on %s\n", addr)
			return api.ServeContext(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", envOrDefault("AUTOFORGE_ADDR", ":8080"), "address for the HTTP API server")
	cmd.Flags().StringVar(&dbPath, "db", filepath.Join("autoforge_cfg", "runs.db"), "run history database path (empty disables)")
	return cmd
}

func newRPCCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "rpc",
		Short: "Serve the jsonrpc2 control endpoint on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newManager(dbPath)
			if err != nil {
				return err
			}
			rpc := &server.RPCServer{
				Manager: manager,
				Logger:  log.New(os.Stderr, "rpc ", log.LstdFlags),
			}
			return rpc.ServeStdio(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "run history database path (empty disables)")
	return cmd
}
