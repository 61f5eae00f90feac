package main

import (
	"fmt"
	"path/filepath"

	"github.com/lexcodex/autoforge/agents"
	"github.com/lexcodex/autoforge/framework"
	"github.com/lexcodex/autoforge/llm"
	"github.com/lexcodex/autoforge/tools"
)

// runtime bundles everything a command needs to drive the engine in one
// workspace.
type runtime struct {
	workspace *framework.Workspace
	config    *framework.Config
	model     *llm.InstrumentedModel
	registry  *framework.ToolRegistry
	telemetry *framework.MultiplexTelemetry
	events    *framework.ChannelTelemetry
}

// buildRuntime resolves config and wires the model, tools, and telemetry
// for a workspace directory.
func buildRuntime(workspaceDir string, withEvents bool) (*runtime, error) {
	ws, err := framework.NewWorkspace(workspaceDir)
	if err != nil {
		return nil, err
	}
	cfgPath := flagConfig
	if cfgPath == "" {
		cfgPath = framework.DefaultConfigPath(ws.Root())
	}
	cfg, err := framework.LoadConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flagModel != "" {
		cfg.Model.Name = flagModel
	}
	if flagEndpoint != "" {
		cfg.Model.Endpoint = flagEndpoint
	}

	multiplex := &framework.MultiplexTelemetry{}
	if cfg.Logging.EventFile != "" {
		path := cfg.Logging.EventFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(ws.Root(), path)
		}
		sink, err := framework.NewJSONFileTelemetry(path)
		if err != nil {
			return nil, fmt.Errorf("open event log: %w", err)
		}
		multiplex.Sinks = append(multiplex.Sinks, sink)
	}
	var events *framework.ChannelTelemetry
	if withEvents {
		events = framework.NewChannelTelemetry(0)
		multiplex.Sinks = append(multiplex.Sinks, events)
	}

	client := llm.NewClient(cfg.Model.Endpoint, cfg.Model.Name)
	client.SetDebugLogging(cfg.Logging.DebugLLM)
	model := llm.NewInstrumentedModel(client, multiplex)

	runner, err := framework.NewAllowlistCommandRunner(ws, cfg.Limits.AllowedCommands, cfg.Limits.CommandTimeout)
	if err != nil {
		return nil, err
	}
	registry, err := tools.SandboxRegistry(ws, runner)
	if err != nil {
		return nil, err
	}

	return &runtime{
		workspace: ws,
		config:    cfg,
		model:     model,
		registry:  registry,
		telemetry: multiplex,
		events:    events,
	}, nil
}

// engine builds a fully wired engine from the runtime.
func (r *runtime) engine() *agents.Engine {
	eng := agents.NewEngine(r.workspace, r.model, r.config, r.registry)
	eng.Telem = r.telemetry
	eng.Planner.Debug = r.config.Logging.DebugAgent
	eng.Executor.Debug = r.config.Logging.DebugAgent
	eng.Executor.Telem = r.telemetry
	return eng
}
