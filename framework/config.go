package framework

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const configDirName = "autoforge_cfg"

// ConfigDir returns the workspace-local configuration directory.
func ConfigDir(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, configDirName)
}

// DefaultConfigPath returns autoforge_cfg/config.yaml within the workspace.
func DefaultConfigPath(workspace string) string {
	return filepath.Join(ConfigDir(workspace), "config.yaml")
}

// Config matches autoforge_cfg/config.yaml inside the workspace and carries
// the runtime knobs shared across the planner, the engine, and the CLI.
type Config struct {
	Version string      `yaml:"version"`
	Model   ModelConfig `yaml:"model"`
	Limits  LimitConfig `yaml:"limits"`
	Logging LogConfig   `yaml:"logging"`
}

// ModelConfig selects the oracle backend.
type ModelConfig struct {
	Name        string  `yaml:"name"`
	Endpoint    string  `yaml:"endpoint"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// LimitConfig bounds the execution loops.
type LimitConfig struct {
	MaxLoopIterations int           `yaml:"max_loop_iterations"`
	MaxReactSteps     int           `yaml:"max_react_steps"`
	MaxRetries        int           `yaml:"max_retries"`
	CommandTimeout    time.Duration `yaml:"command_timeout"`
	AllowedCommands   []string      `yaml:"allowed_commands"`
}

// LogConfig describes log output.
type LogConfig struct {
	EventFile  string `yaml:"event_file"`
	DebugAgent bool   `yaml:"agent_debug"`
	DebugLLM   bool   `yaml:"llm_debug"`
}

// DefaultConfig returns the limits the engine runs with when no config file
// exists. The loop caps match the engine's documented hard bounds.
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0.0",
		Model: ModelConfig{
			Name:        "codellama",
			Endpoint:    "http://localhost:11434",
			Temperature: 0.2,
			MaxTokens:   1024,
		},
		Limits: LimitConfig{
			MaxLoopIterations: 50,
			MaxReactSteps:     15,
			MaxRetries:        1,
			CommandTimeout:    DefaultCommandTimeout,
		},
	}
}

// LoadConfig loads the config or returns defaults when the file is missing.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.fillDefaults()
	return cfg, nil
}

// SaveConfig writes the config to disk.
func SaveConfig(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config missing")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// fillDefaults restores zero-valued limits after a partial yaml overlay.
func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.Model.Name == "" {
		c.Model.Name = def.Model.Name
	}
	if c.Model.Endpoint == "" {
		c.Model.Endpoint = def.Model.Endpoint
	}
	if c.Model.MaxTokens == 0 {
		c.Model.MaxTokens = def.Model.MaxTokens
	}
	if c.Limits.MaxLoopIterations == 0 {
		c.Limits.MaxLoopIterations = def.Limits.MaxLoopIterations
	}
	if c.Limits.MaxReactSteps == 0 {
		c.Limits.MaxReactSteps = def.Limits.MaxReactSteps
	}
	if c.Limits.MaxRetries == 0 {
		c.Limits.MaxRetries = def.Limits.MaxRetries
	}
	if c.Limits.CommandTimeout == 0 {
		c.Limits.CommandTimeout = def.Limits.CommandTimeout
	}
}
