// Package config loads and validates the engine configuration. Settings
// merge in three layers: compiled defaults, then an optional YAML or JSON
// config file, then LOOP_* environment variables. The result is a single
// immutable Config value owned by the controller for the whole run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Defaults applied before any file or environment value.
const (
	DefaultProvider           = "anthropic"
	DefaultModel              = "claude-sonnet-4-20250514"
	DefaultMaxTokens          = 8192
	DefaultWorkingDir         = "."
	DefaultTaskListPath       = "tasks.json"
	DefaultProgressPath       = "progress.jsonl"
	DefaultGuidelinesPath     = "GUIDELINES.md"
	DefaultIterations         = 1
	DefaultMaxToolRounds      = 25
	DefaultCommandTimeoutSecs = 120
	DefaultCheckTimeoutSecs   = 300
	DefaultConfigFile         = "loop.yaml"
)

// Config holds every run setting. Loaded once, then read-only.
type Config struct {
	Provider           string `yaml:"provider" json:"provider" env:"LOOP_PROVIDER"`
	APIKey             string `yaml:"api_key" json:"api_key" env:"LOOP_API_KEY"`
	Model              string `yaml:"model" json:"model" env:"LOOP_MODEL"`
	MaxTokens          int    `yaml:"max_tokens" json:"max_tokens" env:"LOOP_MAX_TOKENS"`
	WorkingDir         string `yaml:"working_dir" json:"working_dir" env:"LOOP_WORKING_DIR"`
	TaskListPath       string `yaml:"task_list" json:"task_list" env:"LOOP_TASKLIST"`
	ProgressPath       string `yaml:"progress_file" json:"progress_file" env:"LOOP_PROGRESS"`
	GuidelinesPath     string `yaml:"guidelines" json:"guidelines" env:"LOOP_GUIDELINES"`
	Iterations         int    `yaml:"iterations" json:"iterations" env:"LOOP_ITERATIONS"`
	MaxToolRounds      int    `yaml:"max_tool_rounds" json:"max_tool_rounds" env:"LOOP_MAX_TOOL_ROUNDS"`
	CommandTimeoutSecs int    `yaml:"command_timeout_secs" json:"command_timeout_secs" env:"LOOP_COMMAND_TIMEOUT_SECS"`
	CheckTimeoutSecs   int    `yaml:"check_timeout_secs" json:"check_timeout_secs" env:"LOOP_CHECK_TIMEOUT_SECS"`
	HITL               bool   `yaml:"hitl" json:"hitl" env:"LOOP_HITL"`
	Verbose            bool   `yaml:"verbose" json:"verbose" env:"LOOP_VERBOSE"`
}

// DefaultConfig returns the compiled defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:           DefaultProvider,
		Model:              DefaultModel,
		MaxTokens:          DefaultMaxTokens,
		WorkingDir:         DefaultWorkingDir,
		TaskListPath:       DefaultTaskListPath,
		ProgressPath:       DefaultProgressPath,
		GuidelinesPath:     DefaultGuidelinesPath,
		Iterations:         DefaultIterations,
		MaxToolRounds:      DefaultMaxToolRounds,
		CommandTimeoutSecs: DefaultCommandTimeoutSecs,
		CheckTimeoutSecs:   DefaultCheckTimeoutSecs,
	}
}

// CommandTimeout returns the per-command timeout as a duration.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutSecs) * time.Second
}

// CheckTimeout returns the per-feedback-check timeout as a duration.
func (c *Config) CheckTimeout() time.Duration {
	return time.Duration(c.CheckTimeoutSecs) * time.Second
}

// Load builds a Config from defaults, the named config file, and the
// environment, then validates it. An empty path falls back to loop.yaml
// in the current directory when present; a named file that cannot be
// read is an error.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read merges defaults, the config file, and the environment without
// validating the result. Commands that never call the completion
// service use it so they work without an API key.
func Read(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decodeFile(path, data, cfg); err != nil {
			return nil, err
		}
	case explicit:
		return nil, &ValidationError{Field: "config", Message: fmt.Sprintf("cannot read %s: %v", path, err)}
	case !os.IsNotExist(err):
		return nil, &ValidationError{Field: "config", Message: fmt.Sprintf("cannot read %s: %v", path, err)}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, &ValidationError{Field: "environment", Message: err.Error()}
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return cfg, nil
}

func decodeFile(path string, data []byte, cfg *Config) error {
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return &ValidationError{Field: "config", Message: fmt.Sprintf("cannot parse %s: %v", path, err)}
	}
	return nil
}

// Validate checks the merged configuration. A missing API key is the
// canonical fatal startup error.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return &ValidationError{
			Field:   "api_key",
			Message: "missing API key (set LOOP_API_KEY or ANTHROPIC_API_KEY)",
		}
	}
	if c.Model == "" {
		return &ValidationError{Field: "model", Message: "must not be empty"}
	}
	if c.MaxTokens <= 0 {
		return &ValidationError{Field: "max_tokens", Message: "must be positive"}
	}
	if c.Iterations < 1 {
		return &ValidationError{Field: "iterations", Message: "must be at least 1"}
	}
	if c.MaxToolRounds < 1 {
		return &ValidationError{Field: "max_tool_rounds", Message: "must be at least 1"}
	}
	if c.CommandTimeoutSecs <= 0 {
		return &ValidationError{Field: "command_timeout_secs", Message: "must be positive"}
	}
	if c.CheckTimeoutSecs <= 0 {
		return &ValidationError{Field: "check_timeout_secs", Message: "must be positive"}
	}
	if info, err := os.Stat(c.WorkingDir); err != nil || !info.IsDir() {
		return &ValidationError{
			Field:   "working_dir",
			Message: fmt.Sprintf("%s is not a directory", c.WorkingDir),
		}
	}
	return nil
}

// ValidationError reports an unusable configuration value. It is fatal at
// startup, before any iteration begins.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
