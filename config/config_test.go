package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load consults so tests are deterministic
// regardless of the host environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LOOP_PROVIDER", "LOOP_API_KEY", "LOOP_MODEL", "LOOP_MAX_TOKENS",
		"LOOP_WORKING_DIR", "LOOP_TASKLIST", "LOOP_PROGRESS", "LOOP_GUIDELINES",
		"LOOP_ITERATIONS", "LOOP_MAX_TOOL_ROUNDS", "LOOP_COMMAND_TIMEOUT_SECS",
		"LOOP_CHECK_TIMEOUT_SECS", "LOOP_HITL", "LOOP_VERBOSE", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOOP_API_KEY", "test-key")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultProvider, cfg.Provider)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, DefaultMaxTokens, cfg.MaxTokens)
	assert.Equal(t, ".", cfg.WorkingDir)
	assert.Equal(t, "tasks.json", cfg.TaskListPath)
	assert.Equal(t, "progress.jsonl", cfg.ProgressPath)
	assert.Equal(t, 1, cfg.Iterations)
	assert.Equal(t, 25, cfg.MaxToolRounds)
	assert.Equal(t, 120*time.Second, cfg.CommandTimeout())
	assert.Equal(t, 300*time.Second, cfg.CheckTimeout())
	assert.False(t, cfg.HITL)
	assert.False(t, cfg.Verbose)
}

func TestFileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOOP_API_KEY", "test-key")

	dir := t.TempDir()
	path := filepath.Join(dir, "loop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
model: custom-model
max_tokens: 2048
working_dir: `+dir+`
iterations: 4
verbose: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom-model", cfg.Model)
	assert.Equal(t, 2048, cfg.MaxTokens)
	assert.Equal(t, 4, cfg.Iterations)
	assert.True(t, cfg.Verbose)
	// Untouched keys keep defaults.
	assert.Equal(t, DefaultProvider, cfg.Provider)
	assert.Equal(t, 25, cfg.MaxToolRounds)
}

func TestJSONConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOOP_API_KEY", "test-key")

	dir := t.TempDir()
	path := filepath.Join(dir, "loop.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"model": "json-model",
		"working_dir": "`+dir+`"
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "json-model", cfg.Model)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOOP_API_KEY", "test-key")
	t.Setenv("LOOP_MODEL", "env-model")
	t.Setenv("LOOP_ITERATIONS", "7")
	t.Setenv("LOOP_HITL", "true")

	dir := t.TempDir()
	path := filepath.Join(dir, "loop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
model: file-model
working_dir: `+dir+`
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-model", cfg.Model)
	assert.Equal(t, 7, cfg.Iterations)
	assert.True(t, cfg.HITL)
}

func TestAnthropicKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "fallback-key")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "fallback-key", cfg.APIKey)
}

func TestMissingAPIKeyIsFatal(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	_, err := Load("")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "api_key", vErr.Field)
}

func TestReadSkipsValidation(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Read("")
	require.NoError(t, err)
	assert.Empty(t, cfg.APIKey)
	assert.Equal(t, DefaultModel, cfg.Model)
}

func TestExplicitMissingFileIsError(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOOP_API_KEY", "test-key")

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "config", vErr.Field)
}

func TestValidateRejectsBadValues(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name  string
		mut   func(*Config)
		field string
	}{
		{"zero max tokens", func(c *Config) { c.MaxTokens = 0 }, "max_tokens"},
		{"zero iterations", func(c *Config) { c.Iterations = 0 }, "iterations"},
		{"zero rounds", func(c *Config) { c.MaxToolRounds = 0 }, "max_tool_rounds"},
		{"zero command timeout", func(c *Config) { c.CommandTimeoutSecs = 0 }, "command_timeout_secs"},
		{"empty model", func(c *Config) { c.Model = "" }, "model"},
		{"bad dir", func(c *Config) { c.WorkingDir = "/definitely/not/a/real/dir" }, "working_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.APIKey = "k"
			tt.mut(cfg)

			err := cfg.Validate()
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}
