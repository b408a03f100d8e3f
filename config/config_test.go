package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikhilKumarMandal/multi-agent-system/assistant"
	"github.com/NikhilKumarMandal/multi-agent-system/checkpoint"
	"github.com/NikhilKumarMandal/multi-agent-system/core"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{
		"ASSISTANT_PROVIDER", "ASSISTANT_MODEL", "ASSISTANT_API_KEY", "ASSISTANT_BASE_URL",
		"ASSISTANT_MAX_STEPS", "ASSISTANT_CHECKPOINT_BACKEND", "ASSISTANT_CHECKPOINT_PATH",
		"ASSISTANT_REDIS_ADDR", "ASSISTANT_REDIS_PASSWORD", "ASSISTANT_LOG_LEVEL", "ASSISTANT_LOG_FORMAT", "ASSISTANT_LOG_TOOL_STARTS",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.Provider.Type)
	assert.Equal(t, 25, cfg.Agent.MaxSteps)
	assert.Equal(t, 1, cfg.Agent.MaxParallelTools)
	assert.Equal(t, 3, cfg.Agent.MaxDepth)
	assert.Equal(t, uint(3), cfg.Agent.Retry.MaxTries)
	assert.Equal(t, checkpoint.BackendSQLite, cfg.Checkpoint.Backend)
	assert.Equal(t, filepath.Join(Dir(), "checkpoints.db"), cfg.Checkpoint.Path)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_TOML(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "config.toml", `
[provider]
type = "anthropic"
model = "claude-3-5-haiku-latest"
api_key = "file-key"

[agent]
max_steps = 10
max_parallel_tools = 4

[agent.retry]
max_tries = 5
initial_interval = "50ms"
max_interval = "1s"

[checkpoint]
backend = "memory"

[log]
level = "debug"
format = "json"
tool_starts = true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderAnthropic, cfg.Provider.Type)
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.Provider.Model)
	assert.Equal(t, "file-key", cfg.Provider.APIKey)
	assert.Equal(t, 10, cfg.Agent.MaxSteps)
	assert.Equal(t, 4, cfg.Agent.MaxParallelTools)
	assert.Equal(t, uint(5), cfg.Agent.Retry.MaxTries)
	assert.Equal(t, 50*time.Millisecond, cfg.Agent.Retry.InitialInterval)
	assert.Equal(t, time.Second, cfg.Agent.Retry.MaxInterval)
	assert.Equal(t, checkpoint.BackendMemory, cfg.Checkpoint.Backend)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Log.ToolStarts)
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "config.yaml", `
provider:
  type: openai
  model: gpt-4.1-mini
agent:
  max_steps: 7
checkpoint:
  backend: redis
  redis_addr: 127.0.0.1:6380
  redis_db: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4.1-mini", cfg.Provider.Model)
	assert.Equal(t, 7, cfg.Agent.MaxSteps)

	opts := cfg.CheckpointOptions()
	assert.Equal(t, checkpoint.BackendRedis, opts.Backend)
	assert.Equal(t, "127.0.0.1:6380", opts.Redis.Address)
	assert.Equal(t, 2, opts.Redis.DB)
	assert.Equal(t, checkpoint.DefaultRedisPrefix, opts.Redis.Prefix)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASSISTANT_MAX_STEPS", "12")
	t.Setenv("ASSISTANT_CHECKPOINT_BACKEND", "memory")
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("ASSISTANT_LOG_TOOL_STARTS", "true")

	path := writeFile(t, "config.toml", "[agent]\nmax_steps = 3\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Agent.MaxSteps)
	assert.Equal(t, checkpoint.BackendMemory, cfg.Checkpoint.Backend)
	assert.Equal(t, "env-key", cfg.Provider.APIKey)
	assert.True(t, cfg.Log.ToolStarts)
}

func TestLoad_ProviderKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASSISTANT_PROVIDER", "anthropic")
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "anthropic-key", cfg.Provider.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "bad.toml", "[agent\nmax_steps = 1"))
	require.Error(t, err)

	tests := []struct {
		name    string
		content string
	}{
		{name: "provider", content: "[provider]\ntype = \"ollama\"\n"},
		{name: "max_steps", content: "[agent]\nmax_steps = 0\n"},
		{name: "parallel", content: "[agent]\nmax_parallel_tools = 0\n"},
		{name: "backend", content: "[checkpoint]\nbackend = \"mysql\"\n"},
		{name: "sqlite_path", content: "[checkpoint]\nbackend = \"sqlite\"\npath = \"\"\n"},
		{name: "level", content: "[log]\nlevel = \"loud\"\n"},
		{name: "format", content: "[log]\nformat = \"xml\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.toml", tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrConfig))
		})
	}
}

func TestGateway(t *testing.T) {
	cfg := Default()
	_, err := cfg.Gateway()
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	cfg.Provider.APIKey = "k"
	gw, err := cfg.Gateway()
	require.NoError(t, err)
	assert.Equal(t, "openai", gw.Info().Provider)
	assert.Equal(t, DefaultOpenAIModel, gw.Info().Name)

	cfg.Provider.Type = ProviderAnthropic
	cfg.Provider.Model = "claude-3-5-haiku-latest"
	gw, err = cfg.Gateway()
	require.NoError(t, err)
	assert.Equal(t, "anthropic", gw.Info().Provider)
	assert.Equal(t, "claude-3-5-haiku-latest", gw.Info().Name)
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	l := cfg.Logger(&buf)
	l.Info("hidden")
	l.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestAssistantOptions(t *testing.T) {
	cfg := Default()
	cfg.Agent.MaxSteps = 9
	cfg.Agent.MaxDepth = 2
	cfg.Log.ToolStarts = true
	store := checkpoint.NewInMemoryStore()

	var o assistant.Options
	cfg.AssistantOptions(store, nil)(&o)

	assert.Same(t, store, o.Store)
	assert.Equal(t, 9, o.MaxSteps)
	assert.Equal(t, 2, o.MaxDepth)
	assert.Equal(t, uint(3), o.Retry.MaxTries)
	assert.True(t, o.LogToolStarts)
}
