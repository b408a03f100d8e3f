// Package config loads the assistant configuration from a TOML or YAML file
// and the environment, and maps it onto the runtime components.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/anthropics/anthropic-sdk-go"
	"gopkg.in/yaml.v3"

	"github.com/NikhilKumarMandal/multi-agent-system/agent"
	"github.com/NikhilKumarMandal/multi-agent-system/assistant"
	"github.com/NikhilKumarMandal/multi-agent-system/checkpoint"
	"github.com/NikhilKumarMandal/multi-agent-system/core"
	"github.com/NikhilKumarMandal/multi-agent-system/logging"
	"github.com/NikhilKumarMandal/multi-agent-system/model"
	anthropicmodel "github.com/NikhilKumarMandal/multi-agent-system/model/anthropic"
	openaimodel "github.com/NikhilKumarMandal/multi-agent-system/model/openai"
)

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Defaults applied when the config file and environment leave a setting empty.
const (
	DefaultProvider       = ProviderOpenAI
	DefaultOpenAIModel    = "gpt-4.1"
	DefaultAnthropicModel = "claude-3-5-sonnet-20241022"
	DefaultMaxTokens      = 4096
	DefaultRedisAddr      = "localhost:6379"
)

// ErrMissingAPIKey is returned by Gateway when no key is configured.
var ErrMissingAPIKey = errors.New("config: API key not set (set ASSISTANT_API_KEY, OPENAI_API_KEY or ANTHROPIC_API_KEY)")

// Config is the assistant configuration loaded from a TOML or YAML file,
// then overridden by ASSISTANT_* environment variables.
type Config struct {
	Provider   ProviderConfig   `toml:"provider" yaml:"provider"`
	Agent      AgentConfig      `toml:"agent" yaml:"agent"`
	Checkpoint CheckpointConfig `toml:"checkpoint" yaml:"checkpoint"`
	Log        LogConfig        `toml:"log" yaml:"log"`
}

// ProviderConfig selects the model provider behind every agent.
type ProviderConfig struct {
	Type        string  `toml:"type" yaml:"type"` // "openai" (default) or "anthropic"
	APIKey      string  `toml:"api_key" yaml:"api_key"`
	BaseURL     string  `toml:"base_url" yaml:"base_url"`
	Model       string  `toml:"model" yaml:"model"`
	Temperature float64 `toml:"temperature" yaml:"temperature"`
	MaxTokens   int64   `toml:"max_tokens" yaml:"max_tokens"`
}

// AgentConfig bounds the loops of the supervisor and its sub-agents.
type AgentConfig struct {
	MaxSteps           int         `toml:"max_steps" yaml:"max_steps"`
	MaxParallelTools   int         `toml:"max_parallel_tools" yaml:"max_parallel_tools"`
	MaxDepth           int         `toml:"max_depth" yaml:"max_depth"`
	MaxConcurrentTurns int         `toml:"max_concurrent_turns" yaml:"max_concurrent_turns"`
	Retry              RetryConfig `toml:"retry" yaml:"retry"`
}

// RetryConfig is the gateway retry policy. Durations use Go syntax ("500ms").
type RetryConfig struct {
	MaxTries        uint          `toml:"max_tries" yaml:"max_tries"`
	InitialInterval time.Duration `toml:"initial_interval" yaml:"initial_interval"`
	MaxInterval     time.Duration `toml:"max_interval" yaml:"max_interval"`
}

// CheckpointConfig selects where conversation threads are persisted.
type CheckpointConfig struct {
	Backend       string `toml:"backend" yaml:"backend"` // memory, sqlite or redis
	Path          string `toml:"path" yaml:"path"`
	RedisAddr     string `toml:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `toml:"redis_password" yaml:"redis_password"`
	RedisDB       int    `toml:"redis_db" yaml:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix" yaml:"redis_prefix"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // text or json
	// ToolStarts adds an agent.tool.start line before every tool call.
	ToolStarts bool `toml:"tool_starts" yaml:"tool_starts"`
}

// Default returns the built-in settings: OpenAI, a SQLite store under Dir
// and info-level text logs.
func Default() *Config {
	retry := agent.DefaultRetryPolicy()
	return &Config{
		Provider: ProviderConfig{
			Type:      DefaultProvider,
			MaxTokens: DefaultMaxTokens,
		},
		Agent: AgentConfig{
			MaxSteps:         agent.DefaultMaxSteps,
			MaxParallelTools: 1,
			MaxDepth:         agent.DefaultMaxDepth,
			Retry: RetryConfig{
				MaxTries:        retry.MaxTries,
				InitialInterval: retry.InitialInterval,
				MaxInterval:     retry.MaxInterval,
			},
		},
		Checkpoint: CheckpointConfig{
			Backend:     checkpoint.BackendSQLite,
			Path:        filepath.Join(Dir(), "checkpoints.db"),
			RedisAddr:   DefaultRedisAddr,
			RedisPrefix: checkpoint.DefaultRedisPrefix,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Dir is the per-user configuration directory.
func Dir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".assistant")
}

// DefaultPath is the configuration file used when none is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load builds the configuration: defaults, then the file at path (TOML, or
// YAML for .yaml/.yml), then environment overrides. An empty path skips the
// file. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ASSISTANT_PROVIDER"); v != "" {
		cfg.Provider.Type = strings.ToLower(v)
	}
	if v := os.Getenv("ASSISTANT_MODEL"); v != "" {
		cfg.Provider.Model = v
	}
	if v := os.Getenv("ASSISTANT_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("ASSISTANT_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if cfg.Provider.APIKey == "" {
		switch cfg.Provider.Type {
		case ProviderOpenAI:
			cfg.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
		case ProviderAnthropic:
			cfg.Provider.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if v := os.Getenv("ASSISTANT_MAX_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Agent.MaxSteps = n
		}
	}
	if v := os.Getenv("ASSISTANT_CHECKPOINT_BACKEND"); v != "" {
		cfg.Checkpoint.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("ASSISTANT_CHECKPOINT_PATH"); v != "" {
		cfg.Checkpoint.Path = v
	}
	if v := os.Getenv("ASSISTANT_REDIS_ADDR"); v != "" {
		cfg.Checkpoint.RedisAddr = v
	}
	if v := os.Getenv("ASSISTANT_REDIS_PASSWORD"); v != "" {
		cfg.Checkpoint.RedisPassword = v
	}
	if v := os.Getenv("ASSISTANT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ASSISTANT_LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}
	if v := os.Getenv("ASSISTANT_LOG_TOOL_STARTS"); v != "" {
		cfg.Log.ToolStarts = v == "1" || strings.EqualFold(v, "true")
	}
}

// Validate reports the first invalid setting. Errors wrap core.ErrConfig.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", core.ErrConfig, fmt.Sprintf(format, args...))
	}

	switch c.Provider.Type {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return invalid("unknown provider %q", c.Provider.Type)
	}
	if c.Agent.MaxSteps < 1 {
		return invalid("agent.max_steps must be at least 1, got %d", c.Agent.MaxSteps)
	}
	if c.Agent.MaxParallelTools < 1 {
		return invalid("agent.max_parallel_tools must be at least 1, got %d", c.Agent.MaxParallelTools)
	}
	if c.Agent.MaxDepth < 1 {
		return invalid("agent.max_depth must be at least 1, got %d", c.Agent.MaxDepth)
	}
	if c.Agent.MaxConcurrentTurns < 0 {
		return invalid("agent.max_concurrent_turns must not be negative")
	}

	switch c.Checkpoint.Backend {
	case checkpoint.BackendMemory:
	case checkpoint.BackendSQLite:
		if c.Checkpoint.Path == "" {
			return invalid("checkpoint.path is required for the sqlite backend")
		}
	case checkpoint.BackendRedis:
		if c.Checkpoint.RedisAddr == "" {
			return invalid("checkpoint.redis_addr is required for the redis backend")
		}
	default:
		return invalid("unknown checkpoint backend %q", c.Checkpoint.Backend)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("%v", err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return invalid("unknown log format %q", c.Log.Format)
	}
	return nil
}

// CheckpointOptions maps the checkpoint section onto checkpoint.Open.
func (c *Config) CheckpointOptions() checkpoint.Options {
	return checkpoint.Options{
		Backend: c.Checkpoint.Backend,
		Path:    c.Checkpoint.Path,
		Redis: checkpoint.RedisOptions{
			Address:  c.Checkpoint.RedisAddr,
			Password: c.Checkpoint.RedisPassword,
			DB:       c.Checkpoint.RedisDB,
			Prefix:   c.Checkpoint.RedisPrefix,
		},
	}
}

// Logger builds the structured logger described by the log section.
func (c *Config) Logger(w io.Writer) *logging.StructuredLogger {
	level, _ := logging.ParseLevel(c.Log.Level)
	cfg := logging.DefaultLoggerConfig()
	cfg.Level = level
	if c.Log.Format != "" {
		cfg.Format = c.Log.Format
	}
	if w != nil {
		cfg.Output = w
	}
	return logging.NewLogger(cfg)
}

// Gateway builds the model gateway of the configured provider.
func (c *Config) Gateway() (model.Gateway, error) {
	if c.Provider.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	switch c.Provider.Type {
	case ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			o.Model = DefaultAnthropicModel
			if c.Provider.Model != "" {
				o.Model = anthropic.Model(c.Provider.Model)
			}
			o.Temperature = c.Provider.Temperature
			if c.Provider.MaxTokens > 0 {
				o.MaxTokens = c.Provider.MaxTokens
			}
			o.APIKey = c.Provider.APIKey
			o.BaseURL = c.Provider.BaseURL
		}), nil
	case ProviderOpenAI:
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			o.Model = DefaultOpenAIModel
			if c.Provider.Model != "" {
				o.Model = c.Provider.Model
			}
			o.Temperature = c.Provider.Temperature
			if c.Provider.MaxTokens > 0 {
				o.MaxCompletionTokens = c.Provider.MaxTokens
			}
			o.APIKey = c.Provider.APIKey
			o.BaseURL = c.Provider.BaseURL
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", core.ErrConfig, c.Provider.Type)
	}
}

// AssistantOptions maps the agent section onto assistant.New.
func (c *Config) AssistantOptions(store core.CheckpointStore, logger logging.Logger) func(o *assistant.Options) {
	return func(o *assistant.Options) {
		o.Store = store
		o.MaxSteps = c.Agent.MaxSteps
		o.MaxParallelTools = c.Agent.MaxParallelTools
		o.MaxDepth = c.Agent.MaxDepth
		o.MaxConcurrentTurns = c.Agent.MaxConcurrentTurns
		o.LogToolStarts = c.Log.ToolStarts
		o.Retry = agent.RetryPolicy{
			MaxTries:        c.Agent.Retry.MaxTries,
			InitialInterval: c.Agent.Retry.InitialInterval,
			MaxInterval:     c.Agent.Retry.MaxInterval,
		}
		if logger != nil {
			o.Logger = logger
		}
	}
}
