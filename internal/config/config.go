// Package config is the root configuration tree for the gateway: one
// JSON5 file on disk, overlaid with environment variables, guarded by
// a mutex so ReplaceFrom can swap it under a live reload.
package config

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
)

// Config is the root configuration for the gateway.
type Config struct {
	Workspace     string              `json:"workspace"`
	Agent         AgentConfig         `json:"agent"`
	Providers     ProvidersConfig     `json:"providers"`
	Router        RouterConfig        `json:"router"`
	Orchestration OrchestrationConfig `json:"orchestration"`
	Subagents     SubagentsConfig     `json:"subagents"`
	Sessions      SessionsConfig      `json:"sessions"`
	Tools         ToolsConfig         `json:"tools"`
	Skills        SkillsConfig        `json:"skills,omitempty"`
	Health        HealthConfig        `json:"health"`
	Observability ObservabilityConfig `json:"observability"`
	Telemetry     TelemetryConfig     `json:"telemetry,omitempty"`
	ControlPlane  ControlPlaneConfig  `json:"control_plane"`
	Channels      ChannelsConfig      `json:"channels"`
	Restart       RestartConfig       `json:"restart"`
	Database      DatabaseConfig      `json:"database,omitempty"`

	mu sync.RWMutex
}

// AgentConfig names the entry point the gateway boots as its primary agent.
type AgentConfig struct {
	Entry   string `json:"entry"`
	Runtime string `json:"runtime_entry"`
}

// RouterConfig configures the Provider Router & Failover policy.
type RouterConfig struct {
	MaxRetries               int     `json:"max_retries,omitempty"`
	RetryDelayMs             int     `json:"retry_delay_ms,omitempty"`
	BackoffMultiplier        float64 `json:"backoff_multiplier,omitempty"`
	FailoverEnabled          bool    `json:"failover_enabled"`
	AuthCooldownSeconds      int     `json:"auth_cooldown_seconds,omitempty"`
	RateLimitCooldownSeconds int     `json:"rate_limit_cooldown_seconds,omitempty"`
	ServerErrorCooldownSeconds int   `json:"server_error_cooldown_seconds,omitempty"`
	Fallbacks                []string `json:"fallbacks,omitempty"`
	Chain                    []string `json:"chain,omitempty"`
}

// ProviderConfig is a single LLM provider's connection settings.
type ProviderConfig struct {
	APIKey       string `json:"api_key,omitempty"`
	APIBase      string `json:"api_base,omitempty"`
	DefaultModel string `json:"default_model,omitempty"`
}

// ProvidersConfig maps provider name to its connection settings.
type ProvidersConfig struct {
	Anthropic ProviderConfig `json:"anthropic"`
	OpenAI    ProviderConfig `json:"openai"`
	XAI       ProviderConfig `json:"xai"`
}

// OrchestrationConfig bounds the Session Orchestration Engine.
type OrchestrationConfig struct {
	DefaultMode    string `json:"default_mode,omitempty"`
	QueueCap       int    `json:"queue_cap,omitempty"`
	DropPolicy     string `json:"drop_policy,omitempty"`
	DebounceMs     int    `json:"debounce_ms,omitempty"`
	PersistencePath string `json:"persistence_path,omitempty"`
}

// SubagentsConfig configures the Subagent Scheduler.
type SubagentsConfig struct {
	MaxParallelJobs int    `json:"max_parallel_jobs,omitempty"`
	LockMode        string `json:"lock_mode,omitempty"`
	DefaultTimeoutMs int   `json:"default_timeout_ms,omitempty"`
}

// SessionsConfig controls the Durable Session Store.
type SessionsConfig struct {
	Directory       string `json:"directory"`
	MaxMessages     int    `json:"retention_max_messages,omitempty"`
	MaxChars        int    `json:"retention_max_chars,omitempty"`
	PruneOlderThanDays int `json:"prune_older_than_days,omitempty"`
}

// ToolsConfig controls the tool registry's global policy and path roots.
type ToolsConfig struct {
	Allow           []string `json:"allow,omitempty"`
	Deny            []string `json:"deny,omitempty"`
	WorkspaceRoots  []string `json:"workspace_roots,omitempty"`
	MaxIterations   int      `json:"max_iterations,omitempty"`
}

// SkillsConfig configures the skills storage and runtime mode.
type SkillsConfig struct {
	StorageDir  string `json:"storage_dir,omitempty"`
	RuntimeMode string `json:"runtime_mode,omitempty"` // "off", "lazy", "eager"
}

// HealthConfig configures the health probe surface.
type HealthConfig struct {
	Path string `json:"path,omitempty"`
}

// ObservabilityConfig names the sinks structured events are written to.
type ObservabilityConfig struct {
	Filenames []string `json:"filenames,omitempty"`
}

// TelemetryConfig configures OpenTelemetry trace export.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"`
	Protocol    string            `json:"protocol,omitempty"` // "grpc" or "http"
	Insecure    bool              `json:"insecure,omitempty"`
	ServiceName string            `json:"service_name,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// ControlPlaneConfig configures the admin HTTP surface.
type ControlPlaneConfig struct {
	Host       string   `json:"host"`
	Port       int      `json:"port"`
	AdminToken string   `json:"admin_token,omitempty"`
	ReadToken  string   `json:"read_token,omitempty"`
	AllowLoopbackWithoutAuth bool `json:"allow_loopback_without_auth,omitempty"`
}

// ChannelsConfig configures the channel adapters.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

// TelegramConfig configures the Telegram channel adapter.
type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
}

// RestartConfig bounds the Restart & Evolution Controller's budget.
type RestartConfig struct {
	MaxRestartsPerWindow int `json:"max_restarts_per_window,omitempty"`
	WindowMs             int `json:"window_ms,omitempty"`
	HistoryPath          string `json:"history_path,omitempty"`
	RequireApprovalForSelfMod bool `json:"require_approval_for_self_mod,omitempty"`
}

// DatabaseConfig configures an optional Postgres archive for session
// records, mirrored alongside the file-backed Durable Session Store.
// PostgresDSN is never read from the config file — only from env, since
// it carries credentials.
type DatabaseConfig struct {
	PostgresDSN string `json:"-"`
	Mode        string `json:"mode,omitempty"` // "" (disabled) or "archive"
}

// ReplaceFrom copies all data fields from src into c, preserving c's mutex.
func (c *Config) ReplaceFrom(src *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Workspace = src.Workspace
	c.Agent = src.Agent
	c.Providers = src.Providers
	c.Router = src.Router
	c.Orchestration = src.Orchestration
	c.Subagents = src.Subagents
	c.Sessions = src.Sessions
	c.Tools = src.Tools
	c.Skills = src.Skills
	c.Health = src.Health
	c.Observability = src.Observability
	c.Telemetry = src.Telemetry
	c.ControlPlane = src.ControlPlane
	c.Channels = src.Channels
	c.Restart = src.Restart
	c.Database = src.Database
}

// Snapshot returns a deep-enough copy for read-only inspection outside the lock.
func (c *Config) Snapshot() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := *c
	cp.mu = sync.RWMutex{}
	return cp
}

// Hash returns a short SHA-style fingerprint usable for optimistic
// concurrency and reload-diffing; callers needing the actual diff
// should use Diff instead.
func (c *Config) Hash() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("config: hash: %w", err)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum[:8]), nil
}
