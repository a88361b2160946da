package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults, matching the
// Provider Router / Durable Session Store / Gateway defaults named in
// the running system's invariants.
func Default() *Config {
	return &Config{
		Workspace: "~/.drost/workspace",
		Agent: AgentConfig{
			Entry:   "default",
			Runtime: "default",
		},
		Router: RouterConfig{
			MaxRetries:                 3,
			RetryDelayMs:               500,
			BackoffMultiplier:          2.0,
			FailoverEnabled:            true,
			AuthCooldownSeconds:        900,
			RateLimitCooldownSeconds:   60,
			ServerErrorCooldownSeconds: 15,
		},
		Orchestration: OrchestrationConfig{
			DefaultMode:     "queue",
			QueueCap:        50,
			DropPolicy:      "old",
			DebounceMs:      750,
			PersistencePath: "~/.drost/orchestration-lanes.json",
		},
		Subagents: SubagentsConfig{
			MaxParallelJobs:  2,
			LockMode:         "shared",
			DefaultTimeoutMs: 300_000,
		},
		Sessions: SessionsConfig{
			Directory: "~/.drost/sessions",
		},
		Tools: ToolsConfig{
			MaxIterations: 20,
		},
		Skills: SkillsConfig{
			StorageDir:  "~/.drost/skills-store",
			RuntimeMode: "lazy",
		},
		Health: HealthConfig{
			Path: "/status",
		},
		Observability: ObservabilityConfig{
			Filenames: []string{"~/.drost/logs/events.jsonl"},
		},
		ControlPlane: ControlPlaneConfig{
			Host: "127.0.0.1",
			Port: 18790,
		},
		Restart: RestartConfig{
			MaxRestartsPerWindow:      5,
			WindowMs:                  600_000,
			HistoryPath:               "~/.drost/restart-history.jsonl",
			RequireApprovalForSelfMod: true,
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars. A
// missing file is not an error: Load falls back to Default plus env.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays environment variables onto the config;
// env values take precedence over file values since they are the
// deploy-time override mechanism.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envStr("DROST_ANTHROPIC_API_KEY", &c.Providers.Anthropic.APIKey)
	envStr("DROST_ANTHROPIC_API_BASE", &c.Providers.Anthropic.APIBase)
	envStr("DROST_OPENAI_API_KEY", &c.Providers.OpenAI.APIKey)
	envStr("DROST_OPENAI_API_BASE", &c.Providers.OpenAI.APIBase)
	envStr("DROST_XAI_API_KEY", &c.Providers.XAI.APIKey)
	envStr("DROST_XAI_API_BASE", &c.Providers.XAI.APIBase)

	envStr("DROST_WORKSPACE", &c.Workspace)
	envStr("DROST_SESSIONS_DIRECTORY", &c.Sessions.Directory)

	envStr("DROST_CONTROL_PLANE_HOST", &c.ControlPlane.Host)
	if v := os.Getenv("DROST_CONTROL_PLANE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.ControlPlane.Port = port
		}
	}
	envStr("DROST_ADMIN_TOKEN", &c.ControlPlane.AdminToken)
	envStr("DROST_READ_TOKEN", &c.ControlPlane.ReadToken)

	envStr("DROST_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("DROST_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("DROST_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	if v := os.Getenv("DROST_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}

	envStr("DROST_POSTGRES_DSN", &c.Database.PostgresDSN)
	envStr("DROST_DATABASE_MODE", &c.Database.Mode)

	envStr("DROST_TELEGRAM_TOKEN", &c.Channels.Telegram.Token)
	if c.Channels.Telegram.Token != "" {
		c.Channels.Telegram.Enabled = true
	}
}

// Save writes the config to a JSON5-compatible JSON file.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	// json5.Unmarshal reads the config back in; plain JSON is valid
	// JSON5, so encoding/json is sufficient for writing it out.
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: mkdir %s: %w", dir, err)
	}
	return os.WriteFile(path, data, 0o600)
}

// ExpandHome replaces a leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if len(path) > 1 && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return home
}
