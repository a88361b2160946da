package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json5"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workspace != Default().Workspace {
		t.Fatalf("expected default workspace, got %q", cfg.Workspace)
	}
}

func TestLoadParsesJSON5WithCommentsAndTrailingCommas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drost.json5")
	contents := `{
		// a comment json5 should tolerate
		workspace: "/srv/drost",
		router: {
			max_retries: 7,
		},
	}`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workspace != "/srv/drost" {
		t.Fatalf("got workspace %q", cfg.Workspace)
	}
	if cfg.Router.MaxRetries != 7 {
		t.Fatalf("got max_retries %d", cfg.Router.MaxRetries)
	}
	// Load unmarshals onto a Default() base, so fields absent from the
	// file keep their default value rather than zeroing out.
	if cfg.Router.RetryDelayMs != Default().Router.RetryDelayMs {
		t.Fatalf("expected an unset field to keep its default, got %d", cfg.Router.RetryDelayMs)
	}
}

func TestLoadAppliesEnvOverridesOverFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drost.json5")
	if err := os.WriteFile(path, []byte(`{workspace: "/from/file"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("DROST_WORKSPACE", "/from/env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workspace != "/from/env" {
		t.Fatalf("expected env override to win, got %q", cfg.Workspace)
	}
}

func TestApplyEnvOverridesEnablesTelegramWhenTokenSet(t *testing.T) {
	cfg := Default()
	t.Setenv("DROST_TELEGRAM_TOKEN", "12345:abc")
	cfg.applyEnvOverrides()
	if !cfg.Channels.Telegram.Enabled {
		t.Fatalf("expected telegram to be auto-enabled once a token is present")
	}
	if cfg.Channels.Telegram.Token != "12345:abc" {
		t.Fatalf("got token %q", cfg.Channels.Telegram.Token)
	}
}

func TestApplyEnvOverridesParsesControlPlanePort(t *testing.T) {
	cfg := Default()
	t.Setenv("DROST_CONTROL_PLANE_PORT", "9999")
	cfg.applyEnvOverrides()
	if cfg.ControlPlane.Port != 9999 {
		t.Fatalf("got port %d", cfg.ControlPlane.Port)
	}
}

func TestApplyEnvOverridesIgnoresInvalidPort(t *testing.T) {
	cfg := Default()
	original := cfg.ControlPlane.Port
	t.Setenv("DROST_CONTROL_PLANE_PORT", "not-a-number")
	cfg.applyEnvOverrides()
	if cfg.ControlPlane.Port != original {
		t.Fatalf("expected invalid port to be ignored, got %d", cfg.ControlPlane.Port)
	}
}

func TestSaveAndReloadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "drost.json")
	cfg := Default()
	cfg.Workspace = "/custom/workspace"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.Workspace != "/custom/workspace" {
		t.Fatalf("got workspace %q", reloaded.Workspace)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available in this environment")
	}
	if got := ExpandHome("~/foo/bar"); got != filepath.Join(home, "foo/bar") {
		t.Fatalf("got %q", got)
	}
	if got := ExpandHome("~"); got != home {
		t.Fatalf("got %q", got)
	}
	if got := ExpandHome("/already/absolute"); got != "/already/absolute" {
		t.Fatalf("got %q", got)
	}
}
