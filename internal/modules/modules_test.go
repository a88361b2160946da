package modules

import (
	"context"
	"errors"
	"testing"

	"github.com/nextlevelbuilder/drost/internal/providers"
)

func TestMemoryModulePreflightNilPingIsNoop(t *testing.T) {
	m := &MemoryModule{}
	if err := m.Preflight(context.Background()); err != nil {
		t.Fatalf("expected nil ping to be a no-op, got %v", err)
	}
	if m.Name() != "memory" {
		t.Fatalf("got name %q", m.Name())
	}
}

func TestMemoryModulePreflightWrapsPingError(t *testing.T) {
	m := &MemoryModule{Ping: func(ctx context.Context) error { return errors.New("unreachable") }}
	err := m.Preflight(context.Background())
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestGraphModulePreflightWrapsPingError(t *testing.T) {
	g := &GraphModule{Ping: func(ctx context.Context) error { return errors.New("unreachable") }}
	if err := g.Preflight(context.Background()); err == nil {
		t.Fatalf("expected an error")
	}
	if g.Name() != "graph" {
		t.Fatalf("got name %q", g.Name())
	}
}

func TestBackupModulePreflightAlwaysSucceeds(t *testing.T) {
	b := &BackupModule{}
	if err := b.Preflight(context.Background()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if b.Name() != "backup" {
		t.Fatalf("got name %q", b.Name())
	}
}

func TestSchedulerModulePreflightValidatesCronExpressions(t *testing.T) {
	m := &SchedulerModule{Expressions: map[string]string{"nightly": "0 2 * * *"}}
	if err := m.Preflight(context.Background()); err != nil {
		t.Fatalf("expected a valid cron expression to pass, got %v", err)
	}
}

func TestSchedulerModulePreflightRejectsInvalidCron(t *testing.T) {
	m := &SchedulerModule{Expressions: map[string]string{"broken": "not a cron"}}
	if err := m.Preflight(context.Background()); err == nil {
		t.Fatalf("expected an invalid cron expression to fail preflight")
	}
}

func TestMCPBridgeModulePreflightRegistersTools(t *testing.T) {
	b := &MCPBridgeModule{
		Tools: []providers.ToolDefinition{
			{Type: "function", Function: providers.ToolFunctionSchema{Name: "read_file", Description: "reads a file"}},
		},
		Call: func(ctx context.Context, name string, input map[string]interface{}) (interface{}, error) {
			return "ok", nil
		},
	}
	if err := b.Preflight(context.Background()); err != nil {
		t.Fatalf("Preflight: %v", err)
	}
	if b.Server() == nil {
		t.Fatalf("expected Server() to return a constructed MCP server after preflight")
	}
	if b.Name() != "mcp-bridge" {
		t.Fatalf("got name %q", b.Name())
	}
}
