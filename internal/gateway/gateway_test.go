package gateway

import (
	"context"
	"errors"
	"testing"
)

type fakeChannel struct {
	name        string
	connectErr  error
	connected   bool
	disconnects int
}

func (f *fakeChannel) Name() string { return f.name }
func (f *fakeChannel) Connect(ctx context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}
func (f *fakeChannel) Disconnect(ctx context.Context) error {
	f.disconnects++
	return nil
}

type fakeModule struct {
	name string
	err  error
}

func (f *fakeModule) Name() string { return f.name }
func (f *fakeModule) Preflight(ctx context.Context) error { return f.err }

func TestStartReachesRunningWithNoFailures(t *testing.T) {
	g := New()
	err := g.Start(context.Background(), StartConfig{
		BindServers: func(ctx context.Context) (string, error) { return "http://localhost:8080", nil },
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	state, reasons := g.State()
	if state != StateRunning {
		t.Fatalf("expected running, got %v (reasons=%v)", state, reasons)
	}
}

func TestStartDegradesOnModuleFailure(t *testing.T) {
	g := New()
	err := g.Start(context.Background(), StartConfig{
		Modules: []Module{&fakeModule{name: "memory", err: errors.New("unreachable")}},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	state, reasons := g.State()
	if state != StateDegraded {
		t.Fatalf("expected degraded, got %v", state)
	}
	if len(reasons) != 1 {
		t.Fatalf("expected one degraded reason, got %v", reasons)
	}
}

func TestStartDegradesOnChannelConnectFailure(t *testing.T) {
	g := New()
	ch := &fakeChannel{name: "telegram", connectErr: errors.New("unauthorized")}
	err := g.Start(context.Background(), StartConfig{Channels: []ChannelAdapter{ch}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	state, _ := g.State()
	if state != StateDegraded {
		t.Fatalf("expected degraded, got %v", state)
	}
}

func TestStartFailsHardOnBindServersError(t *testing.T) {
	g := New()
	err := g.Start(context.Background(), StartConfig{
		BindServers: func(ctx context.Context) (string, error) { return "", errors.New("port in use") },
	})
	if err == nil {
		t.Fatalf("expected BindServers failure to abort Start")
	}
}

func TestStopDisconnectsChannelsAndReturnsToStopped(t *testing.T) {
	g := New()
	ch := &fakeChannel{name: "telegram"}
	if err := g.Start(context.Background(), StartConfig{Channels: []ChannelAdapter{ch}}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	g.Stop(context.Background())

	state, _ := g.State()
	if state != StateStopped {
		t.Fatalf("expected stopped, got %v", state)
	}
	if ch.disconnects != 1 {
		t.Fatalf("expected channel to be disconnected once, got %d", ch.disconnects)
	}
}

func TestUnionToolsFirstWinsOnCollision(t *testing.T) {
	builtin := []ToolEntry{{Name: "read_file", Source: "builtin"}}
	plugin := []ToolEntry{{Name: "read_file", Source: "plugin"}, {Name: "web_fetch", Source: "plugin"}}

	ordered, collisions := unionTools(builtin, plugin)
	if len(ordered) != 2 {
		t.Fatalf("expected 2 surviving tools, got %+v", ordered)
	}
	if ordered[0].Source != "builtin" {
		t.Fatalf("expected builtin to win the collision, got %+v", ordered[0])
	}
	if len(collisions) != 1 || collisions[0].Name != "read_file" {
		t.Fatalf("got collisions %+v", collisions)
	}
}

func TestReloadConfigAppliesSafeFieldsAndRejectsOthers(t *testing.T) {
	var applied []string
	result := ReloadConfig([]string{"health.path", "sessions.directory", "bogus.field"}, func(path string) error {
		applied = append(applied, path)
		return nil
	})

	if len(result.Applied) != 1 || result.Applied[0] != "health.path" {
		t.Fatalf("got applied %v", result.Applied)
	}
	if !result.RestartRequired {
		t.Fatalf("expected restart required since some fields were rejected")
	}
	if len(result.Rejected) != 2 {
		t.Fatalf("got rejected %+v", result.Rejected)
	}
	for _, r := range result.Rejected {
		if r.Path == "sessions.directory" && r.Reason != "restart_required" {
			t.Fatalf("expected sessions.directory reason restart_required, got %q", r.Reason)
		}
		if r.Path == "bogus.field" && r.Reason != "unknown_field" {
			t.Fatalf("expected bogus.field reason unknown_field, got %q", r.Reason)
		}
	}
}

func TestReloadConfigRecordsApplyFailure(t *testing.T) {
	result := ReloadConfig([]string{"tools.policy"}, func(path string) error {
		return errors.New("disk full")
	})
	if len(result.Applied) != 0 {
		t.Fatalf("expected no applied fields, got %v", result.Applied)
	}
	if len(result.Rejected) != 1 || result.Rejected[0].Reason != "apply_failed" {
		t.Fatalf("got %+v", result.Rejected)
	}
}

func TestReloadConfigNoChangesIsNotRestartRequired(t *testing.T) {
	result := ReloadConfig(nil, nil)
	if result.RestartRequired {
		t.Fatalf("expected no restart required for an empty diff")
	}
}
