package restart

import (
	"path/filepath"
	"testing"
)

func noExit(int) {}

func TestRequestRestartDryRunDoesNotExit(t *testing.T) {
	exited := false
	ctl := New(Policy{MaxRestarts: 5, WindowMs: 60_000}, "", nil, nil, nil, nil, func(int) { exited = true })

	result := ctl.RequestRestart(Request{Intent: IntentManual, DryRun: true})
	if !result.OK || result.Code != "allowed" {
		t.Fatalf("got %+v", result)
	}
	if exited {
		t.Fatalf("dry run must not exit the process")
	}
}

func TestRequestRestartExecutesAndExits(t *testing.T) {
	var exitCode int
	flushed := false
	ctl := New(Policy{MaxRestarts: 5, WindowMs: 60_000}, "", nil, nil, nil,
		func() error { flushed = true; return nil },
		func(code int) { exitCode = code })

	result := ctl.RequestRestart(Request{Intent: IntentManual})
	if !result.OK || result.Code != "executing" {
		t.Fatalf("got %+v", result)
	}
	if !flushed {
		t.Fatalf("expected flush to be called before exit")
	}
	if exitCode != RestartExitCode {
		t.Fatalf("expected exit code %d, got %d", RestartExitCode, exitCode)
	}
}

func TestRequestRestartDeniedWithoutApproval(t *testing.T) {
	ctl := New(Policy{RequireApprovalForSelfModify: true}, "", func(Request) bool { return false },
		nil, nil, nil, noExit)

	result := ctl.RequestRestart(Request{Intent: IntentSelfMod})
	if result.OK || result.Code != "approval_denied" {
		t.Fatalf("got %+v", result)
	}
}

func TestRequestRestartBudgetExceeded(t *testing.T) {
	history := filepath.Join(t.TempDir(), "history.json")
	ctl := New(Policy{MaxRestarts: 1, WindowMs: 600_000}, history, nil, nil, nil, nil, noExit)

	first := ctl.RequestRestart(Request{Intent: IntentManual})
	if !first.OK {
		t.Fatalf("expected first restart to be admitted, got %+v", first)
	}

	second := ctl.RequestRestart(Request{Intent: IntentManual})
	if second.OK || second.Code != "budget_exceeded" {
		t.Fatalf("expected second restart within the window to be rejected, got %+v", second)
	}
}

func TestRequestRestartGitCheckpointStrictFailureBlocks(t *testing.T) {
	ctl := New(Policy{GitCheckpointEnabled: true}, "", nil,
		func() (bool, bool, error) { return false, true, nil }, nil, nil, noExit)

	result := ctl.RequestRestart(Request{Intent: IntentManual})
	if result.OK || result.Code != "git_checkpoint_failed" {
		t.Fatalf("got %+v", result)
	}
}
