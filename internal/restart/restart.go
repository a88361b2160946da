// Package restart implements the Restart & Evolution Controller: a
// gated pipeline that exits the process with code 42 to signal a
// supervising process to respawn the gateway, subject to approval and
// budget-window checks.
package restart

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"
)

// RestartExitCode is the distinguished exit code a supervising CLI
// watches for to trigger a respawn.
const RestartExitCode = 42

// Intent classifies why a restart is being requested.
type Intent string

const (
	IntentManual       Intent = "manual"
	IntentSelfMod      Intent = "self_mod"
	IntentConfigChange Intent = "config_change"
	IntentSignal       Intent = "signal"
)

// Request is the input to RequestRestart.
type Request struct {
	Intent     Intent
	Reason     string
	SessionID  string
	ProviderID string
	DryRun     bool
}

// Result is the outcome of a restart request.
type Result struct {
	OK   bool
	Code string
}

// HistoryEntry is one append-only restart-history record used by the
// budget window.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Intent    Intent    `json:"intent"`
}

// ApprovalHook is consulted before a self_mod restart when approval is
// required; it returns true if the restart is approved.
type ApprovalHook func(req Request) bool

// CheckpointFunc performs a git safety checkpoint before a restart
// executes; ok=false with strict=true blocks the restart.
type CheckpointFunc func() (ok bool, strict bool, err error)

// EmitFunc publishes a restart lifecycle event to the runtime bus.
type EmitFunc func(eventType string, payload any)

// FlushFunc flushes the session store before the process exits.
type FlushFunc func() error

// ExitFunc is the injected process-exit primitive, swapped out in tests.
type ExitFunc func(code int)

// Policy configures the controller's approval/budget/checkpoint gates.
type Policy struct {
	RequireApprovalForSelfModify bool
	MaxRestarts                  int
	WindowMs                     int
	GitCheckpointEnabled         bool
	GitCheckpointStrict          bool
}

// Controller drives the restart pipeline.
type Controller struct {
	policy     Policy
	historyPath string
	approval   ApprovalHook
	checkpoint CheckpointFunc
	emit       EmitFunc
	flush      FlushFunc
	exit       ExitFunc

	mu      sync.Mutex
	history []HistoryEntry
}

// New creates a restart Controller, loading any persisted history.
func New(policy Policy, historyPath string, approval ApprovalHook, checkpoint CheckpointFunc, emit EmitFunc, flush FlushFunc, exit ExitFunc) *Controller {
	if emit == nil {
		emit = func(string, any) {}
	}
	if exit == nil {
		exit = os.Exit
	}
	c := &Controller{
		policy:      policy,
		historyPath: historyPath,
		approval:    approval,
		checkpoint:  checkpoint,
		emit:        emit,
		flush:       flush,
		exit:        exit,
	}
	c.loadHistory()
	return c
}

func (c *Controller) loadHistory() {
	if c.historyPath == "" {
		return
	}
	data, err := os.ReadFile(c.historyPath)
	if err != nil {
		return
	}
	_ = json.Unmarshal(data, &c.history)
}

func (c *Controller) persistHistoryLocked() error {
	if c.historyPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(c.history, "", "  ")
	if err != nil {
		return fmt.Errorf("io_error: marshal restart history: %w", err)
	}
	tmp := c.historyPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("io_error: write restart history: %w", err)
	}
	return os.Rename(tmp, c.historyPath)
}

// RequestRestart drives the gated pipeline described in the Restart &
// Evolution Controller design, in order: approval, budget, git
// checkpoint, dry-run short-circuit, then execute-and-exit.
func (c *Controller) RequestRestart(req Request) Result {
	c.emit("gateway.restart.requested", req)

	if req.Intent == IntentSelfMod && c.policy.RequireApprovalForSelfModify {
		if c.approval != nil && !c.approval(req) {
			return Result{OK: false, Code: "approval_denied"}
		}
	}

	c.mu.Lock()
	cutoff := time.Now().Add(-time.Duration(c.policy.WindowMs) * time.Millisecond)
	count := 0
	for _, h := range c.history {
		if h.Intent == req.Intent && h.Timestamp.After(cutoff) {
			count++
		}
	}
	exceeded := c.policy.MaxRestarts > 0 && count+1 > c.policy.MaxRestarts
	c.mu.Unlock()
	if exceeded {
		return Result{OK: false, Code: "budget_exceeded"}
	}

	if c.policy.GitCheckpointEnabled && c.checkpoint != nil {
		ok, strict, _ := c.checkpoint()
		if !ok && strict {
			return Result{OK: false, Code: "git_checkpoint_failed"}
		}
	}

	c.emit("gateway.restart.validated", req)
	if req.DryRun {
		return Result{OK: true, Code: "allowed"}
	}

	c.emit("gateway.restart.executing", req)
	if c.flush != nil {
		_ = c.flush()
	}

	c.mu.Lock()
	c.history = append(c.history, HistoryEntry{Timestamp: time.Now().UTC(), Intent: req.Intent})
	_ = c.persistHistoryLocked()
	c.mu.Unlock()

	c.exit(RestartExitCode)
	return Result{OK: true, Code: "executing"}
}

// GitCheckpoint shells out to git to stage and commit a safety
// checkpoint before a restart, mirroring the gateway's shell-out
// preference for external tooling.
func GitCheckpoint(workdir, message string) (ok bool, strict bool, err error) {
	addCmd := exec.Command("git", "add", "-A")
	addCmd.Dir = workdir
	if err := addCmd.Run(); err != nil {
		return false, true, fmt.Errorf("git add failed: %w", err)
	}

	commitCmd := exec.Command("git", "commit", "-m", message, "--allow-empty")
	commitCmd.Dir = workdir
	if err := commitCmd.Run(); err != nil {
		return false, true, fmt.Errorf("git commit failed: %w", err)
	}
	return true, true, nil
}
