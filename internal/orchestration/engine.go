package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Engine owns one lane per sessionId and optionally persists lane state
// so it can be rehydrated after a restart.
type Engine struct {
	defaultCfg LaneConfig
	persistPath string

	mu    sync.Mutex
	lanes map[string]*lane

	onEvent func(Event)
}

// New creates an Engine. If persistPath is non-empty, lane state is
// written to it atomically on every transition.
func New(defaultCfg LaneConfig, persistPath string, onEvent func(Event)) *Engine {
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	return &Engine{
		defaultCfg:  defaultCfg,
		persistPath: persistPath,
		lanes:       make(map[string]*lane),
		onEvent:     onEvent,
	}
}

// Submit admits a turn into its session's lane, creating the lane with
// the engine's default config on first use.
func (e *Engine) Submit(ctx context.Context, in TurnInput) {
	l := e.laneFor(in.SessionID)
	l.submit(ctx, in)
	e.persist()
}

func (e *Engine) laneFor(sessionID string) *lane {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l, ok := e.lanes[sessionID]; ok {
		return l
	}
	l := newLane(e.defaultCfg, func(ev Event) {
		e.onEvent(ev)
		e.persist()
	})
	e.lanes[sessionID] = l
	return l
}

type laneSnapshot struct {
	SessionID    string   `json:"sessionId"`
	Mode         Mode     `json:"mode"`
	ActiveInput  string   `json:"activeInput,omitempty"`
	QueuedInputs []string `json:"queuedInputs"`
}

type persistedState struct {
	Version int            `json:"version"`
	Lanes   []laneSnapshot `json:"lanes"`
}

// persist writes the current lane state atomically. Errors are swallowed
// because orchestration must never block a turn on disk I/O failures.
func (e *Engine) persist() {
	if e.persistPath == "" {
		return
	}

	e.mu.Lock()
	state := persistedState{Version: 1}
	for sid, l := range e.lanes {
		state.Lanes = append(state.Lanes, l.snapshot(sid))
	}
	e.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return
	}
	_ = atomicWriteFile(e.persistPath, data)
}

// Rehydrate loads persisted lane state and re-submits queued entries in
// order via runFn, which should resolve content back into a runnable
// TurnInput for the given sessionId.
func (e *Engine) Rehydrate(ctx context.Context, runFn func(sessionID, content string) TurnInput) error {
	if e.persistPath == "" {
		return nil
	}
	data, err := os.ReadFile(e.persistPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("io_error: read orchestration state: %w", err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("io_error: parse orchestration state: %w", err)
	}

	for _, snap := range state.Lanes {
		if snap.ActiveInput != "" {
			e.Submit(ctx, runFn(snap.SessionID, snap.ActiveInput))
		}
		for _, content := range snap.QueuedInputs {
			e.Submit(ctx, runFn(snap.SessionID, content))
		}
	}
	return nil
}

func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), time.Now().UnixNano(), rand.Int63()))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
