// Package gateway implements the Gateway Runtime Composer: the state
// machine that wires the tool registry, optional modules, subagent
// manager, channel adapters, and control/health servers into one
// running process, and classifies config reloads as safe or
// restart-required.
package gateway

import (
	"context"
	"fmt"
	"sync"
)

// State enumerates the gateway's lifecycle states.
type State string

const (
	StateStopped  State = "stopped"
	StateRunning  State = "running"
	StateDegraded State = "degraded"
	StateStopping State = "stopping"
)

// Module is an optional, preflight-only capability the gateway may wire
// in at startup.
type Module interface {
	Name() string
	Preflight(ctx context.Context) error
}

// ToolEntry is one named tool contributed by built-ins, plugins, or an
// agent's own tool list.
type ToolEntry struct {
	Name   string
	Source string // "builtin", "plugin", "agent"
}

// ChannelAdapter is a connectable messaging channel integration.
type ChannelAdapter interface {
	Name() string
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// StartConfig describes everything Start needs to wire up one run.
type StartConfig struct {
	BuiltinTools  []ToolEntry
	PluginTools   []ToolEntry
	AgentTools    []ToolEntry
	Modules       []Module
	Channels      []ChannelAdapter
	LoadAgentEntry func(ctx context.Context) error
	StartSubagents func(ctx context.Context) error
	BindServers    func(ctx context.Context) (statusURL string, err error)
	Emit           func(eventType string, payload any)
}

// Gateway owns the runtime state machine.
type Gateway struct {
	mu              sync.Mutex
	state           State
	degradedReasons []string
	statusURL       string
	channels        []ChannelAdapter
	cancelActive    []context.CancelFunc
}

// New creates a stopped Gateway.
func New() *Gateway {
	return &Gateway{state: StateStopped}
}

// State returns the current lifecycle state and any degraded reasons.
func (g *Gateway) State() (State, []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state, append([]string{}, g.degradedReasons...)
}

func (g *Gateway) emit(cfg StartConfig, eventType string, payload any) {
	if cfg.Emit != nil {
		cfg.Emit(eventType, payload)
	}
}

func (g *Gateway) degrade(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.degradedReasons = append(g.degradedReasons, reason)
}

// Start runs the startup sequence: tool list union (first-wins on name
// collision), optional modules, subagent manager, agent entry load,
// channel connections, then server binding.
func (g *Gateway) Start(ctx context.Context, cfg StartConfig) error {
	g.emit(cfg, "gateway.starting", nil)

	tools, collisions := unionTools(cfg.BuiltinTools, cfg.PluginTools, cfg.AgentTools)
	for _, c := range collisions {
		g.degrade(fmt.Sprintf("tool name collision: %s (kept %s)", c.Name, c.Source))
	}
	_ = tools

	for _, m := range cfg.Modules {
		if err := m.Preflight(ctx); err != nil {
			g.degrade(fmt.Sprintf("module %s preflight failed: %v", m.Name(), err))
		}
	}

	if cfg.StartSubagents != nil {
		if err := cfg.StartSubagents(ctx); err != nil {
			g.degrade(fmt.Sprintf("subagent manager failed to start: %v", err))
		}
	}

	if cfg.LoadAgentEntry != nil {
		if err := cfg.LoadAgentEntry(ctx); err != nil {
			g.degrade(fmt.Sprintf("agent entry load failed: %v", err))
		}
	}

	g.mu.Lock()
	g.channels = cfg.Channels
	g.mu.Unlock()
	for _, ch := range cfg.Channels {
		if err := ch.Connect(ctx); err != nil {
			g.degrade(fmt.Sprintf("channel %s failed to connect: %v", ch.Name(), err))
		}
	}

	if cfg.BindServers != nil {
		url, err := cfg.BindServers(ctx)
		if err != nil {
			return fmt.Errorf("gateway: bind servers: %w", err)
		}
		g.mu.Lock()
		g.statusURL = url
		g.mu.Unlock()
	}

	g.mu.Lock()
	if len(g.degradedReasons) > 0 {
		g.state = StateDegraded
	} else {
		g.state = StateRunning
	}
	g.mu.Unlock()

	g.emit(cfg, "gateway.started", map[string]any{"statusUrl": g.statusURL})
	return nil
}

// Stop aborts active turns, disconnects channels best-effort, and
// transitions through stopping back to stopped.
func (g *Gateway) Stop(ctx context.Context) {
	g.mu.Lock()
	g.state = StateStopping
	cancels := g.cancelActive
	channels := g.channels
	g.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	for _, ch := range channels {
		_ = ch.Disconnect(ctx)
	}

	g.mu.Lock()
	g.state = StateStopped
	g.mu.Unlock()
}

func unionTools(groups ...[]ToolEntry) ([]ToolEntry, []ToolEntry) {
	seen := make(map[string]ToolEntry)
	var collisions []ToolEntry
	var ordered []ToolEntry
	for _, group := range groups {
		for _, t := range group {
			if existing, ok := seen[t.Name]; ok {
				collisions = append(collisions, existing)
				continue
			}
			seen[t.Name] = t
			ordered = append(ordered, t)
		}
	}
	return ordered, collisions
}
