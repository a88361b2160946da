package router

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/nextlevelbuilder/drost/internal/providers"
	"github.com/nextlevelbuilder/drost/internal/tracing"
)

// ToolExecutor runs a tool by name against the current tool registry.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, input map[string]interface{}) (output interface{}, err error)
}

const maxToolIterations = 20

// Router resolves provider candidate chains, drives retries with
// class-specific cooldowns, and normalizes tool-call handling across
// native and text-marker dialects.
type Router struct {
	registry *providers.Registry
	policy   Policy
	tracer   *tracing.Provider
	limiter  *providerLimiter

	mu        sync.Mutex
	cooldowns map[string]cooldownEntry
}

// New creates a Router over the given provider registry. Per-provider
// calls are capped at 2 requests/second with a burst of 4 by default;
// use WithRateLimit to override.
func New(registry *providers.Registry, policy Policy) *Router {
	return &Router{
		registry:  registry,
		policy:    policy,
		tracer:    tracing.Noop(),
		limiter:   newProviderLimiter(2, 4),
		cooldowns: make(map[string]cooldownEntry),
	}
}

// WithRateLimit overrides the per-provider outbound call rate.
func (r *Router) WithRateLimit(requestsPerSecond float64, burst int) *Router {
	r.limiter = newProviderLimiter(requestsPerSecond, burst)
	return r
}

// WithTracer attaches a telemetry provider; nil restores the no-op tracer.
func (r *Router) WithTracer(t *tracing.Provider) *Router {
	if t == nil {
		t = tracing.Noop()
	}
	r.tracer = t
	return r
}

// SetPolicy replaces the failover/retry policy in effect for future
// turns, used by config hot-reload.
func (r *Router) SetPolicy(p Policy) {
	r.mu.Lock()
	r.policy = p
	r.mu.Unlock()
}

func (r *Router) currentPolicy() Policy {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.policy
}

// candidates builds the deduplicated, cooldown-partitioned, capped
// candidate chain for a turn.
func (r *Router) candidates(route Route, chainConfig []string, policy Policy) []string {
	seen := make(map[string]bool)
	var ordered []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ordered = append(ordered, id)
	}
	add(route.PrimaryProviderID)
	for _, id := range route.FallbackProviderIDs {
		add(id)
	}
	for _, id := range chainConfig {
		add(id)
	}

	r.mu.Lock()
	var fresh, cooling []string
	now := time.Now()
	for _, id := range ordered {
		if entry, ok := r.cooldowns[id]; ok && entry.until.After(now) {
			cooling = append(cooling, id)
		} else {
			fresh = append(fresh, id)
		}
	}
	r.mu.Unlock()

	merged := append(fresh, cooling...)
	limit := policy.MaxRetries
	if limit < 1 {
		limit = 1
	}
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func (r *Router) setCooldown(providerID string, seconds int) {
	if seconds <= 0 {
		return
	}
	r.mu.Lock()
	r.cooldowns[providerID] = cooldownEntry{until: time.Now().Add(time.Duration(seconds) * time.Second)}
	r.mu.Unlock()
}

// RunTurn drives one turn across the candidate chain, running the
// tool-call loop against whichever candidate succeeds first.
func (r *Router) RunTurn(ctx context.Context, route Route, chainConfig []string, req providers.ChatRequest, tools ToolExecutor, emit func(StreamEvent)) (*providers.ChatResponse, error) {
	policy := r.currentPolicy()
	chain := r.candidates(route, chainConfig, policy)
	if len(chain) == 0 {
		return nil, fmt.Errorf("router: no candidate providers available")
	}

	var lastErr error
	for attempt, providerID := range chain {
		provider := r.registry.Get(providerID)
		if provider == nil {
			lastErr = fmt.Errorf("router: unknown provider %q", providerID)
			continue
		}

		if err := r.limiter.wait(ctx, providerID); err != nil {
			return nil, err
		}

		spanCtx, span := r.tracer.StartTurnSpan(ctx, providerID, req.Model, attempt+1)
		resp, err := r.runToolLoop(spanCtx, provider, providerID, req, tools, emit)
		if err == nil {
			span.End()
			if emit != nil {
				emit(StreamEvent{Type: EventResponseComplete, ProviderID: providerID})
			}
			return resp, nil
		}

		class, cooldownSeconds, retryable := classify(err, policy)
		tracing.RecordFailure(span, string(class), cooldownSeconds)
		span.End()
		r.setCooldown(providerID, cooldownSeconds)
		if emit != nil {
			emit(StreamEvent{
				Type:       EventProviderError,
				ProviderID: providerID,
				Error:      &ErrorInfo{Class: class, Message: err.Error(), Attempt: attempt + 1},
			})
		}

		lastErr = err
		if !policy.FailoverEnabled || !retryable || class == ClassFatalRequest {
			return nil, err
		}

		delay := time.Duration(float64(policy.RetryDelayMs)*math.Pow(policy.BackoffMultiplier, float64(attempt))) * time.Millisecond
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// runToolLoop executes the iterative assistant/tool-call cycle against a
// single resolved provider, handling both native tool calls and the
// TOOL_CALL text-marker fallback.
func (r *Router) runToolLoop(ctx context.Context, provider providers.Provider, providerID string, req providers.ChatRequest, tools ToolExecutor, emit func(StreamEvent)) (*providers.ChatResponse, error) {
	workReq := req
	if len(req.Tools) > 0 {
		workReq.Messages = append([]providers.Message{
			{Role: "system", Content: toolPreamble(req.Tools)},
		}, req.Messages...)
	}

	accumulated := ""
	onChunk := func(chunk providers.StreamChunk) {
		if chunk.Content == "" {
			return
		}
		accumulated = mergeStreamText(accumulated, chunk.Content)
		if emit != nil {
			emit(StreamEvent{Type: EventResponseDelta, ProviderID: providerID, Text: accumulated})
		}
	}

	for i := 0; i < maxToolIterations; i++ {
		resp, err := provider.ChatStream(ctx, workReq, onChunk)
		if err != nil {
			return nil, err
		}
		if resp.Usage != nil && emit != nil {
			emit(StreamEvent{Type: EventUsageUpdated, ProviderID: providerID, Usage: resp.Usage})
		}

		if len(resp.ToolCalls) > 0 {
			workReq.Messages = append(workReq.Messages, providers.Message{
				Role:      "assistant",
				Content:   resp.Content,
				ToolCalls: resp.ToolCalls,
			})
			for _, tc := range resp.ToolCalls {
				msg := r.executeTool(ctx, tools, tc.ID, tc.Name, tc.Arguments)
				workReq.Messages = append(workReq.Messages, msg)
			}
			continue
		}

		if call, ok := parseTextToolCall(resp.Content); ok {
			workReq.Messages = append(workReq.Messages, providers.Message{Role: "assistant", Content: resp.Content})
			msg := r.executeTool(ctx, tools, "", call.Name, call.Input)
			workReq.Messages = append(workReq.Messages, msg)
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("router: exceeded %d tool-call iterations", maxToolIterations)
}

func (r *Router) executeTool(ctx context.Context, tools ToolExecutor, callID, name string, input map[string]interface{}) providers.Message {
	if tools == nil {
		return encodeToolResultMessage(callID, name, false, nil, "no tool registry configured")
	}
	output, err := tools.Execute(ctx, name, input)
	if err != nil {
		return encodeToolResultMessage(callID, name, false, nil, err.Error())
	}
	return encodeToolResultMessage(callID, name, true, output, "")
}
