// Package router implements the Provider Router & Failover component: it
// resolves an ordered candidate chain of provider adapters for a turn,
// drives retries with class-specific cooldowns, merges streamed text
// deltas, and normalizes tool calls (native or text-marker) into a single
// tool-role message shape.
package router

import (
	"time"

	"github.com/nextlevelbuilder/drost/internal/providers"
)

// FailureClass classifies a provider adapter failure for cooldown and
// retry purposes.
type FailureClass string

const (
	ClassAuth         FailureClass = "auth"
	ClassPermission   FailureClass = "permission"
	ClassRateLimit    FailureClass = "rate_limit"
	ClassServerError  FailureClass = "server_error"
	ClassFatalRequest FailureClass = "fatal_request"
	ClassTimeout      FailureClass = "timeout"
	ClassNetwork      FailureClass = "network"
)

// Policy carries the tunables for cooldowns, retry backoff, and the
// candidate chain cap.
type Policy struct {
	MaxRetries                 int
	RetryDelayMs               int
	BackoffMultiplier          float64
	FailoverEnabled            bool
	AuthCooldownSeconds        int
	RateLimitCooldownSeconds   int
	ServerErrorCooldownSeconds int
}

// DefaultPolicy returns the router's built-in tunables, grounded on the
// cooldown defaults named in the turn-failover design.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:                 3,
		RetryDelayMs:               500,
		BackoffMultiplier:          2.0,
		FailoverEnabled:            true,
		AuthCooldownSeconds:        900,
		RateLimitCooldownSeconds:   60,
		ServerErrorCooldownSeconds: 15,
	}
}

// Route describes the per-turn routing request.
type Route struct {
	PrimaryProviderID  string
	FallbackProviderIDs []string
}

// StreamEventType mirrors the normalized event kinds the Router emits.
type StreamEventType string

const (
	EventResponseDelta    StreamEventType = "response.delta"
	EventResponseComplete StreamEventType = "response.completed"
	EventUsageUpdated     StreamEventType = "usage.updated"
	EventProviderError    StreamEventType = "provider.error"
)

// StreamEvent is the normalized event the Router hands to its caller.
type StreamEvent struct {
	Type       StreamEventType
	ProviderID string
	Text       string
	Usage      *providers.Usage
	Error      *ErrorInfo
}

// ErrorInfo carries a classified provider failure for a provider.error event.
type ErrorInfo struct {
	Class   FailureClass
	Message string
	Attempt int
}

// cooldownEntry tracks when a provider becomes eligible again.
type cooldownEntry struct {
	until time.Time
}
