// Package orchestration implements the Session Orchestration Engine: one
// lane per sessionId arbitrating concurrent turn submissions under a
// configurable mode (queue, interrupt, collect, steer, steer_backlog).
package orchestration

import (
	"context"
	"time"
)

// Mode selects a lane's admission policy.
type Mode string

const (
	ModeQueue         Mode = "queue"
	ModeInterrupt     Mode = "interrupt"
	ModeCollect       Mode = "collect"
	ModeSteer         Mode = "steer"
	ModeSteerBacklog  Mode = "steer_backlog"
)

// DropPolicy governs what happens when a bounded queue lane overflows.
type DropPolicy string

const (
	DropOld       DropPolicy = "old"
	DropNew       DropPolicy = "new"
	DropSummarize DropPolicy = "summarize"
)

// TurnInput is one submitted unit of work for a session's lane.
type TurnInput struct {
	ID        string
	SessionID string
	Content   string
	Run       func(ctx context.Context, content string) error
	Submitted time.Time
}

// EventType enumerates the lane lifecycle events emitted to a runtime bus.
type EventType string

const (
	EventSubmitted EventType = "orchestration.submitted"
	EventStarted   EventType = "orchestration.started"
	EventCompleted EventType = "orchestration.completed"
	EventDropped   EventType = "orchestration.dropped"
	EventAbandoned EventType = "orchestration.abandoned"
)

// Event is one lane lifecycle notification.
type Event struct {
	Type      EventType
	SessionID string
	TurnID    string
	Reason    string
	At        time.Time
}

// LaneConfig configures one session's lane.
type LaneConfig struct {
	Mode               Mode
	DefaultCap         int
	DropPolicy         DropPolicy
	CollectDebounceMs  int
}
