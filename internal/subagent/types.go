// Package subagent implements the Subagent Scheduler: a bounded
// executor that runs delegated turns as background jobs with timeout
// and cancellation, persisting job state so in-flight work survives a
// restart as recovered, re-queued work.
package subagent

import (
	"context"
	"time"
)

// Status enumerates the lifecycle states of a subagent job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusTimedOut  Status = "timed_out"
)

// Job is the durable record of one delegated subagent turn.
type Job struct {
	JobID        string     `json:"jobId"`
	SessionID    string     `json:"sessionId"`
	SubSessionID string     `json:"subSessionId"`
	Status       Status     `json:"status"`
	Input        string     `json:"input"`
	ProviderID   string     `json:"providerId,omitempty"`
	TimeoutMs    int        `json:"timeoutMs"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
	Result       string     `json:"result,omitempty"`
	Error        string     `json:"error,omitempty"`
	Recovered    bool       `json:"recovered,omitempty"`
}

// LockMode constrains effective parallelism for workspace-sensitive jobs.
type LockMode string

const (
	LockModeNone      LockMode = "none"
	LockModeWorkspace LockMode = "workspace"
	LockModeExclusive LockMode = "exclusive"
)

// DelegatedTurn is the request handed to the host's runDelegatedTurn
// callback.
type DelegatedTurn struct {
	JobID        string
	SessionID    string
	SubSessionID string
	Input        string
	ProviderID   string
}

// RunDelegatedTurn executes one subagent turn and returns its final
// response text.
type RunDelegatedTurn func(ctx context.Context, turn DelegatedTurn) (string, error)
