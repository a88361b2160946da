// Package continuity implements the Continuity Worker: a bounded async
// job that summarizes a source session's history and appends the
// summary into a newly created target session, without ever blocking
// the caller that triggered the new-session request.
package continuity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nextlevelbuilder/drost/pkg/protocol"
)

const (
	defaultSourceMaxMessages = 400
	defaultSourceMaxChars    = 120_000
)

// JobStatus enumerates a continuity job's lifecycle.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// SessionAccessor loads and saves session records for the worker.
type SessionAccessor interface {
	Load(sessionID string) (protocol.SessionRecord, error)
	Save(record protocol.SessionRecord) (protocol.SessionRecord, error)
}

// Config bounds the worker's summarization behavior.
type Config struct {
	MaxParallelJobs   int
	SourceMaxMessages int
	SourceMaxChars    int
	SummaryMaxChars   int
}

// Worker runs continuity jobs on a bounded pool of goroutines.
type Worker struct {
	store Accessor
	cfg   Config
	sem   chan struct{}

	mu   sync.Mutex
	jobs map[string]JobStatus
}

// Accessor is the session store surface the worker depends on.
type Accessor = SessionAccessor

// New creates a continuity Worker.
func New(store Accessor, cfg Config) *Worker {
	if cfg.MaxParallelJobs <= 0 {
		cfg.MaxParallelJobs = 2
	}
	if cfg.SourceMaxMessages <= 0 {
		cfg.SourceMaxMessages = defaultSourceMaxMessages
	}
	if cfg.SourceMaxChars <= 0 {
		cfg.SourceMaxChars = defaultSourceMaxChars
	}
	return &Worker{
		store: store,
		cfg:   cfg,
		sem:   make(chan struct{}, cfg.MaxParallelJobs),
		jobs:  make(map[string]JobStatus),
	}
}

// Enqueue schedules a continuity summary job from oldID into newID and
// returns immediately; failures are recorded but never surfaced to the
// caller that created the new session.
func (w *Worker) Enqueue(ctx context.Context, oldID, newID string) {
	jobKey := oldID + "->" + newID
	w.mu.Lock()
	w.jobs[jobKey] = JobQueued
	w.mu.Unlock()

	go func() {
		w.sem <- struct{}{}
		defer func() { <-w.sem }()

		w.mu.Lock()
		w.jobs[jobKey] = JobRunning
		w.mu.Unlock()

		err := w.run(ctx, oldID, newID)

		w.mu.Lock()
		if err != nil {
			w.jobs[jobKey] = JobFailed
		} else {
			w.jobs[jobKey] = JobCompleted
		}
		w.mu.Unlock()
	}()
}

func (w *Worker) run(ctx context.Context, oldID, newID string) error {
	source, err := w.store.Load(oldID)
	if err != nil {
		return fmt.Errorf("continuity: load source %s: %w", oldID, err)
	}
	target, err := w.store.Load(newID)
	if err != nil {
		return fmt.Errorf("continuity: load target %s: %w", newID, err)
	}

	filtered := filterForContinuity(source.History)
	filtered = capMessages(filtered, w.cfg.SourceMaxMessages, w.cfg.SourceMaxChars)

	summary := buildSummary(filtered, w.cfg.SummaryMaxChars)

	target.History = append(target.History, protocol.ChatMessage{
		Role:      protocol.RoleUser,
		Content:   fmt.Sprintf("[Session continuity summary from %s]\n%s\n[End continuity summary]", oldID, summary),
		CreatedAt: time.Now().UTC(),
	})

	_, err = w.store.Save(target)
	if err != nil {
		return fmt.Errorf("continuity: save target %s: %w", newID, err)
	}
	return nil
}

func filterForContinuity(history []protocol.ChatMessage) []protocol.ChatMessage {
	var out []protocol.ChatMessage
	for _, m := range history {
		if m.Role == protocol.RoleUser || m.Role == protocol.RoleAssistant || m.Role == protocol.RoleTool {
			out = append(out, m)
		}
	}
	return out
}

// capMessages trims from the oldest until both the message count and
// total character budgets are satisfied.
func capMessages(history []protocol.ChatMessage, maxMessages, maxChars int) []protocol.ChatMessage {
	if len(history) > maxMessages {
		history = history[len(history)-maxMessages:]
	}
	total := 0
	for _, m := range history {
		total += len(m.Content)
	}
	for total > maxChars && len(history) > 0 {
		total -= len(history[0].Content)
		history = history[1:]
	}
	return history
}

// buildSummary renders a structured Core Objective / Decisions / Open
// Threads / Timeline Excerpt summary, capped to maxChars.
func buildSummary(history []protocol.ChatMessage, maxChars int) string {
	var b strings.Builder
	b.WriteString("Core Objective:\n")
	if len(history) > 0 {
		b.WriteString(truncate(history[0].Content, 300))
	}
	b.WriteString("\n\nDecisions:\n")
	for _, m := range history {
		if m.Role == protocol.RoleAssistant {
			b.WriteString("- " + truncate(m.Content, 200) + "\n")
		}
	}
	b.WriteString("\nOpen Threads:\n(none recorded)\n\nTimeline Excerpt:\n")
	tail := history
	if len(tail) > 10 {
		tail = tail[len(tail)-10:]
	}
	for _, m := range tail {
		b.WriteString(fmt.Sprintf("[%s] %s\n", m.Role, truncate(m.Content, 150)))
	}

	out := b.String()
	if maxChars > 0 && len(out) > maxChars {
		out = out[:maxChars]
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

// Status returns a job's current status, if known.
func (w *Worker) Status(oldID, newID string) (JobStatus, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.jobs[oldID+"->"+newID]
	return s, ok
}
