package subagent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultMaxParallelJobs = 2
const logTailLimit = 500

// Scheduler is a bounded executor for delegated subagent turns.
type Scheduler struct {
	workspace  string
	run        RunDelegatedTurn
	maxParallel int

	mu       sync.Mutex
	jobs     map[string]*Job
	sem      chan struct{}
	cancels  map[string]context.CancelFunc
	timedOut map[string]bool
}

// New creates a Scheduler rooted at workspace. lockMode clamps effective
// parallelism to 1 for workspace/exclusive modes.
func New(workspace string, maxParallelJobs int, lockMode LockMode, run RunDelegatedTurn) *Scheduler {
	if maxParallelJobs <= 0 {
		maxParallelJobs = defaultMaxParallelJobs
	}
	if lockMode == LockModeWorkspace || lockMode == LockModeExclusive {
		maxParallelJobs = 1
	}
	return &Scheduler{
		workspace:   workspace,
		run:         run,
		maxParallel: maxParallelJobs,
		jobs:        make(map[string]*Job),
		sem:         make(chan struct{}, maxParallelJobs),
		cancels:     make(map[string]context.CancelFunc),
		timedOut:    make(map[string]bool),
	}
}

func (s *Scheduler) jobsDir() string {
	return filepath.Join(s.workspace, ".drost", "subagents", "jobs")
}

func (s *Scheduler) logsDir() string {
	return filepath.Join(s.workspace, ".drost", "subagents", "logs")
}

func (s *Scheduler) jobPath(jobID string) string {
	return filepath.Join(s.jobsDir(), url.PathEscape(jobID)+".json")
}

func (s *Scheduler) logPath(jobID string) string {
	return filepath.Join(s.logsDir(), url.PathEscape(jobID)+".jsonl")
}

// Start queues a new job and begins draining the queue up to the
// scheduler's effective parallelism.
func (s *Scheduler) Start(ctx context.Context, sessionID, input, providerID string, timeoutMs int) (*Job, error) {
	jobID := uuid.NewString()
	job := &Job{
		JobID:        jobID,
		SessionID:    sessionID,
		SubSessionID: fmt.Sprintf("%s:subagent:%s", sessionID, jobID),
		Status:       StatusQueued,
		Input:        input,
		ProviderID:   providerID,
		TimeoutMs:    timeoutMs,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.persistJob(job); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.jobs[jobID] = job
	s.mu.Unlock()

	go s.drain(ctx, jobID)
	return job, nil
}

func (s *Scheduler) drain(ctx context.Context, jobID string) {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()
	s.executeJob(ctx, jobID)
}

func (s *Scheduler) executeJob(ctx context.Context, jobID string) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	s.mu.Unlock()
	if !ok {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	if job.TimeoutMs > 0 {
		timer := time.AfterFunc(time.Duration(job.TimeoutMs)*time.Millisecond, func() {
			s.mu.Lock()
			s.timedOut[jobID] = true
			s.mu.Unlock()
			cancel()
		})
		defer timer.Stop()
	}

	s.mu.Lock()
	s.cancels[jobID] = cancel
	s.mu.Unlock()

	now := time.Now().UTC()
	job.Status = StatusRunning
	job.StartedAt = &now
	job.UpdatedAt = now
	_ = s.persistJob(job)
	s.appendLog(jobID, "started", nil)

	result, err := s.run(runCtx, DelegatedTurn{
		JobID:        job.JobID,
		SessionID:    job.SessionID,
		SubSessionID: job.SubSessionID,
		Input:        job.Input,
		ProviderID:   job.ProviderID,
	})

	finished := time.Now().UTC()
	job.FinishedAt = &finished
	job.UpdatedAt = finished

	s.mu.Lock()
	timedOut := s.timedOut[jobID]
	delete(s.timedOut, jobID)
	delete(s.cancels, jobID)
	s.mu.Unlock()

	switch {
	case err == nil:
		job.Status = StatusCompleted
		job.Result = result
		s.appendLog(jobID, "completed", map[string]any{"result": result})
	case timedOut:
		job.Status = StatusTimedOut
		job.Error = "timed_out"
		s.appendLog(jobID, "timed_out", nil)
	case runCtx.Err() == context.Canceled:
		job.Status = StatusCancelled
		job.Error = "cancelled"
		s.appendLog(jobID, "cancelled", nil)
	default:
		job.Status = StatusFailed
		job.Error = err.Error()
		s.appendLog(jobID, "failed", map[string]any{"error": err.Error()})
	}
	_ = s.persistJob(job)
}

// Cancel requests cancellation of a running job.
func (s *Scheduler) Cancel(jobID string) error {
	s.mu.Lock()
	cancel, ok := s.cancels[jobID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("subagent: job %s not running", jobID)
	}
	cancel()
	return nil
}

// List returns jobs, optionally filtered by sessionID.
func (s *Scheduler) List(sessionID string, limit int) []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Job
	for _, j := range s.jobs {
		if sessionID != "" && j.SessionID != sessionID {
			continue
		}
		out = append(out, j)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Scheduler) persistJob(job *Job) error {
	if err := os.MkdirAll(s.jobsDir(), 0o755); err != nil {
		return fmt.Errorf("io_error: create jobs directory: %w", err)
	}
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("io_error: marshal job: %w", err)
	}
	tmp := s.jobPath(job.JobID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("io_error: write job: %w", err)
	}
	return os.Rename(tmp, s.jobPath(job.JobID))
}

func (s *Scheduler) appendLog(jobID, event string, payload any) {
	_ = os.MkdirAll(s.logsDir(), 0o755)
	f, err := os.OpenFile(s.logPath(jobID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	line := map[string]any{"event": event, "at": time.Now().UTC(), "payload": payload}
	data, err := json.Marshal(line)
	if err != nil {
		return
	}
	_, _ = f.Write(append(data, '\n'))
}

// Logs returns the tail-limited log lines for a job.
func (s *Scheduler) Logs(jobID string) ([]string, error) {
	data, err := os.ReadFile(s.logPath(jobID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("io_error: read job log: %w", err)
	}
	lines := splitLines(string(data))
	if len(lines) > logTailLimit {
		lines = lines[len(lines)-logTailLimit:]
	}
	return lines, nil
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// Recover re-admits any job persisted as queued or running as queued
// with Recovered=true, called on startup before draining resumes.
func (s *Scheduler) Recover() error {
	entries, err := os.ReadDir(s.jobsDir())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("io_error: list jobs directory: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.jobsDir(), e.Name()))
		if err != nil {
			continue
		}
		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			continue
		}
		if job.Status == StatusQueued || job.Status == StatusRunning {
			job.Status = StatusQueued
			job.Recovered = true
			job.UpdatedAt = time.Now().UTC()
			_ = s.persistJob(&job)
			s.mu.Lock()
			s.jobs[job.JobID] = &job
			s.mu.Unlock()
		}
	}
	return nil
}
