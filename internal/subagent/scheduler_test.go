package subagent

import (
	"context"
	"testing"
	"time"
)

func waitForStatus(t *testing.T, s *Scheduler, jobID string, want Status) *Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, j := range s.List("", 0) {
			if j.JobID == jobID && j.Status == want {
				return j
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach status %s in time", jobID, want)
	return nil
}

func TestSchedulerCompletesJob(t *testing.T) {
	s := New(t.TempDir(), 2, LockModeNone, func(ctx context.Context, turn DelegatedTurn) (string, error) {
		return "ok: " + turn.Input, nil
	})

	job, err := s.Start(context.Background(), "session-1", "hello", "anthropic", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := waitForStatus(t, s, job.JobID, StatusCompleted)
	if done.Result != "ok: hello" {
		t.Fatalf("got result %q", done.Result)
	}
}

func TestSchedulerRecordsFailure(t *testing.T) {
	s := New(t.TempDir(), 2, LockModeNone, func(ctx context.Context, turn DelegatedTurn) (string, error) {
		return "", errBoom
	})

	job, err := s.Start(context.Background(), "session-1", "hello", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := waitForStatus(t, s, job.JobID, StatusFailed)
	if done.Error != errBoom.Error() {
		t.Fatalf("got error %q", done.Error)
	}
}

func TestSchedulerWorkspaceLockClampsParallelism(t *testing.T) {
	s := New(t.TempDir(), 8, LockModeWorkspace, func(ctx context.Context, turn DelegatedTurn) (string, error) {
		return "", nil
	})
	if cap(s.sem) != 1 {
		t.Fatalf("expected workspace lock mode to clamp parallelism to 1, got %d", cap(s.sem))
	}
}

func TestSchedulerListFiltersBySession(t *testing.T) {
	s := New(t.TempDir(), 2, LockModeNone, func(ctx context.Context, turn DelegatedTurn) (string, error) {
		return "done", nil
	})
	j1, _ := s.Start(context.Background(), "session-a", "x", "", 0)
	_, _ = s.Start(context.Background(), "session-b", "y", "", 0)

	waitForStatus(t, s, j1.JobID, StatusCompleted)

	got := s.List("session-a", 0)
	if len(got) != 1 || got[0].SessionID != "session-a" {
		t.Fatalf("expected one job for session-a, got %+v", got)
	}
}

var errBoom = boomError{}

type boomError struct{}

func (boomError) Error() string { return "boom" }
