package sessionstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWithLockRunsFnAndCleansUpLockFile(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "sess.lock")
	ran := false
	if err := withLock(lockPath, func() error {
		ran = true
		if _, err := os.Stat(lockPath); err != nil {
			t.Fatalf("expected lock file to exist while held: %v", err)
		}
		return nil
	}); err != nil {
		t.Fatalf("withLock: %v", err)
	}
	if !ran {
		t.Fatalf("expected fn to run")
	}
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Fatalf("expected lock file to be removed after release, err=%v", err)
	}
}

func TestWithLockReclaimsStaleLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "sess.lock")
	if err := os.WriteFile(lockPath, []byte("stale"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stale := time.Now().Add(-2 * time.Duration(lockStaleMs) * time.Millisecond)
	if err := os.Chtimes(lockPath, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	ran := false
	if err := withLock(lockPath, func() error { ran = true; return nil }); err != nil {
		t.Fatalf("withLock: %v", err)
	}
	if !ran {
		t.Fatalf("expected the stale lock to be reclaimed")
	}
}

func TestSortedLockPaths(t *testing.T) {
	first, second := sortedLockPaths("b", "a")
	if first != "a" || second != "b" {
		t.Fatalf("got %q, %q", first, second)
	}
	first, second = sortedLockPaths("a", "b")
	if first != "a" || second != "b" {
		t.Fatalf("got %q, %q", first, second)
	}
}
