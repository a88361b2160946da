package configwatch

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nextlevelbuilder/drost/internal/config"
	"github.com/nextlevelbuilder/drost/internal/gateway"
)

func writeConfigFile(t *testing.T, path, workspace string, maxRetries int) {
	t.Helper()
	contents := fmt.Sprintf(`{"workspace": %q, "router": {"max_retries": %d}}`, workspace, maxRetries)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestWatcherReloadsOnConfigWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "drost.json5")
	writeConfigFile(t, path, "/srv/one", 3)

	current, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var applied []string
	var results []gateway.ReloadResult
	w, err := New(path, current, func(p string) error {
		applied = append(applied, p)
		return nil
	}, func(r gateway.ReloadResult) {
		results = append(results, r)
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start()
	defer w.Stop()

	writeConfigFile(t, path, "/srv/one", 9)

	waitFor(t, 2*time.Second, func() bool { return len(results) > 0 })

	if current.Router.MaxRetries != 9 {
		t.Fatalf("expected the watcher to merge the new router config, got %d", current.Router.MaxRetries)
	}
	found := false
	for _, p := range applied {
		if p == "providers.router" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected providers.router to be applied, got %v", applied)
	}
}

func TestWatcherIgnoresUnrelatedFilesInDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "drost.json5")
	writeConfigFile(t, path, "/srv/one", 3)

	current, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var resultCount int
	w, err := New(path, current, nil, func(gateway.ReloadResult) { resultCount++ }, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start()
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("noise"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if resultCount != 0 {
		t.Fatalf("expected unrelated file writes to be ignored, got %d reloads", resultCount)
	}
}

func TestWatcherStopIsIdempotentAfterStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "drost.json5")
	writeConfigFile(t, path, "/srv/one", 3)

	current, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	w, err := New(path, current, nil, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start()
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
