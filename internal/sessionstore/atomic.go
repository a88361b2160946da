package sessionstore

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

// atomicWrite writes data to a temp file beside path and renames it over
// path, so readers never observe a partial write. The temp file is
// removed on any failure.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	name := filepath.Base(path)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d-%d", name, os.Getpid(), time.Now().UnixNano(), rand.Int63()))

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("io_error: create temp file: %w", err)
	}
	cleanup := true
	defer func() {
		if cleanup {
			os.Remove(tmpPath)
		}
	}()

	if _, err = f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("io_error: write temp file: %w", err)
	}
	if err = f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("io_error: sync temp file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("io_error: close temp file: %w", err)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("io_error: rename temp file: %w", err)
	}
	cleanup = false
	return nil
}

// appendLines appends pre-encoded JSONL lines to path, creating it if
// absent.
func appendLines(path string, lines []string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("io_error: open for append: %w", err)
	}
	defer f.Close()

	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("io_error: append line: %w", err)
		}
	}
	return f.Sync()
}
