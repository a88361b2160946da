// Package sessionstore implements the Durable Session Store: crash-safe
// JSONL transcripts and full-logs with multi-process file locking,
// atomic writes, a rebuildable directory index, and self-healing
// quarantine of corrupt records.
package sessionstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/nextlevelbuilder/drost/pkg/protocol"
)

// ErrNotFound is returned when a session record does not exist.
var ErrNotFound = errors.New("not_found")

// ErrInvalidSession is returned when a session id fails basic validation.
var ErrInvalidSession = errors.New("invalid_session")

// Store is the durable, crash-safe session store rooted at dir.
type Store struct {
	dir string
}

// Open creates a Store rooted at dir, creating the directory and its
// quarantine/archive subdirectories if absent.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("io_error: create session directory: %w", err)
	}
	s := &Store{dir: dir}
	if err := os.MkdirAll(s.corruptDir(), 0o755); err != nil {
		return nil, fmt.Errorf("io_error: create quarantine directory: %w", err)
	}
	if err := os.MkdirAll(s.archiveDir(), 0o755); err != nil {
		return nil, fmt.Errorf("io_error: create archive directory: %w", err)
	}
	return s, nil
}

func validateSessionID(id string) error {
	if id == "" || strings.ContainsAny(id, "\x00") {
		return ErrInvalidSession
	}
	return nil
}

// Save persists next as the new state of the session, computing the next
// revision, choosing append-vs-rewrite for file economy, and updating the
// directory index — all under the session's advisory lock.
func (s *Store) Save(next protocol.SessionRecord) (protocol.SessionRecord, error) {
	if err := validateSessionID(next.SessionID); err != nil {
		return protocol.SessionRecord{}, err
	}

	var saved protocol.SessionRecord
	err := withLock(s.lockPath(next.SessionID), func() error {
		prevMessages, prevEvents, loadErr := s.loadFullLogLocked(next.SessionID)
		if loadErr != nil && !errors.Is(loadErr, ErrNotFound) {
			return loadErr
		}

		var prevRevision int64
		if entry, ok := s.readIndexEntry(next.SessionID); ok {
			prevRevision = entry.Revision
			if next.Metadata.CreatedAt.IsZero() {
				next.Metadata.CreatedAt = entry.CreatedAt
			}
		}
		if next.Metadata.CreatedAt.IsZero() {
			next.Metadata.CreatedAt = time.Now().UTC()
		}

		next.Metadata.LastActivityAt = latestMessageTime(next.History, time.Now().UTC())
		next.Revision = prevRevision + 1
		next.UpdatedAt = time.Now().UTC()

		if isPrefix(prevMessages, next.History) {
			suffix := next.History[len(prevMessages):]
			if err := s.appendMessages(next.SessionID, suffix); err != nil {
				return err
			}
		} else {
			if err := s.rewriteMessages(next.SessionID, next.History, prevEvents); err != nil {
				return err
			}
		}

		if err := s.updateIndex(next); err != nil {
			return err
		}

		saved = next
		return nil
	})
	if err != nil {
		return protocol.SessionRecord{}, err
	}
	return saved, nil
}

// AppendEvent appends an event line to the session's full-log only (not
// the transcript), under the session lock.
func (s *Store) AppendEvent(sessionID, eventType string, payload any) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}
	line := protocol.SessionEventLine{
		Version:   1,
		Type:      "event",
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("io_error: marshal event line: %w", err)
	}
	return withLock(s.lockPath(sessionID), func() error {
		return appendLines(s.fullLogPath(sessionID), []string{string(data)})
	})
}

// Load reconstructs a session record from its full-log file. A corrupt
// file is quarantined and ErrNotFound is returned.
func (s *Store) Load(sessionID string) (protocol.SessionRecord, error) {
	if err := validateSessionID(sessionID); err != nil {
		return protocol.SessionRecord{}, err
	}

	var record protocol.SessionRecord
	err := withLock(s.lockPath(sessionID), func() error {
		messages, _, err := s.loadFullLogLocked(sessionID)
		if err != nil {
			return err
		}
		entry, ok := s.readIndexEntry(sessionID)
		if !ok {
			return ErrNotFound
		}
		record = protocol.SessionRecord{
			SessionID:         sessionID,
			ActiveProviderID:  entry.ActiveProviderID,
			PendingProviderID: entry.PendingProviderID,
			History:           messages,
			Revision:          entry.Revision,
			UpdatedAt:         entry.UpdatedAt,
			Metadata: protocol.SessionMetadata{
				CreatedAt:          entry.CreatedAt,
				LastActivityAt:     entry.LastActivityAt,
				Title:              entry.Title,
				Origin:             entry.Origin,
				ProviderRouteID:    entry.ProviderRouteID,
				SkillInjectionMode: entry.SkillInjectionMode,
			},
		}
		return nil
	})
	if err != nil {
		return protocol.SessionRecord{}, err
	}
	return record, nil
}

// Delete removes a session's transcript, full-log, and index entry.
func (s *Store) Delete(sessionID string) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}
	return withLock(s.lockPath(sessionID), func() error {
		_ = os.Remove(s.transcriptPath(sessionID))
		_ = os.Remove(s.fullLogPath(sessionID))
		return withLock(s.indexLockPath(), func() error {
			entries := s.readAllIndexEntries()
			filtered := entries[:0]
			for _, e := range entries {
				if e.SessionID != sessionID {
					filtered = append(filtered, e)
				}
			}
			return s.writeIndex(filtered)
		})
	})
}

// List returns all index entries, sorted by sessionId.
func (s *Store) List() []protocol.SessionIndexEntry {
	var entries []protocol.SessionIndexEntry
	_ = withLock(s.indexLockPath(), func() error {
		entries = s.readAllIndexEntries()
		return nil
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].SessionID < entries[j].SessionID })
	return entries
}

func latestMessageTime(history []protocol.ChatMessage, fallback time.Time) time.Time {
	latest := fallback
	for _, m := range history {
		if m.CreatedAt.After(latest) {
			latest = m.CreatedAt
		}
	}
	return latest
}

func isPrefix(prev, next []protocol.ChatMessage) bool {
	if len(prev) > len(next) {
		return false
	}
	for i, m := range prev {
		if !messagesEqual(m, next[i]) {
			return false
		}
	}
	return true
}

func messagesEqual(a, b protocol.ChatMessage) bool {
	return a.Role == b.Role && a.Content == b.Content && a.CreatedAt.Equal(b.CreatedAt)
}
