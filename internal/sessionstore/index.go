package sessionstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/nextlevelbuilder/drost/pkg/protocol"
)

// readAllIndexEntries reads the index file; a missing file is treated as
// empty. Must be called while holding the index lock.
func (s *Store) readAllIndexEntries() []protocol.SessionIndexEntry {
	f, err := os.Open(s.indexPath())
	if err != nil {
		return nil
	}
	defer f.Close()

	var entries []protocol.SessionIndexEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e protocol.SessionIndexEntry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// readIndexEntry finds one session's index entry, acquiring the index
// lock itself.
func (s *Store) readIndexEntry(sessionID string) (protocol.SessionIndexEntry, bool) {
	var found protocol.SessionIndexEntry
	var ok bool
	_ = withLock(s.indexLockPath(), func() error {
		for _, e := range s.readAllIndexEntries() {
			if e.SessionID == sessionID {
				found, ok = e, true
				return nil
			}
		}
		return nil
	})
	return found, ok
}

// writeIndex atomically rewrites the index file, deduped and sorted by
// sessionId. Must be called while holding the index lock.
func (s *Store) writeIndex(entries []protocol.SessionIndexEntry) error {
	seen := make(map[string]protocol.SessionIndexEntry, len(entries))
	for _, e := range entries {
		seen[e.SessionID] = e
	}
	deduped := make([]protocol.SessionIndexEntry, 0, len(seen))
	for _, e := range seen {
		deduped = append(deduped, e)
	}
	sort.Slice(deduped, func(i, j int) bool { return deduped[i].SessionID < deduped[j].SessionID })

	var buf []byte
	for _, e := range deduped {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("io_error: marshal index entry: %w", err)
		}
		buf = append(buf, data...)
		buf = append(buf, '\n')
	}
	return atomicWrite(s.indexPath(), buf)
}

// updateIndex replaces this session's index entry and rewrites the
// deduped, sorted index under the index lock.
func (s *Store) updateIndex(record protocol.SessionRecord) error {
	entry := protocol.SessionIndexEntry{
		Version:            1,
		Type:               "session_index",
		SessionID:          record.SessionID,
		ActiveProviderID:   record.ActiveProviderID,
		PendingProviderID:  record.PendingProviderID,
		HistoryCount:       len(record.History),
		Revision:           record.Revision,
		UpdatedAt:          record.UpdatedAt,
		CreatedAt:          record.Metadata.CreatedAt,
		LastActivityAt:     record.Metadata.LastActivityAt,
		Title:              record.Metadata.Title,
		Origin:             record.Metadata.Origin,
		ProviderRouteID:    record.Metadata.ProviderRouteID,
		SkillInjectionMode: record.Metadata.SkillInjectionMode,
		TranscriptFile:     encodeSessionID(record.SessionID) + ".jsonl",
		FullFile:           encodeSessionID(record.SessionID) + ".full.jsonl",
	}

	return withLock(s.indexLockPath(), func() error {
		entries := s.readAllIndexEntries()
		replaced := false
		for i, e := range entries {
			if e.SessionID == record.SessionID {
				entries[i] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			entries = append(entries, entry)
		}
		return s.writeIndex(entries)
	})
}

// RebuildIndex reconstructs the index from *.full.jsonl files, used when
// the index is lost or suspected stale.
func (s *Store) RebuildIndex() error {
	matches, err := filesWithSuffix(s.dir, ".full.jsonl")
	if err != nil {
		return fmt.Errorf("io_error: list session directory: %w", err)
	}

	var entries []protocol.SessionIndexEntry
	for _, sessionID := range matches {
		messages, _, err := s.loadFullLogLocked(sessionID)
		if err != nil {
			continue
		}
		created := timeZero()
		if len(messages) > 0 {
			created = messages[0].CreatedAt
		}
		lastActivity := latestMessageTime(messages, created)
		entries = append(entries, protocol.SessionIndexEntry{
			Version:        1,
			Type:           "session_index",
			SessionID:      sessionID,
			HistoryCount:   len(messages),
			CreatedAt:      created,
			LastActivityAt: lastActivity,
			UpdatedAt:      lastActivity,
			TranscriptFile: encodeSessionID(sessionID) + ".jsonl",
			FullFile:       encodeSessionID(sessionID) + ".full.jsonl",
		})
	}

	return withLock(s.indexLockPath(), func() error {
		return s.writeIndex(entries)
	})
}
