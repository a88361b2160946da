package sessionstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/nextlevelbuilder/drost/pkg/protocol"
)

// loadFullLogLocked parses the full-log file into its message and event
// lines. Must be called while holding the session lock. A malformed file
// is quarantined and ErrNotFound is returned.
func (s *Store) loadFullLogLocked(sessionID string) ([]protocol.ChatMessage, []protocol.SessionEventLine, error) {
	path := s.fullLogPath(sessionID)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("io_error: open full log: %w", err)
	}
	defer f.Close()

	var messages []protocol.ChatMessage
	var events []protocol.SessionEventLine

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(line, &probe); err != nil {
			s.quarantine(sessionID, path)
			return nil, nil, ErrNotFound
		}
		switch probe.Type {
		case "message":
			var m protocol.SessionMessageLine
			if err := json.Unmarshal(line, &m); err != nil {
				s.quarantine(sessionID, path)
				return nil, nil, ErrNotFound
			}
			messages = append(messages, protocol.ChatMessage{
				Role:      m.Role,
				Content:   m.Content,
				CreatedAt: m.CreatedAt,
				ImageRefs: m.ImageRefs,
			})
		case "event":
			var e protocol.SessionEventLine
			if err := json.Unmarshal(line, &e); err != nil {
				s.quarantine(sessionID, path)
				return nil, nil, ErrNotFound
			}
			events = append(events, e)
		default:
			s.quarantine(sessionID, path)
			return nil, nil, ErrNotFound
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("io_error: scan full log: %w", err)
	}
	return messages, events, nil
}

// quarantine moves a corrupt full-log file aside, drops the matching
// transcript, and removes the session's index entry.
func (s *Store) quarantine(sessionID, fullLogPath string) {
	_ = os.Rename(fullLogPath, s.quarantinePath(sessionID))
	_ = os.Remove(s.transcriptPath(sessionID))
	_ = withLock(s.indexLockPath(), func() error {
		entries := s.readAllIndexEntries()
		filtered := entries[:0]
		for _, e := range entries {
			if e.SessionID != sessionID {
				filtered = append(filtered, e)
			}
		}
		return s.writeIndex(filtered)
	})
}

func messageLine(m protocol.ChatMessage) (string, error) {
	line := protocol.SessionMessageLine{
		Version:   1,
		Type:      "message",
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		ImageRefs: m.ImageRefs,
	}
	data, err := json.Marshal(line)
	return string(data), err
}

func eventLine(e protocol.SessionEventLine) (string, error) {
	e.Version = 1
	e.Type = "event"
	data, err := json.Marshal(e)
	return string(data), err
}

func isTranscriptRole(role protocol.MessageRole) bool {
	return role == protocol.RoleUser || role == protocol.RoleAssistant
}

// appendMessages appends newMessages to both the full-log and the
// transcript (filtered to user/assistant), preserving append-only economy
// when the prior history is an exact prefix of the next one.
func (s *Store) appendMessages(sessionID string, newMessages []protocol.ChatMessage) error {
	var fullLines []string
	var transcriptLines []string
	for _, m := range newMessages {
		line, err := messageLine(m)
		if err != nil {
			return fmt.Errorf("io_error: marshal message line: %w", err)
		}
		fullLines = append(fullLines, line)
		if isTranscriptRole(m.Role) {
			transcriptLines = append(transcriptLines, line)
		}
	}
	if err := appendLines(s.fullLogPath(sessionID), fullLines); err != nil {
		return err
	}
	if len(transcriptLines) > 0 {
		if err := appendLines(s.transcriptPath(sessionID), transcriptLines); err != nil {
			return err
		}
	}
	return nil
}

// rewriteMessages atomically rewrites the full-log (event lines first,
// then message lines) and the transcript for the full new history.
func (s *Store) rewriteMessages(sessionID string, history []protocol.ChatMessage, preservedEvents []protocol.SessionEventLine) error {
	var fullBuf []byte
	for _, e := range preservedEvents {
		line, err := eventLine(e)
		if err != nil {
			return fmt.Errorf("io_error: marshal event line: %w", err)
		}
		fullBuf = append(fullBuf, []byte(line+"\n")...)
	}

	var transcriptBuf []byte
	for _, m := range history {
		line, err := messageLine(m)
		if err != nil {
			return fmt.Errorf("io_error: marshal message line: %w", err)
		}
		fullBuf = append(fullBuf, []byte(line+"\n")...)
		if isTranscriptRole(m.Role) {
			transcriptBuf = append(transcriptBuf, []byte(line+"\n")...)
		}
	}

	if err := atomicWrite(s.fullLogPath(sessionID), fullBuf); err != nil {
		return err
	}
	return atomicWrite(s.transcriptPath(sessionID), transcriptBuf)
}
