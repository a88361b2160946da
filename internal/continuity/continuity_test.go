package continuity

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nextlevelbuilder/drost/pkg/protocol"
)

type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]protocol.SessionRecord
	saveErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]protocol.SessionRecord)}
}

func (f *fakeStore) Load(sessionID string) (protocol.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[sessionID], nil
}

func (f *fakeStore) Save(record protocol.SessionRecord) (protocol.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return protocol.SessionRecord{}, f.saveErr
	}
	f.sessions[record.SessionID] = record
	return record, nil
}

func waitForJobStatus(t *testing.T, w *Worker, oldID, newID string, want JobStatus) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s, ok := w.Status(oldID, newID); ok && s == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s->%s did not reach status %s in time", oldID, newID, want)
}

func TestEnqueueAppendsSummaryToTarget(t *testing.T) {
	store := newFakeStore()
	store.sessions["old-1"] = protocol.SessionRecord{
		SessionID: "old-1",
		History: []protocol.ChatMessage{
			{Role: protocol.RoleUser, Content: "help me design a cache"},
			{Role: protocol.RoleAssistant, Content: "use an LRU with a TTL"},
			{Role: protocol.RoleSystem, Content: "system prompt, should be filtered out"},
		},
	}
	store.sessions["new-1"] = protocol.SessionRecord{SessionID: "new-1"}

	w := New(store, Config{})
	w.Enqueue(context.Background(), "old-1", "new-1")
	waitForJobStatus(t, w, "old-1", "new-1", JobCompleted)

	target, _ := store.Load("new-1")
	if len(target.History) != 1 {
		t.Fatalf("expected exactly one appended summary message, got %d", len(target.History))
	}
	msg := target.History[0].Content
	if !strings.Contains(msg, "Session continuity summary from old-1") {
		t.Fatalf("summary missing source attribution: %q", msg)
	}
	if !strings.Contains(msg, "use an LRU with a TTL") {
		t.Fatalf("summary missing assistant decision: %q", msg)
	}
}

func TestEnqueueRecordsFailureOnSaveError(t *testing.T) {
	store := newFakeStore()
	store.sessions["old-2"] = protocol.SessionRecord{SessionID: "old-2"}
	store.sessions["new-2"] = protocol.SessionRecord{SessionID: "new-2"}
	store.saveErr = errBoom

	w := New(store, Config{})
	w.Enqueue(context.Background(), "old-2", "new-2")
	waitForJobStatus(t, w, "old-2", "new-2", JobFailed)
}

func TestCapMessagesTrimsByCountThenChars(t *testing.T) {
	history := []protocol.ChatMessage{
		{Content: "aaaaaaaaaa"},
		{Content: "bbbbbbbbbb"},
		{Content: "cccccccccc"},
	}
	got := capMessages(history, 2, 15)
	if len(got) != 1 || got[0].Content != "cccccccccc" {
		t.Fatalf("got %+v", got)
	}
}

func TestBuildSummaryRespectsMaxChars(t *testing.T) {
	history := []protocol.ChatMessage{
		{Role: protocol.RoleUser, Content: "objective text"},
		{Role: protocol.RoleAssistant, Content: "a decision"},
	}
	summary := buildSummary(history, 20)
	if len(summary) != 20 {
		t.Fatalf("expected summary capped to 20 chars, got %d: %q", len(summary), summary)
	}
}

type boomErr struct{}

func (boomErr) Error() string { return "save failed" }

var errBoom = boomErr{}
