package sessionstore

import (
	"strings"
	"testing"

	"github.com/nextlevelbuilder/drost/pkg/protocol"
)

func msg(role protocol.MessageRole, content string) protocol.ChatMessage {
	return protocol.ChatMessage{Role: role, Content: content}
}

func TestApplyHistoryBudgetDisabledIsNoop(t *testing.T) {
	history := []protocol.ChatMessage{msg(protocol.RoleUser, "hi")}
	out, report, err := ApplyHistoryBudget(history, HistoryBudget{Enabled: false})
	if err != nil {
		t.Fatalf("ApplyHistoryBudget: %v", err)
	}
	if len(out) != 1 || report.Trimmed {
		t.Fatalf("expected a no-op, got %+v report=%+v", out, report)
	}
}

func TestApplyHistoryBudgetTrimsByMessageCountPreservingLeadingSystem(t *testing.T) {
	history := []protocol.ChatMessage{
		msg(protocol.RoleSystem, "sys"),
		msg(protocol.RoleUser, "one"),
		msg(protocol.RoleAssistant, "two"),
		msg(protocol.RoleUser, "three"),
	}
	out, report, err := ApplyHistoryBudget(history, HistoryBudget{
		Enabled:                true,
		MaxMessages:            2,
		PreserveSystemMessages: true,
	})
	if err != nil {
		t.Fatalf("ApplyHistoryBudget: %v", err)
	}
	if len(out) != 2 || out[0].Role != protocol.RoleSystem || out[1].Content != "three" {
		t.Fatalf("got %+v", out)
	}
	if !report.Trimmed || report.DroppedMessages != 2 {
		t.Fatalf("got report %+v", report)
	}
}

func TestApplyHistoryBudgetTrimsByCharCountFromOldestNonSystem(t *testing.T) {
	history := []protocol.ChatMessage{
		msg(protocol.RoleSystem, "sys"),
		msg(protocol.RoleUser, "aaaaaaaaaa"),
		msg(protocol.RoleAssistant, "b"),
	}
	out, report, err := ApplyHistoryBudget(history, HistoryBudget{
		Enabled:                true,
		MaxChars:               6,
		PreserveSystemMessages: true,
	})
	if err != nil {
		t.Fatalf("ApplyHistoryBudget: %v", err)
	}
	if len(out) != 2 || out[0].Role != protocol.RoleSystem || out[1].Content != "b" {
		t.Fatalf("expected the oldest non-system message dropped first, got %+v", out)
	}
	if report.DroppedCharacters != len("aaaaaaaaaa") {
		t.Fatalf("got report %+v", report)
	}
}

func TestApplyHistoryBudgetAppliesSummarizeBeforeTrimming(t *testing.T) {
	history := []protocol.ChatMessage{
		msg(protocol.RoleUser, "one"),
		msg(protocol.RoleAssistant, "two"),
	}
	summarized := []protocol.ChatMessage{msg(protocol.RoleAssistant, strings.Repeat("s", 5))}
	out, report, err := ApplyHistoryBudget(history, HistoryBudget{
		Enabled: true,
		Summarize: func(in []protocol.ChatMessage) ([]protocol.ChatMessage, error) {
			if len(in) != 2 {
				t.Fatalf("expected summarize to see full history, got %d messages", len(in))
			}
			return summarized, nil
		},
	})
	if err != nil {
		t.Fatalf("ApplyHistoryBudget: %v", err)
	}
	if len(out) != 1 || out[0].Content != strings.Repeat("s", 5) {
		t.Fatalf("got %+v", out)
	}
	if !report.Trimmed {
		t.Fatalf("expected summarization to count as trimmed")
	}
}

func TestApplyHistoryBudgetPropagatesSummarizeError(t *testing.T) {
	boom := errBoomBudget
	_, _, err := ApplyHistoryBudget([]protocol.ChatMessage{msg(protocol.RoleUser, "hi")}, HistoryBudget{
		Enabled: true,
		Summarize: func([]protocol.ChatMessage) ([]protocol.ChatMessage, error) {
			return nil, boom
		},
	})
	if err != boom {
		t.Fatalf("got %v", err)
	}
}

var errBoomBudget = &budgetBoomError{}

type budgetBoomError struct{}

func (*budgetBoomError) Error() string { return "boom" }
