package sessionstore

import "github.com/nextlevelbuilder/drost/pkg/protocol"

// HistoryBudget bounds a session's retained history by message count and
// total character count.
type HistoryBudget struct {
	Enabled                bool
	MaxMessages            int
	MaxChars               int
	PreserveSystemMessages bool
	Summarize              func([]protocol.ChatMessage) ([]protocol.ChatMessage, error)
}

// BudgetReport describes what ApplyHistoryBudget trimmed.
type BudgetReport struct {
	Trimmed           bool
	DroppedMessages   int
	DroppedCharacters int
}

// ApplyHistoryBudget trims history per the configured budget: summarize
// first if configured, then trim by message count (retaining a leading
// run of system messages when PreserveSystemMessages), then trim by
// character count removing from the oldest non-system message forward.
func ApplyHistoryBudget(history []protocol.ChatMessage, budget HistoryBudget) ([]protocol.ChatMessage, BudgetReport, error) {
	if !budget.Enabled {
		return history, BudgetReport{}, nil
	}

	origLen := len(history)
	origChars := totalChars(history)

	if budget.Summarize != nil {
		summarized, err := budget.Summarize(history)
		if err != nil {
			return history, BudgetReport{}, err
		}
		history = summarized
	}

	leadingSystem := 0
	if budget.PreserveSystemMessages {
		for leadingSystem < len(history) && history[leadingSystem].Role == protocol.RoleSystem {
			leadingSystem++
		}
	}

	if budget.MaxMessages > 0 && len(history) > budget.MaxMessages {
		keepTail := budget.MaxMessages - leadingSystem
		if keepTail < 0 {
			keepTail = 0
		}
		rest := history[leadingSystem:]
		if len(rest) > keepTail {
			rest = rest[len(rest)-keepTail:]
		}
		history = append(append([]protocol.ChatMessage{}, history[:leadingSystem]...), rest...)
	}

	if budget.MaxChars > 0 {
		for totalChars(history) > budget.MaxChars {
			idx := leadingSystemCount(history, budget.PreserveSystemMessages)
			if idx >= len(history) {
				break
			}
			history = append(history[:idx], history[idx+1:]...)
		}
	}

	report := BudgetReport{
		Trimmed:           len(history) != origLen || totalChars(history) != origChars,
		DroppedMessages:   origLen - len(history),
		DroppedCharacters: origChars - totalChars(history),
	}
	return history, report, nil
}

func totalChars(history []protocol.ChatMessage) int {
	n := 0
	for _, m := range history {
		n += len(m.Content)
	}
	return n
}

func leadingSystemCount(history []protocol.ChatMessage, preserve bool) int {
	if !preserve {
		return 0
	}
	i := 0
	for i < len(history) && history[i].Role == protocol.RoleSystem {
		i++
	}
	return i
}
