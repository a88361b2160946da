package router

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/drost/internal/providers"
)

const toolCallMarker = "TOOL_CALL"
const toolResultMarker = "TOOL_RESULT"

// toolPreamble builds the system message listing available tools and the
// exact marker adapters without native function-calling must emit.
func toolPreamble(tools []providers.ToolDefinition) string {
	var b strings.Builder
	b.WriteString("You have access to the following tools. To call one, ")
	b.WriteString("emit exactly one line of the form ")
	b.WriteString(`TOOL_CALL {"name":"<tool>","input":{...}}` + "\n\n")
	for _, t := range tools {
		b.WriteString(fmt.Sprintf("- %s: %s\n", t.Function.Name, t.Function.Description))
	}
	return b.String()
}

// parsedToolCall is a text-marker tool call extracted from assistant text.
type parsedToolCall struct {
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input"`
}

// parseTextToolCall looks for a TOOL_CALL marker in content, unwrapping
// fenced code blocks and balance-matching the JSON object that follows.
func parseTextToolCall(content string) (*parsedToolCall, bool) {
	text := content
	if idx := strings.Index(text, "```"); idx != -1 {
		// Strip a fenced code block wrapper if the marker lives inside one.
		rest := text[idx+3:]
		if nl := strings.Index(rest, "\n"); nl != -1 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end != -1 {
			rest = rest[:end]
		}
		if strings.Contains(rest, toolCallMarker) {
			text = rest
		}
	}

	markerIdx := strings.Index(text, toolCallMarker)
	if markerIdx == -1 {
		return nil, false
	}
	rest := strings.TrimSpace(text[markerIdx+len(toolCallMarker):])
	start := strings.Index(rest, "{")
	if start == -1 {
		return nil, false
	}
	jsonStr := extractBalancedJSON(rest[start:])
	if jsonStr == "" {
		return nil, false
	}

	var call parsedToolCall
	if err := json.Unmarshal([]byte(jsonStr), &call); err != nil {
		return nil, false
	}
	return &call, true
}

// extractBalancedJSON returns the shortest prefix of s that is a
// brace-balanced JSON object, respecting string literals.
func extractBalancedJSON(s string) string {
	depth := 0
	inString := false
	escaped := false
	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}

// toolResultPayload is the JSON body following the TOOL_RESULT marker.
type toolResultPayload struct {
	Name   string      `json:"name"`
	CallID string      `json:"callId,omitempty"`
	OK     bool        `json:"ok"`
	Output interface{} `json:"output,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// encodeTextToolResult renders a tool execution result as the TOOL_RESULT
// text marker line used when the active adapter has no native tool-call
// dialect.
func encodeTextToolResult(name string, ok bool, output interface{}, errMsg string) string {
	payload := toolResultPayload{Name: name, OK: ok}
	if ok {
		payload.Output = output
	} else {
		payload.Error = errMsg
	}
	data, _ := json.Marshal(payload)
	return toolResultMarker + " " + string(data)
}

// encodeToolResultMessage normalizes a tool execution outcome (from either
// a native tool-call dialect or the text-marker fallback) into the single
// tool-role message shape the Router feeds back to the adapter.
func encodeToolResultMessage(callID, name string, ok bool, output interface{}, errMsg string) providers.Message {
	payload := toolResultPayload{Name: name, CallID: callID, OK: ok}
	if ok {
		payload.Output = output
	} else {
		payload.Error = errMsg
	}
	data, _ := json.Marshal(payload)
	return providers.Message{
		Role:       "tool",
		Content:    string(data),
		ToolCallID: callID,
	}
}
