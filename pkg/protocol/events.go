// Package protocol defines the wire-level shapes shared between the
// gateway core and its callers: normalized provider stream events,
// session store JSONL record lines, and control-plane SSE frames.
package protocol

import "time"

// StreamEventType enumerates the normalized provider stream event kinds
// the Provider Router emits while merging adapter output.
type StreamEventType string

const (
	EventResponseDelta    StreamEventType = "response.delta"
	EventResponseComplete StreamEventType = "response.completed"
	EventToolCallStarted  StreamEventType = "tool.call.started"
	EventToolCallComplete StreamEventType = "tool.call.completed"
	EventUsageUpdated     StreamEventType = "usage.updated"
	EventProviderError    StreamEventType = "provider.error"
)

// StreamEvent is the normalized event the Provider Router emits for
// every turn, merging adapter-specific deltas into one shape.
type StreamEvent struct {
	Type       StreamEventType `json:"type"`
	SessionID  string          `json:"sessionId"`
	ProviderID string          `json:"providerId"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    StreamPayload   `json:"payload"`
}

// StreamPayload is the per-event-type payload carried by a StreamEvent.
type StreamPayload struct {
	Text     string         `json:"text,omitempty"`
	Usage    *UsagePayload  `json:"usage,omitempty"`
	Error    *ErrorPayload  `json:"error,omitempty"`
	ToolName string         `json:"toolName,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// UsagePayload tracks token accounting for a turn.
type UsagePayload struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// ErrorPayload carries a classified provider failure.
type ErrorPayload struct {
	Class   string `json:"class"`
	Message string `json:"message"`
	Attempt int    `json:"attempt"`
}

// SchemaVersion is stamped onto every observability record, resolving
// the spec's open question about enforcing the {stream, timestamp,
// payload, schemaVersion} shape uniformly rather than leaving it
// free-form.
const SchemaVersion = 1

// ObservabilityRecord is the uniform envelope for records of the
// observability/*.jsonl streams (runtime-events, tool-traces, usage-events).
type ObservabilityRecord struct {
	SchemaVersion int       `json:"schemaVersion"`
	Stream        string    `json:"stream"`
	Timestamp     time.Time `json:"timestamp"`
	Payload       any       `json:"payload"`
}

// NewObservabilityRecord stamps a payload with the uniform envelope.
func NewObservabilityRecord(stream string, payload any) ObservabilityRecord {
	return ObservabilityRecord{
		SchemaVersion: SchemaVersion,
		Stream:        stream,
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
	}
}
