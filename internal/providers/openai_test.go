package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIChatParsesContentAndUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("got auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"content": "hi there"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 4, "completion_tokens": 2, "total_tokens": 6}
		}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("openai", "test-key", srv.URL, "gpt-test")
	resp, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "hi there" || resp.FinishReason != "stop" {
		t.Fatalf("got %+v", resp)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 6 {
		t.Fatalf("got usage %+v", resp.Usage)
	}
}

func TestOpenAIChatParsesToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{
				"message": {"tool_calls": [{"id": "call_1", "function": {"name": "read_file", "arguments": "{\"path\":\"a.txt\"}"}}]},
				"finish_reason": "tool_calls"
			}]
		}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("openai", "k", srv.URL, "gpt-test")
	resp, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "read_file" {
		t.Fatalf("got %+v", resp.ToolCalls)
	}
	if resp.ToolCalls[0].Arguments["path"] != "a.txt" {
		t.Fatalf("got args %+v", resp.ToolCalls[0].Arguments)
	}
	if resp.FinishReason != "tool_calls" {
		t.Fatalf("got finish reason %q", resp.FinishReason)
	}
}

func TestOpenAIChatSurfacesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("openai", "bad", srv.URL, "gpt-test")
	_, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	httpErr, ok := err.(*HTTPError)
	if !ok {
		t.Fatalf("expected *HTTPError, got %T: %v", err, err)
	}
	if httpErr.Status != http.StatusUnauthorized {
		t.Fatalf("got status %d", httpErr.Status)
	}
}

func TestOpenAIChatStreamAccumulatesDeltas(t *testing.T) {
	sse := strings.Join([]string{
		`data: {"choices":[{"delta":{"content":"hi "}}]}`,
		`data: {"choices":[{"delta":{"content":"there"},"finish_reason":"stop"}]}`,
		`data: {"choices":[{"delta":{}}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`,
		"data: [DONE]",
		"",
	}, "\n")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(sse))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("openai", "k", srv.URL, "gpt-test")
	var chunks []string
	resp, err := p.ChatStream(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}}, func(c StreamChunk) {
		if c.Content != "" {
			chunks = append(chunks, c.Content)
		}
	})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if resp.Content != "hi there" {
		t.Fatalf("got content %q", resp.Content)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %v", chunks)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 5 {
		t.Fatalf("got usage %+v", resp.Usage)
	}
}

func TestOpenAIBuildRequestBodyIncludesToolsAndOptions(t *testing.T) {
	p := NewOpenAIProvider("openai", "k", "", "gpt-test")
	body := p.buildRequestBody("gpt-test", ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
		Tools:    []ToolDefinition{{Type: "function", Function: ToolFunctionSchema{Name: "read_file"}}},
		Options:  map[string]interface{}{"max_tokens": 100, "temperature": 0.2},
	}, true)

	if body["tool_choice"] != "auto" {
		t.Fatalf("expected tool_choice auto when tools present, got %v", body["tool_choice"])
	}
	if body["max_tokens"] != 100 {
		t.Fatalf("got max_tokens %v", body["max_tokens"])
	}
	if body["temperature"] != 0.2 {
		t.Fatalf("got temperature %v", body["temperature"])
	}
	so, ok := body["stream_options"].(map[string]interface{})
	if !ok || so["include_usage"] != true {
		t.Fatalf("expected stream_options.include_usage=true, got %v", body["stream_options"])
	}
}
