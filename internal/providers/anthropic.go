package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AnthropicProvider implements Provider for the Anthropic Messages API.
type AnthropicProvider struct {
	name         string
	apiKey       string
	apiBase      string
	defaultModel string
	client       *http.Client
}

// NewAnthropicProvider creates an adapter against the Anthropic Messages API.
func NewAnthropicProvider(name, apiKey, apiBase, defaultModel string) *AnthropicProvider {
	if apiBase == "" {
		apiBase = "https://api.anthropic.com"
	}
	return &AnthropicProvider{
		name:         name,
		apiKey:       apiKey,
		apiBase:      strings.TrimRight(apiBase, "/"),
		defaultModel: defaultModel,
		client:       &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *AnthropicProvider) Name() string         { return p.name }
func (p *AnthropicProvider) DefaultModel() string { return p.defaultModel }

func (p *AnthropicProvider) resolveModel(model string) string {
	if model == "" {
		return p.defaultModel
	}
	return model
}

func (p *AnthropicProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := p.resolveModel(req.Model)
	system, msgs := p.buildMessages(req)
	body := map[string]interface{}{
		"model":     model,
		"messages":  msgs,
		"max_tokens": maxTokensOrDefault(req.Options),
	}
	if system != "" {
		body["system"] = system
	}
	if len(req.Tools) > 0 {
		body["tools"] = anthropicTools(req.Tools)
	}

	respBody, err := p.doRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	defer respBody.Close()

	var raw anthropicResponse
	if err := json.NewDecoder(respBody).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", p.name, err)
	}
	return p.parseResponse(&raw), nil
}

func (p *AnthropicProvider) ChatStream(ctx context.Context, req ChatRequest, onChunk func(StreamChunk)) (*ChatResponse, error) {
	model := p.resolveModel(req.Model)
	system, msgs := p.buildMessages(req)
	body := map[string]interface{}{
		"model":      model,
		"messages":   msgs,
		"max_tokens": maxTokensOrDefault(req.Options),
		"stream":     true,
	}
	if system != "" {
		body["system"] = system
	}
	if len(req.Tools) > 0 {
		body["tools"] = anthropicTools(req.Tools)
	}

	respBody, err := p.doRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	defer respBody.Close()

	result := &ChatResponse{FinishReason: "stop"}
	var currentEvent string
	toolArgsByIndex := make(map[int]*strings.Builder)
	toolCallsByIndex := make(map[int]ToolCall)
	var toolOrder []int

	scanner := bufio.NewScanner(respBody)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			currentEvent = strings.TrimPrefix(line, "event: ")
			continue
		case !strings.HasPrefix(line, "data: "):
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		switch currentEvent {
		case "content_block_start":
			var evt anthropicBlockStart
			if err := json.Unmarshal([]byte(data), &evt); err != nil {
				continue
			}
			if evt.ContentBlock.Type == "tool_use" {
				toolCallsByIndex[evt.Index] = ToolCall{ID: evt.ContentBlock.ID, Name: evt.ContentBlock.Name}
				toolArgsByIndex[evt.Index] = &strings.Builder{}
				toolOrder = append(toolOrder, evt.Index)
			}
		case "content_block_delta":
			var evt anthropicBlockDelta
			if err := json.Unmarshal([]byte(data), &evt); err != nil {
				continue
			}
			switch evt.Delta.Type {
			case "text_delta":
				result.Content += evt.Delta.Text
				if onChunk != nil {
					onChunk(StreamChunk{Content: evt.Delta.Text})
				}
			case "input_json_delta":
				if b, ok := toolArgsByIndex[evt.Index]; ok {
					b.WriteString(evt.Delta.PartialJSON)
				}
			}
		case "message_delta":
			var evt anthropicMessageDelta
			if err := json.Unmarshal([]byte(data), &evt); err != nil {
				continue
			}
			if evt.Delta.StopReason != "" {
				result.FinishReason = mapStopReason(evt.Delta.StopReason)
			}
			if evt.Usage != nil {
				if result.Usage == nil {
					result.Usage = &Usage{}
				}
				result.Usage.CompletionTokens = evt.Usage.OutputTokens
				result.Usage.TotalTokens = result.Usage.PromptTokens + evt.Usage.OutputTokens
			}
		case "message_start":
			var evt anthropicMessageStart
			if err := json.Unmarshal([]byte(data), &evt); err != nil {
				continue
			}
			if evt.Message.Usage != nil {
				result.Usage = &Usage{PromptTokens: evt.Message.Usage.InputTokens}
			}
		case "error":
			var evt anthropicErrorEvent
			_ = json.Unmarshal([]byte(data), &evt)
			return nil, fmt.Errorf("%s: stream error: %s", p.name, evt.Error.Message)
		}
	}

	for _, idx := range toolOrder {
		tc := toolCallsByIndex[idx]
		args := make(map[string]interface{})
		_ = json.Unmarshal([]byte(toolArgsByIndex[idx].String()), &args)
		tc.Arguments = args
		result.ToolCalls = append(result.ToolCalls, tc)
	}
	if len(result.ToolCalls) > 0 {
		result.FinishReason = "tool_calls"
	}

	if onChunk != nil {
		onChunk(StreamChunk{Done: true})
	}
	return result, nil
}

func (p *AnthropicProvider) buildMessages(req ChatRequest) (string, []map[string]interface{}) {
	var system string
	msgs := make([]map[string]interface{}, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "system" {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}

		role := m.Role
		if role == "tool" {
			msgs = append(msgs, map[string]interface{}{
				"role": "user",
				"content": []map[string]interface{}{
					{"type": "tool_result", "tool_use_id": m.ToolCallID, "content": m.Content},
				},
			})
			continue
		}

		if len(m.ToolCalls) > 0 {
			var blocks []map[string]interface{}
			if m.Content != "" {
				blocks = append(blocks, map[string]interface{}{"type": "text", "text": m.Content})
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, map[string]interface{}{
					"type":  "tool_use",
					"id":    tc.ID,
					"name":  tc.Name,
					"input": tc.Arguments,
				})
			}
			msgs = append(msgs, map[string]interface{}{"role": role, "content": blocks})
			continue
		}

		if len(m.Images) > 0 {
			var blocks []map[string]interface{}
			for _, img := range m.Images {
				blocks = append(blocks, map[string]interface{}{
					"type": "image",
					"source": map[string]interface{}{
						"type":       "base64",
						"media_type": img.MimeType,
						"data":       img.Data,
					},
				})
			}
			if m.Content != "" {
				blocks = append(blocks, map[string]interface{}{"type": "text", "text": m.Content})
			}
			msgs = append(msgs, map[string]interface{}{"role": role, "content": blocks})
			continue
		}

		msgs = append(msgs, map[string]interface{}{"role": role, "content": m.Content})
	}
	return system, msgs
}

func (p *AnthropicProvider) doRequest(ctx context.Context, body interface{}) (io.ReadCloser, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", p.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", p.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", p.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &HTTPError{Status: resp.StatusCode, Body: fmt.Sprintf("%s: %s", p.name, string(respBody))}
	}
	return resp.Body, nil
}

func (p *AnthropicProvider) parseResponse(resp *anthropicResponse) *ChatResponse {
	result := &ChatResponse{FinishReason: mapStopReason(resp.StopReason)}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			result.Content += block.Text
		case "tool_use":
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}
	if len(result.ToolCalls) > 0 {
		result.FinishReason = "tool_calls"
	}
	if resp.Usage != nil {
		result.Usage = &Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		}
	}
	return result
}

func mapStopReason(reason string) string {
	switch reason {
	case "tool_use":
		return "tool_calls"
	case "max_tokens":
		return "length"
	case "":
		return "stop"
	default:
		return "stop"
	}
}

func anthropicTools(defs []ToolDefinition) []map[string]interface{} {
	out := make([]map[string]interface{}, len(defs))
	for i, d := range defs {
		out[i] = map[string]interface{}{
			"name":         d.Function.Name,
			"description":  d.Function.Description,
			"input_schema": d.Function.Parameters,
		}
	}
	return out
}

func maxTokensOrDefault(opts map[string]interface{}) int {
	if v, ok := opts["max_tokens"]; ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return 4096
}

type anthropicResponse struct {
	Content []struct {
		Type  string                 `json:"type"`
		Text  string                 `json:"text"`
		ID    string                 `json:"id"`
		Name  string                 `json:"name"`
		Input map[string]interface{} `json:"input"`
	} `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      *anthropicUsage    `json:"usage"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicBlockStart struct {
	Index        int `json:"index"`
	ContentBlock struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`
}

type anthropicBlockDelta struct {
	Index int `json:"index"`
	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
	} `json:"delta"`
}

type anthropicMessageDelta struct {
	Delta struct {
		StopReason string `json:"stop_reason"`
	} `json:"delta"`
	Usage *struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicMessageStart struct {
	Message struct {
		Usage *struct {
			InputTokens int `json:"input_tokens"`
		} `json:"usage"`
	} `json:"message"`
}

type anthropicErrorEvent struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
