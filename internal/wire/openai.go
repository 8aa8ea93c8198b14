package wire

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"lmbridge/internal/llm"
	"lmbridge/internal/orchestrator"
)

type openAIRequest struct {
	Model               string          `json:"model"`
	Messages            []openAIMessage `json:"messages"`
	Tools               []openAITool    `json:"tools"`
	Stream              bool            `json:"stream"`
	MaxTokens           int             `json:"max_tokens"`
	MaxCompletionTokens int             `json:"max_completion_tokens"`
	Temperature         *float64        `json:"temperature"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    any              `json:"content"`
	ToolCallID string           `json:"tool_call_id"`
	ToolCalls  []openAIToolCall `json:"tool_calls"`
}

type openAIToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openAITool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

// DecodeOpenAIRequest validates and decodes an OpenAI-shape chat request.
func DecodeOpenAIRequest(body []byte) (*Request, error) {
	var raw openAIRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	if len(raw.Messages) == 0 {
		return nil, ErrMissingMessages
	}

	req := &Request{
		Format:      FormatOpenAI,
		Model:       raw.Model,
		Stream:      raw.Stream,
		MaxTokens:   raw.MaxTokens,
		Temperature: raw.Temperature,
	}

	if raw.MaxCompletionTokens > 0 {
		req.MaxTokens = raw.MaxCompletionTokens
	}

	for _, m := range raw.Messages {
		msg := llm.Message{
			Role:       m.Role,
			Content:    flattenContent(m.Content),
			ToolCallID: m.ToolCallID,
		}

		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}

		req.Messages = append(req.Messages, msg)
	}

	for _, t := range raw.Tools {
		if t.Function.Name == "" {
			continue
		}

		req.Tools = append(req.Tools, DeclaredTool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  t.Function.Parameters,
		})
	}

	return req, nil
}

// OpenAIStream encodes orchestrator events as chat.completion.chunk
// frames. Implements orchestrator.Sink.
type OpenAIStream struct {
	sw       *StreamWriter
	id       string
	model    string
	created  int64
	roleSent bool
}

func NewOpenAIStream(w io.Writer, model string) *OpenAIStream {
	return &OpenAIStream{
		sw:      NewStreamWriter(w),
		id:      NewID("chatcmpl-"),
		model:   model,
		created: time.Now().Unix(),
	}
}

func (s *OpenAIStream) Text(_ context.Context, text string) error {
	return s.chunk(s.delta(map[string]any{"content": text}))
}

func (s *OpenAIStream) ToolCall(_ context.Context, call llm.ToolCall) error {
	delta := map[string]any{
		"tool_calls": []map[string]any{{
			"id":   call.ID,
			"type": "function",
			"function": map[string]any{
				"name":      call.Name,
				"arguments": call.Arguments,
			},
		}},
	}

	return s.chunk(s.delta(delta))
}

// ToolResult uses the non-standard tool_results delta carried for client
// compatibility.
func (s *OpenAIStream) ToolResult(_ context.Context, event orchestrator.ToolResultEvent) error {
	delta := map[string]any{
		"tool_results": []map[string]any{{
			"id":   event.ID,
			"type": "function",
			"function": map[string]any{
				"name":   event.Name,
				"result": event.Result,
			},
		}},
	}

	return s.chunk(s.delta(delta))
}

// Finish emits the closing usage-bearing chunk and the [DONE] terminator.
func (s *OpenAIStream) Finish(usage llm.Usage) error {
	choice := map[string]any{
		"index":         0,
		"delta":         map[string]any{},
		"finish_reason": "stop",
	}

	if err := s.sw.WriteData(map[string]any{
		"id":      s.id,
		"object":  "chat.completion.chunk",
		"created": s.created,
		"model":   s.model,
		"choices": []map[string]any{choice},
		"usage": map[string]any{
			"prompt_tokens":     usage.InputTokens,
			"completion_tokens": usage.OutputTokens,
			"total_tokens":      usage.InputTokens + usage.OutputTokens,
		},
	}); err != nil {
		return err
	}

	return s.sw.WriteRaw("data: [DONE]")
}

func (s *OpenAIStream) delta(delta map[string]any) map[string]any {
	if !s.roleSent {
		delta["role"] = llm.RoleAssistant
		s.roleSent = true
	}

	return delta
}

func (s *OpenAIStream) chunk(delta map[string]any) error {
	choice := map[string]any{
		"index":         0,
		"delta":         delta,
		"finish_reason": nil,
	}

	return s.sw.WriteData(map[string]any{
		"id":      s.id,
		"object":  "chat.completion.chunk",
		"created": s.created,
		"model":   s.model,
		"choices": []map[string]any{choice},
	})
}

// TurnRecorder buffers a whole turn for non-streaming responses.
// Implements orchestrator.Sink.
type TurnRecorder struct {
	text        strings.Builder
	ToolCalls   []llm.ToolCall
	ToolResults []orchestrator.ToolResultEvent
}

func (r *TurnRecorder) Text(_ context.Context, text string) error {
	r.text.WriteString(text)
	return nil
}

func (r *TurnRecorder) ToolCall(_ context.Context, call llm.ToolCall) error {
	r.ToolCalls = append(r.ToolCalls, call)
	return nil
}

func (r *TurnRecorder) ToolResult(_ context.Context, event orchestrator.ToolResultEvent) error {
	r.ToolResults = append(r.ToolResults, event)
	return nil
}

func (r *TurnRecorder) Content() string {
	return r.text.String()
}

// BuildOpenAIResponse assembles the buffered chat.completion body.
func BuildOpenAIResponse(model string, rec *TurnRecorder, usage llm.Usage) map[string]any {
	message := map[string]any{
		"role":    llm.RoleAssistant,
		"content": rec.Content(),
	}

	if len(rec.ToolCalls) > 0 {
		calls := make([]map[string]any, 0, len(rec.ToolCalls))
		for _, call := range rec.ToolCalls {
			calls = append(calls, map[string]any{
				"id":   call.ID,
				"type": "function",
				"function": map[string]any{
					"name":      call.Name,
					"arguments": call.Arguments,
				},
			})
		}

		message["tool_calls"] = calls
	}

	return map[string]any{
		"id":      NewID("chatcmpl-"),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       message,
			"finish_reason": "stop",
		}},
		"usage": map[string]any{
			"prompt_tokens":     usage.InputTokens,
			"completion_tokens": usage.OutputTokens,
			"total_tokens":      usage.InputTokens + usage.OutputTokens,
		},
	}
}
