package wire

import (
	"context"
	"fmt"
	"io"

	"lmbridge/internal/llm"
	"lmbridge/internal/orchestrator"
)

type anthropicRequest struct {
	Model     string             `json:"model"`
	System    any                `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
	Tools     []anthropicTool    `json:"tools"`
	Stream    bool               `json:"stream"`
	MaxTokens int                `json:"max_tokens"`
	Temp      *float64           `json:"temperature"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// DecodeAnthropicRequest validates and decodes an Anthropic-shape messages
// request. The top-level system field becomes a system-role message; the
// normalizer folds it downstream.
func DecodeAnthropicRequest(body []byte) (*Request, error) {
	var raw anthropicRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	if len(raw.Messages) == 0 {
		return nil, ErrMissingMessages
	}

	req := &Request{
		Format:      FormatAnthropic,
		Model:       raw.Model,
		Stream:      raw.Stream,
		MaxTokens:   raw.MaxTokens,
		Temperature: raw.Temp,
	}

	if system := flattenContent(raw.System); system != "" {
		req.Messages = append(req.Messages, llm.Message{
			Role:    llm.RoleSystem,
			Content: system,
		})
	}

	for _, m := range raw.Messages {
		req.Messages = append(req.Messages, llm.Message{
			Role:    m.Role,
			Content: flattenContent(m.Content),
		})
	}

	for _, t := range raw.Tools {
		if t.Name == "" {
			continue
		}

		req.Tools = append(req.Tools, DeclaredTool{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.InputSchema,
		})
	}

	return req, nil
}

// AnthropicStream encodes orchestrator events as Anthropic SSE frames:
// message_start, then a sequence of content blocks (text with text_delta
// frames, tool_use, and the tool_response extension), message_delta,
// message_stop. Text accumulates in one open block; every tool event is a
// self-contained block with its own start and stop, so deltas never appear
// outside a started block and block indices never collide. Implements
// orchestrator.Sink.
type AnthropicStream struct {
	sw          *StreamWriter
	id          string
	model       string
	started     bool
	blockOpen   bool
	blockIndex  int
	inputTokens int
}

func NewAnthropicStream(w io.Writer, model string, inputTokens int) *AnthropicStream {
	return &AnthropicStream{
		sw:          NewStreamWriter(w),
		id:          NewID("msg_"),
		model:       model,
		inputTokens: inputTokens,
	}
}

func (s *AnthropicStream) Text(_ context.Context, text string) error {
	if err := s.ensureStarted(); err != nil {
		return err
	}

	if err := s.ensureBlock(); err != nil {
		return err
	}

	return s.sw.WriteEvent("content_block_delta", map[string]any{
		"type":  "content_block_delta",
		"index": s.blockIndex,
		"delta": map[string]any{
			"type": "text_delta",
			"text": text,
		},
	})
}

func (s *AnthropicStream) ToolCall(_ context.Context, call llm.ToolCall) error {
	if err := s.ensureStarted(); err != nil {
		return err
	}

	var input map[string]any
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &input); err != nil {
			input = map[string]any{"input": call.Arguments}
		}
	}

	return s.emitBlock(map[string]any{
		"type":  "tool_use",
		"id":    call.ID,
		"name":  call.Name,
		"input": input,
	})
}

func (s *AnthropicStream) ToolResult(_ context.Context, event orchestrator.ToolResultEvent) error {
	if err := s.ensureStarted(); err != nil {
		return err
	}

	return s.emitBlock(map[string]any{
		"type":        "tool_response",
		"tool_use_id": event.ID,
		"name":        event.Name,
		"content":     event.Result,
		"is_error":    event.IsError,
	})
}

// Finish closes the open block and emits message_delta plus message_stop.
func (s *AnthropicStream) Finish(usage llm.Usage) error {
	if err := s.ensureStarted(); err != nil {
		return err
	}

	if err := s.closeBlock(); err != nil {
		return err
	}

	if err := s.sw.WriteEvent("message_delta", map[string]any{
		"type": "message_delta",
		"delta": map[string]any{
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
		},
		"usage": map[string]any{
			"output_tokens": usage.OutputTokens,
		},
	}); err != nil {
		return err
	}

	return s.sw.WriteEvent("message_stop", map[string]any{"type": "message_stop"})
}

func (s *AnthropicStream) ensureStarted() error {
	if s.started {
		return nil
	}

	s.started = true

	return s.sw.WriteEvent("message_start", map[string]any{
		"type": "message_start",
		"message": map[string]any{
			"id":            s.id,
			"type":          "message",
			"role":          llm.RoleAssistant,
			"model":         s.model,
			"content":       []any{},
			"stop_reason":   nil,
			"stop_sequence": nil,
			"usage": map[string]any{
				"input_tokens":  s.inputTokens,
				"output_tokens": 0,
			},
		},
	})
}

func (s *AnthropicStream) ensureBlock() error {
	if s.blockOpen {
		return nil
	}

	s.blockOpen = true

	return s.sw.WriteEvent("content_block_start", map[string]any{
		"type":  "content_block_start",
		"index": s.blockIndex,
		"content_block": map[string]any{
			"type": "text",
			"text": "",
		},
	})
}

// closeBlock stops the open text block, if any, and advances the index.
func (s *AnthropicStream) closeBlock() error {
	if !s.blockOpen {
		return nil
	}

	s.blockOpen = false

	err := s.sw.WriteEvent("content_block_stop", map[string]any{
		"type":  "content_block_stop",
		"index": s.blockIndex,
	})
	s.blockIndex++

	return err
}

// emitBlock writes one self-contained content block: start with the full
// block payload, then stop. Any open text block is closed first.
func (s *AnthropicStream) emitBlock(block map[string]any) error {
	if err := s.closeBlock(); err != nil {
		return err
	}

	if err := s.sw.WriteEvent("content_block_start", map[string]any{
		"type":          "content_block_start",
		"index":         s.blockIndex,
		"content_block": block,
	}); err != nil {
		return err
	}

	err := s.sw.WriteEvent("content_block_stop", map[string]any{
		"type":  "content_block_stop",
		"index": s.blockIndex,
	})
	s.blockIndex++

	return err
}

// BuildAnthropicResponse assembles the buffered message body.
func BuildAnthropicResponse(model string, rec *TurnRecorder, usage llm.Usage) map[string]any {
	content := []map[string]any{{
		"type": "text",
		"text": rec.Content(),
	}}

	for _, call := range rec.ToolCalls {
		var input map[string]any
		if call.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Arguments), &input); err != nil {
				input = map[string]any{"input": call.Arguments}
			}
		}

		content = append(content, map[string]any{
			"type":  "tool_use",
			"id":    call.ID,
			"name":  call.Name,
			"input": input,
		})
	}

	for _, res := range rec.ToolResults {
		content = append(content, map[string]any{
			"type":        "tool_result",
			"tool_use_id": res.ID,
			"content":     res.Result,
			"is_error":    res.IsError,
		})
	}

	return map[string]any{
		"id":            NewID("msg_"),
		"type":          "message",
		"role":          llm.RoleAssistant,
		"model":         model,
		"content":       content,
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"usage": map[string]any{
			"input_tokens":  usage.InputTokens,
			"output_tokens": usage.OutputTokens,
		},
	}
}
