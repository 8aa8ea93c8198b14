package wire

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lmbridge/internal/llm"
	"lmbridge/internal/orchestrator"
)

func TestDecodeAnthropicRequest(t *testing.T) {
	body := []byte(`{
		"model": "llama3",
		"system": "Be helpful.",
		"max_tokens": 512,
		"messages": [
			{"role": "user", "content": "Hi"}
		],
		"tools": [
			{"name": "get_weather", "description": "Weather lookup", "input_schema": {"type": "object"}}
		]
	}`)

	req, err := DecodeAnthropicRequest(body)
	require.NoError(t, err)

	assert.Equal(t, FormatAnthropic, req.Format)
	assert.Equal(t, "llama3", req.Model)
	assert.Equal(t, 512, req.MaxTokens)

	// The top-level system field becomes a leading system message.
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "Be helpful.", req.Messages[0].Content)
	assert.Equal(t, "Hi", req.Messages[1].Content)

	require.Len(t, req.Tools, 1)
	assert.Equal(t, "get_weather", req.Tools[0].Name)
}

func TestDecodeAnthropicRequestStructuredSystem(t *testing.T) {
	body := []byte(`{
		"system": [{"type": "text", "text": "Be helpful."}],
		"messages": [{"role": "user", "content": "Hi"}]
	}`)

	req, err := DecodeAnthropicRequest(body)
	require.NoError(t, err)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "Be helpful.", req.Messages[0].Content)
}

func TestDecodeAnthropicRequestErrors(t *testing.T) {
	_, err := DecodeAnthropicRequest([]byte(`{broken`))
	assert.ErrorIs(t, err, ErrMalformedBody)

	_, err = DecodeAnthropicRequest([]byte(`{"model": "llama3"}`))
	assert.ErrorIs(t, err, ErrMissingMessages)
}

func TestAnthropicStreamFraming(t *testing.T) {
	var buf bytes.Buffer

	s := NewAnthropicStream(&buf, "llama3", 12)
	ctx := context.Background()

	require.NoError(t, s.Text(ctx, "Hello"))
	require.NoError(t, s.ToolCall(ctx, llm.ToolCall{ID: "c1", Name: "ls", Arguments: `{"path":"."}`}))
	require.NoError(t, s.ToolResult(ctx, orchestrator.ToolResultEvent{ID: "c1", Name: "ls", Result: "file.txt"}))
	require.NoError(t, s.Finish(llm.Usage{OutputTokens: 7}))

	out := buf.String()

	events := []string{}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "event: ") {
			events = append(events, strings.TrimPrefix(line, "event: "))
		}
	}

	// Text accumulates in block 0; the tool call and the tool result are
	// each a started-and-stopped block of their own.
	assert.Equal(t, []string{
		"message_start",
		"content_block_start",
		"content_block_delta",
		"content_block_stop",
		"content_block_start",
		"content_block_stop",
		"content_block_start",
		"content_block_stop",
		"message_delta",
		"message_stop",
	}, events)

	assert.Contains(t, out, `"index":0`)
	assert.Contains(t, out, `"index":1`)
	assert.Contains(t, out, `"index":2`)
	assert.Contains(t, out, `"input_tokens":12`)
	assert.Contains(t, out, `"output_tokens":7`)
	assert.Contains(t, out, `"text_delta"`)
	assert.Contains(t, out, `"tool_use"`)
	assert.Contains(t, out, `"tool_response"`)
	assert.Contains(t, out, `"stop_reason":"end_turn"`)
}

func TestAnthropicStreamToolCallFirst(t *testing.T) {
	var buf bytes.Buffer

	s := NewAnthropicStream(&buf, "llama3", 0)
	ctx := context.Background()

	require.NoError(t, s.ToolCall(ctx, llm.ToolCall{ID: "c1", Name: "ls", Arguments: "{}"}))
	require.NoError(t, s.Text(ctx, "done"))
	require.NoError(t, s.Finish(llm.Usage{OutputTokens: 2}))

	out := buf.String()

	events := []string{}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "event: ") {
			events = append(events, strings.TrimPrefix(line, "event: "))
		}
	}

	// The tool_use block is opened before any delta; the later text block
	// gets the next index rather than reusing the tool block's.
	assert.Equal(t, []string{
		"message_start",
		"content_block_start",
		"content_block_stop",
		"content_block_start",
		"content_block_delta",
		"content_block_stop",
		"message_delta",
		"message_stop",
	}, events)

	startIdx := strings.Index(out, `"tool_use"`)
	textIdx := strings.Index(out, `"text_delta"`)
	require.Positive(t, startIdx)
	require.Positive(t, textIdx)
	assert.Less(t, startIdx, textIdx)
	assert.Contains(t, out, `"index":1`)
}

func TestAnthropicStreamStartsOnce(t *testing.T) {
	var buf bytes.Buffer

	s := NewAnthropicStream(&buf, "llama3", 0)
	ctx := context.Background()

	require.NoError(t, s.Text(ctx, "a"))
	require.NoError(t, s.Text(ctx, "b"))

	assert.Equal(t, 1, strings.Count(buf.String(), "event: message_start"))
	assert.Equal(t, 1, strings.Count(buf.String(), "event: content_block_start"))
}

func TestBuildAnthropicResponse(t *testing.T) {
	rec := &TurnRecorder{}
	ctx := context.Background()

	require.NoError(t, rec.Text(ctx, "Hello"))
	require.NoError(t, rec.ToolCall(ctx, llm.ToolCall{ID: "c1", Name: "ls", Arguments: `{"path":"."}`}))
	require.NoError(t, rec.ToolResult(ctx, orchestrator.ToolResultEvent{ID: "c1", Name: "ls", Result: "file.txt", IsError: false}))

	resp := BuildAnthropicResponse("llama3", rec, llm.Usage{InputTokens: 3, OutputTokens: 4})

	assert.Equal(t, "message", resp["type"])
	assert.Equal(t, llm.RoleAssistant, resp["role"])
	assert.Equal(t, "end_turn", resp["stop_reason"])
	assert.Nil(t, resp["stop_sequence"])

	content := resp["content"].([]map[string]any)
	require.Len(t, content, 3)

	assert.Equal(t, "text", content[0]["type"])
	assert.Equal(t, "Hello", content[0]["text"])

	assert.Equal(t, "tool_use", content[1]["type"])
	assert.Equal(t, map[string]any{"path": "."}, content[1]["input"])

	assert.Equal(t, "tool_result", content[2]["type"])
	assert.Equal(t, "c1", content[2]["tool_use_id"])

	usage := resp["usage"].(map[string]any)
	assert.Equal(t, 3, usage["input_tokens"])
	assert.Equal(t, 4, usage["output_tokens"])
}
