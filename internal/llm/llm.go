package llm

import (
	"context"
	"errors"
	"strings"
)

// Message roles. RoleSystem never survives prompt normalization; the
// runtime only ever sees the other three.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Stream part types emitted by Model.Send.
const (
	PartText     = "text"
	PartToolCall = "tool_call"
	PartError    = "error"
	PartDone     = "done"
)

// ErrToolNotRegistered is returned by InvokeTool for names that were never
// bound to the runtime.
var ErrToolNotRegistered = errors.New("tool not registered")

// Message is an immutable conversation entry in normalized form.
type Message struct {
	Role       string
	Content    string
	ToolCallID string
	ToolCalls  []ToolCall
}

// ToolCall is a model-initiated invocation of a named tool. Arguments is
// the raw JSON-encoded input.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

type ResultContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ToolResult is the normalized shape of a tool invocation outcome.
type ToolResult struct {
	Content []ResultContent
	IsError bool
}

// Text joins the textual parts of the result.
func (r ToolResult) Text() string {
	var sb strings.Builder

	for _, c := range r.Content {
		if c.Text == "" {
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString("\n")
		}

		sb.WriteString(c.Text)
	}

	return sb.String()
}

// TextResult builds a single-text ToolResult.
func TextResult(text string, isError bool) ToolResult {
	return ToolResult{
		Content: []ResultContent{{Type: "text", Text: text}},
		IsError: isError,
	}
}

// ToolDefinition is the schema advertised to the model for a registered
// tool. Parameters is a JSON-schema object.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Options carries per-request model parameters.
type Options struct {
	Temperature *float64
	MaxTokens   int
	Tools       []ToolDefinition
}

// Usage is the runtime-reported token accounting for a completed turn.
type Usage struct {
	InputTokens  int
	OutputTokens int
	StopReason   string
}

// Part is one element of a model response stream.
type Part struct {
	Type     string
	Text     string
	ToolCall *ToolCall
	Usage    *Usage
	Err      string
}

// ToolHandler executes a registered tool.
type ToolHandler func(ctx context.Context, input map[string]any) (ToolResult, error)

// ModelInfo describes an available model for listing endpoints.
type ModelInfo struct {
	ID      string
	Created int64
	OwnedBy string
}

// Model is a handle to one upstream model.
type Model interface {
	ID() string
	Send(ctx context.Context, messages []Message, opts Options) (<-chan Part, error)
}

// Runtime is the model-invocation environment: model selection, tool
// registration and tool execution. Implementations must support concurrent
// use from independent turns.
type Runtime interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
	SelectModels(ctx context.Context, filter string) ([]Model, error)
	RegisterTool(name string, def ToolDefinition, handler ToolHandler) error
	InvokeTool(ctx context.Context, name string, input map[string]any) (ToolResult, error)
}
