package toolprovider

import "context"

// Tool is one entry of an external provider's catalog.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

type CallContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallResult is the provider's invocation outcome.
type CallResult struct {
	Content []CallContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// Provider is an external named-tool catalog with an invoke operation.
type Provider interface {
	ListTools(ctx context.Context) ([]Tool, error)
	CallTool(ctx context.Context, name string, params map[string]any) (CallResult, error)
}
