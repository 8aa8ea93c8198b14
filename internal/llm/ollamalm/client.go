package ollamalm

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/ollama/ollama/api"

	"lmbridge/internal/llm"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is the Ollama-backed model runtime. Tool handlers registered
// through RegisterTool live in-process; Ollama only ever sees their
// declared schemas.
type Client struct {
	api    *api.Client
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[string]llm.ToolHandler
}

func New(baseURL string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Streams can idle for as long as a model needs; the transport must
	// not impose a response timeout.
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 0,
	}

	httpClient := &http.Client{Transport: transport, Timeout: 0}

	var (
		apiClient *api.Client
		err       error
	)

	if baseURL != "" {
		u, parseErr := url.Parse(baseURL)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid ollama base URL: %w", parseErr)
		}

		apiClient = api.NewClient(u, httpClient)
	} else {
		apiClient, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client from environment: %w", err)
		}
	}

	logger.Info("Ollama runtime initialized", "base_url", baseURL)

	return &Client{
		api:      apiClient,
		logger:   logger,
		handlers: make(map[string]llm.ToolHandler),
	}, nil
}

func (c *Client) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	resp, err := c.api.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	models := make([]llm.ModelInfo, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, llm.ModelInfo{
			ID:      m.Name,
			Created: m.ModifiedAt.Unix(),
			OwnedBy: "ollama",
		})
	}

	return models, nil
}

// SelectModels returns handles matching filter by exact id, or every
// available model when filter is empty.
func (c *Client) SelectModels(ctx context.Context, filter string) ([]llm.Model, error) {
	infos, err := c.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	var models []llm.Model

	for _, info := range infos {
		if filter == "" || info.ID == filter {
			models = append(models, &model{client: c, id: info.ID})
		}
	}

	return models, nil
}

// RegisterTool binds an in-process handler. The definition is not stored;
// schemas are advertised per request from the catalog.
func (c *Client) RegisterTool(name string, _ llm.ToolDefinition, handler llm.ToolHandler) error {
	if name == "" {
		return fmt.Errorf("register tool: empty name")
	}

	if handler == nil {
		return fmt.Errorf("register tool %q: nil handler", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.handlers[name]; ok {
		return fmt.Errorf("register tool %q: already registered", name)
	}

	c.handlers[name] = handler

	return nil
}

func (c *Client) InvokeTool(ctx context.Context, name string, input map[string]any) (llm.ToolResult, error) {
	c.mu.RLock()
	handler, ok := c.handlers[name]
	c.mu.RUnlock()

	if !ok {
		return llm.ToolResult{}, fmt.Errorf("%w: %s", llm.ErrToolNotRegistered, name)
	}

	return handler(ctx, input)
}

type model struct {
	client *Client
	id     string
}

func (m *model) ID() string {
	return m.id
}

// Send dispatches one chat request and pumps the response into a part
// channel. The error return covers dispatch failures only; stream
// interruptions after the first chunk surface as an error part.
func (m *model) Send(ctx context.Context, messages []llm.Message, opts llm.Options) (<-chan llm.Part, error) {
	req := &api.ChatRequest{
		Model:    m.id,
		Messages: convertMessages(messages),
		Tools:    convertTools(opts.Tools),
		Stream:   boolPtr(true),
	}

	options := map[string]any{}
	if opts.Temperature != nil {
		options["temperature"] = *opts.Temperature
	}

	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}

	if len(options) > 0 {
		req.Options = options
	}

	parts := make(chan llm.Part, 64)
	started := make(chan error)

	go func() {
		defer close(parts)

		first := true

		err := m.client.api.Chat(ctx, req, func(resp api.ChatResponse) error {
			if first {
				first = false
				select {
				case started <- nil:
				default:
				}
			}

			for _, part := range convertResponse(resp) {
				select {
				case parts <- part:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			return nil
		})

		if err != nil {
			if first {
				select {
				case started <- err:
					return
				default:
				}
			}

			if ctx.Err() == nil {
				m.client.logger.Error("Chat stream error", "model", m.id, "error", err)

				select {
				case parts <- llm.Part{Type: llm.PartError, Err: err.Error()}:
				case <-ctx.Done():
				}
			}

			return
		}

		if first {
			select {
			case started <- nil:
			default:
			}
		}
	}()

	select {
	case err := <-started:
		if err != nil {
			return nil, err
		}

		return parts, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func convertResponse(resp api.ChatResponse) []llm.Part {
	var parts []llm.Part

	if resp.Message.Content != "" {
		parts = append(parts, llm.Part{Type: llm.PartText, Text: resp.Message.Content})
	}

	for _, tc := range resp.Message.ToolCalls {
		args, err := json.Marshal(tc.Function.Arguments)
		if err != nil {
			args = []byte("{}")
		}

		parts = append(parts, llm.Part{
			Type: llm.PartToolCall,
			ToolCall: &llm.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: string(args),
			},
		})
	}

	if resp.Done {
		parts = append(parts, llm.Part{
			Type: llm.PartDone,
			Usage: &llm.Usage{
				InputTokens:  resp.PromptEvalCount,
				OutputTokens: resp.EvalCount,
				StopReason:   resp.DoneReason,
			},
		})
	}

	return parts
}

func convertMessages(messages []llm.Message) []api.Message {
	out := make([]api.Message, 0, len(messages))

	for _, m := range messages {
		msg := api.Message{
			Role:    m.Role,
			Content: m.Content,
		}

		if m.Role == llm.RoleTool {
			msg.ToolCallID = m.ToolCallID
		}

		for _, tc := range m.ToolCalls {
			var args api.ToolCallFunctionArguments
			if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
				continue
			}

			msg.ToolCalls = append(msg.ToolCalls, api.ToolCall{
				ID: tc.ID,
				Function: api.ToolCallFunction{
					Name:      tc.Name,
					Arguments: args,
				},
			})
		}

		out = append(out, msg)
	}

	return out
}

// convertTools goes through a JSON round-trip; the SDK's schema types do
// not line up field-for-field with generic JSON-schema maps.
func convertTools(defs []llm.ToolDefinition) []api.Tool {
	if len(defs) == 0 {
		return nil
	}

	raw := make([]map[string]any, 0, len(defs))
	for _, def := range defs {
		raw = append(raw, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        def.Name,
				"description": def.Description,
				"parameters":  def.Parameters,
			},
		})
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}

	var tools []api.Tool
	if err := json.Unmarshal(data, &tools); err != nil {
		return nil
	}

	return tools
}

func boolPtr(b bool) *bool {
	return &b
}
