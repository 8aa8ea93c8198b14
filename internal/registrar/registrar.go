package registrar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"lmbridge/internal/catalog"
	"lmbridge/internal/llm"
	"lmbridge/internal/toolprovider"
)

// ErrToolNotFound reports a registration attempt for a name the catalog
// does not know.
var ErrToolNotFound = errors.New("tool not found in catalog")

// DiscoverySentinel marks a tool result as "this tool was just registered,
// retry the turn". The orchestrator consumes it internally; callers only
// see it after the retry budget is spent.
const DiscoverySentinel = "dynamically discovered and registered"

// DiscoveryNotice builds the sentinel-bearing result text for name.
func DiscoveryNotice(name string) string {
	return fmt.Sprintf("Tool %q was %s. Please retry your request.", name, DiscoverySentinel)
}

// Discoverer synthesizes a signature for an unknown tool name.
type Discoverer interface {
	Discover(ctx context.Context, name string) catalog.ToolSignature
}

// ToolBinder is the slice of the model runtime the registrar needs.
type ToolBinder interface {
	RegisterTool(name string, def llm.ToolDefinition, handler llm.ToolHandler) error
}

// Registrar binds catalog entries to the model runtime. Each name is bound
// at most once for the life of the process; repeated ensure calls are
// no-ops returning success. Registration failures from the runtime are
// logged and reported as false, never as request-fatal errors.
type Registrar struct {
	catalog   *catalog.Catalog
	runtime   ToolBinder
	discovery Discoverer
	logger    *slog.Logger

	mu         sync.Mutex
	registered map[string]struct{}
}

func New(cat *catalog.Catalog, runtime ToolBinder, discovery Discoverer, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registrar{
		catalog:    cat,
		runtime:    runtime,
		discovery:  discovery,
		logger:     logger,
		registered: make(map[string]struct{}),
	}
}

func (r *Registrar) IsRegistered(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.registered[name]

	return ok
}

// EnsureBuiltinRegistered binds a catalog entry with a stub handler. The
// stub returns a fixed placeholder; builtin tools are declarative
// signatures, not executed by this process.
func (r *Registrar) EnsureBuiltinRegistered(name string) (bool, error) {
	sig, ok := r.catalog.Find(name)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	return r.ensure(sig.Name, r.definition(sig), stubHandler(sig.Name)), nil
}

// EnsureDiscoveredRegistered records a freshly discovered signature in the
// catalog and binds it with a handler that returns the discovery sentinel.
func (r *Registrar) EnsureDiscoveredRegistered(sig catalog.ToolSignature) bool {
	if err := r.catalog.Upsert(sig); err != nil {
		r.logger.Warn("Discovered signature rejected by catalog", "tool", sig.Name, "error", err)
		return false
	}

	name := sig.Name
	handler := func(_ context.Context, _ map[string]any) (llm.ToolResult, error) {
		return llm.TextResult(DiscoveryNotice(name), false), nil
	}

	return r.ensure(name, r.definition(sig), handler)
}

// EnsureProviderToolRegistered binds an externally sourced tool. The
// handler delegates to invoke and maps its outcome into the normalized
// tool-result shape; invoke errors surface as error-flagged results, never
// as propagated failures.
func (r *Registrar) EnsureProviderToolRegistered(name string, schema map[string]any, invoke func(ctx context.Context, name string, params map[string]any) (toolprovider.CallResult, error)) bool {
	def := llm.ToolDefinition{
		Name:        name,
		Description: fmt.Sprintf("Externally provided tool: %s", name),
		Parameters:  schema,
	}

	if sig, ok := r.catalog.Find(name); ok {
		def.Description = sig.Description
	}

	handler := func(ctx context.Context, params map[string]any) (llm.ToolResult, error) {
		res, err := invoke(ctx, name, params)
		if err != nil {
			return llm.TextResult(err.Error(), true), nil
		}

		out := llm.ToolResult{IsError: res.IsError}
		for _, c := range res.Content {
			out.Content = append(out.Content, llm.ResultContent{Type: c.Type, Text: c.Text})
		}

		return out, nil
	}

	return r.ensure(name, def, handler)
}

// RegisterProviderTools pulls the provider's catalog and binds every entry.
func (r *Registrar) RegisterProviderTools(ctx context.Context, provider toolprovider.Provider) error {
	tools, err := provider.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("list provider tools: %w", err)
	}

	for _, t := range tools {
		sig := signatureFromProvider(t)
		if err := r.catalog.Upsert(sig); err != nil {
			r.logger.Warn("Provider tool rejected by catalog", "tool", t.Name, "error", err)
			continue
		}

		r.EnsureProviderToolRegistered(t.Name, t.InputSchema, provider.CallTool)
	}

	return nil
}

// EnsureToolsRegistered makes every named tool callable before a turn is
// dispatched, discovering signatures for names the catalog has never seen.
func (r *Registrar) EnsureToolsRegistered(ctx context.Context, names []string) {
	for _, name := range names {
		if name == "" {
			continue
		}

		if _, ok := r.catalog.Find(name); ok {
			if _, err := r.EnsureBuiltinRegistered(name); err != nil {
				r.logger.Warn("Failed to register known tool", "tool", name, "error", err)
			}

			continue
		}

		sig := r.discovery.Discover(ctx, name)
		r.EnsureDiscoveredRegistered(sig)
	}
}

func (r *Registrar) ensure(name string, def llm.ToolDefinition, handler llm.ToolHandler) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.registered[name]; ok {
		return true
	}

	if err := r.runtime.RegisterTool(name, def, handler); err != nil {
		r.logger.Warn("Runtime rejected tool registration", "tool", name, "error", err)
		return false
	}

	r.registered[name] = struct{}{}

	return true
}

func (r *Registrar) definition(sig catalog.ToolSignature) llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        sig.Name,
		Description: sig.Description,
		Parameters:  sig.ParametersMap(),
	}
}

func stubHandler(name string) llm.ToolHandler {
	return func(_ context.Context, _ map[string]any) (llm.ToolResult, error) {
		return llm.TextResult(fmt.Sprintf("Tool %q is declared for model use; execution happens outside this bridge.", name), false), nil
	}
}

func signatureFromProvider(t toolprovider.Tool) catalog.ToolSignature {
	sig := catalog.ToolSignature{
		Name:        t.Name,
		Description: t.Description,
		Parameters: catalog.JSONSchema{
			Type:     "object",
			Required: []string{},
		},
	}

	props, _ := t.InputSchema["properties"].(map[string]any)
	if len(props) > 0 {
		sig.Parameters.Properties = make(map[string]catalog.PropertySchema, len(props))

		for name, raw := range props {
			prop := catalog.PropertySchema{Type: "string"}

			if m, ok := raw.(map[string]any); ok {
				if t, ok := m["type"].(string); ok {
					prop.Type = t
				}

				if d, ok := m["description"].(string); ok {
					prop.Description = d
				}
			}

			sig.Parameters.Properties[name] = prop
		}
	}

	if required, ok := t.InputSchema["required"].([]any); ok {
		for _, req := range required {
			if s, ok := req.(string); ok {
				if _, present := sig.Parameters.Properties[s]; present {
					sig.Parameters.Required = append(sig.Parameters.Required, s)
				}
			}
		}
	}

	return sig
}
