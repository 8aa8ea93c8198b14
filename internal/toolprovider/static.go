package toolprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// StaticProvider serves a tool catalog loaded from a JSON file. Tools are
// declarative; invoking one returns the catalog's canned result, or a
// plain acknowledgment when none is configured. It stands in for a live
// provider connection in deployments that only need declared signatures.
type StaticProvider struct {
	mu    sync.RWMutex
	tools []staticTool
}

type staticTool struct {
	Tool
	Result string `json:"result,omitempty"`
}

type staticCatalog struct {
	Tools []staticTool `json:"tools"`
}

func NewStaticProvider(path string) (*StaticProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tool catalog: %w", err)
	}

	var cat staticCatalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("unmarshal tool catalog: %w", err)
	}

	return &StaticProvider{tools: cat.Tools}, nil
}

func (p *StaticProvider) ListTools(_ context.Context) ([]Tool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	tools := make([]Tool, 0, len(p.tools))
	for _, t := range p.tools {
		tools = append(tools, t.Tool)
	}

	return tools, nil
}

func (p *StaticProvider) CallTool(_ context.Context, name string, _ map[string]any) (CallResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, t := range p.tools {
		if t.Name != name {
			continue
		}

		text := t.Result
		if text == "" {
			text = fmt.Sprintf("Tool %q acknowledged the call.", name)
		}

		return CallResult{Content: []CallContent{{Type: "text", Text: text}}}, nil
	}

	return CallResult{}, fmt.Errorf("tool %q not in catalog", name)
}
