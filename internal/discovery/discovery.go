package discovery

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"lmbridge/internal/catalog"
)

// Probe is an optional external introspection strategy. A probe returns
// false when it cannot produce a signature; the engine then moves on.
type Probe interface {
	Probe(ctx context.Context, name string) (catalog.ToolSignature, bool)
}

// Engine synthesizes tool signatures for names the catalog has never seen.
// Resolution order: static pattern table, then configured probes, then the
// generic fallback. Discovery never fails; the fallback guarantees a
// usable signature for any input.
type Engine struct {
	probes []Probe
	logger *slog.Logger
	group  singleflight.Group
}

func NewEngine(logger *slog.Logger, probes ...Probe) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		probes: probes,
		logger: logger,
	}
}

// Discover returns a signature for name. Concurrent discoveries of the
// same name are collapsed into one resolution.
func (e *Engine) Discover(ctx context.Context, name string) catalog.ToolSignature {
	v, _, _ := e.group.Do(name, func() (any, error) {
		return e.resolve(ctx, name), nil
	})

	return v.(catalog.ToolSignature)
}

func (e *Engine) resolve(ctx context.Context, name string) catalog.ToolSignature {
	if sig, ok := patternTable[name]; ok {
		e.logger.Debug("Tool resolved from pattern table", "tool", name)
		return sig
	}

	for _, probe := range e.probes {
		if sig, ok := probe.Probe(ctx, name); ok {
			e.logger.Info("Tool resolved by probe", "tool", name)
			return sig
		}
	}

	e.logger.Info("Tool resolved by generic fallback", "tool", name)

	return GenericSignature(name)
}

// DiscoveredDescription is the description attached to signatures not
// taken from the pattern table.
func DiscoveredDescription(name string) string {
	return fmt.Sprintf("Dynamically discovered tool: %s", name)
}

// GenericSignature is the last-resort signature synthesized for any name.
func GenericSignature(name string) catalog.ToolSignature {
	return catalog.ToolSignature{
		Name:        name,
		Description: DiscoveredDescription(name),
		Parameters: catalog.JSONSchema{
			Type: "object",
			Properties: map[string]catalog.PropertySchema{
				"args": {
					Type:        "array",
					Description: "Argument list",
					Items:       &catalog.PropertySchema{Type: "string"},
				},
				"input": {
					Type:        "string",
					Description: "Raw input",
				},
			},
			Required: []string{},
		},
	}
}

// MinimalSignature is the shape produced from a successful probe.
func MinimalSignature(name string) catalog.ToolSignature {
	return catalog.ToolSignature{
		Name:        name,
		Description: DiscoveredDescription(name),
		Parameters: catalog.JSONSchema{
			Type: "object",
			Properties: map[string]catalog.PropertySchema{
				"input": {
					Type:        "string",
					Description: "Raw input",
				},
			},
			Required: []string{"input"},
		},
	}
}
