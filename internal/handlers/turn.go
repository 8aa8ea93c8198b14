package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"lmbridge/internal/catalog"
	"lmbridge/internal/config"
	"lmbridge/internal/llm"
	"lmbridge/internal/orchestrator"
	"lmbridge/internal/prompt"
	"lmbridge/internal/registrar"
	"lmbridge/internal/wire"
)

var errModelNotFound = errors.New("no requested or fallback model is available")

// turnPipeline is the format-agnostic middle of both chat endpoints:
// tool reconciliation, prompt normalization, model resolution, and the
// orchestrated dispatch. The wire handlers own only decode and encode.
type turnPipeline struct {
	config    *config.Manager
	runtime   llm.Runtime
	catalog   *catalog.Catalog
	registrar *registrar.Registrar
	orch      *orchestrator.Orchestrator
	logger    *slog.Logger
}

// preparedTurn is everything the dispatch needs, resolved up front so
// every failure mode surfaces before the first byte is written.
type preparedTurn struct {
	model    llm.Model
	messages []llm.Message
	opts     llm.Options
}

func (p *turnPipeline) prepare(ctx context.Context, req *wire.Request) (*preparedTurn, error) {
	p.registrar.EnsureToolsRegistered(ctx, req.ToolNames())

	cfg := p.config.Get()

	messages, folded := prompt.Normalize(req.Messages, prompt.Config{
		DefaultText: cfg.SystemPrompt.Default,
		Format:      prompt.Format(cfg.SystemPrompt.Format),
		Enabled:     cfg.SystemPrompt.IsEnabled(),
	})
	if folded {
		p.logger.Debug("Folded system content into message sequence",
			"format", cfg.SystemPrompt.Format,
			"messages", len(messages),
		)
	}

	model, err := p.resolveModel(ctx, cfg, req.Model)
	if err != nil {
		return nil, err
	}

	return &preparedTurn{
		model:    model,
		messages: messages,
		opts: llm.Options{
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
			Tools:       p.advertisedTools(req),
		},
	}, nil
}

// resolveModel tries the requested id, then the configured fallback.
func (p *turnPipeline) resolveModel(ctx context.Context, cfg *config.Config, requested string) (llm.Model, error) {
	if requested == "" {
		requested = cfg.DefaultModel
	}

	candidates := []string{requested}
	if cfg.FallbackModel != "" && cfg.FallbackModel != requested {
		candidates = append(candidates, cfg.FallbackModel)
	}

	for _, id := range candidates {
		if id == "" {
			continue
		}

		models, err := p.runtime.SelectModels(ctx, id)
		if err != nil {
			p.logger.Warn("Model lookup failed", "model", id, "error", err)
			continue
		}

		if len(models) > 0 {
			if id != requested {
				p.logger.Info("Falling back to configured model", "requested", requested, "model", id)
			}

			return models[0], nil
		}
	}

	return nil, errModelNotFound
}

// advertisedTools renders the request's tool set from the catalog, which
// is authoritative after reconciliation. Declared parameters only back a
// name the catalog somehow still misses.
func (p *turnPipeline) advertisedTools(req *wire.Request) []llm.ToolDefinition {
	names := req.ToolNames()
	if len(names) == 0 {
		return nil
	}

	declared := make(map[string]wire.DeclaredTool, len(req.Tools))
	for _, t := range req.Tools {
		declared[t.Name] = t
	}

	defs := make([]llm.ToolDefinition, 0, len(names))

	for _, name := range names {
		if sig, ok := p.catalog.Find(name); ok {
			defs = append(defs, llm.ToolDefinition{
				Name:        sig.Name,
				Description: sig.Description,
				Parameters:  sig.ParametersMap(),
			})

			continue
		}

		t := declared[name]
		params := t.Parameters

		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}

		defs = append(defs, llm.ToolDefinition{
			Name:        name,
			Description: t.Description,
			Parameters:  params,
		})
	}

	return defs
}

// handlePreflight answers CORS preflight for the chat endpoints.
func handlePreflight(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.WriteHeader(http.StatusNoContent)
}

func writeDecodeError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, ErrTypeInvalidRequest, err.Error())
}
