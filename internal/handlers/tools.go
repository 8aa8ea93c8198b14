package handlers

import (
	"log/slog"
	"net/http"

	"lmbridge/internal/catalog"
)

// ToolsHandler dumps the live tool catalog in function-declaration shape,
// built-ins first, then everything registered since startup.
type ToolsHandler struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

func NewToolsHandler(cat *catalog.Catalog, logger *slog.Logger) *ToolsHandler {
	return &ToolsHandler{catalog: cat, logger: logger}
}

func (h *ToolsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	sigs := h.catalog.All()
	tools := make([]map[string]any, 0, len(sigs))

	for _, sig := range sigs {
		tools = append(tools, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        sig.Name,
				"description": sig.Description,
				"parameters":  sig.ParametersMap(),
			},
		})
	}

	if err := writeJSON(w, http.StatusOK, map[string]any{"tools": tools}); err != nil {
		h.logger.Error("Failed to write tools listing", "error", err)
	}
}
