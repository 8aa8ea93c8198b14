package handlers

import (
	"log/slog"
	"net/http"

	"lmbridge/internal/llm"
)

// ModelsHandler lists the models the runtime can serve.
type ModelsHandler struct {
	runtime llm.Runtime
	logger  *slog.Logger
}

func NewModelsHandler(runtime llm.Runtime, logger *slog.Logger) *ModelsHandler {
	return &ModelsHandler{runtime: runtime, logger: logger}
}

func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	infos, err := h.runtime.ListModels(r.Context())
	if err != nil {
		h.logger.Error("Failed to list models", "error", err)
		writeError(w, http.StatusInternalServerError, ErrTypeInternal, "model runtime unavailable")

		return
	}

	models := make([]map[string]any, 0, len(infos))
	for _, info := range infos {
		models = append(models, map[string]any{
			"id":       info.ID,
			"object":   "model",
			"created":  info.Created,
			"owned_by": info.OwnedBy,
		})
	}

	if err := writeJSON(w, http.StatusOK, models); err != nil {
		h.logger.Error("Failed to write model listing", "error", err)
	}
}
