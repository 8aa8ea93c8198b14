package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"lmbridge/internal/catalog"
	"lmbridge/internal/config"
	"lmbridge/internal/llm"
	"lmbridge/internal/orchestrator"
	"lmbridge/internal/registrar"
	"lmbridge/internal/wire"
)

// MessagesHandler serves the Anthropic-shape messages endpoint.
type MessagesHandler struct {
	pipeline turnPipeline
	logger   *slog.Logger
}

func NewMessagesHandler(cfg *config.Manager, runtime llm.Runtime, cat *catalog.Catalog, reg *registrar.Registrar, orch *orchestrator.Orchestrator, logger *slog.Logger) *MessagesHandler {
	return &MessagesHandler{
		pipeline: turnPipeline{
			config:    cfg,
			runtime:   runtime,
			catalog:   cat,
			registrar: reg,
			orch:      orch,
			logger:    logger,
		},
		logger: logger,
	}
}

func (h *MessagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		handlePreflight(w)
		return
	}

	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrTypeInvalidRequest, "failed to read request body")
		return
	}

	req, err := wire.DecodeAnthropicRequest(body)
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	turn, err := h.pipeline.prepare(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrTypeInvalidRequest, err.Error())
		return
	}

	if req.Stream {
		h.stream(w, r, turn)
		return
	}

	h.respond(w, r, turn)
}

func (h *MessagesHandler) stream(w http.ResponseWriter, r *http.Request, turn *preparedTurn) {
	wire.SetStreamingHeaders(w)

	sink := wire.NewAnthropicStream(w, turn.model.ID(), wire.EstimateMessagesTokens(turn.messages))

	usage, err := h.pipeline.orch.Run(r.Context(), turn.model, turn.messages, turn.opts, sink)
	if err != nil {
		h.logger.Error("Messages dispatch failed", "model", turn.model.ID(), "error", err)
		writeError(w, http.StatusInternalServerError, ErrTypeInternal, "model dispatch failed")

		return
	}

	if err := sink.Finish(wire.FillUsage(usage, turn.messages, "")); err != nil {
		h.logger.Debug("Client disconnected before stream finish", "error", err)
	}
}

func (h *MessagesHandler) respond(w http.ResponseWriter, r *http.Request, turn *preparedTurn) {
	rec := &wire.TurnRecorder{}

	usage, err := h.pipeline.orch.Run(r.Context(), turn.model, turn.messages, turn.opts, rec)
	if err != nil {
		h.logger.Error("Messages dispatch failed", "model", turn.model.ID(), "error", err)
		writeError(w, http.StatusInternalServerError, ErrTypeInternal, "model dispatch failed")

		return
	}

	resp := wire.BuildAnthropicResponse(turn.model.ID(), rec, wire.FillUsage(usage, turn.messages, rec.Content()))

	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to write messages response", "error", err)
	}
}
