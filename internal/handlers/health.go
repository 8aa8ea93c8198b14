package handlers

import (
	"log/slog"
	"net/http"
)

// RootHandler serves the liveness endpoints and catches every path no
// other route claims.
type RootHandler struct {
	logger *slog.Logger
}

func NewRootHandler(logger *slog.Logger) *RootHandler {
	return &RootHandler{logger: logger}
}

func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/health" {
		writeError(w, http.StatusNotFound, ErrTypeNotFound, "unknown path: "+r.URL.Path)
		return
	}

	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
