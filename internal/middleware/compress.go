package middleware

import (
	"compress/gzip"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// NewCompressionMiddleware compresses buffered JSON responses with brotli
// or gzip per Accept-Encoding. Event streams are left untouched; they are
// flushed per token and must not sit in a compressor's window.
func NewCompressionMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoding := pickEncoding(r.Header.Get("Accept-Encoding"))
			if encoding == "" {
				next.ServeHTTP(w, r)
				return
			}

			cw := &compressWriter{
				ResponseWriter: w,
				encoding:       encoding,
				logger:         logger,
			}
			defer cw.Close()

			next.ServeHTTP(cw, r)
		})
	}
}

func pickEncoding(accept string) string {
	if strings.Contains(accept, "br") {
		return "br"
	}

	if strings.Contains(accept, "gzip") {
		return "gzip"
	}

	return ""
}

type compressWriter struct {
	http.ResponseWriter
	encoding    string
	logger      *slog.Logger
	compressor  io.WriteCloser
	passthrough bool
	headersSent bool
}

func (cw *compressWriter) WriteHeader(status int) {
	if !cw.headersSent {
		cw.headersSent = true

		// Streaming responses bypass compression entirely.
		if strings.Contains(cw.Header().Get("Content-Type"), "text/event-stream") {
			cw.passthrough = true
		} else {
			cw.Header().Set("Content-Encoding", cw.encoding)
			cw.Header().Del("Content-Length")

			switch cw.encoding {
			case "br":
				cw.compressor = brotli.NewWriter(cw.ResponseWriter)
			case "gzip":
				cw.compressor = gzip.NewWriter(cw.ResponseWriter)
			}
		}
	}

	cw.ResponseWriter.WriteHeader(status)
}

func (cw *compressWriter) Write(data []byte) (int, error) {
	if !cw.headersSent {
		cw.WriteHeader(http.StatusOK)
	}

	if cw.passthrough || cw.compressor == nil {
		return cw.ResponseWriter.Write(data)
	}

	return cw.compressor.Write(data)
}

func (cw *compressWriter) Flush() {
	if flusher, ok := cw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (cw *compressWriter) Close() {
	if cw.compressor == nil {
		return
	}

	if err := cw.compressor.Close(); err != nil {
		cw.logger.Debug("Compressor close failed", "error", err)
	}
}
