package wire

import (
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// StreamWriter frames SSE output and flushes after every event so tokens
// reach the client as they arrive.
type StreamWriter struct {
	w io.Writer
}

func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w}
}

// WriteData emits a bare `data:` frame (OpenAI chunk style).
func (s *StreamWriter) WriteData(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal stream payload: %w", err)
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}

	s.flush()

	return nil
}

// WriteEvent emits a named `event:`/`data:` frame (Anthropic style).
func (s *StreamWriter) WriteEvent(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal stream payload: %w", err)
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}

	s.flush()

	return nil
}

// WriteRaw emits a literal line, used for the [DONE] terminator.
func (s *StreamWriter) WriteRaw(line string) error {
	if _, err := fmt.Fprintf(s.w, "%s\n\n", line); err != nil {
		return err
	}

	s.flush()

	return nil
}

func (s *StreamWriter) flush() {
	if flusher, ok := s.w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// SetStreamingHeaders prepares a response writer for SSE output.
func SetStreamingHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// NewID builds a wire-format id with the given prefix.
func NewID(prefix string) string {
	return prefix + uuid.NewString()
}
