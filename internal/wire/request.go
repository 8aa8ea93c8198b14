package wire

import (
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"lmbridge/internal/llm"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Request formats.
const (
	FormatOpenAI    = "openai"
	FormatAnthropic = "anthropic"
)

var (
	ErrMalformedBody   = errors.New("malformed request body")
	ErrMissingMessages = errors.New("request has no messages")
)

// DeclaredTool is a caller-declared tool signature from either wire format.
type DeclaredTool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Request is the validated, format-agnostic form of an inbound chat
// request, decoded once at the route boundary.
type Request struct {
	Format      string
	Model       string
	Messages    []llm.Message
	Tools       []DeclaredTool
	Stream      bool
	MaxTokens   int
	Temperature *float64
}

// ToolNames returns the tools this request references: every declared tool
// plus heuristic mentions found in user message text.
func (r *Request) ToolNames() []string {
	seen := make(map[string]struct{})

	var names []string

	add := func(name string) {
		if name == "" {
			return
		}

		if _, ok := seen[name]; ok {
			return
		}

		seen[name] = struct{}{}
		names = append(names, name)
	}

	for _, t := range r.Tools {
		add(t.Name)
	}

	for _, m := range r.Messages {
		if m.Role != llm.RoleUser {
			continue
		}

		for _, name := range extractToolMentions(m.Content) {
			add(name)
		}
	}

	return names
}

// flattenContent renders a message content value to text. Strings pass
// through; structured part lists are joined by their text fields; anything
// else is serialized to JSON.
func flattenContent(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		var sb strings.Builder

		for _, item := range v {
			part, ok := item.(map[string]any)
			if !ok {
				continue
			}

			text, ok := part["text"].(string)
			if !ok || text == "" {
				continue
			}

			if sb.Len() > 0 {
				sb.WriteString("\n")
			}

			sb.WriteString(text)
		}

		return sb.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(data)
	}
}
