package prompt

import (
	"strings"

	"lmbridge/internal/llm"
)

// Format selects how system-role content is folded into the message
// sequence for a runtime without a native system channel.
type Format string

const (
	FormatMerge         Format = "merge"
	FormatAssistantAck  Format = "assistant_acknowledgment"
	FormatSimplePrepend Format = "simple_prepend"
)

const (
	ackText     = "I understand and will follow these instructions carefully."
	ackTrailer  = "Please proceed with following these instructions."
	systemOpen  = "<SYSTEM_INSTRUCTIONS>"
	systemClose = "</SYSTEM_INSTRUCTIONS>"
	userOpen    = "<USER_MESSAGE>"
	userClose   = "</USER_MESSAGE>"
	instrOpen   = "<INSTRUCTIONS>"
	instrClose  = "</INSTRUCTIONS>"
)

// Config is the per-request normalization configuration, consumed
// read-only. Enabled gates the default text only; system-role messages in
// the request are always folded.
type Config struct {
	DefaultText string
	Format      Format
	Enabled     bool
}

// Normalize rewrites messages so no system role survives, folding system
// content per the configured format. The input is never mutated. The
// returned flag reports whether any system content was actually applied.
func Normalize(messages []llm.Message, cfg Config) ([]llm.Message, bool) {
	var system, rest []llm.Message

	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			system = append(system, m)
		} else {
			rest = append(rest, m)
		}
	}

	var parts []string

	if cfg.Enabled && cfg.DefaultText != "" {
		parts = append(parts, cfg.DefaultText)
	}

	for _, m := range system {
		if m.Content != "" {
			parts = append(parts, m.Content)
		}
	}

	content := strings.Join(parts, "\n\n")
	if strings.TrimSpace(content) == "" {
		return coerceSystemToUser(rest), false
	}

	switch cfg.Format {
	case FormatAssistantAck:
		return applyAssistantAck(messages, content), true
	case FormatSimplePrepend:
		return applySimplePrepend(rest, content), true
	default:
		return applyMerge(rest, content), true
	}
}

func applyMerge(rest []llm.Message, system string) []llm.Message {
	block := wrap(systemOpen, system, systemClose)

	if len(rest) == 0 {
		return []llm.Message{{Role: llm.RoleUser, Content: block}}
	}

	out := make([]llm.Message, len(rest))
	copy(out, rest)

	first := out[0]
	first.Content = block + "\n\n" + wrap(userOpen, first.Content, userClose)
	out[0] = first

	return out
}

func applyAssistantAck(original []llm.Message, system string) []llm.Message {
	out := make([]llm.Message, 0, len(original)+2)

	out = append(out,
		llm.Message{Role: llm.RoleAssistant, Content: ackText},
		llm.Message{Role: llm.RoleUser, Content: wrap(instrOpen, system, instrClose) + "\n\n" + ackTrailer},
	)

	return append(out, coerceSystemToUser(original)...)
}

func applySimplePrepend(rest []llm.Message, system string) []llm.Message {
	if len(rest) == 0 {
		return []llm.Message{{Role: llm.RoleUser, Content: system}}
	}

	out := make([]llm.Message, len(rest))
	copy(out, rest)

	first := out[0]
	first.Content = system + "\n\n" + first.Content
	out[0] = first

	return out
}

// coerceSystemToUser relabels any residual system role. The callers'
// partitioning should make this a no-op; it guards malformed input so the
// output invariant holds regardless.
func coerceSystemToUser(messages []llm.Message) []llm.Message {
	out := make([]llm.Message, len(messages))
	copy(out, messages)

	for i := range out {
		if out[i].Role == llm.RoleSystem {
			out[i].Role = llm.RoleUser
		}
	}

	return out
}

func wrap(open, content, close string) string {
	return open + "\n" + content + "\n" + close
}
