package wire

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"lmbridge/internal/llm"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// EstimateTokens approximates the token count of text with the cl100k_base
// encoding. Falls back to a whitespace-free quarter-length guess if the
// encoding cannot be loaded.
func EstimateTokens(text string) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})

	if encoding == nil {
		return len(text) / 4
	}

	return len(encoding.Encode(text, nil, nil))
}

// EstimateMessagesTokens sums the token estimate over message contents.
func EstimateMessagesTokens(messages []llm.Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokens(m.Content)
	}

	return total
}

// FillUsage returns runtime-reported usage when present, otherwise an
// estimate from the request and response text.
func FillUsage(reported *llm.Usage, input []llm.Message, outputText string) llm.Usage {
	if reported != nil && (reported.InputTokens > 0 || reported.OutputTokens > 0) {
		return *reported
	}

	return llm.Usage{
		InputTokens:  EstimateMessagesTokens(input),
		OutputTokens: EstimateTokens(outputText),
	}
}
