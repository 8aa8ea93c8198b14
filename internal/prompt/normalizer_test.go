package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lmbridge/internal/llm"
)

func countRole(messages []llm.Message, role string) int {
	n := 0
	for _, m := range messages {
		if m.Role == role {
			n++
		}
	}

	return n
}

func TestNormalizeMergeWrapsFirstUserMessage(t *testing.T) {
	in := []llm.Message{
		{Role: llm.RoleSystem, Content: "Be helpful."},
		{Role: llm.RoleUser, Content: "Hi"},
	}

	out, folded := Normalize(in, Config{Format: FormatMerge})
	require.True(t, folded)
	require.Len(t, out, 1)

	assert.Equal(t, llm.RoleUser, out[0].Role)
	assert.Contains(t, out[0].Content, "<SYSTEM_INSTRUCTIONS>\nBe helpful.\n</SYSTEM_INSTRUCTIONS>")
	assert.Contains(t, out[0].Content, "<USER_MESSAGE>\nHi\n</USER_MESSAGE>")
	assert.True(t, strings.Index(out[0].Content, "SYSTEM_INSTRUCTIONS") < strings.Index(out[0].Content, "USER_MESSAGE"))
}

func TestNormalizeMergeNoUserMessages(t *testing.T) {
	in := []llm.Message{{Role: llm.RoleSystem, Content: "Be helpful."}}

	out, folded := Normalize(in, Config{Format: FormatMerge})
	require.True(t, folded)
	require.Len(t, out, 1)
	assert.Equal(t, llm.RoleUser, out[0].Role)
	assert.Contains(t, out[0].Content, "Be helpful.")
}

func TestNormalizeAssistantAck(t *testing.T) {
	in := []llm.Message{
		{Role: llm.RoleSystem, Content: "Rules."},
		{Role: llm.RoleUser, Content: "Hello"},
		{Role: llm.RoleAssistant, Content: "Hey"},
	}

	out, folded := Normalize(in, Config{Format: FormatAssistantAck})
	require.True(t, folded)
	require.Len(t, out, len(in)+2)

	assert.Equal(t, llm.RoleAssistant, out[0].Role)
	assert.Equal(t, ackText, out[0].Content)

	assert.Equal(t, llm.RoleUser, out[1].Role)
	assert.Contains(t, out[1].Content, "<INSTRUCTIONS>\nRules.\n</INSTRUCTIONS>")
	assert.Contains(t, out[1].Content, ackTrailer)

	// Originals follow, the system message coerced to user.
	assert.Equal(t, 0, countRole(out, llm.RoleSystem))
	assert.Equal(t, "Hello", out[3].Content)
	assert.Equal(t, "Hey", out[4].Content)
}

func TestNormalizeSimplePrepend(t *testing.T) {
	in := []llm.Message{
		{Role: llm.RoleSystem, Content: "Be terse."},
		{Role: llm.RoleUser, Content: "Hi"},
		{Role: llm.RoleUser, Content: "Again"},
	}

	out, folded := Normalize(in, Config{Format: FormatSimplePrepend})
	require.True(t, folded)
	require.Len(t, out, 2)
	assert.Equal(t, "Be terse.\n\nHi", out[0].Content)
	assert.Equal(t, "Again", out[1].Content, "only the first message is touched")
}

func TestNormalizeNoSystemContentPassthrough(t *testing.T) {
	in := []llm.Message{
		{Role: llm.RoleUser, Content: "Hi"},
		{Role: llm.RoleAssistant, Content: "Hello"},
	}

	for _, format := range []Format{FormatMerge, FormatAssistantAck, FormatSimplePrepend} {
		out, folded := Normalize(in, Config{Format: format})
		assert.False(t, folded, "format %s", format)
		assert.Equal(t, in, out, "format %s", format)
	}
}

func TestNormalizeDefaultTextGatedByEnabled(t *testing.T) {
	in := []llm.Message{{Role: llm.RoleUser, Content: "Hi"}}

	out, folded := Normalize(in, Config{Format: FormatSimplePrepend, DefaultText: "Default rules.", Enabled: true})
	require.True(t, folded)
	assert.Equal(t, "Default rules.\n\nHi", out[0].Content)

	out, folded = Normalize(in, Config{Format: FormatSimplePrepend, DefaultText: "Default rules.", Enabled: false})
	assert.False(t, folded)
	assert.Equal(t, "Hi", out[0].Content)
}

func TestNormalizeJoinsMultipleSystemMessages(t *testing.T) {
	in := []llm.Message{
		{Role: llm.RoleSystem, Content: "One."},
		{Role: llm.RoleUser, Content: "Hi"},
		{Role: llm.RoleSystem, Content: "Two."},
	}

	out, folded := Normalize(in, Config{Format: FormatSimplePrepend, DefaultText: "Zero.", Enabled: true})
	require.True(t, folded)
	assert.Equal(t, "Zero.\n\nOne.\n\nTwo.\n\nHi", out[0].Content)
}

func TestNormalizeNeverEmitsSystemRole(t *testing.T) {
	in := []llm.Message{
		{Role: llm.RoleSystem, Content: "Rules."},
		{Role: llm.RoleUser, Content: "Hi"},
	}

	for _, format := range []Format{FormatMerge, FormatAssistantAck, FormatSimplePrepend} {
		out, _ := Normalize(in, Config{Format: format})
		assert.Equal(t, 0, countRole(out, llm.RoleSystem), "format %s", format)
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := []llm.Message{
		{Role: llm.RoleSystem, Content: "Rules."},
		{Role: llm.RoleUser, Content: "Hi"},
	}

	_, _ = Normalize(in, Config{Format: FormatMerge})

	assert.Equal(t, llm.RoleSystem, in[0].Role)
	assert.Equal(t, "Hi", in[1].Content)
}
