package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedBuiltins(t *testing.T) {
	cat := New()
	cat.SeedBuiltins()

	assert.Equal(t, len(builtinSignatures), cat.Len())

	// Seeding again must not duplicate or reorder anything.
	before := cat.All()
	cat.SeedBuiltins()
	assert.Equal(t, before, cat.All())

	sig, ok := cat.Find("grep")
	require.True(t, ok)
	assert.Equal(t, "grep", sig.Name)
	assert.NotEmpty(t, sig.Description)
	assert.Contains(t, sig.Parameters.Properties, "pattern")
}

func TestSeedBuiltinsOrder(t *testing.T) {
	cat := New()
	cat.SeedBuiltins()

	all := cat.All()
	require.NotEmpty(t, all)
	assert.Equal(t, "ls", all[0].Name, "built-ins keep their table order")
}

func TestUpsertInsertsAfterBuiltins(t *testing.T) {
	cat := New()
	cat.SeedBuiltins()

	err := cat.Upsert(ToolSignature{
		Name:        "docker",
		Description: "Container tool",
		Parameters:  JSONSchema{Type: "object", Required: []string{}},
	})
	require.NoError(t, err)

	all := cat.All()
	assert.Equal(t, "docker", all[len(all)-1].Name)
}

func TestUpsertReplaceKeepsPosition(t *testing.T) {
	cat := New()
	cat.SeedBuiltins()

	var lsIndex int
	for i, sig := range cat.All() {
		if sig.Name == "ls" {
			lsIndex = i
		}
	}

	err := cat.Upsert(ToolSignature{
		Name:        "ls",
		Description: "replacement",
		Parameters:  JSONSchema{Type: "object", Required: []string{}},
	})
	require.NoError(t, err)

	all := cat.All()
	assert.Equal(t, "ls", all[lsIndex].Name, "replacement must not move the entry")
	assert.Equal(t, "replacement", all[lsIndex].Description)
	assert.Equal(t, len(builtinSignatures), cat.Len())
}

func TestUpsertRejectsInvalidSignature(t *testing.T) {
	cat := New()

	err := cat.Upsert(ToolSignature{})
	assert.ErrorIs(t, err, ErrInvalidSignature)

	err = cat.Upsert(ToolSignature{
		Name: "broken",
		Parameters: JSONSchema{
			Type:     "object",
			Required: []string{"missing"},
		},
	})
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, ok := cat.Find("broken")
	assert.False(t, ok, "rejected signature must not be stored")
}

func TestBuiltinSignaturesAreValid(t *testing.T) {
	for _, sig := range builtinSignatures {
		assert.NoError(t, sig.Validate(), "builtin %q", sig.Name)
	}
}

func TestParametersMap(t *testing.T) {
	sig := ToolSignature{
		Name:        "cat",
		Description: "Print files",
		Parameters: JSONSchema{
			Type: "object",
			Properties: map[string]PropertySchema{
				"files": {
					Type:        "array",
					Description: "Files to print",
					Items:       &PropertySchema{Type: "string"},
				},
			},
			Required: []string{"files"},
		},
	}

	m := sig.ParametersMap()
	assert.Equal(t, "object", m["type"])
	assert.Equal(t, []string{"files"}, m["required"])

	props, ok := m["properties"].(map[string]any)
	require.True(t, ok)

	files, ok := props["files"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "array", files["type"])
	assert.Equal(t, map[string]any{"type": "string"}, files["items"])
}
