package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecProbeRejectsUnsafeNames(t *testing.T) {
	probe := NewExecProbe(testLogger())

	for _, name := range []string{"", "rm -rf", "a;b", "$(whoami)", "../escape", "-flag"} {
		_, ok := probe.Probe(context.Background(), name)
		assert.False(t, ok, "name %q must not be probed", name)
	}
}

func TestExecProbeKnownCommand(t *testing.T) {
	probe := NewExecProbe(testLogger())

	// `which sh` answers on any POSIX host; skip if the environment is
	// stripped down further than that.
	sig, ok := probe.Probe(context.Background(), "sh")
	if !ok {
		t.Skip("no sh on PATH")
	}

	require.Equal(t, "sh", sig.Name)
	assert.Equal(t, []string{"input"}, sig.Parameters.Required)
}
