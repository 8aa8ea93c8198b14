package discovery

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"regexp"
	"time"

	"lmbridge/internal/catalog"
)

const execProbeTimeout = 3 * time.Second

var toolNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ExecProbe introspects the local environment by running a short sequence
// of read-only commands against the tool name. It is compiled in but only
// wired when discovery.enable_probes is set; environments without local
// command execution run the engine with zero probes.
type ExecProbe struct {
	logger *slog.Logger
}

func NewExecProbe(logger *slog.Logger) *ExecProbe {
	if logger == nil {
		logger = slog.Default()
	}

	return &ExecProbe{logger: logger}
}

func (p *ExecProbe) Probe(ctx context.Context, name string) (catalog.ToolSignature, bool) {
	if !toolNamePattern.MatchString(name) {
		return catalog.ToolSignature{}, false
	}

	attempts := [][]string{
		{name, "--help"},
		{"which", name},
	}

	for _, argv := range attempts {
		if p.run(ctx, argv) {
			p.logger.Debug("Probe command produced output", "tool", name, "command", argv[0])
			return MinimalSignature(name), true
		}
	}

	return catalog.ToolSignature{}, false
}

func (p *ExecProbe) run(ctx context.Context, argv []string) bool {
	ctx, cancel := context.WithTimeout(ctx, execProbeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return false
	}

	return len(bytes.TrimSpace(out.Bytes())) > 0
}
