// Package probes holds the built-in host inspections. Each probe owns the
// commands it runs and the rules that turn their output into findings.
package probes

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/user/nsenso/pkg/engine"
	"github.com/user/nsenso/pkg/remediation"
)

// maxListedLines caps how many lines of captured output go into a finding
// description.
const maxListedLines = 100

// Deps are the collaborators shared by the built-in probes.
type Deps struct {
	Runner  Runner
	Fs      afero.Fs
	Catalog *remediation.Catalog
	Logger  zerolog.Logger
}

// Default returns the built-in probes in their report order.
func Default(deps Deps) []engine.Probe {
	return []engine.Probe{
		&SudoProbe{Runner: deps.Runner, Catalog: deps.Catalog, Logger: deps.Logger},
		&FilePermissionProbe{Runner: deps.Runner, Catalog: deps.Catalog, Logger: deps.Logger},
		&UserSecurityProbe{Fs: deps.Fs, Catalog: deps.Catalog, Logger: deps.Logger},
		&ProcessProbe{Runner: deps.Runner, Catalog: deps.Catalog, Logger: deps.Logger},
		&KernelProbe{Runner: deps.Runner, Catalog: deps.Catalog, Logger: deps.Logger},
	}
}

// NewRegistry builds a registry of the built-in probes.
func NewRegistry(deps Deps) (*engine.Registry, error) {
	return engine.NewRegistry(Default(deps)...)
}

func newFinding(c *remediation.Catalog, kind, description, command string) engine.Finding {
	return engine.NewFinding(kind, description, command, c.Text(kind))
}

// nonEmptyLines splits output into trimmed, non-blank lines.
func nonEmptyLines(output string) []string {
	var lines []string
	for _, l := range strings.Split(output, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// listing joins lines for a description, truncating long captures.
func listing(lines []string) string {
	if len(lines) <= maxListedLines {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:maxListedLines], "\n") +
		fmt.Sprintf("\n... and %d more", len(lines)-maxListedLines)
}
