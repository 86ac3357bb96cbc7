package probes

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/user/nsenso/pkg/engine"
	"github.com/user/nsenso/pkg/remediation"
)

const (
	KindRootProcesses = "root_processes"

	psCommand  = "ps aux 2>/dev/null"
	psEvidence = "ps aux | grep root"
)

// ProcessProbe flags processes owned by root.
type ProcessProbe struct {
	Runner  Runner
	Catalog *remediation.Catalog
	Logger  zerolog.Logger
}

func (p *ProcessProbe) Name() string {
	return "process-security"
}

// Execute reports the processes owned by root.
func (p *ProcessProbe) Execute(ctx context.Context) ([]engine.Observation, error) {
	out, err := p.Runner.Run(ctx, psCommand)
	if err != nil {
		return nil, err
	}
	procs := rootProcesses(out)
	if len(procs) == 0 {
		p.Logger.Debug().Str("probe", p.Name()).Msg("no root processes listed")
		return []engine.Observation{}, nil
	}
	return []engine.Observation{
		engine.Observe(engine.Warning, newFinding(p.Catalog,
			KindRootProcesses,
			fmt.Sprintf("Processes running as root (%d):\n%s", len(procs), listing(procs)),
			psEvidence,
		)),
	}, nil
}

// rootProcesses keeps `ps aux` rows whose USER column is root. The header
// row is skipped.
func rootProcesses(psOutput string) []string {
	var rows []string
	for _, line := range nonEmptyLines(psOutput) {
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != "root" {
			continue
		}
		rows = append(rows, line)
	}
	return rows
}
