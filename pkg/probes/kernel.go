package probes

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/user/nsenso/pkg/engine"
	"github.com/user/nsenso/pkg/remediation"
)

const (
	KindKernelParameters = "kernel_parameters"

	sysctlCommand  = "sysctl -a 2>/dev/null"
	sysctlEvidence = "sysctl -a | grep kernel"
)

// KernelProbe reports the current kernel tunables. It is informational and
// never raises anything above Info.
type KernelProbe struct {
	Runner  Runner
	Catalog *remediation.Catalog
	Logger  zerolog.Logger
}

func (p *KernelProbe) Name() string {
	return "kernel-hardening"
}

// Execute captures the kernel.* sysctl values as one info finding.
func (p *KernelProbe) Execute(ctx context.Context) ([]engine.Observation, error) {
	out, err := p.Runner.Run(ctx, sysctlCommand)
	if err != nil {
		return nil, err
	}
	var params []string
	for _, line := range nonEmptyLines(out) {
		if strings.HasPrefix(line, "kernel.") {
			params = append(params, line)
		}
	}
	if len(params) == 0 {
		p.Logger.Debug().Str("probe", p.Name()).Msg("sysctl printed no kernel parameters")
		return []engine.Observation{}, nil
	}
	return []engine.Observation{
		engine.Observe(engine.Info, newFinding(p.Catalog,
			KindKernelParameters,
			"Current kernel parameters:\n"+listing(params),
			sysctlEvidence,
		)),
	}, nil
}
