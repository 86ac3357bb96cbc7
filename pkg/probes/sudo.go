package probes

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/user/nsenso/pkg/engine"
	"github.com/user/nsenso/pkg/remediation"
)

const (
	KindSudoMisconfig = "sudo_misconfig"
	KindSUIDBinaries  = "suid_binaries"

	// -n keeps sudo from prompting for a password when stdin is not a tty.
	sudoListCommand  = "sudo -n -l 2>/dev/null"
	sudoListEvidence = "sudo -l"
	suidCommand      = "find / -perm -4000 -type f 2>/dev/null"
	suidEvidence     = "find / -perm -4000 -type f"
)

// SudoProbe flags passwordless sudo grants and inventories SUID executables.
type SudoProbe struct {
	Runner  Runner
	Catalog *remediation.Catalog
	Logger  zerolog.Logger
}

func (p *SudoProbe) Name() string {
	return "sudo-misconfiguration"
}

// Execute checks sudo -l for NOPASSWD grants and lists SUID files.
func (p *SudoProbe) Execute(ctx context.Context) ([]engine.Observation, error) {
	obs := []engine.Observation{}

	sudoOut, err := p.Runner.Run(ctx, sudoListCommand)
	if err != nil {
		return nil, err
	}
	if strings.Contains(sudoOut, "NOPASSWD") {
		obs = append(obs, engine.Observe(engine.Critical, newFinding(p.Catalog,
			KindSudoMisconfig,
			"NOPASSWD sudo access detected",
			sudoListEvidence,
		)))
	}

	suidOut, err := p.Runner.Run(ctx, suidCommand)
	if err != nil {
		return nil, err
	}
	if binaries := nonEmptyLines(suidOut); len(binaries) > 0 {
		obs = append(obs, engine.Observe(engine.Warning, newFinding(p.Catalog,
			KindSUIDBinaries,
			"Found SUID binaries:\n"+listing(binaries),
			suidEvidence,
		)))
	} else {
		p.Logger.Debug().Str("probe", p.Name()).Msg("no SUID binaries listed")
	}
	return obs, nil
}
