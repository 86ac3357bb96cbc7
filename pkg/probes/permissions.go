package probes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/user/nsenso/pkg/engine"
	"github.com/user/nsenso/pkg/remediation"
)

const (
	KindWorldWritable = "world_writable_files"

	// Pseudo filesystems report every entry as writable, so they are pruned.
	worldWritableCommand  = "find / \\( -path /proc -o -path /sys -o -path /dev \\) -prune -o -type f -perm -o+w -print 2>/dev/null"
	worldWritableEvidence = "find / -type f -perm -o+w"
)

// FilePermissionProbe flags regular files any user can write to.
type FilePermissionProbe struct {
	Runner  Runner
	Catalog *remediation.Catalog
	Logger  zerolog.Logger
}

func (p *FilePermissionProbe) Name() string {
	return "file-permissions"
}

// Execute lists world-writable regular files outside the pseudo filesystems.
func (p *FilePermissionProbe) Execute(ctx context.Context) ([]engine.Observation, error) {
	out, err := p.Runner.Run(ctx, worldWritableCommand)
	if err != nil {
		return nil, err
	}
	files := nonEmptyLines(out)
	if len(files) == 0 {
		p.Logger.Debug().Str("probe", p.Name()).Msg("no world-writable files listed")
		return []engine.Observation{}, nil
	}
	return []engine.Observation{
		engine.Observe(engine.Critical, newFinding(p.Catalog,
			KindWorldWritable,
			fmt.Sprintf("Found %d world-writable files:\n%s", len(files), listing(files)),
			worldWritableEvidence,
		)),
	}, nil
}
