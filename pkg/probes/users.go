package probes

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/user/nsenso/pkg/engine"
	"github.com/user/nsenso/pkg/remediation"
)

const (
	KindEmptyPasswords = "empty_passwords"

	ShadowPath     = "/etc/shadow"
	shadowEvidence = "cat /etc/shadow"
)

// UserSecurityProbe flags accounts whose shadow entry has an empty password
// hash.
type UserSecurityProbe struct {
	Fs      afero.Fs
	Catalog *remediation.Catalog
	Logger  zerolog.Logger
}

func (p *UserSecurityProbe) Name() string {
	return "user-security"
}

// Execute reads the shadow file and reports accounts without a password.
func (p *UserSecurityProbe) Execute(ctx context.Context) ([]engine.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(p.Fs, ShadowPath)
	if err != nil {
		// Unprivileged scans cannot read the shadow file. That is an
		// unavailable surface, not a failed probe.
		if errors.Is(err, os.ErrPermission) || errors.Is(err, os.ErrNotExist) {
			p.Logger.Debug().Err(err).Str("probe", p.Name()).Msg("shadow file unavailable")
			return []engine.Observation{}, nil
		}
		return nil, err
	}

	users := emptyPasswordUsers(data)
	if len(users) == 0 {
		return []engine.Observation{}, nil
	}
	return []engine.Observation{
		engine.Observe(engine.Critical, newFinding(p.Catalog,
			KindEmptyPasswords,
			"Users with empty passwords:\n"+strings.Join(users, "\n"),
			shadowEvidence,
		)),
	}, nil
}

// emptyPasswordUsers returns the login names whose hash field is empty.
// Locked ("!", "*") and hashed entries are not reported.
func emptyPasswordUsers(shadow []byte) []string {
	var users []string
	sc := bufio.NewScanner(bytes.NewReader(shadow))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 2 {
			continue
		}
		if fields[0] != "" && fields[1] == "" {
			users = append(users, fields[0])
		}
	}
	return users
}
