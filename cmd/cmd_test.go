package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/nsenso/pkg/probes"
	"github.com/user/nsenso/pkg/remediation"
)

type recordingRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	ran     []string
}

func (r *recordingRunner) Run(_ context.Context, command string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ran = append(r.ran, command)
	for prefix, out := range r.outputs {
		if strings.HasPrefix(command, prefix) {
			return out, nil
		}
	}
	return "", nil
}

type harness struct {
	fs      afero.Fs
	runner  *recordingRunner
	created int
	stdout  bytes.Buffer
	stderr  bytes.Buffer
}

func newHarness(outputs map[string]string) *harness {
	return &harness{
		fs:     afero.NewMemMapFs(),
		runner: &recordingRunner{outputs: outputs},
	}
}

func (h *harness) run(args ...string) error {
	opts := &globalOptions{
		fs: h.fs,
		newRunner: func(zerolog.Logger) probes.Runner {
			h.created++
			return h.runner
		},
	}
	root := newRootCmd(opts)
	root.SetOut(&h.stdout)
	root.SetErr(&h.stderr)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestScan_InvalidFormatFailsBeforeProbes(t *testing.T) {
	h := newHarness(nil)
	err := h.run("scan", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid argument "xml" for "-f, --format" flag`)
	assert.Equal(t, 0, h.created)
	assert.Empty(t, h.runner.ran)
	assert.Empty(t, h.stdout.String())
}

func TestScan_JSON(t *testing.T) {
	h := newHarness(map[string]string{"sudo ": "(ALL) NOPASSWD: ALL\n"})
	require.NoError(t, h.run("scan", "--format", "json"))

	var doc struct {
		Timestamp string                      `json:"timestamp"`
		Findings  map[string][]map[string]any `json:"findings"`
	}
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &doc))
	assert.NotEmpty(t, doc.Timestamp)
	require.Len(t, doc.Findings["critical"], 1)
	assert.Equal(t, "sudo_misconfig", doc.Findings["critical"][0]["type"])
	assert.Empty(t, doc.Findings["warning"])
	assert.Empty(t, doc.Findings["info"])

	assert.Contains(t, h.stderr.String(), "[5/5]")
	assert.Contains(t, h.stderr.String(), "kernel-hardening")
}

func TestScan_TextCleanHost(t *testing.T) {
	h := newHarness(nil)
	require.NoError(t, h.run("scan", "--quiet", "--no-color"))

	out := h.stdout.String()
	assert.Contains(t, out, "=== nSenso Security Scan Report ===")
	assert.NotContains(t, out, "FINDINGS:")
	assert.NotContains(t, h.stderr.String(), "[1/5]")
}

func TestScan_DisabledProbesFromConfig(t *testing.T) {
	h := newHarness(nil)
	require.NoError(t, afero.WriteFile(h.fs, "/etc/nsenso.yaml", []byte(`disabled_probes:
  - kernel-hardening
  - process-security
parallelism: 2
`), 0o600))

	require.NoError(t, h.run("--config", "/etc/nsenso.yaml", "scan", "-f", "json"))
	assert.Contains(t, h.stderr.String(), "[3/3]")
	for _, c := range h.runner.ran {
		assert.False(t, strings.HasPrefix(c, "sysctl"), c)
		assert.False(t, strings.HasPrefix(c, "ps "), c)
	}

	h.stdout.Reset()
	require.NoError(t, h.run("--config", "/etc/nsenso.yaml", "probes"))
	assert.Equal(t, `1. sudo-misconfiguration
2. file-permissions
3. user-security
4. process-security (disabled)
5. kernel-hardening (disabled)
`, h.stdout.String())
}

func TestScan_ChecksDirAddsProfileProbes(t *testing.T) {
	h := newHarness(map[string]string{"findmnt ": "rw,nosuid,exec\n"})
	require.NoError(t, afero.WriteFile(h.fs, "/etc/nsenso.yaml", []byte("checks_dir: /etc/nsenso/checks\n"), 0o600))
	require.NoError(t, afero.WriteFile(h.fs, "/etc/nsenso/checks/mounts.yaml", []byte(`name: mounts
controls:
  - id: M-1
    kind: tmp_exec
    severity: warning
    description: /tmp allows execution
    command: findmnt -no OPTIONS /tmp
    match: exec
    remediation: Mount /tmp with noexec
`), 0o600))

	require.NoError(t, h.run("--config", "/etc/nsenso.yaml", "scan", "-f", "json"))
	var doc struct {
		Findings map[string][]map[string]any `json:"findings"`
	}
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &doc))
	require.Len(t, doc.Findings["warning"], 1)
	assert.Equal(t, "tmp_exec", doc.Findings["warning"][0]["type"])
	assert.Equal(t, "Mount /tmp with noexec", doc.Findings["warning"][0]["remediation"])
	assert.Contains(t, h.stderr.String(), "[6/6]")

	h.stdout.Reset()
	require.NoError(t, h.run("--config", "/etc/nsenso.yaml", "probes"))
	assert.Contains(t, h.stdout.String(), "6. profile:mounts\n")
}

func TestScan_MissingExplicitConfig(t *testing.T) {
	h := newHarness(nil)
	err := h.run("--config", "/nope.yaml", "scan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
	assert.Empty(t, h.runner.ran)
}

func TestConfig_InitAndShow(t *testing.T) {
	h := newHarness(nil)
	require.NoError(t, h.run("--config", "/cfg/nsenso.yaml", "config", "init"))
	assert.Contains(t, h.stdout.String(), "Configuration written to /cfg/nsenso.yaml")

	require.Error(t, h.run("--config", "/cfg/nsenso.yaml", "config", "init"))
	require.NoError(t, h.run("--config", "/cfg/nsenso.yaml", "config", "init", "--force"))

	h.stdout.Reset()
	require.NoError(t, h.run("--config", "/cfg/nsenso.yaml", "config", "show"))
	assert.Contains(t, h.stdout.String(), "probe_timeout: 2m0s")
	assert.Contains(t, h.stdout.String(), "parallelism: 1")
}

func TestKinds(t *testing.T) {
	h := newHarness(nil)
	require.NoError(t, h.run("kinds", "sudo_misconfig"))
	assert.Equal(t, `sudo_misconfig
  Name:        Passwordless sudo
  Standard:    CIS 5.3.4
  Risk:        Any process running as the user can become root without a password.
  Remediation: Review and restrict sudo access in /etc/sudoers
`, h.stdout.String())

	h.stdout.Reset()
	require.NoError(t, h.run("kinds"))
	assert.Equal(t, 6, strings.Count(h.stdout.String(), "  Remediation: "))

	err := h.run("kinds", "nope")
	assert.ErrorIs(t, err, remediation.ErrUnknownKind)
}

func TestKinds_RemediationDirOverride(t *testing.T) {
	h := newHarness(nil)
	require.NoError(t, afero.WriteFile(h.fs, "/etc/nsenso.yaml", []byte("remediation_dir: /etc/nsenso/remediation\n"), 0o600))
	require.NoError(t, afero.WriteFile(h.fs, "/etc/nsenso/remediation/site.yaml", []byte(`- id: tmp_exec
  standard: CIS 1.1.5
  remediation: Mount /tmp with noexec
`), 0o600))

	require.NoError(t, h.run("--config", "/etc/nsenso.yaml", "kinds", "tmp_exec"))
	assert.Equal(t, "tmp_exec\n  Standard:    CIS 1.1.5\n  Remediation: Mount /tmp with noexec\n", h.stdout.String())
}

func TestFormatFlag(t *testing.T) {
	var f formatFlag
	require.NoError(t, f.Set("json"))
	assert.Equal(t, "json", f.String())
	assert.Error(t, f.Set("JSON"))
	assert.Equal(t, "format", f.Type())
}

func TestVersion(t *testing.T) {
	h := newHarness(nil)
	require.NoError(t, h.run("version"))
	assert.Equal(t, "nsenso dev\n", h.stdout.String())
}
