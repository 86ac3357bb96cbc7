package remediation

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, []string{
		"empty_passwords",
		"kernel_parameters",
		"root_processes",
		"sudo_misconfig",
		"suid_binaries",
		"world_writable_files",
	}, c.Kinds())
	for _, k := range c.Kinds() {
		assert.NotEmpty(t, c.Text(k), k)
	}
	assert.Equal(t, "Review and restrict sudo access in /etc/sudoers", c.Text("sudo_misconfig"))
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Default().Lookup("nope")
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Empty(t, Default().Text("nope"))
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"not a list":     "id: x",
		"missing id":     "- remediation: fix it\n",
		"missing text":   "- id: x\n",
		"unknown fields": "- id: x\n  remediation: y\n  severity: high\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/nsenso/remediation/10-site.yaml", []byte(`
- id: sudo_misconfig
  remediation: Ticket SEC-12 tracks sudoers cleanup
- id: custom_check
  remediation: Do the custom thing
`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/etc/nsenso/remediation/20-site.yml", []byte(`
- id: custom_check
  remediation: Do the other thing
`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/etc/nsenso/remediation/README.md", []byte("ignored"), 0o644))

	c := Default()
	require.NoError(t, c.LoadDir(fs, "/etc/nsenso/remediation"))

	assert.Equal(t, "Ticket SEC-12 tracks sudoers cleanup", c.Text("sudo_misconfig"))
	assert.Equal(t, "Do the other thing", c.Text("custom_check"))
	assert.Equal(t, "Set strong passwords for all users", c.Text("empty_passwords"))
}

func TestLoadDir_Missing(t *testing.T) {
	err := Default().LoadDir(afero.NewMemMapFs(), "/missing")
	assert.Error(t, err)
}
