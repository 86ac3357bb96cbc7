package probes

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/user/nsenso/pkg/engine"
)

// Control is one site-defined check: run Command, and when its output
// contains Match (or is non-empty when Match is unset) emit a finding.
type Control struct {
	ID          string `yaml:"id"`
	Kind        string `yaml:"kind"`
	Severity    string `yaml:"severity"`
	Description string `yaml:"description"`
	Command     string `yaml:"command"`
	Match       string `yaml:"match"`
	Remediation string `yaml:"remediation"`

	severity engine.Severity
}

// Profile groups controls from one file, e.g. an internal hardening
// baseline. Each profile becomes one probe.
type Profile struct {
	Name     string    `yaml:"name"`
	Controls []Control `yaml:"controls"`
}

func (p *Profile) init() error {
	if p.Name == "" {
		return fmt.Errorf("profile has no name")
	}
	for i := range p.Controls {
		c := &p.Controls[i]
		if c.ID == "" || c.Kind == "" || c.Command == "" {
			return fmt.Errorf("control %d of %s needs id, kind and command", i, p.Name)
		}
		sev, err := engine.ParseSeverity(c.Severity)
		if err != nil {
			return fmt.Errorf("control %s: %w", c.ID, err)
		}
		c.severity = sev
	}
	return nil
}

// ProfileProbe runs the controls of one profile in file order.
type ProfileProbe struct {
	Profile Profile
	Runner  Runner
	Logger  zerolog.Logger
}

// Name returns "profile:" followed by the profile name.
func (p *ProfileProbe) Name() string {
	return "profile:" + p.Profile.Name
}

// Execute runs every control and reports the ones that matched.
func (p *ProfileProbe) Execute(ctx context.Context) ([]engine.Observation, error) {
	obs := []engine.Observation{}
	for _, c := range p.Profile.Controls {
		out, err := p.Runner.Run(ctx, c.Command)
		if err != nil {
			return nil, fmt.Errorf("control %s: %w", c.ID, err)
		}
		if !matches(out, c.Match) {
			p.Logger.Debug().Str("probe", p.Name()).Str("control", c.ID).Msg("control passed")
			continue
		}
		desc := c.Description
		if trimmed := strings.TrimSpace(out); trimmed != "" {
			desc += ":\n" + listing(nonEmptyLines(trimmed))
		}
		obs = append(obs, engine.Observe(c.severity,
			engine.NewFinding(c.Kind, desc, c.Command, c.Remediation)))
	}
	return obs, nil
}

func matches(output, match string) bool {
	if match == "" {
		return strings.TrimSpace(output) != ""
	}
	return strings.Contains(output, match)
}

// LoadProfiles reads every .yaml/.yml file in dir, in lexical order, and
// returns one probe per profile.
func LoadProfiles(fs afero.Fs, dir string, runner Runner, logger zerolog.Logger) ([]engine.Probe, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read profile directory: %w", err)
	}
	var names []string
	for _, info := range infos {
		if ext := filepath.Ext(info.Name()); !info.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, info.Name())
		}
	}
	sort.Strings(names)

	probes := make([]engine.Probe, 0, len(names))
	for _, name := range names {
		data, err := afero.ReadFile(fs, filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var prof Profile
		if err := yaml.Unmarshal(data, &prof); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		if err := prof.init(); err != nil {
			return nil, fmt.Errorf("invalid profile %s: %w", name, err)
		}
		logger.Debug().Str("profile", prof.Name).Int("controls", len(prof.Controls)).Msg("loaded check profile")
		probes = append(probes, &ProfileProbe{Profile: prof, Runner: runner, Logger: logger})
	}
	return probes, nil
}
