package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/user/nsenso/pkg/config"
	"github.com/user/nsenso/pkg/engine"
	"github.com/user/nsenso/pkg/probes"
	"github.com/user/nsenso/pkg/remediation"
	"github.com/user/nsenso/pkg/report"
)

// formatFlag is a pflag.Value restricted to the registered report formats,
// so a bad value fails flag parsing before anything runs.
type formatFlag string

func (f *formatFlag) String() string { return string(*f) }

func (f *formatFlag) Set(v string) error {
	for _, name := range report.Formats() {
		if v == name {
			*f = formatFlag(v)
			return nil
		}
	}
	return fmt.Errorf("must be one of %s", strings.Join(report.Formats(), ", "))
}

func (f *formatFlag) Type() string { return "format" }

func newScanCmd(opts *globalOptions) *cobra.Command {
	format := formatFlag(report.FormatText)
	var quiet bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the local host and print a report",
		Long: `Runs every enabled probe once and prints the findings grouped by
severity. The command exits 0 whenever a report is produced, whether or not
anything was found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, opts, string(format), quiet)
		},
	}
	cmd.Flags().VarP(&format, "format", "f", "Output format: "+strings.Join(report.Formats(), ", "))
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print per-probe progress")
	return cmd
}

func runScan(cmd *cobra.Command, opts *globalOptions, format string, quiet bool) error {
	logger := log.With().Str("command", "scan").Logger()

	cfg, cfgPath, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if cfgPath != "" {
		logger.Debug().Str("path", cfgPath).Msg("configuration loaded")
	}

	reporter, err := report.New(format, report.Options{Color: !opts.noColor && !cfg.NoColor})
	if err != nil {
		return err
	}

	reg, err := buildRegistry(opts, cfg)
	if err != nil {
		return err
	}

	scanOpts := []engine.Option{
		engine.WithLogger(log.Logger),
		engine.WithProbeTimeout(time.Duration(cfg.ProbeTimeout)),
		engine.WithParallelism(cfg.Parallelism),
	}
	if !quiet {
		scanOpts = append(scanOpts, engine.WithProgress(progressPrinter(cmd.ErrOrStderr())))
	}

	res, err := engine.NewScanner(scanOpts...).Scan(cmd.Context(), reg)
	if err != nil {
		return err
	}
	return reporter.Render(cmd.OutOrStdout(), res)
}

// buildRegistry assembles the built-in probes followed by the site check
// profiles, minus the disabled ones.
func buildRegistry(opts *globalOptions, cfg *config.Config) (*engine.Registry, error) {
	catalog, err := loadCatalog(opts, cfg)
	if err != nil {
		return nil, err
	}

	runner := opts.newRunner(log.Logger)
	reg, err := probes.NewRegistry(probes.Deps{
		Runner:  runner,
		Fs:      opts.fs,
		Catalog: catalog,
		Logger:  log.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("register probes: %w", err)
	}
	if cfg.ChecksDir != "" {
		profiles, err := probes.LoadProfiles(opts.fs, cfg.ChecksDir, runner, log.Logger)
		if err != nil {
			return nil, err
		}
		for _, p := range profiles {
			if err := reg.Register(p); err != nil {
				return nil, fmt.Errorf("register check profile: %w", err)
			}
		}
	}
	if len(cfg.DisabledProbes) == 0 {
		return reg, nil
	}
	reg, unknown := reg.Without(cfg.DisabledProbes...)
	for _, name := range unknown {
		log.Warn().Str("probe", name).Msg("disabled_probes names an unknown probe")
	}
	return reg, nil
}

// loadCatalog returns the built-in remediation catalog with the configured
// overrides applied.
func loadCatalog(opts *globalOptions, cfg *config.Config) (*remediation.Catalog, error) {
	catalog := remediation.Default()
	if cfg.RemediationDir != "" {
		if err := catalog.LoadDir(opts.fs, cfg.RemediationDir); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

func progressPrinter(w io.Writer) engine.ProgressFunc {
	ok := color.New(color.FgGreen)
	failed := color.New(color.FgRed)
	dim := color.New(color.Faint)
	return func(st engine.ProbeStatus, done, total int) {
		prefix := dim.Sprintf("[%d/%d]", done, total)
		if st.Failed() {
			fmt.Fprintf(w, "%s %s %s: %v\n", prefix, failed.Sprint("✗"), st.Name, st.Err)
			return
		}
		fmt.Fprintf(w, "%s %s %s (%d findings, %s)\n", prefix, ok.Sprint("✓"), st.Name, st.Findings, st.Duration.Round(time.Millisecond))
	}
}
