package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/user/nsenso/pkg/config"
	"github.com/user/nsenso/pkg/probes"
)

const cliExecutable = "nsenso"

// globalOptions are shared by every subcommand through the persistent flags.
type globalOptions struct {
	debug      bool
	configPath string
	noColor    bool

	fs        afero.Fs
	newRunner func(zerolog.Logger) probes.Runner
}

func defaultOptions() *globalOptions {
	return &globalOptions{
		fs: afero.NewOsFs(),
		newRunner: func(logger zerolog.Logger) probes.Runner {
			return probes.NewShellRunner(logger)
		},
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(defaultOptions())
}

func newRootCmd(opts *globalOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "Linux host security posture scanner",
		Long: `nsenso runs a fixed battery of read-only checks against the local
Linux host (sudo rules, SUID binaries, file permissions, shadow entries,
root processes, kernel tunables) and reports what it finds by severity.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd.ErrOrStderr(), opts.debug)
			if opts.noColor {
				color.NoColor = true
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Configuration file path (default ~/.nsenso/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(newScanCmd(opts))
	rootCmd.AddCommand(newProbesCmd(opts))
	rootCmd.AddCommand(newKindsCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func setupLogging(w io.Writer, debug bool) {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}

// loadConfig reads the configuration file. An explicitly named file must
// exist; the default location is optional.
func (o *globalOptions) loadConfig() (*config.Config, string, error) {
	path := o.configPath
	if path != "" {
		if ok, err := afero.Exists(o.fs, path); err != nil {
			return nil, "", fmt.Errorf("check configuration file: %w", err)
		} else if !ok {
			return nil, "", fmt.Errorf("configuration file %s does not exist", path)
		}
	} else {
		p, err := config.GetConfigPath()
		if err != nil {
			log.Debug().Err(err).Msg("no default configuration path, using defaults")
			return config.Default(), "", nil
		}
		path = p
	}
	cfg, err := config.Load(o.fs, path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
