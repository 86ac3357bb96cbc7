package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/nsenso/pkg/config"
)

func newProbesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probes",
		Short: "List the probes a scan runs, in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.loadConfig()
			if err != nil {
				return err
			}
			all, err := buildRegistry(opts, &config.Config{ChecksDir: cfg.ChecksDir})
			if err != nil {
				return err
			}
			disabled := make(map[string]bool, len(cfg.DisabledProbes))
			for _, name := range cfg.DisabledProbes {
				disabled[name] = true
			}

			out := cmd.OutOrStdout()
			for i, name := range all.Names() {
				mark := ""
				if disabled[name] {
					mark = " (disabled)"
				}
				fmt.Fprintf(out, "%d. %s%s\n", i+1, name, mark)
			}
			return nil
		},
	}
}
