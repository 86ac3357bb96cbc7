package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/user/nsenso/pkg/remediation"
)

func newKindsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds [kind]",
		Short: "Describe the finding kinds and their remediation advice",
		Long: `Lists every finding kind in the remediation catalog, including the
entries added through remediation_dir. With a kind argument only that entry
is printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.loadConfig()
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(opts, cfg)
			if err != nil {
				return err
			}

			kinds := catalog.Kinds()
			if len(args) == 1 {
				kinds = args
			}
			out := cmd.OutOrStdout()
			for i, kind := range kinds {
				entry, err := catalog.Lookup(kind)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(out)
				}
				printEntry(out, entry)
			}
			return nil
		},
	}
}

func printEntry(w io.Writer, e remediation.Entry) {
	fmt.Fprintln(w, e.ID)
	if e.Name != "" {
		fmt.Fprintf(w, "  Name:        %s\n", e.Name)
	}
	if e.Standard != "" {
		fmt.Fprintf(w, "  Standard:    %s\n", e.Standard)
	}
	if e.Risk != "" {
		fmt.Fprintf(w, "  Risk:        %s\n", e.Risk)
	}
	fmt.Fprintf(w, "  Remediation: %s\n", e.Remediation)
}
