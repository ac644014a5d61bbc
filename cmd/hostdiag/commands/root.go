// SPDX-License-Identifier: MIT

// Package commands wires the hostdiag CLI: a default full diagnostic run
// plus list and version subcommands.
package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// options holds the flag values for one invocation. Scoped to the
// command instance so tests can execute commands independently.
type options struct {
	only    []string
	exclude []string
	timeout time.Duration
	verbose bool
	format  string
	catalog string
	noColor bool
}

// NewRootCmd constructs the hostdiag root command. Running it with no
// arguments performs a full diagnostic run.
func NewRootCmd() *cobra.Command {
	version := os.Getenv("HOSTDIAG_VERSION")
	if version == "" {
		version = "0.0.0-dev"
	}

	opts := &options{}

	cmd := &cobra.Command{
		Use:   "hostdiag",
		Short: "hostdiag - one-shot host health diagnostics",
		Long: `hostdiag runs a catalog of read-only system-health probes (disks,
memory, services, network, hardware) against this host and reports a
consolidated pass/fail/warning verdict per probe.

Run it with elevated privileges for full coverage; probes whose
preconditions are unmet are skipped, never failed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnostics(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringSliceVar(&opts.only, "only", nil, "run only the named probes")
	flags.StringSliceVar(&opts.exclude, "exclude", nil, "skip the named probes")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "default per-probe timeout")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "include raw probe output in the report and log probe lifecycle")
	flags.StringVar(&opts.format, "format", "text", "report format: text or json")
	flags.StringVar(&opts.catalog, "catalog", "", "YAML probe catalog replacing the builtin one")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the hostdiag version",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "hostdiag version %s\n", version)
		},
	})
	cmd.AddCommand(newListCmd(opts))

	return cmd
}
