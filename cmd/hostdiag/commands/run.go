// SPDX-License-Identifier: MIT

package commands

import (
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hostdiag/hostdiag/cmd/hostdiag/internal/clierr"
	"github.com/hostdiag/hostdiag/internal/catalog"
	"github.com/hostdiag/hostdiag/internal/evaluate"
	"github.com/hostdiag/hostdiag/internal/precond"
	"github.com/hostdiag/hostdiag/internal/probe"
	"github.com/hostdiag/hostdiag/internal/report"
	"github.com/hostdiag/hostdiag/internal/runner"
	"github.com/hostdiag/hostdiag/internal/sandbox"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// runDiagnostics is the default invocation: load the catalog, run every
// selected probe, render the report, and exit with the overall status.
func runDiagnostics(cmd *cobra.Command, opts *options) error {
	if opts.format != formatText && opts.format != formatJSON {
		return clierr.Newf(clierr.CodeFatal, "unknown format %q", opts.format)
	}
	if opts.noColor {
		color.NoColor = true
	}

	cat, err := loadCatalog(opts)
	if err != nil {
		return clierr.Wrap(clierr.CodeFatal, "loading catalog", err)
	}
	cat, err = cat.Select(opts.only, opts.exclude)
	if err != nil {
		return clierr.Wrap(clierr.CodeFatal, "selecting probes", err)
	}

	r := runner.New(cat, runner.Deps{
		Resolver:  precond.NewResolver(),
		Executor:  sandbox.New(opts.timeout),
		Evaluator: evaluate.New(),
		Log:       setupLogger(opts.verbose),
		Verbose:   opts.verbose,
	})
	rep := r.Run(cmd.Context())

	out := cmd.OutOrStdout()
	if opts.format == formatJSON {
		err = report.RenderJSON(out, rep)
	} else {
		err = report.RenderText(out, rep, opts.verbose)
	}
	if err != nil {
		return clierr.Wrap(clierr.CodeFatal, "rendering report", err)
	}

	if code := rep.ExitCode(); code != 0 {
		return clierr.Newf(code, "overall status: %s", rep.Overall)
	}
	return nil
}

func loadCatalog(opts *options) (*probe.Catalog, error) {
	if opts.catalog != "" {
		return probe.LoadFile(opts.catalog)
	}
	return catalog.Builtin()
}

// setupLogger gates probe-lifecycle logging behind --verbose; logs go to
// stderr so they never interleave with the report on stdout.
func setupLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
