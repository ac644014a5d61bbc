// SPDX-License-Identifier: MIT

package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hostdiag/hostdiag/cmd/hostdiag/internal/clierr"
	"github.com/hostdiag/hostdiag/internal/probe"
)

type probeListItem struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Severity    probe.Severity `json:"severity"`
}

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the probes a run would consider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(opts)
			if err != nil {
				return clierr.Wrap(clierr.CodeFatal, "loading catalog", err)
			}
			cat, err = cat.Select(opts.only, opts.exclude)
			if err != nil {
				return clierr.Wrap(clierr.CodeFatal, "selecting probes", err)
			}

			out := cmd.OutOrStdout()
			if opts.format == formatJSON {
				items := make([]probeListItem, 0, cat.Len())
				for _, d := range cat.Probes() {
					items = append(items, probeListItem{
						Name:        d.Name,
						Description: d.Description,
						Severity:    d.Severity,
					})
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}

			nameWidth := 0
			for _, d := range cat.Probes() {
				if len(d.Name) > nameWidth {
					nameWidth = len(d.Name)
				}
			}
			for _, d := range cat.Probes() {
				fmt.Fprintf(out, "%-*s  %s\n", nameWidth, d.Name, d.Description)
			}
			return nil
		},
	}
}
