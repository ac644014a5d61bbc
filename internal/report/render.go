package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/hostdiag/hostdiag/internal/probe"
)

var statusColors = map[probe.Status]*color.Color{
	probe.StatusPass:  color.New(color.FgGreen),
	probe.StatusFail:  color.New(color.FgRed, color.Bold),
	probe.StatusWarn:  color.New(color.FgYellow),
	probe.StatusSkip:  color.New(color.FgCyan),
	probe.StatusError: color.New(color.FgMagenta),
}

var statusLabels = map[probe.Status]string{
	probe.StatusPass:  "PASS",
	probe.StatusFail:  "FAIL",
	probe.StatusWarn:  "WARN",
	probe.StatusSkip:  "SKIP",
	probe.StatusError: "ERROR",
}

// RenderText writes the human-readable report: one line per probe in
// declaration order, then a summary line and the overall status. With
// verbose set, each verdict's captured output follows its line,
// indented.
func RenderText(w io.Writer, rep Report, verbose bool) error {
	nameWidth := 0
	for _, v := range rep.Verdicts {
		if len(v.Probe) > nameWidth {
			nameWidth = len(v.Probe)
		}
	}

	for _, v := range rep.Verdicts {
		label := statusLabels[v.Status]
		if c, ok := statusColors[v.Status]; ok {
			label = c.Sprint(label)
			// Pad after coloring; escape codes would skew the width.
			label += strings.Repeat(" ", 5-len(statusLabels[v.Status]))
		} else {
			label = fmt.Sprintf("%-5s", label)
		}

		line := fmt.Sprintf("%s %-*s", label, nameWidth, v.Probe)
		if v.Message != "" {
			line += "  " + v.Message
		}
		if v.Status == probe.StatusFail {
			line += fmt.Sprintf(" [%s]", v.Severity)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}

		if verbose && v.Output != "" {
			for _, out := range strings.Split(strings.TrimRight(v.Output, "\n"), "\n") {
				if _, err := fmt.Fprintf(w, "    | %s\n", out); err != nil {
					return err
				}
			}
		}
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, summaryLine(rep)); err != nil {
		return err
	}
	if rep.Incomplete {
		if _, err := fmt.Fprintln(w, "run incomplete: interrupted before all probes finished"); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "overall: %s\n", rep.Overall)
	return err
}

// summaryLine renders counts in a fixed status order so output is stable.
func summaryLine(rep Report) string {
	parts := []string{
		fmt.Sprintf("%d passed", rep.Counts[probe.StatusPass]),
		fmt.Sprintf("%d failed", rep.Counts[probe.StatusFail]),
		fmt.Sprintf("%d warnings", rep.Counts[probe.StatusWarn]),
		fmt.Sprintf("%d skipped", rep.Counts[probe.StatusSkip]),
		fmt.Sprintf("%d errors", rep.Counts[probe.StatusError]),
	}
	return strings.Join(parts, ", ")
}

// RenderJSON writes the structured report: one record per probe plus the
// same summary data, derivable for machines without re-parsing text.
func RenderJSON(w io.Writer, rep Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
