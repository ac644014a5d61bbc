// Package report accumulates verdicts in probe-declaration order and
// renders the consolidated run report. Rendering is deterministic: the
// same verdict sequence always produces byte-identical output.
package report

import (
	"github.com/hostdiag/hostdiag/internal/probe"
)

// Health is the overall outcome of a run, reduced worst-case over the
// collected verdicts.
type Health string

const (
	Healthy  Health = "healthy"
	Degraded Health = "degraded"
	Failed   Health = "failed"
)

// Process exit codes per overall health. Fatal engine errors (catalog
// load failures and the like) use a distinct code owned by the CLI.
const (
	ExitHealthy  = 0
	ExitDegraded = 1
	ExitFailed   = 2
)

// Report is the finalized, ordered collection of all verdicts for one
// run plus summary counts and the overall status. Immutable once built.
type Report struct {
	Verdicts       []probe.Verdict        `json:"verdicts"`
	Counts         map[probe.Status]int   `json:"counts"`
	FailBySeverity map[probe.Severity]int `json:"fails_by_severity,omitempty"`
	Overall        Health                 `json:"overall"`
	// Incomplete marks a run cancelled before every probe was processed;
	// the collected verdicts are still reported.
	Incomplete bool `json:"incomplete,omitempty"`
}

// ExitCode maps the report to the process exit status. An incomplete run
// never exits clean: a partial clean bill of health is not a clean bill
// of health.
func (r Report) ExitCode() int {
	code := ExitHealthy
	switch r.Overall {
	case Degraded:
		code = ExitDegraded
	case Failed:
		code = ExitFailed
	}
	if r.Incomplete && code == ExitHealthy {
		code = ExitDegraded
	}
	return code
}

// Aggregator collects verdicts as the runner produces them. The report
// is available only through Finalize, after all probes were processed or
// the run was cut short.
type Aggregator struct {
	verdicts []probe.Verdict
}

// NewAggregator builds an empty aggregator.
func NewAggregator() *Aggregator { return &Aggregator{} }

// Add appends one verdict. Callers must add in declaration order; the
// sequential runner makes that trivial.
func (a *Aggregator) Add(v probe.Verdict) {
	a.verdicts = append(a.verdicts, v)
}

// Finalize reduces the collected verdicts into the report. Overall
// status is failed on any critical failure, degraded on any other
// failure, warning, or error, healthy otherwise. Skips never affect it.
func (a *Aggregator) Finalize(incomplete bool) Report {
	rep := Report{
		Verdicts:       a.verdicts,
		Counts:         make(map[probe.Status]int),
		FailBySeverity: make(map[probe.Severity]int),
		Overall:        Healthy,
		Incomplete:     incomplete,
	}
	for _, v := range a.verdicts {
		rep.Counts[v.Status]++
		switch v.Status {
		case probe.StatusFail:
			rep.FailBySeverity[v.Severity]++
			if v.Severity == probe.SeverityCritical {
				rep.Overall = Failed
			} else if rep.Overall != Failed {
				rep.Overall = Degraded
			}
		case probe.StatusWarn, probe.StatusError:
			if rep.Overall != Failed {
				rep.Overall = Degraded
			}
		}
	}
	if len(rep.FailBySeverity) == 0 {
		rep.FailBySeverity = nil
	}
	return rep
}
