// Package runner drives the diagnostic pipeline probe by probe:
// precondition resolution, sandboxed execution, evaluation, aggregation.
// Execution is sequential by design; ordered, uninterleaved output
// matters more than throughput for a one-shot host diagnostic.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/hostdiag/hostdiag/internal/precond"
	"github.com/hostdiag/hostdiag/internal/probe"
	"github.com/hostdiag/hostdiag/internal/report"
)

// Resolver reports whether a probe's preconditions hold.
type Resolver interface {
	Resolve(d probe.Descriptor) precond.Eligibility
}

// Executor runs one probe action under a bounded timeout.
type Executor interface {
	Run(ctx context.Context, cmd probe.Command, timeout time.Duration) (probe.Result, error)
}

// Evaluator turns a captured result into a verdict.
type Evaluator interface {
	Verdict(d probe.Descriptor, res probe.Result) probe.Verdict
}

// Deps are the pipeline stages injected into the runner.
type Deps struct {
	Resolver  Resolver
	Executor  Executor
	Evaluator Evaluator
	Log       *slog.Logger
	// Verbose attaches raw captured output to each verdict.
	Verbose bool
}

// Runner owns the catalog for one invocation. All run state is scoped to
// the instance; there are no process-wide singletons.
type Runner struct {
	catalog *probe.Catalog
	deps    Deps
}

// New builds a runner over the given catalog.
func New(catalog *probe.Catalog, deps Deps) *Runner {
	if deps.Log == nil {
		deps.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{catalog: catalog, deps: deps}
}

// Run processes every probe in declaration order and returns the
// finalized report. A cancelled context stops the run between probes
// (and kills any in-flight action); the partial report is still
// finalized, marked incomplete.
func (r *Runner) Run(ctx context.Context) report.Report {
	agg := report.NewAggregator()
	for _, d := range r.catalog.Probes() {
		if ctx.Err() != nil {
			return agg.Finalize(true)
		}
		v, ok := r.runProbe(ctx, d)
		if !ok {
			return agg.Finalize(true)
		}
		agg.Add(v)
	}
	return agg.Finalize(false)
}

// runProbe produces one verdict. ok is false only when the run was
// cancelled mid-probe, in which case the verdict is discarded.
func (r *Runner) runProbe(ctx context.Context, d probe.Descriptor) (probe.Verdict, bool) {
	log := r.deps.Log.With("probe", d.Name)

	elig := r.deps.Resolver.Resolve(d)
	if !elig.Eligible {
		log.Debug("skipping probe", "reason", string(elig.Reason), "detail", elig.Detail)
		return probe.Verdict{
			Probe:    d.Name,
			Status:   probe.StatusSkip,
			Severity: d.Severity,
			Message:  fmt.Sprintf("%s: %s", elig.Reason, elig.Detail),
		}, true
	}

	cmds, devices, err := r.expand(ctx, d)
	if err != nil {
		if ctx.Err() != nil {
			return probe.Verdict{}, false
		}
		return probe.Verdict{
			Probe:    d.Name,
			Status:   probe.StatusError,
			Severity: d.Severity,
			Message:  fmt.Sprintf("device enumeration failed: %v", err),
		}, true
	}
	if len(cmds) == 0 {
		return probe.Verdict{
			Probe:    d.Name,
			Status:   probe.StatusPass,
			Severity: d.Severity,
			Message:  "no matching devices",
		}, true
	}

	var worst probe.Verdict
	for i, cmd := range cmds {
		log.Debug("running action", "command", cmd.String())
		res, err := r.deps.Executor.Run(ctx, cmd, d.Timeout)
		if ctx.Err() != nil {
			return probe.Verdict{}, false
		}

		var v probe.Verdict
		if err != nil {
			v = probe.Verdict{
				Probe:    d.Name,
				Status:   probe.StatusError,
				Severity: d.Severity,
				Message:  err.Error(),
				Elapsed:  res.Elapsed,
			}
		} else {
			v = r.deps.Evaluator.Verdict(d, res)
			if r.deps.Verbose {
				v.Output = capturedOutput(res)
			}
		}
		if devices != nil && v.Status != probe.StatusPass {
			v.Message = devices[i] + ": " + v.Message
		}
		log.Debug("probe evaluated", "status", string(v.Status), "elapsed", v.Elapsed)

		if i == 0 || statusRank(v.Status) > statusRank(worst.Status) {
			worst = v
		}
	}
	return worst, true
}

// expand resolves a descriptor's device enumerator into the concrete
// command list. Without an enumerator the action runs once as declared.
// The returned device list is parallel to the commands, nil when the
// probe is not device-scoped.
func (r *Runner) expand(ctx context.Context, d probe.Descriptor) ([]probe.Command, []string, error) {
	if d.Devices == nil {
		return []probe.Command{d.Command}, nil, nil
	}

	res, err := r.deps.Executor.Run(ctx, *d.Devices, d.Timeout)
	if err != nil {
		return nil, nil, err
	}
	if res.TimedOut {
		return nil, nil, fmt.Errorf("enumerator %s timed out", d.Devices.Program)
	}
	if res.ExitCode != 0 {
		return nil, nil, fmt.Errorf("enumerator %s exited %d", d.Devices.Program, res.ExitCode)
	}

	var cmds []probe.Command
	var devices []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		device := strings.TrimSpace(line)
		if device == "" {
			continue
		}
		devices = append(devices, device)
		cmds = append(cmds, substituteDevice(d.Command, device))
	}
	return cmds, devices, nil
}

func substituteDevice(cmd probe.Command, device string) probe.Command {
	out := probe.Command{Program: cmd.Program, Args: make([]string, len(cmd.Args))}
	for i, arg := range cmd.Args {
		out.Args[i] = strings.ReplaceAll(arg, "{device}", device)
	}
	return out
}

func capturedOutput(res probe.Result) string {
	out := res.Stdout
	if res.Stderr != "" {
		if out != "" && !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		out += res.Stderr
	}
	return out
}

// statusRank orders verdicts from most benign to most severe, used to
// pick the worst per-device outcome.
func statusRank(s probe.Status) int {
	switch s {
	case probe.StatusPass:
		return 0
	case probe.StatusSkip:
		return 1
	case probe.StatusWarn:
		return 2
	case probe.StatusError:
		return 3
	case probe.StatusFail:
		return 4
	default:
		return 5
	}
}
