package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostdiag/hostdiag/internal/evaluate"
	"github.com/hostdiag/hostdiag/internal/precond"
	"github.com/hostdiag/hostdiag/internal/probe"
	"github.com/hostdiag/hostdiag/internal/report"
)

// mockResolver marks the named probes ineligible.
type mockResolver struct {
	ineligible map[string]precond.Eligibility
}

func (m *mockResolver) Resolve(d probe.Descriptor) precond.Eligibility {
	if elig, ok := m.ineligible[d.Name]; ok {
		return elig
	}
	return precond.Eligibility{Eligible: true}
}

// mockExecutor replays canned results keyed by rendered command and
// records every invocation.
type mockExecutor struct {
	results map[string]probe.Result
	errs    map[string]error
	calls   []string
	onCall  func(cmd probe.Command)
}

func (m *mockExecutor) Run(ctx context.Context, cmd probe.Command, timeout time.Duration) (probe.Result, error) {
	key := cmd.String()
	m.calls = append(m.calls, key)
	if m.onCall != nil {
		m.onCall(cmd)
	}
	if err, ok := m.errs[key]; ok {
		return probe.Result{}, err
	}
	return m.results[key], nil
}

func patternProbe(name, expr string) probe.Descriptor {
	return probe.Descriptor{
		Name:        name,
		Description: name + " ok",
		Severity:    probe.SeverityCritical,
		Command:     probe.Command{Program: name},
		Rule:        probe.Rule{Pattern: &probe.PatternRule{Expr: expr}},
	}
}

func newCatalog(t *testing.T, probes ...probe.Descriptor) *probe.Catalog {
	t.Helper()
	cat, err := probe.NewCatalog(probes)
	require.NoError(t, err)
	return cat
}

func TestRun_SkippedProbeNeverInvokesAction(t *testing.T) {
	cat := newCatalog(t, patternProbe("smart", "bad"))
	exec := &mockExecutor{}
	r := New(cat, Deps{
		Resolver: &mockResolver{ineligible: map[string]precond.Eligibility{
			"smart": {Reason: precond.ReasonMissingTool, Detail: "smartctl not found in PATH"},
		}},
		Executor:  exec,
		Evaluator: evaluate.New(),
	})

	rep := r.Run(context.Background())
	require.Len(t, rep.Verdicts, 1)
	v := rep.Verdicts[0]
	assert.Equal(t, probe.StatusSkip, v.Status)
	assert.Contains(t, v.Message, "missing-tool")
	assert.Empty(t, exec.calls, "skipped probe must never invoke its action")
	assert.Equal(t, report.Healthy, rep.Overall)
}

func TestRun_DeclarationOrderPreserved(t *testing.T) {
	cat := newCatalog(t,
		patternProbe("c-probe", "bad"),
		patternProbe("a-probe", "bad"),
		patternProbe("b-probe", "bad"),
	)
	exec := &mockExecutor{results: map[string]probe.Result{
		"c-probe": {Stdout: "fine"},
		"a-probe": {Stdout: "fine"},
		"b-probe": {Stdout: "fine"},
	}}
	r := New(cat, Deps{Resolver: &mockResolver{}, Executor: exec, Evaluator: evaluate.New()})

	rep := r.Run(context.Background())
	require.Len(t, rep.Verdicts, 3)
	assert.Equal(t, "c-probe", rep.Verdicts[0].Probe)
	assert.Equal(t, "a-probe", rep.Verdicts[1].Probe)
	assert.Equal(t, "b-probe", rep.Verdicts[2].Probe)
}

func TestRun_ExecutorFaultBecomesErrorVerdict(t *testing.T) {
	cat := newCatalog(t, patternProbe("broken", "bad"), patternProbe("fine", "bad"))
	exec := &mockExecutor{
		errs:    map[string]error{"broken": errors.New("starting broken: no such file")},
		results: map[string]probe.Result{"fine": {Stdout: "all good"}},
	}
	r := New(cat, Deps{Resolver: &mockResolver{}, Executor: exec, Evaluator: evaluate.New()})

	rep := r.Run(context.Background())
	require.Len(t, rep.Verdicts, 2, "one probe's fault must not abort the run")
	assert.Equal(t, probe.StatusError, rep.Verdicts[0].Status)
	assert.Equal(t, probe.StatusPass, rep.Verdicts[1].Status)
	assert.Equal(t, report.Degraded, rep.Overall)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	cat := newCatalog(t, patternProbe("a", "bad"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &mockExecutor{}
	r := New(cat, Deps{Resolver: &mockResolver{}, Executor: exec, Evaluator: evaluate.New()})

	rep := r.Run(ctx)
	assert.True(t, rep.Incomplete)
	assert.Empty(t, rep.Verdicts)
	assert.Empty(t, exec.calls)
}

func TestRun_CancelledMidRunKeepsPartialReport(t *testing.T) {
	cat := newCatalog(t, patternProbe("first", "bad"), patternProbe("second", "bad"), patternProbe("third", "bad"))
	ctx, cancel := context.WithCancel(context.Background())

	exec := &mockExecutor{results: map[string]probe.Result{
		"first":  {Stdout: "fine"},
		"second": {Stdout: "fine"},
	}}
	exec.onCall = func(cmd probe.Command) {
		if cmd.Program == "second" {
			cancel() // interrupt arrives while the second probe runs
		}
	}
	r := New(cat, Deps{Resolver: &mockResolver{}, Executor: exec, Evaluator: evaluate.New()})

	rep := r.Run(ctx)
	assert.True(t, rep.Incomplete)
	require.Len(t, rep.Verdicts, 1, "in-flight probe's verdict is discarded")
	assert.Equal(t, "first", rep.Verdicts[0].Probe)
	assert.NotContains(t, exec.calls, "third")
}

func TestRun_DeviceExpansion(t *testing.T) {
	d := probe.Descriptor{
		Name:     "smart",
		Severity: probe.SeverityCritical,
		Command:  probe.Command{Program: "smartctl", Args: []string{"-A", "{device}"}},
		Devices:  &probe.Command{Program: "lsblk"},
		Rule:     probe.Rule{Pattern: &probe.PatternRule{Expr: "FAILING_NOW"}},
	}
	cat := newCatalog(t, d)

	exec := &mockExecutor{results: map[string]probe.Result{
		"lsblk":                {Stdout: "/dev/sda\n/dev/sdb\n"},
		"smartctl -A /dev/sda": {Stdout: "ok"},
		"smartctl -A /dev/sdb": {Stdout: "attribute FAILING_NOW"},
	}}
	r := New(cat, Deps{Resolver: &mockResolver{}, Executor: exec, Evaluator: evaluate.New()})

	rep := r.Run(context.Background())
	require.Len(t, rep.Verdicts, 1)
	v := rep.Verdicts[0]
	assert.Equal(t, probe.StatusFail, v.Status, "worst per-device verdict wins")
	assert.Contains(t, v.Message, "/dev/sdb: ")
	assert.Equal(t, []string{"lsblk", "smartctl -A /dev/sda", "smartctl -A /dev/sdb"}, exec.calls)
}

func TestRun_DeviceEnumeratorFailure(t *testing.T) {
	d := probe.Descriptor{
		Name:     "smart",
		Severity: probe.SeverityCritical,
		Command:  probe.Command{Program: "smartctl", Args: []string{"-A", "{device}"}},
		Devices:  &probe.Command{Program: "lsblk"},
		Rule:     probe.Rule{Pattern: &probe.PatternRule{Expr: "FAILING_NOW"}},
	}
	cat := newCatalog(t, d)

	exec := &mockExecutor{results: map[string]probe.Result{
		"lsblk": {ExitCode: 2},
	}}
	r := New(cat, Deps{Resolver: &mockResolver{}, Executor: exec, Evaluator: evaluate.New()})

	rep := r.Run(context.Background())
	require.Len(t, rep.Verdicts, 1)
	assert.Equal(t, probe.StatusError, rep.Verdicts[0].Status)
	assert.Contains(t, rep.Verdicts[0].Message, "device enumeration failed")
}

func TestRun_NoDevicesPasses(t *testing.T) {
	d := probe.Descriptor{
		Name:     "smart",
		Severity: probe.SeverityCritical,
		Command:  probe.Command{Program: "smartctl", Args: []string{"-A", "{device}"}},
		Devices:  &probe.Command{Program: "lsblk"},
		Rule:     probe.Rule{Pattern: &probe.PatternRule{Expr: "FAILING_NOW"}},
	}
	cat := newCatalog(t, d)

	exec := &mockExecutor{results: map[string]probe.Result{"lsblk": {Stdout: "\n"}}}
	r := New(cat, Deps{Resolver: &mockResolver{}, Executor: exec, Evaluator: evaluate.New()})

	rep := r.Run(context.Background())
	require.Len(t, rep.Verdicts, 1)
	assert.Equal(t, probe.StatusPass, rep.Verdicts[0].Status)
	assert.Equal(t, "no matching devices", rep.Verdicts[0].Message)
}

func TestRun_VerboseAttachesOutput(t *testing.T) {
	cat := newCatalog(t, patternProbe("df", "bad"))
	exec := &mockExecutor{results: map[string]probe.Result{
		"df": {Stdout: "Filesystem 40%\n", Stderr: "note\n"},
	}}
	r := New(cat, Deps{Resolver: &mockResolver{}, Executor: exec, Evaluator: evaluate.New(), Verbose: true})

	rep := r.Run(context.Background())
	require.Len(t, rep.Verdicts, 1)
	assert.Contains(t, rep.Verdicts[0].Output, "Filesystem 40%")
	assert.Contains(t, rep.Verdicts[0].Output, "note")
}
