// Package probe defines the data model of the diagnostic engine: the
// immutable probe descriptors that make up a catalog, the captured result
// of one action invocation, and the verdict classifying its outcome.
package probe

import (
	"strings"
	"time"
)

// Status classifies the outcome of a single probe for one run.
type Status string

const (
	StatusPass  Status = "pass"
	StatusFail  Status = "fail"
	StatusWarn  Status = "warn"
	StatusSkip  Status = "skip"
	StatusError Status = "error"
)

// Severity ranks how serious a failing probe is. It never changes control
// flow; it only affects report rendering and the process exit status.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Stream names which captured stream a pattern rule inspects.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
	StreamBoth   Stream = "both"
)

// Polarity decides what a pattern match means.
type Polarity string

const (
	// MatchMeansFail fails the probe when the pattern matches.
	MatchMeansFail Polarity = "match-means-fail"
	// MatchMeansPass fails the probe when the pattern does not match.
	MatchMeansPass Polarity = "match-means-pass"
)

// Command is a structured external command: a program plus its argument
// list. Actions are never interpolated shell strings; probes that need a
// pipeline declare it explicitly as an sh -c argument.
type Command struct {
	Program string   `yaml:"program" json:"program"`
	Args    []string `yaml:"args,omitempty" json:"args,omitempty"`
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Program
	}
	return c.Program + " " + strings.Join(c.Args, " ")
}

// Preconditions are the environmental requirements gating whether a probe
// can run at all. An unmet precondition skips the probe, it never fails it.
type Preconditions struct {
	// Tools must all be present on the executable search path.
	Tools []string `yaml:"tools,omitempty"`
	// Root requires the process to run with effective UID 0.
	Root bool `yaml:"root,omitempty"`
	// Platforms restricts the probe to the listed GOOS values.
	// Empty means any platform.
	Platforms []string `yaml:"platforms,omitempty"`
	// Package names the package providing a missing tool, surfaced as an
	// install hint on the skip message.
	Package string `yaml:"package,omitempty"`
}

// PatternRule judges captured output by regular-expression match.
// Patterns are applied in multi-line mode, so ^ and $ anchor lines.
type PatternRule struct {
	Expr     string
	Stream   Stream   // default stdout
	Polarity Polarity // default match-means-fail
}

// Finding is the outcome of an analysis rule.
type Finding struct {
	Status  Status
	Message string
}

// AnalyzeFunc inspects a captured result and produces a finding directly.
// Implementations must be pure functions of the result: no external I/O
// (that belongs in the action) and no retained state, so evaluation stays
// deterministic and replayable against captured output.
type AnalyzeFunc func(Result) Finding

// Rule is the tagged evaluation variant: exactly one of Pattern or
// Analyze is set.
type Rule struct {
	Pattern *PatternRule
	Analyze AnalyzeFunc

	// IgnoreExitStatus opts the rule out of exit-status handling: the
	// action's exit code is ignored and only its output is judged.
	// Without it a non-zero exit makes the probe inconclusive (error),
	// since exit status and output content are evaluated independently.
	IgnoreExitStatus bool
}

// Descriptor is the immutable declaration of one diagnostic check.
// Descriptors are defined before a run begins and never mutated; the
// action must be read-only with respect to host state, a contract the
// catalog author honors and the engine does not enforce.
type Descriptor struct {
	// Name uniquely identifies the probe across the catalog.
	Name        string
	Description string

	// Command is the action to execute. When Devices is set, the literal
	// "{device}" in its arguments is replaced per enumerated device.
	Command Command

	// Devices optionally enumerates devices (one per stdout line); the
	// action then runs once per device and the worst verdict wins.
	Devices *Command

	Rule     Rule
	Requires Preconditions
	Severity Severity

	// Timeout bounds one action invocation. Zero means the run default.
	Timeout time.Duration
}

// Result captures one action invocation. It is ephemeral: produced once
// per probe per run, consumed by the evaluator, then folded into the
// report.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Elapsed  time.Duration
	// TimedOut marks a non-terminal completion: the action was killed at
	// its deadline and the capture is partial.
	TimedOut bool
}

// Verdict is the outcome classification of a single probe for one run.
type Verdict struct {
	Probe    string        `json:"probe"`
	Status   Status        `json:"status"`
	Severity Severity      `json:"severity,omitempty"`
	Message  string        `json:"message,omitempty"`
	Elapsed  time.Duration `json:"elapsed_ns,omitempty"`
	// Output carries the raw captured output when the run is verbose.
	Output string `json:"output,omitempty"`
}
