// Package evaluate turns a captured execution result into a verdict by
// applying the probe's evaluation rule. Evaluation is pure: the same
// result and rule always produce the same verdict, and no fault escapes
// the evaluator boundary.
package evaluate

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hostdiag/hostdiag/internal/probe"
)

// matchExcerpt bounds how much matched text a fail message cites.
const matchExcerpt = 120

// Evaluator applies evaluation rules.
type Evaluator struct{}

// New builds an evaluator.
func New() *Evaluator { return &Evaluator{} }

// Verdict evaluates one probe's captured result. Timeouts, unexpected
// exit statuses, and evaluation faults (bad patterns, panicking analysis
// functions) all surface as error verdicts: inconclusive, never evidence
// of a problem.
func (e *Evaluator) Verdict(d probe.Descriptor, res probe.Result) probe.Verdict {
	v := probe.Verdict{
		Probe:    d.Name,
		Severity: d.Severity,
		Elapsed:  res.Elapsed,
	}

	if res.TimedOut {
		v.Status = probe.StatusError
		v.Message = fmt.Sprintf("timed out after %s", res.Elapsed.Round(time.Millisecond))
		return v
	}
	if res.ExitCode != 0 && !d.Rule.IgnoreExitStatus {
		v.Status = probe.StatusError
		v.Message = fmt.Sprintf("command exited %d", res.ExitCode)
		if excerpt := excerptOf(res.Stderr); excerpt != "" {
			v.Message += ": " + excerpt
		}
		return v
	}

	switch {
	case d.Rule.Pattern != nil:
		return e.pattern(d, res, v)
	case d.Rule.Analyze != nil:
		return e.analyze(d, res, v)
	default:
		// Unreachable for catalog-validated descriptors.
		v.Status = probe.StatusError
		v.Message = "evaluation fault: probe has no rule"
		return v
	}
}

func (e *Evaluator) pattern(d probe.Descriptor, res probe.Result, v probe.Verdict) probe.Verdict {
	rule := d.Rule.Pattern

	// Multi-line mode so ^ and $ anchor individual output lines.
	re, err := regexp.Compile("(?m)" + rule.Expr)
	if err != nil {
		v.Status = probe.StatusError
		v.Message = fmt.Sprintf("evaluation fault: bad pattern %q: %v", rule.Expr, err)
		return v
	}

	var text string
	switch rule.Stream {
	case probe.StreamStderr:
		text = res.Stderr
	case probe.StreamBoth:
		// Joined on a newline so a pattern cannot match across the
		// stream boundary.
		text = res.Stdout + "\n" + res.Stderr
	default:
		text = res.Stdout
	}

	match := re.FindString(text)
	matched := match != ""

	polarity := rule.Polarity
	if polarity == "" {
		polarity = probe.MatchMeansFail
	}

	switch {
	case polarity == probe.MatchMeansFail && matched:
		v.Status = failStatus(d.Severity)
		v.Message = fmt.Sprintf("matched %q", excerptOf(match))
	case polarity == probe.MatchMeansPass && !matched:
		v.Status = failStatus(d.Severity)
		v.Message = fmt.Sprintf("expected output matching %q", rule.Expr)
	default:
		v.Status = probe.StatusPass
		v.Message = d.Description
	}
	return v
}

func (e *Evaluator) analyze(d probe.Descriptor, res probe.Result, v probe.Verdict) (out probe.Verdict) {
	defer func() {
		if r := recover(); r != nil {
			v.Status = probe.StatusError
			v.Message = fmt.Sprintf("evaluation fault: %v", r)
			out = v
		}
	}()

	finding := d.Rule.Analyze(res)
	v.Message = finding.Message
	switch finding.Status {
	case probe.StatusFail:
		v.Status = failStatus(d.Severity)
	case probe.StatusPass:
		v.Status = probe.StatusPass
		if v.Message == "" {
			v.Message = d.Description
		}
	case probe.StatusWarn, probe.StatusError:
		v.Status = finding.Status
	default:
		v.Status = probe.StatusError
		v.Message = fmt.Sprintf("evaluation fault: analysis returned unknown status %q", finding.Status)
	}
	return v
}

// failStatus maps a failing evaluation to its verdict: non-critical
// failures surface as warnings so the report separates "broken" from
// "worth a look".
func failStatus(sev probe.Severity) probe.Status {
	switch sev {
	case probe.SeverityWarning, probe.SeverityInfo:
		return probe.StatusWarn
	default:
		return probe.StatusFail
	}
}

func excerptOf(s string) string {
	s = firstLineOrAll(strings.TrimSpace(s))
	if len(s) <= matchExcerpt {
		return s
	}
	// Back off to a rune boundary so the cut never emits invalid UTF-8.
	cut := matchExcerpt
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func firstLineOrAll(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
