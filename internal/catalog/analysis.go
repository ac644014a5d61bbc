package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hostdiag/hostdiag/internal/probe"
)

var firstNumber = regexp.MustCompile(`\d+`)

// analyzeCurrentMax handles actions that print a current value on one
// line and its maximum on the next (file descriptors, threads). Fails
// when current/max exceeds ratio.
func analyzeCurrentMax(ratio float64, message string) probe.AnalyzeFunc {
	return func(res probe.Result) probe.Finding {
		var values []float64
		for _, line := range strings.Split(res.Stdout, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			num := firstNumber.FindString(line)
			if num == "" {
				return errorFinding("no number in line %q", line)
			}
			v, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return errorFinding("parsing %q: %v", num, err)
			}
			values = append(values, v)
		}
		if len(values) != 2 {
			return errorFinding("expected current and max values, got %d lines", len(values))
		}
		current, max := values[0], values[1]
		if max <= 0 {
			return errorFinding("nonsensical maximum %v", max)
		}
		if current/max > ratio {
			return probe.Finding{Status: probe.StatusFail, Message: message}
		}
		return probe.Finding{Status: probe.StatusPass}
	}
}

// analyzeFreeMemory inspects `free -m` output: memory usage over 90% or
// swap usage over 25% (when swap exists) fails.
func analyzeFreeMemory(res probe.Result) probe.Finding {
	var rows [][]string
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rows = append(rows, strings.Fields(line))
	}
	// Header row, Mem row, optionally a Swap row.
	if len(rows) < 2 || len(rows[1]) < 3 {
		return errorFinding("unrecognized free output")
	}

	var failures []string
	memTotal, err1 := strconv.ParseFloat(rows[1][1], 64)
	memUsed, err2 := strconv.ParseFloat(rows[1][2], 64)
	if err1 != nil || err2 != nil || memTotal <= 0 {
		return errorFinding("unrecognized memory row %q", strings.Join(rows[1], " "))
	}
	if memUsed/memTotal > 0.90 {
		failures = append(failures, "memory usage > 90%")
	}

	if len(rows) > 2 && len(rows[2]) >= 3 {
		swapTotal, err1 := strconv.ParseFloat(rows[2][1], 64)
		swapUsed, err2 := strconv.ParseFloat(rows[2][2], 64)
		if err1 != nil || err2 != nil {
			return errorFinding("unrecognized swap row %q", strings.Join(rows[2], " "))
		}
		if swapTotal > 0 && swapUsed/swapTotal > 0.25 {
			failures = append(failures, "swap usage > 25%")
		}
	}

	if len(failures) > 0 {
		return probe.Finding{Status: probe.StatusFail, Message: strings.Join(failures, "; ")}
	}
	return probe.Finding{Status: probe.StatusPass}
}

var (
	sensorTemp = regexp.MustCompile(`^[^:+\n]*:.*?([\d.]+)`)
	sensorHigh = regexp.MustCompile(`\(.*high\s*=\s*\+?([\d.]+)`)
	sensorCrit = regexp.MustCompile(`\(.*crit\s*=\s*\+?([\d.]+)`)
)

// defaultTempLimit applies when a sensor reports no high or crit limit.
const defaultTempLimit = 105

// analyzeTemperatures inspects `sensors` output, failing on any reading
// above its high/crit limit.
func analyzeTemperatures(res probe.Result) probe.Finding {
	var failures []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		temp, ok := extractFloat(sensorTemp, line)
		if !ok {
			continue
		}
		limit := float64(defaultTempLimit)
		if high, ok := extractFloat(sensorHigh, line); ok {
			limit = high
		}
		if crit, ok := extractFloat(sensorCrit, line); ok && crit < limit {
			limit = crit
		}
		if temp > limit {
			failures = append(failures, strings.TrimSpace(line))
		}
	}
	if len(failures) > 0 {
		return probe.Finding{Status: probe.StatusFail, Message: strings.Join(failures, "; ")}
	}
	return probe.Finding{Status: probe.StatusPass}
}

func extractFloat(re *regexp.Regexp, line string) (float64, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// SMART attribute limits: worn-out media and pending sector reallocation
// are the two reliable early failure signals in the attribute table.
var smartLimits = map[string]struct {
	column string
	min    float64
	max    float64
}{
	"Media_Wearout_Indicator": {column: "VALUE", min: 10, max: -1},
	"Current_Pending_Sector":  {column: "RAW_VALUE", min: -1, max: 20},
}

// analyzeSMART parses the `smartctl -A` attribute table and checks the
// watched attributes against their limits.
func analyzeSMART(res probe.Result) probe.Finding {
	lines := strings.Split(res.Stdout, "\n")
	headerIdx := -1
	for i, line := range lines {
		if strings.Contains(line, "ID#") {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return errorFinding("no attribute table in smartctl output")
	}

	header := strings.Fields(lines[headerIdx])
	var failures []string
	for _, line := range lines[headerIdx+1:] {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			break
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(fields) {
				row[name] = fields[i]
			}
		}

		limits, watched := smartLimits[row["ATTRIBUTE_NAME"]]
		if !watched {
			continue
		}
		value, err := strconv.ParseFloat(row[limits.column], 64)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: unreadable %s %q", row["ATTRIBUTE_NAME"], limits.column, row[limits.column]))
			continue
		}
		if (limits.min >= 0 && value < limits.min) || (limits.max >= 0 && value > limits.max) {
			failures = append(failures, fmt.Sprintf("%s %v", row["ATTRIBUTE_NAME"], value))
		}
	}
	if len(failures) > 0 {
		return probe.Finding{Status: probe.StatusFail, Message: strings.Join(failures, "; ")}
	}
	return probe.Finding{Status: probe.StatusPass}
}

// analyzeHdparmSecurity inspects the Security section of `hdparm -I`:
// a drive reporting locked or frozen (without "not"), or a checksum that
// is not correct, fails.
func analyzeHdparmSecurity(res probe.Result) probe.Finding {
	var failures []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "locked":
			failures = append(failures, "security locked")
		case trimmed == "frozen":
			failures = append(failures, "security frozen")
		case strings.HasPrefix(trimmed, "Checksum:") && !strings.Contains(trimmed, "correct"):
			failures = append(failures, trimmed)
		}
	}
	if len(failures) > 0 {
		return probe.Finding{Status: probe.StatusFail, Message: strings.Join(failures, "; ")}
	}
	return probe.Finding{Status: probe.StatusPass}
}

func errorFinding(format string, args ...any) probe.Finding {
	return probe.Finding{
		Status:  probe.StatusError,
		Message: fmt.Sprintf(format, args...),
	}
}
