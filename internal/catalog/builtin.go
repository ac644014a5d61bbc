// Package catalog declares the builtin probes: the checks a default
// `hostdiag` invocation runs against the host. Each probe wraps an
// existing system tool; the catalog contributes no diagnostics of its
// own beyond classifying that tool's output.
package catalog

import "github.com/hostdiag/hostdiag/internal/probe"

// driveEnumerator lists SATA-style block devices, one per line. The
// trailing `|| true` keeps the enumerator quiet on hosts without any.
func driveEnumerator() *probe.Command {
	return &probe.Command{
		Program: "sh",
		Args:    []string{"-c", "ls /dev/sd* 2>/dev/null | grep -E '^/dev/sd[a-z]+$' || true"},
	}
}

func sh(script string) probe.Command {
	return probe.Command{Program: "sh", Args: []string{"-c", script}}
}

func patternFail(expr string) probe.Rule {
	return probe.Rule{Pattern: &probe.PatternRule{
		Expr:     expr,
		Stream:   probe.StreamStdout,
		Polarity: probe.MatchMeansFail,
	}}
}

func patternPass(expr string) probe.Rule {
	return probe.Rule{Pattern: &probe.PatternRule{
		Expr:     expr,
		Stream:   probe.StreamStdout,
		Polarity: probe.MatchMeansPass,
	}}
}

func analysis(fn probe.AnalyzeFunc) probe.Rule {
	return probe.Rule{Analyze: fn}
}

var linux = []string{"linux"}

// Builtin returns the builtin probe catalog in report order.
func Builtin() (*probe.Catalog, error) {
	return probe.NewCatalog([]probe.Descriptor{
		// System journals.
		{
			Name:        "dmesg",
			Description: "no concerning kernel error logs",
			Command:     probe.Command{Program: "dmesg"},
			Rule:        patternFail(`UncorrectableError|Remounting filesystem read-only|hung_task_timeout_secs|BUG: soft lockup|nfs: server [^\n]* not responding|invoked oom-killer`),
			Requires:    probe.Preconditions{Platforms: linux},
			Severity:    probe.SeverityCritical,
		},
		{
			Name:        "journalctl",
			Description: "no emergency-to-error journal entries recently",
			Command:     probe.Command{Program: "journalctl", Args: []string{"-p", "0..3", "-xn", "--since", "-240"}},
			Rule:        patternPass(`^-- No entries --$`),
			Requires:    probe.Preconditions{Tools: []string{"journalctl"}, Package: "systemd", Platforms: linux},
			Severity:    probe.SeverityWarning,
		},

		// Services and process limits.
		{
			Name:        "systemctl",
			Description: "no failed services",
			Command:     probe.Command{Program: "systemctl", Args: []string{"--failed"}},
			Rule:        patternFail(`\sfailed\s`),
			Requires:    probe.Preconditions{Tools: []string{"systemctl"}, Package: "systemd", Platforms: linux},
			Severity:    probe.SeverityWarning,
		},
		{
			Name:        "file-descriptors",
			Description: "file descriptor usage < 95%",
			Command:     sh("lsof | wc -l && sysctl fs.file-max"),
			Rule:        analysis(analyzeCurrentMax(0.95, "file descriptor usage > 95%")),
			Requires:    probe.Preconditions{Tools: []string{"lsof"}, Package: "lsof", Platforms: linux},
			Severity:    probe.SeverityWarning,
		},
		{
			Name:        "threads",
			Description: "thread usage < 95%",
			Command:     sh(`ps -eo nlwp | tail -n +2 | awk '{n += $1} END {print n}' && ulimit -u`),
			Rule:        analysis(analyzeCurrentMax(0.95, "thread usage > 95%")),
			Requires:    probe.Preconditions{Platforms: linux},
			Severity:    probe.SeverityWarning,
		},

		// Disks.
		{
			Name:        "hdparm",
			Description: "drive security unlocked and not frozen",
			Command:     probe.Command{Program: "hdparm", Args: []string{"-I", "{device}"}},
			Devices:     driveEnumerator(),
			Rule:        analysis(analyzeHdparmSecurity),
			Requires:    probe.Preconditions{Tools: []string{"hdparm"}, Root: true, Package: "hdparm", Platforms: linux},
			Severity:    probe.SeverityCritical,
		},
		{
			Name:        "disk-usage",
			Description: "disk usage < 95%",
			Command:     probe.Command{Program: "df"},
			Rule:        patternFail(`(?:9[5-9]|100)%.*$`),
			Requires:    probe.Preconditions{Platforms: linux},
			Severity:    probe.SeverityCritical,
		},
		{
			Name:        "inode-usage",
			Description: "inode usage < 95%",
			Command:     probe.Command{Program: "df", Args: []string{"-i"}},
			Rule:        patternFail(`(?:9[5-9]|100)%.*$`),
			Requires:    probe.Preconditions{Platforms: linux},
			Severity:    probe.SeverityCritical,
		},
		{
			Name:        "smart",
			Description: "drives in usable health",
			Command:     probe.Command{Program: "smartctl", Args: []string{"-A", "{device}"}},
			Devices:     driveEnumerator(),
			Rule:        analysis(analyzeSMART),
			Requires:    probe.Preconditions{Tools: []string{"smartctl"}, Root: true, Package: "smartmontools", Platforms: linux},
			Severity:    probe.SeverityCritical,
		},

		// Network.
		{
			Name:        "ip-link",
			Description: "network links up",
			Command:     probe.Command{Program: "ip", Args: []string{"link"}},
			Rule:        patternFail(`^\d+:.*state DOWN.*$`),
			Requires:    probe.Preconditions{Tools: []string{"ip"}, Package: "iproute2", Platforms: linux},
			Severity:    probe.SeverityInfo,
		},
		{
			Name:        "internet",
			Description: "external DNS reachable",
			Command:     probe.Command{Program: "ping", Args: []string{"-c", "1", "8.8.8.8"}},
			Rule: probe.Rule{
				Pattern: &probe.PatternRule{
					Expr:     `0 received, 100% packet loss`,
					Stream:   probe.StreamStdout,
					Polarity: probe.MatchMeansFail,
				},
				// ping exits non-zero on packet loss; the pattern is the judge.
				IgnoreExitStatus: true,
			},
			Requires: probe.Preconditions{Tools: []string{"ping"}, Platforms: linux},
			Severity: probe.SeverityWarning,
		},

		// Memory and hardware.
		{
			Name:        "memory",
			Description: "memory < 90%, swap < 25%",
			Command:     probe.Command{Program: "free", Args: []string{"-m"}},
			Rule:        analysis(analyzeFreeMemory),
			Requires:    probe.Preconditions{Tools: []string{"free"}, Package: "procps", Platforms: linux},
			Severity:    probe.SeverityWarning,
		},
		{
			Name:        "sensors",
			Description: "temperatures within limits",
			Command:     probe.Command{Program: "sensors"},
			Rule:        analysis(analyzeTemperatures),
			Requires:    probe.Preconditions{Tools: []string{"sensors"}, Package: "lm-sensors", Platforms: linux},
			Severity:    probe.SeverityCritical,
		},
	})
}
