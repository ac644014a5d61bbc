package probe

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileProbe is the declarative form of a descriptor. Only pattern rules
// can be declared in a file; analysis rules are compiled in.
type fileProbe struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Command     Command       `yaml:"command"`
	Devices     *Command      `yaml:"devices"`
	Rule        fileRule      `yaml:"rule"`
	Requires    Preconditions `yaml:"requires"`
	Severity    Severity      `yaml:"severity"`
	Timeout     string        `yaml:"timeout"`
}

type fileRule struct {
	Pattern          string   `yaml:"pattern"`
	Stream           Stream   `yaml:"stream"`
	Polarity         Polarity `yaml:"polarity"`
	IgnoreExitStatus bool     `yaml:"ignore_exit_status"`
}

type catalogFile struct {
	Probes []fileProbe `yaml:"probes"`
}

// LoadFile reads a declarative probe catalog from a YAML file. Unknown
// fields are rejected so a misspelled key fails loudly instead of being
// silently ignored.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer func() { _ = f.Close() }()

	var file catalogFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding catalog %s: %w", path, err)
	}
	if len(file.Probes) == 0 {
		return nil, fmt.Errorf("catalog %s declares no probes", path)
	}

	probes := make([]Descriptor, 0, len(file.Probes))
	for _, fp := range file.Probes {
		d, err := fp.descriptor()
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", path, err)
		}
		probes = append(probes, d)
	}
	return NewCatalog(probes)
}

func (fp fileProbe) descriptor() (Descriptor, error) {
	d := Descriptor{
		Name:        fp.Name,
		Description: fp.Description,
		Command:     fp.Command,
		Devices:     fp.Devices,
		Requires:    fp.Requires,
		Severity:    fp.Severity,
	}

	if fp.Rule.Pattern == "" {
		return d, fmt.Errorf("probe %q: rule.pattern is required", fp.Name)
	}
	pr := &PatternRule{
		Expr:     fp.Rule.Pattern,
		Stream:   fp.Rule.Stream,
		Polarity: fp.Rule.Polarity,
	}
	if pr.Stream == "" {
		pr.Stream = StreamStdout
	}
	switch pr.Stream {
	case StreamStdout, StreamStderr, StreamBoth:
	default:
		return d, fmt.Errorf("probe %q: unknown stream %q", fp.Name, pr.Stream)
	}
	if pr.Polarity == "" {
		pr.Polarity = MatchMeansFail
	}
	switch pr.Polarity {
	case MatchMeansFail, MatchMeansPass:
	default:
		return d, fmt.Errorf("probe %q: unknown polarity %q", fp.Name, pr.Polarity)
	}
	d.Rule = Rule{Pattern: pr, IgnoreExitStatus: fp.Rule.IgnoreExitStatus}

	if d.Severity == "" {
		d.Severity = SeverityCritical
	}
	switch d.Severity {
	case SeverityCritical, SeverityWarning, SeverityInfo:
	default:
		return d, fmt.Errorf("probe %q: unknown severity %q", fp.Name, d.Severity)
	}

	if fp.Timeout != "" {
		timeout, err := time.ParseDuration(fp.Timeout)
		if err != nil {
			return d, fmt.Errorf("probe %q: bad timeout: %w", fp.Name, err)
		}
		if timeout <= 0 {
			return d, fmt.Errorf("probe %q: timeout must be positive", fp.Name)
		}
		d.Timeout = timeout
	}
	return d, nil
}
