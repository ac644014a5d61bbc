package probe

import "fmt"

// Catalog is the validated, ordered set of probe descriptors for one run.
// It is read-only once constructed; declaration order is the report order.
type Catalog struct {
	probes []Descriptor
}

// NewCatalog validates descriptors and builds a catalog. Duplicate or
// empty names and malformed rules are configuration errors, surfaced here
// at load time rather than during the run.
func NewCatalog(probes []Descriptor) (*Catalog, error) {
	seen := make(map[string]bool, len(probes))
	for i, d := range probes {
		if d.Name == "" {
			return nil, fmt.Errorf("probe %d: empty name", i)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("duplicate probe name %q", d.Name)
		}
		seen[d.Name] = true

		if d.Command.Program == "" {
			return nil, fmt.Errorf("probe %q: empty command", d.Name)
		}
		if (d.Rule.Pattern == nil) == (d.Rule.Analyze == nil) {
			return nil, fmt.Errorf("probe %q: rule must be exactly one of pattern or analysis", d.Name)
		}
	}
	return &Catalog{probes: probes}, nil
}

// Probes returns the descriptors in declaration order. Callers must not
// mutate the returned slice.
func (c *Catalog) Probes() []Descriptor { return c.probes }

// Len reports the number of probes in the catalog.
func (c *Catalog) Len() int { return len(c.probes) }

// Select narrows the catalog to the named subset. Probes in only are
// kept (all, when only is empty), probes in exclude are dropped, and
// declaration order is preserved. Naming an unknown probe is an error so
// a typo never silently runs the wrong set.
func (c *Catalog) Select(only, exclude []string) (*Catalog, error) {
	known := make(map[string]bool, len(c.probes))
	for _, d := range c.probes {
		known[d.Name] = true
	}
	for _, name := range only {
		if !known[name] {
			return nil, fmt.Errorf("unknown probe %q", name)
		}
	}
	for _, name := range exclude {
		if !known[name] {
			return nil, fmt.Errorf("unknown probe %q", name)
		}
	}

	keep := func(name string) bool {
		for _, ex := range exclude {
			if name == ex {
				return false
			}
		}
		if len(only) == 0 {
			return true
		}
		for _, on := range only {
			if name == on {
				return true
			}
		}
		return false
	}

	var probes []Descriptor
	for _, d := range c.probes {
		if keep(d.Name) {
			probes = append(probes, d)
		}
	}
	return &Catalog{probes: probes}, nil
}
