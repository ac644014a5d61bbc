// Package precond decides whether a probe's preconditions hold in the
// current environment. Resolution is query-only: it never invokes the
// probe's action, and an unmet precondition skips the probe downstream
// rather than failing it.
package precond

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/hostdiag/hostdiag/internal/probe"
)

// Reason classifies why a probe is ineligible.
type Reason string

const (
	ReasonMissingTool           Reason = "missing-tool"
	ReasonWrongPlatform         Reason = "wrong-platform"
	ReasonInsufficientPrivilege Reason = "insufficient-privilege"
)

// Eligibility is the outcome of resolving one probe's preconditions.
// When Eligible is false, Reason and Detail explain the first unmet
// precondition; one reason is enough for diagnosis.
type Eligibility struct {
	Eligible bool
	Reason   Reason
	Detail   string
}

// Resolver checks probe preconditions against the current process and
// host. The probes are injectable so tests can simulate environments.
type Resolver struct {
	goos     string
	euid     func() int
	lookPath func(string) (string, error)
}

// NewResolver builds a resolver bound to the real environment.
func NewResolver() *Resolver {
	return &Resolver{
		goos:     runtime.GOOS,
		euid:     os.Geteuid,
		lookPath: exec.LookPath,
	}
}

// Resolve checks each declared precondition and reports the first unmet
// one, in declaration order: platform, privilege, tools.
func (r *Resolver) Resolve(d probe.Descriptor) Eligibility {
	req := d.Requires

	if len(req.Platforms) > 0 && !contains(req.Platforms, r.goos) {
		return Eligibility{
			Reason: ReasonWrongPlatform,
			Detail: fmt.Sprintf("requires %s, running on %s", strings.Join(req.Platforms, "/"), r.goos),
		}
	}

	if req.Root && r.euid() != 0 {
		return Eligibility{
			Reason: ReasonInsufficientPrivilege,
			Detail: "requires root",
		}
	}

	for _, tool := range req.Tools {
		if _, err := r.lookPath(tool); err != nil {
			detail := fmt.Sprintf("%s not found in PATH", tool)
			if req.Package != "" {
				detail += ", install " + req.Package
			}
			return Eligibility{Reason: ReasonMissingTool, Detail: detail}
		}
	}

	return Eligibility{Eligible: true}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
