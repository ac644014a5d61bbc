// Package sandbox executes probe actions under a bounded timeout,
// capturing stdout and stderr separately. A misbehaving action never
// propagates past the sandbox: crashes and timeouts are folded into the
// captured result so one probe cannot abort the run.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/hostdiag/hostdiag/internal/probe"
)

// DefaultTimeout bounds a probe action when neither the descriptor nor
// the run specifies one.
const DefaultTimeout = 30 * time.Second

// waitGrace bounds how long Wait may block on the captured I/O pipes
// once the process has exited or been killed. Shell pipelines leave
// grandchildren holding the inherited pipes; without the grace a hung
// grandchild would keep Run open past the probe's deadline.
const waitGrace = time.Second

// Executor runs probe actions.
type Executor struct {
	defaultTimeout time.Duration
}

// New builds an executor. defaultTimeout applies to probes that declare
// no timeout of their own; zero falls back to DefaultTimeout.
func New(defaultTimeout time.Duration) *Executor {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	return &Executor{defaultTimeout: defaultTimeout}
}

// Run invokes cmd exactly once and returns its captured result. The
// action's own misbehavior (non-zero exit, crash, timeout) is reported
// inside the result; the returned error is reserved for the action being
// impossible to start or the run being cancelled.
func (e *Executor) Run(ctx context.Context, cmd probe.Command, timeout time.Duration) (probe.Result, error) {
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(cctx, cmd.Program, cmd.Args...)
	c.WaitDelay = waitGrace
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	res := probe.Result{
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Elapsed: time.Since(start),
	}

	if ctx.Err() != nil {
		// The run itself was cancelled, not this probe's deadline.
		return res, ctx.Err()
	}
	if errors.Is(cctx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		return res, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		if errors.Is(err, exec.ErrWaitDelay) {
			// The process exited cleanly; an orphan held the pipes open
			// past the grace. What was captured is what gets judged.
			return res, nil
		}
		return res, fmt.Errorf("starting %s: %w", cmd.Program, err)
	}
	return res, nil
}
