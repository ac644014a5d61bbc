// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hostdiag/hostdiag/cmd/hostdiag/commands"
	"github.com/hostdiag/hostdiag/cmd/hostdiag/internal/clierr"
)

func main() {
	// An interrupt cancels the run between probes; the partial report is
	// still rendered before exiting.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(clierr.ExitCodeOf(err))
	}
}
