package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/ccsync/ccsync/cmd"
	"github.com/ccsync/ccsync/pkg/engine"
)

// waitForTermination blocks until e reaches STOPPED, stopping it early if
// the process receives one of cmd.TerminationSignals. It waits via the
// engine's state tracker rather than polling State() in a loop.
func waitForTermination(e *engine.Engine) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, cmd.TerminationSignals...)
	defer signal.Stop(signals)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		e.WaitForStopped(ctx)
		close(done)
	}()

	select {
	case <-signals:
		e.Stop()
		<-done
	case <-done:
	}
}
