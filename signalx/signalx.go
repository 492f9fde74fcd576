// Package signalx ties process signals to context cancellation.
package signalx

import (
	"context"
	"os"
	"os/signal"
	"sync"
)

// ExitCode is the process exit code used when a second signal forces an exit.
var ExitCode = 130

// NotifyExit returns a context that is cancelled when one of signals is received.
// A second signal exits the process immediately with [ExitCode], for work that doesn't stop in time.
// The returned stop function releases the signal handlers and cancels the context.
func NotifyExit(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	if len(signals) == 0 {
		panic("no signals passed to NotifyExit")
	}
	ctx, cancel := context.WithCancel(parent)
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, signals...)
	stopped := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			cancel()
		case <-stopped:
			return
		}
		select {
		case <-sigs:
			os.Exit(ExitCode)
		case <-stopped:
		}
	}()
	var once sync.Once
	stop := func() {
		once.Do(func() {
			signal.Stop(sigs)
			close(stopped)
			cancel()
		})
	}
	return ctx, stop
}
