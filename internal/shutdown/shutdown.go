// Package shutdown implements the two-stage graceful-shutdown dance
// used by cfcore (cftui handles its own signals), adapted from the teacher's
// internal/cli.Run signal handling: the first signal cancels the run's
// context and gives it a grace period to unwind; a second signal (or a
// grace-period timeout) forces immediate exit.
package shutdown

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// Grace is how long a run is given to react to cancellation before the
// second stage forces an exit.
const Grace = 5 * time.Second

// Run runs work in its own goroutine under a cancellable context derived
// from parent, returning work's error if it completes on its own. If a
// signal arrives on sigCh, the context is cancelled and a second signal
// (or the grace period elapsing) causes Run to return ErrForced without
// waiting further for work to finish.
func Run(parent context.Context, errOut io.Writer, sigCh <-chan os.Signal, work func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	done := make(chan error, 1)

	go func() { done <- work(ctx) }()

	select {
	case err := <-done:
		return err
	case <-sigCh:
		fmt.Fprintln(errOut, "shutting down, waiting up to", Grace, "for cleanup...")
		cancel()
	}

	select {
	case err := <-done:
		return err
	case <-time.After(Grace):
		fmt.Fprintln(errOut, "graceful shutdown timed out, forcing exit")
		return ErrForced
	case <-sigCh:
		fmt.Fprintln(errOut, "second interrupt received, forcing exit")
		return ErrForced
	}
}

// ErrForced is returned by Run when shutdown had to be forced rather
// than completing on its own.
var ErrForced = fmt.Errorf("shutdown forced")
