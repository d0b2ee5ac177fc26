package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// Input delivers discrete operator actions, one per call. Next blocks until
// an action arrives or ctx is done.
type Input interface {
	Next(ctx context.Context) (string, error)
}

// Watch blocks until one operator action arrives on in and then sets stop.
//
// It returns without touching stop when ctx is done first or when stop was
// already set by someone else. A closed input (io.EOF) counts as an operator
// action, since no further action could ever arrive. Other input errors also
// set stop so that recording cannot run unattended; they are logged.
func Watch(ctx context.Context, in Input, stop *Signal) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stop.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	_, err := in.Next(ctx)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		stop.Set()
	case ctx.Err() != nil:
		// shutdown or already stopped
	default:
		slog.Warn("operator input failed, stopping capture", "err", err)
		stop.Set()
	}
}
