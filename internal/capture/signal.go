// Package capture implements the microphone recording side of a session: the
// one-shot stop [Signal], the operator [Watch]er that sets it, the
// append-only [Buffer], and the capture [Loop] that ties them to an
// [audio.Device].
//
// The capture loop and the watcher share nothing but the Signal. The loop is
// the only writer of the buffer; once it returns, the buffer is handed to the
// caller as a read-only [Recording].
package capture

import (
	"sync"
	"sync/atomic"
)

// Signal is a one-shot stop flag. The zero value is not usable; create one
// with [NewSignal]. A Signal is never reset; use a new one per session.
type Signal struct {
	set  atomic.Bool
	once sync.Once
	done chan struct{}
}

// NewSignal returns an unset Signal.
func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Set marks the signal as set. Only the first call has an effect.
func (s *Signal) Set() {
	s.once.Do(func() {
		s.set.Store(true)
		close(s.done)
	})
}

// IsSet reports whether [Signal.Set] has been called. It never blocks.
func (s *Signal) IsSet() bool {
	return s.set.Load()
}

// Done returns a channel that is closed when the signal is set.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}
