// Package mock provides in-memory mock implementations of the [audio.Device]
// and [audio.InputStream] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so that
// tests can assert on call counts and arguments, and they expose exported fields
// that the test can set to control return values.
//
// Typical usage:
//
//	stream := &mock.Stream{
//	    Script: []mock.Read{{Data: pcm}, {Err: audio.ErrTransient}},
//	    OnRead: func(n int) { if n == 3 { stop.Set() } },
//	}
//	dev := &mock.Device{Stream: stream}
//	s, err := dev.Open(ctx, audio.DefaultFormat(), 1024)
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/micscribe/pkg/audio"
)

// ─── Stream ───────────────────────────────────────────────────────────────────

// Read is one scripted result of [Stream.Read].
type Read struct {
	// Data is returned as the block. When nil and Err is nil, a silent block
	// of the negotiated size is returned instead.
	Data []byte
	// Err is returned as the read error.
	Err error
}

// Stream is a mock implementation of [audio.InputStream].
// Set the exported fields before use; inspect the CallCount* fields after.
type Stream struct {
	mu sync.Mutex

	// Script holds the results of the first len(Script) reads, in order.
	// Reads beyond the script return silent blocks.
	Script []Read

	// OnRead, if set, is invoked with the 1-based read number before the read
	// returns. Tests use it to set a stop signal mid-capture or to panic.
	OnRead func(n int)

	// CloseError is returned by [Stream.Close].
	CloseError error

	// BlockBytes is the size of a silent block. [Device.Open] sets it from the
	// requested format and buffer size.
	BlockBytes int

	// CallCountRead records how many times Read was called.
	CallCountRead int

	// CallCountClose records how many times Close was called.
	CallCountClose int
}

// Read implements [audio.InputStream].
func (s *Stream) Read() ([]byte, error) {
	s.mu.Lock()
	s.CallCountRead++
	n := s.CallCountRead
	var r Read
	if n <= len(s.Script) {
		r = s.Script[n-1]
	}
	size := s.BlockBytes
	hook := s.OnRead
	s.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Data == nil {
		return make([]byte, size), nil
	}
	out := make([]byte, len(r.Data))
	copy(out, r.Data)
	return out, nil
}

// Close implements [audio.InputStream]. Returns CloseError.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	return s.CloseError
}

// Reads returns the number of Read calls so far. Thread-safe.
func (s *Stream) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CallCountRead
}

// Closes returns the number of Close calls so far. Thread-safe.
func (s *Stream) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CallCountClose
}

// Ensure Stream implements audio.InputStream at compile time.
var _ audio.InputStream = (*Stream)(nil)

// ─── Device ───────────────────────────────────────────────────────────────────

// OpenCall records the arguments of a single [Device.Open] invocation.
type OpenCall struct {
	Format          audio.Format
	FramesPerBuffer int
}

// Device is a mock implementation of [audio.Device] and [audio.Lister].
type Device struct {
	mu sync.Mutex

	// Stream is returned by Open. If nil, Open creates an empty Stream.
	Stream *Stream

	// OpenError is the error returned by Open.
	OpenError error

	// Devices is returned by InputDevices.
	Devices []audio.DeviceInfo

	// OpenCalls records all Open invocations.
	OpenCalls []OpenCall
}

// Open implements [audio.Device]. Records the call and returns Stream / OpenError.
func (d *Device) Open(_ context.Context, format audio.Format, framesPerBuffer int) (audio.InputStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.OpenCalls = append(d.OpenCalls, OpenCall{Format: format, FramesPerBuffer: framesPerBuffer})
	if d.OpenError != nil {
		return nil, d.OpenError
	}
	if d.Stream == nil {
		d.Stream = &Stream{}
	}
	d.Stream.mu.Lock()
	d.Stream.BlockBytes = framesPerBuffer * format.BytesPerFrame()
	d.Stream.mu.Unlock()
	return d.Stream, nil
}

// InputDevices implements [audio.Lister]. Returns Devices.
func (d *Device) InputDevices() ([]audio.DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Devices, nil
}

var (
	_ audio.Device = (*Device)(nil)
	_ audio.Lister = (*Device)(nil)
)
