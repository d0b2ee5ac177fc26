// Package audio defines the interfaces and types for microphone capture
// within micscribe.
//
// The two primary abstractions are:
//
//   - [Device]: an input device that can be opened for capture.
//   - [InputStream]: an open capture stream delivering fixed-size blocks of
//     16-bit little-endian PCM, one block per [InputStream.Read] call.
//
// Implementations are provided by adapter packages (e.g., audio/portaudio).
package audio

import (
	"context"
	"errors"
)

// ErrTransient marks a read failure that only affects the current block, such
// as an input overflow. Callers treat it as "no frame this tick" and keep
// reading.
var ErrTransient = errors.New("audio: transient read failure")

// InputStream is an open capture stream.
//
// Read blocks until one block of framesPerBuffer samples is available and
// returns it as little-endian PCM. The returned slice is owned by the caller.
// Close releases the underlying device. It is safe to call Close more than
// once; subsequent calls are no-ops and return nil.
type InputStream interface {
	Read() ([]byte, error)
	Close() error
}

// Device is the entry point for an audio capture backend.
type Device interface {
	// Open acquires the device and starts capture in the given format. Each
	// call to Read on the returned stream yields framesPerBuffer samples.
	//
	// Returns an error if the device cannot be acquired (no device present,
	// format unsupported, permission denied, etc.).
	Open(ctx context.Context, format Format, framesPerBuffer int) (InputStream, error)
}

// DeviceInfo describes an input device available to a [Lister].
type DeviceInfo struct {
	// Name is the host-reported device name. It is the value accepted by the
	// capture.device configuration key.
	Name string

	// HostAPI names the host audio API the device belongs to (ALSA, CoreAudio, …).
	HostAPI string

	// MaxInputChannels is the number of input channels the device offers.
	MaxInputChannels int

	// DefaultSampleRate is the device's preferred sample rate in Hz.
	DefaultSampleRate float64

	// IsDefault reports whether this is the system default input device.
	IsDefault bool
}

// Lister enumerates the input devices of a backend.
type Lister interface {
	InputDevices() ([]DeviceInfo, error)
}
