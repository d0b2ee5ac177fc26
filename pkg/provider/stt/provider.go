// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider wraps a transcription service (e.g., Google Speech-to-Text,
// OpenAI, Deepgram, or a local Whisper server) and exposes a uniform batch
// interface: one complete recording in, one transcript out.
//
// Recognize is attempted exactly once. Providers must not retry internally;
// the caller decides what a failure means for the session.
//
// Outcomes are distinguished by error value:
//
//   - nil error: the service recognised speech and Transcript.Text holds it.
//   - [ErrUnintelligible]: the service answered but could not make out any
//     speech in the audio.
//   - any other error: the service could not be reached or rejected the
//     request (network, auth, quota, timeout, malformed response).
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
)

// ErrUnintelligible is returned (possibly wrapped) by Recognize when the
// service processed the audio but found no recognisable speech.
var ErrUnintelligible = errors.New("stt: speech could not be understood")

// Audio is a complete recording submitted for transcription.
type Audio struct {
	// PCM holds little-endian signed samples, interleaved when Channels > 1.
	PCM []byte

	// SampleRate is the audio sample rate in Hz (16000 for micscribe captures).
	SampleRate int

	// Channels is the number of audio channels. 1 = mono.
	Channels int

	// SampleWidth is the number of bytes per sample per channel. 2 = 16-bit.
	SampleWidth int

	// Language is the BCP-47 language tag for recognition (e.g., "en-US").
	// An empty string selects the provider's configured default.
	Language string
}

// Empty reports whether the recording holds no samples.
func (a Audio) Empty() bool {
	return len(a.PCM) == 0
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Recognize transcribes a complete recording. The call honours ctx for
	// cancellation and deadlines; a deadline expiring is a service error, not
	// [ErrUnintelligible].
	Recognize(ctx context.Context, audio Audio) (Transcript, error)
}

// Closer is implemented by providers that hold resources (loaded models,
// pooled clients) which must be released when the provider is discarded.
type Closer interface {
	Close() error
}
