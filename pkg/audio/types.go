package audio

import "time"

// Frame is one block of captured audio as returned by a single
// [InputStream.Read] call.
type Frame struct {
	// PCM audio data, little-endian signed samples in the session [Format].
	Data []byte

	// Timestamp marks when this frame was captured, relative to capture start.
	Timestamp time.Duration
}

// Samples returns the number of samples in the frame for the given format.
func (f Frame) Samples(format Format) int {
	return format.SamplesIn(len(f.Data))
}
