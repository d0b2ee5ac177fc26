package audio

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Session defaults. Speech recognisers expect 16 kHz mono 16-bit PCM.
const (
	DefaultSampleRate      = 16000
	DefaultChannels        = 1
	DefaultSampleWidth     = 2
	DefaultFramesPerBuffer = 1024
)

// Format describes the sample rate, channel count, and sample width of an
// audio stream.
type Format struct {
	SampleRate  int
	Channels    int
	SampleWidth int // bytes per sample per channel
}

// DefaultFormat returns the 16 kHz mono 16-bit format used for capture.
func DefaultFormat() Format {
	return Format{
		SampleRate:  DefaultSampleRate,
		Channels:    DefaultChannels,
		SampleWidth: DefaultSampleWidth,
	}
}

// BytesPerFrame returns the number of bytes one sample across all channels
// occupies. Returns 0 for an invalid format.
func (f Format) BytesPerFrame() int {
	if f.Channels <= 0 || f.SampleWidth <= 0 {
		return 0
	}
	return f.Channels * f.SampleWidth
}

// BitDepth returns the sample width in bits.
func (f Format) BitDepth() int {
	return f.SampleWidth * 8
}

// SamplesIn returns how many whole samples n bytes of PCM hold.
func (f Format) SamplesIn(n int) int {
	bpf := f.BytesPerFrame()
	if bpf == 0 {
		return 0
	}
	return n / bpf
}

// Duration returns the playback duration of n bytes of PCM.
func (f Format) Duration(n int) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	samples := f.SamplesIn(n)
	return time.Duration(samples) * time.Second / time.Duration(f.SampleRate)
}

// Validate reports whether f describes a format the capture pipeline can
// handle: positive rate, mono, 16-bit.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("audio: sample rate %d must be positive", f.SampleRate)
	}
	if f.Channels != 1 {
		return fmt.Errorf("audio: %d channels requested, only mono is supported", f.Channels)
	}
	if f.SampleWidth != 2 {
		return fmt.Errorf("audio: sample width %d bytes requested, only 16-bit is supported", f.SampleWidth)
	}
	return nil
}

// String returns a human-readable form such as "16000Hz mono 16-bit".
func (f Format) String() string {
	ch := "mono"
	switch f.Channels {
	case 1:
	case 2:
		ch = "stereo"
	default:
		ch = fmt.Sprintf("%dch", f.Channels)
	}
	return fmt.Sprintf("%dHz %s %d-bit", f.SampleRate, ch, f.BitDepth())
}

// Int16ToPCM encodes samples as little-endian 16-bit PCM.
func Int16ToPCM(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// PCMToInt16 decodes little-endian 16-bit PCM. Any trailing odd byte is
// ignored.
func PCMToInt16(pcm []byte) []int16 {
	n := len(pcm) / 2
	out := make([]int16, n)
	for i := range n {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
	}
	return out
}

// PCMToInts decodes little-endian 16-bit PCM into ints, the sample type used
// by go-audio buffers.
func PCMToInts(pcm []byte) []int {
	n := len(pcm) / 2
	out := make([]int, n)
	for i := range n {
		out[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2])))
	}
	return out
}

// PCMToFloat32 converts 16-bit signed little-endian PCM audio to float32
// samples normalised to the range [-1.0, 1.0].
func PCMToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := range n {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}
