package capture

import (
	"time"

	"github.com/MrWong99/micscribe/pkg/audio"
)

// Buffer is an append-only, ordered sequence of captured frames. It is not
// safe for concurrent use: the capture loop owns it while recording.
type Buffer struct {
	format audio.Format
	frames []audio.Frame
	size   int
}

// NewBuffer returns an empty Buffer for audio in format.
func NewBuffer(format audio.Format) *Buffer {
	return &Buffer{format: format}
}

// Append adds one frame. data is retained, not copied. The frame's timestamp
// is the playback offset of its first sample.
func (b *Buffer) Append(data []byte) {
	b.frames = append(b.frames, audio.Frame{
		Data:      data,
		Timestamp: b.format.Duration(b.size),
	})
	b.size += len(data)
}

// Len returns the number of frames.
func (b *Buffer) Len() int { return len(b.frames) }

// Size returns the total number of PCM bytes.
func (b *Buffer) Size() int { return b.size }

// Duration returns the playback duration of the buffered audio.
func (b *Buffer) Duration() time.Duration { return b.format.Duration(b.size) }

// Recording freezes the buffer into a [Recording]. The buffer must not be
// appended to afterwards.
func (b *Buffer) Recording() *Recording {
	return &Recording{Format: b.format, frames: b.frames, size: b.size}
}

// Recording is a finished capture: the session format plus the frames in
// capture order. It is read-only.
type Recording struct {
	Format audio.Format

	frames []audio.Frame
	size   int
}

// NewRecording wraps already captured PCM (e.g., loaded from a WAV file) as
// a single-frame Recording. Empty pcm yields an empty Recording.
func NewRecording(format audio.Format, pcm []byte) *Recording {
	b := NewBuffer(format)
	if len(pcm) > 0 {
		b.Append(pcm)
	}
	return b.Recording()
}

// Frames returns a copy of the frame list. Frame data is shared and must not
// be modified.
func (r *Recording) Frames() []audio.Frame {
	out := make([]audio.Frame, len(r.frames))
	copy(out, r.frames)
	return out
}

// FrameCount returns the number of captured frames.
func (r *Recording) FrameCount() int { return len(r.frames) }

// PCM returns the concatenation of all frames.
func (r *Recording) PCM() []byte {
	out := make([]byte, 0, r.size)
	for _, f := range r.frames {
		out = append(out, f.Data...)
	}
	return out
}

// Size returns the total number of PCM bytes.
func (r *Recording) Size() int { return r.size }

// SampleCount returns the number of samples in the recording.
func (r *Recording) SampleCount() int { return r.Format.SamplesIn(r.size) }

// Duration returns the playback duration.
func (r *Recording) Duration() time.Duration { return r.Format.Duration(r.size) }

// Empty reports whether no audio was captured.
func (r *Recording) Empty() bool { return r.size == 0 }
