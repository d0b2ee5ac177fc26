// Package wavfile reads and writes RIFF/WAV containers holding uncompressed
// 16-bit PCM, using the go-audio encoder and decoder.
package wavfile

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/MrWong99/micscribe/pkg/audio"
)

// wavFormatPCM is the WAVE_FORMAT_PCM tag.
const wavFormatPCM = 1

// ErrInvalidFile is returned by [Load] when the input is not a readable WAV
// file.
var ErrInvalidFile = errors.New("wavfile: not a valid WAV file")

// Write encodes pcm as a WAV stream on w. An empty pcm produces a valid
// header-only file whose duration is zero.
func Write(w io.WriteSeeker, format audio.Format, pcm []byte) error {
	if err := format.Validate(); err != nil {
		return fmt.Errorf("wavfile: %w", err)
	}
	enc := wav.NewEncoder(w, format.SampleRate, format.BitDepth(), format.Channels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: format.Channels,
			SampleRate:  format.SampleRate,
		},
		Data:           audio.PCMToInts(pcm),
		SourceBitDepth: format.BitDepth(),
	}
	// The header is emitted by the first Write, so it must run even when
	// there are no samples.
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return fmt.Errorf("wavfile: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wavfile: finalize: %w", err)
	}
	return nil
}

// Save writes pcm to a new file at path, replacing any existing file.
func Save(path string, format audio.Format, pcm []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wavfile: create %q: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("wavfile: close %q: %w", path, cerr)
		}
	}()
	return Write(f, format, pcm)
}

// Encode returns the complete WAV file for pcm as a byte slice, suitable for
// upload to a transcription service.
func Encode(format audio.Format, pcm []byte) ([]byte, error) {
	ws := &writeSeeker{}
	if err := Write(ws, format, pcm); err != nil {
		return nil, err
	}
	return ws.buf, nil
}

// Load reads a WAV file and returns its format and raw little-endian PCM.
func Load(path string) (audio.Format, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return audio.Format{}, nil, fmt.Errorf("wavfile: open %q: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes a WAV stream and returns its format and raw little-endian PCM.
// Only 16-bit PCM is accepted.
func Read(r io.ReadSeeker) (audio.Format, []byte, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return audio.Format{}, nil, ErrInvalidFile
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return audio.Format{}, nil, fmt.Errorf("wavfile: decode: %w", err)
	}
	format := audio.Format{
		SampleRate:  int(dec.SampleRate),
		Channels:    int(dec.NumChans),
		SampleWidth: int(dec.BitDepth) / 8,
	}
	if format.SampleWidth != 2 {
		return audio.Format{}, nil, fmt.Errorf("wavfile: %d-bit samples are not supported", dec.BitDepth)
	}
	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}
	return format, audio.Int16ToPCM(samples), nil
}

// writeSeeker is an in-memory io.WriteSeeker. The WAV encoder seeks back to
// patch chunk sizes once all samples are written.
type writeSeeker struct {
	buf []byte
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	end := w.pos + len(p)
	if end > len(w.buf) {
		if end > cap(w.buf) {
			grown := make([]byte, end, 2*end)
			copy(grown, w.buf)
			w.buf = grown
		} else {
			w.buf = w.buf[:end]
		}
	}
	copy(w.buf[w.pos:end], p)
	w.pos = end
	return len(p), nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(w.pos)
	case io.SeekEnd:
		base = int64(len(w.buf))
	default:
		return 0, fmt.Errorf("wavfile: invalid whence %d", whence)
	}
	next := base + offset
	if next < 0 {
		return 0, errors.New("wavfile: negative seek position")
	}
	w.pos = int(next)
	return next, nil
}
