// Package waveform turns a recording into an amplitude-over-time plot and
// shows it to the operator, either as a PNG opened in the system viewer or as
// a column plot drawn on the terminal.
package waveform

import (
	"gonum.org/v1/plot/plotter"

	"github.com/MrWong99/micscribe/pkg/audio"
)

// Waveform is a recording decoded for plotting: one amplitude per sample and
// the matching time in seconds.
type Waveform struct {
	Times      []float64
	Amplitudes []float64
}

// New decodes mono 16-bit pcm recorded in format.
func New(format audio.Format, pcm []byte) Waveform {
	amps := Samples(pcm)
	return Waveform{
		Times:      TimeAxis(len(amps), format.SampleRate),
		Amplitudes: amps,
	}
}

// Len returns the number of samples.
func (w Waveform) Len() int { return len(w.Amplitudes) }

// Seconds returns the time of the last sample, or 0 for an empty waveform.
func (w Waveform) Seconds() float64 {
	if len(w.Times) == 0 {
		return 0
	}
	return w.Times[len(w.Times)-1]
}

// XYs returns the waveform as plot points.
func (w Waveform) XYs() plotter.XYs {
	pts := make(plotter.XYs, len(w.Amplitudes))
	for i, a := range w.Amplitudes {
		pts[i].X = w.Times[i]
		pts[i].Y = a
	}
	return pts
}

// Samples decodes little-endian signed 16-bit PCM into raw sample values.
// A trailing odd byte is ignored.
func Samples(pcm []byte) []float64 {
	ints := audio.PCMToInt16(pcm)
	out := make([]float64, len(ints))
	for i, v := range ints {
		out[i] = float64(v)
	}
	return out
}

// TimeAxis returns n evenly spaced times from 0 to n/rate seconds, both ends
// included. n == 0 yields an empty axis and n == 1 yields [0].
func TimeAxis(n, rate int) []float64 {
	if n <= 0 || rate <= 0 {
		return []float64{}
	}
	t := make([]float64, n)
	if n == 1 {
		return t
	}
	end := float64(n) / float64(rate)
	for i := range t {
		t[i] = float64(i) * end / float64(n-1)
	}
	return t
}

// Envelope splits amps into at most width equal buckets and returns the
// minimum and maximum of each. It returns nil slices for an empty input.
func Envelope(amps []float64, width int) (mins, maxs []float64) {
	n := len(amps)
	if n == 0 || width <= 0 {
		return nil, nil
	}
	cols := min(width, n)
	mins = make([]float64, cols)
	maxs = make([]float64, cols)
	for c := range cols {
		lo, hi := c*n/cols, (c+1)*n/cols
		mn, mx := amps[lo], amps[lo]
		for _, a := range amps[lo+1 : hi] {
			mn = min(mn, a)
			mx = max(mx, a)
		}
		mins[c], maxs[c] = mn, mx
	}
	return mins, maxs
}
