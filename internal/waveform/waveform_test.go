package waveform

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/micscribe/pkg/audio"
)

func TestSamples(t *testing.T) {
	t.Parallel()

	pcm := audio.Int16ToPCM([]int16{0, 1, -1, math.MaxInt16, math.MinInt16})
	got := Samples(append(pcm, 0x7f)) // odd trailing byte is dropped
	want := []float64{0, 1, -1, 32767, -32768}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTimeAxis(t *testing.T) {
	t.Parallel()

	if got := TimeAxis(0, 16000); len(got) != 0 {
		t.Errorf("TimeAxis(0) = %v, want empty", got)
	}
	if got := TimeAxis(1, 16000); len(got) != 1 || got[0] != 0 {
		t.Errorf("TimeAxis(1) = %v, want [0]", got)
	}

	got := TimeAxis(5120, 16000)
	if len(got) != 5120 {
		t.Fatalf("len = %d, want 5120", len(got))
	}
	if got[0] != 0 {
		t.Errorf("first = %v, want 0", got[0])
	}
	if math.Abs(got[len(got)-1]-0.32) > 1e-12 {
		t.Errorf("last = %v, want 0.32", got[len(got)-1])
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("axis not increasing at %d: %v <= %v", i, got[i], got[i-1])
		}
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	pcm := audio.Int16ToPCM([]int16{10, 20, 30, 40})
	w := New(audio.DefaultFormat(), pcm)
	if w.Len() != 4 {
		t.Fatalf("Len = %d, want 4", w.Len())
	}
	if got, want := w.Seconds(), 4.0/16000; math.Abs(got-want) > 1e-12 {
		t.Errorf("Seconds = %v, want %v", got, want)
	}
	pts := w.XYs()
	if pts[3].Y != 40 || pts[3].X != w.Times[3] {
		t.Errorf("XYs[3] = %+v", pts[3])
	}

	empty := New(audio.DefaultFormat(), nil)
	if empty.Len() != 0 || empty.Seconds() != 0 {
		t.Errorf("empty waveform = %+v", empty)
	}
}

func TestEnvelope(t *testing.T) {
	t.Parallel()

	amps := []float64{1, -2, 3, -4, 5, -6, 7, -8}
	mins, maxs := Envelope(amps, 4)
	wantMin := []float64{-2, -4, -6, -8}
	wantMax := []float64{1, 3, 5, 7}
	for i := range 4 {
		if mins[i] != wantMin[i] || maxs[i] != wantMax[i] {
			t.Errorf("bucket %d = [%v, %v], want [%v, %v]", i, mins[i], maxs[i], wantMin[i], wantMax[i])
		}
	}

	mins, _ = Envelope(amps[:3], 10)
	if len(mins) != 3 {
		t.Errorf("short input: %d buckets, want 3", len(mins))
	}
	if mins, maxs := Envelope(nil, 10); mins != nil || maxs != nil {
		t.Error("empty input should give nil buckets")
	}
}

func TestRender_PNG(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		pcm  []byte
	}{
		{"speech", audio.Int16ToPCM([]int16{0, 1200, -800, 3000, -2500, 100})},
		{"empty", nil},
		{"single sample", audio.Int16ToPCM([]int16{42})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "wave.png")
			if err := Render(path, New(audio.DefaultFormat(), tt.pcm), DefaultStyle()); err != nil {
				t.Fatalf("Render: %v", err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")) {
				t.Errorf("output is not a PNG (%d bytes)", len(data))
			}
		})
	}
}

func TestPlot_Labels(t *testing.T) {
	t.Parallel()

	p, err := Plot(New(audio.DefaultFormat(), nil), DefaultStyle())
	if err != nil {
		t.Fatal(err)
	}
	if p.Title.Text != "Your Voice Waveform Visualization" {
		t.Errorf("title = %q", p.Title.Text)
	}
	if p.X.Label.Text != "Time (seconds)" || p.Y.Label.Text != "Amplitude" {
		t.Errorf("labels = %q / %q", p.X.Label.Text, p.Y.Label.Text)
	}
}

type fakeInput struct {
	err   error
	calls int
}

func (f *fakeInput) Next(context.Context) (string, error) {
	f.calls++
	return "", f.err
}

func TestWindow_Show(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := &fakeInput{}
	var opened string
	d := &Window{
		Style: DefaultStyle(),
		Input: in,
		Dir:   dir,
		Open: func(path string) error {
			opened = path
			if _, err := os.Stat(path); err != nil {
				t.Errorf("image missing while open: %v", err)
			}
			return nil
		},
	}
	if err := d.Show(context.Background(), New(audio.DefaultFormat(), audio.Int16ToPCM([]int16{1, 2, 3}))); err != nil {
		t.Fatalf("Show: %v", err)
	}
	if !strings.HasSuffix(opened, ".png") {
		t.Errorf("opened %q, want a .png", opened)
	}
	if in.calls != 1 {
		t.Errorf("input read %d times, want 1", in.calls)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("temporary image not removed: %v", entries)
	}
}

func TestWindow_Show_EOFAndErrors(t *testing.T) {
	t.Parallel()

	w := New(audio.DefaultFormat(), nil)
	noop := func(string) error { return nil }

	eof := &Window{Style: DefaultStyle(), Input: &fakeInput{err: io.EOF}, Dir: t.TempDir(), Open: noop}
	if err := eof.Show(context.Background(), w); err != nil {
		t.Errorf("EOF on input: %v, want nil", err)
	}

	openErr := errors.New("no viewer")
	bad := &Window{Style: DefaultStyle(), Input: &fakeInput{}, Dir: t.TempDir(), Open: func(string) error { return openErr }}
	if err := bad.Show(context.Background(), w); !errors.Is(err, openErr) {
		t.Errorf("open failure: %v, want %v", err, openErr)
	}
}

func TestTerminal_Render(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	d := &Terminal{Out: &buf, Style: DefaultStyle(), Width: 8, Height: 5}
	pcm := audio.Int16ToPCM([]int16{100, -100, 200, -200, 0, 0, 400, -400})
	if err := d.Show(context.Background(), New(audio.DefaultFormat(), pcm)); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	// title + 5 rows + axis
	if len(lines) != 7 {
		t.Fatalf("got %d lines, want 7:\n%s", len(lines), buf.String())
	}
	if lines[0] != "Your Voice Waveform Visualization" {
		t.Errorf("title = %q", lines[0])
	}
	if !strings.Contains(lines[1], "█") || !strings.Contains(lines[5], "█") {
		t.Errorf("loudest samples should reach top and bottom rows:\n%s", buf.String())
	}
	if !strings.HasPrefix(lines[6], "0.0s") || !strings.HasSuffix(lines[6], "0.0s") {
		t.Errorf("axis = %q", lines[6])
	}
}

func TestTerminal_RenderEmpty(t *testing.T) {
	t.Parallel()

	d := &Terminal{Out: io.Discard, Width: 10, Height: 3}
	out := d.Render(Waveform{})
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), out)
	}
	if lines[1] != strings.Repeat("─", 10) {
		t.Errorf("flat line = %q", lines[1])
	}
}
