package console

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/MrWong99/micscribe/internal/capture"
)

var spinnerFrames = [...]byte{'|', '/', '-', '\\'}

// Spinner draws a one-line "Recording..." indicator that is redrawn in place
// on every capture tick.
type Spinner struct {
	mu    sync.Mutex
	w     io.Writer
	ticks int
	drawn bool
}

var _ capture.Progress = (*Spinner)(nil)

// NewSpinner returns a Spinner drawing to w.
func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{w: w}
}

// Tick redraws the spinner line.
func (s *Spinner) Tick(frames int, captured time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := spinnerFrames[s.ticks%len(spinnerFrames)]
	s.ticks++
	s.drawn = true
	fmt.Fprintf(s.w, "\r%c Recording... %s", c, formatClock(captured))
}

// Done ends the spinner line so that later output starts on a fresh line.
func (s *Spinner) Done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drawn {
		fmt.Fprintln(s.w)
		s.drawn = false
	}
}

// formatClock renders d as mm:ss.t.
func formatClock(d time.Duration) string {
	d = d.Round(100 * time.Millisecond)
	m := int(d / time.Minute)
	s := d % time.Minute
	return fmt.Sprintf("%02d:%04.1f", m, s.Seconds())
}
