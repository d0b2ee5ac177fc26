package waveform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/browser"

	"github.com/MrWong99/micscribe/internal/capture"
	"github.com/MrWong99/micscribe/internal/console"
)

// Display shows a waveform to the operator. Show returns once the operator is
// done with it.
type Display interface {
	Show(ctx context.Context, w Waveform) error
}

// None is a Display that shows nothing.
type None struct{}

// Show implements [Display].
func (None) Show(context.Context, Waveform) error { return nil }

// Window renders the waveform to a temporary PNG, opens it in the system
// image viewer and waits for the operator to press Enter. The image is
// removed afterwards.
type Window struct {
	Style    Style
	Input    capture.Input
	Reporter *console.Reporter

	// Dir is where the temporary image is created. Empty means os.TempDir.
	Dir string

	// Open shows the file at path. Defaults to browser.OpenFile.
	Open func(path string) error
}

var _ Display = (*Window)(nil)

// Show implements [Display].
func (d *Window) Show(ctx context.Context, w Waveform) error {
	f, err := os.CreateTemp(d.Dir, "micscribe-waveform-*.png")
	if err != nil {
		return fmt.Errorf("waveform: create image: %w", err)
	}
	path := f.Name()
	_ = f.Close()
	defer os.Remove(path)

	if err := Render(path, w, d.Style); err != nil {
		return err
	}
	open := d.Open
	if open == nil {
		open = browser.OpenFile
	}
	if err := open(path); err != nil {
		return fmt.Errorf("waveform: open viewer: %w", err)
	}
	if d.Reporter != nil {
		d.Reporter.Hint("Waveform opened in your image viewer. Press Enter to close it.")
	}
	if _, err := d.Input.Next(ctx); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Terminal draws the waveform as a min/max column plot.
type Terminal struct {
	Out    io.Writer
	Style  Style
	Width  int // columns, default 72
	Height int // rows, default 11
}

var _ Display = (*Terminal)(nil)

// Show implements [Display].
func (d *Terminal) Show(_ context.Context, w Waveform) error {
	_, err := io.WriteString(d.Out, d.Render(w))
	return err
}

// Render returns the plot as text, ending in a newline.
func (d *Terminal) Render(w Waveform) string {
	width, height := d.Width, d.Height
	if width <= 0 {
		width = 72
	}
	if height <= 0 {
		height = 11
	}

	mins, maxs := Envelope(w.Amplitudes, width)
	peak := 0.0
	for i := range mins {
		peak = max(peak, math.Abs(mins[i]), math.Abs(maxs[i]))
	}
	if peak == 0 {
		peak = 1
	}
	row := func(v float64) int {
		return int(math.Round((1 - v/peak) / 2 * float64(height-1)))
	}

	cols := width
	if len(mins) > 0 {
		cols = len(mins)
	}
	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", cols))
	}
	for c := range mins {
		for r := row(maxs[c]); r <= row(mins[c]); r++ {
			grid[r][c] = '█'
		}
	}
	zero := row(0)
	for c := range cols {
		if grid[zero][c] == ' ' {
			grid[zero][c] = '─'
		}
	}

	r := lipgloss.NewRenderer(d.Out)
	ink := r.NewStyle().Foreground(lipgloss.Color(hexColor(d.Style)))
	var b strings.Builder
	if d.Style.Title != "" {
		b.WriteString(r.NewStyle().Bold(true).Render(d.Style.Title))
		b.WriteByte('\n')
	}
	for _, line := range grid {
		b.WriteString(ink.Render(string(line)))
		b.WriteByte('\n')
	}
	start, end := "0.0s", fmt.Sprintf("%.1fs", w.Seconds())
	gap := max(1, cols-len(start)-len(end))
	b.WriteString(start + strings.Repeat(" ", gap) + end + "\n")
	return b.String()
}

func hexColor(st Style) string {
	if st.Color == nil {
		return "#2c3e50"
	}
	r, g, b, _ := st.Color.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}
