package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colour scheme for operator messages.
type Theme struct {
	Primary lipgloss.Color
	OK      lipgloss.Color
	Warn    lipgloss.Color
	Fail    lipgloss.Color
	Dim     lipgloss.Color
}

// DefaultTheme matches the waveform plot colour.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#2c3e50"),
	OK:      lipgloss.Color("#27ae60"),
	Warn:    lipgloss.Color("#f39c12"),
	Fail:    lipgloss.Color("#c0392b"),
	Dim:     lipgloss.Color("#7f8c8d"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	OK     lipgloss.Style
	Warn   lipgloss.Style
	Fail   lipgloss.Style
	Help   lipgloss.Style
	Border lipgloss.Style
}

// NewStyles creates styles from a theme using renderer r, so that colour
// support follows the writer the styles are printed to.
func NewStyles(r *lipgloss.Renderer, t Theme) Styles {
	return Styles{
		Title:  r.NewStyle().Bold(true).Foreground(t.Primary),
		Label:  r.NewStyle().Bold(true),
		OK:     r.NewStyle().Foreground(t.OK),
		Warn:   r.NewStyle().Foreground(t.Warn),
		Fail:   r.NewStyle().Bold(true).Foreground(t.Fail),
		Help:   r.NewStyle().Foreground(t.Dim),
		Border: r.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(t.Primary).Padding(0, 1),
	}
}

// Reporter prints styled status lines for the operator. It is safe for
// concurrent use.
type Reporter struct {
	mu sync.Mutex
	w  io.Writer
	s  Styles
}

// NewReporter returns a Reporter writing to w with [DefaultTheme].
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w, s: NewStyles(lipgloss.NewRenderer(w), DefaultTheme)}
}

// Styles returns the reporter's styles.
func (r *Reporter) Styles() Styles { return r.s }

// Writer returns the underlying writer.
func (r *Reporter) Writer() io.Writer { return r.w }

// Info prints a plain message.
func (r *Reporter) Info(format string, args ...any) {
	r.println(fmt.Sprintf(format, args...))
}

// Hint prints a dimmed message, e.g. a prompt.
func (r *Reporter) Hint(format string, args ...any) {
	r.println(r.s.Help.Render(fmt.Sprintf(format, args...)))
}

// Saved reports a file written to disk.
func (r *Reporter) Saved(what, path string) {
	r.println("💾 " + r.s.OK.Render(fmt.Sprintf("Saved %s as: %s", what, path)))
}

// Transcript prints the recognised text.
func (r *Reporter) Transcript(text string) {
	r.println(r.s.Label.Render("Transcription: ") + text)
}

// Warn prints a recoverable problem.
func (r *Reporter) Warn(format string, args ...any) {
	r.println("⚠️  " + r.s.Warn.Render(fmt.Sprintf(format, args...)))
}

// Fail prints a failure.
func (r *Reporter) Fail(format string, args ...any) {
	r.println("❌ " + r.s.Fail.Render(fmt.Sprintf(format, args...)))
}

func (r *Reporter) println(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w, s)
}
