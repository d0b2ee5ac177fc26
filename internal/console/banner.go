package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	bannerTitle = "✨ YOUR MINI SPEECH-TO-TEXT STUDIO ✨"
	bannerWidth = 40
	valueWidth  = 28
)

// Banner prints the studio title between two rules.
func (r *Reporter) Banner() {
	rule := strings.Repeat("=", bannerWidth)
	title := bannerTitle
	if pad := (bannerWidth - lipgloss.Width(title)) / 2; pad > 0 {
		title = strings.Repeat(" ", pad) + title
	}
	r.println(rule + "\n" + r.s.Title.Render(title) + "\n" + rule)
}

// Row is one labelled line of a [Summary].
type Row struct {
	Label string
	Value string
}

// Summary is the startup overview printed before recording begins.
type Summary struct {
	Title string
	Rows  []Row
}

// Add appends a row. An empty value is shown as "(not configured)".
func (s *Summary) Add(label, value string) {
	if value == "" {
		value = "(not configured)"
	}
	s.Rows = append(s.Rows, Row{Label: label, Value: value})
}

// AddProvider appends a provider row shown as "name / model".
func (s *Summary) AddProvider(kind, name, model string) {
	value := name
	if name != "" && model != "" {
		value = name + " / " + model
	}
	s.Add(kind, value)
}

// Summary prints s inside a double-lined box.
func (r *Reporter) Summary(s Summary) {
	labelWidth := 0
	for _, row := range s.Rows {
		labelWidth = max(labelWidth, lipgloss.Width(row.Label))
	}

	lines := make([]string, 0, len(s.Rows)+2)
	if s.Title != "" {
		lines = append(lines, r.s.Title.Render(s.Title), "")
	}
	for _, row := range s.Rows {
		value := row.Value
		if lipgloss.Width(value) > valueWidth {
			value = truncate(value, valueWidth-1) + "…"
		}
		label := row.Label + strings.Repeat(" ", labelWidth-lipgloss.Width(row.Label))
		lines = append(lines, fmt.Sprintf("%s : %s", r.s.Label.Render(label), value))
	}
	r.println(r.s.Border.Render(strings.Join(lines, "\n")))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
