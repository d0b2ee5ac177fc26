package waveform

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Style controls how a waveform is drawn.
type Style struct {
	Title    string
	XLabel   string
	YLabel   string
	Color    color.Color
	WidthIn  float64
	HeightIn float64
}

// DefaultStyle returns a 10x4 inch dark slate plot.
func DefaultStyle() Style {
	return Style{
		Title:    "Your Voice Waveform Visualization",
		XLabel:   "Time (seconds)",
		YLabel:   "Amplitude",
		Color:    color.RGBA{R: 0x2c, G: 0x3e, B: 0x50, A: 0xff},
		WidthIn:  10,
		HeightIn: 4,
	}
}

// gridColor is black at 30% opacity.
var gridColor = color.NRGBA{A: 0x4d}

// Plot builds the plot for w. An empty waveform yields axes and grid only.
func Plot(w Waveform, st Style) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = st.Title
	p.X.Label.Text = st.XLabel
	p.Y.Label.Text = st.YLabel

	grid := plotter.NewGrid()
	grid.Vertical.Color = gridColor
	grid.Horizontal.Color = gridColor
	p.Add(grid)

	if w.Len() == 0 {
		p.X.Min, p.X.Max = 0, 1
		p.Y.Min, p.Y.Max = -1, 1
		return p, nil
	}

	line, err := plotter.NewLine(w.XYs())
	if err != nil {
		return nil, fmt.Errorf("waveform: build line: %w", err)
	}
	line.LineStyle.Color = st.Color
	line.LineStyle.Width = vg.Points(0.75)
	p.Add(line)
	p.X.Min = 0
	return p, nil
}

// Render draws w to path. The image format follows the file extension
// (.png, .svg, .pdf, …).
func Render(path string, w Waveform, st Style) error {
	p, err := Plot(w, st)
	if err != nil {
		return err
	}
	width := vg.Length(st.WidthIn) * vg.Inch
	height := vg.Length(st.HeightIn) * vg.Inch
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("waveform: save %q: %w", path, err)
	}
	return nil
}
