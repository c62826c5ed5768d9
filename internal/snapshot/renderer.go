// Package snapshot renders the display buffer to PNG images and writes them
// on a frame schedule.
package snapshot

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/sonarmap/internal/sonar"
	"github.com/banshee-data/sonarmap/internal/units"
)

const (
	// axisMargin pads the map beyond the sensor range on every side but the
	// bottom, which stops one metre behind the sensor.
	axisMargin   = 0.5
	axisBottom   = -1.0
	imageWidth   = 8 * vg.Inch
	formatPNG    = "png"
	minImageSide = 2 * vg.Inch
)

var (
	pointColor  = color.RGBA{R: 220, G: 20, B: 20, A: 255}
	pointRadius = vg.Points(2)
)

// Renderer draws the smoothed map as an equal-aspect scatter plot with the
// sensor at the origin.
type Renderer struct {
	rangeM float64
	window int
}

// NewRenderer returns a Renderer for a pipeline built with cfg.
func NewRenderer(cfg sonar.Config) *Renderer {
	return &Renderer{
		rangeM: units.MillimetresToMetres(cfg.MaxSensorRangeMM),
		window: cfg.FilterWindowSize,
	}
}

// Title returns the plot title, e.g. "2D Sonar Map (Range: 6.0m, Filter: 5pts)".
func (r *Renderer) Title() string {
	return fmt.Sprintf("2D Sonar Map (Range: %.1fm, Filter: %dpts)", r.rangeM, r.window)
}

// Bounds returns the fixed axis limits of the map in metres.
func (r *Renderer) Bounds() (xMin, xMax, yMin, yMax float64) {
	return -r.rangeM - axisMargin, r.rangeM + axisMargin, axisBottom, r.rangeM + axisMargin
}

// Size returns the image dimensions. Height follows the y span so one metre is
// the same length on both axes.
func (r *Renderer) Size() (w, h vg.Length) {
	xMin, xMax, yMin, yMax := r.Bounds()
	h = vg.Length(float64(imageWidth) * (yMax - yMin) / (xMax - xMin))
	if h < minImageSide {
		h = minImageSide
	}
	return imageWidth, h
}

// Plot builds the plot for points. Points outside the axis limits are left out.
func (r *Renderer) Plot(points []sonar.Point) (*plot.Plot, error) {
	xMin, xMax, yMin, yMax := r.Bounds()

	p := plot.New()
	p.Title.Text = r.Title()
	p.X.Label.Text = "X distance (m)"
	p.Y.Label.Text = "Y distance (m)"
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, 0, len(points))
	for _, pt := range points {
		if pt.X < xMin || pt.X > xMax || pt.Y < yMin || pt.Y > yMax {
			continue
		}
		xys = append(xys, plotter.XY{X: pt.X, Y: pt.Y})
	}
	if len(xys) > 0 {
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("failed to create scatter: %w", err)
		}
		scatter.GlyphStyle.Color = pointColor
		scatter.GlyphStyle.Radius = pointRadius
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(scatter)
	}

	// the sensor itself
	origin, err := plotter.NewScatter(plotter.XYs{{X: 0, Y: 0}})
	if err != nil {
		return nil, fmt.Errorf("failed to create origin marker: %w", err)
	}
	origin.GlyphStyle.Color = color.Black
	origin.GlyphStyle.Radius = vg.Points(3)
	origin.GlyphStyle.Shape = draw.PlusGlyph{}
	p.Add(origin)

	p.X.Min, p.X.Max = xMin, xMax
	p.Y.Min, p.Y.Max = yMin, yMax
	return p, nil
}

// Render draws points as a PNG to w.
func (r *Renderer) Render(w io.Writer, points []sonar.Point) error {
	p, err := r.Plot(points)
	if err != nil {
		return err
	}
	width, height := r.Size()
	wt, err := p.WriterTo(width, height, formatPNG)
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}
