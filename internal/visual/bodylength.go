// Package visual renders per-video charts: a body-length PNG and an
// interactive trajectory page.
package visual

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/larva.report/internal/kinematics"
)

var (
	rawColor      = color.RGBA{R: 160, G: 160, B: 160, A: 255}
	smoothColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	maximumColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	minimumColor  = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	extendedColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

// Chart size of the body-length PNG.
const (
	BodyLengthWidth  = 14 * vg.Inch
	BodyLengthHeight = 6 * vg.Inch
)

// BodyLengthPlot builds the body length over time chart: the raw and
// smoothed curves, detected extrema and each stride's extended frame.
func BodyLengthPlot(res *kinematics.Result) (*plot.Plot, error) {
	if len(res.Frames) == 0 {
		return nil, fmt.Errorf("body length plot for %s: no frames", res.Name)
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s body length", res.Name)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Length (mm)"

	seconds := func(f int) float64 { return float64(f) / res.FrameRate }

	raw := make(plotter.XYs, len(res.Frames))
	smooth := make(plotter.XYs, len(res.Frames))
	var maxima, minima, extended plotter.XYs
	for f, fr := range res.Frames {
		t := seconds(f)
		raw[f] = plotter.XY{X: t, Y: fr.BodyLength}
		smooth[f] = plotter.XY{X: t, Y: fr.SmoothBodyLength}
		if fr.LocalMaximum {
			maxima = append(maxima, plotter.XY{X: t, Y: fr.SmoothBodyLength})
		}
		if fr.LocalMinimum {
			minima = append(minima, plotter.XY{X: t, Y: fr.SmoothBodyLength})
		}
	}
	for _, s := range res.Strides {
		extended = append(extended, plotter.XY{X: seconds(s.Extended), Y: res.Frames[s.Extended].SmoothBodyLength})
	}

	if err := addLine(p, "raw", raw, rawColor); err != nil {
		return nil, err
	}
	if err := addLine(p, "smoothed", smooth, smoothColor); err != nil {
		return nil, err
	}
	for _, m := range []struct {
		name  string
		pts   plotter.XYs
		c     color.Color
		shape draw.GlyphDrawer
	}{
		{"maximum", maxima, maximumColor, draw.TriangleGlyph{}},
		{"minimum", minima, minimumColor, draw.PyramidGlyph{}},
		{"stride extended", extended, extendedColor, draw.CircleGlyph{}},
	} {
		if len(m.pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(m.pts)
		if err != nil {
			return nil, fmt.Errorf("%s markers: %w", m.name, err)
		}
		sc.GlyphStyle.Color = m.c
		sc.GlyphStyle.Shape = m.shape
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add(m.name, sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

func addLine(p *plot.Plot, name string, pts plotter.XYs, c color.Color) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("%s line: %w", name, err)
	}
	line.Color = c
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(name, line)
	return nil
}

// WriteBodyLengthPNG renders BodyLengthPlot as a PNG into w.
func WriteBodyLengthPNG(w io.Writer, res *kinematics.Result) error {
	p, err := BodyLengthPlot(res)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(BodyLengthWidth, BodyLengthHeight, "png")
	if err != nil {
		return fmt.Errorf("render body length plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write body length plot: %w", err)
	}
	return nil
}
