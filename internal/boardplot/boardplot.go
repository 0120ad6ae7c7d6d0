// Package boardplot renders triangulation events to PNG: the normalized
// board geometry, each camera's warped observation line, and the fused
// point. These are the images a human reaches for when a score looks
// wrong.
package boardplot

import (
	"fmt"
	"image/color"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/dartsense/dartsense/internal/board"
	"github.com/dartsense/dartsense/internal/tps"
	"github.com/dartsense/dartsense/internal/triangulate"
)

const (
	plotSize   = 8 * vg.Inch
	lineExtent = 1.5 // how far camera lines are drawn past the tip
)

// DrawThrow renders one detection event: board rings and wires, every
// camera's board-space line, and the fused result point. The title carries
// the score and method tag.
func DrawThrow(path string, obs []*triangulate.Observation, res *triangulate.Result) error {
	p := plot.New()
	if res != nil {
		p.Title.Text = fmt.Sprintf("%dx%d = %d  (%s, conf %.2f)",
			res.Segment, res.Multiplier, res.Score, res.Method, res.Confidence)
	}
	p.X.Min, p.X.Max = -1.3, 1.3
	p.Y.Min, p.Y.Max = -1.3, 1.3

	if err := addBoard(p); err != nil {
		return err
	}

	colors := lineColors(len(obs))
	for i, o := range obs {
		line, err := plotter.NewLine(plotter.XYs{
			{X: o.TipBoard.X - lineExtent*o.Dir.X, Y: o.TipBoard.Y - lineExtent*o.Dir.Y},
			{X: o.TipBoard.X + lineExtent*o.Dir.X, Y: o.TipBoard.Y + lineExtent*o.Dir.Y},
		})
		if err != nil {
			return err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(o.CameraID, line)

		tip, err := plotter.NewScatter(plotter.XYs{{X: o.TipBoard.X, Y: o.TipBoard.Y}})
		if err != nil {
			return err
		}
		tip.GlyphStyle.Color = colors[i]
		tip.GlyphStyle.Radius = vg.Points(2)
		p.Add(tip)
	}

	if res != nil {
		fused, err := plotter.NewScatter(plotter.XYs{{X: res.X, Y: res.Y}})
		if err != nil {
			return err
		}
		fused.GlyphStyle.Color = color.RGBA{R: 220, A: 255}
		fused.GlyphStyle.Radius = vg.Points(5)
		fused.GlyphStyle.Shape = draw.CrossGlyph{}
		p.Add(fused)
		p.Legend.Add("fused", fused)
	}

	p.Legend.Top = true
	if err := p.Save(plotSize, plotSize, path); err != nil {
		return fmt.Errorf("save throw plot: %w", err)
	}
	return nil
}

// DrawRingReprojection renders a calibration sanity check in pixel space:
// the normalized ring circles pushed back through the inverse warp, which
// should land on the camera's fitted ring ellipses.
func DrawRingReprojection(path string, cal *board.CameraCalibration, inv *tps.Transform) error {
	if cal == nil || !inv.Valid() {
		return fmt.Errorf("ring reprojection needs a calibration and a valid inverse warp")
	}

	p := plot.New()
	p.Title.Text = "Ring reprojection (board -> pixel)"
	p.X.Label.Text = "px"
	p.Y.Label.Text = "px"

	for _, norm := range board.RingBoundaries {
		pts := make(plotter.XYs, 0, 121)
		for k := 0; k <= 120; k++ {
			rad := 2 * math.Pi * float64(k) / 120
			px, py := inv.Warp(norm*math.Sin(rad), norm*math.Cos(rad))
			pts = append(pts, plotter.XY{X: px, Y: py})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = color.RGBA{B: 200, A: 255}
		p.Add(line)
	}

	// Overlay the fitted ellipses the calibration actually carries.
	for _, e := range []*board.Ellipse{
		cal.OuterDoubleEllipse, cal.InnerDoubleEllipse,
		cal.OuterTripleEllipse, cal.InnerTripleEllipse,
		cal.BullEllipse, cal.BullseyeEllipse,
	} {
		if e == nil {
			continue
		}
		pts := make(plotter.XYs, 0, 121)
		for k := 0; k <= 120; k++ {
			rad := 2 * math.Pi * float64(k) / 120
			px, py, ok := e.SampleAtAngle(rad, cal.Center.X, cal.Center.Y)
			if !ok {
				continue
			}
			pts = append(pts, plotter.XY{X: px, Y: py})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = color.RGBA{R: 200, A: 255}
		line.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
		p.Add(line)
	}

	if err := p.Save(plotSize, plotSize, path); err != nil {
		return fmt.Errorf("save reprojection plot: %w", err)
	}
	return nil
}

// addBoard draws the ring circles, wedge wires and segment labels.
func addBoard(p *plot.Plot) error {
	grey := color.RGBA{R: 120, G: 120, B: 120, A: 255}

	for _, norm := range board.RingBoundaries {
		pts := make(plotter.XYs, 0, 181)
		for k := 0; k <= 180; k++ {
			rad := 2 * math.Pi * float64(k) / 180
			pts = append(pts, plotter.XY{X: norm * math.Sin(rad), Y: norm * math.Cos(rad)})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = grey
		p.Add(line)
	}

	// Wires run from the bull ring to the outer double at 18i+9 degrees.
	for i := 0; i < 20; i++ {
		rad := (float64(i)*board.WedgeSpanDeg + 9) * math.Pi / 180
		sin, cos := math.Sin(rad), math.Cos(rad)
		line, err := plotter.NewLine(plotter.XYs{
			{X: board.BullNorm * sin, Y: board.BullNorm * cos},
			{X: board.DoubleOuterNorm * sin, Y: board.DoubleOuterNorm * cos},
		})
		if err != nil {
			return err
		}
		line.Color = grey
		p.Add(line)
	}

	labels := plotter.XYLabels{
		XYs:    make(plotter.XYs, 0, 20),
		Labels: make([]string, 0, 20),
	}
	for i, seg := range board.SegmentOrder {
		rad := float64(i) * board.WedgeSpanDeg * math.Pi / 180
		labels.XYs = append(labels.XYs, plotter.XY{X: 1.08 * math.Sin(rad), Y: 1.08 * math.Cos(rad)})
		labels.Labels = append(labels.Labels, strconv.Itoa(seg))
	}
	l, err := plotter.NewLabels(labels)
	if err != nil {
		return err
	}
	p.Add(l)
	return nil
}

// lineColors builds a distinct colour per camera line.
func lineColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.4)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64
	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}
	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
