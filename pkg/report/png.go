package report

import (
	"image/color"
	"io"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/edp1096/trimbench/pkg/probe"
)

var (
	voltageColor = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	currentColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
)

// WritePNG draws voltage above current, one line per node.
func WritePNG(w io.Writer, samples []probe.Sample, o Options) error {
	ss, err := split(samples, o)
	if err != nil {
		return err
	}

	pv := panel(o.title(nodes(ss)), o.xLabel(), "Voltage (V)")
	pi := panel("", o.xLabel(), "Current (A)")
	for i, s := range ss {
		var vc, ic color.Color = voltageColor, currentColor
		if len(ss) > 1 {
			vc, ic = plotutil.Color(i), plotutil.Color(i)
		}
		if err := addLine(pv, s, vc, o, func(p probe.Sample) float64 { return p.Voltage }); err != nil {
			return err
		}
		if err := addLine(pi, s, ic, o, func(p probe.Sample) float64 { return p.Current }); err != nil {
			return err
		}
	}

	img := vgimg.New(14*vg.Inch, 8*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: 2,
		Cols: 1,
		PadX: vg.Millimeter,
		PadY: 3 * vg.Millimeter,

		PadTop:    2 * vg.Millimeter,
		PadBottom: 2 * vg.Millimeter,
		PadLeft:   2 * vg.Millimeter,
		PadRight:  2 * vg.Millimeter,
	}
	canvases := plot.Align([][]*plot.Plot{{pv}, {pi}}, tiles, dc)
	pv.Draw(canvases[0][0])
	pi.Draw(canvases[1][0])

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return errors.Wrap(err, "writing png")
	}
	return nil
}

func panel(title, x, y string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = x
	p.Y.Label.Text = y
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	return p
}

func addLine(p *plot.Plot, s series, c color.Color, o Options, y func(probe.Sample) float64) error {
	xys := make(plotter.XYs, len(s.samples))
	for i, sample := range s.samples {
		xys[i].X = o.x(sample)
		xys[i].Y = y(sample)
	}
	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return errors.Wrapf(err, "plotting %s", s.node)
	}
	line.Color = c
	line.Width = vg.Points(1)
	points.Shape = draw.CircleGlyph{}
	points.Color = color.Black
	points.Radius = vg.Points(2)

	p.Add(line, points)
	p.Legend.Add(s.node, line, points)
	return nil
}
