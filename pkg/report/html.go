package report

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/edp1096/trimbench/pkg/probe"
)

// WriteHTML renders a page with a voltage and a current chart.
func WriteHTML(w io.Writer, samples []probe.Sample, o Options) error {
	ss, err := split(samples, o)
	if err != nil {
		return err
	}

	title := o.title(nodes(ss))
	lineV := newLine(title, "Voltage (V)", o.xLabel())
	lineI := newLine(title, "Current (A)", o.xLabel())
	for _, s := range ss {
		lineV.AddSeries(s.node, lineData(s, o, func(p probe.Sample) float64 { return p.Voltage }))
		lineI.AddSeries(s.node, lineData(s, o, func(p probe.Sample) float64 { return p.Current }))
	}

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(lineV, lineI)
	return page.Render(w)
}

func newLine(title, y, x string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    y,
			Subtitle: title,
		}),
		charts.WithLegendOpts(opts.Legend{
			Type:   "scroll",
			Orient: "vertical",
			Right:  "10",
			Top:    "20",
			Bottom: "20",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:  x,
			Type:  "value",
			Scale: opts.Bool(true),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:  y,
			Scale: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
	)
	return line
}

func lineData(s series, o Options, y func(probe.Sample) float64) []opts.LineData {
	data := make([]opts.LineData, len(s.samples))
	for i, sample := range s.samples {
		data[i] = opts.LineData{Value: []interface{}{o.x(sample), y(sample)}}
	}
	return data
}
