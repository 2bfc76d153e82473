// Package report renders probe samples as charts: PNG through gonum/plot
// and interactive HTML through go-echarts.
package report

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/edp1096/trimbench/pkg/probe"
)

var ErrNoSamples = errors.New("no samples to render")

type Axis int

const (
	ByTrim Axis = iota
	ByTime
)

// ParseAxis accepts "trim" (also empty) and "time".
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "", "trim":
		return ByTrim, nil
	case "time":
		return ByTime, nil
	}
	return 0, errors.Errorf("unknown x axis %q", s)
}

type Options struct {
	Title string
	XAxis Axis
}

func (o Options) xLabel() string {
	if o.XAxis == ByTime {
		return "Time (ns)"
	}
	return "trim"
}

func (o Options) x(s probe.Sample) float64 {
	if o.XAxis == ByTime {
		return s.Time * 1e9
	}
	return float64(s.Trim)
}

func (o Options) title(nodes []string) string {
	if o.Title != "" {
		return o.Title
	}
	return fmt.Sprintf("Probed nodes: %v", nodes)
}

// series is the samples of one node in measurement order.
type series struct {
	node    string
	samples []probe.Sample
}

func split(samples []probe.Sample, o Options) ([]series, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	var out []series
	index := make(map[string]int)
	for _, s := range samples {
		if o.XAxis == ByTrim && !s.HasTrim {
			return nil, errors.Errorf("sample of %s at %g s has no trim code", s.Node, s.Time)
		}
		i, ok := index[s.Node]
		if !ok {
			i = len(out)
			index[s.Node] = i
			out = append(out, series{node: s.Node})
		}
		out[i].samples = append(out[i].samples, s)
	}
	return out, nil
}

func nodes(ss []series) []string {
	names := make([]string, len(ss))
	for i, s := range ss {
		names[i] = s.node
	}
	return names
}
