package device

import (
	"math"
	"sort"

	"github.com/edp1096/trimbench/pkg/matrix"
)

// Waveform is the value of an independent source over virtual time.
type Waveform interface {
	At(t float64) float64
}

type dcWave float64

func (w dcWave) At(float64) float64 { return float64(w) }

type pulseWave struct {
	low, high  float64
	delay      float64
	rise, fall float64
	width      float64
	period     float64
}

func (w pulseWave) At(t float64) float64 {
	if t < w.delay {
		return w.low
	}
	t -= w.delay
	if w.period > 0 {
		t = math.Mod(t, w.period)
	}

	swing := w.high - w.low
	switch top := w.rise + w.width; {
	case t < w.rise:
		return w.low + swing*t/w.rise
	case t < top:
		return w.high
	case t < top+w.fall:
		return w.high - swing*(t-top)/w.fall
	default:
		return w.low
	}
}

// pwlWave interpolates linearly between strictly increasing time points and
// holds the end values outside them.
type pwlWave struct {
	times  []float64
	values []float64
}

func (w pwlWave) At(t float64) float64 {
	last := len(w.times) - 1
	if t <= w.times[0] {
		return w.values[0]
	}
	if t >= w.times[last] {
		return w.values[last]
	}

	i := sort.SearchFloat64s(w.times, t)
	t0, t1 := w.times[i-1], w.times[i]
	v0, v1 := w.values[i-1], w.values[i]
	return v0 + (v1-v0)*(t-t0)/(t1-t0)
}

type VoltageSource struct {
	BaseDevice
	SourceType SourceType
	wave       Waveform
	branchIdx  int
}

var _ Drivable = (*VoltageSource)(nil)

func NewDCVoltageSource(name string, nodeNames []string, value float64) *VoltageSource {
	return newVoltageSource(name, nodeNames, DC, dcWave(value))
}

func NewPulseVoltageSource(name string, nodeNames []string, v1, v2, delay, rise, fall, pWidth, period float64) *VoltageSource {
	return newVoltageSource(name, nodeNames, PULSE, pulseWave{
		low:    v1,
		high:   v2,
		delay:  delay,
		rise:   rise,
		fall:   fall,
		width:  pWidth,
		period: period,
	})
}

func NewPWLVoltageSource(name string, nodeNames []string, times []float64, values []float64) *VoltageSource {
	return newVoltageSource(name, nodeNames, PWL, pwlWave{times: times, values: values})
}

func newVoltageSource(name string, nodeNames []string, kind SourceType, wave Waveform) *VoltageSource {
	return &VoltageSource{
		BaseDevice: newBaseDevice(name, nodeNames, wave.At(0)),
		SourceType: kind,
		wave:       wave,
	}
}

// GetVoltage returns the source value at time t.
func (v *VoltageSource) GetVoltage(t float64) float64 { return v.wave.At(t) }

func (v *VoltageSource) GetType() string { return "V" }

// Stamp adds the branch equation v(n+) - v(n-) = V(t).
func (v *VoltageSource) Stamp(m matrix.DeviceMatrix, status *CircuitStatus) error {
	b := v.branchIdx
	for k, sign := range [2]float64{1, -1} {
		if n := v.Nodes[k]; n != 0 {
			m.AddElement(b, n, sign)
			m.AddElement(n, b, sign)
		}
	}
	m.AddRHS(b, v.wave.At(status.Time))
	return nil
}

func (v *VoltageSource) BranchIndex() int { return v.branchIdx }

func (v *VoltageSource) SetBranchIndex(idx int) { v.branchIdx = idx }

// SetValue replaces the waveform with a DC level.
func (v *VoltageSource) SetValue(value float64) {
	v.SourceType = DC
	v.Value = value
	v.wave = dcWave(value)
}
