package device

import (
	"github.com/edp1096/trimbench/pkg/matrix"
)

// CurrentSource is a DC current source. Current flows from n1 through the
// source into n2.
type CurrentSource struct {
	BaseDevice
}

var _ Drivable = (*CurrentSource)(nil)

func NewDCCurrentSource(name string, nodeNames []string, value float64) *CurrentSource {
	return &CurrentSource{BaseDevice: newBaseDevice(name, nodeNames, value)}
}

func (i *CurrentSource) GetType() string { return "I" }

func (i *CurrentSource) Stamp(m matrix.DeviceMatrix, _ *CircuitStatus) error {
	stampCurrent(m, i.Nodes, i.Value)
	return nil
}

func (i *CurrentSource) SetValue(value float64) {
	i.Value = value
}

// TrimDAC is a current-steering trim DAC: I = Value + code*Step, with the
// code held in a named digital register. Like CurrentSource, current flows
// from n1 through the DAC into n2.
type TrimDAC struct {
	BaseDevice
	Step     float64
	register string
	code     int64
}

var _ Register = (*TrimDAC)(nil)

func NewTrimDAC(name string, nodeNames []string, base, step float64, register string) *TrimDAC {
	return &TrimDAC{
		BaseDevice: newBaseDevice(name, nodeNames, base),
		Step:       step,
		register:   register,
	}
}

func (t *TrimDAC) GetType() string { return "T" }

func (t *TrimDAC) Stamp(m matrix.DeviceMatrix, _ *CircuitStatus) error {
	stampCurrent(m, t.Nodes, t.Output())
	return nil
}

// Output is the DAC current for the current code.
func (t *TrimDAC) Output() float64 {
	return t.Value + float64(t.code)*t.Step
}

func (t *TrimDAC) RegisterName() string { return t.register }

func (t *TrimDAC) SetCode(code int64) { t.code = code }

func (t *TrimDAC) Code() int64 { return t.code }
