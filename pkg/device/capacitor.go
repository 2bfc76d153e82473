package device

import (
	"math"

	"github.com/edp1096/trimbench/pkg/matrix"
)

// Capacitor uses a backward Euler companion model in transient analysis and
// a gmin leak at the operating point.
type Capacitor struct {
	BaseDevice
	voltage float64 // voltage at the last accepted time point
	current float64
}

var _ TimeDependent = (*Capacitor)(nil)

func NewCapacitor(name string, nodeNames []string, value float64) *Capacitor {
	return &Capacitor{BaseDevice: newBaseDevice(name, nodeNames, value)}
}

func (c *Capacitor) GetType() string { return "C" }

func (c *Capacitor) Stamp(m matrix.DeviceMatrix, status *CircuitStatus) error {
	if status.Mode != TransientAnalysis {
		stampConductance(m, c.Nodes[0], c.Nodes[1], math.Max(status.Gmin, 1e-12))
		return nil
	}

	// i = C/h * (v - v_prev): conductance C/h in parallel with a source
	// holding the previous voltage.
	geq := c.Value / status.TimeStep
	stampConductance(m, c.Nodes[0], c.Nodes[1], geq)
	stampCurrent(m, c.Nodes, -geq*c.voltage)
	return nil
}

func (c *Capacitor) UpdateState(solution []float64, status *CircuitStatus) {
	vd := nodeVoltage(solution, c.Nodes[0]) - nodeVoltage(solution, c.Nodes[1])
	if status.Mode == TransientAnalysis && status.TimeStep > 0 {
		c.current = c.Value * (vd - c.voltage) / status.TimeStep
	} else {
		c.current = 0
	}
	c.voltage = vd
}

func (c *Capacitor) Voltage() float64 { return c.voltage }

// Current is the displacement current of the last accepted step, flowing
// from the first node to the second.
func (c *Capacitor) Current() float64 { return c.current }
