package device

import (
	"fmt"

	"github.com/edp1096/trimbench/pkg/matrix"
)

type Resistor struct {
	BaseDevice
	Tc1  float64
	Tc2  float64
	Tnom float64
}

func NewResistor(name string, nodeNames []string, value float64) *Resistor {
	return &Resistor{
		BaseDevice: newBaseDevice(name, nodeNames, value),
		Tnom:       RoomTemp,
	}
}

func (r *Resistor) GetType() string { return "R" }

func (r *Resistor) Stamp(m matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(r.Nodes) != 2 {
		return fmt.Errorf("resistor %s: requires exactly 2 nodes", r.Name)
	}
	if r.Value <= 0 {
		return fmt.Errorf("resistor %s: non-positive resistance %g", r.Name, r.Value)
	}

	stampConductance(m, r.Nodes[0], r.Nodes[1], r.Conductance(status.Temp))
	return nil
}

// Conductance is 1/R adjusted for temperature. A zero temperature means
// nominal.
func (r *Resistor) Conductance(temp float64) float64 {
	if temp == 0 {
		temp = r.Tnom
	}
	dt := temp - r.Tnom
	factor := 1.0 + r.Tc1*dt + r.Tc2*dt*dt
	return 1.0 / (r.Value * factor)
}

// Current is the current flowing from the first node to the second.
func (r *Resistor) Current(solution []float64, temp float64) float64 {
	v1 := nodeVoltage(solution, r.Nodes[0])
	v2 := nodeVoltage(solution, r.Nodes[1])
	return (v1 - v2) * r.Conductance(temp)
}
