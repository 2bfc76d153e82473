package device

import (
	"github.com/edp1096/trimbench/internal/consts"
	"github.com/edp1096/trimbench/pkg/matrix"
)

type Device interface {
	GetName() string
	GetType() string
	GetNodeNames() []string
	GetNodes() []int
	Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error
	GetValue() float64
	SetNodes(nodes []int)
}

type BaseDevice struct {
	Name      string
	Nodes     []int
	Value     float64
	NodeNames []string
}

// TimeDependent devices carry state between transient steps.
type TimeDependent interface {
	UpdateState(solution []float64, status *CircuitStatus)
}

// Drivable sources accept a new DC value from the testbench at run time.
type Drivable interface {
	Device
	SetValue(value float64)
}

// Register is a device controlled by a named digital register, such as a
// trim code input.
type Register interface {
	Device
	RegisterName() string
	SetCode(code int64)
	Code() int64
}

type SourceType int

const (
	DC SourceType = iota
	PULSE
	PWL
)

type AnalysisMode int

const (
	OperatingPointAnalysis AnalysisMode = iota
	TransientAnalysis
)

// RoomTemp is 27°C in kelvin, the nominal device temperature.
const RoomTemp = 27 + consts.KELVIN

type CircuitStatus struct {
	Time     float64
	TimeStep float64
	Gmin     float64
	Mode     AnalysisMode
	Temp     float64
}

func (d *BaseDevice) GetName() string {
	return d.Name
}

func (d *BaseDevice) GetNodes() []int {
	return d.Nodes
}

func (d *BaseDevice) GetNodeNames() []string {
	return d.NodeNames
}

func (d *BaseDevice) GetValue() float64 {
	return d.Value
}

func (d *BaseDevice) SetNodes(nodes []int) {
	d.Nodes = nodes
}

func newBaseDevice(name string, nodeNames []string, value float64) BaseDevice {
	return BaseDevice{
		Name:      name,
		Nodes:     make([]int, len(nodeNames)),
		NodeNames: nodeNames,
		Value:     value,
	}
}

// nodeVoltage reads node n from a solution vector; ground reads as 0.
func nodeVoltage(solution []float64, n int) float64 {
	if n <= 0 || n >= len(solution) {
		return 0
	}
	return solution[n]
}

// stampConductance adds g between n1 and n2; node 0 is ground and is skipped.
func stampConductance(m matrix.DeviceMatrix, n1, n2 int, g float64) {
	if n1 != 0 {
		m.AddElement(n1, n1, g)
	}
	if n2 != 0 {
		m.AddElement(n2, n2, g)
	}
	if n1 != 0 && n2 != 0 {
		m.AddElement(n1, n2, -g)
		m.AddElement(n2, n1, -g)
	}
}

// stampCurrent injects a current flowing out of nodes[0] into nodes[1].
func stampCurrent(m matrix.DeviceMatrix, nodes []int, current float64) {
	if n := nodes[0]; n != 0 {
		m.AddRHS(n, -current)
	}
	if n := nodes[1]; n != 0 {
		m.AddRHS(n, current)
	}
}
