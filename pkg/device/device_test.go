package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stamps records matrix contributions.
type stamps struct {
	elements map[[2]int]float64
	rhs      map[int]float64
}

func newStamps() *stamps {
	return &stamps{elements: make(map[[2]int]float64), rhs: make(map[int]float64)}
}

func (s *stamps) AddElement(i, j int, v float64) { s.elements[[2]int{i, j}] += v }
func (s *stamps) AddRHS(i int, v float64)        { s.rhs[i] += v }

func TestResistorStamp(t *testing.T) {
	r := NewResistor("R1", []string{"a", "b"}, 2e3)
	r.SetNodes([]int{1, 2})

	s := newStamps()
	require.NoError(t, r.Stamp(s, &CircuitStatus{Temp: RoomTemp}))
	assert.Equal(t, map[[2]int]float64{
		{1, 1}: 5e-4, {1, 2}: -5e-4, {2, 1}: -5e-4, {2, 2}: 5e-4,
	}, s.elements)

	assert.InDelta(t, 1e-3, r.Current([]float64{0, 3, 1}, RoomTemp), 1e-15)

	r.Tc1 = 1e-3
	assert.InDelta(t, 1/(2e3*1.01), r.Conductance(RoomTemp+10), 1e-12)
	assert.InDelta(t, 5e-4, r.Conductance(0), 1e-15)

	grounded := NewResistor("R2", []string{"a", "0"}, 1e3)
	grounded.SetNodes([]int{1, 0})
	s = newStamps()
	require.NoError(t, grounded.Stamp(s, &CircuitStatus{}))
	assert.Equal(t, map[[2]int]float64{{1, 1}: 1e-3}, s.elements)

	bad := NewResistor("R3", []string{"a", "0"}, -1)
	bad.SetNodes([]int{1, 0})
	assert.Error(t, bad.Stamp(newStamps(), &CircuitStatus{}))
}

func TestCapacitorCompanionModel(t *testing.T) {
	c := NewCapacitor("C1", []string{"a", "0"}, 1e-12)
	c.SetNodes([]int{1, 0})

	s := newStamps()
	require.NoError(t, c.Stamp(s, &CircuitStatus{Mode: OperatingPointAnalysis}))
	assert.Equal(t, 1e-12, s.elements[[2]int{1, 1}])
	assert.Zero(t, s.rhs[1])

	c.UpdateState([]float64{0, 2}, &CircuitStatus{Mode: OperatingPointAnalysis})
	assert.Equal(t, 2.0, c.Voltage())
	assert.Zero(t, c.Current())

	s = newStamps()
	status := &CircuitStatus{Mode: TransientAnalysis, TimeStep: 1e-9}
	require.NoError(t, c.Stamp(s, status))
	assert.InDelta(t, 1e-3, s.elements[[2]int{1, 1}], 1e-15)
	assert.InDelta(t, 2e-3, s.rhs[1], 1e-15)

	c.UpdateState([]float64{0, 1.5}, status)
	assert.Equal(t, 1.5, c.Voltage())
	assert.InDelta(t, -0.5e-3, c.Current(), 1e-15)
}

func TestTrimDAC(t *testing.T) {
	dac := NewTrimDAC("T1", []string{"0", "out"}, 1e-6, 2e-6, "trim_val")
	dac.SetNodes([]int{0, 1})

	assert.Equal(t, "T", dac.GetType())
	assert.Equal(t, "trim_val", dac.RegisterName())
	assert.Equal(t, 1e-6, dac.Output())

	dac.SetCode(-4)
	assert.Equal(t, int64(-4), dac.Code())
	assert.InDelta(t, -7e-6, dac.Output(), 1e-18)

	s := newStamps()
	require.NoError(t, dac.Stamp(s, &CircuitStatus{}))
	assert.InDelta(t, -7e-6, s.rhs[1], 1e-18)
	assert.NotContains(t, s.rhs, 0)
}

func TestCurrentSource(t *testing.T) {
	i := NewDCCurrentSource("I1", []string{"a", "b"}, 1e-3)
	i.SetNodes([]int{1, 2})

	s := newStamps()
	require.NoError(t, i.Stamp(s, &CircuitStatus{}))
	assert.Equal(t, map[int]float64{1: -1e-3, 2: 1e-3}, s.rhs)

	i.SetValue(2e-3)
	assert.Equal(t, 2e-3, i.GetValue())
}

func TestVoltageSource(t *testing.T) {
	v := NewDCVoltageSource("V1", []string{"a", "0"}, 5)
	v.SetNodes([]int{1, 0})
	v.SetBranchIndex(2)

	s := newStamps()
	require.NoError(t, v.Stamp(s, &CircuitStatus{}))
	assert.Equal(t, map[[2]int]float64{{2, 1}: 1, {1, 2}: 1}, s.elements)
	assert.Equal(t, map[int]float64{2: 5}, s.rhs)
	assert.Equal(t, 2, v.BranchIndex())

	p := NewPulseVoltageSource("V2", []string{"a", "0"}, 0, 1, 1e-9, 1e-9, 1e-9, 3e-9, 10e-9)
	assert.Equal(t, 0.0, p.GetVoltage(0.5e-9))
	assert.InDelta(t, 0.5, p.GetVoltage(1.5e-9), 1e-12)
	assert.Equal(t, 1.0, p.GetVoltage(3e-9))
	assert.InDelta(t, 0.5, p.GetVoltage(5.5e-9), 1e-12)
	assert.Equal(t, 0.0, p.GetVoltage(8e-9))
	assert.InDelta(t, 1.0, p.GetVoltage(13e-9), 1e-12)

	w := NewPWLVoltageSource("V3", []string{"a", "0"}, []float64{0, 1e-9, 2e-9}, []float64{0, 2, 1})
	assert.InDelta(t, 1.0, w.GetVoltage(0.5e-9), 1e-12)
	assert.InDelta(t, 1.5, w.GetVoltage(1.5e-9), 1e-12)
	assert.Equal(t, 1.0, w.GetVoltage(5e-9))

	assert.Equal(t, PWL, w.SourceType)
	w.SetValue(3.3)
	assert.Equal(t, DC, w.SourceType)
	assert.Equal(t, 3.3, w.GetVoltage(0.5e-9))
	assert.Equal(t, 3.3, w.GetValue())
}
