package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/trimbench/pkg/device"
	"github.com/edp1096/trimbench/pkg/netlist"
)

func parse(t *testing.T, input string) []netlist.Element {
	t.Helper()
	data, err := netlist.Parse(input)
	require.NoError(t, err)
	return data.Elements
}

const regulator = `* regulator
Vdd vdd 0 7.7
R1 vdd vout 10k
R2 vout gnd 7.5k
Ta 0 vout 0 step=1u reg=trim_val
Tb 0 vout 0 step=1u reg=trim_val
Cout vout 0 100f
`

func TestBuild(t *testing.T) {
	ckt, err := Build("regulator", parse(t, regulator))
	require.NoError(t, err)
	defer ckt.Destroy()

	assert.Equal(t, "regulator", ckt.Name())
	assert.Equal(t, 2, ckt.GetNumNodes())
	assert.Equal(t, []string{"vdd", "vout"}, ckt.NodeNames())
	assert.Equal(t, map[string]int{"Vdd": 3}, ckt.GetBranchMap())
	assert.Len(t, ckt.GetDevices(), 6)
	assert.Equal(t, 3, ckt.GetMatrix().Size)

	assert.True(t, ckt.HasNode("vout"))
	assert.True(t, ckt.HasNode("gnd"))
	assert.False(t, ckt.HasNode("vin"))

	regs := ckt.Registers("trim_val")
	require.Len(t, regs, 2)
	assert.Equal(t, "Ta", regs[0].GetName())
	assert.Empty(t, ckt.Registers("other"))

	d, ok := ckt.Drivable("Vdd")
	require.True(t, ok)
	assert.Equal(t, "V", d.GetType())
	_, ok = ckt.Drivable("R1")
	assert.False(t, ok)
	_, ok = ckt.Drivable("nothing")
	assert.False(t, ok)
}

func TestBuildErrors(t *testing.T) {
	_, err := Build("dup", []netlist.Element{
		{Type: "R", Name: "R1", Nodes: []string{"a", "0"}, Value: 1},
		{Type: "R", Name: "R1", Nodes: []string{"a", "0"}, Value: 1},
	})
	assert.Error(t, err)

	_, err = Build("ground only", []netlist.Element{
		{Type: "R", Name: "R1", Nodes: []string{"0", "gnd"}, Value: 1},
	})
	assert.Error(t, err)

	_, err = Build("bad trim", []netlist.Element{
		{Type: "R", Name: "R1", Nodes: []string{"a", "0"}, Value: 1},
		{Type: "T", Name: "T1", Nodes: []string{"0", "a"}, Params: map[string]string{"step": "x", "reg": "r"}},
	})
	assert.Error(t, err)

	_, err = Build("bad resistor", []netlist.Element{
		{Type: "R", Name: "R1", Nodes: []string{"a", "0"}, Value: 0},
	})
	assert.Error(t, err)
}

func TestTerminal(t *testing.T) {
	ckt, err := Build("regulator", parse(t, regulator))
	require.NoError(t, err)
	defer ckt.Destroy()

	dev, pin, ok := ckt.Terminal("R2.n")
	require.True(t, ok)
	assert.Equal(t, "R2", dev.GetName())
	assert.Equal(t, 1, pin)

	_, _, ok = ckt.Terminal("R2.q")
	assert.False(t, ok)
	_, _, ok = ckt.Terminal("vout")
	assert.False(t, ok)

	assert.True(t, ckt.HasProbe("Cout.p"))
	assert.True(t, ckt.HasProbe("vdd"))
	assert.False(t, ckt.HasProbe("R9.p"))
}

func TestSolutionQueries(t *testing.T) {
	ckt, err := Build("divider", parse(t, "* d\nV1 a 0 4\nR1 a b 1k\nR2 b 0 3k\nI1 b 0 0\n"))
	require.NoError(t, err)
	defer ckt.Destroy()

	// Solve once by hand.
	status := &device.CircuitStatus{Temp: device.RoomTemp}
	m := ckt.GetMatrix()
	m.Clear()
	require.NoError(t, ckt.Stamp(status))
	require.NoError(t, m.Solve())
	ckt.Update(status)

	v, err := ckt.NodeVoltage("b")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, v, 1e-9)

	v, err = ckt.NodeVoltage("0")
	require.NoError(t, err)
	assert.Zero(t, v)

	_, err = ckt.NodeVoltage("zz")
	assert.Error(t, err)

	i, err := ckt.NodeCurrent("a")
	require.NoError(t, err)
	assert.InDelta(t, 1e-3, i, 1e-12)

	_, err = ckt.NodeCurrent("0")
	assert.Error(t, err)

	tests := []struct {
		point   string
		voltage float64
		current float64
	}{
		{"R1.p", 4, 1e-3},
		{"R1.n", 3, -1e-3},
		{"R2.p", 3, 1e-3},
		{"V1.p", 4, -1e-3},
		{"V1.n", 0, 1e-3},
		{"I1.p", 3, 0},
	}
	for _, tt := range tests {
		v, err := ckt.ProbeVoltage(tt.point)
		require.NoError(t, err, tt.point)
		assert.InDelta(t, tt.voltage, v, 1e-9, tt.point)
		i, err := ckt.ProbeCurrent(tt.point)
		require.NoError(t, err, tt.point)
		assert.InDelta(t, tt.current, i, 1e-12, tt.point)
	}

	sol := ckt.GetSolution()
	assert.InDelta(t, 4.0, sol["V(a)"], 1e-9)
	assert.InDelta(t, 1e-3, sol["I(V1)"], 1e-12)
	assert.InDelta(t, 1e-3, sol["I(R2)"], 1e-12)
}
