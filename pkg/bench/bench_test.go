package bench_test

import (
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/trimbench/pkg/bench"
	"github.com/edp1096/trimbench/pkg/probe"
	"github.com/edp1096/trimbench/pkg/trim"
)

const divider = `* divider
V1 in 0 10
R1 in out 1k
R2 out 0 1k
Cout out 0 1p
.end
`

func loadFile(t *testing.T, path string, opts ...bench.Option) *bench.Bench {
	t.Helper()
	text, err := os.ReadFile(path)
	require.NoError(t, err)
	b, err := bench.Load(string(text), opts...)
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b
}

// regulatorVout is the steady state of testdata/regulator.cir.
func regulatorVout(vdd float64, code int64) float64 {
	const g1, g2, step = 1 / 16e3, 1 / 10e3, 2e-6
	return (vdd*g1 + float64(code)*step) / (g1 + g2)
}

func TestLoad(t *testing.T) {
	b, err := bench.Load(divider)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, "divider", b.Title())
	assert.Zero(t, b.Now())
	assert.Equal(t, []string{"in", "out"}, b.Circuit().NodeNames())

	v, err := b.Circuit().NodeVoltage("out")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, v, 1e-6)
}

func TestLoadErrors(t *testing.T) {
	_, err := bench.Load("* empty\n.end\n")
	assert.Error(t, err)

	_, err = bench.Load("* bad\nR1 a 0 oops\n")
	assert.Error(t, err)
}

func TestProbeCapturesOnEdge(t *testing.T) {
	b, err := bench.Load(divider)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Select("out"))

	// Lines idle low: writing 0 is not an edge.
	require.NoError(t, b.Write(probe.VoltageToggle, 0))
	require.NoError(t, b.Write(probe.CurrentToggle, 0))
	require.NoError(t, b.Wait(5e-12))
	_, _, err = b.Read("out")
	assert.ErrorIs(t, err, probe.ErrNoCapture)

	require.NoError(t, b.Write(probe.VoltageToggle, 1))
	require.NoError(t, b.Write(probe.CurrentToggle, 1))
	require.NoError(t, b.Wait(5e-12))
	v, i, err := b.Read("out")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, v, 1e-6)
	assert.InDelta(t, 0, i, 1e-9, "resistor currents at out cancel")

	vn, in := b.Captured()
	assert.Equal(t, "out", vn)
	assert.Equal(t, "out", in)

	// A held level keeps the old capture.
	require.NoError(t, b.Drive("V1", 2))
	require.NoError(t, b.Write(probe.VoltageToggle, 1))
	require.NoError(t, b.Wait(1e-9))
	v, _, err = b.Read("out")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, v, 1e-6)
}

func TestProbeTerminals(t *testing.T) {
	b, err := bench.Load(divider)
	require.NoError(t, err)
	defer b.Close()

	s, err := probe.New(b)
	require.NoError(t, err)
	require.NoError(t, s.Prime("out"))

	tests := []struct {
		point   string
		voltage float64
		current float64
	}{
		{"R2.p", 5, 5e-3},
		{"R2.n", 0, -5e-3},
		{"R1.p", 10, 5e-3},
		{"R1.n", 5, -5e-3},
		{"V1.p", 10, -5e-3},
		{"Cout.p", 5, 0},
	}
	for _, tt := range tests {
		got, err := s.Sample(tt.point)
		require.NoError(t, err, tt.point)
		assert.InDelta(t, tt.voltage, got.Voltage, 1e-6, tt.point)
		assert.InDelta(t, tt.current, got.Current, 1e-9, tt.point)
	}

	assert.ErrorIs(t, b.Select("R2.x"), bench.ErrUnknownNode)
	assert.ErrorIs(t, b.Select("R9.p"), bench.ErrUnknownNode)
}

func TestProbeErrors(t *testing.T) {
	b, err := bench.Load(divider)
	require.NoError(t, err)
	defer b.Close()

	assert.ErrorIs(t, b.Select("nowhere"), bench.ErrUnknownNode)
	assert.ErrorIs(t, b.Select("0"), bench.ErrUnknownNode)
	assert.ErrorIs(t, b.Write("trim_val", 1), bench.ErrUnknownRegister)
	assert.ErrorIs(t, b.Drive("R1", 1), bench.ErrUnknownNode)
	assert.Error(t, b.Write(probe.VoltageToggle, 2))
	assert.Error(t, b.Wait(-1))

	require.NoError(t, b.Select("in"))
	_, _, err = b.Read("out")
	assert.ErrorIs(t, err, bench.ErrNotSelected)
}

func TestWaitSettlesRC(t *testing.T) {
	b := loadFile(t, "../../testdata/rescap.cir", bench.WithUIC())
	s, err := probe.New(b)
	require.NoError(t, err)
	require.NoError(t, s.Prime("vc"))

	require.NoError(t, b.Drive("Vdd", 5.55))
	// tau = 10 ns
	require.NoError(t, s.Wait(10e-9))
	got, err := s.Sample("vc")
	require.NoError(t, err)
	assert.InDelta(t, 5.55*(1-math.Exp(-1)), got.Voltage, 0.05)
	assert.Less(t, got.Current, 0.0, "current flows into the capacitor node")

	require.NoError(t, s.Wait(200e-9))
	got, err = s.Sample("vc")
	require.NoError(t, err)
	assert.InDelta(t, 5.55, got.Voltage, 1e-3)
	assert.InDelta(t, 0, got.Current, 1e-6)
	assert.InDelta(t, 210e-9+2*5e-12+5e-12, b.Now(), 1e-15)
}

func TestTrimRegisterChangesOutput(t *testing.T) {
	b := loadFile(t, "../../testdata/regulator.cir")
	s, err := probe.New(b)
	require.NoError(t, err)
	require.NoError(t, s.Prime("vout"))

	for _, code := range []int64{0, 3, -5} {
		require.NoError(t, s.WriteTrim("trim_val", code))
		require.NoError(t, s.Wait(7e-9))
		got, err := s.Sample("vout")
		require.NoError(t, err)
		assert.Equal(t, code, got.Trim)
		assert.InDelta(t, regulatorVout(7.77, code), got.Voltage, 1e-4, "code %d", code)
	}
}

func TestCalibrateRegulator(t *testing.T) {
	tests := []struct {
		vdd    float64
		target float64
		want   int64
	}{
		{7.77, 3.013, 2},
		{7.7, 3.03, 6},
		{7.77, 5.0, 7},
		{7.77, 1.0, -8},
	}

	for _, tt := range tests {
		b := loadFile(t, "../../testdata/regulator.cir")
		require.NoError(t, b.Drive("Vdd", tt.vdd))

		s, err := probe.New(b)
		require.NoError(t, err)
		require.NoError(t, s.Prime("vout"))

		req := trim.Request{
			ProbedNode:    "vout",
			TargetVoltage: tt.target,
			TrimNode:      "trim_val",
			Encoding:      trim.Encoding{Width: 4, Kind: trim.TwosComplement},
			SettlingDelay: 7e-9,
		}
		r, err := trim.NewCalibrator(s).Run(req)
		require.NoError(t, err)
		assert.Equal(t, tt.want, r.Trim, "vdd %g target %g", tt.vdd, tt.target)
		assert.InDelta(t, regulatorVout(tt.vdd, tt.want), r.Voltage, 1e-4)
		require.Len(t, r.Samples, 3)
		assert.InDelta(t, regulatorVout(tt.vdd, -8), r.Samples[0].Voltage, 1e-4)
		assert.InDelta(t, regulatorVout(tt.vdd, 7), r.Samples[1].Voltage, 1e-4)
	}
}

func TestCalibrateUnprimedFails(t *testing.T) {
	b := loadFile(t, "../../testdata/regulator.cir")
	s, err := probe.New(b)
	require.NoError(t, err)

	_, err = trim.NewCalibrator(s).Calibrate(trim.Request{
		ProbedNode:    "vout",
		TargetVoltage: 3.013,
		TrimNode:      "trim_val",
		Encoding:      trim.Encoding{Width: 4, Kind: trim.TwosComplement},
		SettlingDelay: 7e-9,
	})
	assert.ErrorIs(t, err, probe.ErrNoCapture)
}
