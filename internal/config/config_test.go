package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/trimbench/pkg/trim"
)

func TestDefault(t *testing.T) {
	config := Default()

	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, Seconds(5e-12), config.Probe.PropagationDelay)
	assert.True(t, config.Probe.Prime)
	assert.Equal(t, "trim", config.Report.XAxis)
	assert.Nil(t, config.Calibration)
}

func TestLoadRegulator(t *testing.T) {
	config, err := LoadFromFile("../../testdata/regulator.yaml")
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, filepath.Join("..", "..", "testdata", "regulator.cir"), config.Resolve(config.Netlist))
	assert.Equal(t, []Drive{{"Vdd", 7.77}, {"Vss", 0}}, SortedDrives(config.Drives))
	assert.Equal(t, []int64{0, 3, -5}, config.Sweep.Codes)

	require.NotNil(t, config.Calibration)
	req, err := config.Calibration.Request()
	require.NoError(t, err)
	assert.Equal(t, "vout", req.ProbedNode)
	assert.Equal(t, "trim_val", req.TrimNode)
	assert.Equal(t, 3.013, req.TargetVoltage)
	assert.Equal(t, trim.Encoding{Width: 4, Kind: trim.TwosComplement}, req.Encoding)
	assert.InDelta(t, 7e-9, req.SettlingDelay, 1e-21)
	assert.InDelta(t, 5e-12, float64(config.Probe.PropagationDelay), 1e-24)
}

func TestLoadRescap(t *testing.T) {
	config, err := LoadFromFile("../../testdata/rescap.yaml")
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, []string{"vdd", "vc"}, config.Probe.Nodes)
	require.Len(t, config.Phases, 2)
	assert.Equal(t, 80, config.Phases[0].Steps)
	assert.InDelta(t, 5e-9, float64(config.Phases[0].Delay), 1e-21)
	assert.Equal(t, -3.33, config.Phases[1].Drives["Vdd"])
	assert.Equal(t, "time", config.Report.XAxis)
}

func TestLoadFromFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("probe:\n  propagation_delay: soon\n"), 0600))
	_, err = LoadFromFile(bad)
	assert.Error(t, err)

	kind := filepath.Join(dir, "kind.yaml")
	require.NoError(t, os.WriteFile(kind, []byte("netlist: a.cir\ncalibration:\n  probed_node: a\n  trim_node: t\n  encoding:\n    width: 4\n    kind: gray\n"), 0600))
	config, err := LoadFromFile(kind)
	require.NoError(t, err)
	assert.ErrorIs(t, config.Validate(), trim.ErrInvalidEncoding)
}

func TestLogLevelEnvOverride(t *testing.T) {
	t.Setenv("TRIMBENCH_LOG_LEVEL", "debug")

	config, err := LoadFromFile("../../testdata/regulator.yaml")
	require.NoError(t, err)
	assert.Equal(t, "debug", config.LogLevel)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Netlist = "bench.cir"
		c.Calibration = &CalibrationConfig{
			ProbedNode:    "vout",
			TrimNode:      "trim_val",
			Encoding:      EncodingConfig{Width: 4, Kind: "unsigned"},
			SettlingDelay: 1e-9,
		}
		return c
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(*Config){
		"no netlist":       func(c *Config) { c.Netlist = "" },
		"bad level":        func(c *Config) { c.LogLevel = "loud" },
		"zero delay":       func(c *Config) { c.Probe.PropagationDelay = 0 },
		"nothing to run":   func(c *Config) { c.Calibration = nil },
		"no trim node":     func(c *Config) { c.Calibration.TrimNode = "" },
		"bad width":        func(c *Config) { c.Calibration.Encoding.Width = 0 },
		"bad kind":         func(c *Config) { c.Calibration.Encoding.Kind = "gray" },
		"negative settle":  func(c *Config) { c.Calibration.SettlingDelay = -1 },
		"sweep off range":  func(c *Config) { c.Sweep.Codes = []int64{16} },
		"phase no nodes":   func(c *Config) { c.Phases = []Phase{{Steps: 1}} },
		"phase zero steps": func(c *Config) {
			c.Probe.Nodes = []string{"a"}
			c.Phases = []Phase{{Steps: 0}}
		},
		"bad axis":         func(c *Config) { c.Report.XAxis = "volts" },
	}
	for name, mutate := range tests {
		c := valid()
		mutate(c)
		assert.Error(t, c.Validate(), name)
	}
}
