// Package config loads testbench run descriptions from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/edp1096/trimbench/pkg/netlist"
	"github.com/edp1096/trimbench/pkg/probe"
	"github.com/edp1096/trimbench/pkg/trim"
)

// Config describes one testbench run.
type Config struct {
	// Netlist is the circuit file, relative to the config file.
	Netlist string `yaml:"netlist"`

	// LogLevel is "debug", "info", "warn" or "error".
	LogLevel string `yaml:"log_level"`

	Probe ProbeConfig `yaml:"probe"`

	// Drives sets source values before anything is measured.
	Drives map[string]float64 `yaml:"drives,omitempty"`

	Calibration *CalibrationConfig `yaml:"calibration,omitempty"`

	// Sweep lists trim codes measured one by one before calibrating.
	Sweep SweepConfig `yaml:"sweep,omitempty"`

	// Phases are sampling runs, each after applying its own drives.
	Phases []Phase `yaml:"phases,omitempty"`

	Report ReportConfig `yaml:"report,omitempty"`

	dir string
}

type ProbeConfig struct {
	PropagationDelay Seconds `yaml:"propagation_delay"`
	// Prime takes one discarded sample before the run.
	Prime bool `yaml:"prime"`
	// Nodes sampled by phases.
	Nodes []string `yaml:"nodes,omitempty"`
}

type CalibrationConfig struct {
	ProbedNode    string        `yaml:"probed_node"`
	TargetVoltage float64       `yaml:"target_voltage"`
	TrimNode      string        `yaml:"trim_node"`
	Encoding      EncodingConfig `yaml:"encoding"`
	SettlingDelay Seconds        `yaml:"settling_delay"`
}

type EncodingConfig struct {
	Width int `yaml:"width"`
	// Kind is "unsigned" or "twos_complement".
	Kind string `yaml:"kind"`
}

// Encoding parses the section into a trim encoding.
func (e EncodingConfig) Encoding() (trim.Encoding, error) {
	kind, err := trim.ParseKind(e.Kind)
	if err != nil {
		return trim.Encoding{}, err
	}
	enc := trim.Encoding{Width: e.Width, Kind: kind}
	if _, _, err := enc.Bounds(); err != nil {
		return trim.Encoding{}, err
	}
	return enc, nil
}

// Request converts the section into a calibration request.
func (c CalibrationConfig) Request() (trim.Request, error) {
	enc, err := c.Encoding.Encoding()
	if err != nil {
		return trim.Request{}, err
	}
	return trim.Request{
		ProbedNode:    c.ProbedNode,
		TargetVoltage: c.TargetVoltage,
		TrimNode:      c.TrimNode,
		Encoding:      enc,
		SettlingDelay: float64(c.SettlingDelay),
	}, nil
}

type SweepConfig struct {
	Codes []int64 `yaml:"codes,omitempty"`
}

type Phase struct {
	Drives map[string]float64 `yaml:"drives,omitempty"`
	Steps  int                `yaml:"steps"`
	Delay  Seconds            `yaml:"delay"`
}

type ReportConfig struct {
	PNG   string `yaml:"png,omitempty"`
	HTML  string `yaml:"html,omitempty"`
	Title string `yaml:"title,omitempty"`
	// XAxis is "trim" or "time".
	XAxis string `yaml:"x_axis,omitempty"`
}

// Seconds is a duration in virtual seconds. In YAML it is a number or a
// SPICE value such as "7ns" or "5ps".
type Seconds float64

func (s *Seconds) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	v, err := netlist.ParseValue(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", value.Line, value.Value, err)
	}
	*s = Seconds(v)
	return nil
}

// Drive is one source setting.
type Drive struct {
	Source string
	Value  float64
}

// SortedDrives returns the drives of m ordered by source name.
func SortedDrives(m map[string]float64) []Drive {
	drives := make([]Drive, 0, len(m))
	for name, v := range m {
		drives = append(drives, Drive{Source: name, Value: v})
	}
	sort.Slice(drives, func(i, j int) bool { return drives[i].Source < drives[j].Source })
	return drives
}

// Default returns a Config with the probe defaults filled in.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Probe: ProbeConfig{
			PropagationDelay: Seconds(probe.DefaultPropagationDelay),
			Prime:            true,
		},
		Report: ReportConfig{XAxis: "trim"},
	}
}

// LoadFromFile reads a YAML config over the defaults. The log level can be
// overridden with TRIMBENCH_LOG_LEVEL.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	config.dir = filepath.Dir(path)

	if v := os.Getenv("TRIMBENCH_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}

	return config, nil
}

// Resolve returns p relative to the directory of the config file.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Netlist == "" {
		return fmt.Errorf("netlist is required")
	}

	validLevels := map[string]bool{"": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.LogLevel)
	}

	if c.Probe.PropagationDelay <= 0 {
		return fmt.Errorf("propagation_delay must be positive, got %g", float64(c.Probe.PropagationDelay))
	}

	if c.Calibration == nil && len(c.Phases) == 0 {
		return fmt.Errorf("nothing to run: need a calibration section or phases")
	}

	if cal := c.Calibration; cal != nil {
		if cal.ProbedNode == "" || cal.TrimNode == "" {
			return fmt.Errorf("calibration needs probed_node and trim_node")
		}
		enc, err := cal.Encoding.Encoding()
		if err != nil {
			return fmt.Errorf("calibration encoding: %w", err)
		}
		if cal.SettlingDelay < 0 {
			return fmt.Errorf("settling_delay must be non-negative, got %g", float64(cal.SettlingDelay))
		}
		lo, hi, _ := enc.Bounds()
		for _, code := range c.Sweep.Codes {
			if code < lo || code > hi {
				return fmt.Errorf("sweep code %d outside [%d, %d]", code, lo, hi)
			}
		}
	} else if len(c.Sweep.Codes) > 0 {
		return fmt.Errorf("sweep needs a calibration section for the trim node")
	}

	if len(c.Phases) > 0 && len(c.Probe.Nodes) == 0 {
		return fmt.Errorf("phases need probe.nodes")
	}
	for i, p := range c.Phases {
		if p.Steps < 1 {
			return fmt.Errorf("phase %d: steps must be at least 1, got %d", i+1, p.Steps)
		}
		if p.Delay < 0 {
			return fmt.Errorf("phase %d: delay must be non-negative", i+1)
		}
	}

	switch c.Report.XAxis {
	case "", "trim", "time":
	default:
		return fmt.Errorf("invalid report x_axis: %s (valid: trim, time)", c.Report.XAxis)
	}

	return nil
}
