// Package probetest provides a scripted probe.Port for testing code that
// samples through a probe.Sampler.
package probetest

import (
	"fmt"

	"github.com/edp1096/trimbench/pkg/probe"
)

// Operations recorded by Port.
const (
	OpSelect = "select"
	OpWrite  = "write"
	OpDrive  = "drive"
	OpWait   = "wait"
	OpRead   = "read"
)

// Event is one recorded call on a Port.
type Event struct {
	Time  float64
	Op    string
	Name  string
	Value float64
}

// ResponseFunc computes the probe outputs of node from the port state.
type ResponseFunc func(p *Port, node string) (voltage, current float64)

// Port is an in-memory probe.Port. Virtual time only moves on Wait.
type Port struct {
	Response ResponseFunc

	// EdgeTriggered makes captures behave like a real analog probe: Read
	// returns values latched on the first Wait after a capture line
	// transition, and probe.ErrNoCapture before the first capture.
	EdgeTriggered bool

	// FailOn, when set, is consulted before each call; a non-nil result is
	// returned as the call's error.
	FailOn func(op, name string) error

	Events    []Event
	Registers map[string]int64
	Drives    map[string]float64

	now      float64
	selected string
	pending  bool
	latched  bool
	latchV   float64
	latchI   float64
	latchFor string
}

var _ probe.Port = (*Port)(nil)

func New(resp ResponseFunc) *Port {
	return &Port{
		Response:  resp,
		Registers: make(map[string]int64),
		Drives:    make(map[string]float64),
	}
}

// Linear returns a response where the voltage is slope*code+offset for the
// code held in register, the same for every node. The current is the
// voltage across a 1 kΩ load.
func Linear(register string, slope, offset float64) ResponseFunc {
	return func(p *Port, node string) (float64, float64) {
		v := slope*float64(p.Registers[register]) + offset
		return v, v / 1e3
	}
}

// Constant returns a response that ignores all state.
func Constant(voltage, current float64) ResponseFunc {
	return func(*Port, string) (float64, float64) { return voltage, current }
}

func (p *Port) record(op, name string, value float64) error {
	if p.FailOn != nil {
		if err := p.FailOn(op, name); err != nil {
			return err
		}
	}
	p.Events = append(p.Events, Event{Time: p.now, Op: op, Name: name, Value: value})
	return nil
}

func (p *Port) Now() float64 { return p.now }

func (p *Port) Wait(d float64) error {
	if err := p.record(OpWait, "", d); err != nil {
		return err
	}
	if d < 0 {
		return fmt.Errorf("negative wait %g", d)
	}
	p.now += d
	if p.pending && d > 0 && p.selected != "" {
		p.latchV, p.latchI = p.Response(p, p.selected)
		p.latchFor = p.selected
		p.latched = true
		p.pending = false
	}
	return nil
}

func (p *Port) Select(node string) error {
	if err := p.record(OpSelect, node, 0); err != nil {
		return err
	}
	p.selected = node
	return nil
}

func (p *Port) Write(register string, value int64) error {
	if err := p.record(OpWrite, register, float64(value)); err != nil {
		return err
	}
	if register == probe.VoltageToggle || register == probe.CurrentToggle {
		if p.Registers[register] != value {
			p.pending = true
		}
	}
	p.Registers[register] = value
	return nil
}

func (p *Port) Drive(node string, value float64) error {
	if err := p.record(OpDrive, node, value); err != nil {
		return err
	}
	p.Drives[node] = value
	return nil
}

func (p *Port) Read(node string) (float64, float64, error) {
	if err := p.record(OpRead, node, 0); err != nil {
		return 0, 0, err
	}
	if !p.EdgeTriggered {
		v, i := p.Response(p, node)
		return v, i, nil
	}
	if !p.latched {
		return 0, 0, probe.ErrNoCapture
	}
	if node != p.latchFor {
		return 0, 0, fmt.Errorf("probe captured %s, not %s", p.latchFor, node)
	}
	return p.latchV, p.latchI, nil
}

// Filter returns the recorded events of one operation, in order.
func (p *Port) Filter(op string) []Event {
	var out []Event
	for _, e := range p.Events {
		if e.Op == op {
			out = append(out, e)
		}
	}
	return out
}

// Writes returns the values written to register, in order.
func (p *Port) Writes(register string) []int64 {
	var out []int64
	for _, e := range p.Filter(OpWrite) {
		if e.Name == register {
			out = append(out, int64(e.Value))
		}
	}
	return out
}
