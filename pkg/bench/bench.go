// Package bench runs a netlist in virtual time behind a probe.Port. It
// models the analog probe instrument of a mixed-signal testbench: a
// selection register and two capture lines that latch the selected node's
// voltage and current when they change level.
package bench

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/edp1096/trimbench/internal/logging"
	"github.com/edp1096/trimbench/pkg/analysis"
	"github.com/edp1096/trimbench/pkg/circuit"
	"github.com/edp1096/trimbench/pkg/netlist"
	"github.com/edp1096/trimbench/pkg/probe"
	"github.com/edp1096/trimbench/pkg/util"
)

const (
	DefaultTimeStep = 1e-12
	DefaultMaxStep  = 1e-10
)

var (
	ErrUnknownNode     = errors.New("unknown node")
	ErrUnknownRegister = errors.New("unknown register")
	ErrNotSelected     = errors.New("node is not selected on the probe")
)

type capture struct {
	level   int64
	pending bool
	node    string
	value   float64
}

// Bench is a probe.Port over a simulated circuit. Virtual time starts at 0
// with the circuit at its operating point and only advances on Wait.
type Bench struct {
	title string
	ckt   *circuit.Circuit
	tran  *analysis.Transient
	log   *slog.Logger

	timeStep float64
	maxStep  float64
	uic      bool

	selected string
	voltage  capture
	current  capture
}

var _ probe.Port = (*Bench)(nil)

type Option func(*Bench)

// WithTimeStep sets the initial integration step.
func WithTimeStep(d float64) Option { return func(b *Bench) { b.timeStep = d } }

// WithMaxStep caps the integration step.
func WithMaxStep(d float64) Option { return func(b *Bench) { b.maxStep = d } }

// WithUIC starts from discharged capacitors instead of the operating point.
func WithUIC() Option { return func(b *Bench) { b.uic = true } }

func WithLogger(l *slog.Logger) Option {
	return func(b *Bench) {
		if l != nil {
			b.log = l
		}
	}
}

// Load parses a netlist and prepares it for simulation. A .tran card sets
// the initial and maximum integration step.
func Load(text string, opts ...Option) (*Bench, error) {
	data, err := netlist.Parse(text)
	if err != nil {
		return nil, errors.Wrap(err, "parsing netlist")
	}
	if data.Analysis == netlist.AnalysisTRAN {
		opts = append(opts, WithTimeStep(data.TranParam.TStep))
		if data.TranParam.TMax > 0 {
			opts = append(opts, WithMaxStep(data.TranParam.TMax))
		}
	}
	return New(data.Title, data.Elements, opts...)
}

// New builds a bench from netlist elements.
func New(title string, elements []netlist.Element, opts ...Option) (*Bench, error) {
	b := &Bench{
		title:    title,
		timeStep: DefaultTimeStep,
		maxStep:  DefaultMaxStep,
		log:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if !(b.timeStep > 0) {
		return nil, errors.Errorf("time step must be positive, got %g", b.timeStep)
	}
	if b.maxStep < b.timeStep {
		b.maxStep = b.timeStep
	}

	ckt, err := circuit.Build(title, elements)
	if err != nil {
		return nil, errors.Wrap(err, "building circuit")
	}

	tran := analysis.NewTransient(b.timeStep, b.maxStep, b.uic)
	if err := tran.Setup(ckt); err != nil {
		ckt.Destroy()
		return nil, errors.Wrap(err, "initial solution")
	}

	b.ckt, b.tran = ckt, tran
	b.log.Debug("bench loaded",
		"title", b.title,
		"nodes", ckt.GetNumNodes(),
		"devices", len(ckt.GetDevices()),
		"time_step", util.FormatValueFactor(b.timeStep, "s"),
		"max_step", util.FormatValueFactor(b.maxStep, "s"))
	return b, nil
}

func (b *Bench) Close() {
	b.ckt.Destroy()
}

func (b *Bench) Title() string { return b.title }

func (b *Bench) Circuit() *circuit.Circuit { return b.ckt }

func (b *Bench) Now() float64 { return b.tran.Time() }

// Wait advances the simulation by d seconds. Captures armed by a line
// transition latch the selected node at the end of the first non-zero
// wait.
func (b *Bench) Wait(d float64) error {
	if err := b.tran.Advance(d); err != nil {
		return errors.Wrapf(err, "advancing %s", util.FormatValueFactor(d, "s"))
	}
	if d > 0 {
		if err := b.latch(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bench) latch() error {
	if b.voltage.pending {
		v, err := b.ckt.ProbeVoltage(b.selected)
		if err != nil {
			return errors.Wrap(err, "capturing voltage")
		}
		b.voltage.node, b.voltage.value, b.voltage.pending = b.selected, v, false
	}
	if b.current.pending {
		i, err := b.ckt.ProbeCurrent(b.selected)
		if err != nil {
			return errors.Wrap(err, "capturing current")
		}
		b.current.node, b.current.value, b.current.pending = b.selected, i, false
	}
	return nil
}

// Select routes the probe to a circuit node or a device terminal such as
// "R1.p".
func (b *Bench) Select(node string) error {
	if netlist.IsGround(node) || !b.ckt.HasProbe(node) {
		return errors.Wrapf(ErrUnknownNode, "%q", node)
	}
	b.selected = node
	return nil
}

// Write sets a capture line or a digital register driving the circuit.
func (b *Bench) Write(register string, value int64) error {
	switch register {
	case probe.VoltageToggle:
		return b.toggle(&b.voltage, register, value)
	case probe.CurrentToggle:
		return b.toggle(&b.current, register, value)
	}

	regs := b.ckt.Registers(register)
	if len(regs) == 0 {
		return errors.Wrapf(ErrUnknownRegister, "%q", register)
	}
	for _, r := range regs {
		r.SetCode(value)
	}
	b.log.Debug("register write", "register", register, "value", value,
		"time", util.FormatValueFactor(b.Now(), "s"))
	return nil
}

func (b *Bench) toggle(c *capture, line string, value int64) error {
	if value != 0 && value != 1 {
		return errors.Errorf("%s is a single bit, got %d", line, value)
	}
	if value != c.level {
		c.level = value
		c.pending = true
	}
	return nil
}

// Drive sets the DC value of a named source element.
func (b *Bench) Drive(name string, value float64) error {
	d, ok := b.ckt.Drivable(name)
	if !ok {
		return errors.Wrapf(ErrUnknownNode, "no drivable source %q", name)
	}
	d.SetValue(value)
	b.log.Debug("drive", "source", name, "value", value,
		"time", util.FormatValueFactor(b.Now(), "s"))
	return nil
}

// Read returns the last captured voltage and current, which belong to
// whatever node was selected when the capture lines last changed. Before
// the first capture it fails with probe.ErrNoCapture.
func (b *Bench) Read(node string) (float64, float64, error) {
	if node != b.selected {
		return 0, 0, errors.Wrapf(ErrNotSelected, "read %q, selected %q", node, b.selected)
	}
	if b.voltage.node == "" || b.current.node == "" {
		return 0, 0, errors.Wrapf(probe.ErrNoCapture, "read %q", node)
	}
	return b.voltage.value, b.current.value, nil
}

// Captured returns the nodes the voltage and current latches were taken
// from.
func (b *Bench) Captured() (voltageNode, currentNode string) {
	return b.voltage.node, b.current.node
}
