package probe

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/edp1096/trimbench/internal/logging"
	"github.com/edp1096/trimbench/pkg/util"
)

// DefaultPropagationDelay is how long a capture takes to settle after the
// toggle edge.
const DefaultPropagationDelay = 5e-12

// ErrInvalidArgument is returned for malformed sampling requests.
var ErrInvalidArgument = errors.New("invalid sampling argument")

// ErrNoCapture is returned by ports whose probe has not captured anything
// yet.
var ErrNoCapture = errors.New("probe has not captured")

// Sampler performs timed measurements through a Port. It owns the toggle
// bit and the probe selection; nothing else may write either, so that every
// sample request produces exactly one capture edge.
//
// A Sampler is not safe for concurrent use. The simulation is cooperative
// and single threaded.
type Sampler struct {
	port  Port
	delay float64
	log   *slog.Logger

	toggle   int64
	selected string

	trimNode string
	trim     int64
	hasTrim  bool
}

type Option func(*Sampler)

// WithPropagationDelay overrides DefaultPropagationDelay.
func WithPropagationDelay(d float64) Option {
	return func(s *Sampler) { s.delay = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sampler) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a Sampler. The first sample writes 0 to the capture lines,
// the next 1, and so on.
func New(port Port, opts ...Option) (*Sampler, error) {
	if port == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "nil port")
	}
	s := &Sampler{
		port:   port,
		delay:  DefaultPropagationDelay,
		log:    logging.NewNop(),
		toggle: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !(s.delay > 0) {
		return nil, errors.Wrapf(ErrInvalidArgument, "propagation delay must be positive, got %g", s.delay)
	}
	return s, nil
}

// Port returns the underlying port.
func (s *Sampler) Port() Port { return s.port }

// Toggle returns the value last written to the capture lines.
func (s *Sampler) Toggle() int64 { return s.toggle }

// Selected returns the node the probe was last routed to.
func (s *Sampler) Selected() string { return s.selected }

// Trim returns the last code written through WriteTrim.
func (s *Sampler) Trim() (node string, code int64, ok bool) {
	return s.trimNode, s.trim, s.hasTrim
}

// Sample measures node once: select, toggle both capture lines, wait for
// the capture to propagate, read.
func (s *Sampler) Sample(node string) (Sample, error) {
	if err := s.port.Select(node); err != nil {
		return Sample{}, errors.Wrapf(err, "selecting probe node %s", node)
	}
	s.selected = node

	next := s.toggle ^ 1
	if err := s.port.Write(VoltageToggle, next); err != nil {
		return Sample{}, errors.Wrap(err, "toggling voltage capture")
	}
	if err := s.port.Write(CurrentToggle, next); err != nil {
		return Sample{}, errors.Wrap(err, "toggling current capture")
	}
	s.toggle = next

	if err := s.port.Wait(s.delay); err != nil {
		return Sample{}, errors.Wrap(err, "waiting for capture")
	}

	v, i, err := s.port.Read(node)
	if err != nil {
		return Sample{}, errors.Wrapf(err, "reading probe node %s", node)
	}

	sample := Sample{
		Time:    s.port.Now(),
		Node:    node,
		Trim:    s.trim,
		HasTrim: s.hasTrim,
		Voltage: v,
		Current: i,
	}
	s.log.Debug("probe sample",
		"node", node,
		"time", util.FormatValueFactor(sample.Time, "s"),
		"trim", sample.Trim,
		"voltage", util.FormatValueFactor(v, "V"),
		"current", util.FormatValueFactor(i, "A"))
	return sample, nil
}

// Collect samples every node in order, steps times. Between steps, and only
// when steps > 1, it waits delay seconds. The result is step-major.
func (s *Sampler) Collect(nodes []string, steps int, delay float64) ([]Sample, error) {
	if len(nodes) == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "no nodes to sample")
	}
	if steps < 1 {
		return nil, errors.Wrapf(ErrInvalidArgument, "steps must be at least 1, got %d", steps)
	}
	if delay < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "negative inter-sample delay %g", delay)
	}

	samples := make([]Sample, 0, steps*len(nodes))
	for step := 1; step <= steps; step++ {
		for _, node := range nodes {
			sample, err := s.Sample(node)
			if err != nil {
				return nil, errors.Wrapf(err, "step %d", step)
			}
			samples = append(samples, sample)
		}
		if steps > 1 && step < steps {
			if err := s.port.Wait(delay); err != nil {
				return nil, errors.Wrap(err, "waiting between steps")
			}
		}
	}
	return samples, nil
}

// Prime performs one sample and discards it. Probe instruments that only
// capture on a toggle edge need this once after reset, the first sample
// writing the idle level. ErrNoCapture from that sample is expected.
func (s *Sampler) Prime(node string) error {
	_, err := s.Sample(node)
	if errors.Is(err, ErrNoCapture) {
		return nil
	}
	return errors.Wrap(err, "priming probe")
}

// WriteTrim writes a trim code register and records it for later samples.
func (s *Sampler) WriteTrim(node string, code int64) error {
	if err := s.port.Write(node, code); err != nil {
		return errors.Wrapf(err, "writing trim %s=%d", node, code)
	}
	s.trimNode, s.trim, s.hasTrim = node, code, true
	return nil
}

// Wait lets the simulator advance d seconds, for settling.
func (s *Sampler) Wait(d float64) error {
	return errors.Wrap(s.port.Wait(d), "waiting")
}
