package trim

import (
	"log/slog"
	"math"

	"github.com/pkg/errors"

	"github.com/edp1096/trimbench/internal/logging"
	"github.com/edp1096/trimbench/pkg/probe"
	"github.com/edp1096/trimbench/pkg/util"
)

// Request asks for the trim code that brings ProbedNode to TargetVoltage.
type Request struct {
	ProbedNode    string
	TargetVoltage float64
	TrimNode      string
	Encoding      Encoding
	// SettlingDelay is waited after every trim write, in seconds.
	SettlingDelay float64
}

func (r Request) validate() error {
	switch {
	case r.ProbedNode == "":
		return errors.Wrap(ErrInvalidRequest, "empty probed node")
	case r.TrimNode == "":
		return errors.Wrap(ErrInvalidRequest, "empty trim node")
	case math.IsNaN(r.TargetVoltage) || math.IsInf(r.TargetVoltage, 0):
		return errors.Wrapf(ErrInvalidRequest, "target voltage %g", r.TargetVoltage)
	case r.SettlingDelay < 0:
		return errors.Wrapf(ErrInvalidRequest, "negative settling delay %g", r.SettlingDelay)
	}
	return nil
}

// Report is the outcome of a calibration run: the endpoint samples and the
// verification sample, plus the chosen code and what it produced.
type Report struct {
	Request  Request
	Trim     int64
	Voltage  float64
	Residual float64 // Voltage - TargetVoltage
	Samples  []probe.Sample
}

// Calibrator runs two-point calibrations through a Sampler. It keeps no
// state between calls.
type Calibrator struct {
	sampler *probe.Sampler
	log     *slog.Logger
}

type Option func(*Calibrator)

func WithLogger(l *slog.Logger) Option {
	return func(c *Calibrator) {
		if l != nil {
			c.log = l
		}
	}
}

func NewCalibrator(s *probe.Sampler, opts ...Option) *Calibrator {
	c := &Calibrator{sampler: s, log: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calibrate measures the probed node at both ends of the code range and
// interpolates the code for the target voltage. A target outside the
// measured range yields the code of the nearer endpoint.
func (c *Calibrator) Calibrate(req Request) (int64, error) {
	code, _, err := c.calibrate(req)
	return code, err
}

func (c *Calibrator) calibrate(req Request) (int64, []probe.Sample, error) {
	if err := req.validate(); err != nil {
		return 0, nil, err
	}
	tmin, tmax, err := req.Encoding.Bounds()
	if err != nil {
		return 0, nil, err
	}

	lo, err := c.measure(req, tmin)
	if err != nil {
		return 0, nil, errors.Wrap(err, "measuring minimum trim")
	}
	hi, err := c.measure(req, tmax)
	if err != nil {
		return 0, nil, errors.Wrap(err, "measuring maximum trim")
	}
	endpoints := []probe.Sample{lo, hi}

	vmin, vmax := lo.Voltage, hi.Voltage
	c.log.Debug("calibration endpoints",
		"node", req.ProbedNode,
		"trim_min", tmin, "volt_min", util.FormatValueFactor(vmin, "V"),
		"trim_max", tmax, "volt_max", util.FormatValueFactor(vmax, "V"))

	if vmax == vmin {
		return 0, nil, errors.Wrapf(ErrCalibrationDegenerate, "%s measured %g V at both %d and %d",
			req.ProbedNode, vmin, tmin, tmax)
	}

	target := req.TargetVoltage
	if target < math.Min(vmin, vmax) || target > math.Max(vmin, vmax) {
		code := tmin
		if math.Abs(target-vmax) < math.Abs(target-vmin) {
			code = tmax
		}
		c.log.Warn("target voltage outside measured range",
			"node", req.ProbedNode,
			"target", util.FormatValueFactor(target, "V"),
			"volt_min", util.FormatValueFactor(vmin, "V"),
			"volt_max", util.FormatValueFactor(vmax, "V"),
			"trim", code)
		return code, endpoints, nil
	}

	slope := (float64(tmax) - float64(tmin)) / (vmax - vmin)
	raw := (target-vmin)*slope + float64(tmin)
	code := clamp(math.Round(raw), tmin, tmax)

	c.log.Info("calibrated",
		"node", req.ProbedNode,
		"target", util.FormatValueFactor(target, "V"),
		"raw", raw,
		"trim", code)
	return code, endpoints, nil
}

func (c *Calibrator) measure(req Request, code int64) (probe.Sample, error) {
	if err := c.sampler.WriteTrim(req.TrimNode, code); err != nil {
		return probe.Sample{}, err
	}
	if err := c.sampler.Wait(req.SettlingDelay); err != nil {
		return probe.Sample{}, errors.Wrap(err, "settling")
	}
	samples, err := c.sampler.Collect([]string{req.ProbedNode}, 1, 0)
	if err != nil {
		return probe.Sample{}, err
	}
	return samples[0], nil
}

// Verify writes code back, lets the node settle and reports what it
// produced.
func (c *Calibrator) Verify(req Request, code int64) (Report, error) {
	if err := req.validate(); err != nil {
		return Report{}, err
	}
	sample, err := c.measure(req, code)
	if err != nil {
		return Report{}, errors.Wrap(err, "verifying trim")
	}
	r := Report{
		Request:  req,
		Trim:     code,
		Voltage:  sample.Voltage,
		Residual: sample.Voltage - req.TargetVoltage,
		Samples:  []probe.Sample{sample},
	}
	c.log.Info("verified",
		"node", req.ProbedNode,
		"trim", code,
		"voltage", util.FormatValueFactor(r.Voltage, "V"),
		"residual", util.FormatValueFactor(r.Residual, "V"))
	return r, nil
}

// Run calibrates and verifies. The report holds both endpoint samples
// followed by the verification sample.
func (c *Calibrator) Run(req Request) (Report, error) {
	code, endpoints, err := c.calibrate(req)
	if err != nil {
		return Report{}, err
	}
	r, err := c.Verify(req, code)
	if err != nil {
		return Report{}, err
	}
	r.Samples = append(endpoints, r.Samples...)
	return r, nil
}

func clamp(v float64, lo, hi int64) int64 {
	if v <= float64(lo) {
		return lo
	}
	if v >= float64(hi) {
		return hi
	}
	return int64(v)
}
