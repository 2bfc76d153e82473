package main

import (
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/edp1096/trimbench/internal/config"
	"github.com/edp1096/trimbench/pkg/bench"
	"github.com/edp1096/trimbench/pkg/probe"
	"github.com/edp1096/trimbench/pkg/report"
)

// session is a loaded bench with its sampler, ready to measure.
type session struct {
	cfg     *config.Config
	bench   *bench.Bench
	sampler *probe.Sampler
	log     *slog.Logger
}

func openSession(cmd *cobra.Command, path string) (*session, error) {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	log := newLogger(cmd, cfg.LogLevel)

	netlistPath := cfg.Resolve(cfg.Netlist)
	text, err := os.ReadFile(netlistPath)
	if err != nil {
		return nil, errors.Wrap(err, "reading netlist")
	}
	b, err := bench.Load(string(text), bench.WithLogger(log))
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", netlistPath)
	}

	s, err := probe.New(b,
		probe.WithPropagationDelay(float64(cfg.Probe.PropagationDelay)),
		probe.WithLogger(log))
	if err != nil {
		b.Close()
		return nil, err
	}

	sess := &session{cfg: cfg, bench: b, sampler: s, log: log}
	if err := sess.drive(cfg.Drives); err != nil {
		b.Close()
		return nil, err
	}
	if cfg.Probe.Prime {
		if err := s.Prime(sess.primeNode()); err != nil {
			b.Close()
			return nil, err
		}
	}
	log.Info("bench ready", "title", b.Title(), "netlist", netlistPath)
	return sess, nil
}

func (s *session) Close() {
	s.bench.Close()
}

func (s *session) primeNode() string {
	if s.cfg.Calibration != nil {
		return s.cfg.Calibration.ProbedNode
	}
	return s.cfg.Probe.Nodes[0]
}

func (s *session) drive(drives map[string]float64) error {
	for _, d := range config.SortedDrives(drives) {
		if err := s.bench.Drive(d.Source, d.Value); err != nil {
			return errors.Wrapf(err, "driving %s", d.Source)
		}
		s.log.Info("drive", "source", d.Source, "value", d.Value)
	}
	return nil
}

// writeReport renders samples to the outputs named in the config.
func (s *session) writeReport(samples []probe.Sample) error {
	axis, err := report.ParseAxis(s.cfg.Report.XAxis)
	if err != nil {
		return err
	}
	o := report.Options{Title: s.cfg.Report.Title, XAxis: axis}

	outputs := []struct {
		path  string
		write func(*os.File) error
	}{
		{s.cfg.Resolve(s.cfg.Report.PNG), func(f *os.File) error { return report.WritePNG(f, samples, o) }},
		{s.cfg.Resolve(s.cfg.Report.HTML), func(f *os.File) error { return report.WriteHTML(f, samples, o) }},
	}
	for _, out := range outputs {
		if out.path == "" {
			continue
		}
		f, err := os.Create(out.path)
		if err != nil {
			return errors.Wrap(err, "creating report")
		}
		err = out.write(f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return errors.Wrapf(err, "writing %s", out.path)
		}
		s.log.Info("report written", "path", out.path, "samples", len(samples))
	}
	return nil
}
