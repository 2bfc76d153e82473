package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/edp1096/trimbench/pkg/probe"
	"github.com/edp1096/trimbench/pkg/trim"
	"github.com/edp1096/trimbench/pkg/util"
)

var calibrateTarget float64

var calibrateCmd = &cobra.Command{
	Use:   "calibrate <config.yaml>",
	Short: "Find the trim code for a target voltage",
	Long: `Measures the configured sweep codes, then calibrates the probed node against the
target voltage with a two-point linear fit over the full trim range, writes the
chosen code back and reports the voltage it produced.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCalibrate(cmd, args[0])
	},
}

func init() {
	calibrateCmd.Flags().Float64Var(&calibrateTarget, "target", 0, "target voltage (overrides the config)")
	rootCmd.AddCommand(calibrateCmd)
}

func runCalibrate(cmd *cobra.Command, path string) error {
	sess, err := openSession(cmd, path)
	if err != nil {
		return err
	}
	defer sess.Close()

	if sess.cfg.Calibration == nil {
		return errors.Errorf("%s has no calibration section", path)
	}
	req, err := sess.cfg.Calibration.Request()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("target") {
		req.TargetVoltage = calibrateTarget
	}

	out := cmd.OutOrStdout()
	samples, err := sweep(sess, req)
	if err != nil {
		return err
	}
	for _, s := range samples {
		fmt.Fprintf(out, "trim=%-4d %s=%s  %s\n", s.Trim, s.Node,
			util.FormatValueFactor(s.Voltage, "V"), util.FormatValueFactor(s.Current, "A"))
	}

	fmt.Fprintf(out, "Running trimming for target voltage %s\n", util.FormatValueFactor(req.TargetVoltage, "V"))
	r, err := trim.NewCalibrator(sess.sampler, trim.WithLogger(sess.log)).Run(req)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Best trim code is %d, giving %s (difference to target %s)\n",
		r.Trim, util.FormatValueFactor(r.Voltage, "V"), util.FormatValueFactor(r.Residual, "V"))

	return sess.writeReport(append(samples, r.Samples...))
}

// sweep measures each configured code after letting it settle.
func sweep(sess *session, req trim.Request) ([]probe.Sample, error) {
	var samples []probe.Sample
	for _, code := range sess.cfg.Sweep.Codes {
		if err := sess.sampler.WriteTrim(req.TrimNode, code); err != nil {
			return nil, err
		}
		if err := sess.sampler.Wait(req.SettlingDelay); err != nil {
			return nil, err
		}
		got, err := sess.sampler.Collect([]string{req.ProbedNode}, 1, 0)
		if err != nil {
			return nil, errors.Wrapf(err, "sweeping trim %d", code)
		}
		samples = append(samples, got...)
	}
	return samples, nil
}
