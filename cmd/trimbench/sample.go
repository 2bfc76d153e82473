package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/edp1096/trimbench/pkg/probe"
	"github.com/edp1096/trimbench/pkg/util"
)

var sampleCmd = &cobra.Command{
	Use:   "sample <config.yaml>",
	Short: "Sample probe nodes through the configured phases",
	Long: `Runs each phase in order: applies its drives, then samples every probe node
once per step, waiting the phase delay between steps.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSample(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(sampleCmd)
}

func runSample(cmd *cobra.Command, path string) error {
	sess, err := openSession(cmd, path)
	if err != nil {
		return err
	}
	defer sess.Close()

	if len(sess.cfg.Phases) == 0 {
		return errors.Errorf("%s has no phases", path)
	}

	var all []probe.Sample
	for i, phase := range sess.cfg.Phases {
		if err := sess.drive(phase.Drives); err != nil {
			return errors.Wrapf(err, "phase %d", i+1)
		}
		samples, err := sess.sampler.Collect(sess.cfg.Probe.Nodes, phase.Steps, float64(phase.Delay))
		if err != nil {
			return errors.Wrapf(err, "phase %d", i+1)
		}
		sess.log.Info("phase done", "phase", i+1, "samples", len(samples))
		all = append(all, samples...)
	}

	out := cmd.OutOrStdout()
	for _, s := range all {
		fmt.Fprintf(out, "%10s  %s=%s  %s\n", util.FormatValueFactor(s.Time, "s"), s.Node,
			util.FormatValueFactor(s.Voltage, "V"), util.FormatValueFactor(s.Current, "A"))
	}

	return sess.writeReport(all)
}
