package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/edp1096/trimbench/pkg/analysis"
	"github.com/edp1096/trimbench/pkg/circuit"
	"github.com/edp1096/trimbench/pkg/netlist"
	"github.com/edp1096/trimbench/pkg/util"
)

var opCmd = &cobra.Command{
	Use:   "op <netlist.cir>",
	Short: "Print the operating point of a netlist",
	Long:  `Solves the DC operating point with trim registers at code 0 and prints node voltages and branch currents.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOP(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(opCmd)
}

func runOP(w io.Writer, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading netlist")
	}
	data, err := netlist.Parse(string(content))
	if err != nil {
		return errors.Wrap(err, "parsing netlist")
	}

	ckt, err := circuit.Build(data.Title, data.Elements)
	if err != nil {
		return err
	}
	defer ckt.Destroy()

	op := analysis.NewOP()
	if err := op.Setup(ckt); err != nil {
		return err
	}
	if err := op.Execute(); err != nil {
		return errors.Wrap(err, "operating point")
	}

	printResults(w, data.Title, op.GetResults())
	return nil
}

func printResults(w io.Writer, title string, results map[string]float64) {
	var voltageNames, currentNames []string
	for name := range results {
		if strings.HasPrefix(name, "V(") {
			voltageNames = append(voltageNames, name)
		} else if strings.HasPrefix(name, "I(") {
			currentNames = append(currentNames, name)
		}
	}
	sort.Strings(voltageNames)
	sort.Strings(currentNames)

	fmt.Fprintf(w, "%s\n", title)
	fmt.Fprintln(w, "\nNode Voltages:")
	for _, name := range voltageNames {
		fmt.Fprintf(w, "%s = %s\n", name, util.FormatValueFactor(results[name], "V"))
	}
	fmt.Fprintln(w, "\nBranch Currents:")
	for _, name := range currentNames {
		fmt.Fprintf(w, "%s = %s\n", name, util.FormatValueFactor(results[name], "A"))
	}
}
