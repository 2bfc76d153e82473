package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edp1096/trimbench/pkg/trim"
)

var (
	boundsWidth int
	boundsKind  string
)

var boundsCmd = &cobra.Command{
	Use:   "bounds",
	Short: "Print the code range of a trim encoding",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := trim.ParseKind(boundsKind)
		if err != nil {
			return err
		}
		lo, hi, err := trim.Bounds(boundsWidth, kind)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d-bit %s: [%d, %d]\n", boundsWidth, kind, lo, hi)
		return nil
	},
}

func init() {
	boundsCmd.Flags().IntVar(&boundsWidth, "width", 4, "register width in bits")
	boundsCmd.Flags().StringVar(&boundsKind, "kind", "twos_complement", "unsigned or twos_complement")
	rootCmd.AddCommand(boundsCmd)
}
