package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/edp1096/trimbench/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "trimbench",
	Short: "Trimbench calibrates and samples simulated analog circuits",
	Long: `Trimbench runs a SPICE netlist in virtual time behind an edge-triggered analog
probe, finds the trim code that brings a node to a target voltage and renders
the measurements.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var logLevel string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides the config)")
}

// newLogger logs to stderr at the flag level, else at fallback.
func newLogger(cmd *cobra.Command, fallback string) *slog.Logger {
	level := fallback
	if logLevel != "" {
		level = logLevel
	}
	return logging.New(level, cmd.ErrOrStderr())
}
