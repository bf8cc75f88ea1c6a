package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logLevel string // Log verbosity level

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "beast2-analysis",
	Short: "Post-hoc analysis utilities for BEAST 2 runs",
	Long: `beast2-analysis diagnoses MCMC convergence of BEAST 2 logs by estimating
the effective sample size (ESS) of every logged parameter, and fills BEAST 2
XML templates with data from ReMASTER simulations.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up persistent flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	rootCmd.AddCommand(essCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(remasterCmd)
}
