package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/beast2-analysis/beast2-analysis/analysis/convergence"
	"github.com/beast2-analysis/beast2-analysis/analysis/trace"
)

// watchCmd re-runs the ESS analysis each time a running chain appends to its log
var watchCmd = &cobra.Command{
	Use:   "watch <log-file>",
	Short: "Re-estimate ESS whenever a running BEAST log is updated",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := runWatch(ctx, cmd, args[0]); err != nil {
			logrus.Fatalf("Watch failed: %v", err)
		}
	},
}

func runWatch(ctx context.Context, cmd *cobra.Command, logPath string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	reporter, err := convergence.NewReporter(cfg)
	if err != nil {
		return err
	}

	analyze := func(table *trace.Table) {
		rep, err := reporter.Analyze(ctx, table)
		if err != nil {
			// Early in a run the chain may still be too short for the burn-in.
			logrus.Warnf("Skipping update: %v", err)
			return
		}
		logSummary(rep)
		if err := emitReport(rep, os.Stdout); err != nil {
			logrus.Errorf("Writing report: %v", err)
		}
	}

	if table, err := trace.ReadFile(logPath); err == nil {
		analyze(table)
	} else {
		logrus.Warnf("Initial read failed, waiting for updates: %v", err)
	}
	return trace.Watch(ctx, logPath, analyze)
}

func init() {
	registerAnalysisFlags(watchCmd)
	watchCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Report file rewritten on every update (default: print to stdout)")
	watchCmd.Flags().StringVar(&outputFormat, "format", "", "Report format: csv, json, yaml, prom (default: from --output extension, else csv)")
	watchCmd.Flags().BoolVar(&sortByESS, "sort", false, "Sort report rows by ascending ESS")
}
