package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/beast2-analysis/beast2-analysis/analysis/convergence"
	"github.com/beast2-analysis/beast2-analysis/analysis/report"
	"github.com/beast2-analysis/beast2-analysis/analysis/trace"
)

var (
	outputPath     string // Report destination; stdout when empty
	outputFormat   string // csv, json, yaml, prom
	sortByESS      bool   // Order report rows by ascending ESS
	checkThreshold bool   // Report samples needed to reach the threshold
	strict         bool   // Exit non-zero when any parameter has not converged
)

// essCmd estimates the ESS of every parameter in a BEAST log
var essCmd = &cobra.Command{
	Use:   "ess <log-file>",
	Short: "Estimate the effective sample size of every parameter in a BEAST log",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		converged, err := runESS(cmd, args[0], os.Stdout)
		if err != nil {
			logrus.Fatalf("ESS analysis failed: %v", err)
		}
		if strict && !converged {
			os.Exit(2)
		}
	},
}

// runESS reads the log, analyzes it and writes the report. Returns whether
// every parameter converged.
func runESS(cmd *cobra.Command, logPath string, stdout io.Writer) (bool, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return false, err
	}
	reporter, err := convergence.NewReporter(cfg)
	if err != nil {
		return false, err
	}

	table, err := trace.ReadFile(logPath)
	if err != nil {
		return false, err
	}
	rep, err := reporter.Analyze(context.Background(), table)
	if err != nil {
		return false, err
	}
	logSummary(rep)

	if err := emitReport(rep, stdout); err != nil {
		return false, err
	}

	if checkThreshold {
		crossings, err := reporter.ThresholdCrossings(table)
		if err != nil {
			return false, err
		}
		logCrossings(crossings, cfg.Threshold)
	}
	return rep.AllConverged(), nil
}

func emitReport(rep *convergence.Report, stdout io.Writer) error {
	if sortByESS {
		sorted := *rep
		sorted.Results = report.SortByESS(rep.Results)
		rep = &sorted
	}

	format := report.FormatCSV
	switch {
	case outputFormat != "":
		f, err := report.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		format = f
	case outputPath != "":
		format = report.FormatFromPath(outputPath)
	}

	if outputPath == "" {
		return report.Write(stdout, rep, format)
	}
	if err := report.WriteFile(outputPath, rep, format); err != nil {
		return err
	}
	logrus.Infof("ESS results saved to %s", outputPath)
	return nil
}

func logSummary(rep *convergence.Report) {
	logrus.Infof("Total samples: %d. After %s burn-in: %d samples.",
		rep.TotalSamples, rep.BurnIn, rep.RetainedSamples)
	s := rep.Summary
	if math.IsNaN(s.MinESS) {
		logrus.Infof("%d/%d parameters converged (no finite ESS)", s.Converged, s.Parameters)
	} else {
		logrus.Infof("%d/%d parameters converged; minimum ESS %.2f (%s)",
			s.Converged, s.Parameters, s.MinESS, s.MinESSParameter)
	}
	if s.Degenerate > 0 {
		logrus.Warnf("%d constant parameter(s) have undefined ESS", s.Degenerate)
	}
	if s.Truncated > 0 {
		logrus.Warnf("%d parameter(s) hit the lag cap; their ESS is a low-confidence estimate", s.Truncated)
	}
}

func logCrossings(crossings []convergence.Crossing, threshold float64) {
	if len(crossings) == 0 {
		logrus.Info("No posterior, prior or likelihood columns found for the threshold check.")
		return
	}
	for _, c := range crossings {
		if c.Found {
			logrus.Infof("%s: ESS > %s achieved after %d samples", c.Name, formatThreshold(threshold), c.Samples)
		} else {
			logrus.Infof("%s: ESS > %s not achieved (final ESS: %.2f)", c.Name, formatThreshold(threshold), c.FinalESS)
		}
	}
}

func formatThreshold(v float64) string {
	return fmt.Sprintf("%g", v)
}

func init() {
	registerAnalysisFlags(essCmd)
	essCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Report file (default: print to stdout)")
	essCmd.Flags().StringVar(&outputFormat, "format", "", "Report format: csv, json, yaml, prom (default: from --output extension, else csv)")
	essCmd.Flags().BoolVar(&sortByESS, "sort", false, "Sort report rows by ascending ESS")
	essCmd.Flags().BoolVar(&checkThreshold, "check-threshold", true, "Report how many samples posterior, prior and likelihood needed to reach the threshold")
	essCmd.Flags().BoolVar(&strict, "strict", false, "Exit with status 2 if any parameter is below the threshold")
}
