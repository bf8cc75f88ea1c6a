package cmd

import (
	"github.com/spf13/cobra"

	"github.com/beast2-analysis/beast2-analysis/analysis/convergence"
	"github.com/beast2-analysis/beast2-analysis/analysis/ess"
)

// CLI flags shared by ess and watch
var (
	configPath       string   // Optional YAML analysis config
	burnIn           float64  // Fraction of each chain discarded as burn-in
	burnInSamples    int      // Absolute number of samples discarded as burn-in
	threshold        float64  // ESS convergence threshold
	maxLag           int      // Autocorrelation lag cap (0 = derived)
	stoppingRule     string   // Pair-sum truncation rule
	autocovMethod    string   // Autocovariance computation
	workers          int      // Parallel column workers (0 = all CPUs)
	skipColumns      []string // Columns excluded from the report
	thresholdColumns []string // Columns checked for samples-to-threshold
)

func registerAnalysisFlags(c *cobra.Command) {
	defaults := convergence.DefaultConfig()
	c.Flags().StringVar(&configPath, "config", "", "YAML analysis config; flags override its values when set explicitly")
	c.Flags().Float64Var(&burnIn, "burn-in", defaults.BurnIn, "Fraction of samples to discard as burn-in, in [0, 1)")
	c.Flags().IntVar(&burnInSamples, "burn-in-samples", 0, "Number of leading samples to discard (overrides --burn-in)")
	c.Flags().Float64Var(&threshold, "threshold", defaults.Threshold, "Minimum ESS for a parameter to count as converged")
	c.Flags().IntVar(&maxLag, "max-lag", 0, "Maximum autocorrelation lag (0 = min(10000, N/2))")
	c.Flags().StringVar(&stoppingRule, "stopping-rule", string(ess.StoppingRuleMonotone), "Autocorrelation truncation rule (monotone, positive)")
	c.Flags().StringVar(&autocovMethod, "autocov-method", string(ess.MethodAuto), "Autocovariance computation (auto, direct, fft)")
	c.Flags().IntVar(&workers, "workers", 0, "Parameters analyzed in parallel (0 = all CPUs)")
	c.Flags().StringSliceVar(&skipColumns, "skip", nil, "Comma-separated columns to exclude")
	c.Flags().StringSliceVar(&thresholdColumns, "threshold-columns", nil, "Columns to report samples-to-threshold for (default posterior,prior,likelihood)")
}

// resolveConfig loads --config (if any) and applies only the flags the user
// set explicitly, so file values are never clobbered by flag defaults.
func resolveConfig(c *cobra.Command) (convergence.Config, error) {
	cfg := convergence.DefaultConfig()
	if configPath != "" {
		loaded, err := convergence.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flags := c.Flags()
	if flags.Changed("burn-in") {
		cfg.BurnIn = burnIn
		cfg.BurnInSamples = nil
	}
	if flags.Changed("burn-in-samples") {
		n := burnInSamples
		cfg.BurnInSamples = &n
	}
	if flags.Changed("threshold") {
		cfg.Threshold = threshold
	}
	if flags.Changed("max-lag") {
		cfg.MaxLag = maxLag
	}
	if flags.Changed("stopping-rule") {
		cfg.StoppingRule = stoppingRule
	}
	if flags.Changed("autocov-method") {
		cfg.AutocovMethod = autocovMethod
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("skip") {
		cfg.SkipColumns = skipColumns
	}
	if flags.Changed("threshold-columns") {
		cfg.ThresholdColumns = thresholdColumns
	}
	return cfg, cfg.Validate()
}
