// Package convergence turns a parsed trace into a per-parameter ESS report
// with a pass/fail flag against a convergence threshold.
package convergence

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/beast2-analysis/beast2-analysis/analysis/ess"
	"github.com/beast2-analysis/beast2-analysis/analysis/trace"
)

const (
	// DefaultBurnIn is the fraction of each chain discarded by default.
	DefaultBurnIn = 0.1
	// DefaultThreshold is the conventional minimum acceptable ESS.
	DefaultThreshold = 200.0
)

// DefaultThresholdColumns are the columns checked by ThresholdCrossings
// when Config.ThresholdColumns is empty.
var DefaultThresholdColumns = []string{"posterior", "prior", "likelihood"}

// Config is one analysis configuration. It is passed explicitly to each
// Reporter; there is no package-level mutable default.
type Config struct {
	BurnIn           float64  `yaml:"burn_in"`
	BurnInSamples    *int     `yaml:"burn_in_samples,omitempty"` // overrides BurnIn when set
	Threshold        float64  `yaml:"threshold"`
	MaxLag           int      `yaml:"max_lag"` // 0 = derived from sample size
	StoppingRule     string   `yaml:"stopping_rule"`
	AutocovMethod    string   `yaml:"autocov_method"`
	Workers          int      `yaml:"workers"` // 0 = GOMAXPROCS
	SkipColumns      []string `yaml:"skip_columns,omitempty"`
	ThresholdColumns []string `yaml:"threshold_columns,omitempty"`
}

// DefaultConfig returns the conventional configuration: 10% burn-in,
// threshold 200, derived max lag, monotone stopping rule.
func DefaultConfig() Config {
	return Config{
		BurnIn:        DefaultBurnIn,
		Threshold:     DefaultThreshold,
		StoppingRule:  string(ess.StoppingRuleMonotone),
		AutocovMethod: string(ess.MethodAuto),
	}
}

// LoadConfig reads a YAML configuration on top of DefaultConfig.
// Unknown fields are rejected so typos surface as errors.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// BurnInSpec returns the burn-in as a trace.BurnIn.
func (c Config) BurnInSpec() trace.BurnIn {
	if c.BurnInSamples != nil {
		return trace.BurnInCount(*c.BurnInSamples)
	}
	return trace.BurnInFraction(c.BurnIn)
}

// EstimatorOptions returns the ess.Options selected by the config.
func (c Config) EstimatorOptions() ess.Options {
	return ess.Options{
		MaxLag:       c.MaxLag,
		StoppingRule: ess.StoppingRule(c.StoppingRule),
		Method:       ess.Method(c.AutocovMethod),
	}
}

// Validate checks that all fields are usable.
func (c Config) Validate() error {
	if err := c.BurnInSpec().Validate(); err != nil {
		return err
	}
	if !(c.Threshold > 0) {
		return fmt.Errorf("threshold must be positive, got %v", c.Threshold)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	return c.EstimatorOptions().Validate()
}
