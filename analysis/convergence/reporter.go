package convergence

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/beast2-analysis/beast2-analysis/analysis/ess"
	"github.com/beast2-analysis/beast2-analysis/analysis/trace"
)

// Result is the convergence verdict for one parameter. Never mutated after
// construction.
type Result struct {
	Name       string
	ESS        float64 // NaN for degenerate columns
	SampleSize int
	Converged  bool
	Degenerate bool
	Truncated  bool    // lag cap reached; low-confidence estimate
	Tau        float64 // integrated autocorrelation time
	LagsUsed   int
}

func newResult(name string, est ess.Result, threshold float64) Result {
	return Result{
		Name:       name,
		ESS:        est.ESS,
		SampleSize: est.SampleSize,
		Converged:  !est.Degenerate && est.ESS >= threshold,
		Degenerate: est.Degenerate,
		Truncated:  est.Truncated,
		Tau:        est.Tau,
		LagsUsed:   est.LagsUsed,
	}
}

// Crossing records how many samples a column needed to reach the threshold.
type Crossing struct {
	Name     string
	Samples  int  // prefix length reaching the threshold; 0 when not Found
	Found    bool
	FinalESS float64 // ESS of the burn-in trimmed column, set when not Found
}

// Reporter computes convergence reports. Safe for concurrent use; each
// Reporter carries its own Config.
type Reporter struct {
	cfg       Config
	estimator *ess.Estimator
}

// NewReporter validates cfg and builds a Reporter.
func NewReporter(cfg Config) (*Reporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid convergence config: %w", err)
	}
	estimator, err := ess.New(cfg.EstimatorOptions())
	if err != nil {
		return nil, err
	}
	return &Reporter{cfg: cfg, estimator: estimator}, nil
}

// Config returns the reporter's configuration.
func (r *Reporter) Config() Config {
	return r.cfg
}

func (r *Reporter) workers() int {
	if r.cfg.Workers > 0 {
		return r.cfg.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Analyze trims burn-in from every column of table and estimates each
// column's ESS. Results are in table column order regardless of which
// worker finishes first.
//
// Burn-in errors abort before any column is analyzed. Insufficient or
// non-finite samples in any column fail the whole call, wrapped with the
// column name. Constant columns are reported as degenerate, not as errors.
func (r *Reporter) Analyze(ctx context.Context, table *trace.Table) (*Report, error) {
	if len(r.cfg.SkipColumns) > 0 {
		table = table.Drop(r.cfg.SkipColumns...)
	}
	trimmed, err := table.Trim(r.cfg.BurnInSpec())
	if err != nil {
		return nil, err
	}
	logrus.Debugf("convergence: total samples %d, after %s burn-in %d samples",
		table.Len(), r.cfg.BurnInSpec(), trimmed.Len())
	if trimmed.NumColumns() > 0 && trimmed.Len() < 2 {
		return nil, fmt.Errorf("%w: %d samples remain after %s burn-in",
			ess.ErrInsufficientSamples, trimmed.Len(), r.cfg.BurnInSpec())
	}

	results := make([]Result, trimmed.NumColumns())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i := 0; i < trimmed.NumColumns(); i++ {
		i := i
		col := trimmed.At(i)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			est, err := r.estimator.Estimate(col.Values)
			if err != nil {
				return fmt.Errorf("column %q: %w", col.Name, err)
			}
			if est.Degenerate {
				logrus.Warnf("convergence: column %q is constant; ESS undefined", col.Name)
			}
			results[i] = newResult(col.Name, est, r.cfg.Threshold)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Report{
		Results:         results,
		BurnIn:          r.cfg.BurnInSpec(),
		TotalSamples:    table.Len(),
		RetainedSamples: trimmed.Len(),
		Threshold:       r.cfg.Threshold,
		Summary:         Summarize(results),
	}, nil
}

// ThresholdCrossings reports, for each configured threshold column present
// in table, how many samples from the start of the untrimmed chain were
// needed to reach the threshold. Columns are reported in table order.
func (r *Reporter) ThresholdCrossings(table *trace.Table) ([]Crossing, error) {
	wanted := r.cfg.ThresholdColumns
	if len(wanted) == 0 {
		wanted = DefaultThresholdColumns
	}
	selected := table.Select(wanted...)
	if selected.NumColumns() == 0 {
		return nil, nil
	}
	trimmed, err := selected.Trim(r.cfg.BurnInSpec())
	if err != nil {
		return nil, err
	}

	crossings := make([]Crossing, 0, selected.NumColumns())
	for i := 0; i < selected.NumColumns(); i++ {
		col := selected.At(i)
		samples, found, err := r.estimator.SamplesToThreshold(col.Values, r.cfg.Threshold)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}
		c := Crossing{Name: col.Name, Samples: samples, Found: found, FinalESS: math.NaN()}
		if !found {
			est, err := r.estimator.Estimate(trimmed.At(i).Values)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", col.Name, err)
			}
			c.FinalESS = est.ESS
		}
		crossings = append(crossings, c)
	}
	return crossings, nil
}
