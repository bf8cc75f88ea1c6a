package convergence

import (
	"math"

	"github.com/beast2-analysis/beast2-analysis/analysis/trace"
)

// Report is the ordered outcome of one Analyze call.
type Report struct {
	Results         []Result
	BurnIn          trace.BurnIn
	TotalSamples    int
	RetainedSamples int
	Threshold       float64
	Summary         Summary
}

// Summary aggregates a report. Degenerate columns are counted but never
// feed MinESS.
type Summary struct {
	Parameters      int
	Converged       int
	Degenerate      int
	Truncated       int
	MinESS          float64 // NaN when no column has a finite ESS
	MinESSParameter string
}

// Summarize computes aggregate statistics over results.
// Safe for nil or empty input.
func Summarize(results []Result) Summary {
	s := Summary{
		Parameters: len(results),
		MinESS:     math.NaN(),
	}
	for _, r := range results {
		if r.Converged {
			s.Converged++
		}
		if r.Truncated {
			s.Truncated++
		}
		if r.Degenerate || math.IsNaN(r.ESS) {
			s.Degenerate++
			continue
		}
		if math.IsNaN(s.MinESS) || r.ESS < s.MinESS {
			s.MinESS = r.ESS
			s.MinESSParameter = r.Name
		}
	}
	return s
}

// AllConverged reports whether every parameter passed the threshold.
// Degenerate columns count as not converged.
func (r *Report) AllConverged() bool {
	return r.Summary.Converged == r.Summary.Parameters
}

// Result returns the result for the named parameter.
func (r *Report) Result(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}
