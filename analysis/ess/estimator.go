package ess

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrInsufficientSamples is returned for sequences with fewer than 2 samples.
	ErrInsufficientSamples = errors.New("insufficient samples")
	// ErrInvalidSampleValue is returned when a sequence contains NaN or ±Inf.
	ErrInvalidSampleValue = errors.New("invalid sample value")
)

// degenerateRelTol is the variance, relative to μ², below which a column is
// treated as constant. It covers the rounding left by the two-pass variance
// of a column whose values are equal up to float64 precision.
const degenerateRelTol = 4 * epsilon * epsilon

const epsilon = 0x1p-52

// Result is the ESS estimate for one sequence plus diagnostics.
type Result struct {
	ESS        float64 // NaN when Degenerate
	SampleSize int
	Tau        float64 // integrated autocorrelation time; NaN when Degenerate
	LagsUsed   int     // highest lag whose autocorrelation entered τ
	MaxLag     int     // lag cap in effect
	Method     Method  // autocovariance method actually used
	Degenerate bool    // constant column, autocorrelation undefined
	Truncated  bool    // lag cap reached before the stopping rule fired
}

// Estimator computes effective sample sizes. It holds no mutable state and
// is safe for concurrent use.
type Estimator struct {
	opts Options
}

// New creates an Estimator after validating opts.
func New(opts Options) (*Estimator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{opts: opts}, nil
}

// Options returns the options the Estimator was built with.
func (e *Estimator) Options() Options {
	return e.opts
}

// Estimate returns the effective sample size of x, which must already be
// burn-in trimmed. x is not modified.
func (e *Estimator) Estimate(x []float64) (Result, error) {
	n := len(x)
	if n < 2 {
		return Result{SampleSize: n}, fmt.Errorf("%w: got %d, need at least 2", ErrInsufficientSamples, n)
	}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Result{SampleSize: n}, fmt.Errorf("%w: %v at index %d", ErrInvalidSampleValue, v, i)
		}
	}

	res := Result{
		SampleSize: n,
		MaxLag:     e.opts.maxLagFor(n),
	}
	centered, _, variance, ok := center(x)
	if !ok {
		res.ESS = math.NaN()
		res.Tau = math.NaN()
		res.Degenerate = true
		return res, nil
	}

	res.Method = e.opts.methodFor(n)
	acf := newAutocorrelation(res.Method, centered, variance, res.MaxLag)
	res.Tau, res.LagsUsed, res.Truncated = integratedTime(acf, res.MaxLag, e.opts.stoppingRule())
	res.ESS = math.Min(math.Max(float64(n)/res.Tau, 1), float64(n))

	if res.Truncated {
		logrus.Debugf("ess: lag cap %d reached before stopping rule (n=%d, tau=%.3f)", res.MaxLag, n, res.Tau)
	}
	return res, nil
}

// EffectiveSampleSize estimates the ESS of x with default options.
func EffectiveSampleSize(x []float64) (float64, error) {
	e := &Estimator{}
	res, err := e.Estimate(x)
	if err != nil {
		return 0, err
	}
	return res.ESS, nil
}

// integratedTime sums Geyer pair sums Γ(m) = ρ(2m)+ρ(2m+1) until the
// stopping rule fires or the lag cap is exhausted. τ is clamped to >= 1.
func integratedTime(acf autocorrelation, maxLag int, rule StoppingRule) (tau float64, lagsUsed int, truncated bool) {
	var sum float64
	prev := math.Inf(1)
	truncated = true
	for m := 0; 2*m+1 <= maxLag; m++ {
		gamma := acf.At(2*m) + acf.At(2*m+1)
		if gamma <= 0 {
			truncated = false
			break
		}
		if rule == StoppingRuleMonotone && gamma > prev {
			gamma = prev
		}
		sum += gamma
		prev = gamma
		lagsUsed = 2*m + 1
	}
	tau = -1 + 2*sum
	if tau < 1 {
		tau = 1
	}
	return tau, lagsUsed, truncated
}

// center returns x minus its mean together with the mean and population
// variance. ok is false when x is too short or constant.
func center(x []float64) (centered []float64, mean, variance float64, ok bool) {
	if len(x) < 2 || isConstant(x) {
		return nil, 0, 0, false
	}
	mean, variance = stat.PopMeanVariance(x, nil)
	if variance <= degenerateRelTol*mean*mean {
		return nil, mean, variance, false
	}
	centered = make([]float64, len(x))
	for i, v := range x {
		centered[i] = v - mean
	}
	return centered, mean, variance, true
}

func isConstant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}
