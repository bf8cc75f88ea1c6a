package ess

import "fmt"

// StoppingRule selects how the autocorrelation pair sums are truncated.
type StoppingRule string

const (
	// StoppingRuleMonotone accumulates positive pair sums, each capped by the
	// previous one (Geyer initial monotone sequence). Default.
	StoppingRuleMonotone StoppingRule = "monotone"
	// StoppingRulePositive accumulates pair sums until the first non-positive one
	// (Geyer initial positive sequence).
	StoppingRulePositive StoppingRule = "positive"
)

// Method selects how autocovariances are computed.
type Method string

const (
	// MethodAuto picks MethodFFT for long chains and MethodDirect otherwise.
	MethodAuto Method = "auto"
	// MethodDirect evaluates each lag with an O(N) pass, only as far as the
	// stopping rule needs.
	MethodDirect Method = "direct"
	// MethodFFT evaluates all lags up to the cap in O(N log N).
	MethodFFT Method = "fft"
)

const (
	// DefaultMaxLagCap bounds the derived max lag for very long chains.
	DefaultMaxLagCap = 10000

	// fftMinSamples is the chain length from which MethodAuto switches to FFT.
	fftMinSamples = 1 << 14
)

var validStoppingRules = map[StoppingRule]bool{
	StoppingRuleMonotone: true,
	StoppingRulePositive: true,
	"":                   true, // empty defaults to monotone
}

var validMethods = map[Method]bool{
	MethodAuto:   true,
	MethodDirect: true,
	MethodFFT:    true,
	"":           true, // empty defaults to auto
}

// IsValidStoppingRule returns true if rule is a recognized stopping rule name.
func IsValidStoppingRule(rule string) bool {
	return validStoppingRules[StoppingRule(rule)]
}

// IsValidMethod returns true if method is a recognized autocovariance method name.
func IsValidMethod(method string) bool {
	return validMethods[Method(method)]
}

// Options configures an Estimator. The zero value is valid and selects the
// defaults: derived max lag, monotone stopping rule, automatic method.
type Options struct {
	MaxLag       int // 0 derives min(DefaultMaxLagCap, N/2)
	StoppingRule StoppingRule
	Method       Method
}

// Validate checks that all option values are recognized.
func (o Options) Validate() error {
	if o.MaxLag < 0 {
		return fmt.Errorf("max lag must be non-negative, got %d", o.MaxLag)
	}
	if !validStoppingRules[o.StoppingRule] {
		return fmt.Errorf("unknown stopping rule %q; valid: monotone, positive", o.StoppingRule)
	}
	if !validMethods[o.Method] {
		return fmt.Errorf("unknown autocovariance method %q; valid: auto, direct, fft", o.Method)
	}
	return nil
}

// maxLagFor returns the lag cap for a chain of n samples (n >= 2).
// The result is always in [1, n-1].
func (o Options) maxLagFor(n int) int {
	lag := o.MaxLag
	if lag == 0 {
		lag = min(DefaultMaxLagCap, n/2)
	}
	return max(1, min(lag, n-1))
}

func (o Options) stoppingRule() StoppingRule {
	if o.StoppingRule == "" {
		return StoppingRuleMonotone
	}
	return o.StoppingRule
}

func (o Options) methodFor(n int) Method {
	switch o.Method {
	case MethodDirect, MethodFFT:
		return o.Method
	}
	if n >= fftMinSamples {
		return MethodFFT
	}
	return MethodDirect
}
