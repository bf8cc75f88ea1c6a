// Package testutil provides shared test infrastructure for the analysis
// packages: deterministic synthetic MCMC chains and float assertion helpers
// used across analysis/ess, analysis/convergence and analysis/report tests.
package testutil

import (
	"hash/fnv"
	"math"
	"math/rand"
	"testing"
)

// ChainKey identifies a reproducible family of synthetic chains.
// Two generators with the same key return bit-for-bit identical chains
// for the same stream name.
type ChainKey int64

// ChainSource hands out independent, deterministically seeded RNGs per
// named stream, so that adding a new column to a test fixture does not
// shift the values drawn for existing columns.
//
// Not thread-safe.
type ChainSource struct {
	key     ChainKey
	streams map[string]*rand.Rand
}

// NewChainSource creates a ChainSource from a seed.
func NewChainSource(seed int64) *ChainSource {
	return &ChainSource{
		key:     ChainKey(seed),
		streams: make(map[string]*rand.Rand),
	}
}

// Stream returns the cached RNG for name. Never returns nil.
func (c *ChainSource) Stream(name string) *rand.Rand {
	if rng, ok := c.streams[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(int64(c.key) ^ fnv1a64(name)))
	c.streams[name] = rng
	return rng
}

// IID returns n independent standard normal draws.
func (c *ChainSource) IID(name string, n int) []float64 {
	rng := c.Stream(name)
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64()
	}
	return out
}

// AR1 returns n samples of x[t] = phi*x[t-1] + e[t], e ~ N(0,1),
// started from the stationary distribution.
func (c *ChainSource) AR1(name string, n int, phi float64) []float64 {
	rng := c.Stream(name)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	out[0] = rng.NormFloat64() / math.Sqrt(1-phi*phi)
	for i := 1; i < n; i++ {
		out[i] = phi*out[i-1] + rng.NormFloat64()
	}
	return out
}

// RandomWalk returns n samples of a Gaussian random walk with the given
// step standard deviation.
func (c *ChainSource) RandomWalk(name string, n int, step float64) []float64 {
	rng := c.Stream(name)
	out := make([]float64, n)
	for i := 1; i < n; i++ {
		out[i] = out[i-1] + step*rng.NormFloat64()
	}
	return out
}

// Constant returns n copies of v.
func Constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// AR1ESS is the asymptotic ESS of an AR(1) chain of length n.
func AR1ESS(n int, phi float64) float64 {
	return float64(n) * (1 - phi) / (1 + phi)
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
