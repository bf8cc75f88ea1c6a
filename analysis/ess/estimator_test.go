package ess

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beast2-analysis/beast2-analysis/analysis/internal/testutil"
)

func mustEstimator(t *testing.T, opts Options) *Estimator {
	t.Helper()
	e, err := New(opts)
	require.NoError(t, err)
	return e
}

func TestEstimate_IIDChain_ESSCloseToN(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		minFrac float64
	}{
		{"n=1000", 1000, 0.8},
		{"n=10000", 10000, 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN independent standard normal draws
			x := testutil.NewChainSource(42).IID("iid", tt.n)

			// WHEN the ESS is estimated
			res, err := mustEstimator(t, Options{}).Estimate(x)

			// THEN it is close to N
			require.NoError(t, err)
			assert.GreaterOrEqual(t, res.ESS, tt.minFrac*float64(tt.n))
			assert.LessOrEqual(t, res.ESS, float64(tt.n))
			assert.False(t, res.Degenerate)
			assert.False(t, res.Truncated, "white noise must trigger the stopping rule before the lag cap")
		})
	}
}

func TestEstimate_ConstantChain_DegenerateNaN(t *testing.T) {
	for _, v := range []float64{0, 1, -3.5, 1e9, 1e-300} {
		// GIVEN a constant column
		x := testutil.Constant(10000, v)

		// WHEN estimated
		res, err := mustEstimator(t, Options{}).Estimate(x)

		// THEN no error, NaN ESS and the degenerate flag
		require.NoError(t, err, "value %v", v)
		assert.True(t, math.IsNaN(res.ESS), "value %v: ESS = %v, want NaN", v, res.ESS)
		assert.True(t, math.IsNaN(res.Tau))
		assert.True(t, res.Degenerate)
		assert.Equal(t, 10000, res.SampleSize)
	}
}

func TestEstimate_LargeMeanSmallSpread_NotDegenerate(t *testing.T) {
	tests := []struct {
		mean, sd float64
	}{
		{1000, 1e-4},
		{1e6, 0.5},
		{-25000, 0.02},
	}
	for _, tt := range tests {
		// GIVEN an IID chain whose spread is tiny relative to its mean
		z := testutil.NewChainSource(17).IID("iid", 10000)
		x := make([]float64, len(z))
		for i, v := range z {
			x[i] = tt.mean + tt.sd*v
		}

		// WHEN its ESS is estimated
		res, err := mustEstimator(t, Options{}).Estimate(x)

		// THEN it varies, so the ESS is finite and close to N
		require.NoError(t, err)
		assert.False(t, res.Degenerate, "mean=%g sd=%g", tt.mean, tt.sd)
		assert.False(t, math.IsNaN(res.ESS), "mean=%g sd=%g", tt.mean, tt.sd)
		assert.GreaterOrEqual(t, res.ESS, 8000.0, "mean=%g sd=%g", tt.mean, tt.sd)
	}
}

func TestEstimate_ESSWithinOneAndN(t *testing.T) {
	src := testutil.NewChainSource(7)
	alternating := make([]float64, 500)
	for i := range alternating {
		alternating[i] = float64(1 - 2*(i%2))
	}
	tests := []struct {
		name string
		x    []float64
	}{
		{"iid", src.IID("iid", 2000)},
		{"ar1 0.5", src.AR1("ar1-05", 2000, 0.5)},
		{"ar1 0.99", src.AR1("ar1-099", 2000, 0.99)},
		{"random walk", src.RandomWalk("rw", 2000, 1)},
		{"alternating", alternating},
		{"two samples", []float64{1, 2}},
		{"three samples", []float64{3, 1, 2}},
		{"short iid", src.IID("short", 11)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, method := range []Method{MethodDirect, MethodFFT} {
				res, err := mustEstimator(t, Options{Method: method}).Estimate(tt.x)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, res.ESS, 1.0, "method %s", method)
				assert.LessOrEqual(t, res.ESS, float64(len(tt.x)), "method %s", method)
				assert.GreaterOrEqual(t, res.Tau, 1.0, "method %s", method)
			}
		})
	}
}

func TestEstimate_NegativelyCorrelatedChain_ClampedToN(t *testing.T) {
	// GIVEN a perfectly alternating chain (ρ(1) = -1)
	x := make([]float64, 1000)
	for i := range x {
		x[i] = float64(i % 2)
	}

	// WHEN estimated
	res, err := mustEstimator(t, Options{}).Estimate(x)

	// THEN τ is clamped to 1 and ESS to N
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Tau)
	assert.Equal(t, 1000.0, res.ESS)
}

func TestEstimate_AR1_ApproachesTheoreticalESS(t *testing.T) {
	tests := []struct {
		phi    float64
		n      int
		relTol float64
	}{
		{0.5, 50000, 0.15},
		{0.9, 100000, 0.2},
	}
	for _, tt := range tests {
		// GIVEN an AR(1) chain with strong positive lag-1 correlation
		x := testutil.NewChainSource(2024).AR1("ar1", tt.n, tt.phi)

		// WHEN estimated
		res, err := mustEstimator(t, Options{}).Estimate(x)
		require.NoError(t, err)

		// THEN ESS is well below N and near N(1-φ)/(1+φ)
		want := testutil.AR1ESS(tt.n, tt.phi)
		assert.Less(t, res.ESS, 0.5*float64(tt.n))
		testutil.AssertFloat64Equal(t, "ar1 ess", want, res.ESS, tt.relTol)
	}
}

func TestEstimate_RandomWalk_FarBelowThreshold(t *testing.T) {
	x := testutil.NewChainSource(11).RandomWalk("rw", 10000, 0.1)

	res, err := mustEstimator(t, Options{}).Estimate(x)

	require.NoError(t, err)
	assert.Less(t, res.ESS, 200.0)
}

func TestEstimate_TooFewSamples_ReturnsInsufficientSamples(t *testing.T) {
	for _, x := range [][]float64{nil, {}, {1.5}} {
		_, err := mustEstimator(t, Options{}).Estimate(x)
		assert.True(t, errors.Is(err, ErrInsufficientSamples), "len %d: err = %v", len(x), err)
	}
}

func TestEstimate_BoundarySampleCounts(t *testing.T) {
	e := mustEstimator(t, Options{})

	// N=2: ρ(1) = -1 so the first pair sum is 0 and τ clamps to 1
	res, err := e.Estimate([]float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 2.0, res.ESS)
	assert.Equal(t, 1, res.MaxLag)
	assert.False(t, res.Truncated)

	// N=3: ρ(1) = 0, the only available pair is positive, so the cap is hit
	res, err = e.Estimate([]float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3.0, res.ESS)
	assert.Equal(t, 1, res.MaxLag)
	assert.True(t, res.Truncated)
}

func TestEstimate_NonFiniteValue_ReturnsInvalidSampleValue(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		x := []float64{1, 2, bad, 4}
		_, err := mustEstimator(t, Options{}).Estimate(x)
		assert.True(t, errors.Is(err, ErrInvalidSampleValue), "value %v: err = %v", bad, err)
		assert.Contains(t, err.Error(), "index 2")
	}
}

func TestEstimate_Idempotent(t *testing.T) {
	// GIVEN a chain and a copy of it
	x := testutil.NewChainSource(3).AR1("ar1", 3000, 0.7)
	orig := append([]float64(nil), x...)
	e := mustEstimator(t, Options{})

	// WHEN estimated twice
	first, err1 := e.Estimate(x)
	second, err2 := e.Estimate(x)

	// THEN results are identical and the input is untouched
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
	assert.Equal(t, orig, x)
}

func TestEstimate_FFTMatchesDirect(t *testing.T) {
	src := testutil.NewChainSource(99)
	chains := map[string][]float64{
		"iid":      src.IID("iid", 5000),
		"ar1 0.8":  src.AR1("ar1", 5000, 0.8),
		"ar1 0.95": src.AR1("ar1-095", 8000, 0.95),
	}
	for name, x := range chains {
		direct, err := mustEstimator(t, Options{Method: MethodDirect}).Estimate(x)
		require.NoError(t, err)
		fft, err := mustEstimator(t, Options{Method: MethodFFT}).Estimate(x)
		require.NoError(t, err)

		assert.Equal(t, MethodDirect, direct.Method)
		assert.Equal(t, MethodFFT, fft.Method)
		assert.Equal(t, direct.LagsUsed, fft.LagsUsed, name)
		testutil.AssertFloat64Equal(t, name+" ess", direct.ESS, fft.ESS, 1e-6)
		testutil.AssertFloat64Equal(t, name+" tau", direct.Tau, fft.Tau, 1e-6)
	}
}

func TestEstimate_AutoMethod_SwitchesOnLength(t *testing.T) {
	src := testutil.NewChainSource(5)
	e := mustEstimator(t, Options{Method: MethodAuto})

	short, err := e.Estimate(src.IID("short", 1000))
	require.NoError(t, err)
	long, err := e.Estimate(src.IID("long", fftMinSamples))
	require.NoError(t, err)

	assert.Equal(t, MethodDirect, short.Method)
	assert.Equal(t, MethodFFT, long.Method)
}

func TestEstimate_LagCapReached_FlagsTruncated(t *testing.T) {
	// GIVEN a slowly mixing chain and a tiny lag cap
	x := testutil.NewChainSource(8).AR1("ar1", 5000, 0.99)

	// WHEN estimated
	res, err := mustEstimator(t, Options{MaxLag: 4}).Estimate(x)

	// THEN the estimate is still returned but flagged
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, 4, res.MaxLag)
	assert.Equal(t, 3, res.LagsUsed)
	assert.GreaterOrEqual(t, res.ESS, 1.0)
	assert.LessOrEqual(t, res.ESS, 5000.0)
}

func TestEstimate_MonotoneRuleNeverBelowPositiveRule(t *testing.T) {
	src := testutil.NewChainSource(13)
	for _, x := range [][]float64{
		src.IID("iid", 4000),
		src.AR1("a", 4000, 0.6),
		src.AR1("b", 4000, 0.95),
	} {
		mono, err := mustEstimator(t, Options{StoppingRule: StoppingRuleMonotone}).Estimate(x)
		require.NoError(t, err)
		pos, err := mustEstimator(t, Options{StoppingRule: StoppingRulePositive}).Estimate(x)
		require.NoError(t, err)

		assert.LessOrEqual(t, mono.Tau, pos.Tau)
		assert.GreaterOrEqual(t, mono.ESS, pos.ESS)
		assert.Equal(t, mono.LagsUsed, pos.LagsUsed)
	}
}

type fixedACF []float64

func (f fixedACF) At(k int) float64 { return f[k] }

func TestIntegratedTime_PairSums(t *testing.T) {
	tests := []struct {
		name          string
		rho           fixedACF
		maxLag        int
		rule          StoppingRule
		wantTau       float64
		wantLagsUsed  int
		wantTruncated bool
	}{
		{
			name:   "stops at first negative pair",
			rho:    fixedACF{1, 0.5, 0.3, 0.4, -0.2, -0.3, 0.9, 0.9},
			maxLag: 7, rule: StoppingRulePositive,
			wantTau: -1 + 2*(1.5+0.7), wantLagsUsed: 3,
		},
		{
			name:   "monotone caps increasing pair",
			rho:    fixedACF{1, 0.1, 0.6, 0.6, -0.05, -0.05},
			maxLag: 5, rule: StoppingRuleMonotone,
			wantTau: -1 + 2*(1.1+1.1), wantLagsUsed: 3,
		},
		{
			name:   "positive rule keeps increasing pair",
			rho:    fixedACF{1, 0.1, 0.6, 0.6, -0.05, -0.05},
			maxLag: 5, rule: StoppingRulePositive,
			wantTau: -1 + 2*(1.1+1.2), wantLagsUsed: 3,
		},
		{
			name:   "first pair non-positive clamps to one",
			rho:    fixedACF{1, -1},
			maxLag: 1, rule: StoppingRuleMonotone,
			wantTau: 1, wantLagsUsed: 0,
		},
		{
			name:   "lag cap exhausted",
			rho:    fixedACF{1, 0.9, 0.8, 0.7, 0.6},
			maxLag: 4, rule: StoppingRuleMonotone,
			wantTau: -1 + 2*(1.9+1.5), wantLagsUsed: 3, wantTruncated: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tau, lags, truncated := integratedTime(tt.rho, tt.maxLag, tt.rule)
			assert.InDelta(t, tt.wantTau, tau, 1e-12)
			assert.Equal(t, tt.wantLagsUsed, lags)
			assert.Equal(t, tt.wantTruncated, truncated)
		})
	}
}

func TestAutocorrelation_LagZeroIsOne(t *testing.T) {
	x := testutil.NewChainSource(1).AR1("ar1", 500, 0.5)
	rho := Autocorrelation(x, 10)
	require.Len(t, rho, 11)
	assert.Equal(t, 1.0, rho[0])
	assert.Greater(t, rho[1], 0.3)

	assert.Nil(t, Autocorrelation(testutil.Constant(10, 2), 3))
	assert.Len(t, Autocorrelation([]float64{1, 2, 4}, 10), 3)
}

func TestAutocorrelation_NegativeMaxLag_ReturnsLagZeroOnly(t *testing.T) {
	x := testutil.NewChainSource(1).IID("iid", 50)
	for _, lag := range []int{-1, -2, -100} {
		rho := Autocorrelation(x, lag)
		require.Len(t, rho, 1, "maxLag=%d", lag)
		assert.Equal(t, 1.0, rho[0])
	}
}

func TestEffectiveSampleSize_DefaultOptions(t *testing.T) {
	x := testutil.NewChainSource(21).IID("iid", 2000)
	got, err := EffectiveSampleSize(x)
	require.NoError(t, err)
	res, err := mustEstimator(t, Options{}).Estimate(x)
	require.NoError(t, err)
	assert.Equal(t, res.ESS, got)
}
