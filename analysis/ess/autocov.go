package ess

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// autocorrelation returns ρ(k) for 0 <= k <= maxLag.
type autocorrelation interface {
	At(k int) float64
}

// directACF computes each lag on demand with a single pass over the
// centered chain, so lags past the stopping point are never evaluated.
type directACF struct {
	centered []float64
	variance float64
}

func (a *directACF) At(k int) float64 {
	if k == 0 {
		return 1
	}
	n := len(a.centered)
	var sum float64
	for i := 0; i+k < n; i++ {
		sum += a.centered[i] * a.centered[i+k]
	}
	return sum / float64(n-k) / a.variance
}

// fftACF precomputes ρ(0..maxLag) from the power spectrum of the
// zero-padded centered chain.
type fftACF struct {
	rho []float64
}

func newFFTACF(centered []float64, variance float64, maxLag int) *fftACF {
	n := len(centered)
	size := nextPow2(2 * n)
	padded := make([]float64, size)
	copy(padded, centered)

	fft := fourier.NewFFT(size)
	coeff := fft.Coefficients(nil, padded)
	for i, c := range coeff {
		coeff[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	lagSums := fft.Sequence(nil, coeff)

	// The inverse transform is unnormalized; calibrate against the exact
	// lag-0 sum of squares instead of assuming a scale factor.
	var sumSq float64
	for _, v := range centered {
		sumSq += v * v
	}
	scale := sumSq / lagSums[0]

	rho := make([]float64, maxLag+1)
	rho[0] = 1
	for k := 1; k <= maxLag; k++ {
		rho[k] = lagSums[k] * scale / float64(n-k) / variance
	}
	return &fftACF{rho: rho}
}

func (a *fftACF) At(k int) float64 {
	return a.rho[k]
}

func newAutocorrelation(method Method, centered []float64, variance float64, maxLag int) autocorrelation {
	if method == MethodFFT {
		return newFFTACF(centered, variance, maxLag)
	}
	return &directACF{centered: centered, variance: variance}
}

// Autocorrelation returns ρ(0..maxLag) of x computed directly.
// maxLag is clamped to [0, len(x)-1]. Returns nil for constant or too-short input.
func Autocorrelation(x []float64, maxLag int) []float64 {
	centered, _, variance, ok := center(x)
	if !ok {
		return nil
	}
	maxLag = max(0, min(maxLag, len(x)-1))
	acf := &directACF{centered: centered, variance: variance}
	rho := make([]float64, maxLag+1)
	for k := range rho {
		rho[k] = acf.At(k)
	}
	return rho
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
