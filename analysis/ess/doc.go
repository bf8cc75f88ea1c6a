// Package ess estimates the effective sample size (ESS) of a single MCMC
// trace column.
//
// # Reading Guide
//
//   - options.go: estimator options (max lag, stopping rule, autocovariance method)
//   - autocov.go: lag-k autocorrelation, direct and FFT-based
//   - estimator.go: the Geyer initial-sequence estimator and its Result
//   - threshold.go: smallest chain prefix reaching a target ESS
//
// # Algorithm
//
// For a sequence x of length N with mean μ and population variance σ²,
// the lag-k autocorrelation is
//
//	ρ(k) = [Σ_{i<N-k} (x_i-μ)(x_{i+k}-μ) / (N-k)] / σ²
//
// Consecutive lags are paired, Γ(m) = ρ(2m) + ρ(2m+1), and pairs are
// accumulated while they stay positive. Under StoppingRuleMonotone each
// pair is additionally capped by its predecessor (Geyer's initial monotone
// sequence). The integrated autocorrelation time is
//
//	τ = -1 + 2 Σ Γ(m) = 1 + 2 Σ_{k≥1} ρ(k)
//
// clamped to τ ≥ 1, and ESS = N/τ clamped to [1, N].
//
// Constant columns have no defined autocorrelation; they are reported with
// ESS = NaN and Result.Degenerate set rather than as an error.
package ess
