package ess

const (
	thresholdCoarseStep = 100
	thresholdFineStep   = 10
)

// SamplesToThreshold returns the smallest chain prefix length whose ESS
// reaches threshold. Prefixes are scanned in steps of 100 samples, then the
// last step is refined in steps of 10. If no scanned prefix qualifies the
// full chain is tried; found is false when it does not qualify either.
//
// x is the untrimmed chain; prefixes always start at sample 0.
func (e *Estimator) SamplesToThreshold(x []float64, threshold float64) (samples int, found bool, err error) {
	n := len(x)
	reaches := func(k int) (bool, error) {
		res, err := e.Estimate(x[:k])
		if err != nil {
			return false, err
		}
		// NaN compares false: degenerate prefixes never qualify.
		return res.ESS >= threshold, nil
	}

	for k := thresholdCoarseStep; k <= n; k += thresholdCoarseStep {
		ok, err := reaches(k)
		if err != nil {
			return 0, false, err
		}
		if !ok {
			continue
		}
		for fine := max(thresholdCoarseStep, k-thresholdCoarseStep); fine <= k; fine += thresholdFineStep {
			ok, err := reaches(fine)
			if err != nil {
				return 0, false, err
			}
			if ok {
				return fine, true, nil
			}
		}
		return k, true, nil
	}

	ok, err := reaches(n)
	if err != nil || !ok {
		return 0, false, err
	}
	return n, true, nil
}
