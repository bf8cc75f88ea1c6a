package report

import (
	"fmt"
	"io"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/beast2-analysis/beast2-analysis/analysis/convergence"
)

// Metric names in the Prometheus exposition.
const (
	MetricESS             = "beast2_ess"
	MetricConverged       = "beast2_converged"
	MetricTau             = "beast2_autocorrelation_time"
	MetricRetainedSamples = "beast2_retained_samples"
	MetricThreshold       = "beast2_ess_threshold"
	parameterLabel        = "parameter"
)

// MetricFamilies converts a report into gauge families, one sample per
// parameter. Degenerate columns export NaN for ESS and τ.
func MetricFamilies(r *convergence.Report) []*dto.MetricFamily {
	essFamily := gaugeFamily(MetricESS, "Effective sample size after burn-in.")
	convergedFamily := gaugeFamily(MetricConverged, "1 if the parameter's ESS reached the threshold.")
	tauFamily := gaugeFamily(MetricTau, "Integrated autocorrelation time.")

	for _, res := range r.Results {
		converged := 0.0
		if res.Converged {
			converged = 1
		}
		essFamily.Metric = append(essFamily.Metric, parameterGauge(res.Name, res.ESS))
		convergedFamily.Metric = append(convergedFamily.Metric, parameterGauge(res.Name, converged))
		tauFamily.Metric = append(tauFamily.Metric, parameterGauge(res.Name, res.Tau))
	}

	retained := gaugeFamily(MetricRetainedSamples, "Samples per parameter after burn-in.")
	retained.Metric = []*dto.Metric{{Gauge: &dto.Gauge{Value: float64Ptr(float64(r.RetainedSamples))}}}
	threshold := gaugeFamily(MetricThreshold, "Convergence threshold applied to ESS.")
	threshold.Metric = []*dto.Metric{{Gauge: &dto.Gauge{Value: float64Ptr(r.Threshold)}}}

	return []*dto.MetricFamily{essFamily, convergedFamily, tauFamily, retained, threshold}
}

func writeProm(w io.Writer, r *convergence.Report) error {
	for _, mf := range MetricFamilies(r) {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func gaugeFamily(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: stringPtr(name),
		Help: stringPtr(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

func parameterGauge(parameter string, v float64) *dto.Metric {
	return &dto.Metric{
		Label: []*dto.LabelPair{{Name: stringPtr(parameterLabel), Value: stringPtr(parameter)}},
		Gauge: &dto.Gauge{Value: float64Ptr(v)},
	}
}

func stringPtr(s string) *string    { return &s }
func float64Ptr(v float64) *float64 { return &v }
