package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/beast2-analysis/beast2-analysis/analysis/convergence"
	"github.com/beast2-analysis/beast2-analysis/analysis/trace"
)

func sampleReport() *convergence.Report {
	results := []convergence.Result{
		{Name: "posterior", ESS: 812.5, SampleSize: 900, Converged: true, Tau: 1.1077, LagsUsed: 3},
		{Name: "constant", ESS: math.NaN(), SampleSize: 900, Degenerate: true, Tau: math.NaN()},
		{Name: "clockRate", ESS: 43.25, SampleSize: 900, Truncated: true, Tau: 20.81, LagsUsed: 449},
	}
	return &convergence.Report{
		Results:         results,
		BurnIn:          trace.BurnInFraction(0.1),
		TotalSamples:    1000,
		RetainedSamples: 900,
		Threshold:       200,
		Summary:         convergence.Summarize(results),
	}
}

func TestWrite_CSV_OneRowPerParameterInOrder(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Write(&buf, sampleReport(), FormatCSV))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, csvColumns, rows[0])
	assert.Equal(t, []string{"posterior", "812.5000", "900", "true", "false", "false", "1.1077"}, rows[1])
	assert.Equal(t, "constant", rows[2][0])
	assert.Equal(t, "NaN", rows[2][1])
	assert.Equal(t, "true", rows[2][4])
	assert.Equal(t, "clockRate", rows[3][0])
	assert.Equal(t, "true", rows[3][5])
}

func TestWrite_JSON_DegenerateAsNull(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Write(&buf, sampleReport(), FormatJSON))

	var decoded struct {
		BurnIn  string   `json:"burn_in"`
		MinESS  *float64 `json:"min_ess"`
		MinName string   `json:"min_ess_parameter"`
		Results []struct {
			Parameter string   `json:"parameter"`
			ESS       *float64 `json:"ess"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "10.0%", decoded.BurnIn)
	require.NotNil(t, decoded.MinESS)
	assert.Equal(t, 43.25, *decoded.MinESS)
	assert.Equal(t, "clockRate", decoded.MinName)
	require.Len(t, decoded.Results, 3)
	assert.Nil(t, decoded.Results[1].ESS)
	require.NotNil(t, decoded.Results[0].ESS)
	assert.Equal(t, 812.5, *decoded.Results[0].ESS)
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Write(&buf, sampleReport(), FormatYAML))

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 900, decoded["retained_samples"])
	assert.Equal(t, 3, decoded["parameters"])
	results, ok := decoded["results"].([]interface{})
	require.True(t, ok)
	assert.Len(t, results, 3)
}

func TestWrite_Prom_ParsesAsExposition(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Write(&buf, sampleReport(), FormatProm))

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(strings.NewReader(buf.String()))
	require.NoError(t, err)

	essFamily, ok := families[MetricESS]
	require.True(t, ok)
	require.Len(t, essFamily.GetMetric(), 3)
	first := essFamily.GetMetric()[0]
	assert.Equal(t, "posterior", first.GetLabel()[0].GetValue())
	assert.Equal(t, 812.5, first.GetGauge().GetValue())
	assert.True(t, math.IsNaN(essFamily.GetMetric()[1].GetGauge().GetValue()))

	converged := families[MetricConverged].GetMetric()
	assert.Equal(t, 1.0, converged[0].GetGauge().GetValue())
	assert.Equal(t, 0.0, converged[2].GetGauge().GetValue())
	assert.Equal(t, 900.0, families[MetricRetainedSamples].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, 200.0, families[MetricThreshold].GetMetric()[0].GetGauge().GetValue())
}

func TestWriteFile_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ess_results.csv")

	require.NoError(t, WriteFile(path, sampleReport(), FormatFromPath(path)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "parameter,ess,"))
}

func TestParseFormatAndFromPath(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	_, err = ParseFormat("xlsx")
	assert.Error(t, err)

	assert.Equal(t, FormatCSV, FormatFromPath("out.csv"))
	assert.Equal(t, FormatCSV, FormatFromPath("out"))
	assert.Equal(t, FormatYAML, FormatFromPath("out.yml"))
	assert.Equal(t, FormatProm, FormatFromPath("ess.prom"))
	assert.Equal(t, FormatJSON, FormatFromPath("ESS.JSON"))
}

func TestSortByESS_AscendingNaNLast(t *testing.T) {
	results := sampleReport().Results

	sorted := SortByESS(results)

	assert.Equal(t, "clockRate", sorted[0].Name)
	assert.Equal(t, "posterior", sorted[1].Name)
	assert.Equal(t, "constant", sorted[2].Name)
	assert.Equal(t, "posterior", results[0].Name, "input must not be reordered")
}
