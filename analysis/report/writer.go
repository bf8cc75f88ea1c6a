// Package report serializes convergence reports.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/beast2-analysis/beast2-analysis/analysis/convergence"
)

// Format is an output serialization.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatProm Format = "prom" // Prometheus text exposition
)

var validFormats = map[Format]bool{
	FormatCSV:  true,
	FormatJSON: true,
	FormatYAML: true,
	FormatProm: true,
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	if !validFormats[f] {
		return "", fmt.Errorf("unknown report format %q; valid: csv, json, yaml, prom", s)
	}
	return f, nil
}

// FormatFromPath infers the format from a file extension, defaulting to CSV.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".prom":
		return FormatProm
	default:
		return FormatCSV
	}
}

// csvColumns is the header row of CSV reports.
var csvColumns = []string{"parameter", "ess", "sample_size", "converged", "degenerate", "truncated", "tau"}

// Write serializes r to w in format f.
func Write(w io.Writer, r *convergence.Report, f Format) error {
	switch f {
	case FormatCSV:
		return writeCSV(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(newReportRecord(r)); err != nil {
			return fmt.Errorf("encoding JSON report: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newReportRecord(r)); err != nil {
			return fmt.Errorf("encoding YAML report: %w", err)
		}
		return enc.Close()
	case FormatProm:
		return writeProm(w, r)
	default:
		return fmt.Errorf("unknown report format %q", f)
	}
}

// WriteFile writes r to path in format f, replacing any existing file.
func WriteFile(path string, r *convergence.Report, f Format) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	if err := Write(file, r, f); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing report file: %w", err)
	}
	return nil
}

// SortByESS returns a copy of results in ascending ESS order with
// degenerate (NaN) results last. Ties keep their original order.
func SortByESS(results []convergence.Result) []convergence.Result {
	out := append([]convergence.Result(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ESS, out[j].ESS
		if math.IsNaN(a) {
			return false
		}
		if math.IsNaN(b) {
			return true
		}
		return a < b
	})
	return out
}

func writeCSV(w io.Writer, r *convergence.Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvColumns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, res := range r.Results {
		row := []string{
			res.Name,
			formatFloat(res.ESS),
			strconv.Itoa(res.SampleSize),
			strconv.FormatBool(res.Converged),
			strconv.FormatBool(res.Degenerate),
			strconv.FormatBool(res.Truncated),
			formatFloat(res.Tau),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %q: %w", res.Name, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// resultRecord is the JSON/YAML shape of a result. NaN is not valid JSON,
// so undefined values are encoded as null.
type resultRecord struct {
	Parameter  string   `json:"parameter" yaml:"parameter"`
	ESS        *float64 `json:"ess" yaml:"ess"`
	SampleSize int      `json:"sample_size" yaml:"sample_size"`
	Converged  bool     `json:"converged" yaml:"converged"`
	Degenerate bool     `json:"degenerate" yaml:"degenerate"`
	Truncated  bool     `json:"truncated" yaml:"truncated"`
	Tau        *float64 `json:"tau" yaml:"tau"`
	LagsUsed   int      `json:"lags_used" yaml:"lags_used"`
}

type reportRecord struct {
	BurnIn          string         `json:"burn_in" yaml:"burn_in"`
	TotalSamples    int            `json:"total_samples" yaml:"total_samples"`
	RetainedSamples int            `json:"retained_samples" yaml:"retained_samples"`
	Threshold       float64        `json:"threshold" yaml:"threshold"`
	Parameters      int            `json:"parameters" yaml:"parameters"`
	Converged       int            `json:"converged" yaml:"converged"`
	Degenerate      int            `json:"degenerate" yaml:"degenerate"`
	MinESS          *float64       `json:"min_ess" yaml:"min_ess"`
	MinESSParameter string         `json:"min_ess_parameter,omitempty" yaml:"min_ess_parameter,omitempty"`
	Results         []resultRecord `json:"results" yaml:"results"`
}

func newReportRecord(r *convergence.Report) reportRecord {
	rec := reportRecord{
		BurnIn:          r.BurnIn.String(),
		TotalSamples:    r.TotalSamples,
		RetainedSamples: r.RetainedSamples,
		Threshold:       r.Threshold,
		Parameters:      r.Summary.Parameters,
		Converged:       r.Summary.Converged,
		Degenerate:      r.Summary.Degenerate,
		MinESS:          finiteOrNil(r.Summary.MinESS),
		MinESSParameter: r.Summary.MinESSParameter,
		Results:         make([]resultRecord, len(r.Results)),
	}
	for i, res := range r.Results {
		rec.Results[i] = resultRecord{
			Parameter:  res.Name,
			ESS:        finiteOrNil(res.ESS),
			SampleSize: res.SampleSize,
			Converged:  res.Converged,
			Degenerate: res.Degenerate,
			Truncated:  res.Truncated,
			Tau:        finiteOrNil(res.Tau),
			LagsUsed:   res.LagsUsed,
		}
	}
	return rec
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
