package remaster

import (
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DateLayout is the YYYY/MM/DD format BEAST 2 date traits expect.
const DateLayout = "2006/01/02"

// DefaultStartDate anchors simulation time zero.
const DefaultStartDate = "2000/01/01"

// Template placeholders replaced by FillTemplate.
const (
	PlaceholderSequences  = "INSERTSEQUENCES"
	PlaceholderTraitDates = "INSERTTRAITDATES"
	PlaceholderTraitTypes = "INSERTTRAITTYPES"
)

// Data is the per-taxon material extracted from a simulation.
type Data struct {
	Sequences map[string]string  // taxon → lowercase sequence
	Times     map[string]float64 // taxon → sampling time in years since origin
	Types     map[string]string  // taxon → deme/type
}

// Extract reads a ReMASTER alignment and trees file. Leaf "time" and
// "type" annotations populate Times and Types; curly braces are stripped
// from types.
func Extract(alignmentPath, treePath string) (*Data, error) {
	seqs, err := ReadAlignment(alignmentPath)
	if err != nil {
		return nil, err
	}
	tree, err := ReadTree(treePath)
	if err != nil {
		return nil, err
	}

	d := &Data{
		Sequences: seqs,
		Times:     make(map[string]float64),
		Types:     make(map[string]string),
	}
	for _, leaf := range tree.Leaves {
		if v, ok := leaf.Annotations["type"]; ok && v != "" {
			d.Types[leaf.Label] = strings.NewReplacer("{", "", "}", "").Replace(v)
		}
		if v, ok := leaf.Annotations["time"]; ok {
			t, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("leaf %q: invalid time %q: %w", leaf.Label, v, err)
			}
			d.Times[leaf.Label] = t
		}
	}
	logrus.Debugf("remaster: %d sequences, %d dated leaves, %d typed leaves",
		len(d.Sequences), len(d.Times), len(d.Types))
	return d, nil
}

// TimesToDates converts simulation times in years to YYYY/MM/DD dates
// counted from start. Fractional days are truncated.
func TimesToDates(times map[string]float64, start string) (map[string]string, error) {
	origin, err := time.Parse(DateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q, expected YYYY/MM/DD: %w", start, err)
	}
	dates := make(map[string]string, len(times))
	for taxon, years := range times {
		days := int(years * 365)
		dates[taxon] = origin.AddDate(0, 0, days).Format(DateLayout)
	}
	return dates, nil
}

// FillTemplate reads the template at templatePath, substitutes the
// sequence, date and type placeholders and writes the result to
// outputPath. Every date must be YYYY/MM/DD; nothing is written otherwise.
// Taxa are emitted in sorted order for deterministic output.
func FillTemplate(templatePath, outputPath string, sequences, dates, types map[string]string) error {
	content, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("reading template: %w", err)
	}

	for _, taxon := range sortedKeys(dates) {
		if _, err := time.Parse(DateLayout, dates[taxon]); err != nil {
			return fmt.Errorf("invalid date format for taxon %q: %q, expected YYYY/MM/DD", taxon, dates[taxon])
		}
	}

	replacer := strings.NewReplacer(
		PlaceholderSequences, sequencesBlock(sequences),
		PlaceholderTraitDates, traitValue(dates),
		PlaceholderTraitTypes, traitValue(types),
	)
	out := replacer.Replace(string(content))

	if err := os.WriteFile(outputPath, []byte(out), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}
	logrus.Debugf("remaster: wrote %s (%d taxa)", outputPath, len(sequences))
	return nil
}

func sequencesBlock(sequences map[string]string) string {
	lines := make([]string, 0, len(sequences))
	for _, taxon := range sortedKeys(sequences) {
		t := xmlAttr(taxon)
		lines = append(lines, fmt.Sprintf(
			`    <sequence id="seq_%s" spec="Sequence" taxon="%s" totalcount="4" value="%s"/>`,
			t, t, xmlAttr(sequences[taxon])))
	}
	return strings.Join(lines, "\n")
}

// traitValue renders a BEAST trait value: "taxon=value,taxon=value".
func traitValue(m map[string]string) string {
	pairs := make([]string, 0, len(m))
	for _, taxon := range sortedKeys(m) {
		pairs = append(pairs, taxon+"="+m[taxon])
	}
	return strings.Join(pairs, ",")
}

func xmlAttr(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
