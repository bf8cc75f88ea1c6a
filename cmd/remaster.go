package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/beast2-analysis/beast2-analysis/remaster"
)

var (
	alignmentPath string // ReMASTER Nexus alignment
	treePath      string // ReMASTER Nexus trees file
	templatePath  string // BEAST 2 XML template with INSERT* placeholders
	xmlOutputPath string // Filled XML destination
	startDate     string // Date of simulation time zero
)

// remasterCmd fills a BEAST 2 XML template from a ReMASTER simulation
var remasterCmd = &cobra.Command{
	Use:   "remaster",
	Short: "Fill a BEAST 2 XML template with sequences, dates and types from a ReMASTER simulation",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runRemaster(); err != nil {
			logrus.Fatalf("Template filling failed: %v", err)
		}
	},
}

func runRemaster() error {
	required := []struct{ flag, value string }{
		{"alignment", alignmentPath},
		{"tree", treePath},
		{"template", templatePath},
		{"output", xmlOutputPath},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("--%s is required", r.flag)
		}
	}

	data, err := remaster.Extract(alignmentPath, treePath)
	if err != nil {
		return err
	}
	if len(data.Sequences) != len(data.Times) {
		logrus.Warnf("%d sequences but %d dated leaves", len(data.Sequences), len(data.Times))
	}
	dates, err := remaster.TimesToDates(data.Times, startDate)
	if err != nil {
		return err
	}
	if err := remaster.FillTemplate(templatePath, xmlOutputPath, data.Sequences, dates, data.Types); err != nil {
		return err
	}
	logrus.Infof("Wrote %s with %d taxa", xmlOutputPath, len(data.Sequences))
	return nil
}

func init() {
	remasterCmd.Flags().StringVar(&alignmentPath, "alignment", "", "ReMASTER Nexus alignment file")
	remasterCmd.Flags().StringVar(&treePath, "tree", "", "ReMASTER Nexus trees file")
	remasterCmd.Flags().StringVar(&templatePath, "template", "", "BEAST 2 XML template")
	remasterCmd.Flags().StringVarP(&xmlOutputPath, "output", "o", "", "Filled XML output file")
	remasterCmd.Flags().StringVar(&startDate, "start-date", remaster.DefaultStartDate, "Date (YYYY/MM/DD) of simulation time zero")
}
