package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/gridplane/gridrun/internal/model"
)

// Reporter writes the tabular report for one solved scenario, restricted to
// the caller-selected (site, commodity) pairs. The spreadsheet format is an
// implementation detail of the Reporter; the orchestrator only owns the
// artifact path.
type Reporter interface {
	// Ext is the artifact extension the reporter produces
	Ext() string
	Write(path string, m model.SolvedModel, tuples []model.SiteCommodity, siteNames map[string]string) error
}

// CSVReporter is the bundled Reporter: one CSV with per-timestep demand,
// supply and storage level for each selected pair, plus the solve status
// and total cost in a header block.
type CSVReporter struct{}

// NewCSVReporter creates the bundled CSV reporter
func NewCSVReporter() *CSVReporter {
	return &CSVReporter{}
}

// Ext returns the report artifact extension
func (r *CSVReporter) Ext() string {
	return "csv"
}

func (r *CSVReporter) Write(path string, m model.SolvedModel, tuples []model.SiteCommodity, siteNames map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := [][]string{
		{"status", string(m.Status())},
		{"total-cost", m.TotalCost().String()},
		{},
		{"site", "commodity", "timestep", "demand", "supply", "storage"},
	}
	for _, rec := range header {
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	for _, sc := range tuples {
		ts, ok := m.Series(sc)
		if !ok {
			continue
		}
		site := sc.Site
		if display, ok := siteNames[sc.Site]; ok {
			site = display
		}
		for i, t := range ts.Steps {
			rec := []string{
				site,
				sc.Commodity,
				strconv.Itoa(t),
				formatFloat(ts.Demand[i]),
				formatFloat(ts.Supply[i]),
				formatFloat(ts.Storage[i]),
			}
			if err := w.Write(rec); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
		}
	}

	w.Flush()
	return w.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
