package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gridplane/gridrun/internal/model"
	"github.com/gridplane/gridrun/internal/schema"
)

// RunConfig is the typed run configuration: which input to load, which
// scenarios to execute against it, how to configure the solver, and which
// (site, commodity) pairs and time windows to report and plot. It replaces
// ad hoc parameter lists with enumerated, named fields validated at load.
type RunConfig struct {
	APIVersion string         `yaml:"apiVersion" json:"apiVersion"`
	Kind       string         `yaml:"kind" json:"kind"`
	Metadata   Metadata       `yaml:"metadata" json:"metadata"`
	Input      string         `yaml:"input" json:"input"`
	ResultName string         `yaml:"resultName" json:"resultName"`
	Horizon    HorizonSpec    `yaml:"horizon" json:"horizon"`
	Solver     SolverSpec     `yaml:"solver" json:"solver"`
	Scenarios  []ScenarioSpec `yaml:"scenarios" json:"scenarios"`
	Report     SelectionSpec  `yaml:"report" json:"report"`
	Plot       PlotSpec       `yaml:"plot" json:"plot"`
}

// Metadata holds standard object metadata
type Metadata struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// HorizonSpec selects the simulated timestep range
type HorizonSpec struct {
	Offset int     `yaml:"offset" json:"offset"`
	Length int     `yaml:"length" json:"length"`
	DT     float64 `yaml:"dt" json:"dt"`
}

// SolverSpec selects the solver engine and its optional limits
type SolverSpec struct {
	Engine           string  `yaml:"engine" json:"engine"`
	TimeLimitSeconds int     `yaml:"timeLimitSeconds" json:"timeLimitSeconds"`
	MIPGap           float64 `yaml:"mipGap" json:"mipGap"`
}

// ScenarioSpec declares one scenario: a name and the cell overwrites it
// applies to the baseline dataset. An empty set is the base scenario.
type ScenarioSpec struct {
	Name string     `yaml:"name" json:"name"`
	Set  []EditSpec `yaml:"set" json:"set"`
}

// EditSpec is one targeted cell overwrite
type EditSpec struct {
	Relation string  `yaml:"relation" json:"relation"`
	Site     string  `yaml:"site" json:"site"`
	Entity   string  `yaml:"entity" json:"entity"`
	Column   string  `yaml:"column" json:"column"`
	Value    float64 `yaml:"value" json:"value"`
}

// TupleSpec selects one (site, commodity) pair
type TupleSpec struct {
	Site      string `yaml:"site" json:"site"`
	Commodity string `yaml:"commodity" json:"commodity"`
}

// SelectionSpec selects pairs for the tabular report, with optional site
// display-name overrides.
type SelectionSpec struct {
	Tuples    []TupleSpec       `yaml:"tuples" json:"tuples"`
	SiteNames map[string]string `yaml:"siteNames" json:"siteNames"`
}

// PeriodSpec is a named timestep range for plotting, inclusive bounds
type PeriodSpec struct {
	Start int `yaml:"start" json:"start"`
	End   int `yaml:"end" json:"end"`
}

// PlotSpec selects pairs, named windows and color overrides for plotting
type PlotSpec struct {
	Tuples    []TupleSpec           `yaml:"tuples" json:"tuples"`
	SiteNames map[string]string     `yaml:"siteNames" json:"siteNames"`
	Periods   map[string]PeriodSpec `yaml:"periods" json:"periods"`
	Colors    map[string][3]uint8   `yaml:"colors" json:"colors"`
}

// Load reads a RunConfig YAML file, validates it against the embedded
// schema and normalizes defaults.
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run config: %w", err)
	}

	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse run config YAML: %w", err)
	}

	validator, err := schema.NewValidator()
	if err != nil {
		return nil, err
	}

	jsonDoc, err := schema.JSONValue(raw)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateRunConfig(jsonDoc); err != nil {
		return nil, fmt.Errorf("run config failed schema validation: %w", err)
	}

	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode run config: %w", err)
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Normalize applies defaults and rejects structurally unusable configs.
// Schema validation catches shape errors; this pass catches the semantic
// ones a schema cannot express.
func (c *RunConfig) Normalize() error {
	if c.Input == "" {
		return fmt.Errorf("run config must name an input file")
	}
	if c.ResultName == "" {
		base := filepath.Base(c.Input)
		c.ResultName = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if c.Metadata.Name == "" {
		c.Metadata.Name = c.ResultName
	}

	if c.Horizon.DT == 0 {
		c.Horizon.DT = 1
	}
	if err := c.ModelHorizon().Validate(); err != nil {
		return fmt.Errorf("invalid horizon: %w", err)
	}

	if c.Solver.Engine == "" {
		c.Solver.Engine = "gurobi"
	}
	if c.Solver.TimeLimitSeconds < 0 {
		return fmt.Errorf("solver time limit must be >= 0, got %d", c.Solver.TimeLimitSeconds)
	}
	if c.Solver.MIPGap < 0 {
		return fmt.Errorf("solver mip gap must be >= 0, got %v", c.Solver.MIPGap)
	}

	if len(c.Scenarios) == 0 {
		return fmt.Errorf("run config must select at least one scenario")
	}
	seen := make(map[string]bool, len(c.Scenarios))
	for _, sc := range c.Scenarios {
		if sc.Name == "" {
			return fmt.Errorf("scenario must have a name")
		}
		if seen[sc.Name] {
			return fmt.Errorf("duplicate scenario name %q", sc.Name)
		}
		seen[sc.Name] = true
	}

	for name, p := range c.Plot.Periods {
		if p.End < p.Start {
			return fmt.Errorf("plot period %q: end %d before start %d", name, p.End, p.Start)
		}
	}

	if c.Report.SiteNames == nil {
		c.Report.SiteNames = map[string]string{}
	}
	if c.Plot.SiteNames == nil {
		c.Plot.SiteNames = map[string]string{}
	}

	return nil
}

// ModelHorizon returns the horizon as the shared model type
func (c *RunConfig) ModelHorizon() model.Horizon {
	return model.Horizon{
		Offset: c.Horizon.Offset,
		Length: c.Horizon.Length,
		DT:     c.Horizon.DT,
	}
}

// ReportTuples returns the report selection as shared model pairs
func (c *RunConfig) ReportTuples() []model.SiteCommodity {
	return toTuples(c.Report.Tuples)
}

// PlotTuples returns the plot selection as shared model pairs
func (c *RunConfig) PlotTuples() []model.SiteCommodity {
	return toTuples(c.Plot.Tuples)
}

func toTuples(specs []TupleSpec) []model.SiteCommodity {
	tuples := make([]model.SiteCommodity, 0, len(specs))
	for _, t := range specs {
		tuples = append(tuples, model.SiteCommodity{Site: t.Site, Commodity: t.Commodity})
	}
	return tuples
}
