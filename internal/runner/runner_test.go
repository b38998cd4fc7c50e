package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridplane/gridrun/internal/config"
	"github.com/gridplane/gridrun/internal/dataset"
	"github.com/gridplane/gridrun/internal/dispatch"
	"github.com/gridplane/gridrun/internal/model"
	"github.com/gridplane/gridrun/internal/plot"
	"github.com/gridplane/gridrun/internal/report"
	"github.com/gridplane/gridrun/internal/solver"
)

// villageData builds a minimal two-relation dataset whose demand the
// dispatch engine can always serve.
func villageData(t *testing.T, steps int) *dataset.Dataset {
	t.Helper()

	ds := dataset.New("Village")

	pro := dataset.NewRelation("process", []string{"commodity", "cap-up", "var-cost"})
	require.NoError(t, pro.AddRow(dataset.Key{Site: "Village", Entity: "Diesel Generator"}, map[string]dataset.Cell{
		"commodity": dataset.Text("Elec"),
		"cap-up":    dataset.NumFloat(20),
		"var-cost":  dataset.NumFloat(0.1),
	}))
	require.NoError(t, ds.AddRelation(pro))

	sto := dataset.NewRelation("storage", []string{"commodity", "cap-up-c"})
	require.NoError(t, sto.AddRow(dataset.Key{Site: "Village", Entity: "Battery"}, map[string]dataset.Cell{
		"commodity": dataset.Text("Elec"),
		"cap-up-c":  dataset.NumFloat(50),
	}))
	require.NoError(t, ds.AddRelation(sto))

	dem := dataset.NewSeriesTable("demand")
	values := make([]float64, steps)
	for i := range values {
		values[i] = 10
	}
	require.NoError(t, dem.AddSeries(dataset.Key{Site: "Village", Entity: "Elec"}, values))
	require.NoError(t, ds.AddSeriesTable(dem))

	return ds
}

func villageConfig(t *testing.T) *config.RunConfig {
	t.Helper()

	input := filepath.Join(t.TempDir(), "village.yaml")
	require.NoError(t, os.WriteFile(input, []byte("kind: Dataset\n"), 0644))

	cfg := &config.RunConfig{
		Input:      input,
		ResultName: "village",
		Horizon:    config.HorizonSpec{Offset: 0, Length: 100, DT: 1},
		Solver:     config.SolverSpec{Engine: "dispatch"},
		Scenarios:  []config.ScenarioSpec{{Name: "base"}},
		Report: config.SelectionSpec{
			Tuples: []config.TupleSpec{{Site: "Village", Commodity: "Elec"}},
		},
		Plot: config.PlotSpec{
			Tuples:  []config.TupleSpec{{Site: "Village", Commodity: "Elec"}},
			Periods: map[string]config.PeriodSpec{"all": {Start: 0, End: 100}},
		},
	}
	require.NoError(t, cfg.Normalize())
	return cfg
}

func newTestRunner(t *testing.T) (*Runner, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	engine := dispatch.New()
	var out, errw bytes.Buffer
	r := New(&out, &errw, engine, solver.NewRegistry(engine),
		report.NewCSVReporter(), plot.NewSVGPlotter())
	r.LoadDataset = func(string) (*dataset.Dataset, error) {
		return villageData(t, 101), nil
	}
	return r, &out, &errw
}

func TestRunBatch_BaseScenarioCompletesPipeline(t *testing.T) {
	r, out, errw := newTestRunner(t)
	cfg := villageConfig(t)
	resultRoot := t.TempDir()

	batch, err := r.RunBatch(context.Background(), cfg, resultRoot)
	require.NoError(t, err)
	require.Len(t, batch.Outcomes, 1)

	o := batch.Outcomes[0]
	assert.False(t, o.Failed(), "error: %s", o.Error)
	assert.Equal(t, string(StateDone), o.Step)
	assert.Equal(t, model.StatusOptimal, o.Status)
	assert.False(t, o.Incomplete)
	assert.Empty(t, o.Windows)

	// exactly one report plus one plot per window, named from the scenario
	require.Len(t, o.Artifacts, 2)
	assert.Equal(t, filepath.Join(batch.ResultDir, "base.csv"), o.Artifacts[0])
	assert.Equal(t, filepath.Join(batch.ResultDir, "base-Elec-Village-all.svg"), o.Artifacts[1])
	for _, a := range o.Artifacts {
		_, err := os.Stat(a)
		assert.NoError(t, err, "artifact %s missing", a)
	}

	// solver log and provenance live next to the artifacts
	_, err = os.Stat(filepath.Join(batch.ResultDir, "base.log"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(batch.ResultDir, "run-config.yaml"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(batch.ResultDir, "village.yaml"))
	assert.NoError(t, err)

	assert.Contains(t, out.String(), "→ Scenario base")
	assert.Empty(t, errw.String())
}

func TestRunBatch_ScenarioFailureDoesNotAbortSiblings(t *testing.T) {
	r, _, errw := newTestRunner(t)
	cfg := villageConfig(t)
	cfg.Scenarios = []config.ScenarioSpec{
		{Name: "broken", Set: []config.EditSpec{{
			Relation: "process", Site: "Village", Entity: "Wind Turbine",
			Column: "cap-up", Value: 0,
		}}},
		{Name: "base"},
	}

	batch, err := r.RunBatch(context.Background(), cfg, t.TempDir())
	require.NoError(t, err, "one scenario's failure must not fail the batch")
	require.Len(t, batch.Outcomes, 2)

	broken := batch.Outcomes[0]
	assert.True(t, broken.Failed())
	assert.Contains(t, broken.Error, "scenario broken failed at scenario-applied")
	assert.Contains(t, broken.Error, "Wind Turbine")
	assert.Empty(t, broken.Artifacts)

	base := batch.Outcomes[1]
	assert.False(t, base.Failed())
	assert.Equal(t, string(StateDone), base.Step)

	assert.Equal(t, 1, batch.Failures())
	assert.Contains(t, errw.String(), "✗")
}

func TestRunBatch_ValidationFailureIsScenarioFatal(t *testing.T) {
	r, _, _ := newTestRunner(t)
	// series too short for the horizon
	r.LoadDataset = func(string) (*dataset.Dataset, error) {
		return villageData(t, 24), nil
	}
	cfg := villageConfig(t)

	batch, err := r.RunBatch(context.Background(), cfg, t.TempDir())
	require.NoError(t, err)
	require.Len(t, batch.Outcomes, 1)

	o := batch.Outcomes[0]
	assert.True(t, o.Failed())
	assert.Contains(t, o.Error, "failed at validated")
}

func TestRunBatch_DatasetLoadFailureIsFatal(t *testing.T) {
	r, _, _ := newTestRunner(t)
	r.LoadDataset = func(path string) (*dataset.Dataset, error) {
		return nil, &dataset.LoadError{Path: path, Err: os.ErrNotExist}
	}

	batch, err := r.RunBatch(context.Background(), villageConfig(t), t.TempDir())
	require.Error(t, err)
	assert.Nil(t, batch)
}

func TestRunBatch_InvalidWindowRecordedSiblingsRender(t *testing.T) {
	r, _, _ := newTestRunner(t)
	cfg := villageConfig(t)
	cfg.Plot.Periods = map[string]config.PeriodSpec{
		"all":    {Start: 0, End: 100},
		"beyond": {Start: 500, End: 600},
	}

	batch, err := r.RunBatch(context.Background(), cfg, t.TempDir())
	require.NoError(t, err)

	o := batch.Outcomes[0]
	assert.False(t, o.Failed())
	require.Len(t, o.Windows, 1)
	assert.Contains(t, o.Windows[0], `window "beyond"`)

	// the valid window still produced its figure
	assert.Contains(t, o.Artifacts, filepath.Join(batch.ResultDir, "base-Elec-Village-all.svg"))
}

func TestRunBatch_MissingPlotSeriesSkippedWithNote(t *testing.T) {
	r, _, _ := newTestRunner(t)
	cfg := villageConfig(t)
	cfg.Plot.Tuples = append(cfg.Plot.Tuples, config.TupleSpec{Site: "Ghost Town", Commodity: "Elec"})

	batch, err := r.RunBatch(context.Background(), cfg, t.TempDir())
	require.NoError(t, err)

	o := batch.Outcomes[0]
	assert.False(t, o.Failed())
	require.Len(t, o.Windows, 1)
	assert.Contains(t, o.Windows[0], "no series in solution")
	require.Len(t, o.Artifacts, 2)
}

func TestRunBatch_UnknownEngineFallsBackWithWarning(t *testing.T) {
	r, _, errw := newTestRunner(t)
	cfg := villageConfig(t)
	cfg.Solver.Engine = "gurobi"

	batch, err := r.RunBatch(context.Background(), cfg, t.TempDir())
	require.NoError(t, err)

	o := batch.Outcomes[0]
	assert.False(t, o.Failed())
	assert.Equal(t, model.StatusOptimal, o.Status)
	assert.Contains(t, errw.String(), `solver "gurobi" not available`)
}

func TestRunBatch_CancelledContextAbortsBatch(t *testing.T) {
	r, _, _ := newTestRunner(t)
	cfg := villageConfig(t)
	cfg.Scenarios = []config.ScenarioSpec{{Name: "base"}, {Name: "second"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := r.RunBatch(ctx, cfg, t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, batch)
	assert.Less(t, len(batch.Outcomes), 2, "remaining scenarios must not run")
}

// noValuesEngine solves to infeasible without an introspectable solution
type noValuesEngine struct{}

func (e *noValuesEngine) Name() string { return "novalues" }

func (e *noValuesEngine) Solve(ctx context.Context, m model.Model, opts solver.Options) (model.SolvedModel, error) {
	return &noValuesSolution{Model: m}, nil
}

type noValuesSolution struct {
	model.Model
}

func (s *noValuesSolution) Status() model.SolveStatus     { return model.StatusInfeasible }
func (s *noValuesSolution) HasValues() bool               { return false }
func (s *noValuesSolution) Tuples() []model.SiteCommodity { return nil }
func (s *noValuesSolution) TotalCost() decimal.Decimal    { return decimal.Zero }

func (s *noValuesSolution) Series(model.SiteCommodity) (model.TimeSeries, bool) {
	return model.TimeSeries{}, false
}

func TestRunBatch_NoValuesSolutionSkipsReporting(t *testing.T) {
	engine := &noValuesEngine{}
	var out, errw bytes.Buffer
	r := New(&out, &errw, dispatch.New(), solver.NewRegistry(engine),
		report.NewCSVReporter(), plot.NewSVGPlotter())
	r.LoadDataset = func(string) (*dataset.Dataset, error) {
		return villageData(t, 101), nil
	}

	cfg := villageConfig(t)
	cfg.Solver.Engine = "novalues"

	batch, err := r.RunBatch(context.Background(), cfg, t.TempDir())
	require.NoError(t, err)

	o := batch.Outcomes[0]
	assert.False(t, o.Failed(), "an uninspectable solution is recorded, not raised")
	assert.Equal(t, string(StateDone), o.Step)
	assert.Equal(t, model.StatusInfeasible, o.Status)
	assert.True(t, o.Incomplete)
	assert.Empty(t, o.Artifacts)

	// the report never happened
	_, statErr := os.Stat(filepath.Join(batch.ResultDir, "base.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunBatch_DryRunSkipsSolver(t *testing.T) {
	r, _, _ := newTestRunner(t)
	r.DryRun = true

	batch, err := r.RunBatch(context.Background(), villageConfig(t), t.TempDir())
	require.NoError(t, err)

	o := batch.Outcomes[0]
	assert.False(t, o.Failed())
	assert.Equal(t, string(StateDone), o.Step)
	assert.True(t, o.Incomplete)
	assert.Empty(t, o.Status)
	assert.Empty(t, o.Artifacts)

	// no solver log: the engine was never invoked
	_, statErr := os.Stat(filepath.Join(batch.ResultDir, "base.log"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunBatch_DeterministicNow(t *testing.T) {
	r, _, _ := newTestRunner(t)
	fixed := time.Date(2026, 8, 24, 14, 3, 0, 0, time.UTC)
	r.Now = func() time.Time { return fixed }

	batch, err := r.RunBatch(context.Background(), villageConfig(t), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, fixed, batch.Started)
	assert.Equal(t, "village-20260824T1403", filepath.Base(batch.ResultDir))
}
