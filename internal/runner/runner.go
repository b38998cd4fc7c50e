package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gridplane/gridrun/internal/config"
	"github.com/gridplane/gridrun/internal/dataset"
	"github.com/gridplane/gridrun/internal/model"
	"github.com/gridplane/gridrun/internal/palette"
	"github.com/gridplane/gridrun/internal/plot"
	"github.com/gridplane/gridrun/internal/report"
	"github.com/gridplane/gridrun/internal/resultdir"
	"github.com/gridplane/gridrun/internal/scenario"
	"github.com/gridplane/gridrun/internal/solver"
)

// Runner sequences the scenario-run pipeline: apply scenario, validate,
// build model, configure and invoke the solver, persist report and plots.
// The model builder, solver engines, reporter and plotter are injected, so
// new scenarios and solvers require no change here.
type Runner struct {
	Out  io.Writer
	Errw io.Writer

	Builder  model.Builder
	Engines  *solver.Registry
	Reporter report.Reporter
	Plotter  plot.Plotter

	// DryRun walks the pipeline without invoking the solver; scenarios end
	// incomplete with no report or plot artifacts.
	DryRun bool

	// LoadDataset reads the baseline dataset; defaults to dataset.Load
	LoadDataset func(path string) (*dataset.Dataset, error)
	// Now supplies timestamps; defaults to time.Now
	Now func() time.Time
}

// New creates a runner with the given collaborators
func New(out, errw io.Writer, builder model.Builder, engines *solver.Registry, reporter report.Reporter, plotter plot.Plotter) *Runner {
	return &Runner{
		Out:         out,
		Errw:        errw,
		Builder:     builder,
		Engines:     engines,
		Reporter:    reporter,
		Plotter:     plotter,
		LoadDataset: dataset.Load,
		Now:         time.Now,
	}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// RunContext bundles everything one scenario run needs. It is created once
// per batch and read-only for the duration of the run.
type RunContext struct {
	RunID     string
	Config    *config.RunConfig
	Horizon   model.Horizon
	Baseline  *dataset.Dataset
	ResultDir string
	Palette   palette.Palette
}

// RunBatch executes the configured scenario list in order. The result
// directory is prepared once and provenance archived before the first
// scenario. One scenario's failure never aborts its siblings: every
// scenario contributes an outcome and the batch runs to completion, unless
// the context is cancelled or the batch cannot start at all (dataset load,
// result directory).
func (r *Runner) RunBatch(ctx context.Context, cfg *config.RunConfig, resultRoot string) (*model.Batch, error) {
	started := r.now()

	fmt.Fprintln(r.Out, "□ Loading dataset...")
	baseline, err := r.LoadDataset(cfg.Input)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(r.Out, "□ Preparing result directory...")
	resultDir, err := resultdir.Prepare(resultRoot, cfg.ResultName, started)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	if err := resultdir.Archive(resultDir, cfg.Input, cfg, runID, started); err != nil {
		return nil, err
	}

	overlay := make(map[string]palette.RGB, len(cfg.Plot.Colors))
	for name, c := range cfg.Plot.Colors {
		overlay[name] = palette.RGB{R: c[0], G: c[1], B: c[2]}
	}

	rc := RunContext{
		RunID:     runID,
		Config:    cfg,
		Horizon:   cfg.ModelHorizon(),
		Baseline:  baseline,
		ResultDir: resultDir,
		Palette:   palette.Default().With(overlay),
	}

	batch := &model.Batch{
		RunID:     runID,
		Config:    cfg.Metadata.Name,
		ResultDir: resultDir,
		Started:   started,
	}

	for _, sc := range scenario.FromRunConfig(cfg.Scenarios) {
		fmt.Fprintf(r.Out, "→ Scenario %s\n", sc.Name)
		outcome, _, err := r.RunScenario(ctx, rc, sc)
		batch.Outcomes = append(batch.Outcomes, outcome)
		if err != nil {
			fmt.Fprintf(r.Errw, "✗ %v\n", err)
		}
		if ctx.Err() != nil {
			return batch, ctx.Err()
		}
	}

	return batch, nil
}

// RunScenario drives one scenario through the pipeline states and returns
// the solved model alongside the outcome for further inspection. Fatal
// errors abort the remaining steps for this scenario only and come back
// wrapped in a *StepError; a non-optimal solve status is recorded, not
// raised, and reporting/plotting proceed best-effort when the solution is
// introspectable.
func (r *Runner) RunScenario(ctx context.Context, rc RunContext, sc scenario.Scenario) (outcome *model.Outcome, solved model.SolvedModel, err error) {
	start := r.now()
	outcome = &model.Outcome{
		RunID:    rc.RunID,
		Scenario: sc.Name,
		Step:     string(StateInit),
	}
	defer func() {
		outcome.Duration = r.now().Sub(start)
	}()

	fail := func(state State, cause error) (*model.Outcome, model.SolvedModel, error) {
		stepErr := &StepError{Scenario: sc.Name, State: state, Err: cause}
		outcome.Error = stepErr.Error()
		return outcome, nil, stepErr
	}

	// Init → Loaded: the baseline was read once for the batch; every
	// scenario starts from its own copy of it.
	outcome.Step = string(StateLoaded)

	ds, err := sc.Apply(rc.Baseline)
	if err != nil {
		return fail(StateScenarioApplied, err)
	}
	outcome.Step = string(StateScenarioApplied)

	if err := ds.Validate(rc.Horizon.Last() + 1); err != nil {
		return fail(StateValidated, err)
	}
	outcome.Step = string(StateValidated)

	prob, err := r.Builder.Build(ctx, ds, rc.Horizon)
	if err != nil {
		return fail(StateModelBuilt, &BuildError{Scenario: sc.Name, Err: err})
	}
	outcome.Step = string(StateModelBuilt)

	solved, err = r.solve(ctx, rc, sc, prob)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// a hit wall-clock limit is a non-optimal status, not a crash
			outcome.Status = model.StatusTimeLimit
			outcome.Incomplete = true
			outcome.Step = string(StateDone)
			return outcome, nil, nil
		}
		return fail(StateSolved, err)
	}
	outcome.Status = solved.Status()
	outcome.Step = string(StateSolved)

	if !solved.HasValues() {
		// nothing introspectable to report or plot; record and move on
		outcome.Incomplete = true
		outcome.Step = string(StateDone)
		return outcome, solved, nil
	}

	reportPath := filepath.Join(rc.ResultDir, fmt.Sprintf("%s.%s", sc.Name, r.Reporter.Ext()))
	if err := r.Reporter.Write(reportPath, solved, rc.Config.ReportTuples(), rc.Config.Report.SiteNames); err != nil {
		return fail(StateReported, err)
	}
	outcome.Artifacts = append(outcome.Artifacts, reportPath)
	outcome.Step = string(StateReported)

	if err := r.renderPlots(rc, sc, solved, outcome); err != nil {
		return fail(StatePlotted, err)
	}
	outcome.Step = string(StatePlotted)

	outcome.Step = string(StateDone)
	return outcome, solved, nil
}

// solve configures the engine and invokes it with the per-scenario log file
func (r *Runner) solve(ctx context.Context, rc RunContext, sc scenario.Scenario, prob model.Model) (model.SolvedModel, error) {
	if r.DryRun {
		return &dryRunSolution{Model: prob}, nil
	}

	logPath := filepath.Join(rc.ResultDir, sc.Name+".log")
	// the log file must be creatable before the engine starts
	f, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create solver log %s: %w", logPath, err)
	}
	f.Close()

	engine := r.Engines.Resolve(rc.Config.Solver.Engine, r.Errw)
	if engine == nil {
		return nil, fmt.Errorf("no solver engine available for %q", rc.Config.Solver.Engine)
	}

	timeLimit := time.Duration(rc.Config.Solver.TimeLimitSeconds) * time.Second
	opts := solver.Configure(solver.Config{
		Engine:    engine.Name(),
		LogFile:   logPath,
		TimeLimit: timeLimit,
		MIPGap:    rc.Config.Solver.MIPGap,
	}, r.Errw)

	if timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeLimit)
		defer cancel()
	}

	return engine.Solve(ctx, prob, opts)
}

// dryRunSolution stands in for the engine on dry runs: no status, no
// values, so reporting and plotting are skipped and the outcome is marked
// incomplete.
type dryRunSolution struct {
	model.Model
}

func (s *dryRunSolution) Status() model.SolveStatus     { return "" }
func (s *dryRunSolution) HasValues() bool               { return false }
func (s *dryRunSolution) Tuples() []model.SiteCommodity { return nil }
func (s *dryRunSolution) TotalCost() decimal.Decimal    { return decimal.Zero }

func (s *dryRunSolution) Series(model.SiteCommodity) (model.TimeSeries, bool) {
	return model.TimeSeries{}, false
}

// renderPlots emits one figure per valid window × configured pair. Windows
// outside the horizon are recorded on the outcome and skipped; sibling
// windows still render.
func (r *Runner) renderPlots(rc RunContext, sc scenario.Scenario, solved model.SolvedModel, outcome *model.Outcome) error {
	windows, windowErrs := report.SelectWindows(rc.Config.Plot.Periods, rc.Horizon)
	for _, we := range windowErrs {
		outcome.Windows = append(outcome.Windows, we.Error())
	}

	for _, w := range windows {
		for _, tuple := range rc.Config.PlotTuples() {
			if _, ok := solved.Series(tuple); !ok {
				outcome.Windows = append(outcome.Windows,
					fmt.Sprintf("plot %s (%s): no series in solution", tuple, w.Name))
				continue
			}
			name := fmt.Sprintf("%s-%s-%s-%s.%s",
				sc.Name, tuple.Commodity, tuple.Site, w.Name, r.Plotter.Ext())
			path := filepath.Join(rc.ResultDir, name)
			displaySite := tuple.Site
			if display, ok := rc.Config.Plot.SiteNames[tuple.Site]; ok && display != "" {
				displaySite = display
			}
			title := fmt.Sprintf("%s: %s at %s (%s)", sc.Title(), tuple.Commodity, displaySite, w.Name)
			if err := r.Plotter.Render(path, solved, tuple, w, title, rc.Palette); err != nil {
				return err
			}
			outcome.Artifacts = append(outcome.Artifacts, path)
		}
	}

	return nil
}
