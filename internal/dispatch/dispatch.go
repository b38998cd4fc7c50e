package dispatch

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gridplane/gridrun/internal/dataset"
	"github.com/gridplane/gridrun/internal/model"
	"github.com/gridplane/gridrun/internal/solver"
)

// Engine is the bundled reference solver: a greedy merit-order dispatch
// heuristic over the dataset's demand series. It implements both the model
// builder and the solver engine contract, so a run can complete end to end
// without an external LP engine. Real engines plug into the same interfaces.
//
// Dataset conventions:
//   - process rows carry "commodity" (produced commodity), "cap-up"
//     (capacity), "var-cost" (cost per unit output) and optionally "supim"
//     (name of the intermittent supply commodity driving the unit).
//   - storage rows carry "commodity" and "cap-up-c" (energy capacity).
//   - the "demand" series table holds one series per (site, commodity);
//     the "supim" series table holds capacity factors in [0, 1].
type Engine struct{}

// New creates the dispatch engine
func New() *Engine {
	return &Engine{}
}

// Name returns the logical engine name
func (e *Engine) Name() string {
	return "dispatch"
}

// problem is the built model: the dataset snapshot plus the horizon
type problem struct {
	created time.Time
	horizon model.Horizon
	ds      *dataset.Dataset
}

func (p *problem) Created() time.Time     { return p.created }
func (p *problem) Horizon() model.Horizon { return p.horizon }

// Build constructs a dispatch problem from the dataset and horizon
func (e *Engine) Build(ctx context.Context, ds *dataset.Dataset, h model.Horizon) (model.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	pro, ok := ds.Relation("process")
	if !ok || pro.Len() == 0 {
		return nil, fmt.Errorf("dataset %s has no process relation to dispatch", ds.Name)
	}
	if _, ok := ds.SeriesTable("demand"); !ok {
		return nil, fmt.Errorf("dataset %s has no demand series", ds.Name)
	}
	return &problem{created: time.Now(), horizon: h, ds: ds}, nil
}

// unit is one dispatchable or intermittent process at a site
type unit struct {
	key     dataset.Key
	cap     float64
	varCost decimal.Decimal
	factor  []float64 // nil for dispatchable units
}

// Solve runs the merit-order dispatch. Status is optimal when demand is met
// at every timestep of every selected pair, infeasible otherwise; the
// series values stay populated either way so reporting can proceed
// best-effort.
func (e *Engine) Solve(ctx context.Context, m model.Model, opts solver.Options) (model.SolvedModel, error) {
	p, ok := m.(*problem)
	if !ok {
		return nil, fmt.Errorf("engine %s cannot solve model of type %T", e.Name(), m)
	}

	demand, _ := p.ds.SeriesTable("demand")
	supim, _ := p.ds.SeriesTable("supim")

	solved := &Solved{
		problem: p,
		status:  model.StatusOptimal,
		series:  make(map[model.SiteCommodity]model.TimeSeries),
	}

	for _, key := range demand.Keys() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dem, _ := demand.Get(key)
		sc := model.SiteCommodity{Site: key.Site, Commodity: key.Entity}

		units, err := e.unitsFor(p.ds, supim, key)
		if err != nil {
			return nil, err
		}
		storageCap, err := e.storageCapFor(p.ds, key)
		if err != nil {
			return nil, err
		}

		ts, cost, met := e.dispatch(p.horizon, dem, units, storageCap)
		solved.series[sc] = ts
		solved.tuples = append(solved.tuples, sc)
		solved.cost = solved.cost.Add(cost)
		if !met {
			solved.status = model.StatusInfeasible
		}
	}

	if logFile, ok := opts.Get("logfile"); ok && logFile != "" {
		if err := writeLog(logFile, solved); err != nil {
			return nil, err
		}
	}

	return solved, nil
}

// writeLog leaves a short solve log next to the other artifacts
func writeLog(path string, s *Solved) error {
	var b strings.Builder
	fmt.Fprintf(&b, "engine: dispatch\ncreated: %s\nstatus: %s\ntotal-cost: %s\n",
		s.Created().Format(time.RFC3339), s.Status(), s.TotalCost())
	for _, sc := range s.Tuples() {
		fmt.Fprintf(&b, "series: %s\n", sc)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write solver log %s: %w", path, err)
	}
	return nil
}

// unitsFor collects the processes producing the demanded commodity at the
// site, sorted by variable cost ascending.
func (e *Engine) unitsFor(ds *dataset.Dataset, supim *dataset.SeriesTable, demandKey dataset.Key) ([]unit, error) {
	pro, _ := ds.Relation("process")
	var units []unit

	for _, key := range pro.Keys() {
		if key.Site != demandKey.Site {
			continue
		}
		com, err := pro.Get(key, "commodity")
		if err != nil || com.Text != demandKey.Entity {
			continue
		}
		capCell, err := pro.Get(key, "cap-up")
		if err != nil {
			return nil, err
		}
		cap := capCell.Float()
		if cap <= 0 {
			continue
		}

		u := unit{key: key, cap: cap}
		if costCell, err := pro.Get(key, "var-cost"); err == nil {
			u.varCost = costCell.Num
		}
		if pro.HasColumn("supim") {
			supimCell, err := pro.Get(key, "supim")
			if err == nil && supimCell.IsText && supimCell.Text != "" && supim != nil {
				if factor, ok := supim.Get(dataset.Key{Site: key.Site, Entity: supimCell.Text}); ok {
					u.factor = factor
				}
			}
		}
		units = append(units, u)
	}

	sort.SliceStable(units, func(i, j int) bool {
		return units[i].varCost.LessThan(units[j].varCost)
	})
	return units, nil
}

// storageCapFor sums the energy capacity of storages holding the commodity
func (e *Engine) storageCapFor(ds *dataset.Dataset, demandKey dataset.Key) (float64, error) {
	sto, ok := ds.Relation("storage")
	if !ok {
		return 0, nil
	}
	total := 0.0
	for _, key := range sto.Keys() {
		if key.Site != demandKey.Site {
			continue
		}
		com, err := sto.Get(key, "commodity")
		if err != nil || com.Text != demandKey.Entity {
			continue
		}
		capCell, err := sto.Get(key, "cap-up-c")
		if err != nil {
			return 0, err
		}
		total += capCell.Float()
	}
	return total, nil
}

// dispatch serves one demand series step by step: intermittent output
// first (surplus charges storage), then dispatchable units in merit order,
// then storage discharge. Returns the series, the variable cost and whether
// demand was met at every step.
func (e *Engine) dispatch(h model.Horizon, dem []float64, units []unit, storageCap float64) (model.TimeSeries, decimal.Decimal, bool) {
	steps := h.Timesteps()
	ts := model.TimeSeries{
		Steps:   steps,
		Demand:  make([]float64, len(steps)),
		Supply:  make([]float64, len(steps)),
		Storage: make([]float64, len(steps)),
	}
	cost := decimal.Zero
	dt := decimal.NewFromFloat(h.DT)
	soc := 0.0
	met := true

	for i, t := range steps {
		need := 0.0
		if t < len(dem) {
			need = dem[t]
		}
		ts.Demand[i] = need
		served := 0.0

		// Intermittent units run regardless; surplus charges storage, the
		// rest is spilled.
		for _, u := range units {
			if u.factor == nil {
				continue
			}
			out := 0.0
			if t < len(u.factor) {
				out = u.cap * u.factor[t]
			}
			used := min(out, need-served)
			served += used
			surplus := out - used
			charge := min(surplus, storageCap-soc)
			soc += charge
			cost = cost.Add(u.varCost.Mul(decimal.NewFromFloat(used + charge)).Mul(dt))
		}

		// Dispatchable units in merit order
		for _, u := range units {
			if u.factor != nil || served >= need {
				continue
			}
			used := min(u.cap, need-served)
			served += used
			cost = cost.Add(u.varCost.Mul(decimal.NewFromFloat(used)).Mul(dt))
		}

		// Storage discharge covers what generation could not
		if served < need {
			discharge := min(soc, need-served)
			soc -= discharge
			served += discharge
		}

		if need-served > 1e-9 {
			met = false
		}
		ts.Supply[i] = served
		ts.Storage[i] = soc
	}

	return ts, cost, met
}

// Solved is the dispatch engine's solved model
type Solved struct {
	*problem
	status model.SolveStatus
	series map[model.SiteCommodity]model.TimeSeries
	tuples []model.SiteCommodity
	cost   decimal.Decimal
}

func (s *Solved) Status() model.SolveStatus { return s.status }

// HasValues always holds for the dispatch engine: even infeasible runs
// carry the partial supply series.
func (s *Solved) HasValues() bool { return true }

func (s *Solved) Series(sc model.SiteCommodity) (model.TimeSeries, bool) {
	ts, ok := s.series[sc]
	return ts, ok
}

func (s *Solved) Tuples() []model.SiteCommodity {
	return append([]model.SiteCommodity(nil), s.tuples...)
}

func (s *Solved) TotalCost() decimal.Decimal { return s.cost }
