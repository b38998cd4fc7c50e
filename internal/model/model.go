package model

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gridplane/gridrun/internal/dataset"
)

// Horizon is the contiguous range of simulated timesteps for one run.
// Timesteps run from Offset to Offset+Length inclusive; DT is the length of
// one step in hours.
type Horizon struct {
	Offset int
	Length int
	DT     float64
}

// Validate rejects unusable horizons
func (h Horizon) Validate() error {
	if h.Offset < 0 {
		return fmt.Errorf("horizon offset must be >= 0, got %d", h.Offset)
	}
	if h.Length <= 0 {
		return fmt.Errorf("horizon length must be > 0, got %d", h.Length)
	}
	if h.DT <= 0 {
		return fmt.Errorf("horizon dt must be > 0, got %v", h.DT)
	}
	return nil
}

// First returns the first simulated timestep
func (h Horizon) First() int {
	return h.Offset
}

// Last returns the last simulated timestep
func (h Horizon) Last() int {
	return h.Offset + h.Length
}

// Steps returns the number of simulated timesteps
func (h Horizon) Steps() int {
	return h.Length + 1
}

// Timesteps returns the simulated timesteps in order
func (h Horizon) Timesteps() []int {
	steps := make([]int, 0, h.Steps())
	for t := h.First(); t <= h.Last(); t++ {
		steps = append(steps, t)
	}
	return steps
}

// SiteCommodity selects one (site, commodity) pair for reporting or plotting
type SiteCommodity struct {
	Site      string
	Commodity string
}

func (sc SiteCommodity) String() string {
	return fmt.Sprintf("%s/%s", sc.Site, sc.Commodity)
}

// TimeWindow is a named sub-range of the horizon used only for report/plot
// scoping. Bounds are inclusive timesteps, already clamped to the horizon.
type TimeWindow struct {
	Name  string
	Start int
	End   int
}

// Len returns the number of timesteps the window covers
func (w TimeWindow) Len() int {
	return w.End - w.Start + 1
}

// SolveStatus is the terminal state reported by a solver engine
type SolveStatus string

const (
	// StatusOptimal indicates the engine proved an optimal solution
	StatusOptimal SolveStatus = "optimal"
	// StatusInfeasible indicates the model admits no feasible solution
	StatusInfeasible SolveStatus = "infeasible"
	// StatusUnbounded indicates the objective is unbounded
	StatusUnbounded SolveStatus = "unbounded"
	// StatusTimeLimit indicates the engine hit its wall-clock limit
	StatusTimeLimit SolveStatus = "time-limit"
	// StatusError indicates the engine terminated abnormally
	StatusError SolveStatus = "error"
)

// Optimal reports whether the status carries a proven optimum
func (s SolveStatus) Optimal() bool {
	return s == StatusOptimal
}

// TimeSeries carries the decision-variable values for one (site, commodity)
// pair over the solved horizon. All slices are indexed by Steps.
type TimeSeries struct {
	Steps   []int
	Demand  []float64
	Supply  []float64
	Storage []float64
}

// Slice returns the sub-series covered by the window
func (ts TimeSeries) Slice(w TimeWindow) TimeSeries {
	lo, hi := -1, -1
	for i, t := range ts.Steps {
		if t == w.Start {
			lo = i
		}
		if t == w.End {
			hi = i
		}
	}
	if lo < 0 || hi < 0 || hi < lo {
		return TimeSeries{}
	}
	return TimeSeries{
		Steps:   ts.Steps[lo : hi+1],
		Demand:  ts.Demand[lo : hi+1],
		Supply:  ts.Supply[lo : hi+1],
		Storage: ts.Storage[lo : hi+1],
	}
}

// Model is the abstract optimization problem produced by a Builder and
// consumed by a solver engine. Engines type-assert to their own concrete
// problem representation.
type Model interface {
	Created() time.Time
	Horizon() Horizon
}

// SolvedModel is the artifact a solve leaves behind: a status plus the
// accessor surface reports and plots read decision values through. Some
// engines leave no usable values on infeasibility; HasValues distinguishes
// that from a best-effort introspectable solution.
type SolvedModel interface {
	Model
	Status() SolveStatus
	HasValues() bool
	Series(sc SiteCommodity) (TimeSeries, bool)
	Tuples() []SiteCommodity
	TotalCost() decimal.Decimal
}

// Builder constructs a solvable model from a dataset and a time horizon
type Builder interface {
	Build(ctx context.Context, ds *dataset.Dataset, h Horizon) (Model, error)
}
