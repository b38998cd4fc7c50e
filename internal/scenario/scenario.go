package scenario

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gridplane/gridrun/internal/config"
	"github.com/gridplane/gridrun/internal/dataset"
)

// Transform mutates a private copy of the baseline dataset to express a
// what-if variant. It must only rewrite cells of existing rows: the key set
// of every relation is owned by the baseline.
type Transform func(*dataset.Dataset) error

// Scenario binds a name to a transform. The name qualifies every artifact
// the run produces (log, report, plots).
type Scenario struct {
	Name  string
	apply Transform
}

// New creates a scenario from a transform function
func New(name string, t Transform) Scenario {
	return Scenario{Name: name, apply: t}
}

// Title returns the human-readable scenario name used in plot titles
func (s Scenario) Title() string {
	return strings.ReplaceAll(s.Name, "_", " ")
}

// Apply clones the baseline and runs the transform on the clone. On error
// the clone is discarded, so the baseline is never left partially edited.
func (s Scenario) Apply(baseline *dataset.Dataset) (*dataset.Dataset, error) {
	ds := baseline.Clone()
	if s.apply == nil {
		return ds, nil
	}
	if err := s.apply(ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// Base returns the identity scenario: the baseline dataset unchanged
func Base() Scenario {
	return New("base", nil)
}

// Edit is one targeted cell overwrite
type Edit struct {
	Relation string
	Site     string
	Entity   string
	Column   string
	Value    decimal.Decimal
}

// FromEdits builds a scenario from declarative cell overwrites. Any key an
// edit references must already exist; a missing key or column is a
// *KeyError, and no partial edit survives (the working copy is discarded).
func FromEdits(name string, edits []Edit) Scenario {
	return New(name, func(ds *dataset.Dataset) error {
		for _, e := range edits {
			rel, ok := ds.Relation(e.Relation)
			if !ok {
				return &KeyError{
					Scenario: name, Relation: e.Relation,
					Site: e.Site, Entity: e.Entity, Column: e.Column,
					Err: fmt.Errorf("dataset has no relation %q", e.Relation),
				}
			}
			key := dataset.Key{Site: e.Site, Entity: e.Entity}
			if err := rel.Set(key, e.Column, dataset.Num(e.Value)); err != nil {
				return &KeyError{
					Scenario: name, Relation: e.Relation,
					Site: e.Site, Entity: e.Entity, Column: e.Column,
					Err: err,
				}
			}
		}
		return nil
	})
}

// Compose chains scenarios into one, applied left to right. Composition
// order is observable: later edits overwrite earlier ones on the same cell.
func Compose(name string, scenarios ...Scenario) Scenario {
	return New(name, func(ds *dataset.Dataset) error {
		for _, sc := range scenarios {
			if sc.apply == nil {
				continue
			}
			if err := sc.apply(ds); err != nil {
				return err
			}
		}
		return nil
	})
}

// KeyError reports a transform referencing a (site, entity) pair or column
// absent from the relation it edits. It is fatal to that scenario only.
type KeyError struct {
	Scenario string
	Relation string
	Site     string
	Entity   string
	Column   string
	Err      error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("scenario %s: edit %s[(%s, %s), %s]: %v",
		e.Scenario, e.Relation, e.Site, e.Entity, e.Column, e.Err)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

// IsKeyError reports whether err wraps a scenario key error
func IsKeyError(err error) bool {
	var ke *KeyError
	return errors.As(err, &ke)
}

// Registry holds the selectable scenarios by name
type Registry struct {
	order  []string
	byName map[string]Scenario
}

// NewRegistry creates a registry seeded with the built-in base scenario
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Scenario)}
	r.Register(Base())
	return r
}

// Register adds or replaces a scenario
func (r *Registry) Register(sc Scenario) {
	if _, exists := r.byName[sc.Name]; !exists {
		r.order = append(r.order, sc.Name)
	}
	r.byName[sc.Name] = sc
}

// Get returns the named scenario
func (r *Registry) Get(name string) (Scenario, bool) {
	sc, ok := r.byName[name]
	return sc, ok
}

// Names returns the registered scenario names, sorted
func (r *Registry) Names() []string {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

// FromRunConfig resolves the configured scenario list into executable
// scenarios, in list order. A spec with no edits resolves to the identity
// transform under its own name.
func FromRunConfig(specs []config.ScenarioSpec) []Scenario {
	scenarios := make([]Scenario, 0, len(specs))
	for _, spec := range specs {
		if len(spec.Set) == 0 {
			scenarios = append(scenarios, New(spec.Name, nil))
			continue
		}
		edits := make([]Edit, 0, len(spec.Set))
		for _, e := range spec.Set {
			edits = append(edits, Edit{
				Relation: e.Relation,
				Site:     e.Site,
				Entity:   e.Entity,
				Column:   e.Column,
				Value:    decimal.NewFromFloat(e.Value),
			})
		}
		scenarios = append(scenarios, FromEdits(spec.Name, edits))
	}
	return scenarios
}
