package solver

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/gridplane/gridrun/internal/model"
)

// Engine is a solver backend selected by logical name. Solve blocks until
// the engine terminates; a wall-clock limit arrives through Options and a
// hit limit is reported as model.StatusTimeLimit, not as an error. A
// non-nil error means the engine itself broke, not that the model is
// infeasible.
type Engine interface {
	Name() string
	Solve(ctx context.Context, m model.Model, opts Options) (model.SolvedModel, error)
}

// Registry resolves logical engine names. Unknown names fall back to the
// registered fallback engine with a warning, mirroring the option adapter's
// proceed-with-defaults behavior.
type Registry struct {
	engines  map[string]Engine
	fallback Engine
}

// NewRegistry creates a registry with the given fallback engine
func NewRegistry(fallback Engine) *Registry {
	r := &Registry{engines: make(map[string]Engine), fallback: fallback}
	if fallback != nil {
		r.engines[fallback.Name()] = fallback
	}
	return r
}

// Register adds an engine under its own name
func (r *Registry) Register(e Engine) {
	r.engines[e.Name()] = e
}

// Names returns the registered engine names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the engine for the logical name, or the fallback with a
// warning when the name is unknown.
func (r *Registry) Resolve(name string, warn io.Writer) Engine {
	if e, ok := r.engines[name]; ok {
		return e
	}
	if warn != nil && r.fallback != nil {
		fmt.Fprintf(warn, "warning: solver %q not available, using %q\n", name, r.fallback.Name())
	}
	return r.fallback
}
