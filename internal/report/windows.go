package report

import (
	"fmt"
	"sort"

	"github.com/gridplane/gridrun/internal/config"
	"github.com/gridplane/gridrun/internal/model"
)

// WindowError reports a requested plot window that does not intersect the
// simulated horizon, or is empty. The window is skipped; sibling windows in
// the same selection are unaffected.
type WindowError struct {
	Name    string
	Start   int
	End     int
	Horizon model.Horizon
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("window %q [%d, %d] outside horizon [%d, %d]",
		e.Name, e.Start, e.End, e.Horizon.First(), e.Horizon.Last())
}

// SelectWindows clamps each named period to the horizon. Windows partially
// overlapping the horizon are clamped and kept; windows fully outside it or
// with non-positive length yield a WindowError. Windows come back sorted by
// name so artifact generation is deterministic; errors do not abort the
// selection.
func SelectWindows(periods map[string]config.PeriodSpec, h model.Horizon) ([]model.TimeWindow, []*WindowError) {
	var windows []model.TimeWindow
	var errs []*WindowError

	for name, p := range periods {
		if p.End < p.Start || p.End < h.First() || p.Start > h.Last() {
			errs = append(errs, &WindowError{Name: name, Start: p.Start, End: p.End, Horizon: h})
			continue
		}
		start, end := p.Start, p.End
		if start < h.First() {
			start = h.First()
		}
		if end > h.Last() {
			end = h.Last()
		}
		windows = append(windows, model.TimeWindow{Name: name, Start: start, End: end})
	}

	sort.Slice(windows, func(i, j int) bool { return windows[i].Name < windows[j].Name })
	sort.Slice(errs, func(i, j int) bool { return errs[i].Name < errs[j].Name })

	return windows, errs
}
