package plot

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/gridplane/gridrun/internal/model"
	"github.com/gridplane/gridrun/internal/palette"
)

// Plotter renders one time-series figure for a (site, commodity) pair over
// one named window of the solved horizon.
type Plotter interface {
	// Ext is the artifact extension the plotter produces
	Ext() string
	Render(path string, m model.SolvedModel, sc model.SiteCommodity, w model.TimeWindow, title string, pal palette.Palette) error
}

// SVGPlotter is the bundled Plotter: a dependency-free SVG line chart with
// demand, supply and storage series colored from the palette.
type SVGPlotter struct {
	Width  int
	Height int
}

// NewSVGPlotter creates the bundled plotter at the standard 24:9 canvas
func NewSVGPlotter() *SVGPlotter {
	return &SVGPlotter{Width: 1200, Height: 450}
}

// Ext returns the plot artifact extension
func (p *SVGPlotter) Ext() string {
	return "svg"
}

func (p *SVGPlotter) Render(path string, m model.SolvedModel, sc model.SiteCommodity, w model.TimeWindow, title string, pal palette.Palette) error {
	full, ok := m.Series(sc)
	if !ok {
		return fmt.Errorf("no series for %s", sc)
	}
	ts := full.Slice(w)
	if len(ts.Steps) == 0 {
		return fmt.Errorf("window %q selects no values for %s", w.Name, sc)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		p.Width, p.Height, p.Width, p.Height)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="white"/>`+"\n", p.Width, p.Height)
	fmt.Fprintf(&b, `<text x="%d" y="24" font-family="sans-serif" font-size="16" text-anchor="middle">%s</text>`+"\n",
		p.Width/2, escape(title))

	top, bottom, left, right := 40.0, 30.0, 50.0, 20.0
	plotW := float64(p.Width) - left - right
	plotH := float64(p.Height) - top - bottom

	max := seriesMax(ts)
	if max <= 0 {
		max = 1
	}

	fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="black"/>`+"\n",
		left, top+plotH, left+plotW, top+plotH)
	fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="black"/>`+"\n",
		left, top, left, top+plotH)

	series := []struct {
		name   string
		values []float64
	}{
		{"Demand", ts.Demand},
		{"Supply", ts.Supply},
		{"Storage", ts.Storage},
	}

	for i, s := range series {
		color := pal.ColorOf(s.name).Hex()
		fmt.Fprintf(&b, `<polyline fill="none" stroke="%s" stroke-width="1.5" points="%s"/>`+"\n",
			color, points(s.values, max, left, top, plotW, plotH))
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-family="sans-serif" font-size="12" fill="%s">%s</text>`+"\n",
			left+plotW-120, top+14*float64(i+1), color, s.name)
	}

	fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-family="sans-serif" font-size="12">t=%d</text>`+"\n",
		left, top+plotH+20, w.Start)
	fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-family="sans-serif" font-size="12" text-anchor="end">t=%d</text>`+"\n",
		left+plotW, top+plotH+20, w.End)
	b.WriteString("</svg>\n")

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write plot %s: %w", path, err)
	}
	return nil
}

// points builds the polyline coordinate list for one series
func points(values []float64, max, left, top, plotW, plotH float64) string {
	if len(values) == 0 {
		return ""
	}
	step := plotW
	if len(values) > 1 {
		step = plotW / float64(len(values)-1)
	}

	var b strings.Builder
	for i, v := range values {
		if v < 0 {
			v = 0
		}
		x := left + float64(i)*step
		y := top + plotH - (v/max)*plotH
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.1f,%.1f", x, y)
	}
	return b.String()
}

func seriesMax(ts model.TimeSeries) float64 {
	max := 0.0
	for _, s := range [][]float64{ts.Demand, ts.Supply, ts.Storage} {
		for _, v := range s {
			if !math.IsNaN(v) && v > max {
				max = v
			}
		}
	}
	return max
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
