package palette

import "fmt"

// RGB is one display color
type RGB struct {
	R, G, B uint8
}

// Hex returns the color as a #rrggbb string
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// fallback is returned for series with no configured color
var fallback = RGB{128, 128, 128}

// Palette maps series names to display colors. A palette is a value:
// With composes a new palette instead of mutating shared state, so color
// overrides from one run cannot leak into the next.
type Palette struct {
	colors map[string]RGB
}

// Default returns the built-in palette
func Default() Palette {
	return Palette{colors: map[string]RGB{
		"Demand":           {0, 0, 0},
		"Supply":           {91, 155, 213},
		"Storage":          {100, 149, 237},
		"Diesel Generator": {89, 89, 89},
		"Photovoltaics":    {255, 201, 71},
		"Water Pump":       {91, 155, 213},
	}}
}

// With returns a new palette with the overlay applied on top. The receiver
// is left unchanged.
func (p Palette) With(overlay map[string]RGB) Palette {
	merged := make(map[string]RGB, len(p.colors)+len(overlay))
	for name, c := range p.colors {
		merged[name] = c
	}
	for name, c := range overlay {
		merged[name] = c
	}
	return Palette{colors: merged}
}

// ColorOf returns the color for a series name. Lookup never fails: unknown
// series get a neutral gray.
func (p Palette) ColorOf(series string) RGB {
	if c, ok := p.colors[series]; ok {
		return c
	}
	return fallback
}

// Len returns the number of configured series colors
func (p Palette) Len() int {
	return len(p.colors)
}
