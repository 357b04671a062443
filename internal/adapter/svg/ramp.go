package svg

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot/palette/brewer"
)

// Ramp maps a value range onto a continuous color scale built from
// discrete control points.
type Ramp struct {
	stops  []colorful.Color
	lo, hi float64
}

// NewBluesRamp returns the 9-class ColorBrewer "Blues" scale spread over
// [lo, hi].
func NewBluesRamp(lo, hi float64) (*Ramp, error) {
	pal, err := brewer.GetPalette(brewer.TypeAny, "Blues", 9)
	if err != nil {
		return nil, fmt.Errorf("load Blues palette: %w", err)
	}
	return NewRamp(pal.Colors(), lo, hi)
}

// NewRamp builds a ramp from at least two control colors.
func NewRamp(controls []color.Color, lo, hi float64) (*Ramp, error) {
	if len(controls) < 2 {
		return nil, fmt.Errorf("color ramp needs at least 2 stops, got %d", len(controls))
	}
	stops := make([]colorful.Color, len(controls))
	for i, c := range controls {
		cf, ok := colorful.MakeColor(c)
		if !ok {
			return nil, fmt.Errorf("color stop %d is fully transparent", i)
		}
		stops[i] = cf
	}
	return &Ramp{stops: stops, lo: lo, hi: hi}, nil
}

// At returns the color for v. Values outside the range take the end color.
// A degenerate range maps everything to the middle of the scale.
func (r *Ramp) At(v float64) color.Color {
	t := 0.5
	if r.hi > r.lo {
		t = (v - r.lo) / (r.hi - r.lo)
	}
	t = math.Max(0, math.Min(1, t))

	pos := t * float64(len(r.stops)-1)
	i := int(math.Floor(pos))
	if i >= len(r.stops)-1 {
		return r.stops[len(r.stops)-1].Clamped()
	}
	return r.stops[i].BlendLab(r.stops[i+1], pos-float64(i)).Clamped()
}

// Range returns the value bounds of the ramp.
func (r *Ramp) Range() (lo, hi float64) {
	return r.lo, r.hi
}
