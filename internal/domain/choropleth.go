package domain

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// DefaultClipQuantile caps displayed wages so a few extreme areas do not
// wash out the color scale.
const DefaultClipQuantile = 0.95

// MapArea is a boundary polygon joined with its wage.
type MapArea struct {
	GEOID    string
	State    string
	Geometry orb.MultiPolygon
	Wage     Num
	Display  Num
}

// MapOptions controls how a boundary set becomes a choropleth.
type MapOptions struct {
	ExcludedStates []string
	ClipQuantile   float64
}

// ChoroplethMap is the render-ready result of joining, filtering and clipping.
type ChoroplethMap struct {
	Areas       []MapArea
	IDColumn    string
	StateColumn string // empty when the dataset has no state column
	Unmatched   int
	Excluded    int
	Ceiling     Num
}

// BuildMap joins wages onto boundaries, drops excluded states and clips the
// display value at the configured quantile.
func BuildMap(set BoundarySet, wages []AreaWage, opts MapOptions) (ChoroplethMap, error) {
	idCol, ok := LookupColumn(set.Columns, IDColumnCandidates)
	if !ok {
		return ChoroplethMap{}, fmt.Errorf("%w: tried %v, have %v", ErrNoIDColumn, IDColumnCandidates, set.Columns)
	}
	stateCol, _ := LookupColumn(set.Columns, StateColumnCandidates)

	areas := JoinWages(set.Features, idCol, stateCol, wages)
	m := ChoroplethMap{IDColumn: idCol, StateColumn: stateCol}
	for _, a := range areas {
		if !a.Wage.Valid {
			m.Unmatched++
		}
	}

	if stateCol != "" {
		var dropped int
		areas, dropped = ExcludeStates(areas, opts.ExcludedStates)
		m.Excluded = dropped
	}

	q := opts.ClipQuantile
	if q == 0 {
		q = DefaultClipQuantile
	}
	m.Areas, m.Ceiling = ClipWages(areas, q)
	return m, nil
}

// JoinWages left-joins wages onto features by GEOID. Every feature is kept;
// features without a wage row get a missing wage. stateCol may be empty.
func JoinWages(features []Feature, idCol, stateCol string, wages []AreaWage) []MapArea {
	byID := make(map[string]float64, len(wages))
	for _, w := range wages {
		byID[NormalizeGEOID(w.GEOID)] = w.AvgHourlyWage
	}

	areas := make([]MapArea, 0, len(features))
	for _, f := range features {
		a := MapArea{
			GEOID:    NormalizeGEOID(f.Attributes[idCol]),
			Geometry: f.Geometry,
		}
		if stateCol != "" {
			a.State = NormalizeState(f.Attributes[stateCol])
		}
		if v, ok := byID[a.GEOID]; ok {
			a.Wage = Some(v)
		}
		areas = append(areas, a)
	}
	return areas
}

// ExcludeStates returns the areas whose state is not in excluded, and how
// many were dropped.
func ExcludeStates(areas []MapArea, excluded []string) ([]MapArea, int) {
	skip := make(map[string]struct{}, len(excluded))
	for _, s := range excluded {
		skip[NormalizeState(s)] = struct{}{}
	}

	kept := make([]MapArea, 0, len(areas))
	for _, a := range areas {
		if _, ok := skip[a.State]; ok {
			continue
		}
		kept = append(kept, a)
	}
	return kept, len(areas) - len(kept)
}

// ClipWages sets each area's Display to its wage capped at the q-quantile of
// all present wages. Missing wages stay missing. The returned ceiling is
// missing when no area has a wage.
func ClipWages(areas []MapArea, q float64) ([]MapArea, Num) {
	values := make([]float64, 0, len(areas))
	for _, a := range areas {
		if a.Wage.Valid {
			values = append(values, a.Wage.Value)
		}
	}
	out := make([]MapArea, len(areas))
	copy(out, areas)
	if len(values) == 0 {
		return out, Num{}
	}

	sort.Float64s(values)
	ceiling := Quantile(values, q)
	for i := range out {
		if out[i].Wage.Valid {
			out[i].Display = Some(math.Min(out[i].Wage.Value, ceiling))
		} else {
			out[i].Display = Num{}
		}
	}
	return out, Some(ceiling)
}

// Quantile returns the q-quantile of sorted data, interpolating linearly
// between the two closest ranks: h = (n-1)q.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * q
	lo := int(math.Floor(h))
	if lo+1 >= n {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}
