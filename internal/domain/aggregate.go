package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrZeroWeight is returned when an area's person weights sum to zero, which
// leaves its weighted mean undefined.
var ErrZeroWeight = errors.New("area has zero total person weight")

// AreaWage is the aggregated wage statistic for one PUMA.
type AreaWage struct {
	GEOID         string  `json:"geoid"`
	AvgHourlyWage float64 `json:"avg_hourly_wage"`
}

// AggregateResult holds per-area wages plus record accounting for one run.
type AggregateResult struct {
	Wages           []AreaWage
	RecordsRead     int
	RecordsEligible int
	Skipped         map[string]int
	ComputedAt      time.Time
}

// areaSample collects the eligible observations for one GEOID.
type areaSample struct {
	wages   []float64
	weights []float64
}

// Aggregate filters records, derives hourly wages and computes the
// PERWT-weighted mean per GEOID. Wages are sorted by GEOID. It fails with
// ErrZeroWeight if any area's weights sum to zero.
func Aggregate(records []MicrodataRecord) (AggregateResult, error) {
	result := AggregateResult{
		RecordsRead: len(records),
		Skipped:     make(map[string]int),
	}

	samples := make(map[string]*areaSample)
	for _, rec := range records {
		if reason := Classify(rec); reason != "" {
			result.Skipped[reason]++
			continue
		}
		result.RecordsEligible++

		id := RecordGEOID(rec)
		s, ok := samples[id]
		if !ok {
			s = &areaSample{}
			samples[id] = s
		}
		s.wages = append(s.wages, HourlyWage(rec))
		s.weights = append(s.weights, rec.PersonWeight.Value)
	}

	ids := make([]string, 0, len(samples))
	for id := range samples {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result.Wages = make([]AreaWage, 0, len(ids))
	for _, id := range ids {
		avg, err := WeightedMean(samples[id].wages, samples[id].weights)
		if err != nil {
			return AggregateResult{}, fmt.Errorf("aggregate %s: %w", id, err)
		}
		result.Wages = append(result.Wages, AreaWage{GEOID: id, AvgHourlyWage: avg})
	}

	result.ComputedAt = clock.Now()
	return result, nil
}

// WeightedMean returns sum(x*w) / sum(w).
func WeightedMean(x, weights []float64) (float64, error) {
	if len(x) == 0 || floats.Sum(weights) == 0 {
		return 0, ErrZeroWeight
	}
	return stat.Mean(x, weights), nil
}
