package domain

import (
	"errors"
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"
)

// WageSummary describes the distribution of per-area average wages.
type WageSummary struct {
	Count  int
	Mean   float64
	Median float64
	Min    float64
	Max    float64
	Top    []AreaWage // highest first
	Bottom []AreaWage // lowest first
}

// Summarize computes distribution statistics over per-area wages and the n
// highest and lowest areas. Ties keep GEOID order.
func Summarize(wages []AreaWage, n int) (WageSummary, error) {
	if len(wages) == 0 {
		return WageSummary{}, errors.New("summarize: no area wages")
	}

	data := make(stats.Float64Data, len(wages))
	for i, w := range wages {
		data[i] = w.AvgHourlyWage
	}

	var s WageSummary
	var err error
	s.Count = len(wages)
	if s.Mean, err = data.Mean(); err != nil {
		return WageSummary{}, fmt.Errorf("summarize mean: %w", err)
	}
	if s.Median, err = data.Median(); err != nil {
		return WageSummary{}, fmt.Errorf("summarize median: %w", err)
	}
	if s.Min, err = data.Min(); err != nil {
		return WageSummary{}, fmt.Errorf("summarize min: %w", err)
	}
	if s.Max, err = data.Max(); err != nil {
		return WageSummary{}, fmt.Errorf("summarize max: %w", err)
	}

	if n > len(wages) {
		n = len(wages)
	}
	if n < 0 {
		n = 0
	}

	desc := append([]AreaWage(nil), wages...)
	sort.SliceStable(desc, func(i, j int) bool { return desc[i].AvgHourlyWage > desc[j].AvgHourlyWage })
	s.Top = desc[:n]

	asc := append([]AreaWage(nil), wages...)
	sort.SliceStable(asc, func(i, j int) bool { return asc[i].AvgHourlyWage < asc[j].AvgHourlyWage })
	s.Bottom = asc[:n]

	return s, nil
}
