package domain

import (
	"errors"
	"strings"

	"github.com/paulmach/orb"
)

// Column candidates in priority order. TIGER/Line vintages name the same
// attribute differently.
var (
	IDColumnCandidates    = []string{"GEOID20", "GEOID10", "GEOID", "PUMACE20", "PUMACE10"}
	StateColumnCandidates = []string{"STATEFP20", "STATEFP10", "STATEFP", "STATEFIP"}
)

// DefaultExcludedStates drops the areas that do not fit a contiguous-US map:
// Alaska (02), Hawaii (15) and Puerto Rico (72).
var DefaultExcludedStates = []string{"02", "15", "72"}

// ErrNoIDColumn is returned when none of the identifier candidates is present.
var ErrNoIDColumn = errors.New("no GEOID column found in boundary attributes")

const (
	geoidWidth = 7
	pumaWidth  = 5
	stateWidth = 2
)

// Feature is one boundary polygon with its attribute row.
type Feature struct {
	Attributes map[string]string
	Geometry   orb.MultiPolygon
}

// BoundarySet is a loaded boundary dataset.
type BoundarySet struct {
	Source   string
	CRS      string
	Columns  []string
	Features []Feature
}

// LookupColumn returns the first candidate present in columns.
func LookupColumn(columns, candidates []string) (string, bool) {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}
	for _, c := range candidates {
		if _, ok := present[c]; ok {
			return c, true
		}
	}
	return "", false
}

// NormalizeGEOID turns an identifier read from any source into the text form
// used for joining. It trims whitespace, drops a float ".0" suffix left by
// numeric exports, and restores the leading zero lost when a 7-digit GEOID
// for a single-digit state was stored as a number.
func NormalizeGEOID(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")
	if isDigits(s) && len(s) > pumaWidth && len(s) < geoidWidth {
		s = strings.Repeat("0", geoidWidth-len(s)) + s
	}
	return s
}

// NormalizeState pads a numeric state code to two digits.
func NormalizeState(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")
	if isDigits(s) && len(s) < stateWidth {
		s = strings.Repeat("0", stateWidth-len(s)) + s
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
