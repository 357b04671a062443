// Command validate checks the PUMA wage table on its own and, when a
// boundary dataset is given, how well it joins to the polygons the renderer
// will draw.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -wages puma_hourly_wages.csv \
//	  -boundaries tl_2022_us_puma20/tl_2022_us_puma20.shp
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/couchcryptid/puma-wage-map/internal/adapter/boundary"
	"github.com/couchcryptid/puma-wage-map/internal/adapter/wagetable"
	"github.com/couchcryptid/puma-wage-map/internal/domain"
	"github.com/dustin/go-humanize"
)

// maxListed caps how many offending GEOIDs a single check reports.
const maxListed = 10

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	wagesPath := flag.String("wages", "puma_hourly_wages.csv", "path to the PUMA wage table")
	boundaryPath := flag.String("boundaries", "", "optional .shp or .geojson boundary dataset for join coverage")
	flag.Parse()

	if *wagesPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(os.Stdout, *wagesPath, *boundaryPath); code != 0 {
		os.Exit(code)
	}
}

func run(out io.Writer, wagesPath, boundaryPath string) int {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	fmt.Fprintln(out, "=== PUMA Wage Table Validation ===")
	fmt.Fprintln(out)

	wages, err := wagetable.NewReader(wagesPath).ReadWages(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load wage table: %v\n", err)
		return 1
	}

	phases := []*phase{validateTable(wages)}

	if boundaryPath != "" {
		loader, err := boundary.NewLoader(boundaryPath, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
		set, err := loader.LoadBoundaries(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load boundaries: %v\n", err)
			return 1
		}
		phases = append(phases, validateCoverage(wages, set))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Rows: %s wage table\n", humanize.Comma(int64(len(wages))))

	for _, p := range phases {
		if len(p.notes) == 0 && p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for _, n := range p.notes {
			fmt.Fprintf(out, "  %s\n", n)
		}
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Phase 1: Table Integrity ──
// Every row must carry a 7-digit GEOID and a finite, positive wage, once.

func validateTable(wages []domain.AreaWage) *phase {
	p := &phase{name: "Phase 1: Wage Table Integrity"}

	if len(wages) == 0 {
		p.errorf("wage table has no rows")
		return p
	}

	seen := make(map[string]int, len(wages))
	for i, w := range wages {
		row := i + 2
		if len(w.GEOID) != 7 || strings.Trim(w.GEOID, "0123456789") != "" {
			p.errorf("line %d: GEOID %q is not 7 digits", row, w.GEOID)
		}
		if math.IsNaN(w.AvgHourlyWage) || math.IsInf(w.AvgHourlyWage, 0) || w.AvgHourlyWage <= 0 {
			p.errorf("line %d: GEOID %s: wage %v is not a positive finite number", row, w.GEOID, w.AvgHourlyWage)
		}
		if first, dup := seen[w.GEOID]; dup {
			p.errorf("line %d: GEOID %s duplicates line %d", row, w.GEOID, first)
			continue
		}
		seen[w.GEOID] = row
	}
	return p
}

// ── Phase 2: Join Coverage ──
// Every wage row should land on a polygon. Polygons without wages are
// expected (suppressed PUMAs) and only reported.

func validateCoverage(wages []domain.AreaWage, set domain.BoundarySet) *phase {
	p := &phase{name: "Phase 2: Boundary Join Coverage"}

	idCol, ok := domain.LookupColumn(set.Columns, domain.IDColumnCandidates)
	if !ok {
		p.errorf("%v (columns: %v)", domain.ErrNoIDColumn, set.Columns)
		return p
	}
	p.notef("id column: %s, features: %s", idCol, humanize.Comma(int64(len(set.Features))))

	polygons := make(map[string]struct{}, len(set.Features))
	for _, f := range set.Features {
		polygons[domain.NormalizeGEOID(f.Attributes[idCol])] = struct{}{}
	}
	table := make(map[string]struct{}, len(wages))
	for _, w := range wages {
		table[domain.NormalizeGEOID(w.GEOID)] = struct{}{}
	}

	var orphans []string
	for _, w := range wages {
		if _, ok := polygons[domain.NormalizeGEOID(w.GEOID)]; !ok {
			orphans = append(orphans, w.GEOID)
		}
	}
	matched := 0
	for id := range polygons {
		if _, ok := table[id]; ok {
			matched++
		}
	}

	p.notef("matched polygons: %s of %s", humanize.Comma(int64(matched)), humanize.Comma(int64(len(polygons))))
	p.notef("polygons without wages: %s", humanize.Comma(int64(len(polygons)-matched)))
	if len(orphans) > 0 {
		p.errorf("%d wage rows have no polygon: %s", len(orphans), listed(orphans))
	}
	if matched == 0 {
		p.errorf("no polygon matched any wage row")
	}
	return p
}

func listed(ids []string) string {
	if len(ids) <= maxListed {
		return strings.Join(ids, ", ")
	}
	return strings.Join(ids[:maxListed], ", ") + fmt.Sprintf(", ... (%d more)", len(ids)-maxListed)
}
