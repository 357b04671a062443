// Command genmock writes a synthetic IPUMS fixed-width extract for demos and
// tests. Lines are produced with domain.FormatLine so they always match the
// layout the aggregator parses.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/usa_mock.dat -records 5000 -seed 42
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/couchcryptid/puma-wage-map/internal/domain"
	"github.com/dustin/go-humanize"
)

// area is a synthetic PUMA with its own wage level so the map shows contrast.
type area struct {
	state, puma int
	baseWage    float64
}

var areas = []area{
	{state: 1, puma: 100, baseWage: 19},
	{state: 2, puma: 101, baseWage: 31},
	{state: 6, puma: 123, baseWage: 38},
	{state: 6, puma: 3701, baseWage: 27},
	{state: 15, puma: 302, baseWage: 29},
	{state: 17, puma: 3520, baseWage: 33},
	{state: 36, puma: 3807, baseWage: 45},
	{state: 48, puma: 4601, baseWage: 24},
	{state: 53, puma: 11601, baseWage: 36},
	{state: 72, puma: 100, baseWage: 12},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "usa_mock.dat", "output path for the fixed-width extract")
	n := flag.Int("records", 1000, "number of person records to write")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *n <= 0 {
		flag.Usage()
		return fmt.Errorf("-records must be positive, got %d", *n)
	}

	if dir := filepath.Dir(*out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create %s: %w", *out, err)
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	eligible, err := generate(f, rng, *n)
	if err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", *out, err)
	}

	log.Printf("wrote %s records (%s eligible) to %s",
		humanize.Comma(int64(*n)), humanize.Comma(int64(eligible)), *out)
	return nil
}

// generate writes n lines and returns how many would pass the aggregation
// filters. Roughly a quarter of the people did not work or had no wage.
func generate(w io.Writer, rng *rand.Rand, n int) (int, error) {
	bw := bufio.NewWriter(w)
	eligible := 0
	for range n {
		rec := person(rng)
		if domain.Classify(rec) == "" {
			eligible++
		}
		line, err := domain.FormatLine(rec)
		if err != nil {
			return 0, fmt.Errorf("format record: %w", err)
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return 0, fmt.Errorf("write record: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("flush records: %w", err)
	}
	return eligible, nil
}

func person(rng *rand.Rand) domain.MicrodataRecord {
	a := areas[rng.IntN(len(areas))]
	rec := domain.MicrodataRecord{
		StateFIP:     domain.Some(float64(a.state)),
		PUMA:         domain.Some(float64(a.puma)),
		PersonWeight: domain.Some(float64(1 + rng.IntN(250))),
	}

	switch r := rng.Float64(); {
	case r < 0.15:
		// Not in the labor force.
		rec.WeeksWorked = domain.Some(0)
		rec.UsualHours = domain.Some(0)
		rec.WageIncome = domain.Some(0)
		return rec
	case r < 0.20:
		// Self-employed: worked but no wage income.
		rec.WeeksWorked = domain.Some(52)
		rec.UsualHours = domain.Some(50)
		rec.WageIncome = domain.Some(0)
		return rec
	case r < 0.25:
		// Unanswered.
		return rec
	}

	weeks := float64(10 + rng.IntN(43))
	hours := float64(10 + rng.IntN(60))
	hourly := a.baseWage * (0.5 + rng.ExpFloat64()*0.5)
	wage := float64(int(hourly * weeks * hours))
	rec.WeeksWorked = domain.Some(weeks)
	rec.UsualHours = domain.Some(hours)
	rec.WageIncome = domain.Some(min(wage, 999998))
	return rec
}
