// Command render joins the PUMA wage table to boundary polygons and draws a
// choropleth SVG.
//
// Usage:
//
//	go run ./cmd/render tl_2022_us_puma20/tl_2022_us_puma20.shp
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/couchcryptid/puma-wage-map/internal/adapter/boundary"
	"github.com/couchcryptid/puma-wage-map/internal/adapter/svg"
	"github.com/couchcryptid/puma-wage-map/internal/adapter/wagetable"
	"github.com/couchcryptid/puma-wage-map/internal/config"
	"github.com/couchcryptid/puma-wage-map/internal/domain"
	"github.com/couchcryptid/puma-wage-map/internal/observability"
	"github.com/couchcryptid/puma-wage-map/internal/pipeline"
)

const usage = `Usage: render <path_to_puma_shapefile>

Download PUMA shapefiles from:
https://www2.census.gov/geo/tiger/TIGER2022/PUMA20/
(Download tl_2022_us_puma20.zip and extract it)
or fetch it with: go run ./cmd/boundaries -year 2022
`

func main() {
	boundaryPath, ok := parseArgs(os.Args[1:], os.Stdout)
	if !ok {
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, boundaryPath, logger, metrics)
	stop()

	if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.Error("metrics textfile write error", "error", err)
	}
	os.Exit(code)
}

// parseArgs validates the single positional argument. Problems are reported
// on out and nothing else happens.
func parseArgs(args []string, out io.Writer) (string, bool) {
	if len(args) < 1 {
		fmt.Fprint(out, usage)
		return "", false
	}
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(out, "Error: Shapefile not found at %s\n", path)
		return "", false
	}
	return path, true
}

func run(ctx context.Context, cfg *config.Config, boundaryPath string, logger *slog.Logger, metrics *observability.Metrics) int {
	boundaries, err := boundary.NewLoader(boundaryPath, logger)
	if err != nil {
		logger.Error("unsupported boundary dataset", "error", err)
		return 1
	}

	opts := domain.MapOptions{
		ExcludedStates: cfg.MapExcludedStates,
		ClipQuantile:   cfg.MapClipQuantile,
	}
	builder := pipeline.NewMapBuilder(
		wagetable.NewReader(cfg.WageTablePath),
		boundaries,
		svg.NewRenderer(cfg.MapOutputPath, cfg.MapTitle, logger),
		opts,
		logger,
		metrics,
	)

	fmt.Printf("Loading shapefile from %s...\n", boundaryPath)
	m, err := builder.Run(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoIDColumn) {
			fmt.Println("Error: Could not find GEOID column in shapefile")
		}
		logger.Error("render failed", "error", err)
		return 1
	}

	fmt.Printf("Using %s for merging\n", m.IDColumn)
	if m.StateColumn != "" {
		fmt.Printf("Filtered from %d to %d PUMAs (removed %s)\n", len(m.Areas)+m.Excluded, len(m.Areas), strings.Join(opts.ExcludedStates, ", "))
	} else {
		fmt.Println("Warning: Could not find state column for filtering")
	}
	fmt.Printf("Map saved as %s\n", cfg.MapOutputPath)
	return 0
}
