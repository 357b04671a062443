// Command boundaries downloads the national TIGER/Line PUMA shapefile that
// cmd/render draws.
//
// Usage:
//
//	go run ./cmd/boundaries -year 2022 -out tl_2022_us_puma20
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/puma-wage-map/internal/adapter/tiger"
	"github.com/couchcryptid/puma-wage-map/internal/observability"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

func main() {
	year := flag.Int("year", tiger.FirstPUMA20Year, "TIGER/Line vintage")
	out := flag.String("out", "", "directory for the extracted shapefile (default tl_<year>_us_puma20)")
	timeout := flag.Duration("timeout", 10*time.Minute, "download timeout")
	progress := flag.Bool("progress", true, "show a download progress bar")
	flag.Parse()

	logger := observability.NewLogger(
		sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
	)

	dir := *out
	if dir == "" {
		dir = fmt.Sprintf("tl_%d_us_puma20", *year)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := tiger.NewClient(*timeout, *progress, logger)
	if err := client.Check(ctx, *year); err != nil {
		logger.Error("boundary archive unavailable", "url", client.ArchiveURL(*year), "error", err)
		stop()
		os.Exit(1)
	}

	fmt.Printf("Downloading %s...\n", client.ArchiveURL(*year))
	shpPath, err := client.Download(ctx, *year, dir)
	if err != nil {
		logger.Error("boundary download failed", "error", err)
		stop()
		os.Exit(1)
	}

	fmt.Printf("Shapefile ready at %s\n", shpPath)
	fmt.Printf("Render with: go run ./cmd/render %s\n", shpPath)
}
