// Command aggregate reads an IPUMS fixed-width extract, computes the
// person-weighted mean hourly wage for every PUMA and writes the result to
// the wage table plus any configured Kafka or Postgres sinks.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/couchcryptid/puma-wage-map/internal/adapter/fixedwidth"
	kafkaadapter "github.com/couchcryptid/puma-wage-map/internal/adapter/kafka"
	"github.com/couchcryptid/puma-wage-map/internal/adapter/postgres"
	"github.com/couchcryptid/puma-wage-map/internal/adapter/wagetable"
	"github.com/couchcryptid/puma-wage-map/internal/config"
	"github.com/couchcryptid/puma-wage-map/internal/domain"
	"github.com/couchcryptid/puma-wage-map/internal/observability"
	"github.com/couchcryptid/puma-wage-map/internal/pipeline"
	"github.com/dustin/go-humanize"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, logger, metrics)
	stop()

	if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.Error("metrics textfile write error", "error", err)
	}
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) int {
	loaders := []pipeline.WageLoader{wagetable.NewWriter(cfg.WageTablePath, logger)}

	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaWageTopic, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		loaders = append(loaders, writer)
		logger.Info("kafka sink enabled", "topic", cfg.KafkaWageTopic, "brokers", cfg.KafkaBrokers)
	}

	if cfg.PostgresEnabled() {
		writer, err := postgres.NewWriter(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("postgres sink unavailable", "error", err)
			return 1
		}
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("postgres close error", "error", err)
			}
		}()
		loaders = append(loaders, writer)
	}

	fmt.Println("Reading IPUMS data...")
	reader := fixedwidth.NewReader(cfg.MicrodataPath, cfg.ShowProgress, logger)
	agg := pipeline.NewAggregator(reader, logger, metrics, loaders...)

	result, err := agg.Run(ctx)
	if err != nil {
		logger.Error("aggregation failed", "error", err)
		return 1
	}
	fmt.Printf("Saved %s PUMA wage calculations to %s\n", humanize.Comma(int64(len(result.Wages))), cfg.WageTablePath)

	if len(result.Wages) == 0 {
		fmt.Println("No eligible records; summary skipped.")
		return 0
	}
	summary, err := domain.Summarize(result.Wages, cfg.SummaryTopN)
	if err != nil {
		logger.Error("summary failed", "error", err)
		return 1
	}
	printSummary(os.Stdout, result, summary)
	return 0
}

func printSummary(w io.Writer, result domain.AggregateResult, s domain.WageSummary) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Records read:     %s\n", humanize.Comma(int64(result.RecordsRead)))
	fmt.Fprintf(w, "Records eligible: %s\n", humanize.Comma(int64(result.RecordsEligible)))
	reasons := make([]string, 0, len(result.Skipped))
	for r := range result.Skipped {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Fprintf(w, "  skipped %-18s %s\n", r+":", humanize.Comma(int64(result.Skipped[r])))
	}

	fmt.Fprintln(w, "\nSummary Statistics:")
	fmt.Fprintf(w, "Mean hourly wage: $%.2f\n", s.Mean)
	fmt.Fprintf(w, "Median hourly wage: $%.2f\n", s.Median)
	fmt.Fprintf(w, "Min hourly wage: $%.2f\n", s.Min)
	fmt.Fprintf(w, "Max hourly wage: $%.2f\n", s.Max)

	if len(s.Top) > 0 {
		fmt.Fprintf(w, "\nTop %d PUMAs by hourly wage:\n", len(s.Top))
		printAreas(w, s.Top)
		fmt.Fprintf(w, "\nBottom %d PUMAs by hourly wage:\n", len(s.Bottom))
		printAreas(w, s.Bottom)
	}
}

func printAreas(w io.Writer, areas []domain.AreaWage) {
	fmt.Fprintf(w, "  %-8s %s\n", "GEOID", "avg_hourly_wage")
	for _, a := range areas {
		fmt.Fprintf(w, "  %-8s %15.6f\n", a.GEOID, a.AvgHourlyWage)
	}
}
