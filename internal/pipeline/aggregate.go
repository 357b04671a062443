package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/puma-wage-map/internal/domain"
	"github.com/couchcryptid/puma-wage-map/internal/observability"
)

// RecordExtractor reads every microdata record from the source.
type RecordExtractor interface {
	ExtractRecords(ctx context.Context) ([]domain.MicrodataRecord, error)
}

// WageLoader writes aggregated area wages to a destination.
type WageLoader interface {
	LoadWages(ctx context.Context, result domain.AggregateResult) error
}

// Aggregator runs the extract, aggregate and load stages once.
type Aggregator struct {
	extractor RecordExtractor
	loaders   []WageLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewAggregator creates an Aggregator. Loaders run in the given order.
func NewAggregator(e RecordExtractor, logger *slog.Logger, metrics *observability.Metrics, loaders ...WageLoader) *Aggregator {
	return &Aggregator{
		extractor: e,
		loaders:   loaders,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run reads all records, computes per-area weighted mean wages and hands the
// result to each loader. Nothing is loaded unless aggregation succeeds.
func (a *Aggregator) Run(ctx context.Context) (domain.AggregateResult, error) {
	start := time.Now()
	records, err := a.extractor.ExtractRecords(ctx)
	if err != nil {
		return domain.AggregateResult{}, fmt.Errorf("extract records: %w", err)
	}
	a.observe("extract", start)
	a.logger.Info("microdata loaded", "records", len(records))

	start = time.Now()
	result, err := domain.Aggregate(records)
	if err != nil {
		return domain.AggregateResult{}, err
	}
	a.observe("aggregate", start)

	a.metrics.RecordsRead.Add(float64(result.RecordsRead))
	a.metrics.RecordsEligible.Add(float64(result.RecordsEligible))
	for reason, n := range result.Skipped {
		a.metrics.RecordsSkipped.WithLabelValues(reason).Add(float64(n))
	}
	a.metrics.AreasAggregated.Set(float64(len(result.Wages)))
	a.logger.Info("weighted wages computed",
		"areas", len(result.Wages),
		"eligible", result.RecordsEligible,
		"skipped", result.RecordsRead-result.RecordsEligible,
	)

	if err := ctx.Err(); err != nil {
		return domain.AggregateResult{}, err
	}

	start = time.Now()
	for _, l := range a.loaders {
		if err := l.LoadWages(ctx, result); err != nil {
			return domain.AggregateResult{}, fmt.Errorf("load wages: %w", err)
		}
	}
	a.observe("load", start)

	a.metrics.LastSuccess.SetToCurrentTime()
	return result, nil
}

func (a *Aggregator) observe(stage string, start time.Time) {
	a.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
