package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/puma-wage-map/internal/domain"
	"github.com/couchcryptid/puma-wage-map/internal/observability"
)

// WageSource reads the aggregated wage table.
type WageSource interface {
	ReadWages(ctx context.Context) ([]domain.AreaWage, error)
}

// BoundaryLoader reads boundary polygons and their attribute columns.
type BoundaryLoader interface {
	LoadBoundaries(ctx context.Context) (domain.BoundarySet, error)
}

// MapRenderer draws a choropleth to its destination.
type MapRenderer interface {
	RenderMap(ctx context.Context, m domain.ChoroplethMap) error
}

// MapBuilder joins wages onto boundaries and renders the result once.
type MapBuilder struct {
	wages      WageSource
	boundaries BoundaryLoader
	renderer   MapRenderer
	opts       domain.MapOptions
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewMapBuilder creates a MapBuilder.
func NewMapBuilder(w WageSource, b BoundaryLoader, r MapRenderer, opts domain.MapOptions, logger *slog.Logger, metrics *observability.Metrics) *MapBuilder {
	return &MapBuilder{
		wages:      w,
		boundaries: b,
		renderer:   r,
		opts:       opts,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run loads both inputs, builds the choropleth and renders it.
func (b *MapBuilder) Run(ctx context.Context) (domain.ChoroplethMap, error) {
	start := time.Now()
	b.logger.Info("loading wage data")
	wages, err := b.wages.ReadWages(ctx)
	if err != nil {
		return domain.ChoroplethMap{}, fmt.Errorf("read wages: %w", err)
	}

	set, err := b.boundaries.LoadBoundaries(ctx)
	if err != nil {
		return domain.ChoroplethMap{}, fmt.Errorf("load boundaries: %w", err)
	}
	b.observe("extract", start)
	b.logger.Info("boundaries loaded",
		"source", set.Source,
		"features", len(set.Features),
		"columns", set.Columns,
		"crs", set.CRS,
	)

	start = time.Now()
	m, err := domain.BuildMap(set, wages, b.opts)
	if err != nil {
		return domain.ChoroplethMap{}, err
	}
	b.observe("join", start)

	b.logger.Info("joined wages to boundaries", "id_column", m.IDColumn, "unmatched", m.Unmatched)
	if m.StateColumn == "" {
		b.logger.Warn("no state column found, skipping state exclusion", "tried", domain.StateColumnCandidates)
	} else {
		b.logger.Info("filtered states",
			"state_column", m.StateColumn,
			"excluded_states", b.opts.ExcludedStates,
			"before", len(m.Areas)+m.Excluded,
			"after", len(m.Areas),
		)
	}
	if m.Ceiling.Valid {
		b.logger.Info("clipped display values", "quantile", b.opts.ClipQuantile, "ceiling", m.Ceiling.Value)
	}

	b.metrics.AreasUnmatched.Set(float64(m.Unmatched))
	b.metrics.AreasExcluded.Set(float64(m.Excluded))

	if err := ctx.Err(); err != nil {
		return domain.ChoroplethMap{}, err
	}

	start = time.Now()
	if err := b.renderer.RenderMap(ctx, m); err != nil {
		return domain.ChoroplethMap{}, fmt.Errorf("render map: %w", err)
	}
	b.observe("render", start)

	b.metrics.AreasRendered.Set(float64(len(m.Areas)))
	b.metrics.LastSuccess.SetToCurrentTime()
	return m, nil
}

func (b *MapBuilder) observe(stage string, start time.Time) {
	b.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
