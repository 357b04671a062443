// Package svg draws choropleth maps as SVG documents with gonum/plot.
package svg

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/couchcryptid/puma-wage-map/internal/domain"
	"github.com/paulmach/orb"
	xfont "golang.org/x/image/font"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgsvg"
)

// LegendLabel captions the color bar.
const LegendLabel = "Average Hourly Wage ($)"

const (
	mapWidth     = 20 * vg.Inch
	legendWidth  = 1.5 * vg.Inch
	minMapHeight = 4 * vg.Inch
	maxMapHeight = 30 * vg.Inch
	legendSteps  = 64
	edgeWidth    = 0.1
	titleSize    = 16
)

// ErrNoGeometry is returned when no area has drawable geometry.
var ErrNoGeometry = errors.New("choropleth has no geometry to draw")

// Renderer writes a choropleth to a single SVG file.
// It implements pipeline.MapRenderer.
type Renderer struct {
	path   string
	title  string
	logger *slog.Logger
}

// NewRenderer creates a Renderer writing to path.
func NewRenderer(path, title string, logger *slog.Logger) *Renderer {
	return &Renderer{path: path, title: title, logger: logger}
}

// RenderMap draws every area, filled by its display wage, next to a color
// bar legend. The file is only created once drawing has succeeded.
func (r *Renderer) RenderMap(_ context.Context, m domain.ChoroplethMap) error {
	bound, ok := mapBound(m.Areas)
	if !ok {
		return ErrNoGeometry
	}

	lo, hi, ok := displayRange(m.Areas)
	if !ok {
		lo, hi = 0, 1
		r.logger.Warn("no area has a wage, drawing outlines only")
	}
	ramp, err := NewBluesRamp(lo, hi)
	if err != nil {
		return err
	}

	mp, err := r.mapPlot(m.Areas, ramp)
	if err != nil {
		return err
	}
	lp, err := legendPlot(ramp)
	if err != nil {
		return err
	}

	height := canvasHeight(bound)
	canvas := vgsvg.New(mapWidth+legendWidth, height)
	dc := draw.New(canvas)
	mp.Draw(draw.Crop(dc, 0, -legendWidth, 0, 0))
	lp.Draw(draw.Crop(dc, mapWidth, 0, height/4, -height/4))

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create map directory: %w", err)
		}
	}
	f, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("create map file: %w", err)
	}
	if _, err := canvas.WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write svg: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close map file: %w", err)
	}

	r.logger.Info("map saved", "path", r.path, "areas", len(m.Areas), "legend_min", lo, "legend_max", hi)
	return nil
}

func (r *Renderer) mapPlot(areas []domain.MapArea, ramp *Ramp) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = r.title
	p.Title.TextStyle.Font.Size = vg.Points(titleSize)
	p.Title.TextStyle.Font.Weight = xfont.WeightBold
	p.HideAxes()

	for _, a := range areas {
		var fill color.Color
		if a.Display.Valid {
			fill = ramp.At(a.Display.Value)
		}
		for _, poly := range a.Geometry {
			pg, err := polygonPlotter(poly)
			if err != nil {
				return nil, fmt.Errorf("area %s: %w", a.GEOID, err)
			}
			if pg == nil {
				continue
			}
			pg.Color = fill
			pg.LineStyle.Color = color.White
			pg.LineStyle.Width = vg.Points(edgeWidth)
			p.Add(pg)
		}
	}
	return p, nil
}

func polygonPlotter(poly orb.Polygon) (*plotter.Polygon, error) {
	rings := make([]plotter.XYer, 0, len(poly))
	for _, ring := range poly {
		if len(ring) < 3 {
			continue
		}
		xys := make(plotter.XYs, len(ring))
		for i, pt := range ring {
			xys[i].X, xys[i].Y = pt.X(), pt.Y()
		}
		rings = append(rings, xys)
	}
	if len(rings) == 0 {
		return nil, nil
	}
	return plotter.NewPolygon(rings...)
}

// legendPlot draws the color bar as stacked rectangles over the ramp range.
func legendPlot(ramp *Ramp) (*plot.Plot, error) {
	lo, hi := ramp.Range()
	if hi <= lo {
		hi = lo + 1
	}

	p := plot.New()
	p.HideX()
	p.Y.Label.Text = LegendLabel

	step := (hi - lo) / legendSteps
	for i := range legendSteps {
		y0 := lo + float64(i)*step
		y1 := y0 + step
		pg, err := plotter.NewPolygon(plotter.XYs{{X: 0, Y: y0}, {X: 1, Y: y0}, {X: 1, Y: y1}, {X: 0, Y: y1}})
		if err != nil {
			return nil, fmt.Errorf("legend step %d: %w", i, err)
		}
		pg.Color = ramp.At(y0 + step/2)
		pg.LineStyle.Width = 0
		p.Add(pg)
	}
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = lo, hi
	return p, nil
}

func mapBound(areas []domain.MapArea) (orb.Bound, bool) {
	var b orb.Bound
	found := false
	for _, a := range areas {
		if len(a.Geometry) == 0 {
			continue
		}
		ab := a.Geometry.Bound()
		if !found {
			b, found = ab, true
			continue
		}
		b = b.Union(ab)
	}
	return b, found
}

// displayRange returns the min and max display value over areas with a wage.
func displayRange(areas []domain.MapArea) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, a := range areas {
		if !a.Display.Valid {
			continue
		}
		lo = math.Min(lo, a.Display.Value)
		hi = math.Max(hi, a.Display.Value)
		ok = true
	}
	return lo, hi, ok
}

// canvasHeight keeps the data aspect ratio for the fixed map width.
func canvasHeight(b orb.Bound) vg.Length {
	w, h := b.Max.X()-b.Min.X(), b.Max.Y()-b.Min.Y()
	if w <= 0 || h <= 0 {
		return minMapHeight
	}
	height := vg.Length(float64(mapWidth) * h / w)
	return max(minMapHeight, min(maxMapHeight, height))
}
