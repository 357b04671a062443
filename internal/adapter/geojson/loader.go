// Package geojson loads boundary polygons from a GeoJSON FeatureCollection.
package geojson

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/puma-wage-map/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DefaultCRS is the coordinate system RFC 7946 mandates for GeoJSON.
const DefaultCRS = "EPSG:4326"

// Loader reads a GeoJSON file into a domain.BoundarySet.
// It implements pipeline.BoundaryLoader.
type Loader struct {
	path   string
	logger *slog.Logger
}

// NewLoader creates a Loader for the file at path.
func NewLoader(path string, logger *slog.Logger) *Loader {
	return &Loader{path: path, logger: logger}
}

// LoadBoundaries decodes the collection. Polygon and MultiPolygon features
// are kept; other geometry types are skipped with a warning.
func (l *Loader) LoadBoundaries(_ context.Context) (domain.BoundarySet, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return domain.BoundarySet{}, fmt.Errorf("read geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return domain.BoundarySet{}, fmt.Errorf("decode geojson %s: %w", l.path, err)
	}

	set := domain.BoundarySet{Source: l.path, CRS: DefaultCRS}
	seen := make(map[string]struct{})
	skipped := 0
	for _, f := range fc.Features {
		mp, ok := toMultiPolygon(f.Geometry)
		if !ok {
			skipped++
			continue
		}

		keys := make([]string, 0, len(f.Properties))
		for k := range f.Properties {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		attrs := make(map[string]string, len(keys))
		for _, k := range keys {
			attrs[k] = propertyString(f.Properties[k])
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				set.Columns = append(set.Columns, k)
			}
		}
		set.Features = append(set.Features, domain.Feature{Attributes: attrs, Geometry: mp})
	}
	if skipped > 0 {
		l.logger.Warn("skipped non-polygon features", "count", skipped, "path", l.path)
	}
	return set, nil
}

func toMultiPolygon(g orb.Geometry) (orb.MultiPolygon, bool) {
	switch t := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{t}, true
	case orb.MultiPolygon:
		return t, true
	default:
		return nil, false
	}
}

// propertyString renders a JSON property as text. Numbers use the shortest
// form so an identifier stored as a number loses no digits.
func propertyString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
