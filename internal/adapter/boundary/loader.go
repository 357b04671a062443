// Package boundary selects the reader for a PUMA boundary dataset.
package boundary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/puma-wage-map/internal/adapter/geojson"
	"github.com/couchcryptid/puma-wage-map/internal/adapter/shapefile"
	"github.com/couchcryptid/puma-wage-map/internal/domain"
)

// ErrUnsupportedFormat is returned for a path whose extension has no reader.
var ErrUnsupportedFormat = errors.New("unsupported boundary format")

// Loader reads a boundary dataset. It satisfies pipeline.BoundaryLoader.
type Loader interface {
	LoadBoundaries(ctx context.Context) (domain.BoundarySet, error)
}

// NewLoader picks the reader for path by its extension, case-insensitively:
// .shp for shapefiles, .geojson or .json for GeoJSON.
func NewLoader(path string, logger *slog.Logger) (Loader, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".shp":
		return shapefile.NewLoader(path, logger), nil
	case ".geojson", ".json":
		return geojson.NewLoader(path, logger), nil
	default:
		return nil, fmt.Errorf("%w %q: want .shp, .geojson or .json", ErrUnsupportedFormat, ext)
	}
}
