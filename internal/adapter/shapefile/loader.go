// Package shapefile loads ESRI shapefile boundaries. Geometry comes from the
// .shp file and attributes from the sibling .dbf table; both are read in
// record order so the nth shape pairs with the nth attribute row.
package shapefile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Valentin-Kaiser/go-dbase/dbase"
	"github.com/couchcryptid/puma-wage-map/internal/domain"
	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
)

// Loader reads a shapefile into a domain.BoundarySet.
// It implements pipeline.BoundaryLoader.
type Loader struct {
	path   string
	logger *slog.Logger
}

// NewLoader creates a Loader for the .shp file at path.
func NewLoader(path string, logger *slog.Logger) *Loader {
	return &Loader{path: path, logger: logger}
}

type attrRow struct {
	values  map[string]string
	deleted bool
}

// LoadBoundaries reads every non-deleted record of the shapefile.
func (l *Loader) LoadBoundaries(ctx context.Context) (domain.BoundarySet, error) {
	base := strings.TrimSuffix(l.path, filepath.Ext(l.path))

	columns, rows, err := readAttributes(base + ".dbf")
	if err != nil {
		return domain.BoundarySet{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.BoundarySet{}, err
	}

	geoms, err := readGeometry(l.path)
	if err != nil {
		return domain.BoundarySet{}, err
	}
	if len(geoms) != len(rows) {
		return domain.BoundarySet{}, fmt.Errorf("shapefile %s: %d shapes but %d attribute rows", l.path, len(geoms), len(rows))
	}

	set := domain.BoundarySet{
		Source:   l.path,
		CRS:      readCRS(base + ".prj"),
		Columns:  columns,
		Features: make([]domain.Feature, 0, len(rows)),
	}
	for i, row := range rows {
		if row.deleted {
			continue
		}
		set.Features = append(set.Features, domain.Feature{Attributes: row.values, Geometry: geoms[i]})
	}
	if deleted := len(rows) - len(set.Features); deleted > 0 {
		l.logger.Debug("skipped deleted shapefile records", "count", deleted)
	}
	return set, nil
}

func readAttributes(path string) ([]string, []attrRow, error) {
	// Shapefile attribute tables are dBase III (0x03), which go-dbase only
	// opens with Untested set.
	table, err := dbase.OpenTable(&dbase.Config{
		Filename:   path,
		TrimSpaces: true,
		Untested:   true,
		ReadOnly:   true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open attribute table %s: %w", path, err)
	}
	defer table.Close()

	columns := table.ColumnNames()
	var rows []attrRow
	for !table.EOF() {
		row, err := table.Next()
		if err != nil {
			return nil, nil, fmt.Errorf("read attribute row %d: %w", len(rows)+1, err)
		}
		values := make(map[string]string, len(columns))
		for _, name := range columns {
			v, err := row.ValueByName(name)
			if err != nil {
				return nil, nil, fmt.Errorf("read attribute %s row %d: %w", name, len(rows)+1, err)
			}
			values[name] = attributeString(v)
		}
		rows = append(rows, attrRow{values: values, deleted: row.Deleted})
	}
	return columns, rows, nil
}

// attributeString renders a dBase value as text. Numeric keys keep no
// trailing ".0" so identifier columns stored as numbers still join.
func attributeString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int:
		return strconv.Itoa(t)
	case []byte:
		return strings.TrimSpace(string(t))
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func readGeometry(path string) ([]orb.MultiPolygon, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer r.Close()

	var geoms []orb.MultiPolygon
	for r.Next() {
		_, shape := r.Shape()
		switch s := shape.(type) {
		case *shp.Polygon:
			geoms = append(geoms, ringsToMultiPolygon(s.Parts, s.Points))
		case *shp.PolygonZ:
			geoms = append(geoms, ringsToMultiPolygon(s.Parts, s.Points))
		case *shp.PolygonM:
			geoms = append(geoms, ringsToMultiPolygon(s.Parts, s.Points))
		case *shp.Null, nil:
			geoms = append(geoms, nil)
		default:
			return nil, fmt.Errorf("shapefile %s: unsupported shape %T", path, shape)
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile %s: %w", path, err)
	}
	return geoms, nil
}

// ringsToMultiPolygon splits a shapefile part list into polygons. Shapefile
// outer rings wind clockwise and holes counter-clockwise; each clockwise ring
// starts a new polygon and following holes attach to it.
func ringsToMultiPolygon(parts []int32, points []shp.Point) orb.MultiPolygon {
	var mp orb.MultiPolygon
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start >= end || int(end) > len(points) {
			continue
		}

		ring := make(orb.Ring, 0, end-start+1)
		for _, p := range points[start:end] {
			ring = append(ring, orb.Point{p.X, p.Y})
		}
		if !ring.Closed() {
			ring = append(ring, ring[0])
		}
		if len(ring) < 4 {
			continue
		}

		if ring.Orientation() == orb.CCW && len(mp) > 0 {
			last := len(mp) - 1
			mp[last] = append(mp[last], ring)
			continue
		}
		mp = append(mp, orb.Polygon{ring})
	}
	return mp
}

// readCRS returns the WKT projection from the .prj sidecar, or "unknown".
func readCRS(path string) string {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "unknown"
	}
	if err != nil {
		return "unreadable: " + err.Error()
	}
	return strings.TrimSpace(string(data))
}
