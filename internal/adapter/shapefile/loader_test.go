package shapefile

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/puma-wage-map/internal/adapter/svg"
	"github.com/couchcryptid/puma-wage-map/internal/adapter/wagetable"
	"github.com/couchcryptid/puma-wage-map/internal/domain"
	"github.com/couchcryptid/puma-wage-map/internal/observability"
	"github.com/couchcryptid/puma-wage-map/internal/pipeline"
	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Clockwise square (outer ring in shapefile winding).
func cwSquare(x, y, size float64) []shp.Point {
	return []shp.Point{{X: x, Y: y}, {X: x, Y: y + size}, {X: x + size, Y: y + size}, {X: x + size, Y: y}, {X: x, Y: y}}
}

// Counter-clockwise square (hole winding).
func ccwSquare(x, y, size float64) []shp.Point {
	return []shp.Point{{X: x, Y: y}, {X: x + size, Y: y}, {X: x + size, Y: y + size}, {X: x, Y: y + size}, {X: x, Y: y}}
}

func flatten(rings ...[]shp.Point) ([]int32, []shp.Point) {
	var parts []int32
	var points []shp.Point
	for _, r := range rings {
		parts = append(parts, int32(len(points)))
		points = append(points, r...)
	}
	return parts, points
}

func TestRingsToMultiPolygon_OuterWithHole(t *testing.T) {
	parts, points := flatten(cwSquare(0, 0, 10), ccwSquare(2, 2, 2))

	mp := ringsToMultiPolygon(parts, points)

	require.Len(t, mp, 1)
	require.Len(t, mp[0], 2)
	assert.Equal(t, orb.CW, mp[0][0].Orientation())
	assert.Equal(t, orb.CCW, mp[0][1].Orientation())
}

func TestRingsToMultiPolygon_Islands(t *testing.T) {
	parts, points := flatten(cwSquare(0, 0, 1), cwSquare(5, 5, 1), ccwSquare(5.2, 5.2, 0.2))

	mp := ringsToMultiPolygon(parts, points)

	require.Len(t, mp, 2)
	assert.Len(t, mp[0], 1)
	assert.Len(t, mp[1], 2)
}

func TestRingsToMultiPolygon_ClosesOpenRingsAndDropsDegenerate(t *testing.T) {
	open := cwSquare(0, 0, 1)[:4]
	parts, points := flatten(open, []shp.Point{{X: 3, Y: 3}, {X: 3, Y: 4}})

	mp := ringsToMultiPolygon(parts, points)

	require.Len(t, mp, 1)
	ring := mp[0][0]
	assert.True(t, ring.Closed())
	assert.Len(t, ring, 5)
}

func TestRingsToMultiPolygon_LeadingHoleBecomesPolygon(t *testing.T) {
	parts, points := flatten(ccwSquare(0, 0, 1))

	mp := ringsToMultiPolygon(parts, points)

	require.Len(t, mp, 1)
}

func TestAttributeString(t *testing.T) {
	assert.Equal(t, "0600123", attributeString("0600123  "))
	assert.Equal(t, "600123", attributeString(float64(600123)))
	assert.Equal(t, "12.5", attributeString(12.5))
	assert.Equal(t, "42", attributeString(int64(42)))
	assert.Equal(t, "", attributeString(nil))
	assert.Equal(t, "true", attributeString(true))
}

func TestReadGeometry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pumas.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	first := shp.Polygon(*shp.NewPolyLine([][]shp.Point{cwSquare(0, 0, 10), ccwSquare(2, 2, 2)}))
	second := shp.Polygon(*shp.NewPolyLine([][]shp.Point{cwSquare(20, 0, 5)}))
	w.Write(&first)
	w.Write(&second)
	w.Close()

	geoms, err := readGeometry(path)
	require.NoError(t, err)

	require.Len(t, geoms, 2)
	require.Len(t, geoms[0], 1)
	assert.Len(t, geoms[0][0], 2, "hole attached to outer ring")
	assert.Equal(t, orb.Bound{Min: orb.Point{20, 0}, Max: orb.Point{25, 5}}, geoms[1].Bound())
}

func TestReadCRS(t *testing.T) {
	dir := t.TempDir()
	prj := filepath.Join(dir, "pumas.prj")
	require.NoError(t, os.WriteFile(prj, []byte(`GEOGCS["GCS_North_American_1983"]`+"\n"), 0o600))

	assert.Equal(t, `GEOGCS["GCS_North_American_1983"]`, readCRS(prj))
	assert.Equal(t, "unknown", readCRS(filepath.Join(dir, "missing.prj")))
}

func TestLoadBoundaries_MissingAttributeTable(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "missing.shp"), nil)

	_, err := l.LoadBoundaries(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open attribute table")
}

// writePUMAShapefile writes a two-record polygon shapefile with a dBase
// attribute table and returns the .shp path.
func writePUMAShapefile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "tl_2022_us_puma20.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("GEOID20", 7),
		shp.StringField("STATEFP20", 2),
	}))
	records := []struct {
		geoid, state string
		ring         []shp.Point
	}{
		{"0600101", "06", cwSquare(0, 0, 10)},
		{"5300200", "53", cwSquare(20, 0, 5)},
	}
	for _, r := range records {
		poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{r.ring}))
		row := int(w.Write(&poly))
		require.NoError(t, w.WriteAttribute(row, 0, r.geoid))
		require.NoError(t, w.WriteAttribute(row, 1, r.state))
	}
	w.Close()

	// go-shp drops the dot when naming the attribute sidecar.
	base := strings.TrimSuffix(path, ".shp")
	if _, err := os.Stat(base + "dbf"); err == nil {
		require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
	}
	return path
}

func TestLoadBoundaries_ReadsAttributesAndGeometry(t *testing.T) {
	path := writePUMAShapefile(t, t.TempDir())

	set, err := NewLoader(path, slog.New(slog.NewTextHandler(io.Discard, nil))).LoadBoundaries(t.Context())
	require.NoError(t, err)

	assert.Equal(t, path, set.Source)
	assert.Equal(t, "unknown", set.CRS)
	assert.Equal(t, []string{"GEOID20", "STATEFP20"}, set.Columns)
	require.Len(t, set.Features, 2)

	assert.Equal(t, "0600101", set.Features[0].Attributes["GEOID20"])
	assert.Equal(t, "06", set.Features[0].Attributes["STATEFP20"])
	assert.Equal(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}, set.Features[0].Geometry.Bound())

	assert.Equal(t, "5300200", set.Features[1].Attributes["GEOID20"])
	assert.Equal(t, "53", set.Features[1].Attributes["STATEFP20"])
	assert.Equal(t, orb.Bound{Min: orb.Point{20, 0}, Max: orb.Point{25, 5}}, set.Features[1].Geometry.Bound())
}

func TestLoadBoundaries_RendersThroughMapBuilder(t *testing.T) {
	dir := t.TempDir()
	shpPath := writePUMAShapefile(t, dir)
	tablePath := filepath.Join(dir, "puma_hourly_wages.csv")
	require.NoError(t, os.WriteFile(tablePath, []byte("GEOID,avg_hourly_wage\n0600101,38.2\n5300200,41.5\n"), 0o600))
	mapPath := filepath.Join(dir, "map.svg")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	b := pipeline.NewMapBuilder(
		wagetable.NewReader(tablePath),
		NewLoader(shpPath, logger),
		svg.NewRenderer(mapPath, "Average Hourly Wage by PUMA", logger),
		domain.MapOptions{ExcludedStates: domain.DefaultExcludedStates, ClipQuantile: domain.DefaultClipQuantile},
		logger,
		observability.NewMetrics(),
	)

	m, err := b.Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, "GEOID20", m.IDColumn)
	require.Len(t, m.Areas, 2)
	for _, a := range m.Areas {
		assert.True(t, a.Wage.Valid, "wage joined for %s", a.GEOID)
	}
	data, err := os.ReadFile(mapPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
}
