package boundary

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/puma-wage-map/internal/adapter/geojson"
	"github.com/couchcryptid/puma-wage-map/internal/adapter/shapefile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewLoader_ByExtension(t *testing.T) {
	tests := []struct {
		path string
		want Loader
	}{
		{"data/tl_2022_us_puma20.shp", &shapefile.Loader{}},
		{"data/tl_2022_us_puma20.SHP", &shapefile.Loader{}},
		{"pumas.geojson", &geojson.Loader{}},
		{"pumas.json", &geojson.Loader{}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			l, err := NewLoader(tt.path, discardLogger())
			require.NoError(t, err)
			assert.IsType(t, tt.want, l)
		})
	}
}

func TestNewLoader_UnsupportedFormat(t *testing.T) {
	for _, path := range []string{"pumas.kml", "pumas"} {
		t.Run(path, func(t *testing.T) {
			_, err := NewLoader(path, discardLogger())
			require.ErrorIs(t, err, ErrUnsupportedFormat)
		})
	}
}

func TestNewLoader_LoadsGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pumas.geojson")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"FeatureCollection","features":[
  {"type":"Feature","properties":{"GEOID20":"0600123"},
   "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}]}`), 0o600))

	l, err := NewLoader(path, discardLogger())
	require.NoError(t, err)
	set, err := l.LoadBoundaries(t.Context())
	require.NoError(t, err)

	require.Len(t, set.Features, 1)
	assert.Equal(t, "0600123", set.Features[0].Attributes["GEOID20"])
}
