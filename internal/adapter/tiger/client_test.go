package tiger

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func buildArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestClient_ArchiveURL(t *testing.T) {
	c := NewClient(time.Second, false, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, "https://www2.census.gov/geo/tiger/TIGER2022/PUMA20/tl_2022_us_puma20.zip", c.ArchiveURL(2022))
}

func TestClient_Download_Success(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"tl_2022_us_puma20.shp":         "shp",
		"tl_2022_us_puma20.dbf":         "dbf",
		"tl_2022_us_puma20.prj":         "prj",
		"tl_2022_us_puma20.shp.iso.xml": "metadata",
		"tl_2022_us_puma20/nested.shx":  "shx",
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/TIGER2022/PUMA20/tl_2022_us_puma20.zip", r.URL.Path)
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "boundaries")
	shpPath, err := testClient(srv.URL).Download(context.Background(), 2022, dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "tl_2022_us_puma20.shp"), shpPath)
	for _, name := range []string{"tl_2022_us_puma20.shp", "tl_2022_us_puma20.dbf", "tl_2022_us_puma20.prj", "nested.shx"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.NoFileExists(t, filepath.Join(dir, "tl_2022_us_puma20.shp.iso.xml"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 4, "temp archive removed")
}

func TestClient_Download_NoShapefile(t *testing.T) {
	archive := buildArchive(t, map[string]string{"readme.txt": "nothing here"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Download(context.Background(), 2022, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .shp")
}

func TestClient_Download_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("Not Found"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Download(context.Background(), 2031, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestClient_Download_NotZip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Download(context.Background(), 2022, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open archive")
}

func TestClient_Download_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.Download(context.Background(), 2022, t.TempDir())
	require.Error(t, err)
}

func TestClient_Check(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		if r.URL.Path != "/TIGER2023/PUMA20/tl_2023_us_puma20.zip" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	assert.NoError(t, c.Check(context.Background(), 2023))
	assert.ErrorContains(t, c.Check(context.Background(), 2024), "404")
	assert.ErrorContains(t, c.Check(context.Background(), 2019), "no 2020 PUMA")
}
