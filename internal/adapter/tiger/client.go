// Package tiger downloads Census TIGER/Line PUMA boundary shapefiles.
package tiger

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	pb "gopkg.in/cheggaaa/pb.v1"
)

// DefaultBaseURL is the Census Bureau TIGER/Line root.
const DefaultBaseURL = "https://www2.census.gov/geo/tiger"

// FirstPUMA20Year is the first TIGER vintage published with 2020 PUMAs.
const FirstPUMA20Year = 2022

// shapefileParts are the archive members a shapefile reader needs.
var shapefileParts = map[string]bool{".shp": true, ".shx": true, ".dbf": true, ".prj": true, ".cpg": true}

// Client fetches national PUMA boundary archives.
type Client struct {
	httpClient *http.Client
	baseURL    string
	progress   io.Writer
	logger     *slog.Logger
}

// NewClient creates a TIGER download client. When showProgress is set a
// byte progress bar is drawn on stderr during downloads.
func NewClient(timeout time.Duration, showProgress bool, logger *slog.Logger) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: DefaultBaseURL,
		logger:  logger,
	}
	if showProgress {
		c.progress = os.Stderr
	}
	return c
}

// ArchiveName is the national PUMA archive file name for a vintage.
func ArchiveName(year int) string {
	return fmt.Sprintf("tl_%d_us_puma20.zip", year)
}

// ArchiveURL returns the download location of the national PUMA archive.
func (c *Client) ArchiveURL(year int) string {
	return fmt.Sprintf("%s/TIGER%d/PUMA20/%s", c.baseURL, year, ArchiveName(year))
}

// Check confirms the archive for year is published without downloading it.
func (c *Client) Check(ctx context.Context, year int) error {
	if year < FirstPUMA20Year {
		return fmt.Errorf("TIGER %d has no 2020 PUMA boundaries (first vintage %d)", year, FirstPUMA20Year)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.ArchiveURL(year), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("check archive: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tiger archive %s: status %d", ArchiveName(year), resp.StatusCode)
	}
	return nil
}

// Download fetches the archive for year, extracts the shapefile members into
// dir and returns the path of the .shp file.
func (c *Client) Download(ctx context.Context, year int, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create boundary directory: %w", err)
	}

	archive, err := os.CreateTemp(dir, ".tiger-*.zip")
	if err != nil {
		return "", fmt.Errorf("create temp archive: %w", err)
	}
	defer func() {
		archive.Close()
		os.Remove(archive.Name())
	}()

	size, err := c.fetch(ctx, c.ArchiveURL(year), archive)
	if err != nil {
		return "", err
	}
	c.logger.Info("tiger archive downloaded", "year", year, "bytes", size)

	return extractShapefile(archive, size, dir)
}

func (c *Client) fetch(ctx context.Context, url string, dst io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("tiger download error: status %d: %s", resp.StatusCode, body)
	}

	var src io.Reader = resp.Body
	if c.progress != nil && resp.ContentLength > 0 {
		bar := pb.New64(resp.ContentLength).SetUnits(pb.U_BYTES)
		bar.Output = c.progress
		bar.Start()
		defer bar.Finish()
		src = bar.NewProxyReader(resp.Body)
	}

	n, err := io.Copy(dst, src)
	if err != nil {
		return 0, fmt.Errorf("read archive body: %w", err)
	}
	return n, nil
}

// extractShapefile writes the shapefile members of a zip archive into dir.
// Member paths are flattened to their base name.
func extractShapefile(r io.ReaderAt, size int64, dir string) (string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}

	var shpPath string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(f.Name)
		ext := strings.ToLower(filepath.Ext(name))
		if !shapefileParts[ext] {
			continue
		}
		dst := filepath.Join(dir, name)
		if err := extractFile(f, dst); err != nil {
			return "", err
		}
		if ext == ".shp" {
			shpPath = dst
		}
	}
	if shpPath == "" {
		return "", errors.New("archive contains no .shp file")
	}
	return shpPath, nil
}

func extractFile(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return out.Close()
}
