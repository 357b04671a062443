package fixedwidth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/puma-wage-map/internal/domain"
	pb "gopkg.in/cheggaaa/pb.v1"
)

// maxLineBytes bounds a single extract line. IPUMS lines are a few hundred
// bytes even for wide extracts.
const maxLineBytes = 1 << 20

// ctxCheckEvery is how many lines are parsed between cancellation checks.
const ctxCheckEvery = 100_000

// Reader loads an IPUMS fixed-width extract into memory.
// It implements pipeline.RecordExtractor.
type Reader struct {
	path     string
	progress io.Writer
	logger   *slog.Logger
}

// NewReader creates a Reader for the extract at path. When showProgress is
// set a byte progress bar is drawn on stderr while reading.
func NewReader(path string, showProgress bool, logger *slog.Logger) *Reader {
	r := &Reader{path: path, logger: logger}
	if showProgress {
		r.progress = os.Stderr
	}
	return r
}

// ExtractRecords parses every non-blank line of the extract.
func (r *Reader) ExtractRecords(ctx context.Context) ([]domain.MicrodataRecord, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open microdata: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat microdata: %w", err)
	}
	r.logger.Info("reading microdata", "path", r.path, "bytes", info.Size())

	var src io.Reader = f
	if r.progress != nil {
		bar := pb.New64(info.Size()).SetUnits(pb.U_BYTES)
		bar.Output = r.progress
		bar.ShowSpeed = true
		bar.Start()
		defer bar.Finish()
		src = bar.NewProxyReader(f)
	}

	return ReadRecords(ctx, src)
}

// ReadRecords parses fixed-width lines from src. Blank lines are skipped.
func ReadRecords(ctx context.Context, src io.Reader) ([]domain.MicrodataRecord, error) {
	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var records []domain.MicrodataRecord
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, domain.ParseLine(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan microdata line %d: %w", lineNo+1, err)
	}
	return records, nil
}
