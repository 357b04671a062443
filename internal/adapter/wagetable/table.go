// Package wagetable reads and writes the per-area wage table that connects
// the aggregation and rendering stages.
package wagetable

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/puma-wage-map/internal/domain"
)

// Header is the column row of every wage table.
var Header = []string{"GEOID", "avg_hourly_wage"}

// Writer writes aggregated wages as CSV.
// It implements pipeline.WageLoader.
type Writer struct {
	path   string
	logger *slog.Logger
}

// NewWriter creates a Writer that replaces the file at path on each load.
func NewWriter(path string, logger *slog.Logger) *Writer {
	return &Writer{path: path, logger: logger}
}

// LoadWages writes one row per area, in result order.
func (w *Writer) LoadWages(_ context.Context, result domain.AggregateResult) error {
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create wage table directory: %w", err)
		}
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("create wage table: %w", err)
	}
	if err := Write(f, result.Wages); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close wage table: %w", err)
	}

	w.logger.Info("wage table written", "path", w.path, "rows", len(result.Wages))
	return nil
}

// Write encodes wages as CSV with a header row. Wages use the shortest
// decimal that round-trips.
func Write(dst io.Writer, wages []domain.AreaWage) error {
	cw := csv.NewWriter(dst)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write wage table header: %w", err)
	}
	for _, aw := range wages {
		row := []string{aw.GEOID, strconv.FormatFloat(aw.AvgHourlyWage, 'f', -1, 64)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write wage row %s: %w", aw.GEOID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush wage table: %w", err)
	}
	return nil
}

// Reader loads a wage table from disk.
// It implements pipeline.WageSource.
type Reader struct {
	path string
}

// NewReader creates a Reader for the table at path.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// ReadWages returns every row of the table. GEOIDs are kept as text.
func (r *Reader) ReadWages(_ context.Context) ([]domain.AreaWage, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open wage table: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes a wage table. Columns are located by header name so extra
// columns are tolerated. A blank wage cell is an error.
func Read(src io.Reader) ([]domain.AreaWage, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("wage table is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read wage table header: %w", err)
	}
	idCol, wageCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case Header[0]:
			idCol = i
		case Header[1]:
			wageCol = i
		}
	}
	if idCol < 0 || wageCol < 0 {
		return nil, fmt.Errorf("wage table header %v: want columns %v", header, Header)
	}

	var wages []domain.AreaWage
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read wage table: %w", err)
		}
		if len(row) <= max(idCol, wageCol) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("wage table line %d: %d columns", line, len(row))
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[wageCol]), 64)
		if err != nil {
			line, _ := cr.FieldPos(wageCol)
			return nil, fmt.Errorf("wage table line %d: parse wage: %w", line, err)
		}
		wages = append(wages, domain.AreaWage{GEOID: strings.TrimSpace(row[idCol]), AvgHourlyWage: v})
	}
	return wages, nil
}
