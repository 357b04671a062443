package fixedwidth

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/puma-wage-map/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func formatLine(t *testing.T, rec domain.MicrodataRecord) string {
	t.Helper()
	line, err := domain.FormatLine(rec)
	require.NoError(t, err)
	return line
}

func sampleLines(t *testing.T) []string {
	t.Helper()
	return []string{
		formatLine(t, domain.MicrodataRecord{
			StateFIP: domain.Some(6), PUMA: domain.Some(123), PersonWeight: domain.Some(12),
			WeeksWorked: domain.Some(52), UsualHours: domain.Some(40), WageIncome: domain.Some(52000),
		}),
		"",
		formatLine(t, domain.MicrodataRecord{
			StateFIP: domain.Some(36), PUMA: domain.Some(10), PersonWeight: domain.Some(3),
			WeeksWorked: domain.Some(0), UsualHours: domain.Some(0), WageIncome: domain.Some(0),
		}) + "\r",
	}
}

func TestReadRecords(t *testing.T) {
	src := strings.NewReader(strings.Join(sampleLines(t), "\n") + "\n")

	records, err := ReadRecords(context.Background(), src)
	require.NoError(t, err)

	require.Len(t, records, 2, "blank line skipped")
	assert.Equal(t, domain.Some(6), records[0].StateFIP)
	assert.Equal(t, domain.Some(52000), records[0].WageIncome)
	assert.Equal(t, domain.Some(36), records[1].StateFIP)
	assert.Equal(t, domain.Some(0), records[1].WageIncome)
}

func TestReadRecords_NoTrailingNewline(t *testing.T) {
	records, err := ReadRecords(context.Background(), strings.NewReader(sampleLines(t)[0]))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestReader_ExtractRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usa_00002.dat")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(sampleLines(t), "\n")), 0o600))

	r := NewReader(path, false, discardLogger())
	records, err := r.ExtractRecords(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestReader_ExtractRecords_WithProgress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usa_00002.dat")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(sampleLines(t), "\n")), 0o600))

	r := NewReader(path, true, discardLogger())
	r.progress = io.Discard
	records, err := r.ExtractRecords(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestReader_ExtractRecords_MissingFile(t *testing.T) {
	r := NewReader(filepath.Join(t.TempDir(), "nope.dat"), false, discardLogger())
	_, err := r.ExtractRecords(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
