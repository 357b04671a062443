package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field is one fixed-width column: a 0-based, end-exclusive byte range.
type Field struct {
	Name  string
	Start int
	End   int
}

// Width returns the number of bytes the field occupies.
func (f Field) Width() int { return f.End - f.Start }

// Byte ranges of the IPUMS extract columns. These follow the extract codebook
// and must not be inferred from the data.
const (
	stateFIPStart, stateFIPEnd = 54, 56
	pumaStart, pumaEnd         = 56, 61
	perWtStart, perWtEnd       = 72, 82
	wksWorkStart, wksWorkEnd   = 92, 94
	uhrsWorkStart, uhrsWorkEnd = 94, 96
	incWageStart, incWageEnd   = 96, 102
)

var (
	FieldStateFIP = Field{Name: "STATEFIP", Start: stateFIPStart, End: stateFIPEnd}
	FieldPUMA     = Field{Name: "PUMA", Start: pumaStart, End: pumaEnd}
	FieldPerWt    = Field{Name: "PERWT", Start: perWtStart, End: perWtEnd}
	FieldWksWork  = Field{Name: "WKSWORK1", Start: wksWorkStart, End: wksWorkEnd}
	FieldUhrsWork = Field{Name: "UHRSWORK", Start: uhrsWorkStart, End: uhrsWorkEnd}
	FieldIncWage  = Field{Name: "INCWAGE", Start: incWageStart, End: incWageEnd}
)

// MicrodataLayout lists the parsed columns in record order.
var MicrodataLayout = []Field{
	FieldStateFIP,
	FieldPUMA,
	FieldPerWt,
	FieldWksWork,
	FieldUhrsWork,
	FieldIncWage,
}

// LineWidth is the minimum line length that holds every parsed column.
const LineWidth = incWageEnd

// Num is a numeric value that may be missing.
type Num struct {
	Value float64
	Valid bool
}

// Some wraps a present value.
func Some(v float64) Num { return Num{Value: v, Valid: true} }

// Positive reports whether the value is present and greater than zero.
func (n Num) Positive() bool { return n.Valid && n.Value > 0 }

// MicrodataRecord is one person line from the extract.
type MicrodataRecord struct {
	StateFIP     Num
	PUMA         Num
	PersonWeight Num
	WeeksWorked  Num
	UsualHours   Num
	WageIncome   Num
}

// Skip reasons reported by Classify.
const (
	SkipNonpositiveWeeks = "nonpositive_weeks"
	SkipNonpositiveHours = "nonpositive_hours"
	SkipNonpositiveWage  = "nonpositive_wage"
	SkipMissingKey       = "missing_key"
	SkipMissingWeight    = "missing_weight"
)

// ParseLine extracts the layout columns from one fixed-width line. It never
// fails: short lines and non-numeric text become missing values.
func ParseLine(line string) MicrodataRecord {
	return MicrodataRecord{
		StateFIP:     parseField(line, FieldStateFIP),
		PUMA:         parseField(line, FieldPUMA),
		PersonWeight: parseField(line, FieldPerWt),
		WeeksWorked:  parseField(line, FieldWksWork),
		UsualHours:   parseField(line, FieldUhrsWork),
		WageIncome:   parseField(line, FieldIncWage),
	}
}

func parseField(line string, f Field) Num {
	if len(line) < f.End {
		return Num{}
	}
	return ParseNum(line[f.Start:f.End])
}

// ParseNum coerces text to a number, returning a missing value when the text
// is blank, not numeric, or not finite.
func ParseNum(s string) Num {
	s = strings.TrimSpace(s)
	if s == "" {
		return Num{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Num{}
	}
	return Some(v)
}

// ErrFieldOverflow is returned when a value is negative or has more digits
// than its fixed-width field holds.
var ErrFieldOverflow = errors.New("value does not fit fixed-width field")

// FormatLine renders a record back into the fixed-width layout, right
// aligned and zero padded. Missing values are written as blanks. Bytes not
// covered by the layout are filled with '0'.
func FormatLine(rec MicrodataRecord) (string, error) {
	buf := []byte(strings.Repeat("0", LineWidth))
	cells := []struct {
		field Field
		value Num
	}{
		{FieldStateFIP, rec.StateFIP},
		{FieldPUMA, rec.PUMA},
		{FieldPerWt, rec.PersonWeight},
		{FieldWksWork, rec.WeeksWorked},
		{FieldUhrsWork, rec.UsualHours},
		{FieldIncWage, rec.WageIncome},
	}
	for _, c := range cells {
		w := c.field.Width()
		cell := strings.Repeat(" ", w)
		if c.value.Valid {
			v := int64(c.value.Value)
			cell = fmt.Sprintf("%0*d", w, v)
			if v < 0 || len(cell) > w {
				return "", fmt.Errorf("%s %d: %w", c.field.Name, v, ErrFieldOverflow)
			}
		}
		copy(buf[c.field.Start:c.field.End], cell)
	}
	return string(buf), nil
}

// Classify returns "" when the record can contribute to a wage estimate, or
// the reason it is skipped.
func Classify(rec MicrodataRecord) string {
	switch {
	case !rec.WeeksWorked.Positive():
		return SkipNonpositiveWeeks
	case !rec.UsualHours.Positive():
		return SkipNonpositiveHours
	case !rec.WageIncome.Positive():
		return SkipNonpositiveWage
	case !rec.StateFIP.Valid || !rec.PUMA.Valid:
		return SkipMissingKey
	case !rec.PersonWeight.Valid:
		return SkipMissingWeight
	default:
		return ""
	}
}

// HourlyWage is annual wage income divided by total hours worked in the year.
// Callers must only pass records accepted by Classify.
func HourlyWage(rec MicrodataRecord) float64 {
	return rec.WageIncome.Value / (rec.UsualHours.Value * rec.WeeksWorked.Value)
}

// GEOID joins a state code and a PUMA code into the 7-character area key.
func GEOID(stateFIP, puma int) string {
	return fmt.Sprintf("%02d%05d", stateFIP, puma)
}

// RecordGEOID builds the area key for a record accepted by Classify.
func RecordGEOID(rec MicrodataRecord) string {
	return GEOID(int(rec.StateFIP.Value), int(rec.PUMA.Value))
}
