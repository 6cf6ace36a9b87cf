// Package report turns per-month counts into year tables, persists them as
// two-line CSV checkpoints and compiles multi-year reports.
package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// UnknownMarker is written for a window whose total the endpoint did not report.
const UnknownMarker = "?"

var ErrMalformed = errors.New("report: malformed table")

// MonthNames are the year table header labels, January first.
var MonthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Count is one window's result. The zero value is a known count of 0;
// use Unknown() for "no usable total", which is distinct from zero.
type Count struct {
	Value int64
	Known bool
}

func Known(v int64) Count { return Count{Value: v, Known: true} }
func Unknown() Count      { return Count{} }

func (c Count) String() string {
	if !c.Known {
		return UnknownMarker
	}
	return strconv.FormatInt(c.Value, 10)
}

// ParseCount parses a rendered cell. Anything that is not an integer is read
// back as unknown, so markers survive a round trip verbatim.
func ParseCount(s string) Count {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return Unknown()
	}
	return Known(v)
}

// YearTable holds the 12 monthly counts of one year, January first.
type YearTable struct {
	Year   int
	Counts [12]Count
}

// Format renders the table as two comma-joined lines: month names, then values.
func (t YearTable) Format() string {
	vals := make([]string, len(t.Counts))
	for i, c := range t.Counts {
		vals[i] = c.String()
	}
	return strings.Join(MonthNames[:], ",") + "\n" + strings.Join(vals, ",")
}

// ParseYearTable reads a table produced by Format.
func ParseYearTable(year int, raw string) (YearTable, error) {
	lines := strings.Split(strings.TrimRight(strings.ReplaceAll(raw, "\r\n", "\n"), "\n"), "\n")
	if len(lines) < 2 {
		return YearTable{}, fmt.Errorf("%w: year %d: want 2 lines, got %d", ErrMalformed, year, len(lines))
	}
	header := strings.Split(lines[0], ",")
	values := strings.Split(lines[1], ",")
	if len(header) != 12 || len(values) != 12 {
		return YearTable{}, fmt.Errorf("%w: year %d: want 12 columns, got %d/%d", ErrMalformed, year, len(header), len(values))
	}

	t := YearTable{Year: year}
	for i := range values {
		if !strings.EqualFold(strings.TrimSpace(header[i]), MonthNames[i]) {
			return YearTable{}, fmt.Errorf("%w: year %d: column %d is %q, want %s", ErrMalformed, year, i+1, header[i], MonthNames[i])
		}
		t.Counts[i] = ParseCount(values[i])
	}
	return t, nil
}
