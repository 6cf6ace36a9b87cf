package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wordtally/internal/storage"
	"wordtally/internal/window"
	logx "wordtally/pkg/logx"
)

var ErrMissingYearData = errors.New("missing year data")

// MissingYearError reports the year that stopped a compile.
type MissingYearError struct {
	Year     int
	Term     string
	ReportID string
	Err      error
}

func (e *MissingYearError) Error() string {
	return fmt.Sprintf("%v: report %q term %q year %d: %v", ErrMissingYearData, e.ReportID, e.Term, e.Year, e.Err)
}

func (e *MissingYearError) Is(target error) bool { return target == ErrMissingYearData }
func (e *MissingYearError) Unwrap() error        { return e.Err }

// MultiYearTable is the chronological concatenation of several year tables.
type MultiYearTable struct {
	Period window.Period
	Header []string
	Values []Count
	// Rows holds the transformed rows, in the order they were requested.
	Rows []TransformedRow
}

type TransformedRow struct {
	Name   string
	Values []Count
}

// Format renders the header line, the raw value line and one line per transform.
func (m MultiYearTable) Format() string {
	lines := make([]string, 0, 2+len(m.Rows))
	lines = append(lines, strings.Join(m.Header, ","), joinCounts(m.Values))
	for _, r := range m.Rows {
		lines = append(lines, joinCounts(r.Values))
	}
	return strings.Join(lines, "\n")
}

func joinCounts(row []Count) string {
	parts := make([]string, len(row))
	for i, c := range row {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}

// ColumnLabel is the compiled header label for a month, e.g. "Jan 20".
func ColumnLabel(month, year int) string {
	return fmt.Sprintf("%s %02d", MonthNames[month-1][:3], year%100)
}

// Compiler merges persisted year tables into one multi-year report.
type Compiler struct {
	writer   *Writer
	store    storage.Store
	registry Registry
	log      logx.Logger
}

func NewCompiler(store storage.Store, registry Registry, log logx.Logger) *Compiler {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Compiler{
		writer:   NewWriter(store, log),
		store:    store,
		registry: registry,
		log:      log,
	}
}

// Compile reads every year of period, merges them chronologically, applies
// the requested transforms and persists the result. A missing year aborts
// the whole compile.
func (c *Compiler) Compile(ctx context.Context, period window.Period, term, reportID string, transforms []string) (MultiYearTable, error) {
	if err := period.Validate(); err != nil {
		return MultiYearTable{}, err
	}

	out := MultiYearTable{
		Period: period,
		Header: make([]string, 0, 12*period.Len()),
		Values: make([]Count, 0, 12*period.Len()),
	}
	for _, year := range period.Years() {
		t, err := c.writer.ReadYearTable(ctx, term, year, reportID)
		if errors.Is(err, ErrNotFound) {
			return MultiYearTable{}, &MissingYearError{Year: year, Term: term, ReportID: reportID, Err: err}
		}
		if err != nil {
			return MultiYearTable{}, fmt.Errorf("read year %d: %w", year, err)
		}
		for i, cnt := range t.Counts {
			out.Header = append(out.Header, ColumnLabel(i+1, year))
			out.Values = append(out.Values, cnt)
		}
	}

	for _, name := range transforms {
		fn, ok := c.registry[name]
		if !ok {
			c.log.Debug("unknown transform skipped", logx.String("transform", name))
			continue
		}
		out.Rows = append(out.Rows, TransformedRow{Name: name, Values: fn(out.Values)})
	}

	if err := c.store.EnsureDir(ctx, reportID); err != nil {
		return MultiYearTable{}, err
	}
	name := CompiledFileName(reportID, period.Start, period.End, term)
	if err := c.store.WriteText(ctx, name, out.Format()); err != nil {
		return MultiYearTable{}, err
	}
	c.log.Info("report compiled", logx.String("file", name), logx.Int("columns", len(out.Values)), logx.Int("transforms", len(out.Rows)))
	return out, nil
}
