package report

import (
	"context"
	"errors"
	"fmt"

	"wordtally/internal/storage"
	logx "wordtally/pkg/logx"
)

var ErrNotFound = errors.New("report: year table not found")

// YearFileName is the checkpoint name of one year's table.
func YearFileName(reportID string, year int, term string) string {
	return fmt.Sprintf("%s/%s-%d-%s.csv", reportID, reportID, year, term)
}

// CompiledFileName is the name of the multi-year report.
func CompiledFileName(reportID string, start, end int, term string) string {
	return fmt.Sprintf("%s/%s-%d-%d-%s.csv", reportID, reportID, start, end, term)
}

// Writer persists and reads back year tables.
type Writer struct {
	store storage.Store
	log   logx.Logger
}

func NewWriter(store storage.Store, log logx.Logger) *Writer {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Writer{store: store, log: log}
}

// WriteYearTable stores table under the report's folder, creating it if needed.
func (w *Writer) WriteYearTable(ctx context.Context, table YearTable, term, reportID string) error {
	if err := w.store.EnsureDir(ctx, reportID); err != nil {
		return err
	}
	name := YearFileName(reportID, table.Year, term)
	if err := w.store.WriteText(ctx, name, table.Format()); err != nil {
		return err
	}
	w.log.Info("year table written", logx.String("file", name))
	return nil
}

// ReadYearTable loads a year table. It fails with ErrNotFound if no prior
// run wrote it.
func (w *Writer) ReadYearTable(ctx context.Context, term string, year int, reportID string) (YearTable, error) {
	name := YearFileName(reportID, year, term)
	raw, err := w.store.ReadText(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return YearTable{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return YearTable{}, err
	}
	return ParseYearTable(year, raw)
}
