package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"wordtally/internal/eventbus"
	"wordtally/internal/queue"
	"wordtally/internal/report"
	"wordtally/internal/search"
	"wordtally/internal/storage"
	"wordtally/internal/window"
	logx "wordtally/pkg/logx"
)

// Executor issues one windowed count query.
type Executor interface {
	Execute(ctx context.Context, t search.Task) (report.Count, error)
}

type Config struct {
	Months        queue.Config
	Years         queue.Config
	DefaultPeriod window.Period
}

// Request is one full run for a term.
type Request struct {
	Period     window.Period
	Term       string
	ReportID   string
	Transforms []string
	// AuthorID restricts the count to one author when set.
	AuthorID string
	// Resume reuses existing year checkpoints instead of querying them again.
	Resume bool
}

// Job is one (term, report) pair of a bulk compile.
type Job struct {
	Term     string
	ReportID string
}

type Pipeline struct {
	cfg      Config
	exec     Executor
	writer   *report.Writer
	compiler *report.Compiler
	months   *queue.Queue[report.Count]
	years    *queue.Queue[report.YearTable]
	log      logx.Logger
	bus      eventbus.Bus
}

func New(cfg Config, exec Executor, store storage.Store, registry report.Registry, log logx.Logger, bus eventbus.Bus) *Pipeline {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Months.Name == "" {
		cfg.Months.Name = "months"
	}
	if cfg.Years.Name == "" {
		cfg.Years.Name = "years"
	}
	return &Pipeline{
		cfg:      cfg,
		exec:     exec,
		writer:   report.NewWriter(store, log),
		compiler: report.NewCompiler(store, registry, log),
		months:   queue.New[report.Count](cfg.Months, log, bus),
		years:    queue.New[report.YearTable](cfg.Years, log, bus),
		log:      log,
		bus:      bus,
	}
}

// Run queries every year of the period that has no checkpoint yet, then
// compiles the report. If any year fails the compile is skipped and the
// joined year errors are returned; years that succeeded keep their
// checkpoints so a rerun with Resume only queries what is missing.
func (p *Pipeline) Run(ctx context.Context, req Request) (report.MultiYearTable, error) {
	if err := validate(req.Period, req.Term, req.ReportID); err != nil {
		return report.MultiYearTable{}, err
	}
	log := p.log.With(logx.String("report", req.ReportID), logx.String("term", req.Term))
	start := time.Now()

	years := req.Period.Years()
	if req.Resume {
		pending, err := p.pendingYears(ctx, req, years)
		if err != nil {
			return report.MultiYearTable{}, err
		}
		if skipped := len(years) - len(pending); skipped > 0 {
			log.Info("reusing year checkpoints", logx.Int("skipped", skipped), logx.Int("pending", len(pending)))
		}
		years = pending
	}

	tasks := make([]queue.Func[report.YearTable], len(years))
	for i, year := range years {
		tasks[i] = func(ctx context.Context) (report.YearTable, error) {
			return p.RunYear(ctx, year, req.Term, req.AuthorID, req.ReportID)
		}
	}
	results := p.years.Run(ctx, tasks)
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	var errs []error
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		var ye *YearError
		if !errors.As(r.Err, &ye) {
			r.Err = &YearError{Year: years[r.Index], Err: r.Err}
		}
		errs = append(errs, r.Err)
	}
	if len(errs) > 0 {
		log.Error("run incomplete; compile skipped", logx.Int("failed_years", len(errs)), logx.Duration("dur", time.Since(start)))
		return report.MultiYearTable{}, errors.Join(errs...)
	}

	out, err := p.Compile(ctx, req.Period, req.Term, req.ReportID, req.Transforms)
	if err != nil {
		return report.MultiYearTable{}, err
	}
	log.Info("all data compiled", logx.String("period", req.Period.String()), logx.Duration("dur", time.Since(start)))
	return out, nil
}

// RunYear queries the 12 month windows of year through the month-tier queue
// and writes the year's checkpoint. Any failed window fails the year and
// nothing is written for it.
func (p *Pipeline) RunYear(ctx context.Context, year int, term, authorID, reportID string) (report.YearTable, error) {
	windows := window.MonthWindows(year)
	tasks := make([]queue.Func[report.Count], len(windows))
	for i, w := range windows {
		task := search.Task{Window: w, Term: term, AuthorID: authorID}
		tasks[i] = func(ctx context.Context) (report.Count, error) {
			return p.exec.Execute(ctx, task)
		}
	}

	results := p.months.Run(ctx, tasks)
	// Completion order is arbitrary; the submission index is the month.
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	table := report.YearTable{Year: year}
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, &WindowError{Window: windows[r.Index], Err: r.Err})
			continue
		}
		table.Counts[r.Index] = r.Value
	}
	if len(errs) > 0 {
		err := &YearError{Year: year, Err: errors.Join(errs...)}
		p.log.Error("year failed", logx.Int("year", year), logx.Int("failed_windows", len(errs)), logx.Err(err))
		p.publish(eventbus.YearFailed, year)
		return table, err
	}

	if err := p.writer.WriteYearTable(ctx, table, term, reportID); err != nil {
		p.publish(eventbus.YearFailed, year)
		return table, &YearError{Year: year, Err: err}
	}
	p.log.Info("finished writing year", logx.Int("year", year), logx.String("file", report.YearFileName(reportID, year, term)))
	p.publish(eventbus.YearWritten, year)
	return table, nil
}

// Compile merges existing checkpoints of period into the final report.
func (p *Pipeline) Compile(ctx context.Context, period window.Period, term, reportID string, transforms []string) (report.MultiYearTable, error) {
	if err := validate(period, term, reportID); err != nil {
		return report.MultiYearTable{}, err
	}
	out, err := p.compiler.Compile(ctx, period, term, reportID, transforms)
	if err != nil {
		return report.MultiYearTable{}, err
	}
	p.publish(eventbus.ReportCompiled, report.CompiledFileName(reportID, period.Start, period.End, term))
	return out, nil
}

// Bulk recompiles several reports over the default period from their
// existing checkpoints. Every job is attempted; failures are joined.
func (p *Pipeline) Bulk(ctx context.Context, jobs []Job, transforms []string) error {
	var errs []error
	for _, j := range jobs {
		if _, err := p.Compile(ctx, p.cfg.DefaultPeriod, j.Term, j.ReportID, transforms); err != nil {
			p.log.Error("bulk compile failed", logx.String("report", j.ReportID), logx.String("term", j.Term), logx.Err(err))
			errs = append(errs, fmt.Errorf("%s (%s): %w", j.ReportID, j.Term, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) pendingYears(ctx context.Context, req Request, years []int) ([]int, error) {
	pending := make([]int, 0, len(years))
	for _, y := range years {
		_, err := p.writer.ReadYearTable(ctx, req.Term, y, req.ReportID)
		switch {
		case err == nil:
		case errors.Is(err, report.ErrNotFound), errors.Is(err, report.ErrMalformed):
			pending = append(pending, y)
		default:
			return nil, fmt.Errorf("check checkpoint %d: %w", y, err)
		}
	}
	return pending, nil
}

func (p *Pipeline) publish(typ string, data any) {
	if p.bus != nil {
		p.bus.Publish(eventbus.Event{Type: typ, Data: data})
	}
}

func validate(period window.Period, term, reportID string) error {
	if err := period.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(term) == "" {
		return fmt.Errorf("%w: term is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(reportID) == "" {
		return fmt.Errorf("%w: report id is required", ErrInvalidRequest)
	}
	for _, s := range []string{term, reportID} {
		if strings.ContainsAny(s, `/\`) || s == "." || s == ".." {
			return fmt.Errorf("%w: %q cannot be used in a file name", ErrInvalidRequest, s)
		}
	}
	return nil
}
