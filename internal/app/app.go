package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"wordtally/internal/eventbus"
	"wordtally/internal/metrics"
	"wordtally/internal/pipeline"
	"wordtally/internal/queue"
	"wordtally/internal/report"
	"wordtally/internal/search"
	"wordtally/internal/storage"
	"wordtally/internal/window"
	logx "wordtally/pkg/logx"
)

// App wires config, logging, storage, metrics and the search client into a
// ready-to-use pipeline for one process run.
type App struct {
	cfg   *Config
	runID string

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus
	sup  *Supervisor

	store   storage.Store
	metrics *metrics.Metrics
	pipe    *pipeline.Pipeline

	unsub     func()
	closeOnce sync.Once
	closeErr  error
}

// Option customizes App construction.
type Option func(*options)

type options struct {
	searcher search.Searcher
}

// WithSearcher replaces the HTTP search client.
func WithSearcher(s search.Searcher) Option {
	return func(o *options) { o.searcher = s }
}

func NewApp(cfgPath string, opts ...Option) (*App, error) {
	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// New builds an App from an already normalized config.
func New(cfg *Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	runID := uuid.NewString()
	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.ConsoleLogging(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("run_id", runID))

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	store, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	log.Debug("storage opened", logx.String("driver", sc.Driver), logx.String("path", sc.Path))

	searcher := o.searcher
	if searcher == nil {
		c, err := search.NewClient(search.ClientConfig{
			BaseURL:  cfg.Search.BaseURL,
			GuildID:  cfg.GuildID,
			Headers:  cfg.RequestHeaders,
			Referrer: cfg.RequestReferrer,
			Timeout:  cfg.SearchTimeout(),
		})
		if err != nil {
			_ = store.Close()
			_ = logSvc.Close()
			return nil, err
		}
		searcher = c
	}

	bus := eventbus.New()
	m := metrics.New()
	sup := NewSupervisor(context.Background(), WithLogger(log.With(logx.String("comp", "app"))), WithCancelOnError(false))
	events, unsub := bus.Subscribe(1024)
	sup.Go0("metrics.consume", func(c context.Context) {
		m.Consume(c, events)
	})

	exec := search.NewExecutor(searcher, log.With(logx.String("comp", "search")), m, bus)
	pipe := pipeline.New(pipeline.Config{
		Months: queue.Config{
			Name:          "months",
			Concurrency:   cfg.RequestMonthsConcurrent,
			Interval:      cfg.MonthsInterval(),
			RetryMax:      cfg.Retry.Max,
			RetryBase:     cfg.RetryBase(),
			RetryMaxDelay: cfg.RetryMaxDelay(),
		},
		// Years are never retried as a whole; month retries cover throttling.
		Years: queue.Config{
			Name:        "years",
			Concurrency: cfg.RequestYearsConcurrent,
			Interval:    cfg.YearsInterval(),
		},
		DefaultPeriod: window.Period{Start: cfg.DefaultPeriod.Start, End: cfg.DefaultPeriod.End},
	}, exec, store, report.DefaultRegistry(), log.With(logx.String("comp", "pipeline")), bus)

	log.Debug("app ready",
		logx.Int("months_concurrent", cfg.RequestMonthsConcurrent),
		logx.Duration("months_interval", cfg.MonthsInterval()),
		logx.Int("years_concurrent", cfg.RequestYearsConcurrent),
		logx.Duration("years_interval", cfg.YearsInterval()),
		logx.Int("retry_max", cfg.Retry.Max),
	)

	return &App{
		cfg:     cfg,
		runID:   runID,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		sup:     sup,
		store:   store,
		metrics: m,
		pipe:    pipe,
		unsub:   unsub,
	}, nil
}

func (a *App) Config() *Config              { return a.cfg }
func (a *App) Logger() logx.Logger          { return a.log }
func (a *App) RunID() string                { return a.runID }
func (a *App) Pipeline() *pipeline.Pipeline { return a.pipe }
func (a *App) Metrics() *metrics.Metrics    { return a.metrics }

func (a *App) DefaultPeriod() window.Period {
	return window.Period{Start: a.cfg.DefaultPeriod.Start, End: a.cfg.DefaultPeriod.End}
}

// Close drains pending events into metrics, writes the metrics textfile
// (if configured) and releases storage and log sinks. Only the first call
// does any work.
func (a *App) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.closeOnce.Do(func() { a.closeErr = a.close(ctx) })
	return a.closeErr
}

func (a *App) close(ctx context.Context) error {
	var errs []error

	// Unsubscribing closes the channel; the consumer drains what is buffered.
	a.unsub()
	if err := a.sup.Wait(ctx); err != nil {
		errs = append(errs, err)
	}
	a.sup.Cancel()
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		errs = append(errs, err)
	} else if a.cfg.Metrics.Textfile != "" {
		a.log.Debug("metrics written", logx.String("path", a.cfg.Metrics.Textfile))
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	if err := a.logs.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close logs: %w", err))
	}
	return errors.Join(errs...)
}
