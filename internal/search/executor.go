package search

import (
	"context"
	"errors"

	"wordtally/internal/eventbus"
	"wordtally/internal/metrics"
	"wordtally/internal/queue"
	"wordtally/internal/report"
	"wordtally/internal/window"
	logx "wordtally/pkg/logx"
)

// AllTerm disables the content filter: the query counts every message.
const AllTerm = "all"

// Task is one schedulable count query.
type Task struct {
	Window   window.Window
	Term     string
	AuthorID string
}

// Query builds the endpoint query for t.
func (t Task) Query() Query {
	q := Query{
		MaxID:    t.Window.MaxID(),
		MinID:    t.Window.MinID(),
		AuthorID: t.AuthorID,
	}
	if t.Term != AllTerm {
		q.Content = t.Term
	}
	return q
}

// Executor issues count queries and classifies their outcome. It never
// retries: throttling is logged with the advertised wait and returned.
type Executor struct {
	searcher Searcher
	log      logx.Logger
	metrics  *metrics.Metrics
	bus      eventbus.Bus
}

func NewExecutor(s Searcher, log logx.Logger, m *metrics.Metrics, bus eventbus.Bus) *Executor {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Executor{searcher: s, log: log, metrics: m, bus: bus}
}

func (e *Executor) Execute(ctx context.Context, t Task) (report.Count, error) {
	resp, err := e.searcher.Search(ctx, t.Query())
	if err != nil {
		var te *ThrottledError
		if errors.As(err, &te) {
			e.metrics.ObserveRequest(metrics.RequestThrottled, te.RetryAfterDur.Seconds())
			e.log.Error("request throttled",
				logx.String("window", t.Window.String()),
				logx.Duration("retry_after", te.RetryAfterDur),
				logx.Bool("global", te.Global),
				logx.String("message", te.Message),
			)
			if e.bus != nil {
				e.bus.Publish(eventbus.Event{Type: eventbus.RequestThrottle, Data: te.RetryAfterDur})
			}
			return report.Count{}, err
		}
		e.metrics.ObserveRequest(metrics.RequestError, 0)
		e.log.Warn("request failed", logx.String("window", t.Window.String()), logx.Err(err))

		var se *StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return report.Count{}, queue.NoRetry(err)
		}
		return report.Count{}, err
	}

	if resp.TotalResults == nil {
		e.metrics.ObserveRequest(metrics.RequestUnknown, 0)
		e.log.Info("no usable total", logx.Int("year", t.Window.Year), logx.Int("month", t.Window.Month))
		return report.Unknown(), nil
	}
	e.metrics.ObserveRequest(metrics.RequestOK, 0)
	e.log.Info("fetched", logx.Int("year", t.Window.Year), logx.Int("month", t.Window.Month), logx.Int64("total", *resp.TotalResults))
	return report.Known(*resp.TotalResults), nil
}
