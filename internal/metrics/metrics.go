// Package metrics counts requests and queue outcomes for one run and can
// export them in the Prometheus textfile format (node_exporter textfile
// collector), which suits a process that exits after a single run.
package metrics

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"wordtally/internal/eventbus"
	"wordtally/internal/queue"
)

// Request outcomes.
const (
	RequestOK        = "ok"
	RequestUnknown   = "unknown"
	RequestThrottled = "throttled"
	RequestError     = "error"
)

type Metrics struct {
	reg *prometheus.Registry

	requests    *prometheus.CounterVec
	retryAfter  prometheus.Histogram
	tasks       *prometheus.CounterVec
	taskSeconds *prometheus.HistogramVec
	years       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wordtally_search_requests_total",
			Help: "Search requests by outcome.",
		}, []string{"outcome"}),
		retryAfter: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wordtally_search_retry_after_seconds",
			Help:    "Retry-after advertised by throttled responses.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wordtally_queue_tasks_total",
			Help: "Settled queue tasks by queue and status.",
		}, []string{"queue", "status"}),
		taskSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wordtally_queue_task_duration_seconds",
			Help:    "Duration of queue tasks including retries.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"queue"}),
		years: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wordtally_years_total",
			Help: "Year checkpoints by status.",
		}, []string{"status"}),
	}
	m.reg.MustRegister(m.requests, m.retryAfter, m.tasks, m.taskSeconds, m.years)
	return m
}

// Registry exposes the underlying registry (tests, custom exporters).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// ObserveRequest counts one search request. retryAfterSeconds is only used
// for throttled outcomes. Safe on a nil receiver.
func (m *Metrics) ObserveRequest(outcome string, retryAfterSeconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
	if outcome == RequestThrottled {
		m.retryAfter.Observe(retryAfterSeconds)
	}
}

// Consume folds bus events into counters until ctx is done or the channel closes.
func (m *Metrics) Consume(ctx context.Context, events <-chan eventbus.Event) {
	if m == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.observe(ev)
		}
	}
}

func (m *Metrics) observe(ev eventbus.Event) {
	switch ev.Type {
	case eventbus.TaskFinished, eventbus.TaskFailed:
		te, ok := ev.Data.(queue.TaskEvent)
		if !ok {
			return
		}
		status := "ok"
		if ev.Type == eventbus.TaskFailed {
			status = "failed"
		}
		m.tasks.WithLabelValues(te.Queue, status).Inc()
		if te.Duration > 0 {
			m.taskSeconds.WithLabelValues(te.Queue).Observe(te.Duration.Seconds())
		}
	case eventbus.YearWritten:
		m.years.WithLabelValues("written").Inc()
	case eventbus.YearFailed:
		m.years.WithLabelValues("failed").Inc()
	}
}

// WriteTextfile writes all metrics to path. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("metrics: write textfile: %w", err)
	}
	return nil
}
