package metrics

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordtally/internal/eventbus"
	"wordtally/internal/queue"
)

func TestObserveRequest(t *testing.T) {
	t.Parallel()
	m := New()
	m.ObserveRequest(RequestOK, 0)
	m.ObserveRequest(RequestOK, 0)
	m.ObserveRequest(RequestThrottled, 3.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(RequestOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(RequestThrottled)))

	var nilMetrics *Metrics
	nilMetrics.ObserveRequest(RequestOK, 0)
	assert.NoError(t, nilMetrics.WriteTextfile("ignored"))
}

func TestConsumeTaskEvents(t *testing.T) {
	t.Parallel()
	m := New()
	ch := make(chan eventbus.Event, 4)
	ch <- eventbus.Event{Type: eventbus.TaskFinished, Data: queue.TaskEvent{Queue: "months", Duration: time.Second}}
	ch <- eventbus.Event{Type: eventbus.TaskFailed, Data: queue.TaskEvent{Queue: "months"}}
	ch <- eventbus.Event{Type: eventbus.YearWritten, Data: 2020}
	ch <- eventbus.Event{Type: eventbus.TaskStarted, Data: "ignored"}
	close(ch)

	m.Consume(context.Background(), ch)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasks.WithLabelValues("months", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasks.WithLabelValues("months", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.years.WithLabelValues("written")))
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()
	m := New()
	m.ObserveRequest(RequestUnknown, 0)

	path := filepath.Join(t.TempDir(), "wordtally.prom")
	require.NoError(t, m.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), `wordtally_search_requests_total{outcome="unknown"} 1`))
}
