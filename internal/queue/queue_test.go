package queue

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"wordtally/internal/eventbus"
	logx "wordtally/pkg/logx"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func constTasks(n int) []Func[int] {
	tasks := make([]Func[int], n)
	for i := range tasks {
		tasks[i] = func(context.Context) (int, error) { return i * 10, nil }
	}
	return tasks
}

func TestRunEmpty(t *testing.T) {
	t.Parallel()
	q := New[int](Config{Name: "empty"}, logx.Nop(), nil)
	assert.Empty(t, q.Run(context.Background(), nil))
}

func TestRunEveryTaskSettlesOnce(t *testing.T) {
	t.Parallel()
	tasks := constTasks(20)
	tasks[3] = func(context.Context) (int, error) { return 0, errors.New("window failed") }
	tasks[7] = func(context.Context) (int, error) { panic("bad task") }
	tasks[11] = nil

	q := New[int](Config{Name: "bag", Concurrency: 4}, logx.Nop(), nil)
	results := q.Run(context.Background(), tasks)
	require.Len(t, results, 20)

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	for i, r := range results {
		require.Equal(t, i, r.Index)
		switch i {
		case 3:
			assert.EqualError(t, r.Err, "window failed")
		case 7:
			require.Error(t, r.Err)
			assert.Contains(t, r.Err.Error(), "panic: bad task")
		case 11:
			assert.ErrorIs(t, r.Err, ErrNilTask)
		default:
			assert.NoError(t, r.Err)
			assert.Equal(t, i*10, r.Value)
			assert.Equal(t, 1, r.Attempts)
		}
	}
}

func TestRunSingleLaneHonorsInterval(t *testing.T) {
	t.Parallel()
	const (
		n        = 5
		interval = 30 * time.Millisecond
	)
	q := New[int](Config{Name: "paced", Concurrency: 1, Interval: interval}, logx.Nop(), nil)

	begin := time.Now()
	results := q.Run(context.Background(), constTasks(n))
	elapsed := time.Since(begin)
	require.Len(t, results, n)

	// Allow a millisecond for limiter float rounding.
	assert.GreaterOrEqual(t, elapsed, (n-1)*interval-time.Millisecond)

	// Single lane: completion order equals submission order.
	for i := 1; i < n; i++ {
		assert.Equal(t, i, results[i].Index)
		gap := results[i].Started.Sub(results[i-1].Started)
		assert.GreaterOrEqual(t, gap, interval-time.Millisecond)
	}
}

func TestRunIntervalIsPerLane(t *testing.T) {
	t.Parallel()
	const interval = 40 * time.Millisecond
	q := New[int](Config{Name: "lanes", Concurrency: 2, Interval: interval}, logx.Nop(), nil)

	begin := time.Now()
	results := q.Run(context.Background(), constTasks(4))
	elapsed := time.Since(begin)
	require.Len(t, results, 4)

	// Two lanes with two tasks each: one interval, not three.
	assert.GreaterOrEqual(t, elapsed, interval-time.Millisecond)
	assert.Less(t, elapsed, 3*interval)
}

func TestRunBoundsConcurrency(t *testing.T) {
	t.Parallel()
	var inFlight, peak atomic.Int32
	tasks := make([]Func[int], 12)
	for i := range tasks {
		tasks[i] = func(context.Context) (int, error) {
			cur := inFlight.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return i, nil
		}
	}

	q := New[int](Config{Name: "bounded", Concurrency: 3}, logx.Nop(), nil)
	results := q.Run(context.Background(), tasks)
	require.Len(t, results, 12)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, int32(3), peak.Load())
}

func TestRunCancelSettlesPendingTasks(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tasks := constTasks(5)
	tasks[0] = func(context.Context) (int, error) {
		cancel()
		return 1, nil
	}

	q := New[int](Config{Name: "cancel", Concurrency: 1, Interval: time.Hour}, logx.Nop(), nil)
	results := q.Run(ctx, tasks)
	require.Len(t, results, 5)

	assert.NoError(t, results[0].Err)
	for _, r := range results[1:] {
		assert.Error(t, r.Err)
		assert.Equal(t, 0, r.Attempts)
	}
}

func TestRunRetriesWithHint(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	task := func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", RetryAfter(errors.New("throttled"), 20*time.Millisecond)
		}
		return "ok", nil
	}

	q := New[string](Config{Name: "retry", RetryMax: 2, RetryMaxDelay: time.Second}, logx.Nop(), nil)
	begin := time.Now()
	results := q.Run(context.Background(), []Func[string]{task})
	require.Len(t, results, 1)

	r := results[0]
	require.NoError(t, r.Err)
	assert.Equal(t, "ok", r.Value)
	assert.Equal(t, 2, r.Attempts)
	assert.GreaterOrEqual(t, time.Since(begin), 20*time.Millisecond)
}

func TestRunWithoutRetryKeepsFirstFailure(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	task := func(context.Context) (int, error) {
		calls.Add(1)
		return 0, RetryAfter(errors.New("throttled"), time.Millisecond)
	}

	q := New[int](Config{Name: "plain"}, logx.Nop(), nil)
	results := q.Run(context.Background(), []Func[int]{task})
	require.Len(t, results, 1)

	var ra RetryAfterError
	require.ErrorAs(t, results[0].Err, &ra)
	assert.Equal(t, time.Millisecond, ra.RetryAfter())
	assert.Equal(t, int32(1), calls.Load())
}

func TestRunNoRetryIsFinal(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	permanent := errors.New("bad request")
	task := func(context.Context) (int, error) {
		calls.Add(1)
		return 0, NoRetry(permanent)
	}

	q := New[int](Config{Name: "noretry", RetryMax: 5, RetryBase: time.Millisecond}, logx.Nop(), nil)
	results := q.Run(context.Background(), []Func[int]{task})
	require.Len(t, results, 1)
	assert.Same(t, permanent, results[0].Err)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, IsNoRetry(results[0].Err))
}

func TestRunPublishesEvents(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(64)

	tasks := constTasks(3)
	tasks[1] = func(context.Context) (int, error) { return 0, errors.New("nope") }

	q := New[int](Config{Name: "events", Concurrency: 3}, logx.Nop(), bus)
	q.Run(context.Background(), tasks)
	unsub()

	counts := map[string]int{}
	for ev := range ch {
		counts[ev.Type]++
		te, ok := ev.Data.(TaskEvent)
		require.True(t, ok)
		assert.Equal(t, "events", te.Queue)
	}
	assert.Equal(t, 3, counts[eventbus.TaskStarted])
	assert.Equal(t, 2, counts[eventbus.TaskFinished])
	assert.Equal(t, 1, counts[eventbus.TaskFailed])
}

func TestBackoffDelay(t *testing.T) {
	t.Parallel()
	cfg := Config{RetryBase: 100 * time.Millisecond, RetryMaxDelay: time.Second}.withDefaults()
	cfg.RetryJitter = 0

	assert.Equal(t, 100*time.Millisecond, backoffDelay(cfg, 1, nil))
	assert.Equal(t, 400*time.Millisecond, backoffDelay(cfg, 3, nil))
	assert.Equal(t, time.Second, backoffDelay(cfg, 10, nil))

	hinted := RetryAfter(errors.New("429"), 300*time.Millisecond)
	assert.Equal(t, 300*time.Millisecond, backoffDelayWithHint(cfg, 1, hinted, nil))
	capped := RetryAfter(errors.New("429"), time.Hour)
	assert.Equal(t, time.Second, backoffDelayWithHint(cfg, 1, capped, nil))
}
