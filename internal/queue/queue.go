package queue

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime/debug"
	"time"

	"golang.org/x/time/rate"

	"wordtally/internal/eventbus"
	rtsup "wordtally/internal/runtime/supervisor"
	logx "wordtally/pkg/logx"
)

var (
	ErrNilTask = errors.New("queue: task is nil")
	// ErrLost is recorded for a task whose lane died before settling it.
	ErrLost = errors.New("queue: task lost")
)

// Queue is a reusable, stateless runner; every Run call is independent.
type Queue[T any] struct {
	cfg Config
	log logx.Logger
	bus eventbus.Bus
}

func New[T any](cfg Config, log logx.Logger, bus eventbus.Bus) *Queue[T] {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Queue[T]{
		cfg: cfg,
		log: log.With(logx.String("queue", cfg.Name)),
		bus: bus,
	}
}

func (q *Queue[T]) Config() Config { return q.cfg }

// Run executes tasks and blocks until all of them settled.
//
// The returned slice has exactly len(tasks) entries in completion order.
// A failing task never stops its siblings. If ctx is canceled, tasks that
// have not started yet settle with ctx.Err().
func (q *Queue[T]) Run(ctx context.Context, tasks []Func[T]) []Result[T] {
	n := len(tasks)
	if n == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	lanes := min(q.cfg.Concurrency, n)
	next := make(chan int, n)
	for i := range tasks {
		next <- i
	}
	close(next)
	out := make(chan Result[T], n)

	start := time.Now()
	q.log.Debug("queue started", logx.Int("tasks", n), logx.Int("lanes", lanes), logx.Duration("interval", q.cfg.Interval))

	sup := rtsup.NewSupervisor(ctx,
		rtsup.WithLogger(q.log),
		// one lane failing must not stop the others
		rtsup.WithCancelOnError(false),
	)
	for lane := 0; lane < lanes; lane++ {
		sup.Go0(fmt.Sprintf("%s.lane.%d", q.cfg.Name, lane), func(c context.Context) {
			q.lane(c, lane, tasks, next, out)
		})
	}
	if err := sup.Wait(context.Background()); err != nil {
		q.log.Error("queue lane died", logx.Err(err))
	}
	close(out)

	results := make([]Result[T], 0, n)
	seen := make([]bool, n)
	failed := 0
	for r := range out {
		seen[r.Index] = true
		if r.Err != nil {
			failed++
		}
		results = append(results, r)
	}
	for i, ok := range seen {
		if !ok {
			failed++
			results = append(results, Result[T]{Index: i, Err: ErrLost})
		}
	}

	q.log.Debug("queue finished", logx.Int("tasks", n), logx.Int("failed", failed), logx.Duration("dur", time.Since(start)))
	return results
}

func (q *Queue[T]) lane(ctx context.Context, idx int, tasks []Func[T], next <-chan int, out chan<- Result[T]) {
	// Per-lane limiter: a lane starts at most one task per Interval.
	lim := rate.NewLimiter(rate.Inf, 1)
	if q.cfg.Interval > 0 {
		lim = rate.NewLimiter(rate.Every(q.cfg.Interval), 1)
	}
	// Per-lane RNG: avoids global lock contention for retry jitter.
	rng := rand.New(rand.NewSource(time.Now().UnixNano() ^ (int64(idx) << 32)))

	for i := range next {
		out <- q.exec(ctx, lim, rng, i, tasks[i])
	}
}

func (q *Queue[T]) exec(ctx context.Context, lim *rate.Limiter, rng *rand.Rand, i int, fn Func[T]) Result[T] {
	res := Result[T]{Index: i}
	if fn == nil {
		res.Err = ErrNilTask
		q.publish(eventbus.TaskFailed, res)
		return res
	}

	maxAttempts := 1 + q.cfg.RetryMax
attemptLoop:
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := lim.Wait(ctx); err != nil {
			if res.Err == nil {
				res.Err = err
			}
			break
		}
		if attempt == 1 {
			res.Started = time.Now()
			q.publish(eventbus.TaskStarted, res)
		}
		res.Attempts = attempt

		res.Value, res.Err = q.call(ctx, i, fn)
		if res.Err == nil {
			break
		}
		var nr noRetryError
		if errors.As(res.Err, &nr) {
			res.Err = nr.err
			break
		}
		if attempt >= maxAttempts {
			break
		}

		delay := backoffDelayWithHint(q.cfg, attempt, res.Err, rng)
		q.log.Warn("task retry scheduled", logx.Int("task", i), logx.Int("attempt", attempt+1), logx.Duration("delay", delay), logx.Err(res.Err))
		if delay > 0 {
			tmr := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				tmr.Stop()
				break attemptLoop
			case <-tmr.C:
			}
		}
	}

	if !res.Started.IsZero() {
		res.Duration = time.Since(res.Started)
	}
	if res.Err != nil {
		q.publish(eventbus.TaskFailed, res)
	} else {
		q.publish(eventbus.TaskFinished, res)
	}
	return res
}

// call runs fn once, converting a panic into an error so one bad task can't
// kill its lane.
func (q *Queue[T]) call(ctx context.Context, i int, fn Func[T]) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			q.log.Error("task.panic", logx.Int("task", i), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()
	return fn(ctx)
}

func (q *Queue[T]) publish(typ string, res Result[T]) {
	if q.bus == nil {
		return
	}
	ev := TaskEvent{
		Queue:    q.cfg.Name,
		Index:    res.Index,
		Started:  res.Started,
		Duration: res.Duration,
		Attempts: res.Attempts,
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	q.bus.Publish(eventbus.Event{Type: typ, Data: ev})
}
