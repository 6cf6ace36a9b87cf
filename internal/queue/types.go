package queue

import (
	"context"
	"time"
)

// Config controls one queue instance.
//
// Defaults (when fields are omitted/zero):
//   - concurrency: 1
//   - interval: 0 (no pacing)
//   - retry_max: 0 (failures are final)
//   - retry_base: 500ms
//   - retry_max_delay: 15s
//   - retry_jitter: 0.2
type Config struct {
	Name        string
	Concurrency int
	// Interval is the minimum time between two starts on the same lane.
	Interval time.Duration

	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	RetryJitter   float64 // 0.2 = 20%
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "queue"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.Interval < 0 {
		c.Interval = 0
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 500 * time.Millisecond
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = 15 * time.Second
	}
	if c.RetryJitter <= 0 {
		c.RetryJitter = 0.2
	}
	return c
}

// Func is one unit of queued work.
type Func[T any] func(ctx context.Context) (T, error)

// Result is the settled outcome of one task.
type Result[T any] struct {
	// Index is the task's position in the slice passed to Run.
	Index    int
	Value    T
	Err      error
	Attempts int
	Started  time.Time
	Duration time.Duration
}

// TaskEvent is published on the event bus for task lifecycle events.
type TaskEvent struct {
	Queue    string        `json:"queue"`
	Index    int           `json:"index"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Attempts int           `json:"attempts"`
	Error    string        `json:"error,omitempty"`
}
