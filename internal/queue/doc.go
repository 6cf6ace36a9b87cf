// Package queue runs a fixed batch of tasks with bounded concurrency and a
// per-lane start interval.
//
// A Queue has Concurrency lanes. Each lane pulls the next task, waits on its
// own rate limiter (one start per Interval) and runs the task to completion
// before pulling again. Run returns once every task has settled; results are
// delivered in completion order and carry their submission index.
package queue
