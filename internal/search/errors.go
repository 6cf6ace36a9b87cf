package search

import (
	"fmt"
	"time"
)

// ThrottledError is returned when the endpoint rejects a request with 429.
// It satisfies queue.RetryAfterError so an opt-in retry layer can honor it.
type ThrottledError struct {
	RetryAfterDur time.Duration
	Global        bool
	Message       string
}

func (e *ThrottledError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "rate limited"
	}
	return fmt.Sprintf("throttled: %s (retry after %s)", msg, e.RetryAfterDur)
}

func (e *ThrottledError) RetryAfter() time.Duration { return e.RetryAfterDur }

// StatusError is any other non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("search: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("search: unexpected status %d: %s", e.Code, e.Body)
}

// Temporary reports whether retrying the same request can succeed.
func (e *StatusError) Temporary() bool { return e.Code >= 500 }
