package pipeline

import (
	"errors"
	"fmt"

	"wordtally/internal/window"
)

var ErrInvalidRequest = errors.New("invalid request")

// WindowError is one failed month query.
type WindowError struct {
	Window window.Window
	Err    error
}

func (e *WindowError) Error() string { return fmt.Sprintf("window %s: %v", e.Window, e.Err) }
func (e *WindowError) Unwrap() error { return e.Err }

// YearError is a year whose checkpoint could not be produced. Err joins
// every failed window of that year.
type YearError struct {
	Year int
	Err  error
}

func (e *YearError) Error() string { return fmt.Sprintf("year %d: %v", e.Year, e.Err) }
func (e *YearError) Unwrap() error { return e.Err }
