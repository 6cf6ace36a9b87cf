// Package window splits a period of years into month-sized query windows and
// maps window boundaries onto the search endpoint's snowflake identifiers.
package window

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DiscordEpochMillis is the snowflake epoch (2015-01-01T00:00:00Z) in unix milliseconds.
	DiscordEpochMillis int64 = 1420070400000
	// SnowflakeScale shifts the millisecond timestamp past the 22 low
	// worker/process/sequence bits of a snowflake.
	SnowflakeScale int64 = 4194304
)

var ErrInvalidPeriod = errors.New("invalid period")

// Encode converts an instant into a range identifier usable as a min_id/max_id
// bound. Identifiers increase strictly with t at millisecond resolution.
func Encode(t time.Time) int64 {
	return (t.UnixMilli() - DiscordEpochMillis) * SnowflakeScale
}

// Period is an inclusive range of years.
type Period struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (p Period) Validate() error {
	if p.Start > p.End {
		return fmt.Errorf("%w: start %d after end %d", ErrInvalidPeriod, p.Start, p.End)
	}
	return nil
}

// Years returns Start..End inclusive. Each call returns a fresh slice.
func (p Period) Years() []int {
	if p.Start > p.End {
		return nil
	}
	out := make([]int, 0, p.End-p.Start+1)
	for y := p.Start; y <= p.End; y++ {
		out = append(out, y)
	}
	return out
}

// Len is the number of years in the period.
func (p Period) Len() int {
	if p.Start > p.End {
		return 0
	}
	return p.End - p.Start + 1
}

func (p Period) String() string { return fmt.Sprintf("%d-%d", p.Start, p.End) }

// Window is a half-open UTC calendar month [Begin, End).
type Window struct {
	Year  int
	Month int // 1-12
	Begin time.Time
	End   time.Time
}

func (w Window) MinID() int64 { return Encode(w.Begin) }
func (w Window) MaxID() int64 { return Encode(w.End) }

func (w Window) String() string {
	return fmt.Sprintf("%04d-%02d", w.Year, w.Month)
}

// MonthWindows returns the 12 month windows of year in chronological order.
func MonthWindows(year int) []Window {
	out := make([]Window, 0, 12)
	for m := time.January; m <= time.December; m++ {
		begin := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
		out = append(out, Window{
			Year:  year,
			Month: int(m),
			Begin: begin,
			End:   begin.AddDate(0, 1, 0),
		})
	}
	return out
}
