package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	DefaultBaseURL        = "https://discord.com/api/v9"
	DefaultSearchTimeout  = 30 * time.Second
	DefaultRetryBase      = 2 * time.Second
	DefaultRetryMaxDelay  = 5 * time.Minute
	DefaultDataFolderPath = "./data"
	DefaultPeriodStart    = 2017
	DefaultPeriodEnd      = 2021
)

// Normalize applies defaults and validates the config in place.
func (c *Config) Normalize() error {
	c.DataFolderPath = strings.TrimSpace(c.DataFolderPath)
	if c.DataFolderPath == "" {
		c.DataFolderPath = DefaultDataFolderPath
	}
	c.GuildID = strings.TrimSpace(c.GuildID)

	if c.RequestMonthsConcurrent <= 0 {
		c.RequestMonthsConcurrent = 1
	}
	if c.RequestYearsConcurrent <= 0 {
		c.RequestYearsConcurrent = 1
	}
	if err := checkInterval("request_months_interval_seconds", c.RequestMonthsIntervalSeconds); err != nil {
		return err
	}
	if err := checkInterval("request_years_interval_seconds", c.RequestYearsIntervalSeconds); err != nil {
		return err
	}

	if strings.TrimSpace(c.Search.BaseURL) == "" {
		c.Search.BaseURL = DefaultBaseURL
	}
	c.Search.BaseURL = strings.TrimRight(strings.TrimSpace(c.Search.BaseURL), "/")
	if _, err := ParseDurationField("search.timeout", c.Search.Timeout); err != nil {
		return err
	}
	if c.Retry.Max < 0 {
		return errors.New("retry.max must be >= 0")
	}
	if _, err := ParseDurationField("retry.base", c.Retry.Base); err != nil {
		return err
	}
	if _, err := ParseDurationField("retry.max_delay", c.Retry.MaxDelay); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}

	if c.DefaultPeriod.Start == 0 && c.DefaultPeriod.End == 0 {
		c.DefaultPeriod = PeriodConfig{Start: DefaultPeriodStart, End: DefaultPeriodEnd}
	}
	if c.DefaultPeriod.Start > c.DefaultPeriod.End {
		return fmt.Errorf("default_period: start %d after end %d", c.DefaultPeriod.Start, c.DefaultPeriod.End)
	}

	switch d := strings.ToLower(strings.TrimSpace(c.Storage.Driver)); d {
	case "":
		c.Storage.Driver = "file"
	case "file", "sqlite", "sqlite3":
		c.Storage.Driver = d
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	return nil
}

// MonthsInterval is the month-tier pacing interval.
func (c *Config) MonthsInterval() time.Duration { return seconds(c.RequestMonthsIntervalSeconds) }

// YearsInterval is the year-tier pacing interval.
func (c *Config) YearsInterval() time.Duration { return seconds(c.RequestYearsIntervalSeconds) }

// SearchTimeout returns the per-request timeout (default applied).
func (c *Config) SearchTimeout() time.Duration {
	d, _ := ParseDurationOrDefault("search.timeout", c.Search.Timeout, DefaultSearchTimeout)
	return d
}

// RetryBase returns the base backoff for the retry layer (default applied).
func (c *Config) RetryBase() time.Duration {
	d, _ := ParseDurationOrDefault("retry.base", c.Retry.Base, DefaultRetryBase)
	return d
}

// RetryMaxDelay bounds any single retry wait, including advertised retry-after hints.
func (c *Config) RetryMaxDelay() time.Duration {
	d, _ := ParseDurationOrDefault("retry.max_delay", c.Retry.MaxDelay, DefaultRetryMaxDelay)
	return d
}

// BusyTimeout returns the sqlite busy timeout (0 keeps the driver default).
func (c *Config) BusyTimeout() time.Duration {
	d, _ := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout)
	return d
}

// ConsoleLogging reports whether console logging is on (default true).
func (c *Config) ConsoleLogging() bool {
	return c.Logging.Console == nil || *c.Logging.Console
}

func checkInterval(path string, v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s: must be a finite number >= 0", path)
	}
	return nil
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
