package config

// Config is the on-disk configuration for a wordtally run.
//
// The flat request_* / guild / header keys are the historical settings
// layout; newer knobs live in nested sections.
type Config struct {
	DataFolderPath string `json:"data_folder_path"`

	RequestMonthsConcurrent      int     `json:"request_months_concurrent"`
	RequestMonthsIntervalSeconds float64 `json:"request_months_interval_seconds"`
	RequestYearsConcurrent       int     `json:"request_years_concurrent"`
	RequestYearsIntervalSeconds  float64 `json:"request_years_interval_seconds"`

	GuildID         string            `json:"guild_id"`
	RequestHeaders  map[string]string `json:"request_headers,omitempty"`
	RequestReferrer string            `json:"request_referrer,omitempty"`

	Search        SearchConfig  `json:"search,omitempty"`
	Retry         RetryConfig   `json:"retry,omitempty"`
	DefaultPeriod PeriodConfig  `json:"default_period,omitempty"`
	Logging       LoggingConfig `json:"logging,omitempty"`
	Storage       StorageConfig `json:"storage,omitempty"`
	Metrics       MetricsConfig `json:"metrics,omitempty"`
}

// SearchConfig controls the remote search endpoint.
//
// Defaults:
//   - base_url: "https://discord.com/api/v9"
//   - timeout: "30s"
type SearchConfig struct {
	BaseURL string `json:"base_url,omitempty"`
	// Timeout is a Go duration string (e.g. "10s", "1m").
	Timeout string `json:"timeout,omitempty"`
}

// RetryConfig enables the optional retry layer on top of both queues.
//
// max = 0 (default) keeps the plain behavior: a throttled request is
// logged with its retry-after and reported as failed.
type RetryConfig struct {
	Max      int    `json:"max,omitempty"`
	Base     string `json:"base,omitempty"`
	MaxDelay string `json:"max_delay,omitempty"`
}

// PeriodConfig is the period used by bulk compiles.
type PeriodConfig struct {
	Start int `json:"start,omitempty"`
	End   int `json:"end,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level,omitempty"`
	Console *bool       `json:"console,omitempty"`
	File    LoggingFile `json:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig selects where year tables and reports are persisted.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/wordtally.db" }
//
// With driver "file" (default) the path is data_folder_path.
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// MetricsConfig controls the Prometheus textfile written at the end of a run.
type MetricsConfig struct {
	Textfile string `json:"textfile,omitempty"`
}
