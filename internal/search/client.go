// Package search talks to the guild message search endpoint and turns one
// month window into one count.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxBodyBytes = 1 << 20

// Query is one windowed count request. Empty Content/AuthorID are omitted.
type Query struct {
	MaxID    int64
	MinID    int64
	Content  string
	AuthorID string
}

// Response carries the endpoint's reported total; nil means "no usable total".
type Response struct {
	TotalResults *int64
}

// Searcher is the remote search capability.
type Searcher interface {
	Search(ctx context.Context, q Query) (Response, error)
}

type ClientConfig struct {
	BaseURL  string
	GuildID  string
	Headers  map[string]string
	Referrer string
	Timeout  time.Duration
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// Client is the HTTP Searcher.
type Client struct {
	endpoint string
	headers  http.Header
	http     *http.Client
}

func NewClient(cfg ClientConfig) (*Client, error) {
	guild := strings.TrimSpace(cfg.GuildID)
	if guild == "" {
		return nil, errors.New("search: guild id is required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if _, err := url.Parse(base); err != nil || base == "" {
		return nil, fmt.Errorf("search: invalid base url %q", cfg.BaseURL)
	}

	h := http.Header{}
	for k, v := range cfg.Headers {
		h.Set(k, v)
	}
	if cfg.Referrer != "" {
		h.Set("Referer", cfg.Referrer)
	}
	if h.Get("Accept") == "" {
		h.Set("Accept", "application/json")
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		endpoint: base + "/guilds/" + url.PathEscape(guild) + "/messages/search",
		headers:  h,
		http:     hc,
	}, nil
}

func (c *Client) Search(ctx context.Context, q Query) (Response, error) {
	params := url.Values{}
	params.Set("max_id", strconv.FormatInt(q.MaxID, 10))
	params.Set("min_id", strconv.FormatInt(q.MinID, 10))
	if q.Content != "" {
		params.Set("content", q.Content)
	}
	if q.AuthorID != "" {
		params.Set("author_id", q.AuthorID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return Response{}, err
	}
	for k, vs := range c.headers {
		req.Header[k] = append([]string(nil), vs...)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{}, fmt.Errorf("search: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return Response{}, parseThrottled(resp.Header, body)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Response{}, &StatusError{Code: resp.StatusCode, Body: truncate(strings.TrimSpace(string(body)), 300)}
	}

	var payload struct {
		TotalResults *int64 `json:"total_results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Response{}, fmt.Errorf("search: decode response: %w", err)
	}
	return Response{TotalResults: payload.TotalResults}, nil
}

// parseThrottled prefers the body's fractional retry_after over the header.
func parseThrottled(h http.Header, body []byte) *ThrottledError {
	var payload struct {
		Message    string   `json:"message"`
		RetryAfter *float64 `json:"retry_after"`
		Global     bool     `json:"global"`
	}
	_ = json.Unmarshal(body, &payload)

	te := &ThrottledError{Message: payload.Message, Global: payload.Global}
	if payload.RetryAfter != nil && *payload.RetryAfter >= 0 {
		te.RetryAfterDur = secondsToDuration(*payload.RetryAfter)
		return te
	}
	if raw := strings.TrimSpace(h.Get("Retry-After")); raw != "" {
		if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs >= 0 {
			te.RetryAfterDur = secondsToDuration(secs)
		} else if at, err := http.ParseTime(raw); err == nil {
			te.RetryAfterDur = max(0, time.Until(at))
		}
	}
	return te
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(math.Ceil(s * float64(time.Second)))
}

func truncate(s string, maxN int) string {
	if maxN <= 0 || len(s) <= maxN {
		return s
	}
	return s[:maxN-3] + "..."
}
