package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxResponseBytes = 8 << 20

// Client talks to a prodsearch server.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
	obs     *observer
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("prodsearch: base URL required")
	}
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("prodsearch: parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("prodsearch: unsupported URL scheme %q", u.Scheme)
	}

	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}
	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	return &Client{baseURL: u, apiKey: cfg.apiKey, http: hc, obs: obs}, nil
}

// Search runs a ranked product search.
func (c *Client) Search(ctx context.Context, req SearchRequest) (_ *SearchResponse, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	var resp SearchResponse
	if err = c.do(ctx, http.MethodPost, "/search", nil, req, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Suggest returns completions for q. limit <= 0 uses the server default.
func (c *Client) Suggest(ctx context.Context, q string, limit int, popular bool) (_ *Suggestions, err error) {
	start := time.Now()
	defer func() { c.obs.observe("suggest", start, err) }()

	params := url.Values{"q": {q}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if popular {
		params.Set("popular", "true")
	}
	var resp Suggestions
	if err = c.do(ctx, http.MethodGet, "/suggest", params, nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Metrics fetches the performance report. A nil slowThresholdMs uses the server default.
func (c *Client) Metrics(ctx context.Context, slowThresholdMs *float64) (_ *Metrics, err error) {
	start := time.Now()
	defer func() { c.obs.observe("metrics", start, err) }()

	var params url.Values
	if slowThresholdMs != nil {
		params = url.Values{"slow_threshold_ms": {strconv.FormatFloat(*slowThresholdMs, 'f', -1, 64)}}
	}
	var resp Metrics
	if err = c.do(ctx, http.MethodGet, "/search/metrics", params, nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearCache removes cached results whose key contains pattern (all when empty)
// and returns how many were removed.
func (c *Client) ClearCache(ctx context.Context, pattern string) (_ int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("cache.clear", start, err) }()

	var params url.Values
	if pattern != "" {
		params = url.Values{"pattern": {pattern}}
	}
	var resp struct {
		Cleared int `json:"cleared"`
	}
	if err = c.do(ctx, http.MethodDelete, "/search/cache", params, nil, http.StatusOK, &resp); err != nil {
		return 0, err
	}
	return resp.Cleared, nil
}

// Health returns the server health. A degraded or failing server is not an error.
func (c *Client) Health(ctx context.Context) (_ HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	var hs HealthStatus
	err = c.do(ctx, http.MethodGet, "/health", nil, nil, http.StatusOK, &hs)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable && hs.Status != "" {
		return hs, nil
	}
	return hs, err
}

func (c *Client) do(
	ctx context.Context, method, path string, params url.Values, body any, want int, out any,
) error {
	u := *c.baseURL
	u.Path += path
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	var rdr io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("prodsearch: encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return fmt.Errorf("prodsearch: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("prodsearch: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("prodsearch: read response: %w", err)
	}

	if resp.StatusCode != want {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var er struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &er) == nil {
			apiErr.Code, apiErr.Message = er.Code, er.Message
		}
		// Health reports its body on 503 too.
		if out != nil && apiErr.Code == "" {
			_ = json.Unmarshal(data, out)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("prodsearch: decode response: %w", err)
	}
	return nil
}
