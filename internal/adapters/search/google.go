// Package search queries the Google Custom Search JSON API.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"pubspy/internal/adapters/cache"
	"pubspy/internal/adapters/httpclient"
	"pubspy/internal/domain"
	"pubspy/internal/metrics"
	"pubspy/pkg/log"
)

// DefaultEndpoint is the Custom Search JSON API endpoint.
const DefaultEndpoint = "https://www.googleapis.com/customsearch/v1"

// probeQuery is the fixed query used for diagnostics.
const probeQuery = `"ca-pub" adsense`

const maxResponseBytes = 1 << 20

// Config holds provider credentials and retry policy.
type Config struct {
	APIKey           string
	EngineID         string
	Endpoint         string
	ResultsPerQuery  int
	Timeout          time.Duration
	MaxAttempts      int
	Backoff          time.Duration
	RateLimitBackoff time.Duration
	Interval         time.Duration
}

// DefaultConfig returns the default retry policy without credentials.
func DefaultConfig() Config {
	return Config{
		Endpoint:         DefaultEndpoint,
		ResultsPerQuery:  5,
		Timeout:          8 * time.Second,
		MaxAttempts:      3,
		Backoff:          time.Second,
		RateLimitBackoff: 2 * time.Second,
		Interval:         250 * time.Millisecond,
	}
}

// cseResponse mirrors the parts of the API response pubspy reads.
type cseResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
	SearchInformation struct {
		TotalResults string  `json:"totalResults"`
		SearchTime   float64 `json:"searchTime"`
	} `json:"searchInformation"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GoogleClient runs queries with per-request timeouts, bounded retries and a
// minimum interval between requests.
type GoogleClient struct {
	cfg     Config
	http    *httpclient.Client
	limiter *rate.Limiter
	metrics *metrics.Metrics
	cache   *cache.TTLCache
}

// NewGoogleClient creates a client. Zero-valued policy fields take their defaults.
func NewGoogleClient(cfg Config, client *httpclient.Client, m *metrics.Metrics) *GoogleClient {
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.ResultsPerQuery <= 0 || cfg.ResultsPerQuery > 10 {
		cfg.ResultsPerQuery = def.ResultsPerQuery
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}

	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}

	return &GoogleClient{
		cfg:     cfg,
		http:    client,
		limiter: rate.NewLimiter(limit, 1),
		metrics: m,
	}
}

// WithResponseCache caches the hits of each query under the response class.
// A query whose retries are exhausted is answered from an expired entry when one exists.
func (c *GoogleClient) WithResponseCache(tc *cache.TTLCache) *GoogleClient {
	c.cache = tc
	return c
}

// Configured reports whether both the API key and the engine id are present.
func (c *GoogleClient) Configured() bool {
	return c.cfg.APIKey != "" && c.cfg.EngineID != ""
}

// Search returns the hits for query in provider order.
// Failures are retried; when every attempt fails the result is empty.
func (c *GoogleClient) Search(ctx context.Context, query string) []domain.SearchHit {
	if !c.Configured() {
		log.GlobalWarnCtx(ctx, "search provider not configured", "query", query)
		return []domain.SearchHit{}
	}

	run := func(ctx context.Context) ([]domain.SearchHit, error) {
		hits, attempts, err := c.searchWithRetry(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("after %d attempts: %w", attempts, err)
		}
		return hits, nil
	}

	var hits []domain.SearchHit
	var err error
	if c.cache != nil {
		hits, err = cache.GetOrCompute(ctx, c.cache, cache.Key(cache.ClassResponse, query), cache.ClassResponse, run)
	} else {
		hits, err = run(ctx)
	}
	if err != nil {
		log.GlobalWarnCtx(ctx, "search failed", "query", query, "error", err)
		return []domain.SearchHit{}
	}
	if hits == nil {
		return []domain.SearchHit{}
	}
	return hits
}

// Probe runs the diagnostic query and reports what happened.
func (c *GoogleClient) Probe(ctx context.Context) domain.ProviderDiagnostics {
	diag := domain.ProviderDiagnostics{
		HasAPIKey:   c.cfg.APIKey != "",
		HasEngineID: c.cfg.EngineID != "",
		KeyLength:   len(c.cfg.APIKey),
		EngineIDLen: len(c.cfg.EngineID),
	}
	if !c.Configured() {
		diag.Error = domain.ErrProviderUnavailable.Error()
		return diag
	}

	start := time.Now()
	var resp *cseResponse
	var err error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		diag.Attempts = attempt
		resp, diag.Status, err = c.request(ctx, probeQuery)
		if err == nil || !c.shouldRetry(ctx, attempt, diag.Status, probeQuery, err) {
			break
		}
	}
	diag.Latency = time.Since(start)

	if err != nil {
		diag.Error = err.Error()
		return diag
	}
	diag.Success = true
	diag.ResponseItems = len(resp.Items)
	diag.TotalResults = resp.SearchInformation.TotalResults
	return diag
}

func (c *GoogleClient) searchWithRetry(ctx context.Context, query string) ([]domain.SearchHit, int, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		resp, status, err := c.request(ctx, query)
		if err == nil {
			hits := make([]domain.SearchHit, 0, len(resp.Items))
			for _, it := range resp.Items {
				hits = append(hits, domain.SearchHit{
					Title:   it.Title,
					Link:    it.Link,
					Snippet: it.Snippet,
					Query:   query,
				})
			}
			log.GlobalDebugCtx(ctx, "search completed", "query", query, "hits", len(hits), "attempt", attempt)
			return hits, attempt, nil
		}

		lastErr = err
		if !c.shouldRetry(ctx, attempt, status, query, err) {
			return nil, attempt, lastErr
		}
	}
	return nil, c.cfg.MaxAttempts, lastErr
}

// shouldRetry waits out the backoff for the failed attempt and reports whether to try again.
func (c *GoogleClient) shouldRetry(ctx context.Context, attempt, status int, query string, err error) bool {
	if attempt >= c.cfg.MaxAttempts || ctx.Err() != nil {
		return false
	}

	wait := time.Duration(attempt) * c.cfg.Backoff
	if status == 429 {
		wait = time.Duration(attempt) * c.cfg.RateLimitBackoff
	}
	log.GlobalWarnCtx(ctx, "search attempt failed, retrying",
		"query", query,
		"attempt", attempt,
		"status", status,
		"wait", wait.String(),
		"error", err,
	)

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// request performs a single API call and returns the HTTP status alongside any error.
func (c *GoogleClient) request(ctx context.Context, query string) (*cseResponse, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("key", c.cfg.APIKey)
	params.Set("cx", c.cfg.EngineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(c.cfg.ResultsPerQuery))

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.http.Get(reqCtx, c.cfg.Endpoint+"?"+params.Encode(), maxResponseBytes)
	if err != nil {
		status := 0
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			status = fe.Status
		}
		c.metrics.RecordSearchRequest(outcome(status), 0, time.Since(start))
		return nil, status, err
	}

	var out cseResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		c.metrics.RecordSearchRequest("decode_error", 0, time.Since(start))
		return nil, resp.Status, fmt.Errorf("decode search response: %w", err)
	}
	if out.Error != nil {
		c.metrics.RecordSearchRequest("api_error", 0, time.Since(start))
		return nil, out.Error.Code, fmt.Errorf("search API error %d: %s", out.Error.Code, out.Error.Message)
	}

	c.metrics.RecordSearchRequest("ok", len(out.Items), time.Since(start))
	return &out, resp.Status, nil
}

func outcome(status int) string {
	switch {
	case status == 429:
		return "rate_limited"
	case status >= 500:
		return "server_error"
	case status > 0:
		return "client_error"
	}
	return "transport_error"
}
