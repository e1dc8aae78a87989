package search_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pubspy/internal/adapters/cache"
	"pubspy/internal/adapters/httpclient"
	"pubspy/internal/adapters/search"
)

const okBody = `{
  "searchInformation": {"totalResults": "2", "searchTime": 0.12},
  "items": [
    {"title": "First", "link": "https://www.one.com/a", "snippet": "s1"},
    {"title": "Second", "link": "https://two.org/b", "snippet": "s2"}
  ]
}`

func newClient(t *testing.T, srv *httptest.Server, mutate func(*search.Config)) *search.GoogleClient {
	t.Helper()
	cfg := search.Config{
		APIKey:           "key",
		EngineID:         "cx",
		Endpoint:         srv.URL,
		Timeout:          time.Second,
		MaxAttempts:      3,
		Backoff:          time.Millisecond,
		RateLimitBackoff: 2 * time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return search.NewGoogleClient(cfg, httpclient.NewWithHTTPClient(srv.Client()), nil)
}

func TestSearch_ReturnsHitsInProviderOrder(t *testing.T) {
	// Arrange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.URL.Query().Get("key"))
		assert.Equal(t, "cx", r.URL.Query().Get("cx"))
		assert.Equal(t, `"ca-pub-1234567890123456"`, r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("num"))
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()
	c := newClient(t, srv, nil)

	// Act
	hits := c.Search(context.Background(), `"ca-pub-1234567890123456"`)

	// Assert
	require.Len(t, hits, 2)
	assert.Equal(t, "First", hits[0].Title)
	assert.Equal(t, "https://two.org/b", hits[1].Link)
	assert.Equal(t, `"ca-pub-1234567890123456"`, hits[0].Query)
}

func TestSearch_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()
	c := newClient(t, srv, nil)

	hits := c.Search(context.Background(), "q")

	assert.Len(t, hits, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSearch_ExhaustedAttempts_ReturnsEmpty(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := newClient(t, srv, nil)

	hits := c.Search(context.Background(), "q")

	assert.NotNil(t, hits)
	assert.Empty(t, hits)
	assert.Equal(t, int32(3), calls.Load(), "attempt count is bounded")
}

func TestSearch_APIErrorBody_IsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "quota"}}`))
	}))
	defer srv.Close()
	c := newClient(t, srv, func(cfg *search.Config) { cfg.MaxAttempts = 2 })

	hits := c.Search(context.Background(), "q")

	assert.Empty(t, hits)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearch_RateLimitBackoffIsLongerThanGeneric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	c := newClient(t, srv, func(cfg *search.Config) {
		cfg.Backoff = time.Millisecond
		cfg.RateLimitBackoff = 40 * time.Millisecond
	})

	start := time.Now()
	_ = c.Search(context.Background(), "q")

	// waits are attempt x backoff: 40ms + 80ms
	assert.GreaterOrEqual(t, time.Since(start), 120*time.Millisecond)
}

func TestSearch_Unconfigured_ReturnsEmptyWithoutRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()
	c := newClient(t, srv, func(cfg *search.Config) { cfg.APIKey = "" })

	hits := c.Search(context.Background(), "q")

	assert.False(t, c.Configured())
	assert.Empty(t, hits)
	assert.Equal(t, int32(0), calls.Load())
}

func TestSearch_CancelledContext_StopsRetrying(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := newClient(t, srv, func(cfg *search.Config) { cfg.Backoff = time.Second })
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	hits := c.Search(ctx, "q")

	assert.Empty(t, hits)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearch_IntervalSpacesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()
	c := newClient(t, srv, func(cfg *search.Config) { cfg.Interval = 50 * time.Millisecond })

	start := time.Now()
	_ = c.Search(context.Background(), "a")
	_ = c.Search(context.Background(), "b")
	_ = c.Search(context.Background(), "c")

	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestProbe_ReportsDiagnostics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()
	c := newClient(t, srv, nil)

	diag := c.Probe(context.Background())

	assert.True(t, diag.Success)
	assert.True(t, diag.HasAPIKey)
	assert.True(t, diag.HasEngineID)
	assert.Equal(t, 3, diag.KeyLength)
	assert.Equal(t, 2, diag.ResponseItems)
	assert.Equal(t, "2", diag.TotalResults)
	assert.Equal(t, 1, diag.Attempts)
	assert.Empty(t, diag.Error)
}

func TestProbe_Unconfigured(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	c := newClient(t, srv, func(cfg *search.Config) { cfg.EngineID = "" })

	diag := c.Probe(context.Background())

	assert.False(t, diag.Success)
	assert.False(t, diag.HasEngineID)
	assert.NotEmpty(t, diag.Error)
	assert.Equal(t, 0, diag.Attempts)
}

func TestProbe_FailureRecordsStatusAndAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	c := newClient(t, srv, nil)

	diag := c.Probe(context.Background())

	assert.False(t, diag.Success)
	assert.Equal(t, http.StatusForbidden, diag.Status)
	assert.Equal(t, 3, diag.Attempts)
}

func TestSearch_ResponseCache_ServesRepeatsAndStaleOnFailure(t *testing.T) {
	// Arrange
	var calls atomic.Int32
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()
	now := time.Now()
	tc := cache.New(cache.WithClock(func() time.Time { return now }))
	c := newClient(t, srv, nil).WithResponseCache(tc)

	// Act
	first := c.Search(context.Background(), "q")
	second := c.Search(context.Background(), "q")
	now = now.Add(tc.TTL(cache.ClassResponse) + time.Second)
	failing.Store(true)
	stale := c.Search(context.Background(), "q")

	// Assert
	assert.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.Equal(t, first, stale, "expired entry served when the provider fails")
	assert.Equal(t, int32(4), calls.Load(), "one fresh call plus three failed attempts")
	assert.Equal(t, uint64(1), tc.Stats().StaleHits)
}
