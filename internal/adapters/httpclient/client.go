// Package httpclient is the shared outbound HTTP client for page, ads.txt and search fetches.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/html/charset"

	"pubspy/internal/domain"
)

// DefaultUserAgent identifies pubspy to the sites it checks.
const DefaultUserAgent = "Mozilla/5.0 (compatible; PubSpy/1.0; +https://github.com/pubspy)"

// Config tunes the transport.
type Config struct {
	ConnectTimeout time.Duration
	MaxRedirects   int
	UserAgent      string
}

// DefaultConfig returns sensible transport defaults.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 5 * time.Second,
		MaxRedirects:   5,
		UserAgent:      DefaultUserAgent,
	}
}

// Response is a fetched, charset-decoded body.
type Response struct {
	URL         string
	Status      int
	ContentType string
	Charset     string
	Body        []byte
	Truncated   bool
}

// Client performs bounded GET requests. Per-call deadlines come from the context.
type Client struct {
	client    *http.Client
	userAgent string
}

// New builds a Client with a tuned, instrumented transport.
func New(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = 5
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
	}

	maxRedirects := cfg.MaxRedirects
	client := &http.Client{
		Transport: otelhttp.NewTransport(transport),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	return &Client{client: client, userAgent: cfg.UserAgent}
}

// NewWithHTTPClient wraps an existing client, e.g. one pointed at an httptest server.
func NewWithHTTPClient(c *http.Client) *Client {
	return &Client{client: c, userAgent: DefaultUserAgent}
}

// Get fetches rawURL, reading at most maxBytes of the body (0 means unlimited).
// Non-2xx responses and transport failures are returned as *domain.FetchError.
func (c *Client) Get(ctx context.Context, rawURL string, maxBytes int64) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &domain.FetchError{Kind: domain.FetchNetwork, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classify(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, domain.NewStatusError(rawURL, resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if maxBytes > 0 {
		reader = io.LimitReader(resp.Body, maxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil && len(body) == 0 {
		return nil, classify(rawURL, err)
	}

	out := &Response{
		URL:         resp.Request.URL.String(),
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if maxBytes > 0 && int64(len(body)) > maxBytes {
		body = body[:maxBytes]
		out.Truncated = true
	}

	enc, name, _ := charset.DetermineEncoding(body, out.ContentType)
	out.Charset = name
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		decoded = body
	}
	out.Body = decoded

	return out, nil
}

// Do sends an arbitrary request through the instrumented transport.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.client.Do(req)
}

func classify(rawURL string, err error) *domain.FetchError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &domain.FetchError{Kind: domain.FetchTimeout, URL: rawURL, Err: err}
	}
	return &domain.FetchError{Kind: domain.FetchNetwork, URL: rawURL, Err: err}
}
