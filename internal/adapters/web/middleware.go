package web

import (
	"strconv"
	"sync"
	"time"

	"pubspy/internal/metrics"
	"pubspy/pkg/log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// RateLimiter tracks pipeline requests per IP over a sliding window.
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

// NewRateLimiter creates a new rate limiter. A limit of zero or less disables limiting.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go rl.cleanup(5 * time.Minute)
	return rl
}

// Allow records a request from ip and reports whether it is within the limit.
// Rejected requests are not recorded.
func (rl *RateLimiter) Allow(ip string) bool {
	if rl.limit <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	recent := prune(rl.requests[ip], now.Add(-rl.window))
	if len(recent) >= rl.limit {
		rl.requests[ip] = recent
		return false
	}
	rl.requests[ip] = append(recent, now)
	return true
}

// Middleware returns a Fiber middleware that rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !rl.Allow(c.IP()) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(rl.window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(errorResponse{
				Error: "Too many requests. Please wait a moment and try again.",
			})
		}
		return c.Next()
	}
}

// Close stops the cleanup goroutine.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

// cleanup periodically removes old entries from the rate limiter.
func (rl *RateLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
		}

		rl.mu.Lock()
		cutoff := rl.now().Add(-rl.window)
		for ip, timestamps := range rl.requests {
			if recent := prune(timestamps, cutoff); len(recent) == 0 {
				delete(rl.requests, ip)
			} else {
				rl.requests[ip] = recent
			}
		}
		rl.mu.Unlock()
	}
}

func prune(timestamps []time.Time, cutoff time.Time) []time.Time {
	var recent []time.Time
	for _, t := range timestamps {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	return recent
}

// RequestIDConfig returns the configuration for Fiber's requestid middleware.
// Uses X-Request-ID header, generates UUID if not present.
func RequestIDConfig() requestid.Config {
	return requestid.Config{
		Header:     "X-Request-ID",
		ContextKey: "requestid",
	}
}

// RequestIDToContextMiddleware bridges Fiber's requestid to pkg/log context.
// Must be used AFTER requestid.New() middleware.
func RequestIDToContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Locals("requestid")
		if reqID != nil {
			if id, ok := reqID.(string); ok {
				ctx := log.WithRequestID(c.UserContext(), id)
				c.SetUserContext(ctx)
			}
		}
		return c.Next()
	}
}

// RequestLoggerMiddleware logs HTTP requests in structured JSON format.
// Must be used AFTER RequestIDToContextMiddleware.
func RequestLoggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()

		ctx := c.UserContext()
		fields := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"ip", c.IP(),
			"user_agent", c.Get("User-Agent"),
		}
		if err != nil {
			fields = append(fields, "error", err.Error())
		}

		switch {
		case status >= 500:
			log.GlobalErrorCtx(ctx, "request completed", fields...)
		case status >= 400:
			log.GlobalWarnCtx(ctx, "request completed", fields...)
		default:
			log.GlobalInfoCtx(ctx, "request completed", fields...)
		}

		return err
	}
}

// MetricsMiddleware records request counts and latency per matched route.
func MetricsMiddleware(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		m.RecordHTTPRequest(c.Method(), route, strconv.Itoa(c.Response().StatusCode()), time.Since(start))
		return err
	}
}
