package web

import (
	"pubspy/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// SetupRoutes configures the application routes.
func SetupRoutes(app *fiber.App, handlers *Handlers, rateLimiter *RateLimiter, m *metrics.Metrics) {
	app.Get("/healthz", handlers.Healthz)
	if m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	api := app.Group("/api")
	api.Get("/cache/stats", handlers.CacheStats)

	// pipeline endpoints hit external services and are rate limited per IP
	api.Post("/search", rateLimiter.Middleware(), handlers.Search)
	api.Post("/analyze", rateLimiter.Middleware(), handlers.Analyze)
	api.Post("/test-api", rateLimiter.Middleware(), handlers.TestAPI)
}
