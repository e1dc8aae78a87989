package web

import (
	"context"
	"errors"
	"time"

	"pubspy/internal/adapters/cache"
	"pubspy/internal/domain"
	"pubspy/internal/usecases"
	"pubspy/pkg/log"

	"github.com/gofiber/fiber/v2"
)

// requestTimeout bounds one pipeline run triggered over HTTP.
const requestTimeout = 2 * time.Minute

// Handlers contains the HTTP handlers for the JSON API.
type Handlers struct {
	discover     *usecases.DiscoverDomainsUseCase
	analyze      *usecases.AnalyzeTargetUseCase
	testProvider *usecases.TestProviderUseCase
	cache        *cache.TTLCache
	health       func(ctx context.Context) error
}

// NewHandlers creates a new Handlers instance. health may be nil.
func NewHandlers(
	discover *usecases.DiscoverDomainsUseCase,
	analyze *usecases.AnalyzeTargetUseCase,
	testProvider *usecases.TestProviderUseCase,
	c *cache.TTLCache,
	health func(ctx context.Context) error,
) *Handlers {
	return &Handlers{
		discover:     discover,
		analyze:      analyze,
		testProvider: testProvider,
		cache:        c,
		health:       health,
	}
}

type searchRequest struct {
	PublisherID string `json:"publisherId" form:"publisherId"`
}

type analyzeRequest struct {
	URL string `json:"url" form:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Search discovers the domains sharing a publisher ID.
func (h *Handlers) Search(c *fiber.Ctx) error {
	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, domain.ErrInvalidPublisherID)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	result, err := h.discover.Execute(ctx, req.PublisherID)
	if err != nil {
		log.GlobalErrorCtx(ctx, "discovery failed", "publisher_id", req.PublisherID, "error", err)
		return h.fail(c, err)
	}
	return c.JSON(result)
}

// Analyze extracts identifiers from a page and discovers their domains.
func (h *Handlers) Analyze(c *fiber.Ctx) error {
	var req analyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, domain.ErrInvalidURL)
	}

	target, err := ParseTargetURL(req.URL)
	if err != nil {
		log.GlobalWarnCtx(c.UserContext(), "invalid target URL", "url", req.URL, "error", err)
		return h.fail(c, err)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	result, err := h.analyze.Execute(ctx, target)
	if err != nil {
		log.GlobalErrorCtx(ctx, "analysis failed", "url", target, "error", err)
		return h.fail(c, err)
	}
	return c.JSON(result)
}

// TestAPI reports the search provider diagnostics.
func (h *Handlers) TestAPI(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 30*time.Second)
	defer cancel()

	diag := h.testProvider.Execute(ctx)
	if !diag.Success {
		c.Status(fiber.StatusServiceUnavailable)
	}
	return c.JSON(diag)
}

// CacheStats returns the cache counters.
func (h *Handlers) CacheStats(c *fiber.Ctx) error {
	if h.cache == nil {
		return c.JSON(cache.Stats{})
	}
	return c.JSON(h.cache.Stats())
}

// Healthz reports liveness, including the cache backend when one is configured.
func (h *Handlers) Healthz(c *fiber.Ctx) error {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "error": err.Error()})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// fail writes err as a JSON error with the matching status code.
func (h *Handlers) fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(errorResponse{Error: friendlyError(err)})
}

// statusFor maps caller mistakes to 400 and upstream failures to 502.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidPublisherID), errors.Is(err, domain.ErrInvalidURL):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusBadGateway
	}
}

// friendlyError returns a neutral, non-blaming error message.
func friendlyError(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidPublisherID):
		return "That doesn't look like a publisher ID. Use the form ca-pub- followed by 16 digits."
	case errors.Is(err, domain.ErrInvalidURL):
		return "That doesn't look like a public web page URL."
	case errors.Is(err, domain.ErrRateLimited):
		return "Too many requests. Please wait a moment and try again."
	case errors.Is(err, domain.ErrNotFound):
		return "The page couldn't be found."
	case errors.Is(err, domain.ErrFetchFailed):
		return "The page couldn't be loaded right now. Please try again in a moment."
	case errors.Is(err, context.DeadlineExceeded):
		return "This took too long. Please try again in a moment."
	default:
		return "Unable to complete this request right now. Please try again in a moment."
	}
}
