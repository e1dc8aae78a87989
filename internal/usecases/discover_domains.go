package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"pubspy/internal/adapters/cache"
	"pubspy/internal/domain"
	"pubspy/internal/metrics"
	"pubspy/pkg/log"
)

// DiscoverDomainsUseCase finds and verifies the domains that share a publisher ID.
type DiscoverDomainsUseCase struct {
	search     SearchProvider
	verify     *VerifyCandidatesUseCase
	cache      *cache.TTLCache
	metrics    *metrics.Metrics
	exclusions func() []string
	threshold  int
	now        func() time.Time
}

// DiscoverOption configures a DiscoverDomainsUseCase.
type DiscoverOption func(*DiscoverDomainsUseCase)

// WithExclusions supplies the exclusion list. It is read on every run so it can be reloaded.
func WithExclusions(fn func() []string) DiscoverOption {
	return func(uc *DiscoverDomainsUseCase) {
		uc.exclusions = fn
	}
}

// WithVolumeThreshold overrides the raw hit count that stops further queries.
func WithVolumeThreshold(n int) DiscoverOption {
	return func(uc *DiscoverDomainsUseCase) {
		if n > 0 {
			uc.threshold = n
		}
	}
}

// NewDiscoverDomainsUseCase creates a new DiscoverDomainsUseCase. c and m may be nil.
func NewDiscoverDomainsUseCase(search SearchProvider, verify *VerifyCandidatesUseCase, c *cache.TTLCache, m *metrics.Metrics, opts ...DiscoverOption) *DiscoverDomainsUseCase {
	uc := &DiscoverDomainsUseCase{
		search:     search,
		verify:     verify,
		cache:      c,
		metrics:    m,
		exclusions: func() []string { return DefaultExclusions },
		threshold:  DefaultVolumeThreshold,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Execute validates rawID and returns the cached or fresh discovery result.
// Only an invalid identifier is an error; provider trouble degrades to the demo fallback.
// Demo fallbacks are never cached, and an expired genuine result is preferred over one.
// Every call gets its own copy of the result.
func (uc *DiscoverDomainsUseCase) Execute(ctx context.Context, rawID string) (*domain.DiscoveryResult, error) {
	id, err := domain.ParsePublisherID(rawID)
	if err != nil {
		return nil, err
	}
	ctx = log.WithPublisherID(ctx, string(id))

	if uc.cache == nil {
		return uc.discover(ctx, id)
	}
	result, err := cache.GetOrCompute(ctx, uc.cache, cache.Key(cache.ClassSearch, string(id)), cache.ClassSearch, func(ctx context.Context) (*domain.DiscoveryResult, error) {
		r, err := uc.discover(ctx, id)
		if err == nil && r.Degraded {
			return nil, &degradedError{result: r}
		}
		return r, err
	})
	var degraded *degradedError
	if errors.As(err, &degraded) {
		return degraded.result.Clone(), nil
	}
	if err != nil {
		return nil, err
	}
	return result.Clone(), nil
}

// degradedError carries a demo fallback through the cache without storing it.
type degradedError struct {
	result *domain.DiscoveryResult
}

func (e *degradedError) Error() string {
	return "discovery degraded to demo fallback"
}

// Warmup runs discovery for each identifier so later lookups hit the cache.
// It returns how many identifiers were warmed.
func (uc *DiscoverDomainsUseCase) Warmup(ctx context.Context, ids []string) int {
	warmed := 0
	for _, raw := range ids {
		if ctx.Err() != nil {
			break
		}
		if _, err := uc.Execute(ctx, raw); err != nil {
			log.GlobalWarnCtx(ctx, "cache warmup skipped identifier", "publisher_id", raw, "error", err)
			continue
		}
		warmed++
	}
	log.GlobalInfoCtx(ctx, "cache warmup complete", "warmed", warmed, "requested", len(ids))
	return warmed
}

func (uc *DiscoverDomainsUseCase) discover(ctx context.Context, id domain.PublisherID) (*domain.DiscoveryResult, error) {
	start := time.Now()
	result := &domain.DiscoveryResult{
		ID:          uuid.NewString(),
		PublisherID: id,
		Domains:     []domain.DomainCandidate{},
		Source:      domain.ResultSearch,
	}

	if !uc.search.Configured() {
		log.GlobalWarnCtx(ctx, "search provider not configured, using demo fallback")
		return uc.fallback(result, start), nil
	}

	var hits []domain.SearchHit
	for _, q := range PlanQueries(id) {
		if ctx.Err() != nil {
			break
		}
		found := uc.search.Search(ctx, q)
		for i := range found {
			if found[i].Query == "" {
				found[i].Query = q
			}
		}
		hits = append(hits, found...)
		result.QueriesRun++
		if len(hits) >= uc.threshold {
			log.GlobalDebugCtx(ctx, "hit volume reached, skipping remaining queries", "hits", len(hits), "queries_run", result.QueriesRun)
			break
		}
	}
	// a cancelled run must not be cached as a complete answer
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result.TotalHits = len(hits)

	candidates := DedupeCandidates(hits, uc.exclusions())
	if len(candidates) == 0 {
		log.GlobalInfoCtx(ctx, "no candidate domains found, using demo fallback", "hits", len(hits))
		return uc.fallback(result, start), nil
	}
	if log.GlobalEnabled(log.Debug) {
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.Domain
		}
		log.GlobalDebugCtx(ctx, "candidate domains", "domains", names)
	}

	result.Domains = uc.verify.Execute(ctx, candidates, id)
	for _, c := range result.Domains {
		if c.Verified {
			result.VerifiedCount++
		}
	}
	result.SearchedAt = uc.now()

	uc.metrics.RecordDiscovery(string(result.Source), len(result.Domains), time.Since(start))
	log.GlobalInfoCtx(ctx, "discovery complete",
		"candidates", len(result.Domains),
		"verified", result.VerifiedCount,
		"queries_run", result.QueriesRun,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (uc *DiscoverDomainsUseCase) fallback(result *domain.DiscoveryResult, start time.Time) *domain.DiscoveryResult {
	result.Source = domain.ResultFallback
	result.Degraded = true
	result.Fallback = FallbackCandidates(result.PublisherID)
	result.SearchedAt = uc.now()
	uc.metrics.RecordDiscovery(string(result.Source), 0, time.Since(start))
	return result
}
