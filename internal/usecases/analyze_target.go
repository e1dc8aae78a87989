package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pubspy/internal/adapters/cache"
	"pubspy/internal/domain"
	"pubspy/pkg/log"
)

// AnalyzeTargetUseCase extracts identifiers from a page and discovers domains for each.
type AnalyzeTargetUseCase struct {
	loader    PageLoader
	inspector PageInspector
	discover  *DiscoverDomainsUseCase
	cache     *cache.TTLCache
	now       func() time.Time
}

// NewAnalyzeTargetUseCase creates a new AnalyzeTargetUseCase. c may be nil.
func NewAnalyzeTargetUseCase(loader PageLoader, inspector PageInspector, discover *DiscoverDomainsUseCase, c *cache.TTLCache) *AnalyzeTargetUseCase {
	return &AnalyzeTargetUseCase{
		loader:    loader,
		inspector: inspector,
		discover:  discover,
		cache:     c,
		now:       time.Now,
	}
}

// Execute analyzes the page at rawURL. An invalid URL or an unreachable page is an error.
// Analyses that fell back to demo data are not cached. Every call gets its own copy.
func (uc *AnalyzeTargetUseCase) Execute(ctx context.Context, rawURL string) (*domain.AnalysisResult, error) {
	target, err := domain.NormalizeTargetURL(rawURL)
	if err != nil {
		return nil, err
	}

	if uc.cache == nil {
		return uc.analyze(ctx, target.String())
	}
	key := cache.Key(cache.ClassPageAnalysis, target.Host+target.Path)
	result, err := cache.GetOrCompute(ctx, uc.cache, key, cache.ClassPageAnalysis, func(ctx context.Context) (*domain.AnalysisResult, error) {
		r, err := uc.analyze(ctx, target.String())
		if err == nil && r.Degraded {
			return nil, &degradedAnalysisError{result: r}
		}
		return r, err
	})
	var degraded *degradedAnalysisError
	if errors.As(err, &degraded) {
		return degraded.result.Clone(), nil
	}
	if err != nil {
		return nil, err
	}
	return result.Clone(), nil
}

// degradedAnalysisError keeps analyses built on demo data out of the cache.
type degradedAnalysisError struct {
	result *domain.AnalysisResult
}

func (e *degradedAnalysisError) Error() string {
	return "page analysis degraded"
}

func (uc *AnalyzeTargetUseCase) analyze(ctx context.Context, pageURL string) (*domain.AnalysisResult, error) {
	page, err := uc.loader.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", pageURL, err)
	}

	info := uc.inspector.PageInfo(page.HTML, pageURL, page.Charset)
	info.Rendered = page.Rendered
	ids, methods := uc.inspector.Detect(page.HTML)
	log.GlobalInfoCtx(ctx, "page analyzed", "url", pageURL, "identifiers", len(ids), "rendered", page.Rendered)

	result := &domain.AnalysisResult{
		URL:              pageURL,
		PublisherIDs:     ids,
		Domains:          []domain.DomainCandidate{},
		PageInfo:         info,
		DetectionMethods: methods,
	}

	m := newDomainMerger()
	for _, id := range ids {
		found, err := uc.discover.Execute(ctx, string(id))
		if err != nil {
			log.GlobalWarnCtx(ctx, "discovery failed for identifier", "publisher_id", id, "error", err)
			continue
		}
		if found.Degraded {
			result.Degraded = true
		}
		for _, c := range found.Domains {
			m.add(c, id)
		}
	}

	result.Domains = m.list()
	for _, c := range result.Domains {
		if c.Verified {
			result.VerifiedCount++
		}
	}
	result.AnalyzedAt = uc.now()
	return result, nil
}

// domainMerger combines candidates found for several identifiers.
// A verified sighting replaces an unverified one; identifiers accumulate.
type domainMerger struct {
	index map[string]int
	out   []domain.DomainCandidate
}

func newDomainMerger() *domainMerger {
	return &domainMerger{index: make(map[string]int)}
}

func (m *domainMerger) add(c domain.DomainCandidate, id domain.PublisherID) {
	i, ok := m.index[c.Domain]
	if !ok {
		c.PublisherIDs = []domain.PublisherID{id}
		m.index[c.Domain] = len(m.out)
		m.out = append(m.out, c)
		return
	}

	existing := &m.out[i]
	ids := append(existing.PublisherIDs, id)
	if c.Verified && !existing.Verified {
		*existing = c
	}
	existing.PublisherIDs = ids
}

func (m *domainMerger) list() []domain.DomainCandidate {
	if m.out == nil {
		return []domain.DomainCandidate{}
	}
	return m.out
}
