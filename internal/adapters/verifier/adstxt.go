package verifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"pubspy/internal/adapters/cache"
	"pubspy/internal/adapters/httpclient"
	"pubspy/internal/domain"
	"pubspy/pkg/log"
)

const (
	// DetailAdsTxtNotFound marks a domain without a reachable ads.txt.
	DetailAdsTxtNotFound = "ads.txt-not-found"
	// DetailAdsTxtNoMatch marks an ads.txt without an entry for the publisher.
	DetailAdsTxtNoMatch = "ads.txt-no-match"
)

const (
	defaultAdsTxtTimeout  = 8 * time.Second
	defaultAdsTxtMaxBytes = 512 << 10
	batchChunkSize        = 5
	batchChunkPause       = time.Second
)

// AdsTxt fetches, parses and caches ads.txt files.
type AdsTxt struct {
	client    *httpclient.Client
	cache     *cache.TTLCache
	allowlist func() []string
	urlFor    func(host string) string
	timeout   time.Duration
	maxBytes  int64
	now       func() time.Time
}

// AdsTxtOption configures an AdsTxt verifier.
type AdsTxtOption func(*AdsTxt)

// WithAllowlist supplies the ad-system allowlist. It is read on every fetch so it can be reloaded.
func WithAllowlist(fn func() []string) AdsTxtOption {
	return func(a *AdsTxt) {
		a.allowlist = fn
	}
}

// WithAdsTxtURL overrides how the ads.txt URL is built from a host.
func WithAdsTxtURL(fn func(host string) string) AdsTxtOption {
	return func(a *AdsTxt) {
		a.urlFor = fn
	}
}

// WithAdsTxtTimeout overrides the per-fetch timeout.
func WithAdsTxtTimeout(d time.Duration) AdsTxtOption {
	return func(a *AdsTxt) {
		a.timeout = d
	}
}

// NewAdsTxt creates an ads.txt verifier. c may be nil to disable caching.
func NewAdsTxt(client *httpclient.Client, c *cache.TTLCache, opts ...AdsTxtOption) *AdsTxt {
	a := &AdsTxt{
		client:    client,
		cache:     c,
		allowlist: func() []string { return DefaultAllowlist },
		urlFor:    func(host string) string { return "https://" + host + "/ads.txt" },
		timeout:   defaultAdsTxtTimeout,
		maxBytes:  defaultAdsTxtMaxBytes,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Check returns the analysis of host's ads.txt with Valid set for id.
// id may be empty, in which case Valid is false.
func (a *AdsTxt) Check(ctx context.Context, host string, id domain.PublisherID) (*domain.AdsTxtAnalysis, error) {
	h, ok := domain.CanonicalDomain(host)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidURL, host)
	}

	analysis, err := a.analysis(ctx, h)
	if err != nil {
		// transient failure with nothing cached to fall back on
		analysis = &domain.AdsTxtAnalysis{
			Domain:    h,
			URL:       a.urlFor(h),
			Entries:   []domain.AdsTxtEntry{},
			Relevant:  []domain.AdsTxtEntry{},
			Errors:    []string{err.Error()},
			CheckedAt: a.now(),
		}
	}

	out := *analysis
	if id != "" {
		_, out.Valid = out.Match(id)
	}
	return &out, nil
}

// Verify maps the ads.txt analysis of host to a verification result for id.
func (a *AdsTxt) Verify(ctx context.Context, host string, id domain.PublisherID) (domain.VerificationResult, error) {
	analysis, err := a.Check(ctx, host, id)
	if err != nil {
		return domain.VerificationResult{}, err
	}
	return resultFor(analysis, id), nil
}

func resultFor(analysis *domain.AdsTxtAnalysis, id domain.PublisherID) domain.VerificationResult {
	if !analysis.Found {
		return domain.VerificationFailed(DetailAdsTxtNotFound)
	}

	entry, ok := analysis.Match(id)
	if !ok {
		return domain.NotVerified(DetailAdsTxtNoMatch)
	}

	method := domain.MethodAdsTxtDirect
	if entry.Relationship == domain.RelationshipReseller {
		method = domain.MethodAdsTxtReseller
	}
	return domain.VerificationResult{
		Verified: true,
		Method:   method,
		Detail:   fmt.Sprintf("%s line %d", entry.Domain, entry.Line),
	}
}

// CheckBatch checks hosts in chunks of five, pausing between chunks.
// A failed check is reported in the analysis errors rather than aborting the batch.
func (a *AdsTxt) CheckBatch(ctx context.Context, hosts []string, id domain.PublisherID) map[string]*domain.AdsTxtAnalysis {
	results := make(map[string]*domain.AdsTxtAnalysis, len(hosts))
	var mu sync.Mutex

	for start := 0; start < len(hosts); start += batchChunkSize {
		end := min(start+batchChunkSize, len(hosts))

		var g errgroup.Group
		for _, host := range hosts[start:end] {
			g.Go(func() error {
				analysis, err := a.Check(ctx, host, id)
				if err != nil {
					analysis = &domain.AdsTxtAnalysis{
						Domain:    host,
						URL:       a.urlFor(host),
						Errors:    []string{err.Error()},
						CheckedAt: a.now(),
					}
				}
				mu.Lock()
				results[host] = analysis
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		if end < len(hosts) {
			select {
			case <-ctx.Done():
				return results
			case <-time.After(batchChunkPause):
			}
		}
	}
	return results
}

// analysis returns the cached or freshly fetched analysis of host.
func (a *AdsTxt) analysis(ctx context.Context, host string) (*domain.AdsTxtAnalysis, error) {
	if a.cache == nil {
		return a.fetch(ctx, host)
	}
	return cache.GetOrCompute(ctx, a.cache, cache.Key(cache.ClassAdsTxt, host), cache.ClassAdsTxt, func(ctx context.Context) (*domain.AdsTxtAnalysis, error) {
		return a.fetch(ctx, host)
	})
}

// fetch downloads and parses ads.txt. Definitive answers (parsed file, missing file) are
// returned as analyses; transient failures are returned as errors so they are not cached.
func (a *AdsTxt) fetch(ctx context.Context, host string) (*domain.AdsTxtAnalysis, error) {
	analysis := &domain.AdsTxtAnalysis{
		Domain:    host,
		URL:       a.urlFor(host),
		Entries:   []domain.AdsTxtEntry{},
		Relevant:  []domain.AdsTxtEntry{},
		CheckedAt: a.now(),
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.Get(fetchCtx, analysis.URL, a.maxBytes)
	if err != nil {
		var fe *domain.FetchError
		if errors.As(err, &fe) && fe.Retryable() {
			return nil, err
		}
		if errors.As(err, &fe) {
			analysis.Status = fe.Status
		}
		analysis.Errors = append(analysis.Errors, err.Error())
		log.GlobalDebugCtx(ctx, "ads.txt not available", "domain", host, "error", err)
		return analysis, nil
	}

	analysis.Found = true
	analysis.Status = resp.Status
	if resp.Truncated {
		analysis.Errors = append(analysis.Errors, fmt.Sprintf("file truncated at %d bytes", a.maxBytes))
	}

	entries, parseErrs := ParseAdsTxt(bytes.NewReader(resp.Body))
	if entries != nil {
		analysis.Entries = entries
	}
	analysis.Errors = append(analysis.Errors, parseErrs...)
	analysis.Relevant = relevantEntries(analysis.Entries, a.allowlist(), host)

	log.GlobalDebugCtx(ctx, "ads.txt parsed",
		"domain", host,
		"entries", len(analysis.Entries),
		"relevant", len(analysis.Relevant),
		"errors", len(parseErrs),
	)
	return analysis, nil
}
