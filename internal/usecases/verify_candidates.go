package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"pubspy/internal/adapters/cache"
	"pubspy/internal/domain"
	"pubspy/internal/metrics"
	"pubspy/pkg/log"
)

// Verification limits.
const (
	DefaultMaxVerify  = 15
	DefaultBatchSize  = 5
	DefaultBatchPause = 500 * time.Millisecond
)

// VerifyLimits bounds how many candidates are checked and how fast.
type VerifyLimits struct {
	MaxVerify  int
	BatchSize  int
	BatchPause time.Duration
}

// DefaultVerifyLimits returns the production limits.
func DefaultVerifyLimits() VerifyLimits {
	return VerifyLimits{
		MaxVerify:  DefaultMaxVerify,
		BatchSize:  DefaultBatchSize,
		BatchPause: DefaultBatchPause,
	}
}

// VerifyCandidatesUseCase checks candidates against ads.txt, then homepage content.
type VerifyCandidatesUseCase struct {
	adsTxt    Verifier
	heuristic Verifier
	cache     *cache.TTLCache
	metrics   *metrics.Metrics
	limits    VerifyLimits
	now       func() time.Time
}

// NewVerifyCandidatesUseCase creates a new VerifyCandidatesUseCase.
// heuristic, c and m may be nil.
func NewVerifyCandidatesUseCase(adsTxt, heuristic Verifier, c *cache.TTLCache, m *metrics.Metrics, limits VerifyLimits) *VerifyCandidatesUseCase {
	if limits.BatchSize <= 0 {
		limits.BatchSize = DefaultBatchSize
	}
	if limits.MaxVerify < 0 {
		limits.MaxVerify = 0
	}
	return &VerifyCandidatesUseCase{
		adsTxt:    adsTxt,
		heuristic: heuristic,
		cache:     c,
		metrics:   m,
		limits:    limits,
		now:       time.Now,
	}
}

// Execute returns a copy of candidates with the first MaxVerify verified.
// Candidates past the cap keep method none. One failing candidate never affects another.
func (uc *VerifyCandidatesUseCase) Execute(ctx context.Context, candidates []domain.DomainCandidate, id domain.PublisherID) []domain.DomainCandidate {
	out := make([]domain.DomainCandidate, len(candidates))
	copy(out, candidates)

	limit := min(uc.limits.MaxVerify, len(out))
	for start := 0; start < limit; start += uc.limits.BatchSize {
		if start > 0 && !sleepCtx(ctx, uc.limits.BatchPause) {
			log.GlobalWarnCtx(ctx, "verification cancelled", "verified", start, "total", limit)
			break
		}

		end := min(start+uc.limits.BatchSize, limit)
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				res := uc.verifyOne(ctx, out[i].Domain, id)
				out[i].Apply(res, uc.now())
				uc.metrics.RecordVerification(string(res.Method))
				return nil
			})
		}
		_ = g.Wait()
	}

	return out
}

// verifyOne returns the cached or fresh result for host. Panics are contained to this host.
func (uc *VerifyCandidatesUseCase) verifyOne(ctx context.Context, host string, id domain.PublisherID) (res domain.VerificationResult) {
	defer func() {
		if r := recover(); r != nil {
			log.GlobalErrorCtx(ctx, "verifier panicked", "domain", host, "panic", fmt.Sprint(r))
			res = domain.VerificationFailed(fmt.Sprintf("panic: %v", r))
		}
	}()

	if uc.cache == nil {
		return uc.check(ctx, host, id)
	}

	var failed domain.VerificationResult
	key := cache.Key(cache.ClassVerification, host, string(id))
	res, err := cache.GetOrCompute(ctx, uc.cache, key, cache.ClassVerification, func(ctx context.Context) (domain.VerificationResult, error) {
		r := uc.check(ctx, host, id)
		if r.Method == domain.MethodError {
			// failures stay out of the cache so the next run retries them
			failed = r
			return r, errVerificationFailed
		}
		return r, nil
	})
	if err != nil {
		if failed.Method != "" {
			return failed
		}
		return domain.VerificationFailed(err.Error())
	}
	return res
}

var errVerificationFailed = errors.New("verification failed")

// check runs ads.txt first and the heuristic only when ads.txt does not confirm.
// When neither confirms the result is method none with the ads.txt detail.
func (uc *VerifyCandidatesUseCase) check(ctx context.Context, host string, id domain.PublisherID) domain.VerificationResult {
	ctx = log.WithDomain(ctx, host)
	start := time.Now()
	res, err := uc.adsTxt.Verify(ctx, host, id)
	uc.metrics.ObserveVerifier("ads.txt", time.Since(start))
	if err != nil {
		log.GlobalWarnCtx(ctx, "ads.txt verification failed", "error", err)
		return domain.VerificationFailed(err.Error())
	}
	if res.Verified {
		return res
	}
	// a missing ads.txt is a definitive answer, not a verifier failure
	res = domain.NotVerified(res.Detail)
	if uc.heuristic == nil {
		return res
	}

	start = time.Now()
	hres, err := uc.heuristic.Verify(ctx, host, id)
	uc.metrics.ObserveVerifier("homepage", time.Since(start))
	if err != nil {
		log.GlobalWarnCtx(ctx, "homepage verification failed", "error", err)
		return domain.VerificationFailed(err.Error())
	}
	if hres.Verified {
		return hres
	}
	return res
}

// sleepCtx waits for d or until ctx is done. It reports whether the full wait elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
