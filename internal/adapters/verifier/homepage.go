package verifier

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"pubspy/internal/adapters/httpclient"
	"pubspy/internal/domain"
	"pubspy/pkg/log"
)

// DetailHomepageUnreachable marks a homepage that could not be fetched.
const DetailHomepageUnreachable = "homepage-unreachable"

const (
	defaultHomepageTimeout  = 5 * time.Second
	defaultHomepageMaxBytes = 2 << 20
)

// Homepage looks for the publisher ID in a domain's root page.
// A match is weak evidence: any page can embed another publisher's identifier.
type Homepage struct {
	client   *httpclient.Client
	urlFor   func(host string) string
	timeout  time.Duration
	maxBytes int64
}

// NewHomepage creates a homepage verifier.
func NewHomepage(client *httpclient.Client) *Homepage {
	return &Homepage{
		client:   client,
		urlFor:   func(host string) string { return "https://" + host + "/" },
		timeout:  defaultHomepageTimeout,
		maxBytes: defaultHomepageMaxBytes,
	}
}

// WithURL overrides how the homepage URL is built from a host.
func (h *Homepage) WithURL(fn func(host string) string) *Homepage {
	h.urlFor = fn
	return h
}

// Verify never returns an error for network failures; those map to a neutral result.
func (h *Homepage) Verify(ctx context.Context, host string, id domain.PublisherID) (domain.VerificationResult, error) {
	target, ok := domain.CanonicalDomain(host)
	if !ok {
		return domain.VerificationResult{}, fmt.Errorf("%w: %q", domain.ErrInvalidURL, host)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp, err := h.client.Get(fetchCtx, h.urlFor(target), h.maxBytes)
	if err != nil {
		log.GlobalDebugCtx(ctx, "homepage unreachable", "domain", target, "error", err)
		return domain.NotVerified(DetailHomepageUnreachable), nil
	}

	if ContainsPublisherID(string(resp.Body), id) {
		return domain.VerificationResult{
			Verified: true,
			Method:   domain.MethodContentHeuristic,
			Detail:   "identifier found in homepage markup",
		}, nil
	}
	return domain.NotVerified("homepage-no-match"), nil
}

// ContainsPublisherID reports whether content mentions id in canonical form or as its
// bare digits. Digit runs longer than sixteen do not count.
func ContainsPublisherID(content string, id domain.PublisherID) bool {
	digits := regexp.MustCompile(`(?:^|\D)` + regexp.QuoteMeta(id.Digits()) + `(?:\D|$)`)
	return digits.MatchString(content)
}
