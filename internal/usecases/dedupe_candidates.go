package usecases

import (
	"strings"

	"pubspy/internal/domain"
)

// maxTitleRunes bounds candidate titles.
const maxTitleRunes = 100

// DefaultExclusions lists platforms that mention identifiers without being publishers.
var DefaultExclusions = []string{
	"google.com",
	"youtube.com",
	"facebook.com",
	"twitter.com",
	"x.com",
	"github.com",
	"stackoverflow.com",
	"reddit.com",
	"wikipedia.org",
	"linkedin.com",
	"medium.com",
	"pinterest.com",
	"instagram.com",
	"amazon.com",
}

// DedupeCandidates turns raw hits into unique candidate domains in first-seen order.
// Hits without a usable host and hosts under an excluded domain are dropped.
func DedupeCandidates(hits []domain.SearchHit, exclusions []string) []domain.DomainCandidate {
	seen := make(map[string]bool, len(hits))
	out := make([]domain.DomainCandidate, 0, len(hits))

	for _, hit := range hits {
		host, ok := domain.CanonicalDomain(hit.Link)
		if !ok || seen[host] || excluded(host, exclusions) {
			continue
		}
		seen[host] = true

		out = append(out, domain.DomainCandidate{
			Domain:      host,
			Title:       cleanTitle(hit.Title),
			Snippet:     strings.TrimSpace(hit.Snippet),
			OriginQuery: hit.Query,
			Method:      domain.MethodNone,
			Confidence:  domain.ConfidenceNone,
			Source:      domain.SourceSearch,
		})
	}
	return out
}

func excluded(host string, exclusions []string) bool {
	for _, ex := range exclusions {
		if domain.MatchesDomain(host, ex) {
			return true
		}
	}
	return false
}

func cleanTitle(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	if r := []rune(title); len(r) > maxTitleRunes {
		title = string(r[:maxTitleRunes])
	}
	return title
}
