package usecases

import (
	"strconv"

	"pubspy/internal/domain"
)

// demoDomains are well-known sites shown when discovery finds nothing.
var demoDomains = []string{
	"example.com",
	"github.com",
	"stackoverflow.com",
	"mozilla.org",
	"w3.org",
}

// DetailDemoData labels every fallback candidate.
const DetailDemoData = "demo data, not a finding"

// FallbackCandidates returns three to five clearly labeled demo candidates for id.
// The count depends only on id so repeated runs agree.
func FallbackCandidates(id domain.PublisherID) []domain.DomainCandidate {
	digits := id.Digits()
	tail, _ := strconv.Atoi(digits[max(0, len(digits)-4):])
	n := 3 + (tail%100)%3

	out := make([]domain.DomainCandidate, 0, n)
	for _, d := range demoDomains[:n] {
		out = append(out, domain.DomainCandidate{
			Domain:     d,
			Title:      "Demo result: " + d,
			Snippet:    "Search provider unavailable or returned no candidates for " + string(id),
			Method:     domain.MethodNone,
			Confidence: domain.ConfidenceNone,
			Detail:     DetailDemoData,
			Source:     domain.SourceFallback,
		})
	}
	return out
}
