package domain

import "time"

// VerificationMethod records which signal confirmed (or failed to confirm) a candidate.
type VerificationMethod string

const (
	MethodNone             VerificationMethod = "none"
	MethodAdsTxtDirect     VerificationMethod = "ads.txt-direct"
	MethodAdsTxtReseller   VerificationMethod = "ads.txt-reseller"
	MethodContentHeuristic VerificationMethod = "content-heuristic"
	MethodError            VerificationMethod = "error"
)

// Confidence grades the evidence behind a verification.
type Confidence string

const (
	ConfidenceNone   Confidence = "none"
	ConfidenceWeak   Confidence = "weak"
	ConfidenceStrong Confidence = "strong"
)

// Confidence returns the evidence grade of the method.
// Content matches are advisory: any page can embed someone else's identifier.
func (m VerificationMethod) Confidence() Confidence {
	switch m {
	case MethodAdsTxtDirect, MethodAdsTxtReseller:
		return ConfidenceStrong
	case MethodContentHeuristic:
		return ConfidenceWeak
	default:
		return ConfidenceNone
	}
}

// CandidateSource tells genuine search findings apart from demo data.
type CandidateSource string

const (
	SourceSearch   CandidateSource = "search"
	SourceFallback CandidateSource = "fallback"
)

// SearchHit is a raw result returned by the search provider.
type SearchHit struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Query   string `json:"query"`
}

// DomainCandidate is a domain that may share the publisher identifier.
type DomainCandidate struct {
	Domain      string             `json:"domain"`
	Title       string             `json:"title"`
	Snippet     string             `json:"snippet,omitempty"`
	OriginQuery string             `json:"originQuery"`
	Verified    bool               `json:"verified"`
	Method      VerificationMethod `json:"verificationMethod"`
	Confidence  Confidence         `json:"confidence"`
	Detail      string             `json:"detail,omitempty"`
	LastChecked time.Time          `json:"lastChecked"`
	Source      CandidateSource    `json:"source"`

	// PublisherIDs lists the identifiers that led to this domain (set by page analysis).
	PublisherIDs []PublisherID `json:"publisherIds,omitempty"`
}

// Apply merges a verification outcome into the candidate.
func (c *DomainCandidate) Apply(r VerificationResult, at time.Time) {
	c.Verified = r.Verified
	c.Method = r.Method
	c.Confidence = r.Method.Confidence()
	c.Detail = r.Detail
	c.LastChecked = at
}

// VerificationResult is the outcome of one verifier for one candidate.
type VerificationResult struct {
	Verified bool               `json:"verified"`
	Method   VerificationMethod `json:"method"`
	Detail   string             `json:"detail,omitempty"`
}

// NotVerified is the neutral outcome when no verifier confirms.
func NotVerified(detail string) VerificationResult {
	return VerificationResult{Method: MethodNone, Detail: detail}
}

// VerificationFailed is the outcome when a verifier itself failed.
func VerificationFailed(detail string) VerificationResult {
	return VerificationResult{Method: MethodError, Detail: detail}
}
