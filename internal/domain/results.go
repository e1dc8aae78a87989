package domain

import (
	"slices"
	"time"
)

// ResultSource tells whether a discovery came from the search provider or the demo fallback.
type ResultSource string

const (
	ResultSearch   ResultSource = "search"
	ResultFallback ResultSource = "fallback"
)

// DiscoveryResult is the outcome of discovering domains for one publisher ID.
// Fallback holds labeled demo candidates and is never merged into Domains.
type DiscoveryResult struct {
	ID            string            `json:"id"`
	PublisherID   PublisherID       `json:"publisherId"`
	Domains       []DomainCandidate `json:"domains"`
	Fallback      []DomainCandidate `json:"fallback,omitempty"`
	TotalHits     int               `json:"totalHits"`
	QueriesRun    int               `json:"queriesRun"`
	VerifiedCount int               `json:"verifiedCount"`
	Source        ResultSource      `json:"source"`
	Degraded      bool              `json:"degraded"`
	SearchedAt    time.Time         `json:"searchedAt"`
}

// Clone returns a copy that shares no slices with r.
func (r *DiscoveryResult) Clone() *DiscoveryResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Domains = cloneCandidates(r.Domains)
	out.Fallback = cloneCandidates(r.Fallback)
	return &out
}

func cloneCandidates(in []DomainCandidate) []DomainCandidate {
	out := slices.Clone(in)
	for i := range out {
		out[i].PublisherIDs = slices.Clone(out[i].PublisherIDs)
	}
	return out
}

// Page is fetched markup ready for extraction.
type Page struct {
	URL      string
	HTML     string
	Charset  string
	Rendered bool
}

// PageInfo describes the analyzed page.
type PageInfo struct {
	URL         string `json:"url"`
	Domain      string `json:"domain"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language"`
	Charset     string `json:"charset"`
	Rendered    bool   `json:"rendered"`
}

// AnalysisResult is the outcome of analyzing a target page.
type AnalysisResult struct {
	URL              string            `json:"url"`
	PublisherIDs     []PublisherID     `json:"publisherIds"`
	Domains          []DomainCandidate `json:"domains"`
	VerifiedCount    int               `json:"verifiedCount"`
	Degraded         bool              `json:"degraded"`
	PageInfo         PageInfo          `json:"pageInfo"`
	DetectionMethods []string          `json:"detectionMethods"`
	AnalyzedAt       time.Time         `json:"analyzedAt"`
}

// Clone returns a copy that shares no slices with r.
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	out := *r
	out.PublisherIDs = slices.Clone(r.PublisherIDs)
	out.Domains = cloneCandidates(r.Domains)
	out.DetectionMethods = slices.Clone(r.DetectionMethods)
	return &out
}

// ProviderDiagnostics reports whether the search provider is usable.
type ProviderDiagnostics struct {
	Success       bool          `json:"success"`
	HasAPIKey     bool          `json:"hasApiKey"`
	HasEngineID   bool          `json:"hasEngineId"`
	KeyLength     int           `json:"keyLength"`
	EngineIDLen   int           `json:"engineIdLength"`
	Status        int           `json:"status,omitempty"`
	ResponseItems int           `json:"responseItems"`
	TotalResults  string        `json:"totalResults,omitempty"`
	Latency       time.Duration `json:"latency"`
	Attempts      int           `json:"attempts"`
	Error         string        `json:"error,omitempty"`
}
