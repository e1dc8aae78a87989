package usecases

import (
	"context"

	"pubspy/internal/domain"
)

// SearchProvider defines the interface for the web search backend.
type SearchProvider interface {
	Search(ctx context.Context, query string) []domain.SearchHit
	Configured() bool
	Probe(ctx context.Context) domain.ProviderDiagnostics
}

// Verifier defines the interface for checking one candidate domain.
type Verifier interface {
	Verify(ctx context.Context, host string, id domain.PublisherID) (domain.VerificationResult, error)
}

// PageLoader defines the interface for fetching a target page.
type PageLoader interface {
	Fetch(ctx context.Context, pageURL string) (*domain.Page, error)
}

// PageInspector defines the interface for reading identifiers and metadata from markup.
type PageInspector interface {
	Detect(markup string) ([]domain.PublisherID, []string)
	PageInfo(markup, pageURL, fallbackCharset string) domain.PageInfo
}
