package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pubspy/internal/adapters/cache"
	"pubspy/internal/adapters/scraper"
	"pubspy/internal/domain"
	"pubspy/internal/usecases"
	"pubspy/test/fixtures"
)

func TestAnalyzeTarget_InvalidURL(t *testing.T) {
	loader := &MockLoader{page: &domain.Page{}}
	uc := usecases.NewAnalyzeTargetUseCase(loader, scraper.NewExtractor(), nil, nil)

	_, err := uc.Execute(context.Background(), "ftp://example.com")

	if !errors.Is(err, domain.ErrInvalidURL) {
		t.Errorf("error: got %v, want ErrInvalidURL", err)
	}
	if loader.calls.Load() != 0 {
		t.Error("loader must not be called for an invalid URL")
	}
}

func TestAnalyzeTarget_FetchFailure_Propagates(t *testing.T) {
	fetchErr := &domain.FetchError{Kind: domain.FetchNetwork, URL: "https://down.com/", Err: errors.New("refused")}
	uc := usecases.NewAnalyzeTargetUseCase(&MockLoader{err: fetchErr}, scraper.NewExtractor(), nil, nil)

	_, err := uc.Execute(context.Background(), "down.com")

	assert.ErrorIs(t, err, domain.ErrFetchFailed)
}

func TestAnalyzeTarget_MergesDomainsAcrossIdentifiers(t *testing.T) {
	// Arrange
	second := "ca-pub-6543210987654321"
	search := &MockSearch{results: map[string][]domain.SearchHit{
		`"ca-pub-1234567890123456"`: {hit("https://shared.com", "Shared"), hit("https://only-first.com", "First")},
		`"` + second + `"`:          {hit("https://shared.com", "Shared"), hit("https://only-second.com", "Second")},
	}}
	ads := NewMockVerifier(domain.NotVerified("ads.txt-no-match"))
	uc := usecases.NewAnalyzeTargetUseCase(
		&MockLoader{page: &domain.Page{HTML: fixtures.GenerateMultiPublisherPage(), Charset: "iso-8859-1"}},
		scraper.NewExtractor(),
		newDiscover(search, ads, nil),
		nil,
	)

	// Act
	res, err := uc.Execute(context.Background(), "https://portal.com.br/home")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "https://portal.com.br/home", res.URL)
	require.Len(t, res.PublisherIDs, 2)
	assert.Equal(t, domain.PublisherID(second), res.PublisherIDs[0], "ordered by first appearance")
	assert.Equal(t, "pt-BR", res.PageInfo.Language)
	assert.Contains(t, res.DetectionMethods, "json-config")
	assert.Contains(t, res.DetectionMethods, "iframes")

	byDomain := map[string]domain.DomainCandidate{}
	for _, c := range res.Domains {
		byDomain[c.Domain] = c
	}
	require.Len(t, byDomain, 3)
	assert.Len(t, byDomain["shared.com"].PublisherIDs, 2)
	assert.Equal(t, []domain.PublisherID{domain.PublisherID(second)}, byDomain["only-second.com"].PublisherIDs)
}

func TestAnalyzeTarget_VerifiedSightingWins(t *testing.T) {
	second := "ca-pub-6543210987654321"
	search := &MockSearch{results: map[string][]domain.SearchHit{
		`"` + second + `"`:          {hit("https://shared.com", "Shared")},
		`"ca-pub-1234567890123456"`: {hit("https://shared.com", "Shared")},
	}}
	// verification results are per host, so the first discovery sees no match and the
	// second sees a direct match once the verifier flips
	ads := &flipVerifier{}
	verify := usecases.NewVerifyCandidatesUseCase(ads, nil, nil, nil, fastLimits())
	discover := usecases.NewDiscoverDomainsUseCase(search, verify, nil, nil)
	uc := usecases.NewAnalyzeTargetUseCase(
		&MockLoader{page: &domain.Page{HTML: fixtures.GenerateMultiPublisherPage()}},
		scraper.NewExtractor(), discover, nil,
	)

	res, err := uc.Execute(context.Background(), "portal.com.br")

	require.NoError(t, err)
	require.Len(t, res.Domains, 1)
	assert.True(t, res.Domains[0].Verified)
	assert.Equal(t, 1, res.VerifiedCount)
	assert.Len(t, res.Domains[0].PublisherIDs, 2)
}

func TestAnalyzeTarget_NoIdentifiers(t *testing.T) {
	search := &MockSearch{}
	uc := usecases.NewAnalyzeTargetUseCase(
		&MockLoader{page: &domain.Page{HTML: fixtures.GenerateNoAdsPage()}},
		scraper.NewExtractor(), newDiscover(search, NewMockVerifier(adsTxtDirect), nil), nil,
	)

	res, err := uc.Execute(context.Background(), "plain.org")

	require.NoError(t, err)
	assert.Empty(t, res.PublisherIDs)
	assert.Empty(t, res.Domains)
	assert.Empty(t, search.Queries())
	assert.Equal(t, "Plain", res.PageInfo.Title)
}

func TestAnalyzeTarget_CachedByHostAndPath(t *testing.T) {
	loader := &MockLoader{page: &domain.Page{HTML: fixtures.GenerateNoAdsPage()}}
	uc := usecases.NewAnalyzeTargetUseCase(loader, scraper.NewExtractor(),
		newDiscover(&MockSearch{}, NewMockVerifier(adsTxtDirect), nil), cache.New())

	_, err1 := uc.Execute(context.Background(), "https://plain.org/page")
	_, err2 := uc.Execute(context.Background(), "http://PLAIN.org/page#section")
	_, err3 := uc.Execute(context.Background(), "https://plain.org/other")

	require.NoError(t, err1)
	require.NoError(t, err2)
	require.NoError(t, err3)
	assert.Equal(t, int32(2), loader.calls.Load())
}

// flipVerifier reports no match on its first call and a direct match afterwards.
type flipVerifier struct {
	calls int
}

func (f *flipVerifier) Verify(context.Context, string, domain.PublisherID) (domain.VerificationResult, error) {
	f.calls++
	if f.calls == 1 {
		return domain.NotVerified("ads.txt-no-match"), nil
	}
	return adsTxtDirect, nil
}

func TestAnalyzeTarget_DegradedAnalysisIsNotCached(t *testing.T) {
	loader := &MockLoader{page: &domain.Page{HTML: fixtures.GenerateAdSensePage()}}
	uc := usecases.NewAnalyzeTargetUseCase(loader, scraper.NewExtractor(),
		newDiscover(&MockSearch{unconfigured: true}, NewMockVerifier(adsTxtDirect), nil), cache.New())

	first, err1 := uc.Execute(context.Background(), "https://recipes.example.com/")
	_, err2 := uc.Execute(context.Background(), "https://recipes.example.com/")

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.True(t, first.Degraded)
	assert.Equal(t, int32(2), loader.calls.Load())
}
