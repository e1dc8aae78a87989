package usecases_test

import (
	"context"
	"sync"
	"sync/atomic"

	"pubspy/internal/domain"
)

const testID = "ca-pub-1234567890123456"

// MockSearch is a mock implementation of SearchProvider.
type MockSearch struct {
	mu           sync.Mutex
	results      map[string][]domain.SearchHit
	perQuery     []domain.SearchHit
	unconfigured bool
	queries      []string
	diagnostics  domain.ProviderDiagnostics
	onSearch     func()
}

func (m *MockSearch) Search(_ context.Context, query string) []domain.SearchHit {
	if m.onSearch != nil {
		m.onSearch()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	if hits, ok := m.results[query]; ok {
		return hits
	}
	return append([]domain.SearchHit(nil), m.perQuery...)
}

func (m *MockSearch) Configured() bool { return !m.unconfigured }

func (m *MockSearch) Probe(context.Context) domain.ProviderDiagnostics { return m.diagnostics }

func (m *MockSearch) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// MockVerifier is a mock implementation of Verifier keyed by host.
type MockVerifier struct {
	mu       sync.Mutex
	results  map[string]domain.VerificationResult
	errs     map[string]error
	panics   map[string]bool
	fallback domain.VerificationResult
	calls    atomic.Int32
	hosts    []string
}

func NewMockVerifier(fallback domain.VerificationResult) *MockVerifier {
	return &MockVerifier{
		results:  map[string]domain.VerificationResult{},
		errs:     map[string]error{},
		panics:   map[string]bool{},
		fallback: fallback,
	}
}

func (m *MockVerifier) Verify(_ context.Context, host string, _ domain.PublisherID) (domain.VerificationResult, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.hosts = append(m.hosts, host)
	res, ok := m.results[host]
	err := m.errs[host]
	shouldPanic := m.panics[host]
	m.mu.Unlock()

	if shouldPanic {
		panic("boom: " + host)
	}
	if err != nil {
		return domain.VerificationResult{}, err
	}
	if !ok {
		return m.fallback, nil
	}
	return res, nil
}

func (m *MockVerifier) Hosts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.hosts...)
}

// MockLoader is a mock implementation of PageLoader.
type MockLoader struct {
	page  *domain.Page
	err   error
	calls atomic.Int32
}

func (m *MockLoader) Fetch(_ context.Context, pageURL string) (*domain.Page, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	p := *m.page
	p.URL = pageURL
	return &p, nil
}

func hit(link, title string) domain.SearchHit {
	return domain.SearchHit{Title: title, Link: link, Snippet: "snippet for " + link}
}

var adsTxtDirect = domain.VerificationResult{Verified: true, Method: domain.MethodAdsTxtDirect, Detail: "google.com line 1"}
