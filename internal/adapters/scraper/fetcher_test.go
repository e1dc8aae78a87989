package scraper_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pubspy/internal/adapters/httpclient"
	"pubspy/internal/adapters/scraper"
	"pubspy/test/fixtures"
)

// mockRenderer is a Renderer returning canned markup.
type mockRenderer struct {
	html  string
	err   error
	calls int
}

func (m *mockRenderer) Render(_ context.Context, _ string) (string, error) {
	m.calls++
	return m.html, m.err
}

func TestPageFetcher_DirectFetch_SkipsRenderer(t *testing.T) {
	// Arrange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(fixtures.GenerateAdSensePage()))
	}))
	defer srv.Close()
	renderer := &mockRenderer{}
	f := scraper.NewPageFetcher(httpclient.NewWithHTTPClient(srv.Client()), renderer, time.Second)

	// Act
	page, err := f.Fetch(context.Background(), srv.URL)

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Rendered {
		t.Error("expected direct fetch, got rendered page")
	}
	if renderer.calls != 0 {
		t.Errorf("renderer calls: got %d, want 0", renderer.calls)
	}
	if page.Charset != "utf-8" {
		t.Errorf("Charset: got %q", page.Charset)
	}
}

func TestPageFetcher_DirectFetchFails_FallsBackToRenderer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	renderer := &mockRenderer{html: fixtures.GenerateScriptOnlyPage()}
	f := scraper.NewPageFetcher(httpclient.NewWithHTTPClient(srv.Client()), renderer, time.Second)

	page, err := f.Fetch(context.Background(), srv.URL)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !page.Rendered || page.HTML != fixtures.GenerateScriptOnlyPage() {
		t.Errorf("expected rendered markup, got %+v", page)
	}
}

func TestPageFetcher_BothFail_ReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	renderer := &mockRenderer{err: errors.New("chrome crashed")}
	f := scraper.NewPageFetcher(httpclient.NewWithHTTPClient(srv.Client()), renderer, time.Second)

	_, err := f.Fetch(context.Background(), srv.URL)

	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestPageFetcher_NoRenderer_ReturnsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	f := scraper.NewPageFetcher(httpclient.NewWithHTTPClient(srv.Client()), nil, time.Second)

	_, err := f.Fetch(context.Background(), srv.URL)

	if err == nil {
		t.Fatal("expected an error")
	}
}
