package scraper

import (
	"context"
	"errors"
	"time"

	"pubspy/internal/adapters/httpclient"
	"pubspy/internal/domain"
	"pubspy/pkg/log"
)

// maxPageBytes caps how much of a target page is read.
const maxPageBytes = 2 << 20

// Renderer loads a page in a real browser.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// PageFetcher loads target pages over HTTP, falling back to a browser render when the
// direct fetch fails or the page carries no markup worth scanning.
type PageFetcher struct {
	client        *httpclient.Client
	renderer      Renderer
	timeout       time.Duration
	renderTimeout time.Duration
}

// NewPageFetcher creates a fetcher. renderer may be nil to disable the browser fallback.
func NewPageFetcher(client *httpclient.Client, renderer Renderer, timeout time.Duration) *PageFetcher {
	return &PageFetcher{
		client:        client,
		renderer:      renderer,
		timeout:       timeout,
		renderTimeout: 30 * time.Second,
	}
}

// Fetch returns the page markup.
func (f *PageFetcher) Fetch(ctx context.Context, pageURL string) (*domain.Page, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	resp, err := f.client.Get(fetchCtx, pageURL, maxPageBytes)
	if err == nil && len(resp.Body) > 0 {
		return &domain.Page{URL: resp.URL, HTML: string(resp.Body), Charset: resp.Charset}, nil
	}
	if err == nil {
		err = &domain.FetchError{Kind: domain.FetchHTTPStatus, URL: pageURL, Err: errors.New("empty body")}
	}

	if f.renderer == nil {
		return nil, err
	}

	log.GlobalInfoCtx(ctx, "direct fetch failed, rendering in browser", "url", pageURL, "error", err)
	renderCtx, cancelRender := context.WithTimeout(ctx, f.renderTimeout)
	defer cancelRender()

	html, renderErr := f.renderer.Render(renderCtx, pageURL)
	if renderErr != nil {
		return nil, errors.Join(err, renderErr)
	}
	return &domain.Page{URL: pageURL, HTML: html, Charset: "utf-8", Rendered: true}, nil
}
