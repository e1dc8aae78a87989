package scraper

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"pubspy/pkg/log"
)

// BrowserPool owns a single Chrome process and serializes tab usage (one tab at a time).
// Chrome is started on first use, so an idle pool costs nothing.
type BrowserPool struct {
	allocCtx    context.Context
	ctx         context.Context
	cancel      context.CancelFunc
	opts        []chromedp.ExecAllocatorOption
	remoteURL   string
	settleDelay time.Duration

	mu     sync.Mutex
	tabSem chan struct{}
}

// NewBrowserPool prepares a pool that launches a local headless Chrome.
func NewBrowserPool(options []chromedp.ExecAllocatorOption) *BrowserPool {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-first-run", true),
	)
	opts = append(opts, options...)

	if chromePath := os.Getenv("CHROME_PATH"); chromePath != "" {
		log.GlobalInfo("browser pool using custom chrome path", "path", chromePath)
		opts = append(opts, chromedp.ExecPath(chromePath))
	}

	return &BrowserPool{
		opts:        opts,
		settleDelay: 2 * time.Second,
		tabSem:      make(chan struct{}, 1),
	}
}

// NewRemoteBrowserPool connects to an already running Chrome at a DevTools websocket URL.
func NewRemoteBrowserPool(wsURL string) *BrowserPool {
	return &BrowserPool{
		remoteURL:   wsURL,
		settleDelay: 2 * time.Second,
		tabSem:      make(chan struct{}, 1),
	}
}

// start initializes or restarts Chrome. Caller must hold bp.mu.
func (bp *BrowserPool) start() error {
	if bp.cancel != nil {
		bp.cancel()
	}

	var allocCtx context.Context
	var cancel context.CancelFunc
	if bp.remoteURL != "" {
		allocCtx, cancel = chromedp.NewRemoteAllocator(context.Background(), bp.remoteURL)
	} else {
		allocCtx, cancel = chromedp.NewExecAllocator(context.Background(), bp.opts...)
	}
	ctx, _ := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(ctx); err != nil {
		cancel()
		bp.cancel = nil
		return fmt.Errorf("start chrome: %w", err)
	}

	bp.allocCtx = allocCtx
	bp.ctx = ctx
	bp.cancel = cancel

	log.GlobalInfo("browser pool chrome started", "remote", bp.remoteURL != "")
	return nil
}

// WithTab runs fn with exclusive access to a browser tab.
// Waiting for the tab respects ctx; fn receives a tab context bounded by ctx.
func (bp *BrowserPool) WithTab(ctx context.Context, fn func(tabCtx context.Context) error) error {
	select {
	case bp.tabSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-bp.tabSem }()

	tabCtx, tabCancel, err := bp.acquireTab()
	if err != nil {
		return err
	}
	defer tabCancel()

	// tie the tab lifetime to the caller's deadline
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	return fn(tabCtx)
}

// acquireTab returns a healthy tab, starting or restarting Chrome as needed.
func (bp *BrowserPool) acquireTab() (context.Context, context.CancelFunc, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.ctx == nil {
		if err := bp.start(); err != nil {
			return nil, nil, err
		}
	}

	tabCtx, tabCancel := chromedp.NewContext(bp.ctx)
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		log.GlobalWarn("browser pool tab failed, restarting chrome", "error", err)

		if restartErr := bp.start(); restartErr != nil {
			return nil, nil, restartErr
		}
		tabCtx, tabCancel = chromedp.NewContext(bp.ctx)
	}

	return tabCtx, tabCancel, nil
}

// Render navigates to pageURL, waits for scripts to settle and returns the rendered HTML.
func (bp *BrowserPool) Render(ctx context.Context, pageURL string) (string, error) {
	var html string
	err := bp.WithTab(ctx, func(tabCtx context.Context) error {
		return chromedp.Run(tabCtx,
			chromedp.Navigate(pageURL),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(bp.settleDelay),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
	})
	if err != nil {
		return "", fmt.Errorf("render %s: %w", pageURL, err)
	}
	return html, nil
}

// Close shuts down the browser completely.
func (bp *BrowserPool) Close() {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.cancel != nil {
		bp.cancel()
		bp.cancel = nil
		bp.ctx = nil
		log.GlobalInfo("browser pool chrome stopped")
	}
}
