package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// Browser renderer timeouts.
const (
	// DefaultPageLoadTimeout bounds navigation of one page.
	DefaultPageLoadTimeout = 30 * time.Second

	// DefaultElementWaitTimeout bounds waiting for the page body to be ready.
	DefaultElementWaitTimeout = 10 * time.Second
)

// BrowserRenderer loads pages in headless Chrome so links built by JavaScript
// are found too.
//
// One browser process is started lazily and shared by all pages; every page
// gets its own tab. Call Close to stop the browser.
type BrowserRenderer struct {
	pageLoadTimeout    time.Duration
	elementWaitTimeout time.Duration
	userAgent          string
	headless           bool
	execPath           string
	logger             *slog.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

// BrowserOption configures a BrowserRenderer.
type BrowserOption func(*BrowserRenderer)

// WithPageLoadTimeout sets the navigation timeout.
func WithPageLoadTimeout(d time.Duration) BrowserOption {
	return func(b *BrowserRenderer) {
		if d > 0 {
			b.pageLoadTimeout = d
		}
	}
}

// WithElementWaitTimeout sets how long to wait for the body element.
func WithElementWaitTimeout(d time.Duration) BrowserOption {
	return func(b *BrowserRenderer) {
		if d > 0 {
			b.elementWaitTimeout = d
		}
	}
}

// WithBrowserUserAgent overrides the browser user agent.
func WithBrowserUserAgent(ua string) BrowserOption {
	return func(b *BrowserRenderer) {
		b.userAgent = ua
	}
}

// WithHeadful shows the browser window, for debugging.
func WithHeadful() BrowserOption {
	return func(b *BrowserRenderer) {
		b.headless = false
	}
}

// WithExecPath sets the Chrome binary. Empty lets chromedp search for one.
func WithExecPath(path string) BrowserOption {
	return func(b *BrowserRenderer) {
		b.execPath = path
	}
}

// WithBrowserLogger sets the logger.
func WithBrowserLogger(logger *slog.Logger) BrowserOption {
	return func(b *BrowserRenderer) {
		b.logger = logger
	}
}

// NewBrowserRenderer creates a BrowserRenderer. No browser is started until
// the first Render call.
func NewBrowserRenderer(opts ...BrowserOption) *BrowserRenderer {
	b := &BrowserRenderer{
		pageLoadTimeout:    DefaultPageLoadTimeout,
		elementWaitTimeout: DefaultElementWaitTimeout,
		headless:           true,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// allocatorOptions returns the chromedp flags for the configured browser.
func (b *BrowserRenderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", b.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	}
	if ua := strings.TrimSpace(b.userAgent); ua != "" {
		opts = append(opts, chromedp.UserAgent(ua))
	}
	if b.execPath != "" {
		opts = append(opts, chromedp.ExecPath(b.execPath))
	}
	return opts
}

// browser returns the shared browser context, starting Chrome if needed.
func (b *BrowserRenderer) browser() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil {
		return b.browserCtx, nil
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), b.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: start browser: %w", ErrRenderFailed, err)
	}

	b.browserCtx = browserCtx
	b.browserCancel = browserCancel
	b.allocCancel = allocCancel
	b.logger.Debug("browser started", "headless", b.headless)
	return browserCtx, nil
}

// Render opens pageURL in a new tab, waits for the body and returns the
// anchors of the rendered DOM.
func (b *BrowserRenderer) Render(ctx context.Context, pageURL string, filter LinkFilter) ([]string, error) {
	browserCtx, err := b.browser()
	if err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	defer tabCancel()
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	if err := chromedp.Run(tabCtx); err != nil {
		return nil, fmt.Errorf("%w: open tab: %w", ErrRenderFailed, err)
	}

	navCtx, navCancel := context.WithTimeout(tabCtx, b.pageLoadTimeout)
	defer navCancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(pageURL)); err != nil {
		return nil, wrapBrowserError("navigate", pageURL, err)
	}

	var (
		document string
		location string
	)
	waitCtx, waitCancel := context.WithTimeout(tabCtx, b.elementWaitTimeout)
	defer waitCancel()
	err = chromedp.Run(waitCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &document, chromedp.ByQuery),
		chromedp.Location(&location),
	)
	if err != nil {
		return nil, wrapBrowserError("wait for body", pageURL, err)
	}

	if location == "" {
		location = pageURL
	}
	links, err := extractAnchors(document, location)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrRenderFailed, pageURL, err)
	}

	return dropKnown(links, filter), nil
}

// Close stops the browser. The renderer may be used again afterwards; a new
// browser is started on demand.
func (b *BrowserRenderer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.browserCtx = nil
	b.browserCancel = nil
	b.allocCancel = nil
	return nil
}

func wrapBrowserError(step, pageURL string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s %s: %w", ErrRenderTimeout, step, pageURL, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrRenderFailed, step, pageURL, err)
}

// extractAnchors returns the absolute targets of every a[href] in document,
// resolved against pageURL, deduplicated in document order.
func extractAnchors(document, pageURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, err
	}

	base, err := parseBase(pageURL)
	if err != nil {
		return nil, err
	}
	collector := newLinkCollector(base)

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		collector.rebase(href)
	}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		collector.add(href)
	})

	return collector.links, nil
}
