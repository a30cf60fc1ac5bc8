package crawler

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"
)

// Defaults for HTTPRenderer.
const (
	// DefaultPageTimeout bounds one page request, body included.
	DefaultPageTimeout = 30 * time.Second

	// DefaultMaxBodySize caps the bytes read from one page.
	DefaultMaxBodySize int64 = 10 * 1024 * 1024

	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
)

// HTTPRenderer fetches pages with a plain HTTP GET and extracts anchors from
// the static HTML. It does not run JavaScript; use BrowserRenderer for sites
// that build their links client-side.
type HTTPRenderer struct {
	client      *http.Client
	userAgent   string
	headers     map[string]string
	cookie      string
	maxBodySize int64
	timeout     time.Duration

	// limiter spaces requests when a crawl delay is configured.
	limiter *rate.Limiter

	// robots, when set, skips pages disallowed by robots.txt.
	robots *RobotsGate

	logger *slog.Logger
}

// HTTPRendererOption configures an HTTPRenderer.
type HTTPRendererOption func(*HTTPRenderer)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPRendererOption {
	return func(r *HTTPRenderer) {
		if ua != "" {
			r.userAgent = ua
		}
	}
}

// WithHeaders adds headers to every page request.
func WithHeaders(headers map[string]string) HTTPRendererOption {
	return func(r *HTTPRenderer) {
		for k, v := range headers {
			r.headers[k] = v
		}
	}
}

// WithCookie sets the Cookie header sent with every page request.
func WithCookie(cookie string) HTTPRendererOption {
	return func(r *HTTPRenderer) {
		r.cookie = cookie
	}
}

// WithMaxBodySize sets the maximum number of body bytes parsed per page.
// Longer bodies are truncated.
func WithMaxBodySize(size int64) HTTPRendererOption {
	return func(r *HTTPRenderer) {
		if size > 0 {
			r.maxBodySize = size
		}
	}
}

// WithPageTimeout sets the per-page request timeout.
func WithPageTimeout(d time.Duration) HTTPRendererOption {
	return func(r *HTTPRenderer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithCrawlDelay enforces a minimum delay between page requests.
func WithCrawlDelay(d time.Duration) HTTPRendererOption {
	return func(r *HTTPRenderer) {
		if d > 0 {
			r.limiter = rate.NewLimiter(rate.Every(d), 1)
		} else {
			r.limiter = nil
		}
	}
}

// WithRobots makes the renderer skip pages disallowed by robots.txt.
func WithRobots(gate *RobotsGate) HTTPRendererOption {
	return func(r *HTTPRenderer) {
		r.robots = gate
	}
}

// WithRendererLogger sets the logger.
func WithRendererLogger(logger *slog.Logger) HTTPRendererOption {
	return func(r *HTTPRenderer) {
		r.logger = logger
	}
}

// NewHTTPRenderer creates an HTTPRenderer that issues requests with client.
// A nil client selects a client without its own timeout; the per-page
// timeout still applies.
func NewHTTPRenderer(client *http.Client, opts ...HTTPRendererOption) *HTTPRenderer {
	if client == nil {
		client = &http.Client{}
	}
	r := &HTTPRenderer{
		client:      client,
		userAgent:   DefaultUserAgent,
		headers:     make(map[string]string),
		maxBodySize: DefaultMaxBodySize,
		timeout:     DefaultPageTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Render fetches pageURL and returns the links found in its HTML.
// Non-HTML responses yield no links and no error.
func (r *HTTPRenderer) Render(ctx context.Context, pageURL string, filter LinkFilter) ([]string, error) {
	target, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}

	if r.robots != nil && !r.robots.Allowed(ctx, target) {
		r.logger.Info("page disallowed by robots.txt", "url", pageURL)
		return nil, nil
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	if r.cookie != "" {
		req.Header.Set("Cookie", r.cookie)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, classifyFetchError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrRenderFailed, pageURL, resp.StatusCode)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if contentType != "" && !strings.Contains(contentType, "html") {
		r.logger.Debug("skipping non-HTML page", "url", pageURL, "content_type", contentType)
		return nil, nil
	}

	body, err := r.readBody(resp)
	if err != nil {
		return nil, classifyFetchError(err)
	}

	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	links, err := ExtractLinks(bytes.NewReader(body), finalURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrRenderFailed, pageURL, err)
	}

	return dropKnown(links, filter), nil
}

// readBody reads up to maxBodySize decoded bytes.
func (r *HTTPRenderer) readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	case "br":
		reader = brotli.NewReader(resp.Body)
	}

	body, err := io.ReadAll(io.LimitReader(reader, r.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// classifyFetchError wraps a transport error in ErrRenderTimeout or
// ErrRenderFailed.
func classifyFetchError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrRenderTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrRenderTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrRenderFailed, err)
}
