package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/nao1215/doccrawl/internal/config"
	"github.com/nao1215/doccrawl/internal/crawler"
	"github.com/nao1215/doccrawl/internal/download"
	"github.com/nao1215/doccrawl/internal/httpclient"
)

// Store is the metadata store used by a crawl: document upserts plus run
// records. database.MetadataDB implements it.
type Store interface {
	download.Store
	RunRecorder
}

// Resources are shared by every pipeline of one command invocation:
// one HTTP client, one robots.txt cache, one metadata store and, when the
// browser renderer is selected, one Chrome process.
type Resources struct {
	cfg    *config.Config
	client *http.Client
	store  Store
	robots *crawler.RobotsGate
	logger *slog.Logger

	mu      sync.Mutex
	browser *crawler.BrowserRenderer
}

// NewResources builds the shared resources for cfg. The store is owned by
// the caller and is not closed by Close.
func NewResources(cfg *config.Config, store Store, logger *slog.Logger) (*Resources, error) {
	if logger == nil {
		logger = slog.Default()
	}

	hc, err := httpclient.New(cfg.ProxyAddress, 0)
	if err != nil {
		return nil, err
	}
	client := hc.HTTPClient()

	return &Resources{
		cfg:    cfg,
		client: client,
		store:  store,
		robots: crawler.NewRobotsGate(client, cfg.UserAgent, crawler.DefaultRobotsTTL),
		logger: logger,
	}, nil
}

// HTTPClient returns the shared client.
func (r *Resources) HTTPClient() *http.Client {
	return r.client
}

// Close stops the browser if one was started.
func (r *Resources) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	return err
}

// sharedBrowser returns the browser renderer, creating it on first use.
func (r *Resources) sharedBrowser() *crawler.BrowserRenderer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		opts := []crawler.BrowserOption{
			crawler.WithPageLoadTimeout(r.cfg.PageLoadTimeout),
			crawler.WithElementWaitTimeout(r.cfg.ElementWaitTimeout),
			crawler.WithBrowserUserAgent(r.cfg.UserAgent),
			crawler.WithExecPath(r.cfg.ChromePath),
			crawler.WithBrowserLogger(r.logger),
		}
		if r.cfg.Headful {
			opts = append(opts, crawler.WithHeadful())
		}
		r.browser = crawler.NewBrowserRenderer(opts...)
	}
	return r.browser
}

// settings is the effective configuration for one target: global values
// overridden by the site entry of the configuration file.
type settings struct {
	site          config.SiteConfig
	maxPages      int
	maxFiles      int
	renderer      string
	crawlDelay    time.Duration
	respectRobots bool
	documentExts  []string
	excludedExts  []string
}

func (r *Resources) settingsFor(target string) settings {
	site := r.cfg.SiteFor(target)
	s := settings{
		site:          site,
		maxPages:      r.cfg.MaxPages,
		maxFiles:      r.cfg.MaxFiles,
		renderer:      r.cfg.Renderer,
		crawlDelay:    r.cfg.CrawlDelay,
		respectRobots: r.cfg.RespectRobots,
		documentExts:  r.cfg.DocumentExtensions,
		excludedExts:  r.cfg.ExcludedExtensions,
	}
	if site.MaxPages != 0 {
		s.maxPages = site.MaxPages
	}
	if site.MaxFiles != 0 {
		s.maxFiles = site.MaxFiles
	}
	if site.Renderer != "" {
		s.renderer = site.Renderer
	}
	if site.CrawlDelay != 0 {
		s.crawlDelay = site.CrawlDelay
	}
	if site.RespectRobots != nil {
		s.respectRobots = *site.RespectRobots
	}
	if len(site.DocumentExtensions) > 0 {
		s.documentExts = site.DocumentExtensions
	}
	if len(site.ExcludedExtensions) > 0 {
		s.excludedExts = site.ExcludedExtensions
	}
	return s
}

// ErrUnknownRenderer is returned when a site selects an unsupported renderer.
var ErrUnknownRenderer = errors.New("unknown renderer")

// rendererFor returns the page renderer for target.
func (r *Resources) rendererFor(target string, s settings) (crawler.Renderer, error) {
	switch s.renderer {
	case config.RendererBrowser:
		if s.site.Cookie != "" || len(s.site.Headers) > 0 {
			r.logger.Warn("browser renderer ignores site cookie and headers", "target", target)
		}
		return r.sharedBrowser(), nil
	case config.RendererHTTP, "":
		opts := []crawler.HTTPRendererOption{
			crawler.WithUserAgent(r.cfg.UserAgent),
			crawler.WithHeaders(s.site.Headers),
			crawler.WithCookie(s.site.Cookie),
			crawler.WithMaxBodySize(r.cfg.MaxBodySize),
			crawler.WithPageTimeout(r.cfg.PageLoadTimeout),
			crawler.WithCrawlDelay(s.crawlDelay),
			crawler.WithRendererLogger(r.logger),
		}
		if s.respectRobots {
			opts = append(opts, crawler.WithRobots(r.robots))
		}
		return crawler.NewHTTPRenderer(r.client, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRenderer, s.renderer)
	}
}

// NewDownloader returns a downloader for files of target, carrying the
// site's cookie and headers.
func (r *Resources) NewDownloader(target string) *download.Downloader {
	site := r.cfg.SiteFor(target)
	return download.NewDownloader(r.client, r.cfg.DocumentsDir, r.store,
		download.WithConcurrency(r.cfg.Concurrency),
		download.WithTimeout(r.cfg.DownloadTimeout),
		download.WithUserAgent(r.cfg.UserAgent),
		download.WithCookie(site.Cookie),
		download.WithHeaders(site.Headers),
		download.WithLogger(r.logger),
	)
}

// DefaultPipeline builds the crawl, download and record steps for target.
func (r *Resources) DefaultPipeline(target string, opts ...Option) (*Pipeline, error) {
	s := r.settingsFor(target)

	renderer, err := r.rendererFor(target, s)
	if err != nil {
		return nil, err
	}

	p := New(append([]Option{WithLogger(r.logger)}, opts...)...)
	p.AddSteps(
		NewCrawlStep(renderer,
			WithCrawlMaxPages(s.maxPages),
			WithCrawlMaxFiles(s.maxFiles),
			WithCrawlClassifier(
				crawler.WithDocumentExtensions(s.documentExts),
				crawler.WithExcludedExtensions(s.excludedExts),
			),
			WithCrawlLogger(r.logger),
		),
		NewDownloadStep(r.NewDownloader(target),
			WithDownloadMaxFiles(s.maxFiles),
			WithDownloadLogger(r.logger),
		),
	)
	if r.store != nil {
		p.AddFinalStep(NewRecordRunStep(r.store))
	}
	return p, nil
}
