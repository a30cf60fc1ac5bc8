package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultMaxPages is the page quota of one crawl.
	DefaultMaxPages = 100

	// DefaultMaxFiles is the file quota of one crawl. It caps both discovery
	// and downloads.
	DefaultMaxFiles = 50

	// DefaultConcurrency is the number of downloads in flight at once.
	DefaultConcurrency = 10

	// DefaultBatchSize is the number of seeds crawled at the same time.
	DefaultBatchSize = 2

	// DefaultDownloadTimeout bounds a single download attempt.
	DefaultDownloadTimeout = 30 * time.Second

	// DefaultPageLoadTimeout bounds loading one page.
	DefaultPageLoadTimeout = 30 * time.Second

	// DefaultElementWaitTimeout bounds waiting for the page body in the
	// browser renderer.
	DefaultElementWaitTimeout = 10 * time.Second

	// DefaultCrawlDelay is the minimum delay between page requests.
	// Zero disables the delay.
	DefaultCrawlDelay = 0

	// DefaultUserAgent identifies doccrawl in HTTP requests.
	DefaultUserAgent = "doccrawl/1.0 (+https://github.com/nao1215/doccrawl)"

	// DefaultMaxBodySize limits the bytes parsed per page.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// AppName is the application name used for XDG directory paths.
	AppName = "doccrawl"
)

// Renderer names accepted by Config.Renderer.
const (
	// RendererHTTP fetches pages with a plain GET.
	RendererHTTP = "http"

	// RendererBrowser renders pages in headless Chrome.
	RendererBrowser = "browser"
)

// Config holds all configuration options for doccrawl.
// It is populated from CLI flags and passed down explicitly.
type Config struct {
	// Targets are the seed URLs. Each one is crawled in its own session.
	Targets []string

	// MaxPages stops a crawl after this many rendered pages.
	// Negative means unlimited.
	MaxPages int

	// MaxFiles stops discovery after this many file links and caps the
	// number of download attempts. Negative means unlimited.
	MaxFiles int

	// Concurrency is the download worker pool size.
	Concurrency int

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	// DownloadTimeout bounds a single download attempt.
	DownloadTimeout time.Duration

	// PageLoadTimeout bounds loading one page.
	PageLoadTimeout time.Duration

	// ElementWaitTimeout bounds waiting for the page body (browser renderer).
	ElementWaitTimeout time.Duration

	// Renderer selects the page renderer: RendererHTTP or RendererBrowser.
	Renderer string

	// ChromePath is the Chrome binary for the browser renderer.
	// Empty lets chromedp find one.
	ChromePath string

	// Headful shows the browser window instead of running headless.
	Headful bool

	// CrawlDelay is the minimum delay between page requests.
	CrawlDelay time.Duration

	// RespectRobots skips pages disallowed by robots.txt.
	RespectRobots bool

	// UserAgent is the User-Agent header sent with page and file requests.
	UserAgent string

	// MaxBodySize is the maximum number of page bytes parsed.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// DocumentExtensions overrides the document allow-list.
	DocumentExtensions []string

	// ExcludedExtensions overrides the exclusion list.
	ExcludedExtensions []string

	// DocumentsDir is where downloaded files are written.
	// Defaults to $XDG_DATA_HOME/doccrawl/documents.
	DocumentsDir string

	// DBDir is the directory holding the metadata database.
	// Defaults to $XDG_DATA_HOME/doccrawl.
	DBDir string

	// Verbose enables debug logging.
	Verbose bool

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// ConfigFilePath is the path to the YAML configuration file.
	// If empty, .doccrawl is searched in the current and home directories.
	ConfigFilePath string

	// SiteConfigs holds per-site settings loaded from the configuration file.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxPages:           DefaultMaxPages,
		MaxFiles:           DefaultMaxFiles,
		Concurrency:        DefaultConcurrency,
		BatchSize:          DefaultBatchSize,
		DownloadTimeout:    DefaultDownloadTimeout,
		PageLoadTimeout:    DefaultPageLoadTimeout,
		ElementWaitTimeout: DefaultElementWaitTimeout,
		Renderer:           RendererHTTP,
		CrawlDelay:         DefaultCrawlDelay,
		UserAgent:          DefaultUserAgent,
		MaxBodySize:        DefaultMaxBodySize,
		DocumentsDir:       DefaultDocumentsDir(),
		DBDir:              XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for doccrawl.
// On Linux: ~/.local/share/doccrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for doccrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultDocumentsDir returns the default download directory.
func DefaultDocumentsDir() string {
	return filepath.Join(XDGDataDir(), "documents")
}

// Validate checks the configuration of a crawl and returns the first problem.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	for _, target := range c.Targets {
		if err := ValidateTarget(target); err != nil {
			return err
		}
	}

	if c.DownloadTimeout <= 0 || c.PageLoadTimeout <= 0 || c.ElementWaitTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.Renderer != RendererHTTP && c.Renderer != RendererBrowser {
		return fmt.Errorf("%w: %q", ErrUnknownRenderer, c.Renderer)
	}

	if c.DocumentsDir == "" {
		return ErrNoDocumentsDir
	}

	return nil
}

// ValidateTarget checks that target is an absolute http(s) URL.
func ValidateTarget(target string) error {
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidTarget, target, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s", ErrInvalidTarget, target)
	}
	return nil
}

// SiteFor returns the per-site settings for target, merged with the file's
// defaults. Without a configuration file it returns the zero SiteConfig.
func (c *Config) SiteFor(target string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return c.SiteConfigs.Defaults
	}
	return c.SiteConfigs.GetSiteConfig(u.Hostname())
}
