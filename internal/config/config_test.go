package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig documents the defaults; a failing case means a default
// changed.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	if cfg.MaxPages != 100 {
		t.Errorf("expected MaxPages 100, got %d", cfg.MaxPages)
	}
	if cfg.MaxFiles != 50 {
		t.Errorf("expected MaxFiles 50, got %d", cfg.MaxFiles)
	}
	if cfg.Concurrency != 10 {
		t.Errorf("expected Concurrency 10, got %d", cfg.Concurrency)
	}
	if cfg.DownloadTimeout != 30*time.Second {
		t.Errorf("expected DownloadTimeout 30s, got %v", cfg.DownloadTimeout)
	}
	if cfg.PageLoadTimeout != 30*time.Second {
		t.Errorf("expected PageLoadTimeout 30s, got %v", cfg.PageLoadTimeout)
	}
	if cfg.ElementWaitTimeout != 10*time.Second {
		t.Errorf("expected ElementWaitTimeout 10s, got %v", cfg.ElementWaitTimeout)
	}
	if cfg.Renderer != RendererHTTP {
		t.Errorf("expected http renderer, got %s", cfg.Renderer)
	}
	if cfg.CrawlDelay != 0 {
		t.Errorf("expected no crawl delay, got %v", cfg.CrawlDelay)
	}
	if !strings.HasSuffix(cfg.DocumentsDir, filepath.Join(AppName, "documents")) {
		t.Errorf("expected documents dir under the XDG data dir, got %s", cfg.DocumentsDir)
	}
	if cfg.DBDir != XDGDataDir() {
		t.Errorf("expected DB dir %s, got %s", XDGDataDir(), cfg.DBDir)
	}
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if filepath.Base(XDGDataDir()) != AppName {
		t.Errorf("expected data dir to end with %s, got %s", AppName, XDGDataDir())
	}
	if filepath.Base(XDGConfigDir()) != AppName {
		t.Errorf("expected config dir to end with %s, got %s", AppName, XDGConfigDir())
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := NewConfig()
		cfg.Targets = []string{"https://example.com/"}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{name: "valid", mutate: func(*Config) {}, want: nil},
		{name: "unlimited quotas", mutate: func(c *Config) { c.MaxPages, c.MaxFiles = -1, -1 }, want: nil},
		{name: "no target", mutate: func(c *Config) { c.Targets = nil }, want: ErrNoTarget},
		{name: "relative target", mutate: func(c *Config) { c.Targets = []string{"/docs"} }, want: ErrInvalidTarget},
		{name: "ftp target", mutate: func(c *Config) { c.Targets = []string{"ftp://example.com/"} }, want: ErrInvalidTarget},
		{name: "zero download timeout", mutate: func(c *Config) { c.DownloadTimeout = 0 }, want: ErrInvalidTimeout},
		{name: "negative page timeout", mutate: func(c *Config) { c.PageLoadTimeout = -time.Second }, want: ErrInvalidTimeout},
		{name: "zero concurrency", mutate: func(c *Config) { c.Concurrency = 0 }, want: ErrInvalidConcurrency},
		{name: "zero batch size", mutate: func(c *Config) { c.BatchSize = 0 }, want: ErrInvalidBatchSize},
		{name: "both report formats", mutate: func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, want: ErrConflictingReportFormats},
		{name: "negative crawl delay", mutate: func(c *Config) { c.CrawlDelay = -time.Second }, want: ErrInvalidCrawlDelay},
		{name: "negative body size", mutate: func(c *Config) { c.MaxBodySize = -1 }, want: ErrInvalidMaxBodySize},
		{name: "unknown renderer", mutate: func(c *Config) { c.Renderer = "selenium" }, want: ErrUnknownRenderer},
		{name: "no documents dir", mutate: func(c *Config) { c.DocumentsDir = "" }, want: ErrNoDocumentsDir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("parses defaults and sites", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".doccrawl")
		content := `defaults:
  headers:
    Accept-Language: en
  crawlDelay: 500ms
sites:
  Docs.Example.com:
    cookie: "session=abc"
    renderer: browser
    maxFiles: 5
    respectRobots: false
    documentExtensions: [".pdf", ".epub"]
    headers:
      X-Token: secret
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		site := cf.GetSiteConfig("docs.example.com")
		if site.Cookie != "session=abc" {
			t.Errorf("expected cookie, got %q", site.Cookie)
		}
		if site.Renderer != RendererBrowser {
			t.Errorf("expected browser renderer, got %q", site.Renderer)
		}
		if site.MaxFiles != 5 {
			t.Errorf("expected maxFiles 5, got %d", site.MaxFiles)
		}
		if site.CrawlDelay != 500*time.Millisecond {
			t.Errorf("expected inherited crawl delay, got %v", site.CrawlDelay)
		}
		if site.RespectRobots == nil || *site.RespectRobots {
			t.Error("expected respectRobots=false")
		}
		if len(site.DocumentExtensions) != 2 {
			t.Errorf("expected 2 document extensions, got %v", site.DocumentExtensions)
		}
		if site.Headers["Accept-Language"] != "en" || site.Headers["X-Token"] != "secret" {
			t.Errorf("expected merged headers, got %v", site.Headers)
		}
		if _, leaked := cf.Defaults.Headers["X-Token"]; leaked {
			t.Error("site headers leaked into defaults")
		}

		other := cf.GetSiteConfig("other.example.com")
		if other.Cookie != "" || other.CrawlDelay != 500*time.Millisecond {
			t.Errorf("expected defaults for unknown host, got %+v", other)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".doccrawl")
		if err := os.WriteFile(path, []byte("sites: [unclosed"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected a parse error")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit path", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
	})

	t.Run("explicit missing path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); got != "" {
			t.Errorf("expected empty path, got %s", got)
		}
	})
}

func TestSiteFor(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	if site := cfg.SiteFor("https://example.com/"); site.Cookie != "" {
		t.Errorf("expected zero site config without a file, got %+v", site)
	}

	cfg.SiteConfigs = &File{
		Sites: map[string]SiteConfig{
			"example.com": {Cookie: "a=b"},
		},
	}
	if site := cfg.SiteFor("https://EXAMPLE.com:8443/docs"); site.Cookie != "a=b" {
		t.Errorf("expected site cookie, got %+v", site)
	}
}
