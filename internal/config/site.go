package config

import (
	"strings"
	"time"
)

// SiteConfig holds site-specific crawl settings for one host.
type SiteConfig struct {
	// Cookie is an HTTP cookie sent with page and file requests.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers sent with page and file requests.
	Headers map[string]string `yaml:"headers,omitempty"`

	// MaxPages overrides the page quota when non-zero.
	MaxPages int `yaml:"maxPages,omitempty"`

	// MaxFiles overrides the file quota when non-zero.
	MaxFiles int `yaml:"maxFiles,omitempty"`

	// DocumentExtensions replaces the document allow-list.
	DocumentExtensions []string `yaml:"documentExtensions,omitempty"`

	// ExcludedExtensions replaces the exclusion list.
	ExcludedExtensions []string `yaml:"excludedExtensions,omitempty"`

	// Renderer overrides the page renderer ("http" or "browser").
	Renderer string `yaml:"renderer,omitempty"`

	// CrawlDelay overrides the delay between page requests, e.g. "500ms".
	CrawlDelay time.Duration `yaml:"crawlDelay,omitempty"`

	// RespectRobots overrides robots.txt handling when set.
	RespectRobots *bool `yaml:"respectRobots,omitempty"`
}

// File represents the structure of the .doccrawl configuration file.
type File struct {
	// Sites maps hosts (e.g. "docs.example.com") to their configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for host, merged with defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if result.Headers != nil {
		headers := make(map[string]string, len(result.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	siteConfig, ok := cf.Sites[strings.ToLower(host)]
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}
	if siteConfig.MaxPages != 0 {
		result.MaxPages = siteConfig.MaxPages
	}
	if siteConfig.MaxFiles != 0 {
		result.MaxFiles = siteConfig.MaxFiles
	}
	if len(siteConfig.DocumentExtensions) > 0 {
		result.DocumentExtensions = siteConfig.DocumentExtensions
	}
	if len(siteConfig.ExcludedExtensions) > 0 {
		result.ExcludedExtensions = siteConfig.ExcludedExtensions
	}
	if siteConfig.Renderer != "" {
		result.Renderer = siteConfig.Renderer
	}
	if siteConfig.CrawlDelay != 0 {
		result.CrawlDelay = siteConfig.CrawlDelay
	}
	if siteConfig.RespectRobots != nil {
		result.RespectRobots = siteConfig.RespectRobots
	}

	return result
}
