package crawler

import (
	"net/url"
	"strings"
)

// InScope reports whether candidateURL belongs to the crawl domain of baseURL.
//
// The network locations (host[:port]) are compared. They match when equal or
// when either one is a dot-suffix of the other, so both docs.example.com under
// example.com and example.com under docs.example.com are in scope.
// URLs that do not parse, or that have no host, are out of scope.
func InScope(baseURL, candidateURL string) bool {
	baseHost, ok := netloc(baseURL)
	if !ok {
		return false
	}
	candidateHost, ok := netloc(candidateURL)
	if !ok {
		return false
	}

	return baseHost == candidateHost ||
		strings.HasSuffix(candidateHost, "."+baseHost) ||
		strings.HasSuffix(baseHost, "."+candidateHost)
}

// netloc returns the lowercased host[:port] of rawURL.
func netloc(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", false
	}
	return strings.ToLower(u.Host), true
}
