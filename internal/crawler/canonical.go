package crawler

import (
	"net/url"
	"strings"
)

// Canonicalize normalizes a URL into the key used for deduplication.
//
// The fragment is dropped, the host is lowercased, an empty path becomes "/"
// and trailing slashes are removed unless the path is exactly "/".
// Canonicalize is pure: Canonicalize(Canonicalize(u)) == Canonicalize(u).
// Input that does not parse as a URL is returned trimmed so it can still be
// used as a set key; InScope rejects it later.
func Canonicalize(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Host = strings.ToLower(u.Host)

	if u.Opaque != "" {
		return u.String()
	}

	// Trim on the escaped form so an encoded slash (%2F) is kept.
	escaped := u.EscapedPath()
	if escaped == "" && u.Host != "" {
		escaped = "/"
	}
	if len(escaped) > 1 && strings.HasSuffix(escaped, "/") {
		escaped = strings.TrimRight(escaped, "/")
		if escaped == "" {
			escaped = "/"
		}
	}
	if escaped != u.EscapedPath() {
		setEscapedPath(u, escaped)
	}

	return u.String()
}

// setEscapedPath replaces the path of u, keeping Path and RawPath in step.
func setEscapedPath(u *url.URL, escaped string) {
	path, err := url.PathUnescape(escaped)
	if err != nil {
		return
	}
	u.Path = path
	u.RawPath = escaped
}

// BaseURL returns "scheme://host[:port]" of rawURL, the prefix every page of
// a crawl must share with its seed.
func BaseURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", ErrInvalidSeed
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}

// resolve turns href into an absolute URL relative to pageURL.
func resolve(pageURL *url.URL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	if pageURL == nil {
		return ref.String(), nil
	}
	return pageURL.ResolveReference(ref).String(), nil
}
