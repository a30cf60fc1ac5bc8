package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// skippedSchemes are href prefixes that never lead to a page or a document.
var skippedSchemes = []string{"javascript:", "mailto:", "tel:", "data:"}

// ExtractLinks returns the absolute targets of every <a href> in an HTML
// document, in document order and without duplicates.
//
// Relative hrefs are resolved against pageURL, or against the document's
// <base href> when present. Fragment-only links and non-navigational schemes
// are skipped.
func ExtractLinks(r io.Reader, pageURL string) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	base, err := parseBase(pageURL)
	if err != nil {
		return nil, err
	}

	collector := newLinkCollector(base)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "base":
				collector.rebase(getAttr(n, "href"))
			case "a":
				collector.add(getAttr(n, "href"))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return collector.links, nil
}

// linkCollector resolves and deduplicates hrefs for one document.
type linkCollector struct {
	base    *url.URL
	rebased bool
	seen    map[string]struct{}
	links   []string
}

func newLinkCollector(base *url.URL) *linkCollector {
	return &linkCollector{
		base:  base,
		seen:  make(map[string]struct{}),
		links: make([]string, 0),
	}
}

// rebase applies a <base href>. Only the first valid one counts.
func (c *linkCollector) rebase(href string) {
	href = strings.TrimSpace(href)
	if c.rebased || href == "" {
		return
	}
	ref, err := url.Parse(href)
	if err != nil {
		return
	}
	c.base = c.base.ResolveReference(ref)
	c.rebased = true
}

func (c *linkCollector) add(href string) {
	if skipHref(href) {
		return
	}
	absolute, err := resolve(c.base, href)
	if err != nil {
		return
	}
	if _, ok := c.seen[absolute]; ok {
		return
	}
	c.seen[absolute] = struct{}{}
	c.links = append(c.links, absolute)
}

func parseBase(pageURL string) (*url.URL, error) {
	return url.Parse(strings.TrimSpace(pageURL))
}

// skipHref reports whether an href is empty, fragment-only or uses a
// non-navigational scheme.
func skipHref(href string) bool {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	lower := strings.ToLower(href)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}

// getAttr returns the value of the named attribute, or "".
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
