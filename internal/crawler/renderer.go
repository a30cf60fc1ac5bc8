package crawler

import "context"

// LinkFilter reports whether a canonical URL has already been handled by the
// current crawl. Renderers may use it to drop links early; the scheduler
// checks again, so skipping the filter is never incorrect.
type LinkFilter interface {
	Known(canonicalURL string) bool
}

// Renderer loads one page and returns the hyperlink targets found on it.
//
// Returned links should be absolute. Relative links are resolved against the
// page URL by the scheduler. Failures must wrap ErrRenderTimeout or
// ErrRenderFailed.
type Renderer interface {
	Render(ctx context.Context, pageURL string, filter LinkFilter) ([]string, error)
}

// RenderFunc adapts a function to the Renderer interface.
type RenderFunc func(ctx context.Context, pageURL string, filter LinkFilter) ([]string, error)

// Render calls f.
func (f RenderFunc) Render(ctx context.Context, pageURL string, filter LinkFilter) ([]string, error) {
	return f(ctx, pageURL, filter)
}

// dropKnown removes links whose canonical form the filter already knows.
func dropKnown(links []string, filter LinkFilter) []string {
	if filter == nil {
		return links
	}
	kept := links[:0]
	for _, link := range links {
		if filter.Known(Canonicalize(link)) {
			continue
		}
		kept = append(kept, link)
	}
	return kept
}
