package crawler

import "github.com/nao1215/doccrawl/internal/model"

// Session holds the state of one crawl run: the visited pages, the discovered
// file links and the frontier.
//
// A Session belongs to exactly one Scheduler.Run call and is never shared, so
// several crawls can run side by side without touching each other's state.
// The visited and file sets only grow.
type Session struct {
	// baseURL is scheme://host[:port] of the seed.
	baseURL string

	// visited holds every page URL that was ever enqueued.
	visited map[string]struct{}

	// files holds every discovered file URL; fileOrder keeps discovery order.
	files     map[string]struct{}
	fileOrder []string

	// frontier is the FIFO queue of pages waiting to be rendered.
	frontier []string

	// pagesScraped counts pages handed to the renderer.
	pagesScraped int

	state model.CrawlState
}

// NewSession creates a session whose frontier holds the canonical seed,
// already marked visited.
func NewSession(seed string) (*Session, error) {
	base, err := BaseURL(seed)
	if err != nil {
		return nil, err
	}

	s := &Session{
		baseURL:   base,
		visited:   make(map[string]struct{}),
		files:     make(map[string]struct{}),
		fileOrder: make([]string, 0),
		frontier:  make([]string, 0),
		state:     model.CrawlStateIdle,
	}

	start := Canonicalize(seed)
	s.visited[start] = struct{}{}
	s.frontier = append(s.frontier, start)

	return s, nil
}

// BaseURL returns the crawl prefix derived from the seed.
func (s *Session) BaseURL() string {
	return s.baseURL
}

// Known reports whether canonicalURL was already enqueued as a page or
// collected as a file. It implements LinkFilter.
func (s *Session) Known(canonicalURL string) bool {
	if _, ok := s.visited[canonicalURL]; ok {
		return true
	}
	_, ok := s.files[canonicalURL]
	return ok
}

// visit marks a page visited and appends it to the frontier tail.
// It returns false when the page was already visited.
func (s *Session) visit(canonicalURL string) bool {
	if _, ok := s.visited[canonicalURL]; ok {
		return false
	}
	s.visited[canonicalURL] = struct{}{}
	s.frontier = append(s.frontier, canonicalURL)
	return true
}

// addFile records a file link. It returns false when already known.
func (s *Session) addFile(canonicalURL string) bool {
	if _, ok := s.files[canonicalURL]; ok {
		return false
	}
	s.files[canonicalURL] = struct{}{}
	s.fileOrder = append(s.fileOrder, canonicalURL)
	return true
}

// dequeue removes and returns the frontier head.
func (s *Session) dequeue() (string, bool) {
	if len(s.frontier) == 0 {
		return "", false
	}
	head := s.frontier[0]
	s.frontier[0] = ""
	s.frontier = s.frontier[1:]
	return head, true
}

// FileLinks returns a copy of the discovered file URLs in discovery order.
func (s *Session) FileLinks() []string {
	out := make([]string, len(s.fileOrder))
	copy(out, s.fileOrder)
	return out
}

// FileCount returns the number of discovered file URLs.
func (s *Session) FileCount() int {
	return len(s.fileOrder)
}

// VisitedCount returns the number of pages ever enqueued.
func (s *Session) VisitedCount() int {
	return len(s.visited)
}

// PagesScraped returns the number of pages handed to the renderer.
func (s *Session) PagesScraped() int {
	return s.pagesScraped
}

// Pending returns the number of pages still waiting in the frontier.
func (s *Session) Pending() int {
	return len(s.frontier)
}

// State returns the current traversal state.
func (s *Session) State() model.CrawlState {
	return s.state
}
