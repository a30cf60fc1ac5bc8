package crawler

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/doccrawl/internal/model"
)

// Unlimited disables a page or file quota.
const Unlimited = -1

// Scheduler drives the breadth-first traversal of one site.
//
// Pages are rendered one at a time in FIFO order, which is what makes the
// traversal breadth-first; there is no concurrency here. A failed render is
// logged and treated as a page without links.
type Scheduler struct {
	// renderer loads pages and extracts their links.
	renderer Renderer

	// maxPages stops the traversal once this many pages were rendered.
	// Negative means unlimited.
	maxPages int

	// maxFiles stops the traversal once this many file links were found.
	// The check runs after each page, so the last page may overshoot it.
	// Negative means unlimited.
	maxFiles int

	// classifierOpts configure the Classifier built for each run.
	classifierOpts []ClassifierOption

	logger *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithMaxPages sets the page quota. Negative means unlimited.
func WithMaxPages(maxPages int) SchedulerOption {
	return func(s *Scheduler) {
		s.maxPages = maxPages
	}
}

// WithMaxFiles sets the file quota. Negative means unlimited.
func WithMaxFiles(maxFiles int) SchedulerOption {
	return func(s *Scheduler) {
		s.maxFiles = maxFiles
	}
}

// WithClassifier sets the options of the Classifier built for each run.
// The base URL always comes from the seed.
func WithClassifier(opts ...ClassifierOption) SchedulerOption {
	return func(s *Scheduler) {
		s.classifierOpts = append(s.classifierOpts, opts...)
	}
}

// WithLogger sets the logger used for traversal events.
func WithLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// NewScheduler creates a Scheduler that renders pages with renderer.
// Both quotas default to Unlimited.
func NewScheduler(renderer Renderer, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		renderer: renderer,
		maxPages: Unlimited,
		maxFiles: Unlimited,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Result is the output of one traversal.
type Result struct {
	// FileLinks are the canonical file URLs in discovery order.
	FileLinks []string

	// PagesScraped counts pages handed to the renderer.
	PagesScraped int

	// Visited counts distinct pages ever enqueued, the seed included.
	Visited int

	// State is the terminal state of the traversal.
	State model.CrawlState

	// Failures lists pages whose render failed.
	Failures []model.Failure
}

// Run crawls from seed until the frontier drains or a quota is reached.
//
// Render failures never abort the run. The only error returned besides an
// invalid seed is the context error when ctx is cancelled; the partial
// result is returned with it.
func (s *Scheduler) Run(ctx context.Context, seed string) (*Result, error) {
	if s.renderer == nil {
		return nil, ErrNoRenderer
	}

	session, err := NewSession(seed)
	if err != nil {
		return nil, err
	}

	classifier := NewClassifier(session.BaseURL(), s.classifierOpts...)

	result := &Result{Failures: make([]model.Failure, 0)}
	start := time.Now()

	s.logger.Info("starting crawl",
		"seed", seed,
		"base", session.BaseURL(),
		"max_pages", s.maxPages,
		"max_files", s.maxFiles,
	)

	session.state = model.CrawlStateRunning
	for !session.state.Terminal() {
		if s.quotaReached(session) {
			session.state = model.CrawlStateQuotaReached
			break
		}

		if ctx.Err() != nil {
			session.state = model.CrawlStateCancelled
			break
		}

		pageURL, ok := session.dequeue()
		if !ok {
			session.state = model.CrawlStateCompleted
			break
		}

		if classifier.Classify(pageURL) == KindIgnored {
			s.logger.Debug("skipping ignored frontier entry", "url", pageURL)
			continue
		}

		s.logger.Debug("rendering page", "url", pageURL, "pending", session.Pending())

		links, err := s.renderer.Render(ctx, pageURL, session)
		if err != nil {
			if ctx.Err() != nil {
				session.state = model.CrawlStateCancelled
				break
			}
			failure := renderFailure(pageURL, err)
			result.Failures = append(result.Failures, failure)
			s.logger.Warn("page render failed, continuing",
				"url", pageURL,
				"kind", failure.Kind,
				"error", err,
			)
			links = nil
		}

		s.absorb(session, classifier, pageURL, links)
		session.pagesScraped++
	}

	result.FileLinks = session.FileLinks()
	result.PagesScraped = session.PagesScraped()
	result.Visited = session.VisitedCount()
	result.State = session.State()

	s.logger.Info("crawl finished",
		"state", result.State.String(),
		"pages_scraped", result.PagesScraped,
		"files_found", len(result.FileLinks),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if result.State == model.CrawlStateCancelled {
		return result, ctx.Err()
	}
	return result, nil
}

// quotaReached reports whether either quota stops the traversal.
func (s *Scheduler) quotaReached(session *Session) bool {
	if s.maxPages >= 0 && session.PagesScraped() >= s.maxPages {
		return true
	}
	if s.maxFiles >= 0 && session.FileCount() >= s.maxFiles {
		return true
	}
	return false
}

// absorb classifies the links of one page and feeds the session.
func (s *Scheduler) absorb(session *Session, classifier *Classifier, pageURL string, links []string) {
	page, err := url.Parse(pageURL)
	if err != nil {
		page = nil
	}

	base := session.BaseURL()
	for _, link := range links {
		absolute, err := resolve(page, link)
		if err != nil {
			s.logger.Debug("skipping malformed link", "page", pageURL, "link", link, "error", err)
			continue
		}

		canonical := Canonicalize(absolute)
		if !InScope(base, canonical) {
			continue
		}

		switch classifier.Classify(canonical) {
		case KindFile:
			if session.addFile(canonical) {
				s.logger.Debug("added file", "url", canonical)
			}
		case KindPage:
			if strings.HasPrefix(canonical, base) && session.visit(canonical) {
				s.logger.Debug("added page", "url", canonical)
			}
		case KindIgnored:
		}
	}
}

// renderFailure converts a renderer error into a failure record.
func renderFailure(pageURL string, err error) model.Failure {
	kind := model.FailureRenderError
	if errors.Is(err, ErrRenderTimeout) {
		kind = model.FailureRenderTimeout
	}
	return model.Failure{
		URL:     pageURL,
		Kind:    kind,
		Message: err.Error(),
	}
}
