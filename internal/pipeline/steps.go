package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/doccrawl/internal/crawler"
	"github.com/nao1215/doccrawl/internal/download"
	"github.com/nao1215/doccrawl/internal/model"
)

// CrawlStep traverses the target site and collects document links.
type CrawlStep struct {
	// renderer loads pages. It is owned by the caller.
	renderer crawler.Renderer

	maxPages       int
	maxFiles       int
	classifierOpts []crawler.ClassifierOption
	logger         *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlMaxPages sets the page quota. Negative means unlimited.
func WithCrawlMaxPages(maxPages int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxPages = maxPages
	}
}

// WithCrawlMaxFiles sets the file quota. Negative means unlimited.
func WithCrawlMaxFiles(maxFiles int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxFiles = maxFiles
	}
}

// WithCrawlClassifier configures the extension lists of the classifier.
func WithCrawlClassifier(opts ...crawler.ClassifierOption) CrawlStepOption {
	return func(s *CrawlStep) {
		s.classifierOpts = append(s.classifierOpts, opts...)
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a crawl step that loads pages with renderer.
func NewCrawlStep(renderer crawler.Renderer, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		renderer: renderer,
		maxPages: crawler.Unlimited,
		maxFiles: crawler.Unlimited,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do runs one scheduler over report.StartURL and copies the outcome into
// the report. A cancelled crawl still copies its partial result.
func (s *CrawlStep) Do(ctx context.Context, report *model.RunReport) error {
	report.MaxPages = s.maxPages
	report.MaxFiles = s.maxFiles
	report.SetState(model.CrawlStateRunning)

	scheduler := crawler.NewScheduler(s.renderer,
		crawler.WithMaxPages(s.maxPages),
		crawler.WithMaxFiles(s.maxFiles),
		crawler.WithClassifier(s.classifierOpts...),
		crawler.WithLogger(s.logger),
	)

	result, err := scheduler.Run(ctx, report.StartURL)
	if result != nil {
		report.SetState(result.State)
		report.PagesScraped = result.PagesScraped
		report.FileLinks = result.FileLinks
		for _, f := range result.Failures {
			report.AddFailure(f)
		}
	}
	if err != nil {
		if result == nil {
			report.SetState(model.CrawlStateIdle)
		}
		return err
	}

	s.logger.Info("crawl completed",
		"target", report.StartURL,
		"state", report.StateText,
		"pages_scraped", report.PagesScraped,
		"files_found", report.FilesFound(),
	)

	return nil
}

// Downloads is the download stage as seen by the pipeline.
type Downloads interface {
	DownloadAll(ctx context.Context, links []string, maxFiles int) (*download.Result, error)
}

// DownloadStep downloads the file links collected by the crawl step.
type DownloadStep struct {
	downloads Downloads
	maxFiles  int
	logger    *slog.Logger
}

// DownloadStepOption configures a DownloadStep.
type DownloadStepOption func(*DownloadStep)

// WithDownloadMaxFiles caps the number of attempts. Negative means unlimited.
func WithDownloadMaxFiles(maxFiles int) DownloadStepOption {
	return func(s *DownloadStep) {
		s.maxFiles = maxFiles
	}
}

// WithDownloadLogger sets a custom logger for the download step.
func WithDownloadLogger(logger *slog.Logger) DownloadStepOption {
	return func(s *DownloadStep) {
		s.logger = logger
	}
}

// NewDownloadStep creates a download step backed by downloads.
func NewDownloadStep(downloads Downloads, opts ...DownloadStepOption) *DownloadStep {
	s := &DownloadStep{
		downloads: downloads,
		maxFiles:  crawler.Unlimited,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *DownloadStep) Name() string {
	return "download"
}

// Do downloads report.FileLinks and records the counters and failures.
func (s *DownloadStep) Do(ctx context.Context, report *model.RunReport) error {
	if len(report.FileLinks) == 0 {
		s.logger.Info("no documents to download", "target", report.StartURL)
		return nil
	}

	result, err := s.downloads.DownloadAll(ctx, report.FileLinks, s.maxFiles)
	if result != nil {
		report.FilesAttempted = result.Attempted
		report.FilesDownloaded = result.Succeeded
		for _, f := range result.Failures {
			report.AddFailure(f)
		}
	}
	return err
}

// RunRecorder persists finished run reports.
type RunRecorder interface {
	SaveRun(ctx context.Context, report *model.RunReport) error
}

// RecordRunStep stores the run report. It is meant to be a final step.
type RecordRunStep struct {
	recorder RunRecorder
	now      func() time.Time
}

// NewRecordRunStep creates a step that saves the report with recorder.
func NewRecordRunStep(recorder RunRecorder) *RecordRunStep {
	return &RecordRunStep{recorder: recorder, now: time.Now}
}

// Name returns the step name.
func (s *RecordRunStep) Name() string {
	return "record_run"
}

// Do stamps the finish time if missing and saves the report.
func (s *RecordRunStep) Do(ctx context.Context, report *model.RunReport) error {
	if report.FinishedAt.IsZero() {
		report.FinishedAt = s.now()
	}
	return s.recorder.SaveRun(ctx, report)
}
