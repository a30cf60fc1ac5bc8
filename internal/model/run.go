package model

import (
	"time"

	"github.com/google/uuid"
)

// FailureKind classifies a failed unit of work.
type FailureKind string

const (
	// FailureRenderTimeout is a page whose renderer call timed out.
	FailureRenderTimeout FailureKind = "render_timeout"

	// FailureRenderError is a page whose navigation or DOM extraction failed.
	FailureRenderError FailureKind = "render_error"

	// FailureDownloadTransport is a download that failed on the network.
	FailureDownloadTransport FailureKind = "download_transport"

	// FailureDownloadHTTP is a download answered with a non-2xx status.
	FailureDownloadHTTP FailureKind = "download_http"

	// FailureMalformedURL is a URL that could not be parsed.
	FailureMalformedURL FailureKind = "malformed_url"

	// FailureStorage is a download whose bytes or metadata could not be persisted.
	FailureStorage FailureKind = "storage"
)

// Failure records one unit of work (a page render or a file download)
// that failed and was skipped.
type Failure struct {
	URL     string      `json:"url"`
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// RunReport accumulates the outcome of one crawl-and-download run.
// Pipeline steps fill it in order; the report is then printed and stored.
type RunReport struct {
	// ID identifies the run in the metadata database.
	ID string `json:"id"`

	// StartURL is the seed URL as given by the caller.
	StartURL string `json:"start_url"`

	// MaxPages and MaxFiles are the quotas of the run. Negative means unlimited.
	MaxPages int `json:"max_pages"`
	MaxFiles int `json:"max_files"`

	// State is the terminal state of the frontier traversal.
	State CrawlState `json:"-"`

	// StateText mirrors State for serialized output.
	StateText string `json:"state"`

	// PagesScraped counts pages handed to the renderer.
	PagesScraped int `json:"pages_scraped"`

	// FileLinks are the canonical document URLs discovered, in discovery order.
	FileLinks []string `json:"file_links"`

	// FilesAttempted and FilesDownloaded are the download stage counters.
	FilesAttempted  int `json:"files_attempted"`
	FilesDownloaded int `json:"files_downloaded"`

	// Failures lists every skipped page or download.
	Failures []Failure `json:"failures,omitempty"`

	// PerformedSteps lists pipeline step names in execution order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error holds the error that stopped the pipeline, if any.
	Error        error  `json:"-"`
	ErrorMessage string `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// NewRunReport creates a report for a run starting at startURL.
func NewRunReport(startURL string, maxPages, maxFiles int) *RunReport {
	return &RunReport{
		ID:        uuid.NewString(),
		StartURL:  startURL,
		MaxPages:  maxPages,
		MaxFiles:  maxFiles,
		State:     CrawlStateIdle,
		StateText: CrawlStateIdle.String(),
		FileLinks: make([]string, 0),
		Failures:  make([]Failure, 0),
		StartedAt: time.Now(),
	}
}

// SetState updates State and its serialized mirror together.
func (r *RunReport) SetState(s CrawlState) {
	r.State = s
	r.StateText = s.String()
}

// AddFailure appends a failure to the report.
func (r *RunReport) AddFailure(f Failure) {
	r.Failures = append(r.Failures, f)
}

// FilesFound returns the number of distinct document URLs discovered.
func (r *RunReport) FilesFound() int {
	return len(r.FileLinks)
}

// Elapsed returns the run duration, measured up to now while still running.
func (r *RunReport) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
