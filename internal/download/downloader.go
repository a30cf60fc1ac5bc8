package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/doccrawl/internal/model"
)

// DefaultConcurrency is the number of downloads in flight at once.
const DefaultConcurrency = 10

// Downloader runs the download stage: bounded concurrent fetches into the
// documents directory plus one metadata upsert per success.
type Downloader struct {
	fetcher     *Fetcher
	store       Store
	concurrency int
	logger      *slog.Logger

	// now stamps successful downloads.
	now func() time.Time
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithConcurrency sets the worker pool size. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Downloader) {
		if timeout > 0 {
			d.fetcher.timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header of download requests.
func WithUserAgent(ua string) Option {
	return func(d *Downloader) {
		d.fetcher.userAgent = ua
	}
}

// WithCookie sets the Cookie header of download requests.
func WithCookie(cookie string) Option {
	return func(d *Downloader) {
		d.fetcher.cookie = cookie
	}
}

// WithHeaders adds headers to every download request.
func WithHeaders(headers map[string]string) Option {
	return func(d *Downloader) {
		for k, v := range headers {
			d.fetcher.headers[k] = v
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// WithClock replaces the clock used for update timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Downloader) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDownloader creates a Downloader that saves files into dir with client
// and records them in store.
func NewDownloader(client *http.Client, dir string, store Store, opts ...Option) *Downloader {
	d := &Downloader{
		fetcher:     NewFetcher(client, dir),
		store:       store,
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Task is one download attempt: a source URL and where it lands on disk.
type Task struct {
	URL      string
	Filename string
	Path     string
}

// newTask builds the task for link saved as filename.
func (d *Downloader) newTask(link, filename string) Task {
	return Task{URL: link, Filename: filename, Path: filepath.Join(d.fetcher.Dir(), filename)}
}

// Result summarizes one DownloadAll call.
type Result struct {
	// Attempted is the number of links dispatched.
	Attempted int

	// Succeeded is the number of files written and recorded.
	Succeeded int

	// Failures lists the failed attempts, in completion order.
	Failures []model.Failure
}

// DownloadAll downloads links in order, at most maxFiles of them
// (negative means all), and waits for every dispatched attempt.
//
// Synthesized names use the success count at dispatch time, so two unnamed
// links dispatched back to back may get the same name.
// Cancellation stops dispatching; in-flight attempts are aborted by their
// request context.
func (d *Downloader) DownloadAll(ctx context.Context, links []string, maxFiles int) (*Result, error) {
	if d.store == nil {
		return nil, ErrNoStore
	}

	if maxFiles >= 0 && len(links) > maxFiles {
		links = links[:maxFiles]
	}

	result := &Result{Failures: make([]model.Failure, 0)}
	if len(links) == 0 {
		return result, nil
	}

	var (
		succeeded atomic.Int64
		mu        sync.Mutex
		g         errgroup.Group
	)
	g.SetLimit(d.concurrency)

	start := time.Now()
	d.logger.Info("starting downloads", "files", len(links), "concurrency", d.concurrency)

	for _, link := range links {
		if ctx.Err() != nil {
			break
		}

		task := d.newTask(link, FilenameFor(link, fmt.Sprintf("document_%d", succeeded.Load()+1)))
		result.Attempted++

		g.Go(func() error {
			if err := d.download(ctx, task); err != nil {
				mu.Lock()
				result.Failures = append(result.Failures, failureFor(link, err))
				mu.Unlock()
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}

	_ = g.Wait()
	result.Succeeded = int(succeeded.Load())

	d.logger.Info("downloads finished",
		"succeeded", result.Succeeded,
		"attempted", result.Attempted,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return result, ctx.Err()
}

// download performs one attempt and records it.
func (d *Downloader) download(ctx context.Context, task Task) error {
	digest, err := d.fetcher.Fetch(ctx, task.URL, task.Filename)
	if err != nil {
		d.logger.Warn("download failed", "url", task.URL, "file", task.Filename, "error", err)
		return err
	}

	if err := d.store.Upsert(ctx, task.Filename, task.URL, d.now(), digest); err != nil {
		d.logger.Warn("recording download failed", "url", task.URL, "file", task.Filename, "error", err)
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	d.logger.Info("downloaded", "url", task.URL, "path", task.Path, "bytes", digest.SizeBytes)
	return nil
}

// failureFor converts a download error into a failure record.
func failureFor(link string, err error) model.Failure {
	kind := model.FailureDownloadTransport
	switch {
	case errors.Is(err, ErrMalformedURL):
		kind = model.FailureMalformedURL
	case errors.Is(err, ErrHTTPStatus):
		kind = model.FailureDownloadHTTP
	case errors.Is(err, ErrStorage):
		kind = model.FailureStorage
	}
	return model.Failure{URL: link, Kind: kind, Message: err.Error()}
}
