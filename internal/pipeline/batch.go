package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/doccrawl/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency is the number of seeds crawled at once.
const DefaultBatchConcurrency = 2

// Factory builds a fresh pipeline for one seed.
type Factory func(target string) (*Pipeline, error)

// BatchProcessor crawls several seeds concurrently. Every seed gets its own
// pipeline and therefore its own crawl session; only the store and the HTTP
// client are shared.
type BatchProcessor struct {
	factory     Factory
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent crawls.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor that builds pipelines with factory.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: DefaultBatchConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch crawls targets and returns one report per target, in input
// order. A failed crawl does not stop the others; its error is recorded in
// its report. The returned error is the context error when ctx was
// cancelled, in which case reports of unstarted targets are nil.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*model.RunReport, error) {
	bp.logger.Info("starting batch",
		"targets", len(targets),
		"concurrency", bp.concurrency,
	)

	start := time.Now()
	results := make([]*model.RunReport, len(targets))

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			report := model.NewRunReport(target, 0, 0)
			results[i] = report

			p, err := bp.factory(target)
			if err != nil {
				report.Error = err
				report.ErrorMessage = err.Error()
				report.FinishedAt = time.Now()
				bp.logger.Warn("cannot build pipeline", "target", target, "error", err)
				return nil
			}

			if err := p.Execute(ctx, report); err != nil {
				bp.logger.Warn("crawl failed", "target", target, "error", err)
				return nil
			}

			bp.logger.Info("crawl finished",
				"target", target,
				"index", i+1,
				"total", len(targets),
			)
			return nil
		})
	}

	_ = g.Wait()

	bp.logger.Info("batch complete",
		"targets", len(targets),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return results, ctx.Err()
}
