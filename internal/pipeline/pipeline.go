package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/doccrawl/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the accumulated
// report from previous steps.
type Step interface {
	// Do executes the pipeline step.
	// Failures of single pages or files are recorded in the report and
	// return nil; only run-level errors are returned.
	Do(ctx context.Context, report *model.RunReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// finalSteps run after steps even when a step failed or ctx was
	// cancelled, e.g. to persist the run record.
	finalSteps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. The default is to stop: a crawl that failed has
// no file links worth downloading.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:      make([]Step, 0),
		finalSteps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// AddFinalStep appends a step that always runs after the regular steps.
// It runs with a context that is not cancelled along with ctx.
func (p *Pipeline) AddFinalStep(step Step) {
	p.finalSteps = append(p.finalSteps, step)
}

// Execute runs all pipeline steps in sequence, then the final steps.
// Cancellation is checked before each step; a running step handles ctx itself.
//
// Returns the first error encountered if continueOnError is false,
// or nil if all steps complete (errors are recorded in report).
func (p *Pipeline) Execute(ctx context.Context, report *model.RunReport) error {
	p.logger.Debug("running pipeline",
		"target", report.StartURL,
		"steps", p.StepNames(),
	)

	err := p.run(ctx, report)

	if report.FinishedAt.IsZero() {
		report.FinishedAt = time.Now()
	}

	finalCtx := context.WithoutCancel(ctx)
	for _, step := range p.finalSteps {
		if ferr := p.runStep(finalCtx, step, report); ferr != nil && err == nil {
			err = ferr
		}
	}

	return err
}

func (p *Pipeline) run(ctx context.Context, report *model.RunReport) error {
	var firstErr error
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			if !report.State.Terminal() {
				report.SetState(model.CrawlStateCancelled)
			}
			p.recordError(report, ctx.Err())
			return ctx.Err()
		default:
		}

		if err := p.runStep(ctx, step, report); err != nil {
			if !p.continueOnError {
				return err
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// runStep executes one step and records it in the report.
func (p *Pipeline) runStep(ctx context.Context, step Step, report *model.RunReport) error {
	p.logger.Info("executing step",
		"step", step.Name(),
		"target", report.StartURL,
	)

	err := step.Do(ctx, report)
	report.PerformedSteps = append(report.PerformedSteps, step.Name())

	if err != nil {
		p.logger.Error("step failed",
			"step", step.Name(),
			"target", report.StartURL,
			"error", err,
		)
		p.recordError(report, err)
		return err
	}

	p.logger.Debug("step completed",
		"step", step.Name(),
		"target", report.StartURL,
	)
	return nil
}

// recordError keeps the first run-level error in the report.
func (p *Pipeline) recordError(report *model.RunReport, err error) {
	if report.Error != nil {
		return
	}
	report.Error = err
	report.ErrorMessage = err.Error()
}

// StepCount returns the number of regular and final steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps) + len(p.finalSteps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, p.StepCount())
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	for _, step := range p.finalSteps {
		names = append(names, step.Name())
	}
	return names
}
