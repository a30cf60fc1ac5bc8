package report

import (
	"io"

	"github.com/nao1215/doccrawl/internal/model"
)

// timestampLayout is how update timestamps are printed in text and markdown.
const timestampLayout = "2006-01-02 15:04:05 MST"

// Writer defines the interface for report output.
// Implementations write crawl results and document listings in one format.
type Writer interface {
	// WriteRun outputs the outcome of one crawl run.
	WriteRun(report *model.RunReport) (int, error)

	// WriteDocuments outputs the stored document records, ordered by filename.
	WriteDocuments(records []model.DocumentRecord) (int, error)

	// WriteRuns outputs a list of recorded runs, newest first.
	WriteRuns(runs []*model.RunReport) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteRun outputs the run report to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) WriteRun(report *model.RunReport) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteRun(report) })
}

// WriteDocuments outputs the records to all configured Writers.
func (m *MultiWriter) WriteDocuments(records []model.DocumentRecord) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteDocuments(records) })
}

// WriteRuns outputs the run list to all configured Writers.
func (m *MultiWriter) WriteRuns(runs []*model.RunReport) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteRuns(runs) })
}

func (m *MultiWriter) each(write func(Writer) (int, error)) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := write(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText describes how a run ended.
func statusText(report *model.RunReport) string {
	if report.ErrorMessage != "" {
		return "ERROR - " + report.ErrorMessage
	}
	switch report.State {
	case model.CrawlStateCompleted:
		return "Complete (frontier exhausted)"
	case model.CrawlStateQuotaReached:
		return "Quota reached"
	case model.CrawlStateCancelled:
		return "Cancelled (partial results)"
	default:
		return report.StateText
	}
}
