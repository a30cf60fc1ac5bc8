package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/doccrawl/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with nothing in them are shown.
	showEmpty bool

	// verbose lists every discovered link and failure message.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteRun outputs the crawl statistics of one run.
func (w *SimpleWriter) WriteRun(report *model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeRule(&sb, "=")
	sb.WriteString("                          DOCCRAWL REPORT\n")
	w.writeRule(&sb, "=")
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("Start URL:        %s\n", report.StartURL))
	sb.WriteString(fmt.Sprintf("Run ID:           %s\n", report.ID))
	sb.WriteString(fmt.Sprintf("Started:          %s\n", report.StartedAt.Format(timestampLayout)))
	sb.WriteString(fmt.Sprintf("Status:           %s\n", statusText(report)))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("Pages scraped:    %d\n", report.PagesScraped))
	sb.WriteString(fmt.Sprintf("Files found:      %d\n", report.FilesFound()))
	sb.WriteString(fmt.Sprintf("Files downloaded: %d/%d\n", report.FilesDownloaded, report.FilesAttempted))
	sb.WriteString(fmt.Sprintf("Elapsed:          %s\n", report.Elapsed().Round(time.Millisecond)))
	sb.WriteString("\n")

	if w.verbose && (len(report.FileLinks) > 0 || w.showEmpty) {
		w.writeSection(&sb, "DISCOVERED FILES")
		if len(report.FileLinks) == 0 {
			sb.WriteString("  No files discovered\n")
		}
		for _, link := range report.FileLinks {
			sb.WriteString(fmt.Sprintf("  [+] %s\n", link))
		}
		sb.WriteString("\n")
	}

	if len(report.Failures) > 0 || w.showEmpty {
		w.writeSection(&sb, "FAILURES")
		if len(report.Failures) == 0 {
			sb.WriteString("  No failures\n")
		}
		for _, f := range report.Failures {
			sb.WriteString(fmt.Sprintf("  [!] %s (%s)\n", f.URL, f.Kind))
			if w.verbose && f.Message != "" {
				sb.WriteString(fmt.Sprintf("      %s\n", f.Message))
			}
		}
		sb.WriteString("\n")
	}

	w.writeRule(&sb, "=")

	return io.WriteString(w.output, sb.String())
}

// WriteDocuments prints every record with its source URL and update history.
func (w *SimpleWriter) WriteDocuments(records []model.DocumentRecord) (int, error) {
	var sb strings.Builder

	if len(records) == 0 {
		sb.WriteString("No documents recorded.\n")
		return io.WriteString(w.output, sb.String())
	}

	for _, r := range records {
		sb.WriteString(fmt.Sprintf("Filename: %s\n", r.Filename))
		sb.WriteString(fmt.Sprintf("URL: %s\n", r.URL))
		if w.verbose && r.SHA3 != "" {
			sb.WriteString(fmt.Sprintf("Size: %d bytes\n", r.SizeBytes))
			sb.WriteString(fmt.Sprintf("SHA3-256: %s\n", r.SHA3))
		}
		sb.WriteString("Update History:\n")
		for _, ts := range r.UpdateHistory {
			sb.WriteString(fmt.Sprintf("  - %s\n", ts.Local().Format(timestampLayout)))
		}
		sb.WriteString(strings.Repeat("-", 70))
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("%d document(s)\n", len(records)))

	return io.WriteString(w.output, sb.String())
}

// WriteRuns prints one line per recorded run.
func (w *SimpleWriter) WriteRuns(runs []*model.RunReport) (int, error) {
	var sb strings.Builder

	if len(runs) == 0 {
		sb.WriteString("No crawl runs recorded.\n")
		return io.WriteString(w.output, sb.String())
	}

	for _, r := range runs {
		sb.WriteString(fmt.Sprintf("%s  %-13s  pages=%-4d files=%-4d downloaded=%d/%d  %s\n",
			r.StartedAt.Local().Format(timestampLayout),
			r.StateText,
			r.PagesScraped,
			r.FilesFound(),
			r.FilesDownloaded,
			r.FilesAttempted,
			r.StartURL,
		))
	}

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeRule(sb *strings.Builder, ch string) {
	sb.WriteString(strings.Repeat(ch, 70))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	w.writeRule(sb, "-")
	sb.WriteString(title)
	sb.WriteString("\n")
	w.writeRule(sb, "-")
	sb.WriteString("\n")
}
