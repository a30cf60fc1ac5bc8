package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/doccrawl/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports in Markdown format for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteRun outputs the run report in Markdown format.
func (w *MarkdownWriter) WriteRun(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("doccrawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URL", "`" + report.StartURL + "`"},
			{"Run ID", "`" + report.ID + "`"},
			{"Started", report.StartedAt.Format(timestampLayout)},
			{"Elapsed", report.Elapsed().Round(time.Millisecond).String()},
			{"Status", w.statusBadge(report)},
		},
	})
	md.PlainText("")

	md.H2("Statistics")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Pages scraped", strconv.Itoa(report.PagesScraped)},
			{"Files found", strconv.Itoa(report.FilesFound())},
			{"Files attempted", strconv.Itoa(report.FilesAttempted)},
			{"Files downloaded", strconv.Itoa(report.FilesDownloaded)},
			{"Failures", strconv.Itoa(len(report.Failures))},
		},
	})
	md.PlainText("")

	if report.FilesAttempted > 0 {
		w.writePieChart(md, report)
	}
	w.writeAlert(md, report)
	w.writeFailures(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// statusBadge returns the status text with an indicator.
func (w *MarkdownWriter) statusBadge(report *model.RunReport) string {
	switch {
	case report.ErrorMessage != "":
		return "❌ " + statusText(report)
	case report.State == model.CrawlStateCancelled:
		return "⚠️ " + statusText(report)
	default:
		return "✅ " + statusText(report)
	}
}

// writePieChart writes a mermaid pie chart of download outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.RunReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Download Outcomes"),
		piechart.WithShowData(true),
	)

	if report.FilesDownloaded > 0 {
		chart.LabelAndIntValue("Downloaded", uint64(report.FilesDownloaded))
	}
	if failed := report.FilesAttempted - report.FilesDownloaded; failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(failed))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert summarising how the run went.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.RunReport) {
	failed := report.FilesAttempted - report.FilesDownloaded
	switch {
	case report.ErrorMessage != "":
		md.Cautionf("The run stopped with an error: %s", report.ErrorMessage)
	case failed > 0:
		md.Warningf("%d of %d download(s) failed.", failed, report.FilesAttempted)
	case report.State == model.CrawlStateQuotaReached:
		md.Note("The page or file quota stopped the crawl before the frontier was exhausted.")
	case report.FilesFound() == 0:
		md.Importantf("No documents were found.")
	default:
		md.Tip("Every discovered document was downloaded.")
	}
	md.PlainText("")
}

// writeFailures writes a table of skipped pages and downloads.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Failures")
	md.PlainText("")

	if len(report.Failures) == 0 {
		md.PlainText("No failures.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Failures))
	for i, f := range report.Failures {
		rows[i] = []string{
			truncateString(f.URL, 60),
			string(f.Kind),
			truncateString(f.Message, 80),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind", "Message"},
		Rows:   rows,
	})
	md.PlainText("")
}

// WriteDocuments outputs the stored records as a table, with the full
// history of each record in a details block.
func (w *MarkdownWriter) WriteDocuments(records []model.DocumentRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Documents")
	md.PlainText("")

	if len(records) == 0 {
		md.PlainText("No documents recorded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			"`" + r.Filename + "`",
			truncateString(r.URL, 60),
			strconv.Itoa(len(r.UpdateHistory)),
			r.LastFetched().Local().Format(timestampLayout),
			strconv.FormatInt(r.SizeBytes, 10),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Filename", "URL", "Updates", "Last fetched", "Bytes"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, r := range records {
		if len(r.UpdateHistory) < 2 {
			continue
		}
		history := ""
		for _, ts := range r.UpdateHistory {
			history += "- " + ts.Local().Format(timestampLayout) + "\n"
		}
		md.Details(r.Filename, history)
	}
	md.PlainText("")

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// WriteRuns outputs the run list as a table.
func (w *MarkdownWriter) WriteRuns(runs []*model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl Runs")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No crawl runs recorded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.StartedAt.Local().Format(timestampLayout),
			"`" + r.StartURL + "`",
			r.StateText,
			strconv.Itoa(r.PagesScraped),
			strconv.Itoa(r.FilesFound()),
			strconv.Itoa(r.FilesDownloaded) + "/" + strconv.Itoa(r.FilesAttempted),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Started", "Start URL", "State", "Pages", "Files", "Downloaded"},
		Rows:   rows,
	})
	md.PlainText("")

	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [doccrawl](https://github.com/nao1215/doccrawl)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
