package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/doccrawl/internal/model"
)

// JSONWriter outputs reports in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteRun outputs the run report as a JSON object.
func (w *JSONWriter) WriteRun(report *model.RunReport) (int, error) {
	return w.writeJSON(report)
}

// DocumentEntry is the exported form of one metadata record.
type DocumentEntry struct {
	URL           string   `json:"url"`
	UpdateHistory []string `json:"update_history"`
}

// DocumentIndex maps local filenames to their provenance.
// It is the layout of documents_metadata.json.
type DocumentIndex map[string]DocumentEntry

// NewDocumentIndex converts records into the exported layout.
// Timestamps are ISO-8601 in UTC.
func NewDocumentIndex(records []model.DocumentRecord) DocumentIndex {
	index := make(DocumentIndex, len(records))
	for _, r := range records {
		history := make([]string, len(r.UpdateHistory))
		for i, ts := range r.UpdateHistory {
			history[i] = ts.UTC().Format(time.RFC3339Nano)
		}
		index[r.Filename] = DocumentEntry{URL: r.URL, UpdateHistory: history}
	}
	return index
}

// WriteDocuments outputs the records as a filename-keyed JSON object.
func (w *JSONWriter) WriteDocuments(records []model.DocumentRecord) (int, error) {
	return w.writeJSON(NewDocumentIndex(records))
}

// WriteRuns outputs the runs as a JSON array.
func (w *JSONWriter) WriteRuns(runs []*model.RunReport) (int, error) {
	if runs == nil {
		runs = make([]*model.RunReport, 0)
	}
	return w.writeJSON(runs)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
