// Package report renders crawl results and the document metadata store.
//
// This package contains writers for different output formats:
//   - SimpleWriter: human-readable text for terminal display
//   - JSONWriter: JSON for tool integration; document listings use the
//     documents_metadata.json layout (filename -> url, update_history)
//   - MarkdownWriter: Markdown tables built with nao1215/markdown
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
