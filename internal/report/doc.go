// Package report renders run summaries and event lists.
//
// This package contains writers for different output formats:
//   - SimpleWriter: plain text for terminals and log files
//   - JSONWriter: structured JSON for scripts
//   - MarkdownWriter: Markdown tables for notes and issue trackers
//
// Writers implement the Writer interface, so the CLI picks one by name
// with NewWriter and can compose several with MultiWriter.
package report
