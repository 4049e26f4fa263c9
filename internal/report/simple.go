package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/deliverycal/internal/model"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// SimpleWriter outputs human-readable text reports.
type SimpleWriter struct {
	baseWriter

	// verbose adds the raw text of every parse failure.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

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

// Write outputs the run summary in human-readable format.
func (w *SimpleWriter) Write(summary *model.RunSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeOutcomes(&sb, summary)
	w.writeChanges(&sb, summary)
	w.writeFailures(&sb, summary.ParseFailures)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *model.RunSummary) {
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString("                   DELIVERY CALENDAR RUN\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Run ID:    %s\n", s.RunID)
	fmt.Fprintf(sb, "Started:   %s\n", s.StartedAt.Format(timeLayout))
	fmt.Fprintf(sb, "Duration:  %s\n", s.Duration().Round(time.Millisecond))
	fmt.Fprintf(sb, "Status:    %s\n", statusText(s))
	if s.CalendarWritten {
		fmt.Fprintf(sb, "Calendar:  %s\n", s.CalendarPath)
	} else {
		sb.WriteString("Calendar:  not written\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeOutcomes(sb *strings.Builder, s *model.RunSummary) {
	sb.WriteString("RETAILERS\n")
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
	if len(s.Outcomes) == 0 {
		sb.WriteString("  (no retailer configured)\n\n")
		return
	}
	for _, o := range s.Outcomes {
		mark := "OK  "
		if !o.Succeeded() {
			mark = "FAIL"
		}
		fmt.Fprintf(sb, "  [%s] %-8s %s\n", mark, o.Retailer.DisplayName(), outcomeDetail(o))
		if o.Artifact != "" {
			fmt.Fprintf(sb, "         snapshot: %s\n", o.Artifact)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeChanges(sb *strings.Builder, s *model.RunSummary) {
	sb.WriteString("EVENTS\n")
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  Total: %d  (added %d, updated %d, removed %d, unchanged %d)\n\n",
		s.EventCount, s.Added, s.Updated, s.Removed, s.Unchanged)
}

func (w *SimpleWriter) writeFailures(sb *strings.Builder, failures []model.ParseFailure) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(sb, "UNPARSEABLE DELIVERY TEXT (%d)\n", len(failures))
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
	for _, f := range failures {
		fmt.Fprintf(sb, "  %s %s: %q\n", f.Retailer.DisplayName(), f.OrderID, f.RawText)
		if w.verbose && f.ItemName != "" {
			fmt.Fprintf(sb, "      item: %s\n", f.ItemName)
		}
	}
	sb.WriteString("\n")
}

// WriteEvents outputs one line per event.
func (w *SimpleWriter) WriteEvents(events []model.DeliveryEvent) (int, error) {
	var sb strings.Builder
	writeEventLines(&sb, events)
	return w.output.Write([]byte(sb.String()))
}

// WriteExtraction outputs the events followed by the records whose delivery
// text could not be parsed.
func (w *SimpleWriter) WriteExtraction(events []model.DeliveryEvent, failures []model.ParseFailure) (int, error) {
	var sb strings.Builder
	writeEventLines(&sb, events)
	if len(failures) > 0 {
		sb.WriteString("\n")
		w.writeFailures(&sb, failures)
	}
	return w.output.Write([]byte(sb.String()))
}

func writeEventLines(sb *strings.Builder, events []model.DeliveryEvent) {
	if len(events) == 0 {
		sb.WriteString("No delivery events.\n")
		return
	}
	for _, e := range events {
		fmt.Fprintf(sb, "%-40s %-8s %-22s %s\n",
			e.Window.String(), e.Retailer.DisplayName(), e.OrderID, truncateString(e.Summary(), 50))
	}
}
