package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/deliverycal/internal/model"
)

// Format names accepted by NewWriter.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ErrUnknownFormat is returned by NewWriter for an unsupported format.
var ErrUnknownFormat = errors.New("unknown report format")

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs a run summary.
	// Returns the number of bytes written and any error encountered.
	Write(summary *model.RunSummary) (int, error)

	// WriteEvents outputs an event list.
	WriteEvents(events []model.DeliveryEvent) (int, error)

	// WriteExtraction outputs an event list together with the records
	// whose delivery text could not be parsed.
	WriteExtraction(events []model.DeliveryEvent, failures []model.ParseFailure) (int, error)
}

// NewWriter returns the writer for format.
func NewWriter(format string, output io.Writer) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewSimpleWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(summary *model.RunSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteEvents outputs the events to all configured Writers.
func (m *MultiWriter) WriteEvents(events []model.DeliveryEvent) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteEvents(events)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteExtraction outputs the extraction to all configured Writers.
func (m *MultiWriter) WriteExtraction(events []model.DeliveryEvent, failures []model.ParseFailure) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteExtraction(events, failures)
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

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText describes the overall run result.
func statusText(s *model.RunSummary) string {
	failed := s.FailedRetailers()
	switch {
	case s.Error != "":
		return "ERROR - " + s.Error
	case len(s.Outcomes) > 0 && failed == len(s.Outcomes):
		return "All retailers failed"
	case failed > 0:
		return fmt.Sprintf("Partial (%d of %d retailers failed)", failed, len(s.Outcomes))
	default:
		return "Complete"
	}
}

// outcomeDetail returns the count or failure reason of an outcome.
func outcomeDetail(o model.RetailerOutcome) string {
	if o.Succeeded() {
		return fmt.Sprintf("%d record(s)", o.RecordCount)
	}
	return fmt.Sprintf("%s failure: %s", o.Kind, o.Reason)
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
