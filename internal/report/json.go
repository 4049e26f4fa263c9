package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/deliverycal/internal/model"
)

// JSONWriter outputs reports in JSON format.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
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

// jsonSummary adds derived fields to a run summary.
type jsonSummary struct {
	*model.RunSummary

	Status   string  `json:"status"`
	Seconds  float64 `json:"durationSeconds"`
	Records  int     `json:"recordCount"`
	Failures int     `json:"failedRetailers"`
}

// Write outputs the run summary in JSON format.
func (w *JSONWriter) Write(summary *model.RunSummary) (int, error) {
	return w.writeJSON(jsonSummary{
		RunSummary: summary,
		Status:     statusText(summary),
		Seconds:    summary.Duration().Seconds(),
		Records:    summary.RecordCount(),
		Failures:   summary.FailedRetailers(),
	})
}

// WriteEvents outputs the events as a JSON array.
func (w *JSONWriter) WriteEvents(events []model.DeliveryEvent) (int, error) {
	if events == nil {
		events = []model.DeliveryEvent{}
	}
	return w.writeJSON(events)
}

// jsonExtraction is the JSON form of an offline extraction.
type jsonExtraction struct {
	Events        []model.DeliveryEvent `json:"events"`
	ParseFailures []model.ParseFailure  `json:"parseFailures"`
}

// WriteExtraction outputs the events and parse failures as one JSON object.
func (w *JSONWriter) WriteExtraction(events []model.DeliveryEvent, failures []model.ParseFailure) (int, error) {
	if events == nil {
		events = []model.DeliveryEvent{}
	}
	if failures == nil {
		failures = []model.ParseFailure{}
	}
	return w.writeJSON(jsonExtraction{Events: events, ParseFailures: failures})
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
