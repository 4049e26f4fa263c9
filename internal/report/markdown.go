package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/deliverycal/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeOutcomes(md, summary)
	w.writeChanges(md, summary)
	w.writeFailures(md, summary.ParseFailures)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.RunSummary) {
	md.H1("Delivery Calendar Run")
	md.PlainText("")

	calendar := "not written"
	if s.CalendarWritten {
		calendar = "`" + s.CalendarPath + "`"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + s.RunID + "`"},
			{"Started", s.StartedAt.Format(timeLayout)},
			{"Duration", s.Duration().Round(time.Millisecond).String()},
			{"Status", statusText(s)},
			{"Calendar", calendar},
		},
	})
	md.PlainText("")

	failed := s.FailedRetailers()
	switch {
	case s.Error != "":
		md.Cautionf("The run could not write its output: %s", s.Error)
	case len(s.Outcomes) > 0 && failed == len(s.Outcomes):
		md.Cautionf("All %d retailer(s) failed. No event was read in this run.", failed)
	case failed > 0:
		md.Warningf("%d retailer(s) failed and will be retried on the next run.", failed)
	case len(s.ParseFailures) > 0:
		md.Importantf("%d delivery text(s) could not be parsed.", len(s.ParseFailures))
	default:
		md.Tip("All retailers were read successfully.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeOutcomes(md *markdown.Markdown, s *model.RunSummary) {
	md.H2("Retailers")
	md.PlainText("")

	if len(s.Outcomes) == 0 {
		md.PlainText("No retailer configured.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.Outcomes))
	for i, o := range s.Outcomes {
		artifact := "-"
		if o.Artifact != "" {
			artifact = "`" + o.Artifact + "`"
		}
		rows[i] = []string{
			o.Retailer.DisplayName(),
			string(o.Status),
			outcomeDetail(o),
			o.Duration.Round(time.Millisecond).String(),
			artifact,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Retailer", "Status", "Detail", "Duration", "Snapshot"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeChanges(md *markdown.Markdown, s *model.RunSummary) {
	md.H2("Events")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Total", "Added", "Updated", "Removed", "Unchanged"},
		Rows: [][]string{{
			strconv.Itoa(s.EventCount),
			strconv.Itoa(s.Added),
			strconv.Itoa(s.Updated),
			strconv.Itoa(s.Removed),
			strconv.Itoa(s.Unchanged),
		}},
	})
	md.PlainText("")

	if s.Added+s.Updated+s.Removed+s.Unchanged > 0 {
		w.writePieChart(md, s)
	}
}

// writePieChart writes a mermaid pie chart of event changes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *model.RunSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Event Changes"),
		piechart.WithShowData(true),
	)
	for _, c := range []struct {
		label string
		n     int
	}{
		{"Added", s.Added},
		{"Updated", s.Updated},
		{"Removed", s.Removed},
		{"Unchanged", s.Unchanged},
	} {
		if c.n > 0 {
			chart.LabelAndIntValue(c.label, uint64(c.n)) //nolint:gosec // counts are never negative
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, failures []model.ParseFailure) {
	if len(failures) == 0 {
		return
	}
	md.H2("Unparseable Delivery Text")
	md.PlainText("")

	rows := make([][]string, len(failures))
	for i, f := range failures {
		item := f.ItemName
		if item == "" {
			item = "-"
		}
		rows[i] = []string{f.Retailer.DisplayName(), f.OrderID, truncateString(item, 40), "`" + f.RawText + "`"}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Retailer", "Order", "Item", "Text"},
		Rows:   rows,
	})
	md.PlainText("")
}

// WriteEvents outputs the events as a Markdown table.
func (w *MarkdownWriter) WriteEvents(events []model.DeliveryEvent) (int, error) {
	md := markdown.NewMarkdown(w.output)
	writeEventTable(md, events)
	return len(md.String()), md.Build()
}

// WriteExtraction outputs the events table and a table of the records whose
// delivery text could not be parsed.
func (w *MarkdownWriter) WriteExtraction(events []model.DeliveryEvent, failures []model.ParseFailure) (int, error) {
	md := markdown.NewMarkdown(w.output)
	writeEventTable(md, events)
	if len(failures) > 0 {
		md.PlainText("")
		w.writeFailures(md, failures)
	}
	return len(md.String()), md.Build()
}

func writeEventTable(md *markdown.Markdown, events []model.DeliveryEvent) {
	md.H1("Delivery Events")
	md.PlainText("")

	if len(events) == 0 {
		md.PlainText("No delivery events.")
		return
	}

	rows := make([][]string, len(events))
	for i, e := range events {
		order := e.OrderID
		if e.OrderURL != "" {
			order = fmt.Sprintf("[%s](%s)", e.OrderID, e.OrderURL)
		}
		rows[i] = []string{e.Window.String(), e.Retailer.DisplayName(), order, truncateString(e.Summary(), 50)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Window", "Retailer", "Order", "Item"},
		Rows:   rows,
	})
}
