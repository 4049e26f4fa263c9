package calendar

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/moby/sys/atomicwriter"

	"github.com/nao1215/deliverycal/internal/model"
)

const (
	// DefaultName is the calendar display name.
	DefaultName = "Deliveries"
	productID   = "-//deliverycal//Delivery Calendar//EN"
	category    = "Delivery"
)

// Writer renders events and writes them to one calendar file.
type Writer struct {
	path   string
	name   string
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithName sets the calendar display name.
func WithName(name string) Option {
	return func(w *Writer) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLocation sets the zone timed events are placed in.
func WithLocation(loc *time.Location) Option {
	return func(w *Writer) {
		if loc != nil {
			w.loc = loc
		}
	}
}

// WithClock sets the source of DTSTAMP values.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		w.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		w.logger = logger
	}
}

// NewWriter returns a Writer for path.
func NewWriter(path string, opts ...Option) *Writer {
	w := &Writer{
		path:   path,
		name:   DefaultName,
		loc:    time.Local,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Path returns the calendar file path.
func (w *Writer) Path() string {
	return w.path
}

// Build returns the calendar document for events. Event UIDs are derived
// from event keys, so rebuilding the same events yields the same UIDs.
func (w *Writer) Build(events []model.DeliveryEvent) (*ics.Calendar, error) {
	cal := ics.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ics.MethodPublish)
	cal.SetName(w.name)
	cal.SetXWRCalName(w.name)
	if tz := w.loc.String(); tz != "Local" {
		cal.SetXWRTimezone(tz)
	}

	stamp := w.now().UTC()
	for _, e := range events {
		if err := e.Window.Validate(); err != nil {
			return nil, fmt.Errorf("invalid window for %s: %w", e.Key(), err)
		}
		ev := cal.AddEvent(e.Key().UID())
		ev.SetDtStampTime(stamp)
		ev.SetSummary(e.Summary())
		ev.SetDescription(description(e))
		ev.SetProperty(ics.ComponentPropertyCategories, category)
		if e.OrderURL != "" {
			ev.SetURL(e.OrderURL)
		}
		if e.Window.AllDay() {
			ev.SetAllDayStartAt(e.Window.StartDate)
			ev.SetAllDayEndAt(e.Window.EndDate.AddDate(0, 0, 1))
			continue
		}
		ev.SetStartAt(e.Window.Start(w.loc))
		ev.SetEndAt(e.Window.End(w.loc))
	}
	return cal, nil
}

// Encode writes the calendar document for events to out.
func (w *Writer) Encode(out io.Writer, events []model.DeliveryEvent) error {
	cal, err := w.Build(events)
	if err != nil {
		return err
	}
	return cal.SerializeTo(out)
}

// Write replaces the calendar file with events. The file is written to a
// temporary file and renamed, so readers see either the old or the new
// calendar. Nothing is written when an event is invalid.
func (w *Writer) Write(events []model.DeliveryEvent) error {
	var buf bytes.Buffer
	if err := w.Encode(&buf, events); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	if dir := filepath.Dir(w.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create calendar directory: %w", err)
		}
	}
	if err := atomicwriter.WriteFile(w.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	w.logger.Info("calendar written", slog.String("path", w.path), slog.Int("events", len(events)))
	return nil
}

func description(e model.DeliveryEvent) string {
	lines := []string{
		fmt.Sprintf("%s order %s", e.Retailer.DisplayName(), e.OrderID),
	}
	if e.RawDateText != "" {
		lines = append(lines, "Status: "+e.RawDateText)
	}
	if e.OrderURL != "" {
		lines = append(lines, "Order details: "+e.OrderURL)
	}
	return strings.Join(lines, "\n")
}
