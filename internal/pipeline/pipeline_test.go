package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/nao1215/deliverycal/internal/browser"
	"github.com/nao1215/deliverycal/internal/calendar"
	"github.com/nao1215/deliverycal/internal/database"
	"github.com/nao1215/deliverycal/internal/model"
	"github.com/nao1215/deliverycal/internal/retailer"
)

var now = time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)

// fakeSession is a scripted retailer session.
type fakeSession struct {
	retailer model.Retailer
	records  []model.RawOrderRecord
	authErr  error
	fetchErr error

	// hook runs at the start of Authenticate.
	hook func(ctx context.Context) error
}

func (s *fakeSession) Retailer() model.Retailer { return s.retailer }

func (s *fakeSession) Authenticate(ctx context.Context) error {
	if s.hook != nil {
		if err := s.hook(ctx); err != nil {
			return err
		}
	}
	return s.authErr
}

func (s *fakeSession) FetchOrders(_ context.Context) ([]model.RawOrderRecord, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.records, nil
}

func source(s *fakeSession) Source {
	return Source{
		Retailer: s.retailer,
		Open:     func(browser.Browser) retailer.Session { return s },
	}
}

func rec(r model.Retailer, order, item, text string) model.RawOrderRecord {
	return model.RawOrderRecord{Retailer: r, OrderID: order, ItemName: item, RawDateText: text}
}

// fakeCalendar records every published event set.
type fakeCalendar struct {
	mu     sync.Mutex
	writes [][]model.DeliveryEvent
	err    error
}

func (c *fakeCalendar) Write(events []model.DeliveryEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.writes = append(c.writes, events)
	return nil
}

func (c *fakeCalendar) Path() string { return "/tmp/test.ics" }

func (c *fakeCalendar) last() []model.DeliveryEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.writes) == 0 {
		return nil
	}
	return c.writes[len(c.writes)-1]
}

func (c *fakeCalendar) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

// fakeStore is an in-memory EventStore.
type fakeStore struct {
	events   []model.DeliveryEvent
	loadErr  error
	replaced int
}

func (s *fakeStore) LoadEvents(context.Context) ([]model.DeliveryEvent, error) {
	return s.events, s.loadErr
}

func (s *fakeStore) ReplaceEvents(_ context.Context, events []model.DeliveryEvent, _ time.Time) error {
	s.events = events
	s.replaced++
	return nil
}

type failingLauncher struct{}

func (failingLauncher) Launch(context.Context) (browser.Browser, error) {
	return nil, &browser.AutomationError{Op: "launch", Err: errors.New("chrome not found")}
}

func newTestPipeline(l browser.Launcher, cal CalendarWriter, sources []Source, opts ...Option) *Pipeline {
	base := []Option{
		WithLogger(slog.New(slog.DiscardHandler)),
		WithClock(func() time.Time { return now }),
		WithLocation(time.UTC),
		WithRunID(func() string { return "run-1" }),
	}
	return New(l, cal, sources, append(base, opts...)...)
}

func assertClosed(t *testing.T, l *browser.StaticLauncher, want int) {
	t.Helper()

	launched := l.Launched()
	if len(launched) != want {
		t.Fatalf("launched %d browsers, want %d", len(launched), want)
	}
	for i, b := range launched {
		if !b.Closed() {
			t.Errorf("browser %d was not closed", i)
		}
	}
}

func TestPipelineRun(t *testing.T) {
	t.Parallel()

	t.Run("publishes records of every retailer", func(t *testing.T) {
		t.Parallel()

		amazon := &fakeSession{retailer: model.RetailerAmazon, records: []model.RawOrderRecord{
			rec(model.RetailerAmazon, "403-1", "Lamp", "Arriving 12-15 March"),
			rec(model.RetailerAmazon, "403-1", "Cable", "Arriving tomorrow"),
		}}
		ikea := &fakeSession{retailer: model.RetailerIKEA, records: []model.RawOrderRecord{
			rec(model.RetailerIKEA, "1234567890", "Bookcase", "Expected delivery 15 March, 10am - 2pm"),
		}}
		launcher := &browser.StaticLauncher{}
		cal := &fakeCalendar{}

		s := newTestPipeline(launcher, cal, []Source{source(amazon), source(ikea)}).Run(context.Background())

		if s.RunID != "run-1" || s.Error != "" {
			t.Fatalf("unexpected summary: %+v", s)
		}
		if len(s.Outcomes) != 2 {
			t.Fatalf("got %d outcomes, want 2", len(s.Outcomes))
		}
		for i, want := range []struct {
			r model.Retailer
			n int
		}{{model.RetailerAmazon, 2}, {model.RetailerIKEA, 1}} {
			o := s.Outcomes[i]
			if o.Retailer != want.r || !o.Succeeded() || o.RecordCount != want.n {
				t.Errorf("outcome %d = %+v", i, o)
			}
		}
		if !s.CalendarWritten || s.EventCount != 3 || s.Added != 3 {
			t.Errorf("summary = %+v", s)
		}
		if got := len(cal.last()); got != 3 {
			t.Errorf("calendar got %d events, want 3", got)
		}
		assertClosed(t, launcher, 2)
	})

	t.Run("one failing retailer does not stop the others", func(t *testing.T) {
		t.Parallel()

		amazon := &fakeSession{retailer: model.RetailerAmazon, fetchErr: &retailer.ScrapeError{
			Retailer: model.RetailerAmazon,
			Reason:   retailer.ReasonLayoutChanged,
			Artifact: "/tmp/diag/amazon-layout_changed.png",
			Err:      browser.ErrElementNotFound,
		}}
		ikea := &fakeSession{retailer: model.RetailerIKEA, records: []model.RawOrderRecord{
			rec(model.RetailerIKEA, "1234567890", "", "Arriving 12 March"),
		}}
		launcher := &browser.StaticLauncher{}
		cal := &fakeCalendar{}

		s := newTestPipeline(launcher, cal, []Source{source(amazon), source(ikea)}).Run(context.Background())

		failed := s.Outcomes[0]
		if failed.Succeeded() || failed.Kind != model.FailureScrape || failed.Reason != "layout_changed" {
			t.Errorf("amazon outcome = %+v", failed)
		}
		if failed.Artifact != "/tmp/diag/amazon-layout_changed.png" {
			t.Errorf("artifact = %q", failed.Artifact)
		}
		if !s.Outcomes[1].Succeeded() {
			t.Errorf("ikea outcome = %+v", s.Outcomes[1])
		}
		if !s.CalendarWritten || s.EventCount != 1 {
			t.Errorf("summary = %+v", s)
		}
		assertClosed(t, launcher, 2)
	})

	t.Run("authentication failure is classified", func(t *testing.T) {
		t.Parallel()

		amazon := &fakeSession{retailer: model.RetailerAmazon, authErr: &retailer.AuthenticationError{
			Retailer: model.RetailerAmazon,
			Reason:   retailer.ReasonInvalidCredentials,
		}}
		cal := &fakeCalendar{}

		s := newTestPipeline(&browser.StaticLauncher{}, cal, []Source{source(amazon)}).Run(context.Background())

		o := s.Outcomes[0]
		if o.Kind != model.FailureAuthentication || o.Reason != "invalid_credentials" {
			t.Errorf("outcome = %+v", o)
		}
		if !s.CalendarWritten || s.EventCount != 0 {
			t.Errorf("all failed runs still publish: %+v", s)
		}
	})

	t.Run("session timeout is a navigation failure", func(t *testing.T) {
		t.Parallel()

		slow := &fakeSession{retailer: model.RetailerAmazon, hook: func(ctx context.Context) error {
			<-ctx.Done()
			return &retailer.AuthenticationError{
				Retailer: model.RetailerAmazon,
				Reason:   retailer.ReasonUnexpectedPage,
				Err:      ctx.Err(),
			}
		}}
		ikea := &fakeSession{retailer: model.RetailerIKEA, records: []model.RawOrderRecord{
			rec(model.RetailerIKEA, "1", "Rug", "Arriving today"),
		}}
		launcher := &browser.StaticLauncher{}

		s := newTestPipeline(launcher, &fakeCalendar{}, []Source{source(slow), source(ikea)},
			WithSessionTimeout(20*time.Millisecond)).Run(context.Background())

		o := s.Outcomes[0]
		if o.Kind != model.FailureScrape || o.Reason != "navigation_failed" {
			t.Errorf("outcome = %+v", o)
		}
		if !strings.Contains(o.Message, "session exceeded") {
			t.Errorf("message = %q", o.Message)
		}
		if !s.Outcomes[1].Succeeded() {
			t.Errorf("next retailer did not run: %+v", s.Outcomes[1])
		}
		assertClosed(t, launcher, 2)
	})

	t.Run("panicking session is contained", func(t *testing.T) {
		t.Parallel()

		broken := &fakeSession{retailer: model.RetailerAmazon, hook: func(context.Context) error {
			panic("nil element")
		}}
		launcher := &browser.StaticLauncher{}

		s := newTestPipeline(launcher, &fakeCalendar{}, []Source{source(broken)}).Run(context.Background())

		o := s.Outcomes[0]
		if o.Reason != "navigation_failed" || !strings.Contains(o.Message, "nil element") {
			t.Errorf("outcome = %+v", o)
		}
		assertClosed(t, launcher, 1)
	})

	t.Run("browser launch failure", func(t *testing.T) {
		t.Parallel()

		amazon := &fakeSession{retailer: model.RetailerAmazon}

		s := newTestPipeline(failingLauncher{}, &fakeCalendar{}, []Source{source(amazon)}).Run(context.Background())

		o := s.Outcomes[0]
		if o.Kind != model.FailureScrape || o.Reason != "navigation_failed" {
			t.Errorf("outcome = %+v", o)
		}
		if !strings.Contains(o.Message, "chrome not found") {
			t.Errorf("message = %q", o.Message)
		}
	})

	t.Run("unparseable text is reported", func(t *testing.T) {
		t.Parallel()

		amazon := &fakeSession{retailer: model.RetailerAmazon, records: []model.RawOrderRecord{
			rec(model.RetailerAmazon, "403-1", "Lamp", "Arriving soon"),
			rec(model.RetailerAmazon, "403-2", "Desk", "Arriving today"),
		}}

		s := newTestPipeline(&browser.StaticLauncher{}, &fakeCalendar{}, []Source{source(amazon)}).Run(context.Background())

		if !s.Outcomes[0].Succeeded() || s.Outcomes[0].RecordCount != 2 {
			t.Errorf("parse failures must not fail the retailer: %+v", s.Outcomes[0])
		}
		if s.EventCount != 1 || len(s.ParseFailures) != 1 || s.ParseFailures[0].RawText != "Arriving soon" {
			t.Errorf("summary = %+v", s)
		}
	})
}

func TestPipelineRunAcrossRuns(t *testing.T) {
	t.Parallel()

	t.Run("stale events are removed", func(t *testing.T) {
		t.Parallel()

		amazon := &fakeSession{retailer: model.RetailerAmazon, records: []model.RawOrderRecord{
			rec(model.RetailerAmazon, "403-1", "Lamp", "Arriving 12-15 March"),
			rec(model.RetailerAmazon, "403-2", "Desk", "Arriving 14 March"),
		}}
		cal := &fakeCalendar{}
		p := newTestPipeline(&browser.StaticLauncher{}, cal, []Source{source(amazon)})

		if s := p.Run(context.Background()); s.Added != 2 {
			t.Fatalf("first run = %+v", s)
		}

		amazon.records = amazon.records[:1]
		s := p.Run(context.Background())
		if s.EventCount != 1 || s.Removed != 1 || s.Unchanged != 1 {
			t.Errorf("second run = %+v", s)
		}
		if events := cal.last(); len(events) != 1 || events[0].OrderID != "403-1" {
			t.Errorf("calendar = %+v", events)
		}
	})

	t.Run("previous events come from the store", func(t *testing.T) {
		t.Parallel()

		store := &fakeStore{events: []model.DeliveryEvent{{
			Retailer: model.RetailerIKEA,
			OrderID:  "old",
			Window: model.DeliveryWindow{
				StartDate: now, EndDate: now, Precision: model.PrecisionToday,
			},
		}}}
		amazon := &fakeSession{retailer: model.RetailerAmazon, records: []model.RawOrderRecord{
			rec(model.RetailerAmazon, "403-1", "Lamp", "Arriving today"),
		}}

		s := newTestPipeline(&browser.StaticLauncher{}, &fakeCalendar{}, []Source{source(amazon)},
			WithStore(store)).Run(context.Background())

		if s.Added != 1 || s.Removed != 1 {
			t.Errorf("summary = %+v", s)
		}
		if store.replaced != 1 || len(store.events) != 1 || store.events[0].OrderID != "403-1" {
			t.Errorf("store = %+v", store)
		}
	})

	t.Run("store load failure still publishes", func(t *testing.T) {
		t.Parallel()

		store := &fakeStore{loadErr: errors.New("database is locked")}
		amazon := &fakeSession{retailer: model.RetailerAmazon, records: []model.RawOrderRecord{
			rec(model.RetailerAmazon, "403-1", "Lamp", "Arriving today"),
		}}

		s := newTestPipeline(&browser.StaticLauncher{}, &fakeCalendar{}, []Source{source(amazon)},
			WithStore(store)).Run(context.Background())

		if !s.CalendarWritten || s.Error != "" || store.replaced != 1 {
			t.Errorf("summary = %+v", s)
		}
	})

	t.Run("calendar failure keeps the stored set", func(t *testing.T) {
		t.Parallel()

		store := &fakeStore{}
		cal := &fakeCalendar{err: errors.New("disk full")}
		amazon := &fakeSession{retailer: model.RetailerAmazon, records: []model.RawOrderRecord{
			rec(model.RetailerAmazon, "403-1", "Lamp", "Arriving today"),
		}}

		s := newTestPipeline(&browser.StaticLauncher{}, cal, []Source{source(amazon)},
			WithStore(store)).Run(context.Background())

		if s.CalendarWritten || !strings.Contains(s.Error, "disk full") {
			t.Errorf("summary = %+v", s)
		}
		if store.replaced != 0 {
			t.Error("store must not be replaced when the calendar was not written")
		}
	})
}

func TestPipelineRunCancellation(t *testing.T) {
	t.Parallel()

	t.Run("cancelled before start writes nothing", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		cal := &fakeCalendar{}
		amazon := &fakeSession{retailer: model.RetailerAmazon}

		s := newTestPipeline(&browser.StaticLauncher{}, cal, []Source{source(amazon)}).Run(ctx)

		if s.CalendarWritten || cal.count() != 0 || s.Error == "" {
			t.Errorf("summary = %+v, writes = %d", s, cal.count())
		}
	})

	t.Run("cancelled during a retailer skips the rest", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		amazon := &fakeSession{retailer: model.RetailerAmazon, hook: func(context.Context) error {
			cancel()
			return &retailer.ScrapeError{Retailer: model.RetailerAmazon, Reason: retailer.ReasonNavigationFailed, Err: context.Canceled}
		}}
		ikea := &fakeSession{retailer: model.RetailerIKEA}
		launcher := &browser.StaticLauncher{}
		cal := &fakeCalendar{}

		s := newTestPipeline(launcher, cal, []Source{source(amazon), source(ikea)}).Run(ctx)

		if len(s.Outcomes) != 1 {
			t.Errorf("got %d outcomes, want 1", len(s.Outcomes))
		}
		if s.CalendarWritten || cal.count() != 0 || !strings.Contains(s.Error, "cancelled") {
			t.Errorf("summary = %+v", s)
		}
		assertClosed(t, launcher, 1)
	})
}

func TestPipelineRunsDoNotOverlap(t *testing.T) {
	t.Parallel()

	var active, maxActive atomic.Int32
	amazon := &fakeSession{retailer: model.RetailerAmazon, hook: func(context.Context) error {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		return nil
	}}
	p := newTestPipeline(&browser.StaticLauncher{}, &fakeCalendar{}, []Source{source(amazon)})

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Run(context.Background())
		}()
	}
	wg.Wait()

	if got := maxActive.Load(); got != 1 {
		t.Errorf("max concurrent sessions = %d, want 1", got)
	}
}

func TestPipelineRetailers(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(&browser.StaticLauncher{}, &fakeCalendar{}, []Source{
		source(&fakeSession{retailer: model.RetailerIKEA}),
		source(&fakeSession{retailer: model.RetailerAmazon}),
	})
	got := p.Retailers()
	if len(got) != 2 || got[0] != model.RetailerIKEA || got[1] != model.RetailerAmazon {
		t.Errorf("Retailers() = %v", got)
	}
}

func TestPipelinePublishesToFileAndDatabase(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	path := filepath.Join(dir, "out", "deliveries.ics")
	cal := calendar.NewWriter(path,
		calendar.WithLocation(time.UTC),
		calendar.WithClock(func() time.Time { return now }),
		calendar.WithLogger(slog.New(slog.DiscardHandler)),
	)
	amazon := &fakeSession{retailer: model.RetailerAmazon, records: []model.RawOrderRecord{
		rec(model.RetailerAmazon, "403-1", "Lamp", "Arriving 12-15 March"),
		rec(model.RetailerAmazon, "403-2", "", "Arriving tomorrow"),
	}}

	s := newTestPipeline(&browser.StaticLauncher{}, cal, []Source{source(amazon)}, WithStore(db)).Run(context.Background())
	if !s.CalendarWritten || s.Error != "" {
		t.Fatalf("summary = %+v", s)
	}

	f, err := os.Open(path) //nolint:gosec // test file in TempDir
	if err != nil {
		t.Fatalf("calendar not written: %v", err)
	}
	defer f.Close()
	parsed, err := ics.ParseCalendar(f)
	if err != nil {
		t.Fatalf("failed to parse calendar: %v", err)
	}
	if got := len(parsed.Events()); got != 2 {
		t.Errorf("calendar has %d events, want 2", got)
	}

	stored, err := db.LoadEvents(context.Background())
	if err != nil {
		t.Fatalf("failed to load events: %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("stored %d events, want 2", len(stored))
	}
}
