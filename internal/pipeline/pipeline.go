package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/nao1215/deliverycal/internal/browser"
	"github.com/nao1215/deliverycal/internal/model"
	"github.com/nao1215/deliverycal/internal/reconcile"
	"github.com/nao1215/deliverycal/internal/retailer"
)

// DefaultSessionTimeout bounds one retailer, from browser launch to the
// last order page.
const DefaultSessionTimeout = 5 * time.Minute

// EventStore keeps the event set of the last completed run.
// database.EventDB implements it.
type EventStore interface {
	LoadEvents(ctx context.Context) ([]model.DeliveryEvent, error)
	ReplaceEvents(ctx context.Context, events []model.DeliveryEvent, at time.Time) error
}

// CalendarWriter publishes an event set. calendar.Writer implements it.
type CalendarWriter interface {
	Write(events []model.DeliveryEvent) error
	Path() string
}

// Pipeline orchestrates one run over all configured retailers.
// Runs are serialized: a Run waits for the previous one to finish.
type Pipeline struct {
	launcher   browser.Launcher
	sources    []Source
	calendar   CalendarWriter
	reconciler *reconcile.Reconciler

	// store is optional. Without it the previous set is kept in memory.
	store    EventStore
	previous []model.DeliveryEvent

	logger         *slog.Logger
	sessionTimeout time.Duration
	now            func() time.Time
	loc            *time.Location
	newRunID       func() string

	sem *semaphore.Weighted
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithSessionTimeout bounds each retailer session. Non-positive values
// keep the default.
func WithSessionTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.sessionTimeout = d
		}
	}
}

// WithStore persists the event set between runs and processes.
func WithStore(store EventStore) Option {
	return func(p *Pipeline) {
		p.store = store
	}
}

// WithReconciler replaces the default reconciler.
func WithReconciler(r *reconcile.Reconciler) Option {
	return func(p *Pipeline) {
		p.reconciler = r
	}
}

// WithClock sets the time source. The reference date of delivery text is
// the clock's date in the pipeline location.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithLocation sets the zone delivery dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(p *Pipeline) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithRunID sets the run id generator.
func WithRunID(newID func() string) Option {
	return func(p *Pipeline) {
		p.newRunID = newID
	}
}

// New creates a Pipeline running sources in order and publishing through cal.
func New(launcher browser.Launcher, cal CalendarWriter, sources []Source, opts ...Option) *Pipeline {
	p := &Pipeline{
		launcher:       launcher,
		sources:        sources,
		calendar:       cal,
		sessionTimeout: DefaultSessionTimeout,
		now:            time.Now,
		loc:            time.Local,
		newRunID:       uuid.NewString,
		sem:            semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.reconciler == nil {
		p.reconciler = reconcile.New(reconcile.WithLogger(p.logger))
	}
	return p
}

// Retailers returns the retailers in run order.
func (p *Pipeline) Retailers() []model.Retailer {
	names := make([]model.Retailer, len(p.sources))
	for i, s := range p.sources {
		names[i] = s.Retailer
	}
	return names
}

// Run executes one pass and returns its summary. It never returns an
// error: retailer failures are outcomes, and output failures are recorded
// in the summary's Error.
//
// If ctx is cancelled while retailers are processed, the remaining
// retailers are skipped and nothing is written. Once reconciliation has
// started, the calendar and the store are written regardless of ctx.
func (p *Pipeline) Run(ctx context.Context) *model.RunSummary {
	summary := &model.RunSummary{
		RunID:        p.newRunID(),
		CalendarPath: p.calendar.Path(),
	}
	logger := p.logger.With("run_id", summary.RunID)

	if err := p.sem.Acquire(ctx, 1); err != nil {
		summary.StartedAt = p.now()
		summary.FinishedAt = summary.StartedAt
		summary.Error = fmt.Sprintf("run cancelled before start: %v", err)
		logger.Warn("run cancelled before start", "error", err)
		return summary
	}
	defer p.sem.Release(1)

	summary.StartedAt = p.now()
	logger.Info("run started", "retailers", len(p.sources))

	var records []model.RawOrderRecord
	for _, src := range p.sources {
		if ctx.Err() != nil {
			break
		}
		outcome, recs := p.runSource(ctx, logger, src)
		summary.Outcomes = append(summary.Outcomes, outcome)
		records = append(records, recs...)
	}

	if err := ctx.Err(); err != nil {
		summary.Error = fmt.Sprintf("run cancelled: %v", err)
		summary.FinishedAt = p.now()
		logger.Warn("run cancelled, calendar not written", "error", err)
		return summary
	}

	p.publish(context.WithoutCancel(ctx), logger, summary, records)
	summary.FinishedAt = p.now()

	logger.Info("run finished",
		"duration", summary.Duration(),
		"failed_retailers", summary.FailedRetailers(),
		"events", summary.EventCount,
		"added", summary.Added,
		"updated", summary.Updated,
		"removed", summary.Removed,
		"unparseable", len(summary.ParseFailures),
		"calendar_written", summary.CalendarWritten,
	)
	return summary
}

// publish reconciles records, writes the calendar and stores the new set.
// The store is only replaced after the calendar file was written, so both
// always describe the same run.
func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, summary *model.RunSummary, records []model.RawOrderRecord) {
	previous, err := p.loadPrevious(ctx)
	if err != nil {
		logger.Warn("failed to load previous events, counting all events as added", "error", err)
	}

	ref := p.now().In(p.loc)
	res := p.reconciler.Reconcile(previous, records, ref)

	summary.EventCount = len(res.Events)
	summary.Added = res.Added
	summary.Updated = res.Updated
	summary.Removed = res.Removed
	summary.Unchanged = res.Unchanged
	summary.ParseFailures = res.Failures

	if err := p.calendar.Write(res.Events); err != nil {
		summary.Error = fmt.Sprintf("failed to write calendar: %v", err)
		logger.Error("failed to write calendar", "path", p.calendar.Path(), "error", err)
		return
	}
	summary.CalendarWritten = true

	if p.store == nil {
		p.previous = res.Events
		return
	}
	if err := p.store.ReplaceEvents(ctx, res.Events, summary.StartedAt); err != nil {
		summary.Error = fmt.Sprintf("failed to store events: %v", err)
		logger.Error("failed to store events", "error", err)
		return
	}
}

func (p *Pipeline) loadPrevious(ctx context.Context) ([]model.DeliveryEvent, error) {
	if p.store == nil {
		return p.previous, nil
	}
	return p.store.LoadEvents(ctx)
}

// runSource processes one retailer inside its own timeout. The browser is
// closed before runSource returns, on every path.
func (p *Pipeline) runSource(ctx context.Context, logger *slog.Logger, src Source) (outcome model.RetailerOutcome, records []model.RawOrderRecord) {
	start := p.now()
	logger = logger.With("retailer", src.Retailer)
	logger.Info("retailer started")

	sessionCtx, cancel := context.WithTimeout(ctx, p.sessionTimeout)
	defer cancel()

	records, err := p.scrape(sessionCtx, src)
	outcome = p.classify(ctx, sessionCtx, src.Retailer, len(records), err)
	outcome.Duration = p.now().Sub(start)

	if outcome.Succeeded() {
		logger.Info("retailer finished", "records", outcome.RecordCount, "duration", outcome.Duration)
		return outcome, records
	}
	logger.Error("retailer failed",
		"kind", outcome.Kind,
		"reason", outcome.Reason,
		"artifact", outcome.Artifact,
		"error", outcome.Message,
	)
	return outcome, nil
}

// scrape launches a browser, authenticates and fetches. Panics raised by
// the session are returned as errors.
func (p *Pipeline) scrape(ctx context.Context, src Source) (records []model.RawOrderRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = &panicError{value: r}
		}
	}()

	b, err := p.launcher.Launch(ctx)
	if err != nil {
		return nil, &retailer.ScrapeError{
			Retailer: src.Retailer,
			Reason:   retailer.ReasonNavigationFailed,
			Err:      fmt.Errorf("failed to launch browser: %w", err),
		}
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			p.logger.Warn("failed to close browser", "retailer", src.Retailer, "error", cerr)
		}
	}()

	session := src.Open(b)
	if err := session.Authenticate(ctx); err != nil {
		return nil, err
	}
	return session.FetchOrders(ctx)
}

// classify turns the result of one retailer into a summary entry.
func (p *Pipeline) classify(runCtx, sessionCtx context.Context, r model.Retailer, n int, err error) model.RetailerOutcome {
	if err == nil {
		return model.RetailerOutcome{Retailer: r, Status: model.OutcomeSuccess, RecordCount: n}
	}

	outcome := model.RetailerOutcome{
		Retailer: r,
		Status:   model.OutcomeFailure,
		Kind:     model.FailureScrape,
		Reason:   string(retailer.ReasonNavigationFailed),
		Message:  err.Error(),
	}

	var authErr *retailer.AuthenticationError
	var scrapeErr *retailer.ScrapeError
	var pe *panicError
	switch {
	case errors.As(err, &pe):
	case runCtx.Err() == nil && errors.Is(sessionCtx.Err(), context.DeadlineExceeded):
		outcome.Message = fmt.Sprintf("session exceeded %s: %v", p.sessionTimeout, err)
		if errors.As(err, &scrapeErr) {
			outcome.Artifact = scrapeErr.Artifact
		}
	case errors.As(err, &authErr):
		outcome.Kind = model.FailureAuthentication
		outcome.Reason = string(authErr.Reason)
	case errors.As(err, &scrapeErr):
		outcome.Reason = string(scrapeErr.Reason)
		outcome.Artifact = scrapeErr.Artifact
	}
	return outcome
}

// panicError carries a value recovered from a session.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("session panicked: %v", e.value)
}
