package reconcile

import (
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/nao1215/deliverycal/internal/datewindow"
	"github.com/nao1215/deliverycal/internal/model"
)

// Result is the outcome of one reconciliation.
type Result struct {
	// Events is the new event set, sorted by key.
	Events []model.DeliveryEvent
	// Failures lists records excluded because their text did not parse.
	Failures []model.ParseFailure

	Added     int
	Updated   int
	Removed   int
	Unchanged int
}

// Reconciler builds event sets from raw records.
type Reconciler struct {
	parser *datewindow.Parser
	logger *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithParser sets the date window parser.
func WithParser(p *datewindow.Parser) Option {
	return func(r *Reconciler) {
		r.parser = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// New returns a Reconciler with a default parser.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{
		parser: datewindow.NewParser(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile parses every record against ref and returns the event set that
// replaces previous. When two records share a key the first one that
// parses wins.
func (r *Reconciler) Reconcile(previous []model.DeliveryEvent, records []model.RawOrderRecord, ref time.Time) Result {
	var res Result
	seen := make(map[model.EventKey]bool, len(records))

	for _, rec := range records {
		key := rec.Key()
		if seen[key] {
			r.logger.Debug("duplicate order record ignored", slog.String("key", key.String()))
			continue
		}

		window, err := r.parser.Parse(rec.RawDateText, ref)
		if err != nil {
			res.Failures = append(res.Failures, model.ParseFailure{
				Retailer: rec.Retailer,
				OrderID:  rec.OrderID,
				ItemName: rec.ItemName,
				RawText:  rec.RawDateText,
				Reason:   failureReason(err),
			})
			r.logger.Warn("unparseable delivery date",
				slog.String("retailer", string(rec.Retailer)),
				slog.String("order_id", rec.OrderID),
				slog.String("raw_text", rec.RawDateText))
			continue
		}

		seen[key] = true
		res.Events = append(res.Events, model.DeliveryEvent{
			Retailer:    rec.Retailer,
			OrderID:     rec.OrderID,
			ItemName:    rec.ItemName,
			Window:      window,
			OrderURL:    rec.OrderURL,
			RawDateText: rec.RawDateText,
		})
	}

	sort.Slice(res.Events, func(i, j int) bool {
		return res.Events[i].Key().Less(res.Events[j].Key())
	})
	res.count(previous)
	return res
}

// count fills the change counters by comparing against previous.
func (res *Result) count(previous []model.DeliveryEvent) {
	old := make(map[model.EventKey]model.DeliveryEvent, len(previous))
	for _, e := range previous {
		old[e.Key()] = e
	}
	for _, e := range res.Events {
		prev, ok := old[e.Key()]
		switch {
		case !ok:
			res.Added++
		case prev.Equal(e):
			res.Unchanged++
		default:
			res.Updated++
		}
		delete(old, e.Key())
	}
	res.Removed = len(old)
}

func failureReason(err error) string {
	var perr *datewindow.UnparseableDateError
	if errors.As(err, &perr) {
		return "unrecognized delivery text"
	}
	return err.Error()
}
