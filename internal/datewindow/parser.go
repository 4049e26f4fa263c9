package datewindow

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/deliverycal/internal/model"
)

// DefaultGraceDays is how far before the reference date a year-less date
// may fall and still be kept in the reference year.
const DefaultGraceDays = 3

// Parser normalizes delivery text. A Parser is immutable and safe for
// concurrent use.
type Parser struct {
	graceDays int
}

// Option configures a Parser.
type Option func(*Parser)

// WithGraceDays sets the year rollover grace window. Negative values are
// treated as zero.
func WithGraceDays(days int) Option {
	return func(p *Parser) {
		if days < 0 {
			days = 0
		}
		p.graceDays = days
	}
}

// NewParser returns a Parser with the given options applied.
func NewParser(opts ...Option) *Parser {
	p := &Parser{graceDays: DefaultGraceDays}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GraceDays returns the configured rollover grace window.
func (p *Parser) GraceDays() int {
	return p.graceDays
}

// matcher tries one shape against normalized text.
type matcher func(s string, ref time.Time) (model.DeliveryWindow, bool)

// Parse converts raw delivery text into a window relative to ref.
// The returned error is always *UnparseableDateError.
func (p *Parser) Parse(raw string, ref time.Time) (model.DeliveryWindow, error) {
	s := normalize(raw)
	if s == "" || strings.HasPrefix(s, "delivered") {
		return model.DeliveryWindow{}, &UnparseableDateError{Text: raw}
	}

	ref = midnight(ref)
	for _, match := range []matcher{p.matchToday, p.matchSingleDay, p.matchRange, p.matchTimeWindow} {
		w, ok := match(s, ref)
		if !ok {
			continue
		}
		if err := w.Validate(); err != nil {
			return model.DeliveryWindow{}, &UnparseableDateError{Text: raw}
		}
		return w, nil
	}
	return model.DeliveryWindow{}, &UnparseableDateError{Text: raw}
}

func (p *Parser) matchToday(s string, ref time.Time) (model.DeliveryWindow, bool) {
	if s != "today" {
		return model.DeliveryWindow{}, false
	}
	return model.DeliveryWindow{StartDate: ref, EndDate: ref, Precision: model.PrecisionToday}, true
}

func (p *Parser) matchSingleDay(s string, ref time.Time) (model.DeliveryWindow, bool) {
	if s == "today" {
		return model.DeliveryWindow{}, false
	}
	d, ok := p.day(s, ref)
	if !ok {
		return model.DeliveryWindow{}, false
	}
	return model.DeliveryWindow{StartDate: d, EndDate: d, Precision: model.PrecisionExactDay}, true
}

var (
	withinDaysRe = regexp.MustCompile(`^within (\d{1,3}) (?:business |working )?days?$`)
	rangeSepRe   = regexp.MustCompile(` ?- ?| to | and | until `)
)

func (p *Parser) matchRange(s string, ref time.Time) (model.DeliveryWindow, bool) {
	if m := withinDaysRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n < 1 {
			return model.DeliveryWindow{}, false
		}
		return model.DeliveryWindow{StartDate: ref, EndDate: ref.AddDate(0, 0, n), Precision: model.PrecisionDayRange}, true
	}

	// Numeric dates contain hyphens too, so try every separator position
	// until both halves parse.
	for _, loc := range rangeSepRe.FindAllStringIndex(s, -1) {
		left, right := s[:loc[0]], s[loc[1]:]
		start, end, ok := p.rangeBounds(left, right, ref)
		if !ok {
			continue
		}
		if model.SameDate(start, end) {
			return model.DeliveryWindow{StartDate: start, EndDate: end, Precision: model.PrecisionExactDay}, true
		}
		return model.DeliveryWindow{StartDate: start, EndDate: end, Precision: model.PrecisionDayRange}, true
	}
	return model.DeliveryWindow{}, false
}

// rangeBounds resolves both ends of a range. A half without a month borrows
// it from the other half ("12-15 March", "March 12-15").
func (p *Parser) rangeBounds(left, right string, ref time.Time) (time.Time, time.Time, bool) {
	l, ok := parsePartial(left)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	r, ok := parsePartial(right)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	switch {
	case l.month == 0 && r.month == 0:
		return time.Time{}, time.Time{}, false
	case l.month == 0:
		l.month = r.month
	case r.month == 0:
		r.month = l.month
	}
	if l.year == 0 && r.year != 0 {
		l.year = r.year
		if l.month > r.month || (l.month == r.month && l.day > r.day) {
			l.year--
		}
	}

	start, ok := p.resolve(l, ref)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	var end time.Time
	if r.year != 0 {
		end, ok = makeDate(r.year, r.month, r.day, ref.Location())
	} else {
		end, ok = makeDate(start.Year(), r.month, r.day, ref.Location())
		if ok && end.Before(start) {
			end, ok = makeDate(start.Year()+1, r.month, r.day, ref.Location())
		}
	}
	if !ok || end.Before(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// timeWindowRe splits "<day> <time> - <time>". The day part is validated
// separately.
var timeWindowRe = regexp.MustCompile(
	`^(.+?)(?:,? (?:between|from) |, | )` + timePattern + ` ?(?:-|to|and|until) ?` + timePattern + `$`)

func (p *Parser) matchTimeWindow(s string, ref time.Time) (model.DeliveryWindow, bool) {
	m := timeWindowRe.FindStringSubmatch(s)
	if m == nil {
		return model.DeliveryWindow{}, false
	}
	start, end, ok := parseTimeRange(
		clockText{hour: m[2], minute: m[3], meridiem: m[4]},
		clockText{hour: m[5], minute: m[6], meridiem: m[7]},
	)
	if !ok {
		return model.DeliveryWindow{}, false
	}

	dayText := m[1]
	var d time.Time
	if dayText == "today" {
		d = ref
	} else if d, ok = p.day(dayText, ref); !ok {
		return model.DeliveryWindow{}, false
	}
	return model.DeliveryWindow{
		StartDate: d,
		EndDate:   d,
		StartTime: &start,
		EndTime:   &end,
		Precision: model.PrecisionTimeWindow,
	}, true
}

var (
	inDaysRe      = regexp.MustCompile(`^in (\d{1,3}) (?:business |working )?days?$`)
	bareWeekdayRe = regexp.MustCompile(`^(?:this |next )?` + weekdayPattern + `$`)
)

// day resolves a single-day expression other than "today".
func (p *Parser) day(s string, ref time.Time) (time.Time, bool) {
	switch s {
	case "tomorrow":
		return ref.AddDate(0, 0, 1), true
	case "day after tomorrow":
		return ref.AddDate(0, 0, 2), true
	}
	if m := inDaysRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return ref.AddDate(0, 0, n), true
	}
	if m := bareWeekdayRe.FindStringSubmatch(s); m != nil {
		return nextWeekday(ref, weekdays[m[1][:3]]), true
	}

	pd, ok := parsePartial(s)
	if !ok || pd.month == 0 {
		return time.Time{}, false
	}
	return p.resolve(pd, ref)
}

// resolve turns a partial date into a calendar date, applying the year
// rollover rule when no year was given.
func (p *Parser) resolve(pd partialDate, ref time.Time) (time.Time, bool) {
	if pd.year != 0 {
		return makeDate(pd.year, pd.month, pd.day, ref.Location())
	}
	d, ok := makeDate(ref.Year(), pd.month, pd.day, ref.Location())
	if !ok {
		return time.Time{}, false
	}
	if d.Before(ref.AddDate(0, 0, -p.graceDays)) {
		return makeDate(ref.Year()+1, pd.month, pd.day, ref.Location())
	}
	return d, true
}

// nextWeekday returns the next date after ref falling on wd. A weekday
// equal to ref's means one week later.
func nextWeekday(ref time.Time, wd time.Weekday) time.Time {
	diff := (int(wd) - int(ref.Weekday()) + 7) % 7
	if diff == 0 {
		diff = 7
	}
	return ref.AddDate(0, 0, diff)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// makeDate builds a date and rejects values time.Date would normalize,
// such as 30 February.
func makeDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
