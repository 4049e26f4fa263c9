package model

import (
	"errors"
	"fmt"
	"time"
)

// Precision describes how exactly a delivery window is known.
type Precision string

const (
	// PrecisionExactDay is a single known calendar day.
	PrecisionExactDay Precision = "exact_day"
	// PrecisionDayRange spans several calendar days.
	PrecisionDayRange Precision = "day_range"
	// PrecisionToday is the reference day itself ("Arriving today").
	PrecisionToday Precision = "today"
	// PrecisionTimeWindow is a single day with a start and end time.
	PrecisionTimeWindow Precision = "time_window"
)

// Window validation errors.
var (
	// ErrWindowEndBeforeStart is returned when EndDate precedes StartDate.
	ErrWindowEndBeforeStart = errors.New("delivery window ends before it starts")
	// ErrWindowTimeMismatch is returned when only one of the times is set,
	// or when times are set without time_window precision.
	ErrWindowTimeMismatch = errors.New("delivery window times must be set together with time_window precision")
	// ErrWindowTimeOrder is returned when EndTime is not after StartTime.
	ErrWindowTimeOrder = errors.New("delivery window end time must be after start time")
	// ErrWindowMultiDayTimes is returned when a timed window spans several days.
	ErrWindowMultiDayTimes = errors.New("timed delivery window must start and end on the same day")
)

// Clock is a wall clock time of day.
type Clock struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// NewClock returns a Clock, rejecting out of range values.
func NewClock(hour, minute int) (Clock, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("invalid time of day %02d:%02d", hour, minute)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

// Minutes returns the number of minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// String formats the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// DeliveryWindow is the normalized delivery interval.
//
// StartDate and EndDate are calendar dates stored as midnight in the
// location the window was parsed in. StartTime and EndTime are only set
// for PrecisionTimeWindow.
type DeliveryWindow struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	StartTime *Clock    `json:"startTime,omitempty"`
	EndTime   *Clock    `json:"endTime,omitempty"`
	Precision Precision `json:"precision"`
}

// Validate checks the window invariants.
func (w DeliveryWindow) Validate() error {
	if w.EndDate.Before(w.StartDate) {
		return ErrWindowEndBeforeStart
	}
	timed := w.StartTime != nil || w.EndTime != nil
	if timed != (w.Precision == PrecisionTimeWindow) || (timed && (w.StartTime == nil || w.EndTime == nil)) {
		return ErrWindowTimeMismatch
	}
	if timed {
		if !SameDate(w.StartDate, w.EndDate) {
			return ErrWindowMultiDayTimes
		}
		if w.EndTime.Minutes() <= w.StartTime.Minutes() {
			return ErrWindowTimeOrder
		}
	}
	return nil
}

// AllDay reports whether the window has no time of day component.
func (w DeliveryWindow) AllDay() bool {
	return w.StartTime == nil
}

// Start returns the instant the window opens in loc.
// All-day windows open at midnight.
func (w DeliveryWindow) Start(loc *time.Location) time.Time {
	y, m, d := w.StartDate.Date()
	if w.StartTime == nil {
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
	return time.Date(y, m, d, w.StartTime.Hour, w.StartTime.Minute, 0, 0, loc)
}

// End returns the instant the window closes in loc. All-day windows close
// at midnight following EndDate, matching the exclusive end used by
// iCalendar date values.
func (w DeliveryWindow) End(loc *time.Location) time.Time {
	y, m, d := w.EndDate.Date()
	if w.EndTime == nil {
		return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	}
	return time.Date(y, m, d, w.EndTime.Hour, w.EndTime.Minute, 0, 0, loc)
}

// Equal reports whether two windows describe the same interval.
func (w DeliveryWindow) Equal(o DeliveryWindow) bool {
	if w.Precision != o.Precision || !SameDate(w.StartDate, o.StartDate) || !SameDate(w.EndDate, o.EndDate) {
		return false
	}
	return clockEqual(w.StartTime, o.StartTime) && clockEqual(w.EndTime, o.EndTime)
}

// String renders the window for logs and CLI output.
func (w DeliveryWindow) String() string {
	const layout = "2006-01-02"
	switch {
	case w.StartTime != nil && w.EndTime != nil:
		return fmt.Sprintf("%s %s-%s (%s)", w.StartDate.Format(layout), w.StartTime, w.EndTime, w.Precision)
	case SameDate(w.StartDate, w.EndDate):
		return fmt.Sprintf("%s (%s)", w.StartDate.Format(layout), w.Precision)
	default:
		return fmt.Sprintf("%s..%s (%s)", w.StartDate.Format(layout), w.EndDate.Format(layout), w.Precision)
	}
}

// SameDate reports whether a and b fall on the same calendar date,
// ignoring time of day and location.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func clockEqual(a, b *Clock) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
