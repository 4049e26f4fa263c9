// Package calendar serializes delivery events to an iCalendar document and
// replaces the calendar file atomically.
package calendar
