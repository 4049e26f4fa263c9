// Package database provides SQLite-based storage for the current event set.
//
// EventDB keeps exactly the events of the last completed run so the next
// run can report what was added, updated or removed. Nothing older is
// kept; every run replaces the whole set inside one transaction.
//
// SQLite is used through modernc.org/sqlite, a CGO-free driver, so the
// database is a single file next to the calendar.
package database
