// Package pipeline runs the retailers of one pass in sequence and turns their
// records into the published calendar.
//
// A run launches one browser per retailer, signs in, reads the pending
// orders and closes the browser before the next retailer starts. A failing
// retailer is recorded in the run summary and never stops the others. When
// every retailer has been tried, the records are reconciled against the
// previous event set, the calendar file is replaced atomically and the new
// set is stored.
//
// Scheduler repeats runs at a fixed interval until its context is cancelled.
package pipeline
