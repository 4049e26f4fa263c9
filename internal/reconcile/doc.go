// Package reconcile turns the raw order records of one run into the
// current set of delivery events.
//
// The reconciled set wholly replaces the previous one: events are keyed by
// retailer, order id and item name; records whose delivery text cannot be
// parsed are reported and left out; events that no longer appear are
// dropped.
package reconcile
