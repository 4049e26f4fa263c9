// Package model defines the data structures shared across deliverycal.
//
// The main types are:
//   - RawOrderRecord: one item of one order as scraped from a retailer page
//   - DeliveryWindow: the normalized calendar interval of a delivery
//   - DeliveryEvent: a reconciled, calendar-ready delivery
//   - Credentials: retailer login material, never rendered in clear text
//   - RunSummary: the per-run outcome reported to the operator
//
// Types in this package carry no behavior beyond validation and formatting,
// so every other package can depend on them without import cycles.
package model
