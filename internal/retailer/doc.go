// Package retailer signs in to retailer websites and extracts raw order
// records from their order pages.
//
// A Session drives one browser tab through a retailer's sign-in flow,
// including an optional time-based second factor, and then walks the order
// history pages. Sessions never interpret delivery text; they return the
// text exactly as the page shows it and leave normalization to the
// datewindow package.
//
// Failures are reported as *AuthenticationError or *ScrapeError so the
// caller can tell a rejected sign-in from a changed page layout. When a
// Diagnostics directory is configured, a scrape failure leaves a screenshot
// and a DOM snapshot behind.
package retailer
