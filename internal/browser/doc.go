// Package browser abstracts the page automation that retailer sessions need:
// navigate, locate elements by CSS selector, read text and attributes,
// click, type, and capture screenshots and DOM snapshots.
//
// Two implementations are provided. RodLauncher drives a real Chromium over
// the DevTools protocol with go-rod. StaticLauncher serves fixed HTML
// documents parsed with golang.org/x/net/html and queried with cascadia; it
// backs the tests and the offline replay of saved DOM snapshots.
//
// Find never waits: it reports ErrElementNotFound when the element is not
// in the current document. Callers that expect a page transition poll.
package browser
