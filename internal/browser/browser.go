package browser

import (
	"context"
	"errors"
	"fmt"
)

// ErrElementNotFound is returned by Find when no element matches.
var ErrElementNotFound = errors.New("element not found")

// ErrClosed is returned when a closed browser is used.
var ErrClosed = errors.New("browser is closed")

// ErrInvalidSelector is returned for selectors the static engine cannot parse.
var ErrInvalidSelector = errors.New("invalid selector")

// AutomationError wraps a failure of the underlying automation engine.
type AutomationError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *AutomationError) Error() string {
	return fmt.Sprintf("browser %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *AutomationError) Unwrap() error {
	return e.Err
}

// Browser is one automated browser tab.
type Browser interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// Find returns the first element matching selector in the current
	// document, or ErrElementNotFound.
	Find(ctx context.Context, selector string) (Element, error)

	// FindAll returns every element matching selector in document order.
	FindAll(ctx context.Context, selector string) ([]Element, error)

	// Title returns the document title.
	Title(ctx context.Context) (string, error)

	// URL returns the current document URL.
	URL(ctx context.Context) (string, error)

	// HTML returns the serialized current DOM.
	HTML(ctx context.Context) (string, error)

	// Screenshot returns a PNG of the viewport.
	Screenshot(ctx context.Context) ([]byte, error)

	// Close releases the tab and any process behind it. Close is idempotent.
	Close() error
}

// Element is a DOM element of the current document.
type Element interface {
	// Text returns the rendered text with whitespace collapsed.
	Text(ctx context.Context) (string, error)

	// Attribute returns the attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)

	// Click clicks the element.
	Click(ctx context.Context) error

	// Input replaces the element's value with text.
	Input(ctx context.Context, text string) error

	// Find returns the first descendant matching selector.
	Find(ctx context.Context, selector string) (Element, error)

	// FindAll returns all descendants matching selector.
	FindAll(ctx context.Context, selector string) ([]Element, error)
}

// Launcher opens browsers. Each Launch returns an independent browser that
// the caller must Close.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}
