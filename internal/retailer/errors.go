package retailer

import (
	"errors"
	"fmt"

	"github.com/nao1215/deliverycal/internal/model"
)

// AuthReason classifies an authentication failure.
type AuthReason string

const (
	// ReasonInvalidCredentials means the retailer rejected the email or password.
	ReasonInvalidCredentials AuthReason = "invalid_credentials"
	// ReasonSecondFactorRequired means a code was requested but no TOTP secret is configured.
	ReasonSecondFactorRequired AuthReason = "second_factor_required"
	// ReasonSecondFactorInvalid means the retailer rejected the submitted code.
	ReasonSecondFactorInvalid AuthReason = "second_factor_invalid"
	// ReasonUnexpectedPage means the sign-in flow reached a page it does not know.
	ReasonUnexpectedPage AuthReason = "unexpected_page"
)

// ScrapeReason classifies a failure while reading order pages.
type ScrapeReason string

const (
	// ReasonNavigationFailed means a page could not be loaded.
	ReasonNavigationFailed ScrapeReason = "navigation_failed"
	// ReasonLayoutChanged means an expected element was missing.
	ReasonLayoutChanged ScrapeReason = "layout_changed"
	// ReasonSessionExpired means the retailer sent the browser back to sign-in.
	ReasonSessionExpired ScrapeReason = "session_expired"
)

// AuthenticationError is returned by Session.Authenticate.
type AuthenticationError struct {
	Retailer model.Retailer
	Reason   AuthReason
	Err      error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s authentication failed (%s): %v", e.Retailer, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s authentication failed (%s)", e.Retailer, e.Reason)
}

// Unwrap returns the underlying error.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// ScrapeError is returned when order pages cannot be read.
type ScrapeError struct {
	Retailer model.Retailer
	Reason   ScrapeReason
	// Artifact is the screenshot captured at the time of failure, if any.
	Artifact string
	Err      error
}

// Error implements the error interface.
func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s scrape failed (%s): %v", e.Retailer, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s scrape failed (%s)", e.Retailer, e.Reason)
}

// Unwrap returns the underlying error.
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// errStepTimeout is returned when none of the awaited elements appeared
// within the step timeout while the session context was still alive.
var errStepTimeout = errors.New("timed out waiting for page elements")

// errNotAuthenticated is returned by FetchOrders before a successful
// Authenticate.
var errNotAuthenticated = errors.New("session is not authenticated")
