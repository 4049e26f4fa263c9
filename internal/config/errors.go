package config

import "errors"

// Validation errors returned by Config.Validate.
var (
	// ErrInvalidInterval is returned when the run interval is not positive.
	ErrInvalidInterval = errors.New("invalid interval: must be a positive number of hours")

	// ErrEmptyOutputPath is returned when no calendar output path is set.
	ErrEmptyOutputPath = errors.New("invalid output: calendar path must not be empty")

	// ErrInvalidSessionTimeout is returned when the session timeout is not positive.
	ErrInvalidSessionTimeout = errors.New("invalid session timeout: must be positive")

	// ErrInvalidGraceDays is returned when the grace window is negative.
	ErrInvalidGraceDays = errors.New("invalid grace days: must be non-negative")

	// ErrInvalidNavigationRetries is returned when the retry count is negative.
	ErrInvalidNavigationRetries = errors.New("invalid navigation retries: must be non-negative")

	// ErrInvalidTimezone is returned when the time zone cannot be loaded.
	ErrInvalidTimezone = errors.New("invalid timezone: use an IANA name such as Asia/Kolkata, or Local")

	// ErrInvalidReportFormat is returned for an unknown report format.
	ErrInvalidReportFormat = errors.New("invalid report format: must be text, json or markdown")

	// ErrInvalidMaxPages is returned when the Amazon page limit is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrNoRetailers is returned when no retailer has complete credentials.
	ErrNoRetailers = errors.New("no retailer configured: set credentials in the config file or environment")
)
