package model

import "time"

// OutcomeStatus is the result of one retailer in one run.
type OutcomeStatus string

const (
	// OutcomeSuccess means the retailer was scraped.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeFailure means authentication or scraping failed.
	OutcomeFailure OutcomeStatus = "failure"
)

// FailureKind distinguishes where a retailer failed.
type FailureKind string

const (
	// FailureAuthentication is a failed sign-in.
	FailureAuthentication FailureKind = "authentication"
	// FailureScrape is a failure after or during page navigation.
	FailureScrape FailureKind = "scrape"
)

// RetailerOutcome is one entry of a run summary.
type RetailerOutcome struct {
	Retailer    Retailer      `json:"retailer"`
	Status      OutcomeStatus `json:"status"`
	RecordCount int           `json:"recordCount"`
	Kind        FailureKind   `json:"kind,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	Message     string        `json:"message,omitempty"`
	Artifact    string        `json:"artifact,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Succeeded reports whether the retailer was scraped successfully.
func (o RetailerOutcome) Succeeded() bool {
	return o.Status == OutcomeSuccess
}

// RunSummary describes one orchestrated run. It is logged and reported,
// never persisted.
type RunSummary struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	// Outcomes holds one entry per attempted retailer, in run order.
	Outcomes []RetailerOutcome `json:"outcomes"`

	// EventCount is the size of the reconciled event set.
	EventCount int `json:"eventCount"`
	Added      int `json:"added"`
	Updated    int `json:"updated"`
	Removed    int `json:"removed"`
	Unchanged  int `json:"unchanged"`

	// ParseFailures lists records excluded because their delivery text
	// could not be normalized.
	ParseFailures []ParseFailure `json:"parseFailures,omitempty"`

	CalendarPath    string `json:"calendarPath,omitempty"`
	CalendarWritten bool   `json:"calendarWritten"`

	// Error is set when the run could not reconcile or write its output.
	Error string `json:"error,omitempty"`
}

// Duration returns how long the run took.
func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// FailedRetailers returns the number of failed outcomes.
func (s *RunSummary) FailedRetailers() int {
	n := 0
	for _, o := range s.Outcomes {
		if !o.Succeeded() {
			n++
		}
	}
	return n
}

// RecordCount returns the number of records fetched across all retailers.
func (s *RunSummary) RecordCount() int {
	n := 0
	for _, o := range s.Outcomes {
		n += o.RecordCount
	}
	return n
}
