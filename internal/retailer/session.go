package retailer

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nao1215/deliverycal/internal/browser"
	"github.com/nao1215/deliverycal/internal/model"
)

// Session signs in to one retailer account and reads its orders.
type Session interface {
	// Retailer returns the retailer the session talks to.
	Retailer() model.Retailer

	// Authenticate runs the sign-in flow. Failures are *AuthenticationError,
	// or *ScrapeError when the sign-in page itself cannot be loaded.
	Authenticate(ctx context.Context) error

	// FetchOrders returns one record per pending item. Failures are
	// *ScrapeError.
	FetchOrders(ctx context.Context) ([]model.RawOrderRecord, error)
}

// Extractor reads order records from the document already loaded in the
// browser, without signing in or navigating. It serves saved page snapshots.
type Extractor interface {
	ExtractOrders(ctx context.Context) ([]model.RawOrderRecord, error)
}

const (
	// DefaultNavigationRetries is the number of retries after a failed page load.
	DefaultNavigationRetries = 2
	// DefaultStepTimeout bounds the wait for one page transition.
	DefaultStepTimeout = 30 * time.Second
	// DefaultPollInterval is how often awaited elements are looked up.
	DefaultPollInterval = 250 * time.Millisecond
)

// settings holds what every session shares.
type settings struct {
	logger        *slog.Logger
	retries       int
	retryInterval time.Duration
	stepTimeout   time.Duration
	pollInterval  time.Duration
	diagnostics   *Diagnostics
	codes         CodeSource
}

// Option configures a session.
type Option func(*settings)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithNavigationRetries sets how often a failed page load is retried.
func WithNavigationRetries(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithRetryInterval sets the first backoff interval between page loads.
func WithRetryInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.retryInterval = d
		}
	}
}

// WithStepTimeout bounds how long one page transition may take.
func WithStepTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.stepTimeout = d
		}
	}
}

// WithPollInterval sets how often awaited elements are looked up.
func WithPollInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithDiagnostics enables failure captures.
func WithDiagnostics(d *Diagnostics) Option {
	return func(s *settings) {
		s.diagnostics = d
	}
}

// WithCodeSource overrides the second-factor code source derived from the
// credentials.
func WithCodeSource(c CodeSource) Option {
	return func(s *settings) {
		s.codes = c
	}
}

// base implements the browser plumbing shared by the retailer sessions.
type base struct {
	settings
	retailer model.Retailer
	browser  browser.Browser
	creds    model.Credentials
	flow     *authFlow
}

func newBase(r model.Retailer, b browser.Browser, creds model.Credentials, opts []Option) base {
	s := settings{
		logger:        slog.Default(),
		retries:       DefaultNavigationRetries,
		retryInterval: 500 * time.Millisecond,
		stepTimeout:   DefaultStepTimeout,
		pollInterval:  DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.codes == nil && creds.HasSecondFactor() {
		if src, err := NewTOTPSource(creds.TOTPSecret); err == nil {
			s.codes = src
		}
	}
	s.logger = s.logger.With(slog.String("retailer", string(r)))
	return base{
		settings: s,
		retailer: r,
		browser:  b,
		creds:    creds,
		flow:     newAuthFlow(),
	}
}

// Retailer implements Session.
func (s *base) Retailer() model.Retailer {
	return s.retailer
}

// State returns the sign-in state.
func (s *base) State() AuthState {
	return s.flow.State()
}

// navigate loads target, retrying with exponential backoff.
func (s *base) navigate(ctx context.Context, target string) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(s.retries)), ctx) //nolint:gosec // retries is never negative

	op := func() error {
		err := s.browser.Navigate(ctx, target)
		if err != nil && (ctx.Err() != nil || errors.Is(err, browser.ErrClosed)) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Debug("retrying page load", slog.String("url", redactQuery(target)), slog.Duration("wait", wait), slog.Any("error", err))
	}
	return backoff.RetryNotify(op, policy, notify)
}

// waitFor polls until one of selectors matches and returns its index and
// element. Selectors are checked in order on every poll.
func (s *base) waitFor(ctx context.Context, selectors ...string) (int, browser.Element, error) {
	var found browser.Element
	idx, err := s.poll(ctx, func(ctx context.Context) (int, error) {
		for i, sel := range selectors {
			el, err := s.browser.Find(ctx, sel)
			if err == nil {
				found = el
				return i, nil
			}
			if !errors.Is(err, browser.ErrElementNotFound) {
				return -1, err
			}
		}
		return -1, nil
	})
	return idx, found, err
}

// poll calls check until it returns an index >= 0, an error, or the step
// timeout expires. Errors seen after the step context ended are treated as
// the timeout.
func (s *base) poll(ctx context.Context, check func(context.Context) (int, error)) (int, error) {
	stepCtx, cancel := context.WithTimeout(ctx, s.stepTimeout)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		idx, err := check(stepCtx)
		if err != nil && stepCtx.Err() == nil {
			return -1, err
		}
		if err == nil && idx >= 0 {
			return idx, nil
		}
		select {
		case <-stepCtx.Done():
			if err := ctx.Err(); err != nil {
				return -1, err
			}
			return -1, errStepTimeout
		case <-ticker.C:
		}
	}
}

// present reports whether any selector matches right now.
func (s *base) present(ctx context.Context, selectors ...string) bool {
	for _, sel := range selectors {
		if _, err := s.browser.Find(ctx, sel); err == nil {
			return true
		}
	}
	return false
}

// authFailure marks the flow failed and builds an AuthenticationError.
func (s *base) authFailure(reason AuthReason, err error) error {
	s.flow.fail()
	s.logger.Warn("sign-in failed", slog.String("reason", string(reason)))
	return &AuthenticationError{Retailer: s.retailer, Reason: reason, Err: err}
}

// authNavigationFailure reports a sign-in page that could not be loaded.
func (s *base) authNavigationFailure(ctx context.Context, err error) error {
	s.flow.fail()
	return s.scrapeFailure(ctx, ReasonNavigationFailed, err)
}

// scrapeFailure captures diagnostics and builds a ScrapeError.
func (s *base) scrapeFailure(ctx context.Context, reason ScrapeReason, err error) error {
	artifact, cerr := s.diagnostics.Capture(ctx, s.browser, s.retailer, string(reason), s.creds.Email, s.creds.Password, s.creds.TOTPSecret)
	if cerr != nil {
		s.logger.Warn("failed to capture diagnostics", slog.Any("error", cerr))
	}
	s.logger.Warn("scrape failed", slog.String("reason", string(reason)), slog.String("artifact", artifact), slog.Any("error", err))
	return &ScrapeError{Retailer: s.retailer, Reason: reason, Artifact: artifact, Err: err}
}

// scrapeReasonFor maps a browser error to a scrape reason.
func scrapeReasonFor(err error) ScrapeReason {
	if errors.Is(err, browser.ErrElementNotFound) || errors.Is(err, errStepTimeout) {
		return ReasonLayoutChanged
	}
	return ReasonNavigationFailed
}

// secondFactorCode returns a code computed now.
func (s *base) secondFactorCode() (string, error) {
	if s.codes == nil {
		return "", errors.New("no totp secret configured")
	}
	return s.codes.Code()
}

// textOf returns the trimmed text of the first match of selector under el,
// or "" when nothing matches.
func textOf(ctx context.Context, el browser.Element, selector string) string {
	found, err := el.Find(ctx, selector)
	if err != nil {
		return ""
	}
	text, err := found.Text(ctx)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// texts returns the distinct non-empty texts of every match of selector.
func texts(ctx context.Context, el browser.Element, selector string) []string {
	found, err := el.FindAll(ctx, selector)
	if err != nil {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, f := range found {
		t, err := f.Text(ctx)
		if err != nil {
			continue
		}
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// hrefOf returns the href of the first match of selector under el resolved
// against baseURL.
func hrefOf(ctx context.Context, el browser.Element, selector, baseURL string) string {
	found, err := el.Find(ctx, selector)
	if err != nil {
		return ""
	}
	href, ok, err := found.Attribute(ctx, "href")
	if err != nil || !ok || href == "" {
		return ""
	}
	return absolute(baseURL, href)
}

func absolute(baseURL, href string) string {
	b, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// redactQuery drops the query of u; sign-in URLs carry session handles.
func redactQuery(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	parsed.RawQuery = ""
	return parsed.String()
}

// containsAny reports whether s contains any of words.
func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
