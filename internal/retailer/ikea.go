package retailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/nao1215/deliverycal/internal/browser"
	"github.com/nao1215/deliverycal/internal/model"
)

const (
	// DefaultIKEABaseURL is the storefront used when none is configured.
	DefaultIKEABaseURL = "https://www.ikea.com"
	// DefaultIKEALocale is the country/language path segment.
	DefaultIKEALocale = "in/en"
)

// IKEA page selectors.
const (
	ikeaLoginButton = "[data-testid='login-button'], button.profile-login-button"
	ikeaEmail       = "input[type='email'], input[name='email'], #email"
	ikeaPassword    = "input[type='password'], input[name='password'], #password"
	ikeaSubmit      = "button[type='submit'], input[type='submit'], [data-testid='login-submit']"
	ikeaAuthError   = "[data-testid='login-error'], .form-field__message--error, [role='alert']"
	ikeaOTP         = "input[autocomplete='one-time-code'], input[name='otp'], input[name='verificationCode']"
	ikeaSignedIn    = "[data-testid='profile'], [data-testid='logout-button'], a[href*='/purchases']"
	ikeaEmpty       = "[data-testid='no-purchases'], .purchases-empty, .empty-state"
	ikeaProduct     = "[data-testid='product-name'], .product-name, .item-name"
	ikeaDelivery    = "[data-testid='delivery-date'], .delivery-date, .delivery-info, .order-status"
	ikeaOrderLink   = "a[href*='purchases/'], a[href*='order']"
	ikeaTextBlocks  = "p, span, li, dd, time, h2, h3, h4"
	ikeaLinks       = "a"
	ikeaHeadings    = "h1, h2, h3, h4, h5, h6"
)

// ikeaOrderSelectors are tried in order; the first one with matches
// identifies the order containers.
var ikeaOrderSelectors = []string{
	".order-card",
	".purchase-item",
	".order-item",
	"[data-testid*='order']",
	".order",
	".purchase",
	"article",
	".card",
}

var ikeaOrderIDRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)order\s*number\s*[#:]?\s*([a-z0-9]*\d+[a-z0-9]*)`),
	regexp.MustCompile(`(?i)order\s*[#:]?\s*([a-z0-9]*\d+[a-z0-9]*)`),
	regexp.MustCompile(`(?i)purchase\s*[#:]?\s*([a-z0-9]*\d+[a-z0-9]*)`),
	regexp.MustCompile(`#([a-zA-Z0-9]{6,})`),
	regexp.MustCompile(`(\d{8,})`),
}

// ikeaDeliveryRes find the delivery phrase inside a block of text, most
// specific first. A phrase ends at a sentence break, so dotted dates such
// as 15.12.2024 stay whole.
var ikeaDeliveryRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)expected delivery(?:[^.]|\.\S)*`),
	regexp.MustCompile(`(?i)estimated delivery(?:[^.]|\.\S)*`),
	regexp.MustCompile(`(?i)expected arrival(?:[^.]|\.\S)*`),
	regexp.MustCompile(`(?i)estimated arrival(?:[^.]|\.\S)*`),
	regexp.MustCompile(`(?i)delivery(?:[^.]|\.\S)*`),
	regexp.MustCompile(`(?i)arriving(?:[^.]|\.\S)*`),
	regexp.MustCompile(`(?i)shipped(?:[^.]|\.\S)*`),
	regexp.MustCompile(`(?i)delivered(?:[^.]|\.\S)*`),
	regexp.MustCompile(`(?i)expected(?:[^.]|\.\S)*`),
	regexp.MustCompile(`(?i)estimated(?:[^.]|\.\S)*`),
}

// ikeaBareDateRes find a date without a delivery phrase.
var ikeaBareDateRes = []*regexp.Regexp{
	regexp.MustCompile(`\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}`),
	regexp.MustCompile(`(?i)\d{1,2}\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d{2,4}`),
	regexp.MustCompile(`(?i)(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d{1,2},?\s+\d{2,4}`),
}

var ikeaTitleSkipWords = []string{"order", "details", "view", "track", "more"}

// IKEAOptions configures an IKEASession.
type IKEAOptions struct {
	BaseURL string
	Locale  string
}

// IKEASession reads pending deliveries from IKEA's purchase history.
type IKEASession struct {
	base
	opts IKEAOptions
}

var (
	_ Session   = (*IKEASession)(nil)
	_ Extractor = (*IKEASession)(nil)
)

// NewIKEASession returns a session driving b.
func NewIKEASession(b browser.Browser, creds model.Credentials, opts IKEAOptions, options ...Option) *IKEASession {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultIKEABaseURL
	}
	if opts.Locale == "" {
		opts.Locale = DefaultIKEALocale
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	opts.Locale = strings.Trim(opts.Locale, "/")
	return &IKEASession{
		base: newBase(model.RetailerIKEA, b, creds, options),
		opts: opts,
	}
}

// LoginURL returns the profile login page.
func (s *IKEASession) LoginURL() string {
	return fmt.Sprintf("%s/%s/profile/login/", s.opts.BaseURL, s.opts.Locale)
}

// PurchasesURL returns the purchase history page.
func (s *IKEASession) PurchasesURL() string {
	return fmt.Sprintf("%s/%s/purchases/", s.opts.BaseURL, s.opts.Locale)
}

// Authenticate implements Session.
func (s *IKEASession) Authenticate(ctx context.Context) error {
	s.logger.Info("signing in")
	if err := s.navigate(ctx, s.LoginURL()); err != nil {
		return s.authNavigationFailure(ctx, err)
	}

	idx, el, err := s.waitFor(ctx, ikeaEmail, ikeaLoginButton)
	if err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}
	if idx == 1 {
		if err := el.Click(ctx); err != nil {
			return s.authFailure(ReasonUnexpectedPage, err)
		}
		if _, el, err = s.waitFor(ctx, ikeaEmail); err != nil {
			return s.authFailure(ReasonUnexpectedPage, err)
		}
	}
	if err := el.Input(ctx, s.creds.Email); err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}

	// Some locales ask for the password on a second step.
	password, err := s.browser.Find(ctx, ikeaPassword)
	if errors.Is(err, browser.ErrElementNotFound) {
		if err := s.click(ctx, ikeaSubmit); err != nil {
			return s.authFailure(ReasonUnexpectedPage, err)
		}
		idx, password, err = s.waitFor(ctx, ikeaAuthError, ikeaPassword)
		if err == nil && idx == 0 {
			return s.authFailure(ReasonInvalidCredentials, errors.New("account was not recognized"))
		}
	}
	if err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}
	if err := password.Input(ctx, s.creds.Password); err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}
	if err := s.click(ctx, ikeaSubmit); err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}
	if err := s.flow.advance(StateCredentialsSubmitted); err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}

	idx, err = s.poll(ctx, s.signInOutcome(ikeaAuthError, ikeaOTP))
	if err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}
	switch idx {
	case 0:
		return s.authFailure(ReasonInvalidCredentials, errors.New("password was rejected"))
	case 1:
		if err := s.submitSecondFactor(ctx); err != nil {
			return err
		}
	}

	if err := s.flow.advance(StateAuthenticated); err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}
	s.logger.Info("signed in")
	return nil
}

func (s *IKEASession) submitSecondFactor(ctx context.Context) error {
	if err := s.flow.advance(StateSecondFactorPrompted); err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}
	s.logger.Info("second factor requested")
	field, err := s.browser.Find(ctx, ikeaOTP)
	if err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}
	code, err := s.secondFactorCode()
	if err != nil {
		return s.authFailure(ReasonSecondFactorRequired, err)
	}
	if err := field.Input(ctx, code); err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}
	if err := s.click(ctx, ikeaSubmit); err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}
	if err := s.flow.advance(StateSecondFactorSubmitted); err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}

	idx, err := s.poll(ctx, s.signInOutcome(ikeaAuthError))
	if err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}
	if idx == 0 {
		return s.authFailure(ReasonSecondFactorInvalid, errors.New("code was rejected"))
	}
	return nil
}

// signInOutcome returns a poll check matching selectors in order, then a
// signed-in page. The signed-in page gets the index after the selectors.
func (s *IKEASession) signInOutcome(selectors ...string) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		for i, sel := range selectors {
			if _, err := s.browser.Find(ctx, sel); err == nil {
				return i, nil
			} else if !errors.Is(err, browser.ErrElementNotFound) {
				return -1, err
			}
		}
		current, err := s.browser.URL(ctx)
		if err != nil {
			return -1, err
		}
		lower := strings.ToLower(current)
		if !strings.Contains(lower, "/login") && containsAny(lower, "/profile", "/purchases", "/account") {
			return len(selectors), nil
		}
		if s.present(ctx, ikeaSignedIn) && !s.present(ctx, ikeaPassword) {
			return len(selectors), nil
		}
		return -1, nil
	}
}

func (s *IKEASession) click(ctx context.Context, selector string) error {
	el, err := s.browser.Find(ctx, selector)
	if err != nil {
		return fmt.Errorf("failed to find %s: %w", selector, err)
	}
	return el.Click(ctx)
}

// FetchOrders implements Session.
func (s *IKEASession) FetchOrders(ctx context.Context) ([]model.RawOrderRecord, error) {
	if s.State() != StateAuthenticated {
		return nil, &ScrapeError{Retailer: s.retailer, Reason: ReasonSessionExpired, Err: errNotAuthenticated}
	}
	if err := s.navigate(ctx, s.PurchasesURL()); err != nil {
		return nil, s.scrapeFailure(ctx, ReasonNavigationFailed, err)
	}

	markers := append(append([]string{}, ikeaOrderSelectors...), ikeaEmpty, ikeaPassword, ikeaLoginButton)
	idx, _, err := s.waitFor(ctx, markers...)
	if err != nil {
		return nil, s.scrapeFailure(ctx, scrapeReasonFor(err), err)
	}
	switch {
	case idx > len(ikeaOrderSelectors):
		return nil, s.scrapeFailure(ctx, ReasonSessionExpired, errors.New("redirected to sign-in"))
	case idx == len(ikeaOrderSelectors):
		s.logger.Info("no purchases found")
		return nil, nil
	}

	records, err := s.parsePage(ctx)
	if err != nil {
		return nil, s.scrapeFailure(ctx, scrapeReasonFor(err), err)
	}
	s.logger.Info("fetched orders", slog.Int("records", len(records)))
	return records, nil
}

// ExtractOrders implements Extractor for a purchases page.
func (s *IKEASession) ExtractOrders(ctx context.Context) ([]model.RawOrderRecord, error) {
	return s.parsePage(ctx)
}

func (s *IKEASession) parsePage(ctx context.Context) ([]model.RawOrderRecord, error) {
	var cards []browser.Element
	for _, sel := range ikeaOrderSelectors {
		found, err := s.browser.FindAll(ctx, sel)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			s.logger.Debug("found order containers", slog.String("selector", sel), slog.Int("count", len(found)))
			cards = found
			break
		}
	}

	var records []model.RawOrderRecord
	for _, card := range cards {
		records = append(records, s.parseCard(ctx, card)...)
	}
	return records, nil
}

func (s *IKEASession) parseCard(ctx context.Context, card browser.Element) []model.RawOrderRecord {
	text, err := card.Text(ctx)
	if err != nil || len(strings.TrimSpace(text)) < 20 {
		return nil
	}

	status := ikeaDeliveryText(ctx, card)
	if status == "" {
		return nil
	}
	if ikeaFinished(status) {
		s.logger.Debug("skipping finished order", slog.String("status", status))
		return nil
	}

	orderID := ikeaOrderIDOf(text)
	if orderID == "" {
		s.logger.Warn("skipping order without an order id", slog.String("status", status))
		return nil
	}

	items := texts(ctx, card, ikeaProduct)
	if len(items) == 0 {
		items = []string{ikeaTitleOf(ctx, card)}
	}
	link := hrefOf(ctx, card, ikeaOrderLink, s.opts.BaseURL)

	records := make([]model.RawOrderRecord, 0, len(items))
	for _, item := range items {
		records = append(records, model.RawOrderRecord{
			Retailer:    model.RetailerIKEA,
			OrderID:     orderID,
			ItemName:    item,
			RawDateText: status,
			OrderURL:    link,
		})
	}
	return records
}

// ikeaDeliveryText returns the delivery phrase of an order container.
func ikeaDeliveryText(ctx context.Context, card browser.Element) string {
	if t := textOf(ctx, card, ikeaDelivery); t != "" {
		return t
	}
	blocks := texts(ctx, card, ikeaTextBlocks)
	for _, re := range ikeaDeliveryRes {
		for _, b := range blocks {
			if m := matchDelivery(re, b); m != "" {
				return m
			}
		}
	}
	for _, re := range ikeaBareDateRes {
		for _, b := range blocks {
			if m := re.FindString(b); m != "" {
				return "Expected " + m
			}
		}
	}
	return ""
}

// matchDelivery returns the first match of re in s that is not a section
// heading such as "Delivery details".
func matchDelivery(re *regexp.Regexp, s string) string {
	for _, loc := range re.FindAllStringIndex(s, -1) {
		m := strings.TrimSpace(s[loc[0]:loc[1]])
		lower := strings.ToLower(m)
		if strings.HasPrefix(lower, "delivery info") || strings.HasPrefix(lower, "delivery details") {
			continue
		}
		return m
	}
	return ""
}

func ikeaFinished(status string) bool {
	lower := strings.ToLower(status)
	if strings.HasPrefix(lower, "delivered") {
		return true
	}
	if strings.Contains(lower, "delivered") && !strings.Contains(lower, "will be delivered") {
		return true
	}
	return containsAny(lower, "cancelled", "canceled", "refunded")
}

func ikeaOrderIDOf(text string) string {
	for _, re := range ikeaOrderIDRes {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

// ikeaTitleOf picks a product title from links and headings, or "".
func ikeaTitleOf(ctx context.Context, card browser.Element) string {
	for _, t := range texts(ctx, card, ikeaLinks) {
		if len(t) > 5 && !containsAny(strings.ToLower(t), ikeaTitleSkipWords...) {
			return t
		}
	}
	for _, t := range texts(ctx, card, ikeaHeadings) {
		if len(t) > 5 && !containsAny(strings.ToLower(t), ikeaTitleSkipWords...) {
			return t
		}
	}
	return ""
}
