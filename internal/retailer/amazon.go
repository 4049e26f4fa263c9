package retailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/nao1215/deliverycal/internal/browser"
	"github.com/nao1215/deliverycal/internal/model"
)

const (
	// DefaultAmazonBaseURL is the storefront used when none is configured.
	DefaultAmazonBaseURL = "https://www.amazon.in"
	// DefaultAmazonMaxPages limits how many order history pages are read.
	DefaultAmazonMaxPages = 3
)

// Amazon page selectors.
const (
	amazonEmail        = "#ap_email"
	amazonContinue     = "#continue"
	amazonPassword     = "#ap_password"
	amazonSignInSubmit = "#signInSubmit"
	amazonAuthError    = "#auth-error-message-box"
	amazonOTP          = "#auth-mfa-otpcode"
	amazonOTPSubmit    = "#auth-signin-button"
	amazonCaptcha      = "#auth-captcha-image, form[action*='validateCaptcha']"
	amazonOrders       = "#ordersContainer, .your-orders-content-container"
	amazonSignedIn     = "#nav-link-accountList, #nav-orders"
	amazonCard         = ".order-card, div.a-box-group.a-spacing-base"
	amazonStatus       = "span.a-text-bold"
	amazonOrderID      = ".yohtmlc-order-id span[dir='ltr'], .yohtmlc-order-id bdi"
	amazonDetailsLink  = "a[href*='order-details']"
	amazonProduct      = ".yohtmlc-product-title"
	amazonProductLink  = "a.a-link-normal[href*='/dp/'], a.a-link-normal[href*='/gp/product/']"
	amazonNext         = "ul.a-pagination li.a-last a"
	amazonLastDisabled = "ul.a-pagination li.a-last.a-disabled"
)

var (
	amazonOrderIDRe = regexp.MustCompile(`\d{3}-\d{7}-\d{7}`)

	// amazonStatusWords mark the bold span that carries the delivery text.
	amazonStatusWords = []string{"arriving", "arrives", "expected", "delivered", "delivery", "today", "tomorrow", "dispatched", "shipped"}

	// amazonSkipWords mark orders with nothing left to deliver.
	amazonSkipWords = []string{"delivered", "cancelled", "canceled", "refunded", "returned", "return complete"}
)

// AmazonOptions configures an AmazonSession.
type AmazonOptions struct {
	BaseURL  string
	MaxPages int
}

// AmazonSession reads pending deliveries from Amazon's order history.
type AmazonSession struct {
	base
	opts AmazonOptions
}

var (
	_ Session   = (*AmazonSession)(nil)
	_ Extractor = (*AmazonSession)(nil)
)

// NewAmazonSession returns a session driving b.
func NewAmazonSession(b browser.Browser, creds model.Credentials, opts AmazonOptions, options ...Option) *AmazonSession {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultAmazonBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultAmazonMaxPages
	}
	return &AmazonSession{
		base: newBase(model.RetailerAmazon, b, creds, options),
		opts: opts,
	}
}

// OrdersURL returns the order history page.
func (s *AmazonSession) OrdersURL() string {
	return s.opts.BaseURL + "/your-orders/orders"
}

// SignInURL returns the sign-in page that returns to the order history.
// The association handle carries the storefront's top-level domain.
func (s *AmazonSession) SignInURL() string {
	tld := "in"
	if u, err := url.Parse(s.opts.BaseURL); err == nil {
		host := u.Hostname()
		tld = host[strings.LastIndex(host, ".")+1:]
	}
	q := url.Values{}
	q.Set("openid.pape.max_auth_age", "0")
	q.Set("openid.return_to", s.OrdersURL())
	q.Set("openid.identity", "http://specs.openid.net/auth/2.0/identifier_select")
	q.Set("openid.assoc_handle", "amzn_retail_yourorders_"+tld)
	q.Set("openid.mode", "checkid_setup")
	q.Set("openid.claimed_id", "http://specs.openid.net/auth/2.0/identifier_select")
	q.Set("openid.ns", "http://specs.openid.net/auth/2.0")
	return s.opts.BaseURL + "/ap/signin?" + q.Encode()
}

// Authenticate implements Session.
func (s *AmazonSession) Authenticate(ctx context.Context) error {
	s.logger.Info("signing in")
	if err := s.navigate(ctx, s.SignInURL()); err != nil {
		return s.authNavigationFailure(ctx, err)
	}

	// A remembered account skips straight to the password page.
	idx, el, err := s.waitFor(ctx, amazonEmail, amazonPassword)
	if err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}
	if idx == 0 {
		if err := el.Input(ctx, s.creds.Email); err != nil {
			return s.authFailure(ReasonUnexpectedPage, err)
		}
		if err := s.click(ctx, amazonContinue); err != nil {
			return s.authFailure(ReasonUnexpectedPage, err)
		}
		idx, el, err = s.waitFor(ctx, amazonAuthError, amazonPassword)
		if err != nil {
			return s.authFailure(ReasonUnexpectedPage, err)
		}
		if idx == 0 {
			return s.authFailure(ReasonInvalidCredentials, errors.New("account was not recognized"))
		}
	}

	if err := el.Input(ctx, s.creds.Password); err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}
	if err := s.click(ctx, amazonSignInSubmit); err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}
	if err := s.flow.advance(StateCredentialsSubmitted); err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}

	idx, _, err = s.waitFor(ctx, amazonAuthError, amazonCaptcha, amazonOTP, amazonOrders, amazonSignedIn)
	if err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}
	switch idx {
	case 0:
		return s.authFailure(ReasonInvalidCredentials, errors.New("password was rejected"))
	case 1:
		return s.authFailure(ReasonUnexpectedPage, errors.New("captcha challenge"))
	case 2:
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

func (s *AmazonSession) submitSecondFactor(ctx context.Context) error {
	if err := s.flow.advance(StateSecondFactorPrompted); err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}
	s.logger.Info("second factor requested")
	field, err := s.browser.Find(ctx, amazonOTP)
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
	if err := s.click(ctx, amazonOTPSubmit); err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}
	if err := s.flow.advance(StateSecondFactorSubmitted); err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}

	idx, _, err := s.waitFor(ctx, amazonAuthError, amazonOrders, amazonSignedIn)
	if err != nil {
		return s.authFailure(ReasonUnexpectedPage, err)
	}
	if idx == 0 {
		return s.authFailure(ReasonSecondFactorInvalid, errors.New("code was rejected"))
	}
	return nil
}

func (s *AmazonSession) click(ctx context.Context, selector string) error {
	el, err := s.browser.Find(ctx, selector)
	if err != nil {
		return fmt.Errorf("failed to find %s: %w", selector, err)
	}
	return el.Click(ctx)
}

// FetchOrders implements Session.
func (s *AmazonSession) FetchOrders(ctx context.Context) ([]model.RawOrderRecord, error) {
	if s.State() != StateAuthenticated {
		return nil, &ScrapeError{Retailer: s.retailer, Reason: ReasonSessionExpired, Err: errNotAuthenticated}
	}
	if err := s.navigate(ctx, s.OrdersURL()); err != nil {
		return nil, s.scrapeFailure(ctx, ReasonNavigationFailed, err)
	}

	var records []model.RawOrderRecord
	for page := 1; ; page++ {
		idx, _, err := s.waitFor(ctx, amazonOrders, amazonEmail, amazonPassword)
		if err != nil {
			return nil, s.scrapeFailure(ctx, scrapeReasonFor(err), err)
		}
		if idx > 0 {
			return nil, s.scrapeFailure(ctx, ReasonSessionExpired, errors.New("redirected to sign-in"))
		}

		found, err := s.parsePage(ctx)
		if err != nil {
			return nil, s.scrapeFailure(ctx, scrapeReasonFor(err), err)
		}
		s.logger.Debug("read order page", slog.Int("page", page), slog.Int("records", len(found)))
		records = append(records, found...)

		if page >= s.opts.MaxPages || s.present(ctx, amazonLastDisabled) {
			break
		}
		next, err := s.browser.Find(ctx, amazonNext)
		if errors.Is(err, browser.ErrElementNotFound) {
			break
		}
		if err != nil {
			return nil, s.scrapeFailure(ctx, ReasonNavigationFailed, err)
		}
		// Load the next page by URL: a click returns before the new
		// document replaces the current one.
		href, ok, err := next.Attribute(ctx, "href")
		if err != nil {
			return nil, s.scrapeFailure(ctx, ReasonNavigationFailed, err)
		}
		if !ok || strings.TrimSpace(href) == "" {
			break
		}
		if err := s.navigate(ctx, absolute(s.opts.BaseURL, strings.TrimSpace(href))); err != nil {
			return nil, s.scrapeFailure(ctx, ReasonNavigationFailed, err)
		}
	}

	s.logger.Info("fetched orders", slog.Int("records", len(records)))
	return records, nil
}

// ExtractOrders implements Extractor for one order history page.
func (s *AmazonSession) ExtractOrders(ctx context.Context) ([]model.RawOrderRecord, error) {
	return s.parsePage(ctx)
}

// parsePage extracts records from the order page currently shown.
func (s *AmazonSession) parsePage(ctx context.Context) ([]model.RawOrderRecord, error) {
	cards, err := s.browser.FindAll(ctx, amazonCard)
	if err != nil {
		return nil, err
	}
	var records []model.RawOrderRecord
	for _, card := range cards {
		records = append(records, s.parseCard(ctx, card)...)
	}
	return records, nil
}

func (s *AmazonSession) parseCard(ctx context.Context, card browser.Element) []model.RawOrderRecord {
	status := amazonStatusText(ctx, card)
	if status == "" {
		return nil
	}
	if containsAny(strings.ToLower(status), amazonSkipWords...) {
		s.logger.Debug("skipping finished order", slog.String("status", status))
		return nil
	}

	link := hrefOf(ctx, card, amazonDetailsLink, s.opts.BaseURL)
	orderID := amazonOrderIDOf(ctx, card, link)
	if orderID == "" {
		s.logger.Warn("skipping order without an order id", slog.String("status", status))
		return nil
	}

	items := texts(ctx, card, amazonProduct)
	if len(items) == 0 {
		for _, t := range texts(ctx, card, amazonProductLink) {
			if len(t) > 5 {
				items = append(items, t)
			}
		}
	}
	if len(items) == 0 {
		items = []string{""}
	}

	records := make([]model.RawOrderRecord, 0, len(items))
	for _, item := range items {
		records = append(records, model.RawOrderRecord{
			Retailer:    model.RetailerAmazon,
			OrderID:     orderID,
			ItemName:    item,
			RawDateText: status,
			OrderURL:    link,
		})
	}
	return records
}

// amazonStatusText returns the first bold span mentioning delivery.
func amazonStatusText(ctx context.Context, card browser.Element) string {
	spans, err := card.FindAll(ctx, amazonStatus)
	if err != nil {
		return ""
	}
	for _, span := range spans {
		t, err := span.Text(ctx)
		if err != nil {
			continue
		}
		t = strings.TrimSpace(t)
		if containsAny(strings.ToLower(t), amazonStatusWords...) {
			return t
		}
	}
	return ""
}

func amazonOrderIDOf(ctx context.Context, card browser.Element, link string) string {
	if id := textOf(ctx, card, amazonOrderID); id != "" {
		if m := amazonOrderIDRe.FindString(id); m != "" {
			return m
		}
		return id
	}
	if link != "" {
		if u, err := url.Parse(link); err == nil {
			if id := u.Query().Get("orderID"); id != "" {
				return id
			}
		}
	}
	text, err := card.Text(ctx)
	if err != nil {
		return ""
	}
	return amazonOrderIDRe.FindString(text)
}
