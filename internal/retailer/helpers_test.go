package retailer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/deliverycal/internal/browser"
)

func fastOptions(extra ...Option) []Option {
	return append([]Option{
		WithLogger(slog.New(slog.DiscardHandler)),
		WithStepTimeout(50 * time.Millisecond),
		WithPollInterval(5 * time.Millisecond),
		WithRetryInterval(time.Millisecond),
	}, extra...)
}

// fixedCodes is a CodeSource that counts its calls.
type fixedCodes struct {
	mu    sync.Mutex
	code  string
	calls int
}

func (f *fixedCodes) Code() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.code, nil
}

func (f *fixedCodes) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// countingBrowser counts navigations on top of a StaticBrowser.
type countingBrowser struct {
	*browser.StaticBrowser

	mu          sync.Mutex
	navigations int
}

func (b *countingBrowser) Navigate(ctx context.Context, url string) error {
	b.mu.Lock()
	b.navigations++
	b.mu.Unlock()
	return b.StaticBrowser.Navigate(ctx, url)
}

func (b *countingBrowser) Navigations() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.navigations
}

// merge returns a copy of pages with overrides applied.
func merge(pages browser.StaticPages, overrides browser.StaticPages) browser.StaticPages {
	out := make(browser.StaticPages, len(pages)+len(overrides))
	for k, v := range pages {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// slowLinkBrowser behaves like a live browser for links: clicking an
// element with an href returns at once and the page changes later.
type slowLinkBrowser struct {
	*browser.StaticBrowser

	delay   time.Duration
	pending sync.WaitGroup
}

func (b *slowLinkBrowser) Find(ctx context.Context, selector string) (browser.Element, error) {
	el, err := b.StaticBrowser.Find(ctx, selector)
	if err != nil {
		return nil, err
	}
	return &slowLinkElement{Element: el, browser: b}, nil
}

func (b *slowLinkBrowser) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	els, err := b.StaticBrowser.FindAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	for i, el := range els {
		els[i] = &slowLinkElement{Element: el, browser: b}
	}
	return els, nil
}

type slowLinkElement struct {
	browser.Element

	browser *slowLinkBrowser
}

func (e *slowLinkElement) Click(ctx context.Context) error {
	href, ok, err := e.Attribute(ctx, "href")
	if err != nil || !ok {
		return e.Element.Click(ctx)
	}
	e.browser.pending.Add(1)
	go func() {
		defer e.browser.pending.Done()
		time.Sleep(e.browser.delay)
		_ = e.browser.StaticBrowser.Navigate(context.Background(), href)
	}()
	return nil
}
