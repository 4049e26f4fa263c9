package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodConfig configures RodLauncher.
type RodConfig struct {
	// RemoteURL is the DevTools websocket URL of a running browser. When set
	// no local browser is launched and Close only closes the tab.
	RemoteURL string

	// Bin is the browser executable; empty lets the launcher locate or
	// download Chromium.
	Bin string

	Headless  bool
	NoSandbox bool
}

// RodLauncher launches Chromium through go-rod. Every Launch starts a
// fresh browser process (or a fresh tab on the remote browser) so sessions
// never share cookies.
type RodLauncher struct {
	cfg    RodConfig
	logger *slog.Logger
}

// RodOption configures a RodLauncher.
type RodOption func(*RodLauncher)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) RodOption {
	return func(l *RodLauncher) {
		l.logger = logger
	}
}

// NewRodLauncher returns a launcher for cfg.
func NewRodLauncher(cfg RodConfig, opts ...RodOption) *RodLauncher {
	l := &RodLauncher{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Launch implements Launcher.
func (l *RodLauncher) Launch(ctx context.Context) (Browser, error) {
	var (
		lnch  *launcher.Launcher
		wsURL = l.cfg.RemoteURL
	)
	if wsURL == "" {
		lnch = launcher.New().
			Context(ctx).
			Headless(l.cfg.Headless).
			NoSandbox(l.cfg.NoSandbox)
		if l.cfg.Bin != "" {
			lnch = lnch.Bin(l.cfg.Bin)
		}
		u, err := lnch.Launch()
		if err != nil {
			return nil, &AutomationError{Op: "launch", Err: err}
		}
		wsURL = u
		l.logger.Debug("launched local browser", "headless", l.cfg.Headless)
	} else {
		l.logger.Debug("connecting to remote browser")
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if lnch != nil {
			lnch.Kill()
			lnch.Cleanup()
		}
		return nil, &AutomationError{Op: "connect", Err: err}
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		rb := &rodBrowser{browser: b, launcher: lnch, remote: lnch == nil}
		_ = rb.Close()
		return nil, &AutomationError{Op: "open tab", Err: err}
	}
	return &rodBrowser{browser: b, page: page, launcher: lnch, remote: lnch == nil}, nil
}

type rodBrowser struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	remote   bool

	closeOnce sync.Once
	closeErr  error
}

func (b *rodBrowser) Navigate(ctx context.Context, url string) error {
	p := b.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return &AutomationError{Op: "navigate", Err: err}
	}
	if err := p.WaitLoad(); err != nil {
		return &AutomationError{Op: "wait load", Err: err}
	}
	return nil
}

func (b *rodBrowser) Find(ctx context.Context, selector string) (Element, error) {
	has, el, err := b.page.Context(ctx).Has(selector)
	if err != nil {
		return nil, &AutomationError{Op: "find", Err: err}
	}
	if !has {
		return nil, ErrElementNotFound
	}
	return &rodElement{el: el}, nil
}

func (b *rodBrowser) FindAll(ctx context.Context, selector string) ([]Element, error) {
	els, err := b.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, &AutomationError{Op: "find all", Err: err}
	}
	return wrapElements(els), nil
}

func (b *rodBrowser) Title(ctx context.Context) (string, error) {
	info, err := b.page.Context(ctx).Info()
	if err != nil {
		return "", &AutomationError{Op: "title", Err: err}
	}
	return info.Title, nil
}

func (b *rodBrowser) URL(ctx context.Context) (string, error) {
	info, err := b.page.Context(ctx).Info()
	if err != nil {
		return "", &AutomationError{Op: "url", Err: err}
	}
	return info.URL, nil
}

func (b *rodBrowser) HTML(ctx context.Context) (string, error) {
	s, err := b.page.Context(ctx).HTML()
	if err != nil {
		return "", &AutomationError{Op: "html", Err: err}
	}
	return s, nil
}

func (b *rodBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := b.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, &AutomationError{Op: "screenshot", Err: err}
	}
	return data, nil
}

// Close closes the tab, and for locally launched browsers the process and
// its profile directory.
func (b *rodBrowser) Close() error {
	b.closeOnce.Do(func() {
		var errs []error
		if b.page != nil {
			if err := b.page.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close tab: %w", err))
			}
		}
		if !b.remote {
			if err := b.browser.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close browser: %w", err))
			}
			if b.launcher != nil {
				b.launcher.Kill()
				b.launcher.Cleanup()
			}
		}
		b.closeErr = errors.Join(errs...)
	})
	return b.closeErr
}

type rodElement struct {
	el *rod.Element
}

func wrapElements(els rod.Elements) []Element {
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{el: el}
	}
	return out
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	s, err := e.el.Context(ctx).Text()
	if err != nil {
		return "", &AutomationError{Op: "text", Err: err}
	}
	return s, nil
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, &AutomationError{Op: "attribute", Err: err}
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *rodElement) Click(ctx context.Context) error {
	if err := e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return &AutomationError{Op: "click", Err: err}
	}
	return nil
}

func (e *rodElement) Input(ctx context.Context, text string) error {
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return &AutomationError{Op: "select", Err: err}
	}
	if err := el.Input(text); err != nil {
		return &AutomationError{Op: "input", Err: err}
	}
	return nil
}

func (e *rodElement) Find(ctx context.Context, selector string) (Element, error) {
	has, el, err := e.el.Context(ctx).Has(selector)
	if err != nil {
		return nil, &AutomationError{Op: "find", Err: err}
	}
	if !has {
		return nil, ErrElementNotFound
	}
	return &rodElement{el: el}, nil
}

func (e *rodElement) FindAll(ctx context.Context, selector string) ([]Element, error) {
	els, err := e.el.Context(ctx).Elements(selector)
	if err != nil {
		return nil, &AutomationError{Op: "find all", Err: err}
	}
	return wrapElements(els), nil
}
