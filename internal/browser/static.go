package browser

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// AnyPage is the StaticPages key served for URLs without their own page.
const AnyPage = "*"

// StaticPages maps URLs to HTML documents. A URL is looked up as given,
// then without its query and fragment, then as AnyPage.
type StaticPages map[string]string

// StaticLauncher launches StaticBrowsers over a fixed set of pages.
type StaticLauncher struct {
	Pages StaticPages

	mu       sync.Mutex
	launched []*StaticBrowser
}

// Launch implements Launcher.
func (l *StaticLauncher) Launch(ctx context.Context) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, &AutomationError{Op: "launch", Err: err}
	}
	b := NewStaticBrowser(l.Pages)
	l.mu.Lock()
	l.launched = append(l.launched, b)
	l.mu.Unlock()
	return b, nil
}

// Launched returns every browser launched so far.
func (l *StaticLauncher) Launched() []*StaticBrowser {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*StaticBrowser(nil), l.launched...)
}

// StaticBrowser is a Browser over pre-rendered HTML. Clicking a link or a
// form submit button navigates to its target; elements may also carry a
// data-navigate attribute naming the page a click leads to. No script runs.
type StaticBrowser struct {
	mu      sync.Mutex
	pages   StaticPages
	doc     *html.Node
	url     string
	history []string
	typed   map[string]string
	closed  bool
}

// NewStaticBrowser returns a browser showing about:blank.
func NewStaticBrowser(pages StaticPages) *StaticBrowser {
	return &StaticBrowser{
		pages: pages,
		doc:   mustParse("<html><head></head><body></body></html>"),
		url:   "about:blank",
		typed: make(map[string]string),
	}
}

// LoadHTML replaces the current document without navigation.
func (b *StaticBrowser) LoadHTML(pageURL, document string) error {
	doc, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return &AutomationError{Op: "parse", Err: err}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.doc, b.url = doc, pageURL
	b.history = append(b.history, pageURL)
	return nil
}

// Navigate implements Browser.
func (b *StaticBrowser) Navigate(ctx context.Context, target string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.navigateLocked(ctx, target)
}

func (b *StaticBrowser) navigateLocked(ctx context.Context, target string) error {
	if b.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return &AutomationError{Op: "navigate", Err: err}
	}
	resolved := b.resolve(target)
	page, ok := b.lookup(resolved)
	if !ok {
		return &AutomationError{Op: "navigate", Err: fmt.Errorf("no page for %s", resolved)}
	}
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return &AutomationError{Op: "navigate", Err: err}
	}
	b.doc, b.url = doc, resolved
	b.history = append(b.history, resolved)
	return nil
}

func (b *StaticBrowser) lookup(u string) (string, bool) {
	if page, ok := b.pages[u]; ok {
		return page, true
	}
	if parsed, err := url.Parse(u); err == nil {
		parsed.RawQuery, parsed.Fragment = "", ""
		if page, ok := b.pages[parsed.String()]; ok {
			return page, true
		}
	}
	page, ok := b.pages[AnyPage]
	return page, ok
}

func (b *StaticBrowser) resolve(target string) string {
	ref, err := url.Parse(target)
	if err != nil {
		return target
	}
	base, err := url.Parse(b.url)
	if err != nil || base.Scheme == "about" {
		return target
	}
	return base.ResolveReference(ref).String()
}

// Find implements Browser.
func (b *StaticBrowser) Find(ctx context.Context, selector string) (Element, error) {
	b.mu.Lock()
	root := b.doc
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return findIn(ctx, b, root, selector)
}

// FindAll implements Browser.
func (b *StaticBrowser) FindAll(ctx context.Context, selector string) ([]Element, error) {
	b.mu.Lock()
	root := b.doc
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return findAllIn(ctx, b, root, selector)
}

// Title implements Browser.
func (b *StaticBrowser) Title(_ context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := findAtom(b.doc, atom.Title); n != nil {
		return textOf(n), nil
	}
	return "", nil
}

// URL implements Browser.
func (b *StaticBrowser) URL(_ context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.url, nil
}

// HTML implements Browser.
func (b *StaticBrowser) HTML(_ context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, b.doc); err != nil {
		return "", &AutomationError{Op: "html", Err: err}
	}
	return buf.String(), nil
}

// Screenshot implements Browser. Static pages are not rendered, so the
// image is a blank placeholder.
func (b *StaticBrowser) Screenshot(_ context.Context) ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &AutomationError{Op: "screenshot", Err: err}
	}
	return buf.Bytes(), nil
}

// Close implements Browser.
func (b *StaticBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Closed reports whether Close was called.
func (b *StaticBrowser) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// History returns the visited URLs in order.
func (b *StaticBrowser) History() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.history...)
}

// Typed returns the last value typed into each field, keyed by the field's
// id or name.
func (b *StaticBrowser) Typed() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]string, len(b.typed))
	for k, v := range b.typed {
		out[k] = v
	}
	return out
}

type staticElement struct {
	browser *StaticBrowser
	node    *html.Node
}

func (e *staticElement) Text(_ context.Context) (string, error) {
	return textOf(e.node), nil
}

func (e *staticElement) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := lookupAttr(e.node, strings.ToLower(name))
	return v, ok, nil
}

func (e *staticElement) Click(ctx context.Context) error {
	target := e.clickTarget()
	if target == "" {
		return nil
	}
	e.browser.mu.Lock()
	defer e.browser.mu.Unlock()
	return e.browser.navigateLocked(ctx, target)
}

// clickTarget returns where a click on the element leads, or "".
func (e *staticElement) clickTarget() string {
	for n := e.node; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if v, ok := lookupAttr(n, "data-navigate"); ok {
			return v
		}
		if n.DataAtom == atom.A {
			if v, ok := lookupAttr(n, "href"); ok {
				return v
			}
		}
	}
	if e.isSubmit() {
		for n := e.node.Parent; n != nil; n = n.Parent {
			if n.DataAtom == atom.Form {
				return attr(n, "action")
			}
		}
	}
	return ""
}

func (e *staticElement) isSubmit() bool {
	switch e.node.DataAtom {
	case atom.Button:
		t, ok := lookupAttr(e.node, "type")
		return !ok || t == "submit"
	case atom.Input:
		return attr(e.node, "type") == "submit"
	}
	return false
}

func (e *staticElement) Input(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return &AutomationError{Op: "input", Err: err}
	}
	key := attr(e.node, "id")
	if key == "" {
		key = attr(e.node, "name")
	}
	e.browser.mu.Lock()
	defer e.browser.mu.Unlock()
	setAttr(e.node, "value", text)
	e.browser.typed[key] = text
	return nil
}

func (e *staticElement) Find(ctx context.Context, selector string) (Element, error) {
	return findIn(ctx, e.browser, e.node, selector)
}

func (e *staticElement) FindAll(ctx context.Context, selector string) ([]Element, error) {
	return findAllIn(ctx, e.browser, e.node, selector)
}

func findIn(ctx context.Context, b *StaticBrowser, root *html.Node, selector string) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, &AutomationError{Op: "find", Err: err}
	}
	sel, err := ParseSelector(selector)
	if err != nil {
		return nil, err
	}
	n := sel.Query(root)
	if n == nil {
		return nil, ErrElementNotFound
	}
	return &staticElement{browser: b, node: n}, nil
}

func findAllIn(ctx context.Context, b *StaticBrowser, root *html.Node, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, &AutomationError{Op: "find", Err: err}
	}
	sel, err := ParseSelector(selector)
	if err != nil {
		return nil, err
	}
	nodes := sel.QueryAll(root)
	out := make([]Element, len(nodes))
	for i, n := range nodes {
		out[i] = &staticElement{browser: b, node: n}
	}
	return out, nil
}

// textOf returns the text content of n with whitespace collapsed, skipping
// script and style elements.
func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		case n.Type == html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func findAtom(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findAtom(c, a); found != nil {
			return found
		}
	}
	return nil
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func mustParse(s string) *html.Node {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return doc
}
