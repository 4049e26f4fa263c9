package browser

import (
	"fmt"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Selector is a compiled CSS selector group as used by StaticBrowser.
type Selector struct {
	group cascadia.SelectorGroup
}

// ParseSelector compiles s. Errors wrap ErrInvalidSelector.
func ParseSelector(s string) (Selector, error) {
	group, err := cascadia.ParseGroup(s)
	if err != nil {
		return Selector{}, fmt.Errorf("%w %q: %w", ErrInvalidSelector, s, err)
	}
	return Selector{group: group}, nil
}

// Matches reports whether n matches any selector of the group.
func (s Selector) Matches(n *html.Node) bool {
	return s.group.Match(n)
}

// QueryAll returns the descendants of root matching s in document order.
// root itself is never returned.
func (s Selector) QueryAll(root *html.Node) []*html.Node {
	return cascadia.QueryAll(root, s.group)
}

// Query returns the first descendant of root matching s, or nil.
func (s Selector) Query(root *html.Node) *html.Node {
	return cascadia.Query(root, s.group)
}

func attr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
