// Package browser is the narrow page-driving surface the automation core
// depends on, plus its chromedp implementation.
package browser

import (
	"context"
	"errors"
	"time"
)

// Element is a snapshot of one matched node. Ref is a selector that
// addresses exactly that node; it stays valid only until the page
// navigates or re-renders the node, so callers must never keep it across
// a navigation.
type Element struct {
	Ref   string `json:"ref"`
	Tag   string `json:"tag"`
	Text  string `json:"text"`
	Class string `json:"class"`

	// Href is the node's link target: href, data-url or data-href, in
	// that order of preference.
	Href string `json:"href,omitempty"`

	// Visible reports a displayed, visible node with a non-empty box that
	// accepts pointer events.
	Visible bool `json:"visible"`

	// Dates holds data-date / data-navlink values found on the node and
	// its ancestors, nearest first.
	Dates []string `json:"dates"`
}

// HasDate reports whether the node or one of its ancestors is keyed to date.
func (e Element) HasDate(date string) bool {
	for _, d := range e.Dates {
		if d == date {
			return true
		}
	}
	return false
}

// ErrStale is returned when a Ref no longer resolves to a node.
var ErrStale = errors.New("element is no longer attached")

// Driver drives one page. Every method is bounded by ctx.
type Driver interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// Query returns all nodes matching sel in document order. When scope is
	// non-empty the search is limited to the first visible node matching
	// scope; no visible scope yields no elements.
	Query(ctx context.Context, scope, sel string) ([]Element, error)

	// ScrollIntoView centers the node in the viewport.
	ScrollIntoView(ctx context.Context, ref string) error

	// HitTest reports whether the node is the top-most element at its own
	// center point, visible, and not disabled.
	HitTest(ctx context.Context, ref string) (bool, error)

	// Click dispatches a real pointer click at the node's center.
	Click(ctx context.Context, ref string) error

	// ClickAndWaitLoad clicks and waits for the resulting page load.
	ClickAndWaitLoad(ctx context.Context, ref string) error

	// Fill clears the field and types text into it.
	Fill(ctx context.Context, ref, text string) error

	// WaitIdle returns once the network has been quiet for idle.
	WaitIdle(ctx context.Context, idle time.Duration) error

	// Screenshot captures the full page as PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	// URL returns the current document location.
	URL(ctx context.Context) (string, error)
}
