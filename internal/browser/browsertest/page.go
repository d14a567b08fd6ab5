// Package browsertest provides a scripted in-memory browser.Driver.
//
// Tests register nodes under the exact (scope, selector) pairs the code
// under test queries, and attach click handlers that rewrite the fake
// page the way the real application would.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"seatcap/internal/browser"
)

// Node is one fake element.
type Node struct {
	browser.Element

	// Obscured makes the next N hit tests report another element on top.
	Obscured int

	// Disabled fails every hit test.
	Disabled bool

	// Navigates makes ClickAndWaitLoad succeed; otherwise it times out.
	Navigates bool

	// OnClick runs after a successful click.
	OnClick func(p *Page)
}

// Fill records one text entry.
type Fill struct {
	Ref  string
	Text string
}

// Page is a fake browser.Driver. The zero value is not usable; use New.
type Page struct {
	mu      sync.Mutex
	matches map[string][]string
	nodes   map[string]*Node
	url     string

	clicks      []string
	fills       []Fill
	navigations []string
	idleWaits   int

	// OnNavigate runs after Navigate records the URL.
	OnNavigate func(p *Page, url string)

	// PNG is returned by Screenshot. ScreenshotErr, when set, wins.
	PNG           []byte
	ScreenshotErr error

	// WaitsForVisible makes Click and Fill on a missing or hidden node
	// block until ctx ends, the way chromedp's NodeVisible query does.
	WaitsForVisible bool
}

var _ browser.Driver = (*Page)(nil)

// ErrNoNavigation is returned by ClickAndWaitLoad for nodes without Navigates.
var ErrNoNavigation = errors.New("browsertest: click did not navigate")

func New() *Page {
	return &Page{
		matches: make(map[string][]string),
		nodes:   make(map[string]*Node),
	}
}

func key(scope, sel string) string {
	return scope + "\x00" + sel
}

// Add registers n as a match for sel within scope ("" for the document).
// The same node may be added under several selectors. Ref defaults to a
// generated value.
func (p *Page) Add(scope, sel string, n *Node) *Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n.Ref == "" {
		n.Ref = fmt.Sprintf("#fake-%d", len(p.nodes)+1)
	}
	if existing, ok := p.nodes[n.Ref]; ok {
		n = existing
	} else {
		p.nodes[n.Ref] = n
	}
	k := key(scope, sel)
	p.matches[k] = append(p.matches[k], n.Ref)
	return n
}

// Remove detaches a node from every selector, making its Ref stale.
func (p *Page) Remove(ref string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.nodes, ref)
	for k, refs := range p.matches {
		kept := refs[:0]
		for _, r := range refs {
			if r != ref {
				kept = append(kept, r)
			}
		}
		p.matches[k] = kept
	}
}

// Reset drops every node, as a full page load would.
func (p *Page) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.matches = make(map[string][]string)
	p.nodes = make(map[string]*Node)
}

// SetURL changes the current location without a navigation, as a
// client-side route change would.
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

// Node returns the registered node for ref.
func (p *Page) Node(ref string) (*Node, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.nodes[ref]
	return n, ok
}

// Clicks returns clicked refs in order.
func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// ClickCount counts clicks on ref.
func (p *Page) ClickCount(ref string) int {
	n := 0
	for _, c := range p.Clicks() {
		if c == ref {
			n++
		}
	}
	return n
}

func (p *Page) Fills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Fill(nil), p.fills...)
}

func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

func (p *Page) IdleWaits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idleWaits
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.navigations = append(p.navigations, url)
	p.url = url
	hook := p.OnNavigate
	p.mu.Unlock()
	if hook != nil {
		hook(p, url)
	}
	return nil
}

func (p *Page) Query(ctx context.Context, scope, sel string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if scope != "" && !p.visibleLocked(key("", scope)) {
		return nil, nil
	}
	refs, ok := p.matches[key(scope, sel)]
	if !ok && scope == "" {
		// A Ref is itself a selector for its node, as with a live page.
		if _, isRef := p.nodes[sel]; isRef {
			refs = []string{sel}
		}
	}
	var out []browser.Element
	for _, ref := range refs {
		if n, ok := p.nodes[ref]; ok {
			el := n.Element
			el.Dates = append([]string(nil), n.Dates...)
			out = append(out, el)
		}
	}
	return out, nil
}

func (p *Page) visibleLocked(k string) bool {
	for _, ref := range p.matches[k] {
		if n, ok := p.nodes[ref]; ok && n.Visible {
			return true
		}
	}
	return false
}

func (p *Page) ScrollIntoView(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := p.Node(ref); !ok {
		return fmt.Errorf("scroll %s: %w", ref, browser.ErrStale)
	}
	return nil
}

func (p *Page) HitTest(ctx context.Context, ref string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.nodes[ref]
	if !ok || !n.Visible || n.Disabled {
		return false, nil
	}
	if n.Obscured > 0 {
		n.Obscured--
		return false, nil
	}
	return true, nil
}

func (p *Page) Click(ctx context.Context, ref string) error {
	return p.click(ctx, ref, false)
}

func (p *Page) ClickAndWaitLoad(ctx context.Context, ref string) error {
	return p.click(ctx, ref, true)
}

// awaitVisible blocks until ctx ends when WaitsForVisible is set and ref
// is not a visible node.
func (p *Page) awaitVisible(ctx context.Context, ref string) error {
	p.mu.Lock()
	n, ok := p.nodes[ref]
	block := p.WaitsForVisible && (!ok || !n.Visible)
	p.mu.Unlock()
	if !block {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *Page) click(ctx context.Context, ref string, wantNav bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.awaitVisible(ctx, ref); err != nil {
		return fmt.Errorf("click %s: %w", ref, err)
	}
	p.mu.Lock()
	n, ok := p.nodes[ref]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("click %s: %w", ref, browser.ErrStale)
	}
	p.clicks = append(p.clicks, ref)
	hook := n.OnClick
	navigates := n.Navigates
	p.mu.Unlock()

	if hook != nil {
		hook(p)
	}
	if wantNav && !navigates {
		return fmt.Errorf("click %s: %w", ref, ErrNoNavigation)
	}
	return nil
}

func (p *Page) Fill(ctx context.Context, ref, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.awaitVisible(ctx, ref); err != nil {
		return fmt.Errorf("fill %s: %w", ref, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.nodes[ref]; !ok {
		return fmt.Errorf("fill %s: %w", ref, browser.ErrStale)
	}
	p.fills = append(p.fills, Fill{Ref: ref, Text: text})
	return nil
}

func (p *Page) WaitIdle(ctx context.Context, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idleWaits++
	return nil
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	return append([]byte(nil), p.PNG...), nil
}

func (p *Page) URL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}
