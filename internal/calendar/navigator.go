// Package calendar brings a target day into view in the upstream
// FullCalendar widget.
package calendar

import (
	"context"
	"fmt"
	"time"

	"seatcap/internal/browser"
	"seatcap/internal/failure"
	"seatcap/internal/interact"
	appLog "seatcap/internal/log"
	"seatcap/internal/model"
)

// DefaultMaxSteps bounds paging in each direction.
const DefaultMaxSteps = 24

var (
	NextSelectors = []string{
		".fc-next-button",
		`button[title="Next"]`,
		`button[aria-label*="Next" i]`,
		"#calendar .fc-toolbar .fc-next-button",
	}
	PrevSelectors = []string{
		".fc-prev-button",
		`button[title="Prev"]`,
		`button[aria-label*="Prev" i]`,
		"#calendar .fc-toolbar .fc-prev-button",
	}
)

// DateSelectors lists the date-addressed cells and links for key, in the
// order they are tried.
func DateSelectors(key string) []string {
	return []string{
		fmt.Sprintf(`td[data-date="%s"]`, key),
		fmt.Sprintf(`a[data-navlink="%s"]`, key),
		fmt.Sprintf(`.fc-col-header [data-date="%s"] a`, key),
		fmt.Sprintf(`.fc-daygrid-day[data-date="%s"] a`, key),
	}
}

// Navigator pages the calendar until a date cell is found.
type Navigator struct {
	Driver   browser.Driver
	MaxSteps int

	// OpenIdle / PageIdle are the network quiet periods awaited after
	// activating a date and after paging; SettleTimeout caps both.
	OpenIdle      time.Duration
	PageIdle      time.Duration
	SettleTimeout time.Duration

	// ClickTimeout bounds each click on a date cell or paging control.
	ClickTimeout time.Duration

	Verbose bool
}

func NewNavigator(d browser.Driver) *Navigator {
	return &Navigator{
		Driver:        d,
		MaxSteps:      DefaultMaxSteps,
		OpenIdle:      400 * time.Millisecond,
		PageIdle:      300 * time.Millisecond,
		SettleTimeout: 8 * time.Second,
		ClickTimeout:  10 * time.Second,
	}
}

// GotoDate activates the cell for date. The current view offset is
// unknown, so it looks directly, then pages forward, then pages backward
// from the original position, each direction bounded by MaxSteps. Steps
// spent walking back from the forward phase do not count against the
// backward bound.
func (n *Navigator) GotoDate(ctx context.Context, date time.Time) error {
	key := date.Format(model.DateLayout)
	maxSteps := n.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	appLog.Verbose(n.Verbose, "goto date", "date", key, "max_steps", maxSteps)

	if n.tryOpen(ctx, key) {
		return nil
	}

	forward := 0
	for forward < maxSteps {
		if err := ctx.Err(); err != nil {
			return failure.Wrap(failure.KindDateNotReached, key, err)
		}
		if !n.page(ctx, NextSelectors) {
			break
		}
		forward++
		if n.tryOpen(ctx, key) {
			appLog.Verbose(n.Verbose, "date reached paging forward", "date", key, "steps", forward)
			return nil
		}
	}

	for back := 0; back < forward+maxSteps; back++ {
		if err := ctx.Err(); err != nil {
			return failure.Wrap(failure.KindDateNotReached, key, err)
		}
		if !n.page(ctx, PrevSelectors) {
			break
		}
		if n.tryOpen(ctx, key) {
			appLog.Verbose(n.Verbose, "date reached paging backward", "date", key, "steps", back+1-forward)
			return nil
		}
	}

	return failure.New(failure.KindDateNotReached, key,
		fmt.Sprintf("no date cell within %d steps forward or backward", maxSteps))
}

// tryOpen activates the first date-addressed element for key.
func (n *Navigator) tryOpen(ctx context.Context, key string) bool {
	for _, sel := range DateSelectors(key) {
		el, ok := n.first(ctx, sel)
		if !ok {
			continue
		}
		appLog.Verbose(n.Verbose, "clicking date element", "selector", sel)
		if err := n.click(ctx, el.Ref); err != nil {
			// The cell may not be clickable in every view; finding it is
			// what matters.
			appLog.Debug("date element click failed", "selector", sel, "err", err)
		}
		interact.Settle(ctx, n.Driver, n.OpenIdle, n.SettleTimeout)
		return true
	}
	return false
}

// page clicks the first present control among sels.
func (n *Navigator) page(ctx context.Context, sels []string) bool {
	for _, sel := range sels {
		el, ok := n.first(ctx, sel)
		if !ok {
			continue
		}
		appLog.Debug("calendar nav button", "selector", sel)
		if err := n.click(ctx, el.Ref); err != nil {
			appLog.Debug("calendar nav click failed", "selector", sel, "err", err)
		}
		interact.Settle(ctx, n.Driver, n.PageIdle, n.SettleTimeout)
		return true
	}
	return false
}

func (n *Navigator) click(ctx context.Context, ref string) error {
	return interact.Bounded(ctx, n.ClickTimeout, func(ctx context.Context) error {
		return n.Driver.Click(ctx, ref)
	})
}

// first returns the first visible match for sel. Hidden cells and
// controls are treated as absent.
func (n *Navigator) first(ctx context.Context, sel string) (browser.Element, bool) {
	els, err := n.Driver.Query(ctx, "", sel)
	if err != nil {
		appLog.Debug("calendar query failed", "selector", sel, "err", err)
		return browser.Element{}, false
	}
	for _, el := range els {
		if el.Visible {
			return el, true
		}
	}
	return browser.Element{}, false
}
