// Package interact performs clicks and text entry against an unstable,
// animation-heavy page.
package interact

import (
	"context"
	"fmt"
	"time"

	"seatcap/internal/browser"
	"seatcap/internal/failure"
	appLog "seatcap/internal/log"
)

// Defaults for Clicker.
const (
	DefaultClickTimeout   = 20 * time.Second
	DefaultMaxAttempts    = 3
	DefaultOverlayTimeout = 15 * time.Second
)

// ClickOptions tunes one reliable click. Zero values take the Clicker's
// defaults.
type ClickOptions struct {
	// RequireNavigation pairs the click with waiting for a page load.
	RequireNavigation bool
	Timeout           time.Duration
	MaxAttempts       int
}

// Clicker clicks only once the target is visible, centered, top-most at
// its own center and enabled, retrying with backoff.
type Clicker struct {
	Driver         browser.Driver
	Guard          Guard
	OverlayTimeout time.Duration
	Interval       time.Duration

	// Backoff is the pause after failed attempt n (1-based).
	Backoff func(attempt int) time.Duration

	Timeout     time.Duration
	MaxAttempts int
}

// DefaultBackoff grows 550ms, 800ms, 1050ms ...
func DefaultBackoff(attempt int) time.Duration {
	return 300*time.Millisecond + time.Duration(attempt)*250*time.Millisecond
}

func NewClicker(d browser.Driver) *Clicker {
	return &Clicker{
		Driver:         d,
		Guard:          NewGuard(d),
		OverlayTimeout: DefaultOverlayTimeout,
		Interval:       DefaultInterval,
		Backoff:        DefaultBackoff,
		Timeout:        DefaultClickTimeout,
		MaxAttempts:    DefaultMaxAttempts,
	}
}

// Click activates the first visible element matching sel. After the last
// attempt it fails with an interaction failure naming sel and the last
// cause.
func (c *Clicker) Click(ctx context.Context, sel string, opts ClickOptions) error {
	if opts.Timeout <= 0 {
		opts.Timeout = c.Timeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = c.MaxAttempts
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		lastErr = c.attempt(ctx, sel, opts)
		if lastErr == nil {
			return nil
		}
		appLog.Debug("click attempt failed", "selector", sel, "attempt", attempt, "max", opts.MaxAttempts, "err", lastErr)
		if attempt == opts.MaxAttempts {
			break
		}
		if err := sleep(ctx, c.backoff(attempt)); err != nil {
			lastErr = err
			break
		}
	}
	e := failure.Wrap(failure.KindInteraction, sel, lastErr)
	e.Msg = fmt.Sprintf("click failed after %d attempt(s)", opts.MaxAttempts)
	return e
}

func (c *Clicker) attempt(ctx context.Context, sel string, opts ClickOptions) error {
	c.Guard.AwaitClear(ctx, c.OverlayTimeout)

	el, err := WaitVisible(ctx, c.Driver, "", sel, opts.Timeout, c.Interval)
	if err != nil {
		return err
	}
	if err := Bounded(ctx, opts.Timeout, func(ctx context.Context) error {
		return c.Driver.ScrollIntoView(ctx, el.Ref)
	}); err != nil {
		return err
	}
	err = Poll(ctx, opts.Timeout, c.Interval, func(ctx context.Context) (bool, error) {
		return c.Driver.HitTest(ctx, el.Ref)
	})
	if err != nil {
		return fmt.Errorf("%s is obscured or disabled: %w", el.Ref, err)
	}

	// The node can re-render between the hit test and the click, and the
	// driver then waits for it to become visible again.
	return Bounded(ctx, opts.Timeout, func(ctx context.Context) error {
		if opts.RequireNavigation {
			return c.Driver.ClickAndWaitLoad(ctx, el.Ref)
		}
		return c.Driver.Click(ctx, el.Ref)
	})
}

// Bounded runs one driver call under its own deadline. A non-positive
// timeout takes DefaultClickTimeout.
func Bounded(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		timeout = DefaultClickTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

func (c *Clicker) backoff(attempt int) time.Duration {
	if c.Backoff == nil {
		return DefaultBackoff(attempt)
	}
	return c.Backoff(attempt)
}

// Fill waits for the field, centers it and replaces its value with text.
func (c *Clicker) Fill(ctx context.Context, sel, text string) error {
	el, err := WaitVisible(ctx, c.Driver, "", sel, c.Timeout, c.Interval)
	if err != nil {
		return failure.Wrap(failure.KindInteraction, sel, err)
	}
	if err := Bounded(ctx, c.Timeout, func(ctx context.Context) error {
		return c.Driver.ScrollIntoView(ctx, el.Ref)
	}); err != nil {
		return failure.Wrap(failure.KindInteraction, sel, err)
	}
	if err := Bounded(ctx, c.Timeout, func(ctx context.Context) error {
		return c.Driver.Fill(ctx, el.Ref, text)
	}); err != nil {
		return failure.Wrap(failure.KindInteraction, sel, err)
	}
	return nil
}
