package interact

import (
	"context"
	"fmt"
	"time"

	"seatcap/internal/browser"
	appLog "seatcap/internal/log"
)

// DefaultInterval is how often polling helpers re-check the page.
const DefaultInterval = 100 * time.Millisecond

// Poll calls check every interval until it reports done or timeout
// elapses. Errors from check are treated as transient (the page may be
// mid-navigation) and only reported if the deadline is reached.
func Poll(ctx context.Context, timeout, interval time.Duration, check func(ctx context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		done, err := check(ctx)
		if err == nil && done {
			return nil
		}
		if err != nil {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitVisible waits for the first visible node matching sel within scope.
// Unlike the overlay guard this is a hard precondition: it fails on timeout.
func WaitVisible(ctx context.Context, d browser.Driver, scope, sel string, timeout, interval time.Duration) (browser.Element, error) {
	var found browser.Element
	err := Poll(ctx, timeout, interval, func(ctx context.Context) (bool, error) {
		els, err := d.Query(ctx, scope, sel)
		if err != nil {
			return false, err
		}
		for _, el := range els {
			if el.Visible {
				found = el
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return browser.Element{}, fmt.Errorf("wait for visible %q: %w", sel, err)
	}
	return found, nil
}

// Settle waits for the network to go quiet for idle, giving up after
// timeout. It is best-effort and reports whether the page settled.
func Settle(ctx context.Context, d browser.Driver, idle, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := d.WaitIdle(ctx, idle); err != nil {
		appLog.Debug("network did not settle", "idle", idle, "timeout", timeout, "err", err)
		return false
	}
	return true
}

// sleep waits for d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
