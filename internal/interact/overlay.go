package interact

import (
	"context"
	"time"

	"seatcap/internal/browser"
	appLog "seatcap/internal/log"
)

// Overlays is the catalog of transient blocking UI: modal backdrops,
// spinners and loading markers.
var Overlays = []string{
	".modal-backdrop.show",
	".spinner-border",
	".spinner-grow",
	"[data-loading='true']",
	".loading",
	".is-loading",
}

// Guard waits for overlays to leave the page.
type Guard struct {
	Driver   browser.Driver
	Patterns []string
	Interval time.Duration
}

// NewGuard watches the default Overlays catalog.
func NewGuard(d browser.Driver) Guard {
	return Guard{Driver: d, Patterns: Overlays, Interval: DefaultInterval}
}

// AwaitClear polls until no pattern matches any element or timeout
// elapses, and always returns normally. Some overlays are only hidden,
// never removed, so a timeout here must not fail the caller. The result
// reports whether the page was clear.
func (g Guard) AwaitClear(ctx context.Context, timeout time.Duration) bool {
	var blocking string
	err := Poll(ctx, timeout, g.Interval, func(ctx context.Context) (bool, error) {
		for _, p := range g.Patterns {
			els, err := g.Driver.Query(ctx, "", p)
			if err != nil {
				return false, err
			}
			if len(els) > 0 {
				blocking = p
				return false, nil
			}
		}
		return true, nil
	})
	if err != nil {
		appLog.Debug("overlay still present, continuing", "overlay", blocking, "timeout", timeout)
		return false
	}
	return true
}
