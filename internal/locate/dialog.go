package locate

import (
	"context"
	"time"

	"seatcap/internal/browser"
	"seatcap/internal/interact"
)

// DialogSelector matches the floating detail and confirmation dialogs.
const DialogSelector = "#schedule_modal_container, .modal.show, .modal[style*='display: block']"

// WaitDialog waits for a visible dialog.
func WaitDialog(ctx context.Context, d browser.Driver, timeout, interval time.Duration) (browser.Element, error) {
	return interact.WaitVisible(ctx, d, "", DialogSelector, timeout, interval)
}
