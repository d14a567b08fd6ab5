package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	appLog "seatcap/internal/log"
)

// Defaults for a Session.
const (
	DefaultWidth     = 1280
	DefaultHeight    = 900
	DefaultTimezone  = "America/Mexico_City"
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126 Safari/537.36"

	// DefaultActionTimeout bounds a driver call whose context carries no
	// deadline. chromedp selector actions otherwise retry forever.
	DefaultActionTimeout = 2 * time.Minute

	// idleMaxInflight tolerates long-lived connections (websockets,
	// long polling) that never finish while the page is otherwise quiet.
	idleMaxInflight = 2
)

// Options configures a Session.
type Options struct {
	// Headless runs Chromium without a window.
	Headless bool

	// ExecPath overrides the Chromium binary. Empty uses chromedp's lookup.
	ExecPath string

	// RemoteURL attaches to an already running browser
	// (ws://127.0.0.1:9222/...) instead of launching one.
	RemoteURL string

	UserAgent string
	Timezone  string
	Width     int
	Height    int

	// Verbose logs page console output and failed requests at INFO.
	Verbose bool
}

// Session is a chromedp-backed Driver bound to one browser tab.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	net    *netTracker
}

var _ Driver = (*Session)(nil)

// NewSession launches (or attaches to) Chromium and prepares one tab with
// the configured viewport, user agent and timezone.
func NewSession(parent context.Context, opts Options) (*Session, error) {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timezone == "" {
		opts.Timezone = DefaultTimezone
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(parent, opts.RemoteURL)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.NoSandbox,
			chromedp.Flag("disable-setuid-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("no-zygote", true),
			chromedp.DisableGPU,
			chromedp.NoFirstRun,
			chromedp.NoDefaultBrowserCheck,
			chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
			chromedp.WindowSize(opts.Width, opts.Height),
			chromedp.UserAgent(opts.UserAgent),
		)
		if opts.ExecPath != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(parent, allocOpts...)
	}

	ctx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(f string, a ...any) { appLog.Debug("chromedp", "msg", fmt.Sprintf(f, a...)) }),
		chromedp.WithErrorf(func(f string, a ...any) { appLog.Debug("chromedp error", "msg", fmt.Sprintf(f, a...)) }),
	)

	s := &Session{
		ctx: ctx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		net: newNetTracker(),
	}
	s.listen(opts.Verbose)

	err := chromedp.Run(ctx,
		network.Enable(),
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		emulation.SetTimezoneOverride(opts.Timezone),
	)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("browser: start session: %w", err)
	}
	appLog.Info("browser session started",
		"remote", opts.RemoteURL != "",
		"headless", opts.Headless,
		"timezone", opts.Timezone,
		"viewport", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
	)
	return s, nil
}

// Close shuts the tab and, when launched by us, the browser.
func (s *Session) Close() {
	s.cancel()
}

func (s *Session) listen(verbose bool) {
	chromedp.ListenTarget(s.ctx, func(ev any) {
		switch ev := ev.(type) {
		case *network.EventRequestWillBeSent:
			s.net.started(ev.RequestID)
		case *network.EventLoadingFinished:
			s.net.finished(ev.RequestID)
		case *network.EventLoadingFailed:
			s.net.finished(ev.RequestID)
			if !ev.Canceled {
				appLog.Verbose(verbose, "page request failed", "id", ev.RequestID, "err", ev.ErrorText)
			}
		case *runtime.EventConsoleAPICalled:
			args := make([]string, 0, len(ev.Args))
			for _, arg := range ev.Args {
				args = append(args, string(arg.Value))
			}
			appLog.Verbose(verbose, "page console", "type", ev.Type, "text", strings.Join(args, " "))
		case *runtime.EventExceptionThrown:
			appLog.Verbose(verbose, "page error", "text", ev.ExceptionDetails.Error())
		}
	})
}

// bound derives a tab context that also ends when ctx does, and after
// DefaultActionTimeout when ctx has no deadline.
func (s *Session) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(s.ctx)
	dl, ok := ctx.Deadline()
	if !ok {
		dl = time.Now().Add(DefaultActionTimeout)
	}
	runCtx, dlCancel := context.WithDeadline(runCtx, dl)
	prev := cancel
	cancel = func() { dlCancel(); prev() }
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := s.bound(ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (s *Session) Query(ctx context.Context, scope, sel string) ([]Element, error) {
	var out []Element
	if err := s.run(ctx, chromedp.Evaluate(script(queryJS, scope, sel), &out)); err != nil {
		return nil, fmt.Errorf("query %q: %w", sel, err)
	}
	return out, nil
}

func (s *Session) ScrollIntoView(ctx context.Context, ref string) error {
	var found bool
	if err := s.run(ctx, chromedp.Evaluate(script(scrollJS, ref), &found)); err != nil {
		return fmt.Errorf("scroll %s: %w", ref, err)
	}
	if !found {
		return fmt.Errorf("scroll %s: %w", ref, ErrStale)
	}
	return nil
}

func (s *Session) HitTest(ctx context.Context, ref string) (bool, error) {
	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(script(hitTestJS, ref), &ok)); err != nil {
		return false, fmt.Errorf("hit test %s: %w", ref, err)
	}
	return ok, nil
}

func (s *Session) Click(ctx context.Context, ref string) error {
	if err := s.run(ctx, chromedp.Click(ref, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %s: %w", ref, err)
	}
	return nil
}

func (s *Session) ClickAndWaitLoad(ctx context.Context, ref string) error {
	runCtx, cancel := s.bound(ctx)
	defer cancel()
	if _, err := chromedp.RunResponse(runCtx, chromedp.Click(ref, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %s and wait for load: %w", ref, err)
	}
	return nil
}

func (s *Session) Fill(ctx context.Context, ref, text string) error {
	err := s.run(ctx,
		chromedp.SetValue(ref, "", chromedp.ByQuery),
		chromedp.SendKeys(ref, text, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("fill %s: %w", ref, err)
	}
	return nil
}

func (s *Session) WaitIdle(ctx context.Context, idle time.Duration) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		n, quiet := s.net.state()
		if n <= idleMaxInflight && quiet >= idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for network idle (%d in flight): %w", n, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var png []byte
	// Quality 100 makes chromedp capture PNG rather than JPEG.
	if err := s.run(ctx, chromedp.FullScreenshot(&png, 100)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return png, nil
}

func (s *Session) URL(ctx context.Context) (string, error) {
	var u string
	if err := s.run(ctx, chromedp.Location(&u)); err != nil {
		return "", fmt.Errorf("location: %w", err)
	}
	return u, nil
}

// netTracker counts in-flight requests and when the count last changed.
type netTracker struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	changed  time.Time
}

func newNetTracker() *netTracker {
	return &netTracker{
		inflight: make(map[network.RequestID]struct{}),
		changed:  time.Now(),
	}
}

func (t *netTracker) started(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id] = struct{}{}
	t.changed = time.Now()
}

func (t *netTracker) finished(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.inflight[id]; !ok {
		return
	}
	delete(t.inflight, id)
	t.changed = time.Now()
}

// state returns the in-flight count and how long it has been unchanged.
func (t *netTracker) state() (int, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight), time.Since(t.changed)
}
