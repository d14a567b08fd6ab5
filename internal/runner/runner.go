// Package runner owns the lifecycle of one automation run: the run lock,
// the browser session, the workflow, and failure diagnostics.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"seatcap/internal/browser"
	"seatcap/internal/config"
	"seatcap/internal/diagnostics"
	"seatcap/internal/failure"
	appLog "seatcap/internal/log"
	"seatcap/internal/model"
	"seatcap/internal/runlock"
	"seatcap/internal/workflow"
)

// ErrBusy rejects a run while another is active.
var ErrBusy = errors.New("a run is already in progress")

// DriverFactory opens a page for one run. close releases it.
type DriverFactory func(ctx context.Context, verbose bool) (d browser.Driver, close func(), err error)

// Runner serializes runs through Lock. Each run gets a fresh page.
type Runner struct {
	Lock        *runlock.Lock
	NewDriver   DriverFactory
	Snapshotter diagnostics.Snapshotter
	Options     workflow.Options

	// Timeout caps a whole run so a stuck page can never keep Lock held.
	// Zero means no cap beyond the per-stage waits.
	Timeout time.Duration
}

// New wires a Runner from cfg with a Chromium-backed factory.
func New(cfg *config.Config, lock *runlock.Lock) *Runner {
	return &Runner{
		Lock:        lock,
		NewDriver:   ChromiumFactory(BrowserOptions(cfg)),
		Snapshotter: diagnostics.NewFileSnapshotter(cfg.Diagnostics.Screenshot),
		Options:     WorkflowOptions(cfg),
		Timeout:     cfg.Timeouts.Run,
	}
}

// BrowserOptions maps the browser section of cfg.
func BrowserOptions(cfg *config.Config) browser.Options {
	b := cfg.Browser
	return browser.Options{
		Headless:  b.Headless,
		ExecPath:  b.ExecPath,
		RemoteURL: b.RemoteURL,
		UserAgent: b.UserAgent,
		Timezone:  b.Timezone,
		Width:     b.Viewport.Width,
		Height:    b.Viewport.Height,
	}
}

// WorkflowOptions maps the upstream, timeouts, click and calendar
// sections of cfg.
func WorkflowOptions(cfg *config.Config) workflow.Options {
	o := workflow.DefaultOptions()
	o.BaseURL = cfg.Upstream.BaseURL
	o.LoginPath = cfg.Upstream.LoginPath
	o.Email = cfg.Upstream.Email
	o.Password = cfg.Upstream.Password

	t := cfg.Timeouts
	o.Default = t.Default
	o.Click = t.Click
	o.Navigation = t.Navigation
	o.Modal = t.Modal
	o.EditSurface = t.EditSurface
	o.OverlayTimeout = t.Overlay
	o.Settle = t.Settle

	o.MaxAttempts = cfg.Click.MaxAttempts
	o.MaxPageSteps = cfg.Calendar.MaxPageSteps
	return o
}

// ChromiumFactory launches (or attaches to) Chromium per run.
func ChromiumFactory(opts browser.Options) DriverFactory {
	return func(ctx context.Context, verbose bool) (browser.Driver, func(), error) {
		o := opts
		o.Verbose = verbose
		s, err := browser.NewSession(ctx, o)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
}

// Busy reports whether a run is active.
func (r *Runner) Busy() bool { return r.Lock.Held() }

// Run performs one capacity change. It fails fast with ErrBusy when a run
// is active. On a workflow failure the page is captured before the
// session closes; a capture problem is logged and never replaces the
// run's own error.
func (r *Runner) Run(ctx context.Context, t model.Target) (workflow.Result, error) {
	release, ok := r.Lock.TryAcquire()
	if !ok {
		appLog.Warn("run rejected, another run is active", "target", t.Describe())
		return workflow.Result{}, ErrBusy
	}
	defer release()

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	started := time.Now()
	appLog.Info("run started", "target", t.Describe(), "strict_name", t.StrictName, "debug", t.Debug)

	d, closeDriver, err := r.NewDriver(ctx, t.Debug)
	if err != nil {
		appLog.Error("browser start failed", err)
		return workflow.Result{}, fmt.Errorf("runner: start browser: %w", err)
	}
	defer closeDriver()

	res, err := workflow.New(d, r.Options).Run(ctx, t)
	if err != nil {
		r.capture(d)
		kind, _ := failure.KindOf(err)
		appLog.Error("run failed", err, "kind", kind, "stage", res.Stage, "elapsed", time.Since(started).Round(time.Millisecond))
		return res, err
	}

	appLog.Info("run finished", "message", res.Message, "elapsed", time.Since(started).Round(time.Millisecond))
	return res, nil
}

func (r *Runner) capture(d browser.Driver) {
	if r.Snapshotter == nil {
		return
	}
	// The run context may already be done; the capture gets its own.
	if err := r.Snapshotter.Capture(context.Background(), d); err != nil {
		appLog.Warn("failure screenshot not saved", "err", err)
		return
	}
	if fs, ok := r.Snapshotter.(*diagnostics.FileSnapshotter); ok {
		appLog.Info("failure screenshot saved", "path", fs.Path)
	}
}

// Request is raw trigger input. Empty fields take configured defaults.
type Request struct {
	Date       string `json:"date"`
	Time       string `json:"time"`
	Name       string `json:"name"`
	Capacity   int    `json:"capacity"`
	StrictName *bool  `json:"strict_name,omitempty"`
	Debug      bool   `json:"debug"`
}

// Merge fills fields r leaves out from d.
func (r Request) Merge(d config.DefaultsConfig) Request {
	if strings.TrimSpace(r.Date) == "" {
		r.Date = d.Date
	}
	if strings.TrimSpace(r.Time) == "" {
		r.Time = d.Time
	}
	if strings.TrimSpace(r.Name) == "" {
		r.Name = d.Name
	}
	if r.Capacity == 0 {
		r.Capacity = d.Capacity
	}
	if r.StrictName == nil {
		strict := d.StrictName
		r.StrictName = &strict
	}
	return r
}

// Target validates r.
func (r Request) Target() (model.Target, error) {
	strict := r.StrictName != nil && *r.StrictName
	return model.NewTarget(r.Date, r.Time, r.Name, r.Capacity, strict, r.Debug)
}
