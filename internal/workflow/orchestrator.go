// Package workflow carries one capacity change through login, calendar
// navigation, the event dialogs, the edit form and the post-save
// confirmation.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"seatcap/internal/browser"
	"seatcap/internal/calendar"
	"seatcap/internal/failure"
	"seatcap/internal/interact"
	"seatcap/internal/locate"
	appLog "seatcap/internal/log"
	"seatcap/internal/model"
	"seatcap/internal/resolve"
	"seatcap/internal/timeparse"
)

// Options configures an Orchestrator.
type Options struct {
	BaseURL   string
	LoginPath string
	Email     string
	Password  string

	// Default bounds element waits such as the login form and fields.
	Default time.Duration
	// Navigation bounds page loads.
	Navigation time.Duration
	// Modal bounds the wait for a dialog to appear.
	Modal time.Duration
	// EditSurface bounds the wait for the edit form after activating edit.
	EditSurface time.Duration
	// Settle caps best-effort network settling.
	Settle time.Duration
	// DialogAnimation is the pause after a dialog shows, letting it finish
	// animating in before its controls are hit-tested.
	DialogAnimation time.Duration

	Click          time.Duration
	MaxAttempts    int
	OverlayTimeout time.Duration
	MaxPageSteps   int

	// Interval is the polling period of every wait.
	Interval time.Duration
}

// DefaultOptions mirrors the waits the upstream application needs on a
// cold start.
func DefaultOptions() Options {
	return Options{
		LoginPath:       "/sessions/new",
		Default:         10 * time.Second,
		Navigation:      30 * time.Second,
		Modal:           20 * time.Second,
		EditSurface:     20 * time.Second,
		Settle:          15 * time.Second,
		DialogAnimation: 300 * time.Millisecond,
		Click:           interact.DefaultClickTimeout,
		MaxAttempts:     interact.DefaultMaxAttempts,
		OverlayTimeout:  interact.DefaultOverlayTimeout,
		MaxPageSteps:    calendar.DefaultMaxSteps,
		Interval:        interact.DefaultInterval,
	}
}

// Network quiet periods awaited after specific steps.
const (
	loginIdle    = 500 * time.Millisecond
	calendarIdle = 600 * time.Millisecond
	saveIdle     = time.Second
	confirmIdle  = 800 * time.Millisecond
)

// Result describes a completed run.
type Result struct {
	Message   string        `json:"message"`
	Stage     Stage         `json:"stage"`
	Date      string        `json:"date"`
	Capacity  int           `json:"capacity"`
	Event     string        `json:"event,omitempty"`
	EventTime string        `json:"event_time,omitempty"`
	Score     int           `json:"score"`
	Duration  time.Duration `json:"duration_ns"`
}

// Orchestrator runs the stages in order against one page. It is single
// use: one Orchestrator per run.
type Orchestrator struct {
	Driver    browser.Driver
	Clicker   *interact.Clicker
	Navigator *calendar.Navigator
	Resolver  *resolve.Resolver
	Options   Options

	state     State
	candidate *resolve.Candidate
}

func New(d browser.Driver, opts Options) *Orchestrator {
	c := interact.NewClicker(d)
	c.Timeout = opts.Click
	c.MaxAttempts = opts.MaxAttempts
	c.OverlayTimeout = opts.OverlayTimeout
	c.Interval = opts.Interval
	c.Guard.Interval = opts.Interval

	nav := calendar.NewNavigator(d)
	nav.MaxSteps = opts.MaxPageSteps
	nav.SettleTimeout = min(nav.SettleTimeout, opts.Settle)
	if opts.Click > 0 {
		nav.ClickTimeout = opts.Click
	}

	res := resolve.NewResolver(d)
	res.RenderTimeout = opts.Default
	res.Interval = opts.Interval

	return &Orchestrator{
		Driver:    d,
		Clicker:   c,
		Navigator: nav,
		Resolver:  res,
		Options:   opts,
	}
}

// Stage reports the last stage passed.
func (o *Orchestrator) Stage() Stage { return o.state.Current() }

type step struct {
	stage Stage
	kind  failure.Kind
	run   func(ctx context.Context, t model.Target) error
}

// Run executes every stage. A failing stage ends the run with a classified
// *failure.Error; earlier stages' effects on the upstream system are not
// undone. In particular a save whose confirmation fails stays saved.
func (o *Orchestrator) Run(ctx context.Context, t model.Target) (Result, error) {
	started := time.Now()
	o.Navigator.Verbose = t.Debug

	steps := []step{
		{Authenticated, failure.KindAuthentication, o.authenticate},
		{CalendarOpen, failure.KindNavigation, o.openCalendar},
		{DateSelected, failure.KindDateNotReached, o.selectDate},
		{EventOpened, failure.KindInteraction, o.openEvent},
		{EditSurfaceReady, failure.KindInteraction, o.openEditSurface},
		{CapacitySet, failure.KindFieldNotFound, o.setCapacity},
		{Saved, failure.KindInteraction, o.save},
		{Confirmed, failure.KindConfirmation, o.confirm},
	}

	for _, s := range steps {
		appLog.Verbose(t.Debug, "stage start", "stage", s.stage, "date", t.DateKey())
		if err := s.run(ctx, t); err != nil {
			err = failure.WithStage(err, s.stage.String(), s.kind)
			appLog.Error("stage failed", err, "stage", s.stage, "reached", o.state.Current())
			return Result{Stage: o.state.Current(), Date: t.DateKey(), Capacity: t.Capacity}, err
		}
		if err := o.state.Advance(s.stage); err != nil {
			return Result{Stage: o.state.Current()}, err
		}
		appLog.Info("stage passed", "stage", s.stage)
	}

	res := Result{
		Message:  "updated " + t.Describe(),
		Stage:    o.state.Current(),
		Date:     t.DateKey(),
		Capacity: t.Capacity,
		Duration: time.Since(started),
	}
	if c := o.candidate; c != nil {
		res.Event = c.Text
		res.Score = c.Score
		if c.HasStart {
			res.EventTime = timeparse.Format(c.Start)
		}
	}
	return res, nil
}

func (o *Orchestrator) authenticate(ctx context.Context, _ model.Target) error {
	loginURL := strings.TrimRight(o.Options.BaseURL, "/") + o.Options.LoginPath
	navCtx, cancel := context.WithTimeout(ctx, o.Options.Navigation)
	err := o.Driver.Navigate(navCtx, loginURL)
	cancel()
	if err != nil {
		return failure.Wrap(failure.KindAuthentication, loginURL, err)
	}

	if err := o.Clicker.Fill(ctx, EmailField, o.Options.Email); err != nil {
		return failure.Wrap(failure.KindAuthentication, EmailField, err)
	}
	if err := o.Clicker.Fill(ctx, PasswordField, o.Options.Password); err != nil {
		return failure.Wrap(failure.KindAuthentication, PasswordField, err)
	}
	// Sign-in may finish with a full page load or an in-place render, so the
	// click does not insist on a load event.
	if err := o.Clicker.Click(ctx, LoginSubmit, interact.ClickOptions{}); err != nil {
		return failure.Wrap(failure.KindAuthentication, LoginSubmit, err)
	}
	interact.Settle(ctx, o.Driver, loginIdle, o.Options.Settle)

	// A rejected login keeps showing the same form.
	err = interact.Poll(ctx, o.Options.Navigation, o.Options.Interval, func(ctx context.Context) (bool, error) {
		els, err := o.Driver.Query(ctx, "", EmailField)
		if err != nil {
			// Between documents.
			return false, nil
		}
		_, shown := locate.FirstVisible(els)
		return !shown, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return failure.Wrap(failure.KindAuthentication, loginURL, ctx.Err())
		}
		return failure.New(failure.KindAuthentication, loginURL, "credentials rejected: login form still shown")
	}
	return nil
}

func (o *Orchestrator) openCalendar(ctx context.Context, _ model.Target) error {
	var errs []error
	for _, sel := range CalendarLinks {
		err := o.Clicker.Click(ctx, sel, interact.ClickOptions{})
		if err == nil {
			interact.Settle(ctx, o.Driver, calendarIdle, o.Options.Settle)
			return nil
		}
		errs = append(errs, err)
	}
	e := failure.Wrap(failure.KindNavigation, "calendar", errors.Join(errs...))
	e.Msg = "calendar menu link not found"
	return e
}

func (o *Orchestrator) selectDate(ctx context.Context, t model.Target) error {
	// Any earlier resolution belonged to a previous view.
	o.candidate = nil
	return o.Navigator.GotoDate(ctx, t.Date)
}

func (o *Orchestrator) openEvent(ctx context.Context, t model.Target) error {
	c, err := o.Resolver.Resolve(ctx, t)
	if err != nil {
		return err
	}
	if c.Date != t.DateKey() {
		return failure.New(failure.KindInteraction, c.Element.Ref, "candidate was resolved for another date")
	}
	o.candidate = &c
	appLog.Info("event selected", "date", c.Date, "score", c.Score, "text", c.Text)

	if err := o.Clicker.Click(ctx, c.Element.Ref, interact.ClickOptions{}); err != nil {
		return err
	}
	if _, err := locate.WaitDialog(ctx, o.Driver, o.Options.Modal, o.Options.Interval); err != nil {
		return failure.Wrap(failure.KindInteraction, locate.DialogSelector, fmt.Errorf("detail dialog did not open: %w", err))
	}
	return o.pause(ctx, o.Options.DialogAnimation)
}

func (o *Orchestrator) openEditSurface(ctx context.Context, _ model.Target) error {
	el, strategy, err := EditControl().First(ctx, o.Driver)
	if err != nil {
		return failure.Wrap(failure.KindInteraction, "edit control", err)
	}
	appLog.Debug("edit control located", "strategy", strategy, "text", el.Text, "href", el.Href)
	if !o.followEditLink(ctx, el) {
		if err := o.Clicker.Click(ctx, el.Ref, interact.ClickOptions{}); err != nil {
			return err
		}
	}

	// The form arrives either by a full page load or by replacing the
	// dialog content in place; poll for the field either way.
	if _, _, err := CapacityField().Await(ctx, o.Driver, o.Options.EditSurface, o.Options.Interval); err != nil {
		return failure.Wrap(failure.KindFieldNotFound, "capacity field",
			fmt.Errorf("edit surface did not appear at %s: %w", o.location(ctx), err))
	}
	loc := o.location(ctx)
	appLog.Info("edit surface ready", "url", loc, "edit_page", strings.Contains(loc, "edit"))
	return nil
}

// followEditLink loads the edit form directly when the control carries an
// edit URL. It reports false when there is none or the load failed, and
// the control should be clicked instead.
func (o *Orchestrator) followEditLink(ctx context.Context, el browser.Element) bool {
	target, ok := o.editURL(ctx, el.Href)
	if !ok {
		return false
	}
	navCtx, cancel := context.WithTimeout(ctx, o.Options.Navigation)
	defer cancel()
	if err := o.Driver.Navigate(navCtx, target); err != nil {
		appLog.Warn("edit link failed, clicking instead", "url", target, "err", err)
		return false
	}
	appLog.Debug("edit link followed", "url", target)
	return true
}

// editURL resolves href against the current page when it points at an
// edit route.
func (o *Orchestrator) editURL(ctx context.Context, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if !strings.Contains(strings.ToLower(href), "edit") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	base := o.Options.BaseURL
	if cur := o.location(ctx); cur != "" {
		base = cur
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	return b.ResolveReference(ref).String(), true
}

// location is the current page URL, or "" when it cannot be read.
func (o *Orchestrator) location(ctx context.Context) string {
	u, err := o.Driver.URL(ctx)
	if err != nil {
		appLog.Debug("page location unavailable", "err", err)
		return ""
	}
	return u
}

func (o *Orchestrator) setCapacity(ctx context.Context, t model.Target) error {
	el, _, err := CapacityField().Await(ctx, o.Driver, o.Options.Default, o.Options.Interval)
	if err != nil {
		return failure.Wrap(failure.KindFieldNotFound, "capacity field", err)
	}
	return o.Clicker.Fill(ctx, el.Ref, strconv.Itoa(t.Capacity))
}

func (o *Orchestrator) save(ctx context.Context, _ model.Target) error {
	el, strategy, err := SaveControl().First(ctx, o.Driver)
	if err != nil {
		return failure.Wrap(failure.KindInteraction, "save control", err)
	}
	appLog.Debug("save control located", "strategy", strategy, "text", el.Text)
	if err := o.Clicker.Click(ctx, el.Ref, interact.ClickOptions{}); err != nil {
		return err
	}
	interact.Settle(ctx, o.Driver, saveIdle, o.Options.Settle)
	return nil
}

func (o *Orchestrator) confirm(ctx context.Context, _ model.Target) error {
	if _, err := locate.WaitDialog(ctx, o.Driver, o.Options.Modal, o.Options.Interval); err != nil {
		return failure.Wrap(failure.KindConfirmation, locate.DialogSelector, fmt.Errorf("confirmation dialog did not open: %w", err))
	}
	el, strategy, err := ConfirmControl().First(ctx, o.Driver)
	if err != nil {
		return failure.Wrap(failure.KindConfirmation, "confirm control", err)
	}
	appLog.Info("confirmation control located", "strategy", strategy, "text", el.Text)
	if err := o.Clicker.Click(ctx, el.Ref, interact.ClickOptions{}); err != nil {
		return failure.Wrap(failure.KindConfirmation, el.Ref, err)
	}
	interact.Settle(ctx, o.Driver, confirmIdle, o.Options.Settle)
	return nil
}

func (o *Orchestrator) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
