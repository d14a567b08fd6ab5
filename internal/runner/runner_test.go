package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatcap/internal/browser"
	"seatcap/internal/browser/browsertest"
	"seatcap/internal/config"
	"seatcap/internal/failure"
	"seatcap/internal/model"
	"seatcap/internal/runlock"
	"seatcap/internal/workflow"
)

type recordingSnapshotter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *recordingSnapshotter) Capture(ctx context.Context, d browser.Driver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func fastOptions() workflow.Options {
	o := workflow.DefaultOptions()
	o.BaseURL = "https://studio.example"
	o.Default = 20 * time.Millisecond
	o.Navigation = 20 * time.Millisecond
	o.Click = 20 * time.Millisecond
	o.MaxAttempts = 1
	o.OverlayTimeout = 5 * time.Millisecond
	o.Settle = 5 * time.Millisecond
	o.Interval = time.Millisecond
	return o
}

func target(t *testing.T) model.Target {
	t.Helper()
	tg, err := model.NewTarget("2025-10-31", "08:00", "", 2, false, false)
	require.NoError(t, err)
	return tg
}

func TestRunFailureCapturesAndCloses(t *testing.T) {
	page := browsertest.New()
	closed := 0
	snap := &recordingSnapshotter{err: errors.New("disk full")}
	r := &Runner{
		Lock: &runlock.Lock{},
		NewDriver: func(context.Context, bool) (browser.Driver, func(), error) {
			return page, func() { closed++ }, nil
		},
		Snapshotter: snap,
		Options:     fastOptions(),
	}

	res, err := r.Run(context.Background(), target(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, failure.ErrAuthentication), "capture error must not replace the run error: %v", err)
	assert.Equal(t, workflow.Started, res.Stage)
	assert.Equal(t, 1, snap.calls)
	assert.Equal(t, 1, closed)
	assert.False(t, r.Busy())
	assert.Equal(t, []string{"https://studio.example/sessions/new"}, page.Navigations())
}

func TestRunRejectsConcurrentTrigger(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	r := &Runner{
		Lock: &runlock.Lock{},
		NewDriver: func(context.Context, bool) (browser.Driver, func(), error) {
			close(entered)
			<-unblock
			return nil, nil, errors.New("no browser")
		},
		Options: fastOptions(),
	}

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), target(t))
		done <- err
	}()
	<-entered
	assert.True(t, r.Busy())

	start := time.Now()
	_, err := r.Run(context.Background(), target(t))
	assert.ErrorIs(t, err, ErrBusy)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "busy rejection must not wait")

	close(unblock)
	first := <-done
	require.Error(t, first)
	assert.NotErrorIs(t, first, ErrBusy)
	assert.Contains(t, first.Error(), "no browser")
	assert.False(t, r.Busy(), "lock is released after a failed start")
}

// hangingPage never finishes a navigation before ctx ends.
type hangingPage struct {
	*browsertest.Page
}

func (h hangingPage) Navigate(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRunDeadlineReleasesLock(t *testing.T) {
	o := fastOptions()
	o.Navigation = time.Hour
	r := &Runner{
		Lock: &runlock.Lock{},
		NewDriver: func(context.Context, bool) (browser.Driver, func(), error) {
			return hangingPage{browsertest.New()}, func() {}, nil
		},
		Options: o,
		Timeout: 30 * time.Millisecond,
	}

	start := time.Now()
	_, err := r.Run(context.Background(), target(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, failure.ErrAuthentication)
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, r.Busy())
}

func TestWorkflowOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Upstream = config.UpstreamConfig{BaseURL: "https://studio.example", LoginPath: "/login", Email: "a@b.c", Password: "pw"}
	cfg.Timeouts.Click = 3 * time.Second
	cfg.Click.MaxAttempts = 5
	cfg.Calendar.MaxPageSteps = 6

	assert.Equal(t, 10*time.Minute, New(cfg, &runlock.Lock{}).Timeout)

	o := WorkflowOptions(cfg)
	assert.Equal(t, "https://studio.example", o.BaseURL)
	assert.Equal(t, "/login", o.LoginPath)
	assert.Equal(t, "pw", o.Password)
	assert.Equal(t, 3*time.Second, o.Click)
	assert.Equal(t, 5, o.MaxAttempts)
	assert.Equal(t, 6, o.MaxPageSteps)
	assert.Equal(t, 300*time.Millisecond, o.DialogAnimation)

	b := BrowserOptions(cfg)
	assert.True(t, b.Headless)
	assert.Equal(t, config.DefaultTimezone, b.Timezone)
	assert.Equal(t, 1280, b.Width)
}

func TestRequestMergeAndTarget(t *testing.T) {
	defaults := config.DefaultsConfig{Date: "2025-10-31", Time: "08:00", Name: "Yoga", Capacity: 10, StrictName: true}

	tg, err := Request{Capacity: 2}.Merge(defaults).Target()
	require.NoError(t, err)
	assert.Equal(t, "2025-10-31", tg.DateKey())
	assert.Equal(t, 480, tg.Minutes)
	assert.Equal(t, "Yoga", tg.Name)
	assert.Equal(t, 2, tg.Capacity)
	assert.True(t, tg.StrictName)

	loose := false
	tg, err = Request{Date: "2025-11-01", Time: "9:30 pm", StrictName: &loose}.Merge(defaults).Target()
	require.NoError(t, err)
	assert.Equal(t, "2025-11-01", tg.DateKey())
	assert.Equal(t, 21*60+30, tg.Minutes)
	assert.Equal(t, 10, tg.Capacity)
	assert.False(t, tg.StrictName)

	_, err = Request{Date: "2025-10-31", Time: "soon", Capacity: 2}.Target()
	assert.ErrorIs(t, err, model.ErrInvalidTarget)
	_, err = Request{Date: "31/10/2025", Time: "08:00", Capacity: 2}.Target()
	assert.ErrorIs(t, err, model.ErrInvalidTarget)
	_, err = Request{Date: "2025-10-31", Time: "08:00"}.Target()
	assert.ErrorIs(t, err, model.ErrInvalidTarget)
}
