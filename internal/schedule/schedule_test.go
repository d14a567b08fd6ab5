package schedule

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatcap/internal/config"
	appLog "seatcap/internal/log"
	"seatcap/internal/model"
	"seatcap/internal/runner"
	"seatcap/internal/workflow"
)

type fakeTrigger struct {
	mu      sync.Mutex
	targets []model.Target
	ctxErrs []error
	err     error
}

func (f *fakeTrigger) Run(ctx context.Context, t model.Target) (workflow.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, t)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.err != nil {
		return workflow.Result{}, f.err
	}
	return workflow.Result{Message: "updated " + t.Describe()}, nil
}

var wednesday = time.Date(2025, 10, 29, 6, 0, 0, 0, time.UTC)

func entry() config.ScheduleConfig {
	return config.ScheduleConfig{
		Name:     "friday-yoga",
		Cron:     "0 6 * * 3",
		RRule:    "FREQ=WEEKLY;BYDAY=FR",
		Time:     "08:00",
		Capacity: 12,
	}
}

func TestTargetDateFromRRule(t *testing.T) {
	j, err := NewJob(entry())
	require.NoError(t, err)

	d, err := j.TargetDate(wednesday)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-31", d.Format(model.DateLayout))

	friday := time.Date(2025, 10, 31, 23, 0, 0, 0, time.UTC)
	d, err = j.TargetDate(friday)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-31", d.Format(model.DateLayout), "the tick's own day qualifies")

	// Calling twice must not drift.
	d, err = j.TargetDate(wednesday)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-31", d.Format(model.DateLayout))
}

func TestTargetDateFromOffset(t *testing.T) {
	sc := entry()
	sc.RRule = ""
	sc.OffsetDays = 2
	j, err := NewJob(sc)
	require.NoError(t, err)

	tg, err := j.Target(wednesday)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-31", tg.DateKey())
	assert.Equal(t, 480, tg.Minutes)
	assert.Equal(t, 12, tg.Capacity)
}

func TestNewJobValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.ScheduleConfig)
	}{
		{"bad cron", func(sc *config.ScheduleConfig) { sc.Cron = "every friday" }},
		{"bad rrule", func(sc *config.ScheduleConfig) { sc.RRule = "FREQ=SOMETIMES" }},
		{"bad time", func(sc *config.ScheduleConfig) { sc.Time = "morning" }},
		{"no capacity", func(sc *config.ScheduleConfig) { sc.Capacity = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := entry()
			tt.mutate(&sc)
			_, err := NewJob(sc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "friday-yoga")
		})
	}

	_, err := New(&fakeTrigger{}, []config.ScheduleConfig{entry(), {Name: "broken", Cron: "x"}}, time.UTC)
	assert.Error(t, err)
}

func TestFireRunsTarget(t *testing.T) {
	trig := &fakeTrigger{}
	s, err := New(trig, []config.ScheduleConfig{entry()}, time.UTC)
	require.NoError(t, err)
	s.Now = func() time.Time { return wednesday }
	require.Len(t, s.Jobs(), 1)

	s.Fire(context.Background(), s.Jobs()[0])
	require.Len(t, trig.targets, 1)
	assert.Equal(t, "2025-10-31", trig.targets[0].DateKey())
}

func TestFireOutlivesCancelledParent(t *testing.T) {
	trig := &fakeTrigger{}
	s, err := New(trig, []config.ScheduleConfig{entry()}, time.UTC)
	require.NoError(t, err)
	s.Now = func() time.Time { return wednesday }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Fire(ctx, s.Jobs()[0])
	require.Len(t, trig.ctxErrs, 1)
	assert.NoError(t, trig.ctxErrs[0], "shutdown must not cancel a started run")
}

func TestFireSkipsWhenBusy(t *testing.T) {
	var buf bytes.Buffer
	appLog.SetOutput(&buf)
	defer appLog.SetOutput(os.Stderr)

	trig := &fakeTrigger{err: runner.ErrBusy}
	s, err := New(trig, []config.ScheduleConfig{entry()}, time.UTC)
	require.NoError(t, err)
	s.Now = func() time.Time { return wednesday }

	s.Fire(context.Background(), s.Jobs()[0])
	assert.Len(t, trig.targets, 1, "one attempt, no retry or queueing")
	assert.Contains(t, buf.String(), "scheduled run skipped")
}

func TestStartStopsWithContext(t *testing.T) {
	s, err := New(&fakeTrigger{}, []config.ScheduleConfig{entry()}, time.UTC)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	assert.Len(t, s.cron.Entries(), 1)
	cancel()
}

func TestNextTick(t *testing.T) {
	j, err := NewJob(entry())
	require.NoError(t, err)

	next, err := j.Next(wednesday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 11, 5, 6, 0, 0, 0, time.UTC), next, "ticks strictly after now")

	tg, err := j.Target(next)
	require.NoError(t, err)
	assert.Equal(t, "2025-11-07", tg.DateKey())
}
