// Package schedule fires configured capacity changes on cron ticks.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/teambition/rrule-go"

	"seatcap/internal/config"
	appLog "seatcap/internal/log"
	"seatcap/internal/model"
	"seatcap/internal/runner"
	"seatcap/internal/workflow"
)

// lookahead bounds the search for an RRULE occurrence.
const lookahead = 366 * 24 * time.Hour

// Trigger runs one capacity change.
type Trigger interface {
	Run(ctx context.Context, t model.Target) (workflow.Result, error)
}

// Job is one validated schedules entry.
type Job struct {
	Config config.ScheduleConfig
}

// NewJob validates sc.
func NewJob(sc config.ScheduleConfig) (*Job, error) {
	name := sc.Name
	if name == "" {
		name = sc.Cron
	}
	if _, err := cron.ParseStandard(sc.Cron); err != nil {
		return nil, fmt.Errorf("schedule %q: cron: %w", name, err)
	}
	if sc.Capacity <= 0 {
		return nil, fmt.Errorf("schedule %q: capacity must be positive", name)
	}
	j := &Job{Config: sc}
	if _, err := j.parseRule(); err != nil {
		return nil, fmt.Errorf("schedule %q: rrule: %w", name, err)
	}
	// Validate the clock part early; the date is filled per tick.
	if _, err := model.NewTarget("2000-01-01", sc.Time, sc.ClassName, sc.Capacity, sc.StrictName, false); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", name, err)
	}
	return j, nil
}

// TargetDate returns the class date for a tick at now: the first RRULE
// occurrence on or after now's day, or that day plus OffsetDays.
func (j *Job) TargetDate(now time.Time) (time.Time, error) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	rule, err := j.parseRule()
	if err != nil {
		return time.Time{}, err
	}
	if rule == nil {
		return day.AddDate(0, 0, j.Config.OffsetDays), nil
	}
	// Anchor the rule at the tick's day so occurrences fall at midnight.
	rule.DTStart(day)
	occ := rule.Between(day, day.Add(lookahead), true)
	if len(occ) == 0 {
		return time.Time{}, fmt.Errorf("schedule %q: rrule has no occurrence within a year of %s", j.Config.Name, day.Format(model.DateLayout))
	}
	return occ[0], nil
}

// Next returns the first tick after now.
func (j *Job) Next(now time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(j.Config.Cron)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(now), nil
}

// parseRule returns nil when the job has no RRULE. A fresh rule is
// parsed per call since DTStart mutates it.
func (j *Job) parseRule() (*rrule.RRule, error) {
	if strings.TrimSpace(j.Config.RRule) == "" {
		return nil, nil
	}
	return rrule.StrToRRule(j.Config.RRule)
}

// Target builds the run target for a tick at now.
func (j *Job) Target(now time.Time) (model.Target, error) {
	d, err := j.TargetDate(now)
	if err != nil {
		return model.Target{}, err
	}
	sc := j.Config
	return model.NewTarget(d.Format(model.DateLayout), sc.Time, sc.ClassName, sc.Capacity, sc.StrictName, false)
}

// Scheduler owns the cron loop.
type Scheduler struct {
	cron    *cron.Cron
	trigger Trigger
	jobs    []*Job
	loc     *time.Location

	// Now is the clock used to date each tick.
	Now func() time.Time
}

// New validates every entry and registers it. Ticks are evaluated in loc.
func New(trigger Trigger, schedules []config.ScheduleConfig, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger{}),
			cron.WithChain(cron.Recover(cronLogger{})),
		),
		trigger: trigger,
		loc:     loc,
		Now:     time.Now,
	}

	var errs []error
	for _, sc := range schedules {
		j, err := NewJob(sc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.jobs = append(s.jobs, j)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return s, nil
}

// Jobs returns the registered jobs.
func (s *Scheduler) Jobs() []*Job { return s.jobs }

// Start begins firing jobs until ctx ends. It does not block.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, j := range s.jobs {
		if _, err := s.cron.AddFunc(j.Config.Cron, func() { s.Fire(ctx, j) }); err != nil {
			return fmt.Errorf("schedule %q: %w", j.Config.Name, err)
		}
		appLog.Info("schedule registered", "name", j.Config.Name, "cron", j.Config.Cron, "rrule", j.Config.RRule)
	}
	s.cron.Start()
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
	}()
	return nil
}

// Fire runs j once for the current tick. A busy runner skips the tick.
// A run already started is not abandoned when ctx ends; it stops on its
// own timeouts.
func (s *Scheduler) Fire(ctx context.Context, j *Job) {
	ctx = context.WithoutCancel(ctx)
	now := s.Now().In(s.loc)
	t, err := j.Target(now)
	if err != nil {
		appLog.Error("scheduled run not started", err, "name", j.Config.Name)
		return
	}
	appLog.Info("scheduled run", "name", j.Config.Name, "target", t.Describe())

	res, err := s.trigger.Run(ctx, t)
	switch {
	case errors.Is(err, runner.ErrBusy):
		appLog.Warn("scheduled run skipped, another run is active", "name", j.Config.Name)
	case err != nil:
		appLog.Error("scheduled run failed", err, "name", j.Config.Name)
	default:
		appLog.Info("scheduled run done", "name", j.Config.Name, "message", res.Message)
	}
}

// cronLogger routes cron's own logging through the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	appLog.Error("cron: "+msg, err, kv...)
}
