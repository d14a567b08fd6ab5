// Package resolve picks the calendar entry that best matches a target
// date, time and optional name among near-duplicates.
package resolve

import (
	"context"
	"fmt"
	"time"

	"seatcap/internal/browser"
	"seatcap/internal/failure"
	"seatcap/internal/interact"
	appLog "seatcap/internal/log"
	"seatcap/internal/model"
	"seatcap/internal/timeparse"
)

// EventSelector matches rendered calendar entries in every view.
const EventSelector = ".fc-timegrid-event, .fc-daygrid-event, .fc-event, a.fc-event, a.fc-daygrid-event"

// debugRows caps the candidate table logged per resolution.
const debugRows = 6

type Resolver struct {
	Driver browser.Driver

	// RenderTimeout bounds the wait for any entry to become visible. An
	// empty day never renders one, so the timeout is not an error.
	RenderTimeout time.Duration
	Interval      time.Duration

	Verbose bool
}

func NewResolver(d browser.Driver) *Resolver {
	return &Resolver{
		Driver:        d,
		RenderTimeout: 10 * time.Second,
		Interval:      interact.DefaultInterval,
	}
}

// Resolve returns the best candidate for t. A day with no entry that
// qualifies fails with failure.ErrNoMatchingEvent, which is an expected
// outcome rather than a broken automation.
func (r *Resolver) Resolve(ctx context.Context, t model.Target) (Candidate, error) {
	date := t.DateKey()

	if _, err := interact.WaitVisible(ctx, r.Driver, "", EventSelector, r.RenderTimeout, r.Interval); err != nil {
		appLog.Debug("no visible calendar entries yet", "date", date, "err", err)
	}

	els, err := r.Driver.Query(ctx, "", EventSelector)
	if err != nil {
		return Candidate{}, failure.Wrap(failure.KindInteraction, EventSelector, err)
	}

	ranked := Rank(els, date, t.Minutes, t.Name, t.StrictName)
	appLog.Verbose(t.Debug, "candidates ranked", "date", date, "rendered", len(els), "on_date", len(ranked))
	for i, c := range ranked {
		if i == debugRows {
			break
		}
		start := "-"
		if c.HasStart {
			start = timeparse.Format(c.Start)
		}
		appLog.Verbose(t.Debug, "candidate", "rank", i+1, "score", c.Score, "start", start, "text", truncate(c.Text, 140))
	}

	if len(ranked) == 0 {
		msg := fmt.Sprintf("no event at %s", t.Time)
		if t.Name != "" {
			msg += fmt.Sprintf(" matching %q", t.Name)
		}
		return Candidate{}, failure.New(failure.KindNoMatchingEvent, date, msg)
	}
	return ranked[0], nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
