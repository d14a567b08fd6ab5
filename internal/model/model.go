package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"seatcap/internal/timeparse"
)

// DateLayout is the calendar key format used by the upstream calendar
// widget (data-date="2025-10-31").
const DateLayout = "2006-01-02"

// Target describes one capacity change: which class occurrence to edit
// and the seat count to set. It is built once per run and never mutated.
type Target struct {
	// Date is the class day, at midnight UTC.
	Date time.Time

	// Time is the start time as supplied ("08:00", "8:00 am").
	Time string

	// Minutes is Time parsed to minute-of-day.
	Minutes int

	// Name optionally filters candidate events by substring.
	Name string

	// Capacity is the new seat count.
	Capacity int

	// StrictName discards candidates that do not contain Name.
	StrictName bool

	// Debug surfaces candidate tables and page console output at INFO.
	Debug bool
}

// ErrInvalidTarget marks input that cannot describe a run.
var ErrInvalidTarget = errors.New("invalid target")

// NewTarget validates raw trigger input.
func NewTarget(date, clock, name string, capacity int, strictName, debug bool) (Target, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return Target{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidTarget, date)
	}
	mins, ok := timeparse.Minutes(clock)
	if !ok {
		return Target{}, fmt.Errorf("%w: time %q is not a clock time", ErrInvalidTarget, clock)
	}
	if capacity <= 0 {
		return Target{}, fmt.Errorf("%w: capacity must be a positive integer, got %d", ErrInvalidTarget, capacity)
	}
	return Target{
		Date:       d,
		Time:       strings.TrimSpace(clock),
		Minutes:    mins,
		Name:       strings.TrimSpace(name),
		Capacity:   capacity,
		StrictName: strictName,
		Debug:      debug,
	}, nil
}

// DateKey is the calendar key for Date.
func (t Target) DateKey() string {
	return t.Date.Format(DateLayout)
}

// Describe renders the run summary used in success messages,
// e.g. `capacity 2 on 2025-10-31 at 08:00 for "Yoga"`.
func (t Target) Describe() string {
	s := fmt.Sprintf("capacity %d on %s at %s", t.Capacity, t.DateKey(), t.Time)
	if t.Name != "" {
		s += fmt.Sprintf(" for %q", t.Name)
	}
	return s
}
