package workflow

import (
	"encoding/json"
	"fmt"
)

// Stage is a gate of the capacity-update workflow. Stages are passed in
// declaration order.
type Stage int

const (
	// Started is the cursor before any gate has been passed.
	Started Stage = iota
	Authenticated
	CalendarOpen
	DateSelected
	EventOpened
	EditSurfaceReady
	CapacitySet
	Saved
	Confirmed
)

var stageNames = [...]string{
	Started:          "started",
	Authenticated:    "authenticated",
	CalendarOpen:     "calendar_open",
	DateSelected:     "date_selected",
	EventOpened:      "event_opened",
	EditSurfaceReady: "edit_surface_ready",
	CapacitySet:      "capacity_set",
	Saved:            "saved",
	Confirmed:        "confirmed",
}

func (s Stage) String() string {
	if s < Started || s > Confirmed {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

func (s Stage) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// State is the run's cursor over the stages. It only moves forward, one
// stage at a time.
type State struct {
	current Stage
}

func (s *State) Current() Stage { return s.current }

// Next is the stage the run is attempting. ok is false once Confirmed.
func (s *State) Next() (Stage, bool) {
	if s.current == Confirmed {
		return Confirmed, false
	}
	return s.current + 1, true
}

// Advance moves the cursor to to, which must be the immediate next stage.
func (s *State) Advance(to Stage) error {
	next, ok := s.Next()
	if !ok || to != next {
		return fmt.Errorf("workflow: cannot move from %s to %s", s.current, to)
	}
	s.current = to
	return nil
}
