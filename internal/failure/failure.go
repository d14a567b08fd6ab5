// Package failure defines the terminal error kinds a run can end with.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies why a run stopped.
type Kind string

const (
	KindAuthentication  Kind = "authentication_failure"
	KindNavigation      Kind = "navigation_failure"
	KindDateNotReached  Kind = "date_not_reachable"
	KindNoMatchingEvent Kind = "no_matching_event"
	KindInteraction     Kind = "interaction_failure"
	KindFieldNotFound   Kind = "field_not_found"
	KindConfirmation    Kind = "confirmation_failure"
)

// Sentinels for errors.Is. Any *Error of the same Kind matches.
var (
	ErrAuthentication   = &Error{Kind: KindAuthentication}
	ErrNavigation       = &Error{Kind: KindNavigation}
	ErrDateNotReachable = &Error{Kind: KindDateNotReached}
	ErrNoMatchingEvent  = &Error{Kind: KindNoMatchingEvent}
	ErrInteraction      = &Error{Kind: KindInteraction}
	ErrFieldNotFound    = &Error{Kind: KindFieldNotFound}
	ErrConfirmation     = &Error{Kind: KindConfirmation}
)

// Error is a classified run failure.
type Error struct {
	Kind Kind

	// Stage is the workflow stage that was being attempted, if known.
	Stage string

	// Target names the element, date or field involved.
	Target string

	Msg string
	Err error
}

func New(kind Kind, target, msg string) *Error {
	return &Error{Kind: kind, Target: target, Msg: msg}
}

func Wrap(kind Kind, target string, err error) *Error {
	return &Error{Kind: kind, Target: target, Err: err}
}

func (e *Error) Error() string {
	s := string(e.Kind)
	if e.Stage != "" {
		s += " at " + e.Stage
	}
	if e.Target != "" {
		s += fmt.Sprintf(" (%s)", e.Target)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

// WithStage stamps stage on err when it is an unstamped *Error, and wraps
// anything else as kind.
func WithStage(err error, stage string, kind Kind) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		if fe.Stage == "" {
			fe.Stage = stage
		}
		return err
	}
	return &Error{Kind: kind, Stage: stage, Err: err}
}
