// Package locate finds controls whose markup is not stable by trying an
// ordered list of small strategies.
package locate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"seatcap/internal/browser"
	"seatcap/internal/interact"
	appLog "seatcap/internal/log"
)

// ErrNotFound is returned when every strategy in a chain came up empty.
var ErrNotFound = errors.New("no locator matched")

// Finder looks for one element.
type Finder func(ctx context.Context, d browser.Driver) (browser.Element, bool, error)

// Strategy is a named Finder.
type Strategy struct {
	Name string
	Find Finder
}

// Chain is evaluated in order; the first strategy that finds an element wins.
type Chain []Strategy

// First returns the first hit and the name of the strategy that produced it.
// A strategy that errors is skipped.
func (c Chain) First(ctx context.Context, d browser.Driver) (browser.Element, string, error) {
	var lastErr error
	for _, s := range c {
		el, ok, err := s.Find(ctx, d)
		if err != nil {
			appLog.Debug("locator errored", "strategy", s.Name, "err", err)
			lastErr = err
			continue
		}
		if ok {
			appLog.Debug("locator matched", "strategy", s.Name, "ref", el.Ref, "text", el.Text)
			return el, s.Name, nil
		}
	}
	if lastErr != nil {
		return browser.Element{}, "", fmt.Errorf("%w (tried %s; last error: %v)", ErrNotFound, c.names(), lastErr)
	}
	return browser.Element{}, "", fmt.Errorf("%w (tried %s)", ErrNotFound, c.names())
}

// Await re-runs First until it finds something or timeout elapses. It
// covers content that arrives by in-place replacement as well as by a full
// page load.
func (c Chain) Await(ctx context.Context, d browser.Driver, timeout, interval time.Duration) (browser.Element, string, error) {
	var (
		el   browser.Element
		name string
		last error
	)
	err := interact.Poll(ctx, timeout, interval, func(ctx context.Context) (bool, error) {
		var err error
		el, name, err = c.First(ctx, d)
		if err != nil {
			last = err
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		if last != nil {
			return browser.Element{}, "", fmt.Errorf("%w after %s", last, timeout)
		}
		return browser.Element{}, "", fmt.Errorf("%w after %s: %v", ErrNotFound, timeout, err)
	}
	return el, name, nil
}

func (c Chain) names() string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.Name
	}
	return strings.Join(names, ", ")
}

// Selector finds the first visible element matching sel inside scope.
func Selector(scope, sel string) Strategy {
	return Strategy{
		Name: "selector " + sel,
		Find: func(ctx context.Context, d browser.Driver) (browser.Element, bool, error) {
			els, err := d.Query(ctx, scope, sel)
			if err != nil {
				return browser.Element{}, false, err
			}
			el, ok := FirstVisible(els)
			return el, ok, nil
		},
	}
}

// Text finds a visible control among controls inside scope whose label
// contains one of phrases. Phrases are tried in order, so list the most
// specific first. Labels containing any of exclude are never chosen.
func Text(scope, controls string, phrases, exclude []string) Strategy {
	return Strategy{
		Name: fmt.Sprintf("text %q", phrases),
		Find: func(ctx context.Context, d browser.Driver) (browser.Element, bool, error) {
			els, err := d.Query(ctx, scope, controls)
			if err != nil {
				return browser.Element{}, false, err
			}
			el, ok := MatchText(els, phrases, exclude)
			return el, ok, nil
		},
	}
}

// SelectorExcept is Selector that passes over elements whose label
// contains any of exclude.
func SelectorExcept(scope, sel string, exclude []string) Strategy {
	return Strategy{
		Name: "selector " + sel,
		Find: func(ctx context.Context, d browser.Driver) (browser.Element, bool, error) {
			els, err := d.Query(ctx, scope, sel)
			if err != nil {
				return browser.Element{}, false, err
			}
			for _, el := range els {
				if el.Visible && !excluded(el.Text, exclude) {
					return el, true, nil
				}
			}
			return browser.Element{}, false, nil
		},
	}
}

// FirstVisible returns the first visible element.
func FirstVisible(els []browser.Element) (browser.Element, bool) {
	for _, el := range els {
		if el.Visible {
			return el, true
		}
	}
	return browser.Element{}, false
}

// MatchText picks, for the first phrase that matches anything, the first
// visible element whose normalized label contains it.
func MatchText(els []browser.Element, phrases, exclude []string) (browser.Element, bool) {
	for _, phrase := range phrases {
		for _, el := range els {
			if !el.Visible || !Contains(el.Text, phrase) || excluded(el.Text, exclude) {
				continue
			}
			return el, true
		}
	}
	return browser.Element{}, false
}

func excluded(label string, exclude []string) bool {
	for _, x := range exclude {
		if Contains(label, x) {
			return true
		}
	}
	return false
}
