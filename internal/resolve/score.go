package resolve

import (
	"sort"
	"strings"

	"seatcap/internal/browser"
	"seatcap/internal/timeparse"
)

const (
	// TimeWeight is awarded for an exact start time and decays by one per
	// minute of distance.
	TimeWeight = 100

	// NameWeight is awarded when the name filter matches, or when there is
	// no filter at all.
	NameWeight = 50
)

// Candidate is one scored calendar entry for a single date.
type Candidate struct {
	Element browser.Element

	// Date is the calendar key the candidate was scored against. A
	// candidate must not be used for any other date.
	Date string

	// Text is the lower-cased display text.
	Text string

	Start    int
	HasStart bool
	Score    int
}

// TimeScore compares an extracted start with the target minute-of-day.
func TimeScore(start int, hasStart bool, target int) int {
	if !hasStart {
		return 0
	}
	if start == target {
		return TimeWeight
	}
	d := start - target
	if d < 0 {
		d = -d
	}
	return max(0, TimeWeight-d)
}

// NameScore is neutral (full weight) without a filter, full weight when
// the filter is a case-insensitive substring of text, and zero otherwise.
func NameScore(text, filter string) int {
	if filter == "" {
		return NameWeight
	}
	if strings.Contains(strings.ToLower(text), strings.ToLower(filter)) {
		return NameWeight
	}
	return 0
}

// Rank scores every element keyed to date and returns them best first.
// Equal scores keep document order, so the first-encountered entry wins a
// tie. With strict set and a non-empty name, entries not containing the
// name are dropped.
func Rank(els []browser.Element, date string, target int, name string, strict bool) []Candidate {
	out := make([]Candidate, 0, len(els))
	for _, el := range els {
		if !el.HasDate(date) {
			continue
		}
		text := strings.ToLower(strings.TrimSpace(el.Text))
		ns := NameScore(text, name)
		if strict && name != "" && ns == 0 {
			continue
		}
		start, ok := timeparse.FirstInText(text)
		out = append(out, Candidate{
			Element:  el,
			Date:     date,
			Text:     text,
			Start:    start,
			HasStart: ok,
			Score:    TimeScore(start, ok, target) + ns,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
