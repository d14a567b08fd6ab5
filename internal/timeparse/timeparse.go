// Package timeparse turns loosely typed clock times into minute-of-day values.
package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// "a.m.", "a. m.", "a m", "AM" all collapse to "am".
	meridiemAM = regexp.MustCompile(`a\s*\.?\s*m\.?`)
	meridiemPM = regexp.MustCompile(`p\s*\.?\s*m\.?`)

	clockToken = regexp.MustCompile(`(\d{1,2})[:.](\d{2})\s*(am|pm)?`)
)

// Minutes parses the first clock time found in s and returns its
// minute-of-day in [0, 1439]. It accepts "08:00", "8.00", "20:00",
// "8:00 am", "8:00pm", "8:00 p.m." and similar spellings. 12 am is
// midnight and 12 pm (or a bare 12:00) is noon.
func Minutes(s string) (int, bool) {
	m := clockToken.FindStringSubmatch(normalize(s))
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if mm > 59 {
		return 0, false
	}

	switch m[3] {
	case "am":
		if h > 12 {
			return 0, false
		}
		if h == 12 {
			h = 0
		}
	case "pm":
		if h < 1 || h > 12 {
			return 0, false
		}
		if h != 12 {
			h += 12
		}
	default:
		if h > 23 {
			return 0, false
		}
	}
	return h*60 + mm, true
}

// FirstInText returns the start time of free text such as a calendar
// entry label ("8:00 am - 9:00 am Yoga"). It is Minutes under a name that
// reads better at call sites dealing with display text.
func FirstInText(text string) (int, bool) {
	return Minutes(text)
}

// Format renders minutes as zero-padded 24-hour "HH:MM".
func Format(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = meridiemAM.ReplaceAllString(s, "am")
	return meridiemPM.ReplaceAllString(s, "pm")
}
