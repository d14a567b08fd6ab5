package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElementHasDate(t *testing.T) {
	el := Element{Dates: []string{"2025-10-31", "2025-10-27"}}
	assert.True(t, el.HasDate("2025-10-31"))
	assert.True(t, el.HasDate("2025-10-27"))
	assert.False(t, el.HasDate("2025-11-01"))
	assert.False(t, Element{}.HasDate("2025-10-31"))
}

func TestScriptQuotesArguments(t *testing.T) {
	js := script(hitTestJS, `[data-seatcap-ref="3"]`)
	assert.Contains(t, js, `})("[data-seatcap-ref=\"3\"]")`)

	js = script(queryJS, "", `td[data-date="2025-10-31"]`)
	assert.Contains(t, js, `})("", "td[data-date=\"2025-10-31\"]")`)
}

func TestNetTrackerIgnoresUnknownFinishes(t *testing.T) {
	nt := newNetTracker()
	nt.started("a")
	nt.started("b")
	nt.finished("a")
	nt.finished("zzz")
	n, _ := nt.state()
	assert.Equal(t, 1, n)
}
