package resolve

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatcap/internal/browser"
	"seatcap/internal/browser/browsertest"
	"seatcap/internal/failure"
	"seatcap/internal/model"
)

const day = "2025-10-31"

func ev(ref, text string, dates ...string) browser.Element {
	return browser.Element{Ref: ref, Text: text, Visible: true, Dates: dates}
}

func TestTimeScore(t *testing.T) {
	assert.Equal(t, 100, TimeScore(480, true, 480))
	assert.Equal(t, 70, TimeScore(510, true, 480))
	assert.Equal(t, 70, TimeScore(450, true, 480))
	assert.Equal(t, 0, TimeScore(720, true, 480))
	assert.Equal(t, 0, TimeScore(0, false, 480))
	// midnight is a real time, not a missing one
	assert.Equal(t, 100, TimeScore(0, true, 0))
}

func TestNameScore(t *testing.T) {
	assert.Equal(t, 50, NameScore("8:00 am yoga", ""))
	assert.Equal(t, 50, NameScore("8:00 am yoga flow", "Yoga"))
	assert.Equal(t, 0, NameScore("8:00 am spinning", "yoga"))
}

func TestRankPicksMinimalDistance(t *testing.T) {
	els := []browser.Element{
		ev("#a", "7:00 am Pilates", day),
		ev("#b", "8:15 am Spinning", day),
		ev("#c", "10:00 am Box", day),
	}
	ranked := Rank(els, day, 480, "", false)
	require.Len(t, ranked, 3)
	assert.Equal(t, "#b", ranked[0].Element.Ref)
	assert.Equal(t, 85+50, ranked[0].Score)
	assert.Equal(t, day, ranked[0].Date)
}

// Equal top scores are broken by first-encountered order. This mirrors the
// upstream behavior and is a known ambiguity, not an intended rule.
func TestRankTieKeepsFirstEncountered(t *testing.T) {
	els := []browser.Element{
		ev("#early", "7:30 am Yoga", day),
		ev("#late", "8:30 am Yoga", day),
	}
	ranked := Rank(els, day, 480, "", false)
	require.Len(t, ranked, 2)
	assert.Equal(t, ranked[0].Score, ranked[1].Score)
	assert.Equal(t, "#early", ranked[0].Element.Ref)

	ranked = Rank([]browser.Element{els[1], els[0]}, day, 480, "", false)
	assert.Equal(t, "#late", ranked[0].Element.Ref)
}

func TestRankFiltersByDate(t *testing.T) {
	els := []browser.Element{
		ev("#other", "8:00 am Yoga", "2025-10-30"),
		ev("#nested", "9:00 am Yoga", "2025-10-31T09:00", day),
		ev("#none", "8:00 am Yoga"),
	}
	ranked := Rank(els, day, 480, "", false)
	require.Len(t, ranked, 1)
	assert.Equal(t, "#nested", ranked[0].Element.Ref)
}

func TestRankNameFilter(t *testing.T) {
	els := []browser.Element{
		ev("#spin", "8:00 am Spinning", day),
		ev("#yoga", "8:10 am Yoga Flow", day),
	}

	ranked := Rank(els, day, 480, "yoga", false)
	require.Len(t, ranked, 2)
	assert.Equal(t, "#yoga", ranked[0].Element.Ref)
	assert.Equal(t, 90+50, ranked[0].Score)
	assert.Equal(t, 100, ranked[1].Score)

	ranked = Rank(els, day, 480, "yoga", true)
	require.Len(t, ranked, 1)
	assert.Equal(t, "#yoga", ranked[0].Element.Ref)

	assert.Empty(t, Rank(els, day, 480, "box", true))
}

func TestRankWithoutTime(t *testing.T) {
	ranked := Rank([]browser.Element{ev("#x", "Clase especial", day)}, day, 480, "", false)
	require.Len(t, ranked, 1)
	assert.False(t, ranked[0].HasStart)
	assert.Equal(t, 50, ranked[0].Score)
}

func newResolver(p *browsertest.Page) *Resolver {
	r := NewResolver(p)
	r.RenderTimeout = 20 * time.Millisecond
	r.Interval = time.Millisecond
	return r
}

func target(t *testing.T, clock string) model.Target {
	t.Helper()
	tg, err := model.NewTarget(day, clock, "", 2, false, true)
	require.NoError(t, err)
	return tg
}

func TestResolveSingleCandidate(t *testing.T) {
	p := browsertest.New()
	p.Add("", EventSelector, &browsertest.Node{Element: ev("#ev", "8:00 am Yoga", day)})

	c, err := newResolver(p).Resolve(context.Background(), target(t, "08:00"))
	require.NoError(t, err)
	assert.Equal(t, "#ev", c.Element.Ref)
	assert.Equal(t, 480, c.Start)
	assert.Equal(t, 150, c.Score)

	// The only candidate is returned even when the time is off.
	c, err = newResolver(p).Resolve(context.Background(), target(t, "09:00"))
	require.NoError(t, err)
	assert.Equal(t, "#ev", c.Element.Ref)
	assert.Equal(t, 40+50, c.Score)
}

func TestResolveNoMatchingEvent(t *testing.T) {
	p := browsertest.New()
	p.Add("", EventSelector, &browsertest.Node{Element: ev("#ev", "8:00 am Yoga", "2025-11-01")})

	_, err := newResolver(p).Resolve(context.Background(), target(t, "08:00"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, failure.ErrNoMatchingEvent))
	assert.False(t, errors.Is(err, failure.ErrInteraction))
}

func TestResolveEmptyDay(t *testing.T) {
	_, err := newResolver(browsertest.New()).Resolve(context.Background(), target(t, "08:00"))
	assert.True(t, errors.Is(err, failure.ErrNoMatchingEvent))
}
