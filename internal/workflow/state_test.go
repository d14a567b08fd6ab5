package workflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageString(t *testing.T) {
	assert.Equal(t, "started", Started.String())
	assert.Equal(t, "edit_surface_ready", EditSurfaceReady.String())
	assert.Equal(t, "confirmed", Confirmed.String())
	assert.Equal(t, "stage(42)", Stage(42).String())

	b, err := json.Marshal(CapacitySet)
	require.NoError(t, err)
	assert.JSONEq(t, `"capacity_set"`, string(b))
}

func TestStateAdvancesOneStageAtATime(t *testing.T) {
	var s State
	assert.Equal(t, Started, s.Current())

	require.NoError(t, s.Advance(Authenticated))
	assert.Error(t, s.Advance(DateSelected), "skipping a stage")
	assert.Error(t, s.Advance(Authenticated), "repeating a stage")
	assert.Equal(t, Authenticated, s.Current())

	for st := CalendarOpen; st <= Confirmed; st++ {
		require.NoError(t, s.Advance(st))
	}
	_, ok := s.Next()
	assert.False(t, ok)
	assert.Error(t, s.Advance(Confirmed+1))
}
