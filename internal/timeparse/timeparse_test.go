package timeparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"08:00", 480, true},
		{"8:00 am", 480, true},
		{"8:00am", 480, true},
		{"8.00 a.m.", 480, true},
		{"8:00 A. M.", 480, true},
		{"08.00", 480, true},
		{"20:00", 1200, true},
		{"8:00 pm", 1200, true},
		{"8:00 P.M.", 1200, true},
		{"12:00 am", 0, true},
		{"12:00 pm", 720, true},
		{"12:00", 720, true},
		{"00:00", 0, true},
		{"23:59", 1439, true},
		{"  7:15  ", 435, true},
		{"25:00", 0, false},
		{"8:75", 0, false},
		{"13:00 pm", 0, false},
		{"eight", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Minutes(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSameInstantAcrossForms(t *testing.T) {
	pairs := [][2]string{
		{"8:00 am", "08:00"},
		{"8:00 pm", "20:00"},
		{"12:30 p.m.", "12:30"},
		{"12:30 am", "00:30"},
		{"9.45pm", "21:45"},
	}
	for _, p := range pairs {
		a, okA := Minutes(p[0])
		b, okB := Minutes(p[1])
		assert.True(t, okA && okB, "%q / %q", p[0], p[1])
		assert.Equal(t, a, b, "%q / %q", p[0], p[1])
	}
}

func TestFirstInText(t *testing.T) {
	got, ok := FirstInText("Yoga Flow\n8:00 am - 9:00 am\nSala 2")
	assert.True(t, ok)
	assert.Equal(t, 480, got)

	got, ok = FirstInText("06:30 - 07:30 Spinning")
	assert.True(t, ok)
	assert.Equal(t, 390, got)

	_, ok = FirstInText("Clase cancelada")
	assert.False(t, ok)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "08:00", Format(480))
	assert.Equal(t, "00:05", Format(5))
	assert.Equal(t, "23:59", Format(1439))
}
