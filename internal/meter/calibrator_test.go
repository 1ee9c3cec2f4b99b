package meter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalibrate(t *testing.T) {
	tests := []struct {
		name   string
		raw    float64
		offset float64
		want   float64
	}{
		{name: "silence maps to zero", raw: -160, offset: 0, want: 0},
		{name: "full scale maps to 120", raw: 0, offset: 0, want: 120},
		{name: "mid range", raw: -50, offset: 0, want: 70},
		{name: "positive offset", raw: -50, offset: 5.5, want: 75.5},
		{name: "negative offset", raw: -50, offset: -20, want: 50},
		{name: "clamps above", raw: 10, offset: 20, want: 120},
		{name: "clamps below", raw: -130, offset: -5, want: 0},
		{name: "NaN raw treated as zero", raw: math.NaN(), offset: 0, want: 120},
		{name: "NaN raw with offset", raw: math.NaN(), offset: -30, want: 90},
		{name: "NaN offset ignored", raw: -60, offset: math.NaN(), want: 60},
		{name: "positive infinity", raw: math.Inf(1), offset: 0, want: 120},
		{name: "negative infinity", raw: math.Inf(-1), offset: 0, want: 0},
		{name: "opposing infinities", raw: math.Inf(-1), offset: math.Inf(1), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Calibrate(tt.raw, tt.offset), 1e-9)
		})
	}
}

func TestCalibrate_AlwaysBounded(t *testing.T) {
	for raw := -1000.0; raw <= 1000.0; raw += 7.3 {
		for offset := -1000.0; offset <= 1000.0; offset += 13.1 {
			db := Calibrate(raw, offset)
			assert.False(t, math.IsNaN(db))
			assert.GreaterOrEqual(t, db, MinDecibels)
			assert.LessOrEqual(t, db, MaxDecibels)
		}
	}
}

func TestCalibrator_CustomReference(t *testing.T) {
	c := NewCalibrator(94)
	assert.Equal(t, 94.0, c.Reference())
	assert.InDelta(t, 44.0, c.Calibrate(-50, 0), 1e-9)

	fallback := NewCalibrator(math.Inf(1))
	assert.Equal(t, DefaultReference, fallback.Reference())
}

func TestCalibrate_Deterministic(t *testing.T) {
	assert.Equal(t, Calibrate(-42.25, 3), Calibrate(-42.25, 3))
}
