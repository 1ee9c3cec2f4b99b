// Package meter turns raw sensor levels into calibrated decibel samples and
// keeps the per-session statistics shown on the live meter.
package meter

import "math"

const (
	// MinDecibels and MaxDecibels bound every calibrated sample.
	MinDecibels = 0.0
	MaxDecibels = 120.0

	// DefaultReference shifts the typical [-160, 0] metering range of mobile
	// recorders into a human-friendly positive scale.
	DefaultReference = 120.0
)

// Calibrator maps raw sensor readings onto the bounded decibel scale.
type Calibrator struct {
	reference float64
}

// NewCalibrator returns a Calibrator using the given normalization constant.
// A non-finite reference falls back to DefaultReference.
func NewCalibrator(reference float64) Calibrator {
	if math.IsNaN(reference) || math.IsInf(reference, 0) {
		reference = DefaultReference
	}
	return Calibrator{reference: reference}
}

// Reference returns the normalization constant in use.
func (c Calibrator) Reference() float64 {
	return c.reference
}

// Calibrate returns raw + reference + offset clamped to [MinDecibels, MaxDecibels].
// NaN inputs are treated as 0 so the result is always finite.
func (c Calibrator) Calibrate(raw, offset float64) float64 {
	if math.IsNaN(raw) {
		raw = 0
	}
	if math.IsNaN(offset) {
		offset = 0
	}
	db := raw + c.reference + offset
	if math.IsNaN(db) {
		// -Inf + +Inf
		return MinDecibels
	}
	return Clamp(db)
}

// Calibrate applies the default normalization constant.
func Calibrate(raw, offset float64) float64 {
	return NewCalibrator(DefaultReference).Calibrate(raw, offset)
}

// Clamp bounds db to [MinDecibels, MaxDecibels].
func Clamp(db float64) float64 {
	return math.Max(MinDecibels, math.Min(MaxDecibels, db))
}
