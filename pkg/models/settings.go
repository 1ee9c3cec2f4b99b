package models

import "fmt"

// Theme is consumed by the presentation layer only.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

// ChartType selects the live visualization in the presentation layer.
type ChartType string

const (
	ChartWave     ChartType = "wave"
	ChartCircular ChartType = "circular"
	ChartBar      ChartType = "bar"
)

// Settings are the user preferences that influence sampling and alerting.
type Settings struct {
	EnableAlerts      bool      `json:"enableAlerts" doc:"Raise alerts when the threshold is reached"`
	AlertThreshold    float64   `json:"alertThreshold" doc:"Alert threshold in dB"`
	HapticFeedback    bool      `json:"hapticFeedback" doc:"Request haptic feedback with alerts"`
	CalibrationOffset float64   `json:"calibrationOffset" doc:"Signed offset added to every sample, in dB"`
	Theme             Theme     `json:"theme" enum:"light,dark,auto" doc:"Presentation theme"`
	ChartType         ChartType `json:"chartType" enum:"wave,circular,bar" doc:"Live chart style"`
}

// DefaultSettings returns the settings used before the user changes anything.
func DefaultSettings() Settings {
	return Settings{
		EnableAlerts:      false,
		AlertThreshold:    85,
		HapticFeedback:    true,
		CalibrationOffset: 0,
		Theme:             ThemeAuto,
		ChartType:         ChartCircular,
	}
}

// SettingsPatch is a partial update; nil fields are left untouched.
type SettingsPatch struct {
	EnableAlerts      *bool      `json:"enableAlerts,omitempty"`
	AlertThreshold    *float64   `json:"alertThreshold,omitempty"`
	HapticFeedback    *bool      `json:"hapticFeedback,omitempty"`
	CalibrationOffset *float64   `json:"calibrationOffset,omitempty"`
	Theme             *Theme     `json:"theme,omitempty" enum:"light,dark,auto"`
	ChartType         *ChartType `json:"chartType,omitempty" enum:"wave,circular,bar"`
}

// Apply returns s with every non-nil field of p applied.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.EnableAlerts != nil {
		s.EnableAlerts = *p.EnableAlerts
	}
	if p.AlertThreshold != nil {
		s.AlertThreshold = *p.AlertThreshold
	}
	if p.HapticFeedback != nil {
		s.HapticFeedback = *p.HapticFeedback
	}
	if p.CalibrationOffset != nil {
		s.CalibrationOffset = *p.CalibrationOffset
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.ChartType != nil {
		s.ChartType = *p.ChartType
	}
	return s
}

// Validate reports unknown enum values.
func (s Settings) Validate() error {
	switch s.Theme {
	case ThemeLight, ThemeDark, ThemeAuto:
	default:
		return fmt.Errorf("invalid theme: %q", s.Theme)
	}
	switch s.ChartType {
	case ChartWave, ChartCircular, ChartBar:
	default:
		return fmt.Errorf("invalid chart type: %q", s.ChartType)
	}
	return nil
}
