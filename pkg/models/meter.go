package models

// RunningStats holds the incremental statistics of one session.
// Min, Max and Sum are meaningless while Count is zero.
type RunningStats struct {
	Count uint64  `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Sum   float64 `json:"sum"`
}

// Mean returns Sum/Count, or 0 when no sample has been recorded.
func (s RunningStats) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// MeterSnapshot is the live view handed to subscribers after every sample.
// A zero Count means "no data"; Min, Max and Avg are then 0 by convention.
type MeterSnapshot struct {
	Current float64   `json:"current" doc:"Most recent calibrated level, in dB"`
	Min     float64   `json:"min" doc:"Session minimum, in dB"`
	Max     float64   `json:"max" doc:"Session maximum, in dB"`
	Avg     float64   `json:"avg" doc:"Session mean, in dB"`
	Count   uint64    `json:"count" doc:"Samples recorded in this session"`
	Level   string    `json:"level" enum:"quiet,moderate,loud" doc:"Noise band of the current level"`
	History []float64 `json:"history" doc:"Most recent samples, oldest first"`
}

// Alert is raised when the current level reaches the configured threshold.
type Alert struct {
	Level     float64 `json:"level"`
	Threshold float64 `json:"threshold"`
	Haptic    bool    `json:"haptic"`
	At        int64   `json:"at"`
}
