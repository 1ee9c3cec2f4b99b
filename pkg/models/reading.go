package models

// Reading is one persisted, completed measurement session summary.
// Timestamp and Duration are epoch/elapsed milliseconds.
type Reading struct {
	ID        string  `json:"id" doc:"Reading unique identifier"`
	Timestamp int64   `json:"timestamp" doc:"Session start, epoch milliseconds"`
	Decibels  float64 `json:"decibels" doc:"Level at the moment the session stopped, in dB"`
	Min       float64 `json:"min" doc:"Lowest level observed, in dB"`
	Max       float64 `json:"max" doc:"Highest level observed, in dB"`
	Avg       float64 `json:"avg" doc:"Mean level over the session, in dB"`
	Duration  int64   `json:"duration" doc:"Session length in milliseconds"`
}

// Session describes the sampling pipeline's current session, if any.
type Session struct {
	Recording bool  `json:"recording" doc:"Whether a session is in progress"`
	StartedAt int64 `json:"started_at,omitempty" doc:"Session start, epoch milliseconds"`
}
