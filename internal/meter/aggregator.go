package meter

import (
	"math"

	"github.com/RMahshie/dbmeter/pkg/models"
)

// StatsAggregator keeps min/max/mean and the rolling history of one session.
// It is not safe for concurrent use; the sampling pipeline serializes access.
type StatsAggregator struct {
	stats   models.RunningStats
	current float64
	history *RollingHistory
}

// NewStatsAggregator creates an aggregator whose history holds historyCapacity samples.
func NewStatsAggregator(historyCapacity int) *StatsAggregator {
	return &StatsAggregator{history: NewRollingHistory(historyCapacity)}
}

// Reset returns the aggregator to the "no data" state. Safe mid-session.
func (a *StatsAggregator) Reset() {
	a.stats = models.RunningStats{}
	a.current = 0
	a.history.Clear()
}

// Update records one calibrated sample and returns the new snapshot.
// NaN samples are ignored.
func (a *StatsAggregator) Update(sample float64) models.MeterSnapshot {
	if math.IsNaN(sample) {
		return a.Snapshot()
	}

	if a.stats.Count == 0 {
		a.stats.Min = sample
		a.stats.Max = sample
	} else {
		a.stats.Min = math.Min(a.stats.Min, sample)
		a.stats.Max = math.Max(a.stats.Max, sample)
	}
	a.stats.Count++
	a.stats.Sum += sample
	a.current = sample
	a.history.Push(sample)

	return a.Snapshot()
}

// ThresholdCrossed reports whether the most recent sample is at or above threshold.
// It is always false before the first sample.
func (a *StatsAggregator) ThresholdCrossed(threshold float64) bool {
	return a.stats.Count > 0 && a.current >= threshold
}

// Stats returns the running statistics.
func (a *StatsAggregator) Stats() models.RunningStats {
	return a.stats
}

// Current returns the most recent sample, or 0 before the first one.
func (a *StatsAggregator) Current() float64 {
	return a.current
}

// Snapshot builds the live view. The history slice is a fresh copy.
func (a *StatsAggregator) Snapshot() models.MeterSnapshot {
	snap := models.MeterSnapshot{
		Current: a.current,
		Count:   a.stats.Count,
		Level:   string(ClassifyLevel(a.current)),
		History: a.history.Values(),
	}
	if a.stats.Count > 0 {
		snap.Min = a.stats.Min
		snap.Max = a.stats.Max
		snap.Avg = a.stats.Mean()
	}
	return snap
}
