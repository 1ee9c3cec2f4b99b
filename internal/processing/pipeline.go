// Package processing runs the timer-driven sampling loop: it reads the
// sensor, calibrates, aggregates, fans snapshots out to sinks and persists
// each finished session.
package processing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/dbmeter/internal/meter"
	"github.com/RMahshie/dbmeter/pkg/models"
)

// DefaultInterval is the time between ticks.
const DefaultInterval = 100 * time.Millisecond

// State is the pipeline lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRecording
)

func (s State) String() string {
	if s == StateRecording {
		return "recording"
	}
	return "idle"
}

// Config holds the sampling parameters.
type Config struct {
	Interval        time.Duration
	HistoryCapacity int
	Reference       float64
}

// DefaultConfig returns the standard meter parameters.
func DefaultConfig() Config {
	return Config{
		Interval:        DefaultInterval,
		HistoryCapacity: meter.DefaultHistoryCapacity,
		Reference:       meter.DefaultReference,
	}
}

// SamplingPipeline owns one session at a time. Ticks, Stop and Reset are
// serialized on mu. Start calls are serialized on startMu so the capability
// request never holds mu. Store and sink bookkeeping use their own locks.
type SamplingPipeline struct {
	source     SensorSource
	saver      ReadingSaver
	settings   SettingsProvider
	calibrator meter.Calibrator
	interval   time.Duration

	clock   Clock
	alerter Alerter
	newID   func() (string, error)

	startMu sync.Mutex

	mu         sync.Mutex
	aggregator *meter.StatsAggregator
	latest     models.MeterSnapshot
	state      State
	generation uint64
	startedAt  int64
	cancel     context.CancelFunc
	done       chan struct{}

	sinksMu    sync.RWMutex
	sinks      map[uint64]Sink
	nextSinkID uint64
}

// NewSamplingPipeline creates an idle pipeline.
func NewSamplingPipeline(source SensorSource, saver ReadingSaver, settings SettingsProvider, cfg Config) *SamplingPipeline {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	agg := meter.NewStatsAggregator(cfg.HistoryCapacity)
	return &SamplingPipeline{
		source:     source,
		saver:      saver,
		settings:   settings,
		calibrator: meter.NewCalibrator(cfg.Reference),
		interval:   cfg.Interval,
		clock:      SystemClock{},
		newID:      newReadingID,
		aggregator: agg,
		latest:     agg.Snapshot(),
		sinks:      make(map[uint64]Sink),
	}
}

// SetClock replaces the clock. Call before Start.
func (p *SamplingPipeline) SetClock(c Clock) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clock = c
}

// SetAlerter sets the threshold-crossing side effect. Call before Start.
func (p *SamplingPipeline) SetAlerter(a Alerter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerter = a
}

// Start begins a session. ctx owns the session: once it is done the session
// is stopped and persisted. Starting while recording returns the running
// session unchanged.
func (p *SamplingPipeline) Start(ctx context.Context) (models.Session, error) {
	p.startMu.Lock()
	defer p.startMu.Unlock()

	if session := p.Session(); session.Recording {
		return session, nil
	}

	// Only Start leaves Idle, so the state cannot change while we wait here.
	if !p.source.RequestCapability(ctx) {
		log.Warn().Msg("Sensor permission denied, staying idle")
		return models.Session{}, ErrPermissionDenied
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.aggregator.Reset()
	p.latest = p.aggregator.Snapshot()
	p.startedAt = p.clock.NowMillis()
	p.state = StateRecording
	p.generation++

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(loopCtx, cancel, p.generation, p.done)

	log.Info().Int64("started_at", p.startedAt).Dur("interval", p.interval).Msg("Recording session started")
	return p.sessionLocked(), nil
}

// Stop ends the session after any in-flight tick, persists a Reading built
// from the session statistics and returns it. Stop while idle is a no-op.
// A session without samples is not persisted and yields a nil Reading.
// On a storage failure the unsaved Reading is returned with the error.
func (p *SamplingPipeline) Stop(ctx context.Context) (*models.Reading, error) {
	p.mu.Lock()
	if p.state != StateRecording {
		p.mu.Unlock()
		return nil, nil
	}
	cancel, done := p.cancel, p.done
	reading, err := p.finishLocked(ctx, "stopped")
	p.mu.Unlock()

	cancel()
	<-done
	return reading, err
}

// Reset clears the statistics and history without ending the session.
func (p *SamplingPipeline) Reset() models.MeterSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.aggregator.Reset()
	p.latest = p.aggregator.Snapshot()
	return cloneSnapshot(p.latest)
}

// State returns the lifecycle state.
func (p *SamplingPipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Session describes the running session, if any.
func (p *SamplingPipeline) Session() models.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionLocked()
}

// Latest returns the most recent snapshot.
func (p *SamplingPipeline) Latest() models.MeterSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneSnapshot(p.latest)
}

// Subscribe registers sink and returns a function that removes it.
func (p *SamplingPipeline) Subscribe(sink Sink) (unsubscribe func()) {
	p.sinksMu.Lock()
	id := p.nextSinkID
	p.nextSinkID++
	p.sinks[id] = sink
	p.sinksMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.sinksMu.Lock()
			delete(p.sinks, id)
			p.sinksMu.Unlock()
		})
	}
}

// SubscribeChan delivers snapshots on a buffered channel. When the buffer is
// full the snapshot is dropped for that subscriber so a slow reader never
// stalls sampling. The channel is closed by the returned function.
func (p *SamplingPipeline) SubscribeChan(buffer int) (<-chan models.MeterSnapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan models.MeterSnapshot, buffer)
	var mu sync.Mutex
	closed := false

	unsubscribe := p.Subscribe(SinkFunc(func(s models.MeterSnapshot) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- s:
		default:
		}
	}))

	return ch, func() {
		unsubscribe()
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			close(ch)
		}
	}
}

func (p *SamplingPipeline) run(ctx context.Context, cancel context.CancelFunc, gen uint64, done chan struct{}) {
	defer close(done)
	defer cancel()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.finishGeneration(context.WithoutCancel(ctx), gen, "context done")
			return
		case <-ticker.C:
			if revoked := p.tick(ctx, gen); revoked {
				p.finishGeneration(context.WithoutCancel(ctx), gen, "capability revoked")
				return
			}
		}
	}
}

// tick takes one sample. It reports true when the sensor capability was revoked.
func (p *SamplingPipeline) tick(ctx context.Context, gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateRecording || p.generation != gen {
		return false
	}

	raw, err := p.source.ReadInstant(ctx)
	if err != nil {
		if errors.Is(err, ErrCapabilityRevoked) {
			log.Warn().Err(err).Msg("Sensor capability revoked mid-session")
			return true
		}
		log.Debug().Err(err).Msg("Sensor read failed, skipping tick")
		return false
	}

	settings := p.settings.Current()
	sample := p.calibrator.Calibrate(raw, settings.CalibrationOffset)
	snap := p.aggregator.Update(sample)
	p.latest = snap

	p.notify(snap)

	if settings.EnableAlerts && p.alerter != nil && p.aggregator.ThresholdCrossed(settings.AlertThreshold) {
		p.alerter.Alert(ctx, models.Alert{
			Level:     sample,
			Threshold: settings.AlertThreshold,
			Haptic:    settings.HapticFeedback,
			At:        p.clock.NowMillis(),
		})
	}
	return false
}

func (p *SamplingPipeline) notify(snap models.MeterSnapshot) {
	p.sinksMu.RLock()
	sinks := make([]Sink, 0, len(p.sinks))
	for _, s := range p.sinks {
		sinks = append(sinks, s)
	}
	p.sinksMu.RUnlock()

	for _, s := range sinks {
		s.OnSnapshot(cloneSnapshot(snap))
	}
}

// cloneSnapshot gives each recipient its own History.
func cloneSnapshot(snap models.MeterSnapshot) models.MeterSnapshot {
	snap.History = slices.Clone(snap.History)
	return snap
}

// finishGeneration stops the session started as gen, if it is still running.
func (p *SamplingPipeline) finishGeneration(ctx context.Context, gen uint64, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateRecording || p.generation != gen {
		return
	}
	if _, err := p.finishLocked(ctx, reason); err != nil {
		log.Error().Err(err).Str("reason", reason).Msg("Failed to persist session")
	}
}

// finishLocked must be called with mu held while recording.
func (p *SamplingPipeline) finishLocked(ctx context.Context, reason string) (*models.Reading, error) {
	now := p.clock.NowMillis()
	stats := p.aggregator.Stats()
	p.state = StateIdle

	if err := p.source.Release(); err != nil {
		log.Warn().Err(err).Msg("Failed to release sensor")
	}

	if stats.Count == 0 {
		log.Info().Str("reason", reason).Msg("Session ended without samples, nothing to save")
		return nil, nil
	}

	id, err := p.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate reading id: %w", err)
	}

	reading := models.Reading{
		ID:        id,
		Timestamp: p.startedAt,
		Decibels:  p.aggregator.Current(),
		Min:       stats.Min,
		Max:       stats.Max,
		Avg:       stats.Mean(),
		Duration:  max(0, now-p.startedAt),
	}

	// The session must outlive a caller that has gone away.
	if err := p.saver.Save(context.WithoutCancel(ctx), reading); err != nil {
		return &reading, fmt.Errorf("failed to save reading: %w", err)
	}

	log.Info().
		Str("reading_id", reading.ID).
		Str("reason", reason).
		Uint64("samples", stats.Count).
		Float64("avg", reading.Avg).
		Int64("duration_ms", reading.Duration).
		Msg("Recording session saved")
	return &reading, nil
}

func (p *SamplingPipeline) sessionLocked() models.Session {
	if p.state != StateRecording {
		return models.Session{}
	}
	return models.Session{Recording: true, StartedAt: p.startedAt}
}

// newReadingID returns a time-ordered UUIDv7.
func newReadingID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
