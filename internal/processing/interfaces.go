package processing

import (
	"context"
	"errors"
	"time"

	"github.com/RMahshie/dbmeter/pkg/models"
)

var (
	// ErrPermissionDenied is returned by Start when the sensor capability is refused.
	ErrPermissionDenied = errors.New("sensor permission denied")
	// ErrCapabilityRevoked is returned by a SensorSource whose capability was
	// lost mid-session. The pipeline stops and persists what it has.
	ErrCapabilityRevoked = errors.New("sensor capability revoked")
)

// SensorSource is the microphone (or remote node) the pipeline samples.
type SensorSource interface {
	// RequestCapability asks for access and reports whether it was granted.
	RequestCapability(ctx context.Context) bool
	// ReadInstant returns one raw level. Errors other than ErrCapabilityRevoked
	// skip the tick.
	ReadInstant(ctx context.Context) (float64, error)
	// Release gives the capability back.
	Release() error
}

// Clock supplies millisecond timestamps for sessions.
type Clock interface {
	NowMillis() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) NowMillis() int64 { return time.Now().UnixMilli() }

// Sink receives a snapshot after every accepted sample. Sinks run on the
// sampling goroutine and must not call back into the pipeline. Each sink gets
// its own copy of History.
type Sink interface {
	OnSnapshot(models.MeterSnapshot)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(models.MeterSnapshot)

func (f SinkFunc) OnSnapshot(s models.MeterSnapshot) { f(s) }

// Alerter performs the side effect of a threshold crossing (haptics, notifications).
type Alerter interface {
	Alert(ctx context.Context, alert models.Alert)
}

// ReadingSaver persists finished sessions.
type ReadingSaver interface {
	Save(ctx context.Context, reading models.Reading) error
}

// SettingsProvider exposes the settings read on every tick.
type SettingsProvider interface {
	Current() models.Settings
}

// StaticSettings is a SettingsProvider that never changes.
type StaticSettings models.Settings

func (s StaticSettings) Current() models.Settings { return models.Settings(s) }
