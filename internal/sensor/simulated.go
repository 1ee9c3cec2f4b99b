// Package sensor provides SensorSource implementations for the sampling pipeline.
package sensor

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/RMahshie/dbmeter/internal/meter"
	"github.com/RMahshie/dbmeter/internal/processing"
)

// Simulated produces raw levels that calibrate to 40-80 dB under the given
// reference. It stands in for a microphone during development and tests.
type Simulated struct {
	Granted   bool
	reference float64

	mu  sync.Mutex
	rng *rand.Rand
}

var _ processing.SensorSource = (*Simulated)(nil)

// NewSimulated returns a granted simulated source seeded for repeatable output.
func NewSimulated(seed uint64, reference float64) *Simulated {
	if reference == 0 {
		reference = meter.DefaultReference
	}
	return &Simulated{
		Granted:   true,
		reference: reference,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (s *Simulated) RequestCapability(ctx context.Context) bool {
	return s.Granted
}

func (s *Simulated) ReadInstant(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db := s.rng.Float64()*40 + 40
	return db - s.reference, nil
}

func (s *Simulated) Release() error { return nil }
