// Package measurement persists completed sessions as a capacity-bounded,
// newest-first log of readings.
package measurement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/dbmeter/internal/repository"
	"github.com/RMahshie/dbmeter/pkg/models"
)

const (
	// ReadingsKey is the key the serialized log is stored under.
	ReadingsKey = "audio_readings"
	// DefaultCapacity bounds the number of readings kept.
	DefaultCapacity = 1000
)

var (
	// ErrStorageFailure wraps every durable read or write error.
	ErrStorageFailure = errors.New("storage failure")
	// ErrDuplicateID is returned when a reading with the same ID is already stored.
	ErrDuplicateID = errors.New("duplicate reading id")
	// ErrInvalidReading is returned for readings without an ID or with a negative duration.
	ErrInvalidReading = errors.New("invalid reading")
)

// Store is the durable, bounded collection of readings, newest first.
// Every mutation is written through to the KeyValue before it becomes
// visible; on failure the in-memory state is left untouched.
type Store struct {
	kv       repository.KeyValue
	capacity int

	mu       sync.RWMutex
	readings []models.Reading
}

// NewStore loads the persisted log from kv. Non-positive capacities use DefaultCapacity.
// A log larger than capacity is truncated in memory; the next write persists the bound.
func NewStore(ctx context.Context, kv repository.KeyValue, capacity int) (*Store, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	raw, found, err := kv.Get(ctx, ReadingsKey)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load readings: %w", ErrStorageFailure, err)
	}

	var readings []models.Reading
	if found && raw != "" {
		if err := json.Unmarshal([]byte(raw), &readings); err != nil {
			return nil, fmt.Errorf("%w: failed to decode readings: %w", ErrStorageFailure, err)
		}
	}
	if len(readings) > capacity {
		readings = readings[:capacity]
	}

	log.Info().Int("count", len(readings)).Int("capacity", capacity).Msg("Measurement store loaded")

	return &Store{
		kv:       kv,
		capacity: capacity,
		readings: readings,
	}, nil
}

// Capacity returns the maximum number of readings kept.
func (s *Store) Capacity() int {
	return s.capacity
}

// Save inserts reading at the head, evicting the oldest entries beyond capacity.
func (s *Store) Save(ctx context.Context, reading models.Reading) error {
	if reading.ID == "" || reading.Duration < 0 {
		return fmt.Errorf("%w: id=%q duration=%d", ErrInvalidReading, reading.ID, reading.Duration)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(reading.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, reading.ID)
	}

	n := min(len(s.readings)+1, s.capacity)
	next := make([]models.Reading, 0, n)
	next = append(next, reading)
	next = append(next, s.readings[:n-1]...)

	if err := s.persist(ctx, next); err != nil {
		return err
	}
	if evicted := len(s.readings) + 1 - n; evicted > 0 {
		log.Debug().Int("evicted", evicted).Msg("Store at capacity, evicted oldest readings")
	}
	s.readings = next
	return nil
}

// List returns a newest-first copy of every reading.
func (s *Store) List() []models.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.readings)
}

// Len returns the number of readings stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.readings)
}

// Get returns the reading with id, if present.
func (s *Store) Get(id string) (models.Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.readings[i], true
	}
	return models.Reading{}, false
}

// DeleteByID removes the reading with id and reports whether one was removed.
// A missing id is not an error.
func (s *Store) DeleteByID(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}

	next := slices.Delete(slices.Clone(s.readings), i, i+1)
	if err := s.persist(ctx, next); err != nil {
		return false, err
	}
	s.readings = next
	return true, nil
}

// Clear removes every reading.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(ctx, ReadingsKey); err != nil {
		return fmt.Errorf("%w: failed to clear readings: %w", ErrStorageFailure, err)
	}
	s.readings = nil
	return nil
}

// ListByRange returns readings with start <= Timestamp <= end, newest first.
// start > end yields an empty result.
func (s *Store) ListByRange(start, end int64) []models.Reading {
	out := []models.Reading{}
	if start > end {
		return out
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.readings {
		if r.Timestamp >= start && r.Timestamp <= end {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.readings, func(r models.Reading) bool { return r.ID == id })
}

// persist must be called with mu held.
func (s *Store) persist(ctx context.Context, readings []models.Reading) error {
	if readings == nil {
		readings = []models.Reading{}
	}
	data, err := json.Marshal(readings)
	if err != nil {
		return fmt.Errorf("%w: failed to encode readings: %w", ErrStorageFailure, err)
	}
	if err := s.kv.Set(ctx, ReadingsKey, string(data)); err != nil {
		log.Error().Err(err).Msg("Failed to persist readings")
		return fmt.Errorf("%w: failed to persist readings: %w", ErrStorageFailure, err)
	}
	return nil
}
