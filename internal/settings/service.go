// Package settings loads and persists user preferences.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/dbmeter/internal/repository"
	"github.com/RMahshie/dbmeter/pkg/models"
)

// Key is the key settings are stored under.
const Key = "settings"

// ErrInvalidSettings is returned by Update when the patched settings do not validate.
var ErrInvalidSettings = errors.New("invalid settings")

// Service holds the current settings and writes every change through to kv.
type Service struct {
	kv repository.KeyValue

	mu      sync.RWMutex
	current models.Settings
}

// NewService loads persisted settings, falling back to defaults when none are
// stored or the stored document cannot be decoded.
func NewService(ctx context.Context, kv repository.KeyValue) (*Service, error) {
	current := models.DefaultSettings()

	raw, found, err := kv.Get(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if found {
		loaded := models.DefaultSettings()
		if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
			log.Warn().Err(err).Msg("Stored settings unreadable, using defaults")
		} else if err := loaded.Validate(); err != nil {
			log.Warn().Err(err).Msg("Stored settings invalid, using defaults")
		} else {
			current = loaded
		}
	}

	return &Service{kv: kv, current: current}, nil
}

// Current returns the settings in effect.
func (s *Service) Current() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update applies patch, persists the result and returns it.
// Nothing changes if validation or persistence fails.
func (s *Service) Update(ctx context.Context, patch models.SettingsPatch) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := patch.Apply(s.current)
	if err := next.Validate(); err != nil {
		return s.current, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}

	data, err := json.Marshal(next)
	if err != nil {
		return s.current, fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := s.kv.Set(ctx, Key, string(data)); err != nil {
		return s.current, fmt.Errorf("failed to save settings: %w", err)
	}

	s.current = next
	log.Info().
		Bool("enable_alerts", next.EnableAlerts).
		Float64("alert_threshold", next.AlertThreshold).
		Float64("calibration_offset", next.CalibrationOffset).
		Msg("Settings updated")
	return next, nil
}
