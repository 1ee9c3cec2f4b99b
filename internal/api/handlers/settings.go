package handlers

import (
	"context"
	"errors"

	"github.com/RMahshie/dbmeter/internal/settings"
	"github.com/RMahshie/dbmeter/pkg/models"
	"github.com/danielgtaylor/huma/v2"
)

// SettingsService reads and updates user preferences
type SettingsService interface {
	Current() models.Settings
	Update(ctx context.Context, patch models.SettingsPatch) (models.Settings, error)
}

// SettingsHandler handles settings requests
type SettingsHandler struct {
	settings SettingsService
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(svc SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: svc}
}

// GetSettings returns the current settings
func (h *SettingsHandler) GetSettings(ctx context.Context, _ *struct{}) (*models.SettingsResponse, error) {
	return &models.SettingsResponse{Body: h.settings.Current()}, nil
}

// UpdateSettings applies a partial update
func (h *SettingsHandler) UpdateSettings(ctx context.Context, req *models.UpdateSettingsRequest) (*models.SettingsResponse, error) {
	updated, err := h.settings.Update(ctx, req.Body)
	if err != nil {
		if errors.Is(err, settings.ErrInvalidSettings) {
			return nil, huma.Error422UnprocessableEntity("Invalid settings", err)
		}
		return nil, huma.Error500InternalServerError("Failed to save settings", err)
	}
	return &models.SettingsResponse{Body: updated}, nil
}
