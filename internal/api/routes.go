package api

import (
	"context"
	"net/http"
	"time"

	"github.com/RMahshie/dbmeter/internal/api/handlers"
	"github.com/RMahshie/dbmeter/pkg/models"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
)

// Dependencies are the services the API exposes
type Dependencies struct {
	// BaseContext owns recording sessions started over HTTP.
	BaseContext context.Context
	Meter       handlers.MeterService
	Readings    handlers.ReadingStore
	Uploader    handlers.ExportUploader // optional
	Settings    handlers.SettingsService
	Location    *time.Location
}

// RegisterRoutes sets up all API routes
func RegisterRoutes(api huma.API, deps Dependencies) {
	base := deps.BaseContext
	if base == nil {
		base = context.Background()
	}

	// Initialize handlers
	meterHandler := handlers.NewMeterHandler(base, deps.Meter)
	readingsHandler := handlers.NewReadingsHandler(deps.Readings, deps.Uploader, deps.Location)
	settingsHandler := handlers.NewSettingsHandler(deps.Settings)

	// Session lifecycle
	huma.Register(api, huma.Operation{
		OperationID: "startSession",
		Method:      http.MethodPost,
		Path:        "/api/session/start",
		Summary:     "Start a recording session",
		Description: "Requests the sensor and begins sampling. Idempotent while recording.",
		Tags:        []string{"Session"},
		Errors:      []int{http.StatusForbidden},
	}, meterHandler.StartSession)

	huma.Register(api, huma.Operation{
		OperationID: "stopSession",
		Method:      http.MethodPost,
		Path:        "/api/session/stop",
		Summary:     "Stop the recording session",
		Description: "Ends sampling and persists a reading summarizing the session",
		Tags:        []string{"Session"},
	}, meterHandler.StopSession)

	huma.Register(api, huma.Operation{
		OperationID: "resetSession",
		Method:      http.MethodPost,
		Path:        "/api/session/reset",
		Summary:     "Reset session statistics",
		Description: "Clears min, max, average and history without ending the session",
		Tags:        []string{"Session"},
	}, meterHandler.ResetSession)

	// Live meter
	huma.Register(api, huma.Operation{
		OperationID: "getMeter",
		Method:      http.MethodGet,
		Path:        "/api/meter",
		Summary:     "Get the live meter",
		Description: "Returns the most recent meter snapshot",
		Tags:        []string{"Meter"},
	}, meterHandler.GetMeter)

	sse.Register(api, huma.Operation{
		OperationID: "streamMeter",
		Method:      http.MethodGet,
		Path:        "/api/meter/stream",
		Summary:     "Stream the live meter",
		Description: "Server-sent events carrying a snapshot after every sample",
		Tags:        []string{"Meter"},
	}, map[string]any{
		"snapshot": models.MeterSnapshot{},
	}, meterHandler.StreamMeter)

	// Readings
	huma.Register(api, huma.Operation{
		OperationID: "listReadings",
		Method:      http.MethodGet,
		Path:        "/api/readings",
		Summary:     "List readings",
		Description: "Returns saved readings newest first, optionally filtered by timestamp",
		Tags:        []string{"Readings"},
	}, readingsHandler.ListReadings)

	huma.Register(api, huma.Operation{
		OperationID:   "deleteReading",
		Method:        http.MethodDelete,
		Path:          "/api/readings/{id}",
		Summary:       "Delete a reading",
		Tags:          []string{"Readings"},
		DefaultStatus: http.StatusNoContent,
	}, readingsHandler.DeleteReading)

	huma.Register(api, huma.Operation{
		OperationID:   "clearReadings",
		Method:        http.MethodDelete,
		Path:          "/api/readings",
		Summary:       "Delete all readings",
		Tags:          []string{"Readings"},
		DefaultStatus: http.StatusNoContent,
	}, readingsHandler.ClearReadings)

	huma.Register(api, huma.Operation{
		OperationID: "exportReadings",
		Method:      http.MethodGet,
		Path:        "/api/readings/export",
		Summary:     "Export readings as CSV",
		Tags:        []string{"Readings"},
	}, readingsHandler.ExportCSV)

	huma.Register(api, huma.Operation{
		OperationID: "uploadReadingsExport",
		Method:      http.MethodPost,
		Path:        "/api/readings/export",
		Summary:     "Upload a CSV export",
		Description: "Writes the CSV export to object storage and returns a pre-signed download URL",
		Tags:        []string{"Readings"},
	}, readingsHandler.UploadExport)

	// Settings
	huma.Register(api, huma.Operation{
		OperationID: "getSettings",
		Method:      http.MethodGet,
		Path:        "/api/settings",
		Summary:     "Get settings",
		Tags:        []string{"Settings"},
	}, settingsHandler.GetSettings)

	huma.Register(api, huma.Operation{
		OperationID: "updateSettings",
		Method:      http.MethodPatch,
		Path:        "/api/settings",
		Summary:     "Update settings",
		Description: "Applies a partial update and persists the result",
		Tags:        []string{"Settings"},
	}, settingsHandler.UpdateSettings)
}
