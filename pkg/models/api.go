package models

import "time"

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status    string    `json:"status" example:"healthy" doc:"Service health status"`
		Version   string    `json:"version" example:"1.0.0" doc:"API version"`
		Recording bool      `json:"recording" doc:"Whether a session is in progress"`
		Time      time.Time `json:"time" doc:"Current server time"`
	}
}

// SessionResponse describes the pipeline session after a lifecycle call
type SessionResponse struct {
	Body Session
}

// StopSessionResponse carries the reading persisted when a session ends
type StopSessionResponse struct {
	Body struct {
		Reading *Reading `json:"reading,omitempty" doc:"Persisted reading, absent when the session recorded no samples"`
	}
}

// MeterResponse carries the latest meter snapshot
type MeterResponse struct {
	Body MeterSnapshot
}

// ListReadingsRequest filters readings by timestamp, inclusive on both ends.
// Bounds are epoch milliseconds; an omitted bound is open.
type ListReadingsRequest struct {
	Start string `query:"start" doc:"Lower timestamp bound, epoch milliseconds"`
	End   string `query:"end" doc:"Upper timestamp bound, epoch milliseconds"`
}

// ListReadingsResponse returns readings newest first
type ListReadingsResponse struct {
	Body struct {
		Readings []Reading `json:"readings" doc:"Readings, newest first"`
		Total    int       `json:"total" doc:"Number of readings returned"`
	}
}

// DeleteReadingRequest identifies one reading
type DeleteReadingRequest struct {
	ID string `path:"id" doc:"Reading ID"`
}

// ExportCSVResponse is a CSV download of all readings
type ExportCSVResponse struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

// UploadExportResponse points at an uploaded CSV export
type UploadExportResponse struct {
	Body struct {
		Name      string `json:"name" doc:"Object name of the export"`
		URL       string `json:"url" doc:"Pre-signed download URL"`
		ExpiresIn int    `json:"expires_in" doc:"URL expiration time in seconds"`
	}
}

// SettingsResponse returns the current settings
type SettingsResponse struct {
	Body Settings
}

// UpdateSettingsRequest is a partial settings update
type UpdateSettingsRequest struct {
	Body SettingsPatch
}
