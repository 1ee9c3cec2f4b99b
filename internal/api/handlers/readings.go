package handlers

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/RMahshie/dbmeter/internal/export"
	"github.com/RMahshie/dbmeter/pkg/models"
	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"
)

// exportURLExpiry matches the presign expiry of the object store.
const exportURLExpiry = 24 * time.Hour

// ReadingStore is the measurement store as seen by the HTTP layer
type ReadingStore interface {
	List() []models.Reading
	ListByRange(start, end int64) []models.Reading
	DeleteByID(ctx context.Context, id string) (bool, error)
	Clear(ctx context.Context) error
}

// ExportUploader publishes an export and returns a download URL
type ExportUploader interface {
	UploadExport(ctx context.Context, name string, body []byte, contentType string) (string, error)
}

// ReadingsHandler handles history, deletion and export requests
type ReadingsHandler struct {
	store    ReadingStore
	uploader ExportUploader // nil when no object store is configured
	location *time.Location
	now      func() time.Time
}

// NewReadingsHandler creates a new readings handler. uploader may be nil.
func NewReadingsHandler(store ReadingStore, uploader ExportUploader, loc *time.Location) *ReadingsHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ReadingsHandler{store: store, uploader: uploader, location: loc, now: time.Now}
}

// ListReadings returns all readings, or those within [start, end] when a bound is given
func (h *ReadingsHandler) ListReadings(ctx context.Context, req *models.ListReadingsRequest) (*models.ListReadingsResponse, error) {
	var readings []models.Reading
	if req.Start == "" && req.End == "" {
		readings = h.store.List()
	} else {
		start, err := parseBound(req.Start, math.MinInt64)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid start timestamp", err)
		}
		end, err := parseBound(req.End, math.MaxInt64)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid end timestamp", err)
		}
		readings = h.store.ListByRange(start, end)
	}
	if readings == nil {
		readings = []models.Reading{}
	}

	resp := &models.ListReadingsResponse{}
	resp.Body.Readings = readings
	resp.Body.Total = len(readings)
	return resp, nil
}

// DeleteReading removes one reading
func (h *ReadingsHandler) DeleteReading(ctx context.Context, req *models.DeleteReadingRequest) (*struct{}, error) {
	found, err := h.store.DeleteByID(ctx, req.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to delete reading", err)
	}
	if !found {
		return nil, huma.Error404NotFound("Reading not found")
	}
	log.Info().Str("readingID", req.ID).Msg("Reading deleted")
	return nil, nil
}

// ClearReadings removes every reading
func (h *ReadingsHandler) ClearReadings(ctx context.Context, _ *struct{}) (*struct{}, error) {
	if err := h.store.Clear(ctx); err != nil {
		return nil, huma.Error500InternalServerError("Failed to clear readings", err)
	}
	log.Info().Msg("All readings cleared")
	return nil, nil
}

// ExportCSV returns every reading as a CSV attachment
func (h *ReadingsHandler) ExportCSV(ctx context.Context, _ *struct{}) (*models.ExportCSVResponse, error) {
	name, body, err := h.render()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to export readings", err)
	}
	return &models.ExportCSVResponse{
		ContentType:        export.ContentType,
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", name),
		Body:               body,
	}, nil
}

// UploadExport writes the CSV export to the object store and returns a download URL
func (h *ReadingsHandler) UploadExport(ctx context.Context, _ *struct{}) (*models.UploadExportResponse, error) {
	if h.uploader == nil {
		return nil, huma.Error501NotImplemented("Export upload requires an S3 storage backend")
	}
	name, body, err := h.render()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to export readings", err)
	}

	url, err := h.uploader.UploadExport(ctx, name, body, export.ContentType)
	if err != nil {
		return nil, huma.Error502BadGateway("Failed to upload export", err)
	}
	log.Info().Str("name", name).Int("bytes", len(body)).Msg("Export uploaded")

	resp := &models.UploadExportResponse{}
	resp.Body.Name = name
	resp.Body.URL = url
	resp.Body.ExpiresIn = int(exportURLExpiry.Seconds())
	return resp, nil
}

func (h *ReadingsHandler) render() (string, []byte, error) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, h.store.List(), h.location); err != nil {
		return "", nil, err
	}
	return export.FileName(h.now().In(h.location)), buf.Bytes(), nil
}

func parseBound(raw string, fallback int64) (int64, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
