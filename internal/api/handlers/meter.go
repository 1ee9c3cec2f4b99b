package handlers

import (
	"context"
	"errors"

	"github.com/RMahshie/dbmeter/internal/processing"
	"github.com/RMahshie/dbmeter/pkg/models"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/rs/zerolog/log"
)

// streamBuffer is how many snapshots a slow SSE client may lag before drops.
const streamBuffer = 16

// MeterService is the sampling pipeline as seen by the HTTP layer
type MeterService interface {
	Start(ctx context.Context) (models.Session, error)
	Stop(ctx context.Context) (*models.Reading, error)
	Reset() models.MeterSnapshot
	Latest() models.MeterSnapshot
	Session() models.Session
	SubscribeChan(buffer int) (<-chan models.MeterSnapshot, func())
}

// MeterHandler handles session lifecycle and live meter requests
type MeterHandler struct {
	// base owns running sessions; request contexts end with the request.
	base  context.Context
	meter MeterService
}

// NewMeterHandler creates a new meter handler
func NewMeterHandler(base context.Context, meter MeterService) *MeterHandler {
	return &MeterHandler{base: base, meter: meter}
}

// StartSession begins sampling
func (h *MeterHandler) StartSession(ctx context.Context, _ *struct{}) (*models.SessionResponse, error) {
	session, err := h.meter.Start(h.base)
	if err != nil {
		if errors.Is(err, processing.ErrPermissionDenied) {
			return nil, huma.Error403Forbidden("Microphone access was denied", err)
		}
		return nil, huma.Error500InternalServerError("Failed to start session", err)
	}
	log.Info().Int64("started_at", session.StartedAt).Msg("Session start requested")
	return &models.SessionResponse{Body: session}, nil
}

// StopSession ends sampling and returns the persisted reading
func (h *MeterHandler) StopSession(ctx context.Context, _ *struct{}) (*models.StopSessionResponse, error) {
	// A client that disconnects mid-stop must not cost the session.
	reading, err := h.meter.Stop(context.WithoutCancel(ctx))
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to save reading", err)
	}
	resp := &models.StopSessionResponse{}
	resp.Body.Reading = reading
	return resp, nil
}

// ResetSession clears statistics and history without ending the session
func (h *MeterHandler) ResetSession(ctx context.Context, _ *struct{}) (*models.MeterResponse, error) {
	return &models.MeterResponse{Body: h.meter.Reset()}, nil
}

// GetMeter returns the latest snapshot
func (h *MeterHandler) GetMeter(ctx context.Context, _ *struct{}) (*models.MeterResponse, error) {
	return &models.MeterResponse{Body: h.meter.Latest()}, nil
}

// StreamMeter pushes every snapshot to the client until it disconnects
func (h *MeterHandler) StreamMeter(ctx context.Context, _ *struct{}, send sse.Sender) {
	snapshots, unsubscribe := h.meter.SubscribeChan(streamBuffer)
	defer unsubscribe()

	if err := send.Data(h.meter.Latest()); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if err := send.Data(snap); err != nil {
				log.Debug().Err(err).Msg("Meter stream client went away")
				return
			}
		}
	}
}
