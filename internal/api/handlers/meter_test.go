package handlers

import (
	"context"
	"fmt"
	"testing"

	"github.com/RMahshie/dbmeter/internal/processing"
	"github.com/RMahshie/dbmeter/pkg/models"
	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.ErrorAs(t, err, &se)
	return se.GetStatus()
}

func TestStartSession(t *testing.T) {
	tests := []struct {
		name      string
		mockSetup func(*MockMeterService)
		wantCode  int
	}{
		{
			name: "granted",
			mockSetup: func(m *MockMeterService) {
				m.On("Start", mock.Anything).Return(models.Session{Recording: true, StartedAt: 1000}, nil)
			},
		},
		{
			name: "permission denied",
			mockSetup: func(m *MockMeterService) {
				m.On("Start", mock.Anything).Return(models.Session{}, processing.ErrPermissionDenied)
			},
			wantCode: 403,
		},
		{
			name: "unexpected failure",
			mockSetup: func(m *MockMeterService) {
				m.On("Start", mock.Anything).Return(models.Session{}, assert.AnError)
			},
			wantCode: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockMeter := &MockMeterService{}
			tt.mockSetup(mockMeter)
			handler := NewMeterHandler(context.Background(), mockMeter)

			resp, err := handler.StartSession(context.Background(), &struct{}{})

			if tt.wantCode != 0 {
				assert.Equal(t, tt.wantCode, statusOf(t, err))
			} else {
				require.NoError(t, err)
				assert.True(t, resp.Body.Recording)
				assert.Equal(t, int64(1000), resp.Body.StartedAt)
			}
			mockMeter.AssertExpectations(t)
		})
	}
}

func TestStartSession_UsesBaseContext(t *testing.T) {
	type key struct{}
	base := context.WithValue(context.Background(), key{}, "server")

	mockMeter := &MockMeterService{}
	mockMeter.On("Start", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Value(key{}) == "server"
	})).Return(models.Session{Recording: true}, nil)

	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMeterHandler(base, mockMeter).StartSession(reqCtx, &struct{}{})
	require.NoError(t, err)
	mockMeter.AssertExpectations(t)
}

func TestStopSession(t *testing.T) {
	reading := &models.Reading{ID: "r1", Avg: 70}

	t.Run("returns the saved reading", func(t *testing.T) {
		mockMeter := &MockMeterService{}
		mockMeter.On("Stop", mock.Anything).Return(reading, nil)

		resp, err := NewMeterHandler(context.Background(), mockMeter).StopSession(context.Background(), &struct{}{})
		require.NoError(t, err)
		assert.Equal(t, reading, resp.Body.Reading)
	})

	t.Run("empty session has no reading", func(t *testing.T) {
		mockMeter := &MockMeterService{}
		mockMeter.On("Stop", mock.Anything).Return(nil, nil)

		resp, err := NewMeterHandler(context.Background(), mockMeter).StopSession(context.Background(), &struct{}{})
		require.NoError(t, err)
		assert.Nil(t, resp.Body.Reading)
	})

	t.Run("storage failure", func(t *testing.T) {
		mockMeter := &MockMeterService{}
		mockMeter.On("Stop", mock.Anything).Return(reading, fmt.Errorf("disk full"))

		_, err := NewMeterHandler(context.Background(), mockMeter).StopSession(context.Background(), &struct{}{})
		assert.Equal(t, 500, statusOf(t, err))
	})
}

func TestStopSession_DetachesFromRequestCancellation(t *testing.T) {
	mockMeter := &MockMeterService{}
	mockMeter.On("Stop", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	})).Return(&models.Reading{ID: "r1"}, nil)

	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := NewMeterHandler(context.Background(), mockMeter).StopSession(reqCtx, &struct{}{})
	require.NoError(t, err)
	assert.Equal(t, "r1", resp.Body.Reading.ID)
	mockMeter.AssertExpectations(t)
}

func TestGetMeterAndReset(t *testing.T) {
	mockMeter := &MockMeterService{}
	mockMeter.On("Latest").Return(models.MeterSnapshot{Current: 55, Count: 3, Level: "quiet"})
	mockMeter.On("Reset").Return(models.MeterSnapshot{History: []float64{}})
	handler := NewMeterHandler(context.Background(), mockMeter)

	meter, err := handler.GetMeter(context.Background(), &struct{}{})
	require.NoError(t, err)
	assert.Equal(t, 55.0, meter.Body.Current)
	assert.Equal(t, uint64(3), meter.Body.Count)

	reset, err := handler.ResetSession(context.Background(), &struct{}{})
	require.NoError(t, err)
	assert.Zero(t, reset.Body.Count)
	mockMeter.AssertExpectations(t)
}
