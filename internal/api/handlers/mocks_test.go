package handlers

import (
	"context"

	"github.com/RMahshie/dbmeter/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockMeterService implements MeterService for testing
type MockMeterService struct {
	mock.Mock
}

func (m *MockMeterService) Start(ctx context.Context) (models.Session, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Session), args.Error(1)
}

func (m *MockMeterService) Stop(ctx context.Context) (*models.Reading, error) {
	args := m.Called(ctx)
	reading, _ := args.Get(0).(*models.Reading)
	return reading, args.Error(1)
}

func (m *MockMeterService) Reset() models.MeterSnapshot {
	return m.Called().Get(0).(models.MeterSnapshot)
}

func (m *MockMeterService) Latest() models.MeterSnapshot {
	return m.Called().Get(0).(models.MeterSnapshot)
}

func (m *MockMeterService) Session() models.Session {
	return m.Called().Get(0).(models.Session)
}

func (m *MockMeterService) SubscribeChan(buffer int) (<-chan models.MeterSnapshot, func()) {
	args := m.Called(buffer)
	return args.Get(0).(<-chan models.MeterSnapshot), args.Get(1).(func())
}

// MockReadingStore implements ReadingStore for testing
type MockReadingStore struct {
	mock.Mock
}

func (m *MockReadingStore) List() []models.Reading {
	return m.Called().Get(0).([]models.Reading)
}

func (m *MockReadingStore) ListByRange(start, end int64) []models.Reading {
	return m.Called(start, end).Get(0).([]models.Reading)
}

func (m *MockReadingStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockReadingStore) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockExportUploader implements ExportUploader for testing
type MockExportUploader struct {
	mock.Mock
}

func (m *MockExportUploader) UploadExport(ctx context.Context, name string, body []byte, contentType string) (string, error) {
	args := m.Called(ctx, name, body, contentType)
	return args.String(0), args.Error(1)
}

// MockSettingsService implements SettingsService for testing
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Current() models.Settings {
	return m.Called().Get(0).(models.Settings)
}

func (m *MockSettingsService) Update(ctx context.Context, patch models.SettingsPatch) (models.Settings, error) {
	args := m.Called(ctx, patch)
	return args.Get(0).(models.Settings), args.Error(1)
}
