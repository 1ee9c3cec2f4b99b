package measurement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/dbmeter/internal/repository/memory"
	"github.com/RMahshie/dbmeter/pkg/models"
)

// MockKeyValue implements repository.KeyValue for testing
type MockKeyValue struct {
	mock.Mock
}

func (m *MockKeyValue) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockKeyValue) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockKeyValue) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func newReading(i int) models.Reading {
	return models.Reading{
		ID:        fmt.Sprintf("reading-%04d", i),
		Timestamp: int64(i) * 100,
		Decibels:  50 + float64(i%10),
		Min:       30,
		Max:       90.5,
		Avg:       61.25,
		Duration:  int64(i) * 10,
	}
}

func newMemoryStore(t *testing.T, capacity int) (*Store, *memory.KeyValue) {
	t.Helper()
	kv := memory.NewKeyValue()
	store, err := NewStore(context.Background(), kv, capacity)
	require.NoError(t, err)
	return store, kv
}

func ids(readings []models.Reading) []string {
	out := make([]string, len(readings))
	for i, r := range readings {
		out[i] = r.ID
	}
	return out
}

func TestStore_SaveIsNewestFirst(t *testing.T) {
	store, _ := newMemoryStore(t, 10)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Save(ctx, newReading(i)))
	}

	assert.Equal(t, []string{"reading-0003", "reading-0002", "reading-0001"}, ids(store.List()))
}

func TestStore_CapacityEvictsOldest(t *testing.T) {
	store, kv := newMemoryStore(t, DefaultCapacity)
	ctx := context.Background()

	for i := 1; i <= DefaultCapacity+1; i++ {
		require.NoError(t, store.Save(ctx, newReading(i)))
	}

	list := store.List()
	require.Len(t, list, DefaultCapacity)
	assert.Equal(t, "reading-1001", list[0].ID)
	assert.Equal(t, "reading-0002", list[len(list)-1].ID)

	raw, found, err := kv.Get(ctx, ReadingsKey)
	require.NoError(t, err)
	require.True(t, found)
	var persisted []models.Reading
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	assert.Equal(t, list, persisted)
}

func TestStore_DeleteByID(t *testing.T) {
	store, _ := newMemoryStore(t, 10)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Save(ctx, newReading(i)))
	}

	removed, err := store.DeleteByID(ctx, "reading-0002")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, []string{"reading-0003", "reading-0001"}, ids(store.List()))

	_, ok := store.Get("reading-0002")
	assert.False(t, ok)
}

func TestStore_DeleteMissingIDIsNoop(t *testing.T) {
	store, _ := newMemoryStore(t, 10)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Save(ctx, newReading(i)))
	}
	before := store.List()

	removed, err := store.DeleteByID(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, before, store.List())
}

func TestStore_Clear(t *testing.T) {
	store, kv := newMemoryStore(t, 10)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newReading(1)))

	require.NoError(t, store.Clear(ctx))
	assert.Empty(t, store.List())
	assert.Equal(t, 0, store.Len())

	_, found, err := kv.Get(ctx, ReadingsKey)
	require.NoError(t, err)
	assert.False(t, found)

	// Usable after clear
	require.NoError(t, store.Save(ctx, newReading(2)))
	assert.Equal(t, []string{"reading-0002"}, ids(store.List()))
}

func TestStore_ListByRange(t *testing.T) {
	store, _ := newMemoryStore(t, 10)
	ctx := context.Background()
	for _, ts := range []int64{100, 200, 300} {
		r := newReading(int(ts))
		r.Timestamp = ts
		require.NoError(t, store.Save(ctx, r))
	}

	tests := []struct {
		name       string
		start, end int64
		want       []int64
	}{
		{name: "middle only", start: 150, end: 250, want: []int64{200}},
		{name: "inclusive bounds", start: 100, end: 300, want: []int64{300, 200, 100}},
		{name: "single point", start: 300, end: 300, want: []int64{300}},
		{name: "no match", start: 301, end: 400, want: []int64{}},
		{name: "start after end", start: 300, end: 100, want: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := store.ListByRange(tt.start, tt.end)
			require.NotNil(t, got)
			timestamps := make([]int64, len(got))
			for i, r := range got {
				timestamps[i] = r.Timestamp
			}
			assert.Equal(t, tt.want, timestamps)
		})
	}
}

func TestStore_ListReturnsCopy(t *testing.T) {
	store, _ := newMemoryStore(t, 10)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newReading(1)))

	list := store.List()
	list[0].ID = "mutated"

	assert.Equal(t, []string{"reading-0001"}, ids(store.List()))
}

func TestStore_RejectsDuplicateAndInvalid(t *testing.T) {
	store, _ := newMemoryStore(t, 10)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newReading(1)))

	assert.ErrorIs(t, store.Save(ctx, newReading(1)), ErrDuplicateID)
	assert.ErrorIs(t, store.Save(ctx, models.Reading{}), ErrInvalidReading)

	negative := newReading(2)
	negative.Duration = -1
	assert.ErrorIs(t, store.Save(ctx, negative), ErrInvalidReading)
	assert.Equal(t, 1, store.Len())
}

func TestStore_ReloadsPersistedState(t *testing.T) {
	ctx := context.Background()
	store, kv := newMemoryStore(t, 10)
	for i := 1; i <= 4; i++ {
		require.NoError(t, store.Save(ctx, newReading(i)))
	}
	_, err := store.DeleteByID(ctx, "reading-0003")
	require.NoError(t, err)

	reloaded, err := NewStore(ctx, kv, 10)
	require.NoError(t, err)
	assert.Equal(t, store.List(), reloaded.List())
}

func TestStore_ReloadTruncatesToCapacity(t *testing.T) {
	ctx := context.Background()
	store, kv := newMemoryStore(t, 10)
	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Save(ctx, newReading(i)))
	}

	smaller, err := NewStore(ctx, kv, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"reading-0005", "reading-0004", "reading-0003"}, ids(smaller.List()))
}

func TestStore_ReadingRoundTrip(t *testing.T) {
	r := models.Reading{
		ID:        "0192f7a4-1b2c-7d3e-8f40-1234567890ab",
		Timestamp: 1729339200123,
		Decibels:  73.123456789,
		Min:       0.1,
		Max:       119.99999,
		Avg:       64.33333333333333,
		Duration:  90500,
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"id":"0192f7a4-1b2c-7d3e-8f40-1234567890ab","timestamp":1729339200123,"decibels":73.123456789,`+
			`"min":0.1,"max":119.99999,"avg":64.33333333333333,"duration":90500}`,
		string(data))

	var decoded models.Reading
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r, decoded)
}

func TestNewStore_LoadFailure(t *testing.T) {
	kv := new(MockKeyValue)
	kv.On("Get", mock.Anything, ReadingsKey).Return("", false, errors.New("disk unavailable"))

	_, err := NewStore(context.Background(), kv, 10)
	assert.ErrorIs(t, err, ErrStorageFailure)
	kv.AssertExpectations(t)
}

func TestNewStore_CorruptState(t *testing.T) {
	kv := new(MockKeyValue)
	kv.On("Get", mock.Anything, ReadingsKey).Return("{not json", true, nil)

	_, err := NewStore(context.Background(), kv, 10)
	assert.ErrorIs(t, err, ErrStorageFailure)
}

func TestStore_WriteFailurePreservesState(t *testing.T) {
	ctx := context.Background()
	kv := new(MockKeyValue)
	kv.On("Get", mock.Anything, ReadingsKey).Return("", false, nil)

	store, err := NewStore(ctx, kv, 10)
	require.NoError(t, err)

	kv.On("Set", mock.Anything, ReadingsKey, mock.Anything).Return(nil).Once()
	require.NoError(t, store.Save(ctx, newReading(1)))

	writeErr := errors.New("quota exceeded")
	kv.On("Set", mock.Anything, ReadingsKey, mock.Anything).Return(writeErr)
	kv.On("Remove", mock.Anything, ReadingsKey).Return(writeErr)

	err = store.Save(ctx, newReading(2))
	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.ErrorIs(t, err, writeErr)

	removed, err := store.DeleteByID(ctx, "reading-0001")
	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.False(t, removed)

	assert.ErrorIs(t, store.Clear(ctx), ErrStorageFailure)

	assert.Equal(t, []string{"reading-0001"}, ids(store.List()))
	kv.AssertExpectations(t)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store, _ := newMemoryStore(t, 50)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				assert.NoError(t, store.Save(ctx, newReading(w*100+i)))
				list := store.List()
				assert.LessOrEqual(t, len(list), 50)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 50, store.Len())
}
