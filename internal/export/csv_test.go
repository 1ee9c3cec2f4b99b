package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/dbmeter/pkg/models"
)

func TestWriteCSV(t *testing.T) {
	start := time.Date(2024, 10, 19, 14, 30, 5, 0, time.UTC)
	readings := []models.Reading{
		{ID: "b", Timestamp: start.Add(time.Hour).UnixMilli(), Decibels: 70.04, Min: 40, Max: 100, Avg: 70, Duration: 12345},
		{ID: "a", Timestamp: start.UnixMilli(), Decibels: 55.56, Min: 33.33, Max: 81.96, Avg: 60.26, Duration: 500},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, readings, nil))

	want := "Date,Time,Duration (s),Min (dB),Avg (dB),Max (dB),Current (dB)\n" +
		"2024-10-19,15:30:05,12.3,40.0,70.0,100.0,70.0\n" +
		"2024-10-19,14:30:05,0.5,33.3,60.3,82.0,55.6\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_Location(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	r := models.Reading{ID: "a", Timestamp: time.Date(2024, 10, 19, 23, 0, 0, 0, time.UTC).UnixMilli()}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []models.Reading{r}, loc))
	assert.Contains(t, buf.String(), "2024-10-20,01:00:00,")
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil, nil))
	assert.Equal(t, "Date,Time,Duration (s),Min (dB),Avg (dB),Max (dB),Current (dB)\n", buf.String())
}

func TestFileName(t *testing.T) {
	now := time.Date(2024, 10, 19, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, "readings-20241019-153000.csv", FileName(now))
}
