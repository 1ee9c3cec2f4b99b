// Package export renders stored readings for sharing.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/RMahshie/dbmeter/pkg/models"
)

// ContentType is the MIME type of WriteCSV output.
const ContentType = "text/csv"

// Header is the first CSV row.
var Header = []string{"Date", "Time", "Duration (s)", "Min (dB)", "Avg (dB)", "Max (dB)", "Current (dB)"}

// WriteCSV writes one row per reading in the given order. Dates are rendered in loc
// (UTC when nil).
func WriteCSV(w io.Writer, readings []models.Reading, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range readings {
		start := time.UnixMilli(r.Timestamp).In(loc)
		row := []string{
			start.Format(time.DateOnly),
			start.Format(time.TimeOnly),
			oneDecimal(float64(r.Duration) / 1000),
			oneDecimal(r.Min),
			oneDecimal(r.Avg),
			oneDecimal(r.Max),
			oneDecimal(r.Decibels),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write reading %s: %w", r.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// FileName returns a timestamped export name such as readings-20241019-153000.csv.
func FileName(now time.Time) string {
	return "readings-" + now.UTC().Format("20060102-150405") + ".csv"
}

func oneDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
