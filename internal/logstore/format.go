package logstore

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/orvd/logviewer/internal/models"
	"github.com/orvd/logviewer/internal/parser"
)

// EncodeTelemetryCSV writes the telemetry export: a header row, then one
// CRLF-terminated row per sample. Times print as "2006-01-02 15:04:05[.ffffff]"
// and floats always carry a decimal point or an exponent.
func EncodeTelemetryCSV(records []models.TelemetryRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true

	if err := w.Write(parser.TelemetryHeader); err != nil {
		return nil, err
	}
	for _, r := range records {
		row := []string{
			FormatDatetime(r.RecordTime, ' '),
			FormatFloat(r.Lat),
			FormatFloat(r.Lon),
			FormatFloat(r.Alt),
			FormatFloat(r.Azimuth),
			FormatFloat(r.Dop),
			strconv.Itoa(r.Sats),
			FormatFloat(r.Speed),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encoding telemetry csv: %w", err)
	}
	return buf.Bytes(), nil
}

// FormatDatetime prints the wall clock of t with sep between date and time.
// Microseconds are printed only when non-zero.
func FormatDatetime(t time.Time, sep byte) string {
	s := t.Format("2006-01-02") + string(sep) + t.Format("15:04:05")
	if us := t.Nanosecond() / 1000; us != 0 {
		s += fmt.Sprintf(".%06d", us)
	}
	return s
}

// FormatFloat prints f in shortest round-trip form. Integral values keep a
// trailing ".0"; very small or very large magnitudes use an exponent.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
