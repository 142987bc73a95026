package parser

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/orvd/logviewer/internal/models"
)

const (
	// MinTelemetryFields is the number of comma-separated fields a row needs
	// to be plotted. Shorter rows are skipped without error.
	MinTelemetryFields = 8

	// SpeedField is the index of the speed column.
	SpeedField = 7
)

// TelemetryHeader is the header row written by the flight server.
var TelemetryHeader = []string{"record_time", "lat", "lon", "alt", "azimuth", "dop", "sats", "speed"}

// TelemetryParser turns a telemetry CSV body into a speed series.
// Format: "record_time,lat,lon,alt,azimuth,dop,sats,speed"
type TelemetryParser struct {
	loc *time.Location
}

// NewTelemetryParser creates a parser reading zone-less timestamps in loc.
func NewTelemetryParser(loc *time.Location) *TelemetryParser {
	if loc == nil {
		loc = time.Local
	}
	return &TelemetryParser{loc: loc}
}

// ParseSpeedSeries drops the first line, then plots field 0 against field 7 for
// every line with at least MinTelemetryFields fields. Fields are split on bare
// commas; quoting is not interpreted.
//
// A timestamp that does not parse yields the zero time and a speed that does
// not parse yields NaN; both stay in the series so the chart layer decides
// what to skip.
func (p *TelemetryParser) ParseSpeedSeries(body string) models.SpeedSeries {
	var series models.SpeedSeries

	rows := strings.Split(body, "\n")
	for _, row := range rows[1:] {
		cols := strings.Split(row, ",")
		if len(cols) < MinTelemetryFields {
			continue
		}

		ts, err := ParseTimestamp(cols[0], p.loc)
		if err != nil {
			ts = time.Time{}
		}
		series.Append(ts, ParseSpeed(cols[SpeedField]))
	}

	return series
}

// ParseSpeedSeries parses a telemetry body with zone-less timestamps in local time.
func ParseSpeedSeries(body string) models.SpeedSeries {
	return NewTelemetryParser(time.Local).ParseSpeedSeries(body)
}

// ParseSpeed parses the leading decimal number of a speed cell, so "42.5kmh"
// reads as 42.5. Leading whitespace is ignored. A cell without a leading
// number returns NaN.
func ParseSpeed(raw string) float64 {
	s := numericPrefix(strings.TrimSpace(raw))
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return v
}

// numericPrefix returns the longest prefix of s that is a signed decimal
// number with optional fraction and exponent, or "Infinity".
func numericPrefix(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if strings.HasPrefix(s[i:], "Infinity") {
		return s[:i+len("Infinity")]
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if digits > 0 || j > i+1 {
			digits += j - i - 1
			i = j
		}
	}
	if digits == 0 {
		return ""
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}
	return s[:i]
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
