// Package parser decodes the bodies served by the logs backend: plain-text
// logs, telemetry CSV and event lists.
package parser

import (
	"fmt"
	"strings"
	"time"
)

// zonedLayouts are tried when a timestamp carries an explicit offset or "Z".
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z0700",
}

// localLayouts are zone-less and interpreted in the caller's location.
var localLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// dateOnlyLayout is read as UTC midnight whatever the caller's location.
const dateOnlyLayout = "2006-01-02"

// SplitLines splits a log body on newline characters.
// Empty lines are kept, including a trailing one after the final newline.
func SplitLines(body string) []string {
	return strings.Split(body, "\n")
}

// ParseTimestamp parses the timestamp forms produced by the flight server:
// "2024-09-15 16:46:38.302348", "2024-09-15T16:46:38.302348" and RFC 3339.
// Zone-less values are read in loc (time.Local when nil), except a bare date,
// which is UTC.
func ParseTimestamp(ts string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	ts = strings.TrimSpace(ts)

	if t, ok := fastTimestamp(ts, loc); ok {
		return t, nil
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, ts, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(dateOnlyLayout, ts); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp: %q", ts)
}

// fastTimestamp handles "YYYY-MM-DD[ T]HH:MM:SS[.frac]" without a zone,
// which is every row of a telemetry export.
func fastTimestamp(ts string, loc *time.Location) (time.Time, bool) {
	if len(ts) < 19 || ts[4] != '-' || ts[7] != '-' || (ts[10] != ' ' && ts[10] != 'T') ||
		ts[13] != ':' || ts[16] != ':' {
		return time.Time{}, false
	}

	year := parseInt4(ts[0:4])
	month := parseInt2(ts[5:7])
	day := parseInt2(ts[8:10])
	hour := parseInt2(ts[11:13])
	min := parseInt2(ts[14:16])
	sec := parseInt2(ts[17:19])

	if year < 0 || month < 1 || month > 12 || day < 1 || day > 31 ||
		hour < 0 || hour > 23 || min < 0 || min > 59 || sec < 0 || sec > 59 {
		return time.Time{}, false
	}

	var nsec int
	if len(ts) > 19 {
		if ts[19] != '.' || len(ts) == 20 {
			return time.Time{}, false
		}
		frac := ts[20:]
		for i := 0; i < len(frac); i++ {
			if frac[i] < '0' || frac[i] > '9' {
				// trailing zone, leave it to time.Parse
				return time.Time{}, false
			}
		}
		fracLen := len(frac)
		if fracLen > 9 {
			frac = frac[:9]
			fracLen = 9
		}
		nsec = parseIntN(frac, fracLen)
		for i := fracLen; i < 9; i++ {
			nsec *= 10
		}
	}

	return time.Date(year, time.Month(month), day, hour, min, sec, nsec, loc), true
}

// parseInt2 parses a 2-digit decimal string. Returns -1 on error.
func parseInt2(s string) int {
	if len(s) != 2 {
		return -1
	}
	d1, d2 := s[0]-'0', s[1]-'0'
	if d1 > 9 || d2 > 9 {
		return -1
	}
	return int(d1)*10 + int(d2)
}

// parseInt4 parses a 4-digit decimal string. Returns -1 on error.
func parseInt4(s string) int {
	if len(s) != 4 {
		return -1
	}
	d1, d2, d3, d4 := s[0]-'0', s[1]-'0', s[2]-'0', s[3]-'0'
	if d1 > 9 || d2 > 9 || d3 > 9 || d4 > 9 {
		return -1
	}
	return int(d1)*1000 + int(d2)*100 + int(d3)*10 + int(d4)
}

// parseIntN parses an n-digit decimal string. Returns 0 on error.
func parseIntN(s string, n int) int {
	result := 0
	for i := 0; i < n; i++ {
		d := s[i] - '0'
		if d > 9 {
			return 0
		}
		result = result*10 + int(d)
	}
	return result
}
