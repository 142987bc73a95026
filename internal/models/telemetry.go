package models

import "time"

// SpeedSeries holds the parallel timestamp and speed sequences plotted on the
// speed chart. Speeds may contain NaN for rows whose speed did not parse.
type SpeedSeries struct {
	Times  []time.Time `json:"times"`
	Speeds []float64   `json:"speeds"`
}

// Len returns the number of points in the series.
func (s SpeedSeries) Len() int {
	return len(s.Times)
}

// Append adds one (timestamp, speed) pair.
func (s *SpeedSeries) Append(ts time.Time, speed float64) {
	s.Times = append(s.Times, ts)
	s.Speeds = append(s.Speeds, speed)
}

// TelemetryRecord is one telemetry sample reported by a UAV.
type TelemetryRecord struct {
	UavID      string    `json:"uavId"`
	RecordTime time.Time `json:"recordTime"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Alt        float64   `json:"alt"`
	Azimuth    float64   `json:"azimuth"`
	Dop        float64   `json:"dop"`
	Sats       int       `json:"sats"`
	Speed      float64   `json:"speed"`
}
