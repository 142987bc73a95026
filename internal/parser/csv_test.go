package parser

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpeedSeries_SkipsHeaderAndShortRows(t *testing.T) {
	body := "a,b,c,d,e,f,g,h\n2024-01-01T00:00:00Z,1,2,3,4,5,6,42.5\n1,2,3,4,5,6\n"

	series := NewTelemetryParser(time.UTC).ParseSpeedSeries(body)

	require.Equal(t, 1, series.Len())
	assert.True(t, series.Times[0].Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 42.5, series.Speeds[0])
}

func TestParseSpeedSeries_FieldCounts(t *testing.T) {
	p := NewTelemetryParser(time.UTC)

	t.Run("seven fields are excluded", func(t *testing.T) {
		series := p.ParseSpeedSeries("header\n2024-01-01 00:00:00,1,2,3,4,5,6\n")
		assert.Equal(t, 0, series.Len())
	})

	t.Run("eight fields contribute one point", func(t *testing.T) {
		series := p.ParseSpeedSeries("header\n2024-01-01 00:00:00,1,2,3,4,5,6,7\n")
		require.Equal(t, 1, series.Len())
		assert.Equal(t, 7.0, series.Speeds[0])
	})

	t.Run("extra fields are ignored", func(t *testing.T) {
		series := p.ParseSpeedSeries("header\n2024-01-01 00:00:00,1,2,3,4,5,6,7,8,9\n")
		require.Equal(t, 1, series.Len())
		assert.Equal(t, 7.0, series.Speeds[0])
	})

	t.Run("header row is never plotted", func(t *testing.T) {
		series := p.ParseSpeedSeries("2024-01-01 00:00:00,1,2,3,4,5,6,99\n")
		assert.Equal(t, 0, series.Len())
	})

	t.Run("empty body", func(t *testing.T) {
		assert.Equal(t, 0, p.ParseSpeedSeries("").Len())
	})
}

func TestParseSpeedSeries_FlightServerExport(t *testing.T) {
	// csv.writer on the flight server terminates rows with CRLF
	body := "record_time,lat,lon,alt,azimuth,dop,sats,speed\r\n" +
		"2024-09-15 16:46:38.302348,100.1,50.2,10,1,1.5,12,2.5\r\n" +
		"2024-09-15 16:47:38.302348,100.1,50.2,10,1,1.5,12,3.0\r\n"

	series := NewTelemetryParser(time.UTC).ParseSpeedSeries(body)

	require.Equal(t, 2, series.Len())
	assert.Equal(t, []float64{2.5, 3.0}, series.Speeds)
	assert.Equal(t, time.Date(2024, 9, 15, 16, 46, 38, 302348000, time.UTC), series.Times[0])
}

func TestParseSpeedSeries_InvalidValuesKept(t *testing.T) {
	body := "header\nnot-a-date,1,2,3,4,5,6,fast\n"

	series := NewTelemetryParser(time.UTC).ParseSpeedSeries(body)

	require.Equal(t, 1, series.Len())
	assert.True(t, series.Times[0].IsZero())
	assert.True(t, math.IsNaN(series.Speeds[0]))
}

func TestParseSpeed(t *testing.T) {
	assert.Equal(t, 42.5, ParseSpeed("42.5"))
	assert.Equal(t, 2.5, ParseSpeed(" 2.5\r"))
	assert.Equal(t, -1.0, ParseSpeed("-1"))
	assert.True(t, math.IsNaN(ParseSpeed("")))
	assert.True(t, math.IsNaN(ParseSpeed("n/a")))
	assert.True(t, math.IsNaN(ParseSpeed(".")))

	t.Run("leading number is kept", func(t *testing.T) {
		assert.Equal(t, 42.5, ParseSpeed("42.5kmh"))
		assert.Equal(t, 3.0, ParseSpeed("3 m/s"))
		assert.Equal(t, 0.5, ParseSpeed(".5x"))
		assert.Equal(t, 5.0, ParseSpeed("5."))
		assert.Equal(t, 1200.0, ParseSpeed("1.2e3e"))
		assert.Equal(t, 7.0, ParseSpeed("7e"))
		assert.Equal(t, 0.0, ParseSpeed("0x10"))
		assert.True(t, math.IsInf(ParseSpeed("-Infinity"), -1))
		assert.True(t, math.IsInf(ParseSpeed("1e999"), 1))
	})
}
