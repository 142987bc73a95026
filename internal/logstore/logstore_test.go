package logstore

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/orvd/logviewer/internal/models"
	"github.com/orvd/logviewer/internal/parser"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	logs, err := NewLogDir(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	store, err := OpenDuckStore(filepath.Join(dir, "orvd.duckdb"), DuckOptions{}, zerolog.Nop())
	require.NoError(t, err)
	svc := NewService(logs, store, zerolog.Nop())
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestLogDir(t *testing.T) {
	logs, err := NewLogDir(t.TempDir())
	require.NoError(t, err)

	t.Run("missing file", func(t *testing.T) {
		_, err := logs.Read("42")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(logs.Dir(), "empty.txt"), nil, 0644))
		_, err := logs.Read("empty")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("append prefixes a newline", func(t *testing.T) {
		require.NoError(t, logs.Append("7", "armed"))
		require.NoError(t, logs.Append("7", "takeoff"))

		body, err := logs.Read("7")
		require.NoError(t, err)
		assert.Equal(t, "\narmed\ntakeoff", body)
	})

	t.Run("path escape refused", func(t *testing.T) {
		for _, id := range []string{"../7", "a/b", `a\b`, ".."} {
			_, err := logs.Read(id)
			assert.ErrorIs(t, err, ErrNotFound, id)
			assert.Error(t, logs.Append(id, "x"), id)
		}
	})
}

func TestFormatFloat(t *testing.T) {
	cases := map[float64]string{
		0:          "0.0",
		1:          "1.0",
		42.5:       "42.5",
		-3.25:      "-3.25",
		55.7558241: "55.7558241",
		0.0001:     "0.0001",
		0.00001:    "1e-05",
		1e16:       "1e+16",
		123456789:  "123456789.0",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatFloat(in), "%v", in)
	}
	assert.Equal(t, "nan", FormatFloat(math.NaN()))
	assert.Equal(t, "-inf", FormatFloat(math.Inf(-1)))
}

func TestFormatDatetime(t *testing.T) {
	whole := time.Date(2024, 9, 15, 16, 46, 38, 0, time.UTC)
	frac := time.Date(2024, 9, 15, 16, 46, 38, 302348000, time.UTC)

	assert.Equal(t, "2024-09-15 16:46:38", FormatDatetime(whole, ' '))
	assert.Equal(t, "2024-09-15T16:46:38.302348", FormatDatetime(frac, 'T'))
}

func TestEncodeTelemetryCSV(t *testing.T) {
	body, err := EncodeTelemetryCSV([]models.TelemetryRecord{{
		RecordTime: time.Date(2024, 9, 15, 16, 46, 38, 302348000, time.UTC),
		Lat:        55.75, Lon: 37.61, Alt: 120, Azimuth: 1.5, Dop: 0.9, Sats: 11, Speed: 12.5,
	}})
	require.NoError(t, err)

	assert.Equal(t,
		"record_time,lat,lon,alt,azimuth,dop,sats,speed\r\n"+
			"2024-09-15 16:46:38.302348,55.75,37.61,120.0,1.5,0.9,11,12.5\r\n",
		string(body))

	series := parser.NewTelemetryParser(time.UTC).ParseSpeedSeries(string(body))
	require.Equal(t, 1, series.Len())
	assert.Equal(t, 12.5, series.Speeds[0], "the viewer reads back what the backend writes")
}

func TestService_TelemetryCSV(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.TelemetryCSV(ctx, "7")
	assert.ErrorIs(t, err, ErrNotFound)

	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, svc.RecordTelemetry(ctx, models.TelemetryRecord{UavID: "7", RecordTime: base.Add(time.Minute), Speed: 2}))
	require.NoError(t, svc.RecordTelemetry(ctx, models.TelemetryRecord{UavID: "7", RecordTime: base, Speed: 1}))
	require.NoError(t, svc.RecordTelemetry(ctx, models.TelemetryRecord{UavID: "8", RecordTime: base, Speed: 9}))

	body, err := svc.TelemetryCSV(ctx, "7")
	require.NoError(t, err)

	rows := strings.Split(strings.TrimRight(string(body), "\r\n"), "\r\n")
	require.Len(t, rows, 3)
	assert.Equal(t, "2024-01-01 10:00:00,0.0,0.0,0.0,0.0,0.0,0,1.0", rows[1])
	assert.Equal(t, "2024-01-01 10:01:00,0.0,0.0,0.0,0.0,0.0,0,2.0", rows[2])

	assert.Error(t, svc.RecordTelemetry(ctx, models.TelemetryRecord{}))
}

func TestService_Events(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Events(ctx, "7")
	assert.ErrorIs(t, err, ErrNotFound)

	t0 := time.Date(2024, 9, 15, 16, 46, 38, 302348000, time.UTC)
	require.NoError(t, svc.RecordEvent(ctx, "7", "mission", "accepted", t0.Add(time.Second)))
	require.NoError(t, svc.RecordEvent(ctx, "7", "arm", "a=b", t0))
	require.NoError(t, svc.store.AddEvents(ctx, models.StoredEvent{UavID: "7", Timestamp: t0, LogMessage: "garbage"}))

	events, err := svc.Events(ctx, "7")
	require.NoError(t, err)
	require.Len(t, events, 2, "malformed messages are skipped")

	assert.Equal(t, models.EventRecord{Timestamp: "2024-09-15T16:46:38.302348", Type: "arm", Event: "a=b"}, events[0])
	assert.Equal(t, "mission", events[1].Type)
}

func TestService_EventsAllMalformed(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.store.AddEvents(ctx, models.StoredEvent{UavID: "7", Timestamp: time.Now(), LogMessage: "nope"}))

	events, err := svc.Events(ctx, "7")
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NotNil(t, events)
}

func TestService_Logs(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Logs("7")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.AppendLog("7", "boot"))
	body, err := svc.Logs("7")
	require.NoError(t, err)
	assert.Equal(t, "\nboot", body)
}
