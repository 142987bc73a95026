package logstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/marcboeker/go-duckdb"
	"github.com/orvd/logviewer/internal/models"
	"github.com/rs/zerolog"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS telemetry (
	uav_id      VARCHAR NOT NULL,
	record_time TIMESTAMP NOT NULL,
	lat         DOUBLE,
	lon         DOUBLE,
	alt         DOUBLE,
	azimuth     DOUBLE,
	dop         DOUBLE,
	sats        INTEGER,
	speed       DOUBLE
)`, `
CREATE TABLE IF NOT EXISTS events (
	uav_id      VARCHAR NOT NULL,
	event_time  TIMESTAMP NOT NULL,
	log_message VARCHAR NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_telemetry_uav ON telemetry(uav_id, record_time)`,
	`CREATE INDEX IF NOT EXISTS idx_events_uav ON events(uav_id, event_time)`,
}

// DuckStore keeps telemetry samples and events in a DuckDB database.
// Timestamps are stored as zone-less wall-clock values.
type DuckStore struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// DuckOptions tune the DuckDB engine. Zero values keep the defaults.
type DuckOptions struct {
	Threads     int
	MemoryLimit string
}

// OpenDuckStore opens or creates the database at path. An empty path opens
// an in-memory database.
func OpenDuckStore(path string, opts DuckOptions, logger zerolog.Logger) (*DuckStore, error) {
	if opts.Threads <= 0 {
		opts.Threads = 2
	}
	if opts.MemoryLimit == "" {
		opts.MemoryLimit = "512MB"
	}

	connector, err := duckdb.NewConnector(path, func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", opts.Threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				logger.Warn().Err(err).Str("pragma", pragma).Msg("duckdb pragma failed")
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	logger.Debug().Str("path", path).Msg("duckdb store opened")
	return &DuckStore{db: db, path: path, logger: logger}, nil
}

// AddTelemetry appends telemetry samples using the native Appender API.
func (ds *DuckStore) AddTelemetry(ctx context.Context, records ...models.TelemetryRecord) error {
	if len(records) == 0 {
		return nil
	}
	return ds.appendRows(ctx, "telemetry", len(records), func(a *duckdb.Appender, i int) error {
		r := records[i]
		return a.AppendRow(
			r.UavID,
			wallClock(r.RecordTime),
			r.Lat,
			r.Lon,
			r.Alt,
			r.Azimuth,
			r.Dop,
			int32(r.Sats),
			r.Speed,
		)
	})
}

// AddEvents appends raw events.
func (ds *DuckStore) AddEvents(ctx context.Context, events ...models.StoredEvent) error {
	if len(events) == 0 {
		return nil
	}
	return ds.appendRows(ctx, "events", len(events), func(a *duckdb.Appender, i int) error {
		e := events[i]
		return a.AppendRow(e.UavID, wallClock(e.Timestamp), e.LogMessage)
	})
}

func (ds *DuckStore) appendRows(ctx context.Context, table string, n int, row func(*duckdb.Appender, int) error) error {
	conn, err := ds.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", table)
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		for i := 0; i < n; i++ {
			if err := row(appender, i); err != nil {
				return fmt.Errorf("failed to append row %d: %w", i, err)
			}
		}
		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appending to %s: %w", table, err)
	}
	return nil
}

// Telemetry returns the samples of uavID ordered by record time.
func (ds *DuckStore) Telemetry(ctx context.Context, uavID string) ([]models.TelemetryRecord, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT record_time, lat, lon, alt, azimuth, dop, sats, speed
		FROM telemetry
		WHERE uav_id = ?
		ORDER BY record_time ASC`, uavID)
	if err != nil {
		return nil, fmt.Errorf("querying telemetry: %w", err)
	}
	defer rows.Close()

	var out []models.TelemetryRecord
	for rows.Next() {
		var (
			rec  = models.TelemetryRecord{UavID: uavID}
			lat  sql.NullFloat64
			lon  sql.NullFloat64
			alt  sql.NullFloat64
			az   sql.NullFloat64
			dop  sql.NullFloat64
			sats sql.NullInt32
			spd  sql.NullFloat64
		)
		if err := rows.Scan(&rec.RecordTime, &lat, &lon, &alt, &az, &dop, &sats, &spd); err != nil {
			return nil, fmt.Errorf("scanning telemetry: %w", err)
		}
		rec.Lat, rec.Lon, rec.Alt = lat.Float64, lon.Float64, alt.Float64
		rec.Azimuth, rec.Dop, rec.Speed = az.Float64, dop.Float64, spd.Float64
		rec.Sats = int(sats.Int32)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Events returns the raw events of uavID ordered by timestamp.
func (ds *DuckStore) Events(ctx context.Context, uavID string) ([]models.StoredEvent, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT event_time, log_message
		FROM events
		WHERE uav_id = ?
		ORDER BY event_time ASC`, uavID)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var out []models.StoredEvent
	for rows.Next() {
		ev := models.StoredEvent{UavID: uavID}
		if err := rows.Scan(&ev.Timestamp, &ev.LogMessage); err != nil {
			return nil, fmt.Errorf("scanning events: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Close closes the database. The file is kept.
func (ds *DuckStore) Close() error {
	if ds.db == nil {
		return nil
	}
	return ds.db.Close()
}

// wallClock drops the zone of t, keeping its wall-clock reading.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
