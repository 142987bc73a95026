package logstore

import (
	"context"
	"fmt"
	"time"

	"github.com/orvd/logviewer/internal/models"
	"github.com/orvd/logviewer/internal/parser"
	"github.com/rs/zerolog"
)

// Service answers the three logs queries and records new data.
type Service struct {
	logs   *LogDir
	store  *DuckStore
	logger zerolog.Logger
}

// NewService combines a log directory and a telemetry/event store.
func NewService(logs *LogDir, store *DuckStore, logger zerolog.Logger) *Service {
	return &Service{logs: logs, store: store, logger: logger}
}

// Logs returns the raw log of id.
func (s *Service) Logs(id string) (string, error) {
	return s.logs.Read(id)
}

// TelemetryCSV returns the telemetry export of id, ErrNotFound when there
// are no samples.
func (s *Service) TelemetryCSV(ctx context.Context, id string) ([]byte, error) {
	records, err := s.store.Telemetry(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return EncodeTelemetryCSV(records)
}

// Events returns the events of id in time order, ErrNotFound when none are
// stored. Entries whose message does not decode are skipped, so the result
// may be empty without being an error.
func (s *Service) Events(ctx context.Context, id string) ([]models.EventRecord, error) {
	stored, err := s.store.Events(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, ErrNotFound
	}

	out := make([]models.EventRecord, 0, len(stored))
	for _, ev := range stored {
		typ, event, err := parser.ParseEventMessage(ev.LogMessage)
		if err != nil {
			s.logger.Debug().Str("id", id).Str("message", ev.LogMessage).Msg("skipping malformed event")
			continue
		}
		out = append(out, models.EventRecord{
			Timestamp: FormatDatetime(ev.Timestamp, 'T'),
			Type:      typ,
			Event:     event,
		})
	}
	return out, nil
}

// AppendLog adds one entry to the log of id.
func (s *Service) AppendLog(id, entry string) error {
	return s.logs.Append(id, entry)
}

// RecordTelemetry stores one sample.
func (s *Service) RecordTelemetry(ctx context.Context, rec models.TelemetryRecord) error {
	if rec.UavID == "" {
		return fmt.Errorf("telemetry without uav id")
	}
	return s.store.AddTelemetry(ctx, rec)
}

// RecordEvent stores one event as a "type=..&event=.." message.
func (s *Service) RecordEvent(ctx context.Context, id, eventType, event string, at time.Time) error {
	if id == "" {
		return fmt.Errorf("event without uav id")
	}
	return s.store.AddEvents(ctx, models.StoredEvent{
		UavID:      id,
		Timestamp:  at,
		LogMessage: EventMessage(eventType, event),
	})
}

// EventMessage encodes an event the way it is stored. A value containing
// "&" produces a message that reads back as malformed.
func EventMessage(eventType, event string) string {
	return "type=" + eventType + "&event=" + event
}

// Close closes the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}
