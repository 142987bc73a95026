package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/orvd/logviewer/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// MIMEMsgpack is the content type used for msgpack-encoded event lists.
const MIMEMsgpack = "application/msgpack"

// ErrMalformedMessage is returned for event log messages that are not
// "key=value" pairs joined by "&".
var ErrMalformedMessage = errors.New("malformed event message")

// wireEvent accepts a timestamp as an ISO-8601 string or as milliseconds
// since the Unix epoch.
type wireEvent struct {
	Timestamp interface{} `json:"timestamp" msgpack:"timestamp"`
	Type      *string     `json:"type" msgpack:"type"`
	Event     *string     `json:"event" msgpack:"event"`
}

// EventDecoder decodes event lists served by the logs backend.
type EventDecoder struct {
	loc   *time.Location
	types *StringIntern
}

// NewEventDecoder creates a decoder reading zone-less timestamps in loc.
func NewEventDecoder(loc *time.Location) *EventDecoder {
	if loc == nil {
		loc = time.Local
	}
	return &EventDecoder{loc: loc, types: NewStringIntern()}
}

// Decode decodes body as a msgpack array when contentType says so and as a
// JSON array otherwise. A body that is not an array is an error. A timestamp
// that cannot be read leaves the zero time on its row.
func (d *EventDecoder) Decode(contentType string, body []byte) ([]models.Event, error) {
	var wire []wireEvent

	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), MIMEMsgpack) {
		if err := msgpack.Unmarshal(body, &wire); err != nil {
			return nil, fmt.Errorf("decoding msgpack events: %w", err)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&wire); err != nil {
			return nil, fmt.Errorf("decoding events: %w", err)
		}
		if wire == nil {
			return nil, fmt.Errorf("decoding events: expected an array, got null")
		}
	}

	events := make([]models.Event, 0, len(wire))
	for _, w := range wire {
		ts, err := d.eventTime(w.Timestamp)
		if err != nil {
			ts = time.Time{}
		}
		ev := models.Event{Timestamp: ts}
		if w.Type != nil {
			ev.Type = d.types.Intern(*w.Type)
		}
		if w.Event != nil {
			ev.Event = *w.Event
		}
		events = append(events, ev)
	}
	return events, nil
}

func (d *EventDecoder) eventTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case string:
		return ParseTimestamp(t, d.loc)
	case json.Number:
		if ms, err := t.Int64(); err == nil {
			return time.UnixMilli(ms), nil
		}
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q", t.String())
		}
		return millisToTime(f), nil
	case float64:
		return millisToTime(t), nil
	case float32:
		return millisToTime(float64(t)), nil
	case int64:
		return time.UnixMilli(t), nil
	case uint64:
		return time.UnixMilli(int64(t)), nil
	case int8:
		return time.UnixMilli(int64(t)), nil
	case int16:
		return time.UnixMilli(int64(t)), nil
	case int32:
		return time.UnixMilli(int64(t)), nil
	case uint8:
		return time.UnixMilli(int64(t)), nil
	case uint16:
		return time.UnixMilli(int64(t)), nil
	case uint32:
		return time.UnixMilli(int64(t)), nil
	case time.Time:
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func millisToTime(ms float64) time.Time {
	sec, frac := math.Modf(ms / 1000)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// ParseEventMessage splits a stored log message of the form
// "type=<type>&event=<event>". Only the first "=" of each pair separates key
// from value. Missing keys yield empty strings.
func ParseEventMessage(msg string) (eventType, event string, err error) {
	params := make(map[string]string)
	for _, part := range strings.Split(msg, "&") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return "", "", fmt.Errorf("%w: %q", ErrMalformedMessage, msg)
		}
		params[key] = value
	}
	return params["type"], params["event"], nil
}
