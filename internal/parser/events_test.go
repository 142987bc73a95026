package parser

import (
	"testing"
	"time"

	"github.com/orvd/logviewer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestEventDecoder_JSON(t *testing.T) {
	d := NewEventDecoder(time.UTC)

	t.Run("millisecond timestamps", func(t *testing.T) {
		events, err := d.Decode("application/json", []byte(`[{"timestamp":1700000000000,"type":"T","event":"E"}]`))
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, time.UnixMilli(1700000000000), events[0].Timestamp)
		assert.Equal(t, "T", events[0].Type)
		assert.Equal(t, "E", events[0].Event)
	})

	t.Run("isoformat timestamps keep order", func(t *testing.T) {
		body := `[{"timestamp":"2024-09-15T16:46:38.302348","type":"arm","event":"armed"},
			{"timestamp":"2024-09-15T16:40:00","type":"kill","event":"off"}]`
		events, err := d.Decode("", []byte(body))
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "arm", events[0].Type)
		assert.Equal(t, "kill", events[1].Type)
		assert.Equal(t, time.Date(2024, 9, 15, 16, 46, 38, 302348000, time.UTC), events[0].Timestamp)
	})

	t.Run("null fields become empty", func(t *testing.T) {
		events, err := d.Decode("application/json", []byte(`[{"timestamp":"2024-09-15T16:40:00","type":null,"event":"x"}]`))
		require.NoError(t, err)
		assert.Equal(t, "", events[0].Type)
	})

	t.Run("empty array", func(t *testing.T) {
		events, err := d.Decode("application/json", []byte(`[]`))
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("unreadable timestamps keep their rows", func(t *testing.T) {
		body := `[{"timestamp":"not a date","type":"T","event":"E"},
			{"timestamp":true,"type":"B","event":"F"},
			{"timestamp":1700000000000,"type":"G","event":"H"}]`
		events, err := d.Decode("application/json", []byte(body))
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.True(t, events[0].Timestamp.IsZero())
		assert.Equal(t, "T", events[0].Type)
		assert.True(t, events[1].Timestamp.IsZero())
		assert.Equal(t, time.UnixMilli(1700000000000), events[2].Timestamp)
	})

	t.Run("not found marker is an error", func(t *testing.T) {
		_, err := d.Decode("text/html; charset=utf-8", []byte(`$-1`))
		assert.Error(t, err)
	})

	t.Run("null is an error", func(t *testing.T) {
		_, err := d.Decode("application/json", []byte(`null`))
		assert.Error(t, err)
	})
}

func TestEventDecoder_Msgpack(t *testing.T) {
	records := []models.EventRecord{
		{Timestamp: "2024-09-15T16:46:38", Type: "mission", Event: "accepted"},
	}
	body, err := msgpack.Marshal(records)
	require.NoError(t, err)

	events, err := NewEventDecoder(time.UTC).Decode(MIMEMsgpack, body)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "mission", events[0].Type)
	assert.Equal(t, "accepted", events[0].Event)
	assert.Equal(t, time.Date(2024, 9, 15, 16, 46, 38, 0, time.UTC), events[0].Timestamp)
}

func TestParseEventMessage(t *testing.T) {
	typ, ev, err := ParseEventMessage("type=arm&event=state=armed")
	require.NoError(t, err)
	assert.Equal(t, "arm", typ)
	assert.Equal(t, "state=armed", ev)

	typ, ev, err = ParseEventMessage("event=only")
	require.NoError(t, err)
	assert.Equal(t, "", typ)
	assert.Equal(t, "only", ev)

	_, _, err = ParseEventMessage("type=arm&garbage")
	assert.ErrorIs(t, err, ErrMalformedMessage)
}
