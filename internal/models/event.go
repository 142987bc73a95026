package models

import "time"

// Event is a decoded UAV event as shown in the events table.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Event     string    `json:"event"`
}

// EventRecord is the wire form served by the logs backend.
// Timestamp is ISO-8601 without a zone, the way the flight server writes it.
type EventRecord struct {
	Timestamp string `json:"timestamp" msgpack:"timestamp"`
	Type      string `json:"type" msgpack:"type"`
	Event     string `json:"event" msgpack:"event"`
}

// StoredEvent is a raw event row kept by the logs backend.
// LogMessage carries "type=<type>&event=<event>".
type StoredEvent struct {
	UavID      string    `json:"uavId"`
	Timestamp  time.Time `json:"timestamp"`
	LogMessage string    `json:"logMessage"`
}
