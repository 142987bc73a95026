package viewer

import (
	"time"

	"github.com/orvd/logviewer/internal/models"
)

// Table is a rendered table: a header row and data rows of cell texts.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// EventsView is the content of the Events region: either a table or a
// message, never both.
type EventsView struct {
	Table   *Table `json:"table,omitempty"`
	Message string `json:"message,omitempty"`
}

// BuildEventsView builds the events table in server order. An empty list
// yields the "no events" message and no table.
func BuildEventsView(events []models.Event, loc *time.Location, layout string) EventsView {
	if len(events) == 0 {
		return EventsView{Message: MsgNoEvents}
	}
	if loc == nil {
		loc = time.Local
	}
	if layout == "" {
		layout = DefaultTimeLayout
	}

	table := &Table{
		Header: append([]string(nil), EventsHeader...),
		Rows:   make([][]string, 0, len(events)),
	}
	for _, ev := range events {
		table.Rows = append(table.Rows, []string{
			FormatEventTime(ev.Timestamp, loc, layout),
			ev.Type,
			ev.Event,
		})
	}
	return EventsView{Table: table}
}

// FormatEventTime formats ts in loc. The zero time renders as "Invalid Date".
func FormatEventTime(ts time.Time, loc *time.Location, layout string) string {
	if ts.IsZero() {
		return "Invalid Date"
	}
	return ts.In(loc).Format(layout)
}
