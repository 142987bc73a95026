// handlers_logs.go - Logs backend handlers
package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/orvd/logviewer/internal/logstore"
	"github.com/orvd/logviewer/internal/models"
	"github.com/orvd/logviewer/internal/parser"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Plain-text answers of the logs backend.
const (
	wrongIDBody  = "Wrong id"
	conflictBody = "Conflict."
	okBody       = "ok"
)

// MIMEApplicationMsgpack is the content type of msgpack encoded events.
const MIMEApplicationMsgpack = parser.MIMEMsgpack

var _ LogSource = (*logstore.Service)(nil)

// EventRequest is the body of POST /logs/events
type EventRequest struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Event     string     `json:"event"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// LogsHandlerImpl implements the LogsHandler interface
type LogsHandlerImpl struct {
	src    LogSource
	logger zerolog.Logger
	now    func() time.Time
}

// NewLogsHandler creates a new logs backend handler
func NewLogsHandler(src LogSource, logger zerolog.Logger) LogsHandler {
	return &LogsHandlerImpl{src: src, logger: logger, now: time.Now}
}

// HandleGetLogs returns the log text of one UAV
func (h *LogsHandlerImpl) HandleGetLogs(c echo.Context) error {
	id := c.QueryParam("id")
	if id == "" {
		return c.String(http.StatusBadRequest, wrongIDBody)
	}
	text, err := h.src.Logs(id)
	if err != nil {
		return h.failure(c, "get_logs", id, err)
	}
	return c.String(http.StatusOK, text)
}

// HandleGetTelemetryCSV returns the telemetry of one UAV as CSV
func (h *LogsHandlerImpl) HandleGetTelemetryCSV(c echo.Context) error {
	id := c.QueryParam("id")
	if id == "" {
		return c.String(http.StatusBadRequest, wrongIDBody)
	}
	data, err := h.src.TelemetryCSV(c.Request().Context(), id)
	if err != nil {
		return h.failure(c, "get_telemetry_csv", id, err)
	}
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}

// HandleGetEvents returns the events of one UAV, as msgpack when the client
// accepts it and JSON otherwise
func (h *LogsHandlerImpl) HandleGetEvents(c echo.Context) error {
	id := c.QueryParam("id")
	if id == "" {
		return c.String(http.StatusBadRequest, wrongIDBody)
	}
	events, err := h.src.Events(c.Request().Context(), id)
	if err != nil {
		return h.failure(c, "get_events", id, err)
	}

	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), MIMEApplicationMsgpack) {
		data, err := msgpack.Marshal(events)
		if err != nil {
			return NewInternalError("failed to encode events", err)
		}
		return c.Blob(http.StatusOK, MIMEApplicationMsgpack, data)
	}
	return c.JSON(http.StatusOK, events)
}

// HandleSaveLogs appends one entry to the log of a UAV. id and log are read
// from the query or form; a raw body is the log entry.
func (h *LogsHandlerImpl) HandleSaveLogs(c echo.Context) error {
	id := c.FormValue("id")
	entry := c.FormValue("log")
	if entry == "" && !isForm(c) {
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
		if err != nil {
			return NewBadRequestError("failed to read body", err)
		}
		entry = string(body)
	}
	if id == "" {
		return c.String(http.StatusBadRequest, wrongIDBody)
	}
	if err := h.src.AppendLog(id, entry); err != nil {
		return h.failure(c, "save_logs", id, err)
	}
	return c.String(http.StatusOK, okBody)
}

// HandleRecordTelemetry stores one telemetry record
func (h *LogsHandlerImpl) HandleRecordTelemetry(c echo.Context) error {
	var rec models.TelemetryRecord
	if err := c.Bind(&rec); err != nil {
		return NewBadRequestError("invalid telemetry record", err)
	}
	if rec.UavID == "" {
		rec.UavID = c.QueryParam("id")
	}
	if rec.UavID == "" {
		return c.String(http.StatusBadRequest, wrongIDBody)
	}
	if rec.RecordTime.IsZero() {
		rec.RecordTime = h.now()
	}
	if err := h.src.RecordTelemetry(c.Request().Context(), rec); err != nil {
		return h.failure(c, "telemetry", rec.UavID, err)
	}
	return c.String(http.StatusOK, okBody)
}

// HandleRecordEvent stores one event
func (h *LogsHandlerImpl) HandleRecordEvent(c echo.Context) error {
	var req EventRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid event", err)
	}
	if req.ID == "" {
		return c.String(http.StatusBadRequest, wrongIDBody)
	}
	if req.Type == "" {
		return NewValidationError("type")
	}
	at := h.now()
	if req.Timestamp != nil {
		at = *req.Timestamp
	}
	if err := h.src.RecordEvent(c.Request().Context(), req.ID, req.Type, req.Event, at); err != nil {
		return h.failure(c, "events", req.ID, err)
	}
	return c.String(http.StatusOK, okBody)
}

// failure answers NOT_FOUND for unknown data and Conflict for anything else.
func (h *LogsHandlerImpl) failure(c echo.Context, op, id string, err error) error {
	if errors.Is(err, logstore.ErrNotFound) {
		return c.String(http.StatusOK, logstore.NotFound)
	}
	h.logger.Error().Err(err).Str("op", op).Str("id", id).Msg("logs backend request failed")
	return c.String(http.StatusConflict, conflictBody)
}

func isForm(c echo.Context) bool {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	return strings.HasPrefix(ct, echo.MIMEApplicationForm) || strings.HasPrefix(ct, echo.MIMEMultipartForm)
}
