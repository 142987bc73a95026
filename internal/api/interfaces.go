// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/orvd/logviewer/internal/models"
	"github.com/orvd/logviewer/internal/session"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// ViewerHandler drives the per-browser viewer sessions
type ViewerHandler interface {
	HandleAction(c echo.Context) error
	HandleState(c echo.Context) error
	HandleChart(c echo.Context) error
	HandleFile(c echo.Context) error
	HandleWebSocket(c echo.Context) error
}

// LogsHandler serves the logs backend endpoints
type LogsHandler interface {
	HandleGetLogs(c echo.Context) error
	HandleGetTelemetryCSV(c echo.Context) error
	HandleGetEvents(c echo.Context) error
	HandleSaveLogs(c echo.Context) error
	HandleRecordTelemetry(c echo.Context) error
	HandleRecordEvent(c echo.Context) error
}

// SessionManager defines the interface for viewer session management
// This allows mocking in tests
type SessionManager interface {
	GetOrCreate(id string) (*session.Session, bool)
	Get(id string) (*session.Session, bool)
	Len() int
}

// LogSource is the data behind the logs backend endpoints.
// logstore.Service implements it.
type LogSource interface {
	Logs(id string) (string, error)
	TelemetryCSV(ctx context.Context, id string) ([]byte, error)
	Events(ctx context.Context, id string) ([]models.EventRecord, error)
	AppendLog(id, entry string) error
	RecordTelemetry(ctx context.Context, rec models.TelemetryRecord) error
	RecordEvent(ctx context.Context, id, eventType, event string, at time.Time) error
}
