// routes.go - Route registration helpers
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/orvd/logviewer/internal/storage"
	"github.com/rs/zerolog"
)

// ViewBasePath prefixes the viewer routes. Sessions build their chart and
// file URLs from it.
const ViewBasePath = "/api/view"

// Dependencies holds all handler dependencies
type Dependencies struct {
	Sessions SessionManager
	Store    storage.Store
	// Logs is nil when this process does not serve the logs backend.
	Logs    LogSource
	Version string
	Logger  zerolog.Logger
}

// Handlers holds all handler instances
type Handlers struct {
	Health HealthHandler
	Viewer ViewerHandler
	Logs   LogsHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	h := &Handlers{
		Health: NewHealthHandler(deps.Version, deps.Sessions),
		Viewer: NewViewerHandler(deps.Sessions, deps.Store, deps.Logger.With().Str("component", "viewer").Logger()),
	}
	if deps.Logs != nil {
		h.Logs = NewLogsHandler(deps.Logs, deps.Logger.With().Str("component", "logs").Logger())
	}
	return h
}

// RegisterRoutes registers the health and viewer routes
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/api/health", handlers.Health.HandleHealth)

	viewGroup := e.Group(ViewBasePath)
	viewGroup.POST("/:action", handlers.Viewer.HandleAction)
	viewGroup.GET("/state", handlers.Viewer.HandleState)
	viewGroup.GET("/chart.png", handlers.Viewer.HandleChart)
	viewGroup.GET("/files/:fileId", handlers.Viewer.HandleFile)
	viewGroup.GET("/ws", handlers.Viewer.HandleWebSocket)
}

// RegisterBackendRoutes registers the logs backend routes. The ingest
// routes are only added when ingest is set.
func RegisterBackendRoutes(e *echo.Echo, handlers *Handlers, ingest bool) {
	if handlers.Logs == nil {
		return
	}
	logsGroup := e.Group("/logs")
	logsGroup.GET("/get_logs", handlers.Logs.HandleGetLogs)
	logsGroup.GET("/get_telemetry_csv", handlers.Logs.HandleGetTelemetryCSV)
	logsGroup.GET("/get_events", handlers.Logs.HandleGetEvents)

	if ingest {
		logsGroup.POST("/save_logs", handlers.Logs.HandleSaveLogs)
		logsGroup.POST("/telemetry", handlers.Logs.HandleRecordTelemetry)
		logsGroup.POST("/events", handlers.Logs.HandleRecordEvent)
	}
}

// MiddlewareOptions selects the common middleware
type MiddlewareOptions struct {
	RequestLogging   bool
	Compression      bool
	CompressionLevel int
	Timeout          time.Duration
	BodyLimit        string
	AllowOrigins     []string
}

// SetupMiddleware configures common middleware and the error handler
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions, logger zerolog.Logger) {
	e.HTTPErrorHandler = ErrorHandler(logger, e.Debug)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !opts.RequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/api/health" || strings.HasSuffix(path, "/chart.png")
		},
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := logger.Info()
			if v.Error != nil {
				ev = logger.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	if opts.Timeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout: opts.Timeout,
			Skipper: func(c echo.Context) bool {
				return strings.HasSuffix(c.Request().URL.Path, "/ws")
			},
			ErrorMessage: "Request timeout - logs backend took too long",
		}))
	}

	if opts.Compression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: opts.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				return strings.HasSuffix(path, "/ws") || strings.HasSuffix(path, "/chart.png")
			},
		}))
	}

	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	if len(opts.AllowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     opts.AllowOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			AllowCredentials: true,
		}))
	}
}
