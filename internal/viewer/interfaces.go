package viewer

import (
	"context"
	"io"

	"github.com/orvd/logviewer/internal/backend"
	"github.com/orvd/logviewer/internal/chart"
	"github.com/orvd/logviewer/internal/models"
)

// Fetcher issues the backend GET requests. backend.Client implements it.
type Fetcher interface {
	Logs(ctx context.Context, id string) (*backend.Response, error)
	TelemetryCSV(ctx context.Context, id string) (*backend.Response, error)
	Events(ctx context.Context, id string) (*backend.Response, error)
}

// Display owns the three mutually exclusive display regions.
type Display interface {
	// Activate makes r the only visible region and clears the content of the
	// other two.
	Activate(r models.Region)
	// SetLogs replaces the Logs region with one paragraph per line.
	SetLogs(lines []string)
	// SetChart attaches inst to the Chart region; nil detaches.
	SetChart(inst *chart.Instance)
	// SetEvents replaces the Events region.
	SetEvents(v EventsView)
}

// Notifier shows blocking messages to the user.
type Notifier interface {
	Notify(message string)
}

// FileSaver hands a file to the user, e.g. as a browser download.
type FileSaver interface {
	SaveFile(ctx context.Context, name string, r io.Reader) error
}

// ChartRenderer draws a speed series. chart.Renderer implements it.
type ChartRenderer interface {
	Render(series models.SpeedSeries) (*chart.Instance, error)
}
