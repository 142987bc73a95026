// Package viewer is the view controller of the log viewer. Each user action
// is one operation keyed by a UAV serial number: it activates a display
// region, fetches one backend resource and renders it.
package viewer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/orvd/logviewer/internal/backend"
	"github.com/orvd/logviewer/internal/chart"
	"github.com/orvd/logviewer/internal/models"
	"github.com/orvd/logviewer/internal/parser"
	"github.com/rs/zerolog"
)

var (
	// ErrMissingID is returned when an operation is invoked with an empty
	// serial number. The user has already been notified.
	ErrMissingID = errors.New("missing serial number")

	// ErrSuperseded is returned by a display operation whose result arrived
	// after a newer display operation had started. Its result is discarded.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// Deps are the collaborators of a Controller. Display, Notifier and Fetcher
// are required.
type Deps struct {
	Fetcher  Fetcher
	Display  Display
	Notifier Notifier
	Saver    FileSaver
	Renderer ChartRenderer
}

// Options tune formatting and logging.
type Options struct {
	// Location is used for zone-less timestamps and event formatting.
	Location *time.Location
	// TimeLayout formats event timestamps; DefaultTimeLayout when empty.
	TimeLayout string
	Logger     zerolog.Logger
}

// Controller owns the display state and the single chart handle.
//
// Display operations are sequenced: starting one cancels the request of the
// previous one, and a response that is no longer the latest is dropped
// before it reaches the display.
type Controller struct {
	fetcher  Fetcher
	display  Display
	notifier Notifier
	saver    FileSaver
	renderer ChartRenderer

	telemetry *parser.TelemetryParser
	events    *parser.EventDecoder
	loc       *time.Location
	layout    string
	logger    zerolog.Logger

	chart *chart.Handle

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	region models.Region
}

// New creates a controller. All regions start hidden.
func New(deps Deps, opts Options) *Controller {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	layout := opts.TimeLayout
	if layout == "" {
		layout = DefaultTimeLayout
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = chart.NewRenderer(0, 0, loc)
	}

	return &Controller{
		fetcher:   deps.Fetcher,
		display:   deps.Display,
		notifier:  deps.Notifier,
		saver:     deps.Saver,
		renderer:  renderer,
		telemetry: parser.NewTelemetryParser(loc),
		events:    parser.NewEventDecoder(loc),
		loc:       loc,
		layout:    layout,
		logger:    opts.Logger,
		chart:     chart.NewHandle(),
		region:    models.RegionNone,
	}
}

// Region returns the visible region.
func (c *Controller) Region() models.Region {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.region
}

// Chart returns the live chart instance, or nil.
func (c *Controller) Chart() *chart.Instance {
	return c.chart.Current()
}

// ShowLogs shows the Logs region with one paragraph per log line, empty lines
// included. Fetch failures are returned, not reported to the user.
func (c *Controller) ShowLogs(ctx context.Context, id string) error {
	if !c.requireID(id) {
		return ErrMissingID
	}

	opCtx, gen, done := c.begin(ctx, models.RegionLogs)
	defer done()

	resp, err := c.fetcher.Logs(opCtx, id)
	if err != nil {
		return c.fetchError(gen, "fetching logs", err)
	}
	lines := parser.SplitLines(string(resp.Body))

	return c.commit(gen, func() {
		c.display.SetLogs(lines)
	})
}

// ShowSpeed shows the Chart region with the speed-over-time chart parsed from
// the telemetry CSV. Fetch and render failures are returned, not reported.
func (c *Controller) ShowSpeed(ctx context.Context, id string) error {
	if !c.requireID(id) {
		return ErrMissingID
	}

	opCtx, gen, done := c.begin(ctx, models.RegionChart)
	defer done()

	resp, err := c.fetcher.TelemetryCSV(opCtx, id)
	if err != nil {
		return c.fetchError(gen, "fetching telemetry", err)
	}
	series := c.telemetry.ParseSpeedSeries(string(resp.Body))

	var renderErr error
	err = c.commit(gen, func() {
		renderErr = c.renderChart(series)
	})
	if err != nil {
		return err
	}
	return renderErr
}

// ShowEvents shows the Events region as a table, or the "no events" message
// for an empty list. Fetch and decode failures are returned, not reported.
func (c *Controller) ShowEvents(ctx context.Context, id string) error {
	if !c.requireID(id) {
		return ErrMissingID
	}

	opCtx, gen, done := c.begin(ctx, models.RegionEvents)
	defer done()

	resp, err := c.fetcher.Events(opCtx, id)
	if err != nil {
		return c.fetchError(gen, "fetching events", err)
	}
	events, err := c.events.Decode(resp.ContentType, resp.Body)
	if err != nil {
		if !c.isCurrent(gen) {
			return ErrSuperseded
		}
		return err
	}
	view := BuildEventsView(events, c.loc, c.layout)

	return c.commit(gen, func() {
		c.display.SetEvents(view)
	})
}

// DownloadTelemetryCsv saves the raw telemetry CSV as telemetry_<id>.csv.
// HTTP and network failures are reported to the user and are not returned.
// The display is not touched.
func (c *Controller) DownloadTelemetryCsv(ctx context.Context, id string) error {
	if !c.requireID(id) {
		return ErrMissingID
	}

	resp, err := c.fetcher.TelemetryCSV(ctx, id)
	if err != nil {
		c.logger.Warn().Err(err).Str("id", id).Msg("telemetry download failed")
		c.notifier.Notify(MsgDownloadNetworkError + err.Error())
		return nil
	}
	if !resp.OK() {
		c.logger.Warn().Int("status", resp.StatusCode).Str("id", id).Msg("telemetry download rejected")
		c.notifier.Notify(MsgDownloadHTTPError + resp.StatusText)
		return nil
	}

	if c.saver == nil {
		return fmt.Errorf("no file saver configured")
	}
	name := TelemetryFileName(id)
	if err := c.saver.SaveFile(ctx, name, bytes.NewReader(resp.Body)); err != nil {
		return fmt.Errorf("saving %s: %w", name, err)
	}
	c.logger.Debug().Str("file", name).Int("bytes", len(resp.Body)).Msg("telemetry saved")
	return nil
}

// Close cancels any in-flight display request and destroys the chart.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.chart.Destroy()
}

// renderChart destroys the previous chart before drawing the new one, so at
// most one instance is ever attached.
func (c *Controller) renderChart(series models.SpeedSeries) error {
	c.chart.Destroy()
	c.display.SetChart(nil)

	inst, err := c.renderer.Render(series)
	if err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	c.chart.Replace(inst)
	c.display.SetChart(inst)
	return nil
}

func (c *Controller) requireID(id string) bool {
	if id == "" {
		c.notifier.Notify(MsgMissingID)
		return false
	}
	return true
}

// begin starts display operation number gen: it cancels the previous
// operation's request, switches the visible region and, unless the chart
// region is being shown, destroys the chart.
func (c *Controller) begin(ctx context.Context, region models.Region) (context.Context, uint64, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	gen := c.gen
	if c.cancel != nil {
		c.cancel()
	}
	opCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.region = region
	c.display.Activate(region)
	if region != models.RegionChart {
		c.chart.Destroy()
	}

	c.logger.Debug().Str("region", string(region)).Uint64("gen", gen).Msg("display operation started")

	done := func() {
		c.mu.Lock()
		if c.gen == gen {
			c.cancel = nil
		}
		c.mu.Unlock()
		cancel()
	}
	return opCtx, gen, done
}

// commit runs fn against the display if gen is still the latest operation.
func (c *Controller) commit(gen uint64, fn func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		c.logger.Debug().Uint64("gen", gen).Msg("dropping stale response")
		return ErrSuperseded
	}
	fn()
	return nil
}

func (c *Controller) isCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

func (c *Controller) fetchError(gen uint64, what string, err error) error {
	if !c.isCurrent(gen) {
		return ErrSuperseded
	}
	return fmt.Errorf("%s: %w", what, err)
}

var _ Fetcher = (*backend.Client)(nil)
