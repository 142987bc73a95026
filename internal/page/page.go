// Package page is the server-side rendition of the viewer page: it holds the
// three display regions, the last blocking message and the pending download,
// and pushes a snapshot to subscribers after every change.
package page

import (
	"bytes"
	"html/template"
	"sync"
	"time"

	"github.com/orvd/logviewer/internal/chart"
	"github.com/orvd/logviewer/internal/models"
	"github.com/orvd/logviewer/internal/viewer"
)

var fragments = template.Must(template.New("page").Parse(`
{{define "logs"}}{{range .}}<p style="color: black">{{.}}</p>{{end}}{{end}}
{{define "chart"}}{{if .}}<img id="speed-chart" src="{{.URL}}" width="{{.Width}}" height="{{.Height}}" alt="Speed over Time">{{end}}{{end}}
{{define "events"}}{{with .}}{{if .Table}}<table class="log-table"><thead><tr>{{range .Table.Header}}<th>{{.}}</th>{{end}}</tr></thead><tbody>{{range .Table.Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody></table>{{else}}{{.Message}}{{end}}{{end}}{{end}}
`))

// Alert is a blocking message. Seq increases with every Notify so a client
// can tell a repeated message from the one it already showed.
type Alert struct {
	Seq     uint64    `json:"seq"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Download is a saved file the client should fetch.
type Download struct {
	Seq    uint64 `json:"seq"`
	FileID string `json:"fileId"`
	Name   string `json:"name"`
	URL    string `json:"url"`
}

// Snapshot is the full page state after one change.
type Snapshot struct {
	Version  uint64        `json:"version"`
	Region   models.Region `json:"region"`
	Visible  Visibility    `json:"visible"`
	Logs     string        `json:"logs"`
	Chart    string        `json:"chart"`
	ChartID  string        `json:"chartId,omitempty"`
	Events   string        `json:"events"`
	Alert    *Alert        `json:"alert,omitempty"`
	Download *Download     `json:"download,omitempty"`
}

// Visibility mirrors the "hidden" class of the three containers.
type Visibility struct {
	Logs   bool `json:"logs"`
	Chart  bool `json:"chart"`
	Events bool `json:"events"`
}

type chartView struct {
	URL    string
	Width  int
	Height int
}

// Page implements viewer.Display and viewer.Notifier.
type Page struct {
	mu sync.Mutex

	version uint64
	region  models.Region
	logs    []string
	chart   *chart.Instance
	events  *viewer.EventsView

	alertSeq uint64
	alert    *Alert
	download *Download

	chartURL func(inst *chart.Instance) string

	subs    map[int]chan Snapshot
	nextSub int
}

// New creates a page with every region hidden. chartURL maps a chart
// instance to the URL its PNG is served at.
func New(chartURL func(inst *chart.Instance) string) *Page {
	if chartURL == nil {
		chartURL = func(inst *chart.Instance) string { return "chart.png?v=" + inst.ID }
	}
	return &Page{
		region:   models.RegionNone,
		chartURL: chartURL,
		subs:     make(map[int]chan Snapshot),
	}
}

// Activate shows r and clears the other two regions.
func (p *Page) Activate(r models.Region) {
	p.update(func() {
		p.region = r
		if r != models.RegionLogs {
			p.logs = nil
		}
		if r != models.RegionChart {
			p.chart = nil
		}
		if r != models.RegionEvents {
			p.events = nil
		}
	})
}

func (p *Page) SetLogs(lines []string) {
	p.update(func() { p.logs = lines })
}

func (p *Page) SetChart(inst *chart.Instance) {
	p.update(func() { p.chart = inst })
}

func (p *Page) SetEvents(v viewer.EventsView) {
	p.update(func() { p.events = &v })
}

// Notify records a blocking message.
func (p *Page) Notify(message string) {
	p.update(func() {
		p.alertSeq++
		p.alert = &Alert{Seq: p.alertSeq, Message: message, At: time.Now()}
	})
}

// OfferDownload records a saved file for the client to fetch.
func (p *Page) OfferDownload(d Download) {
	p.update(func() {
		p.alertSeq++
		d.Seq = p.alertSeq
		p.download = &d
	})
}

// Chart returns the attached chart instance, or nil.
func (p *Page) Chart() *chart.Instance {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chart
}

// Snapshot renders the current state.
func (p *Page) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Subscribe returns a channel receiving a snapshot after every change, and a
// function that ends the subscription. Slow subscribers only see the latest
// snapshot.
func (p *Page) Subscribe() (<-chan Snapshot, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSub
	p.nextSub++
	ch := make(chan Snapshot, 1)
	p.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if _, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Close ends every subscription.
func (p *Page) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
}

func (p *Page) update(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fn()
	p.version++
	if len(p.subs) == 0 {
		return
	}

	snap := p.snapshotLocked()
	for _, ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (p *Page) snapshotLocked() Snapshot {
	snap := Snapshot{
		Version: p.version,
		Region:  p.region,
		Visible: Visibility{
			Logs:   p.region == models.RegionLogs,
			Chart:  p.region == models.RegionChart,
			Events: p.region == models.RegionEvents,
		},
		Logs:     render("logs", p.logs),
		Events:   render("events", p.events),
		Alert:    p.alert,
		Download: p.download,
	}
	if p.chart != nil && !p.chart.Destroyed() {
		snap.ChartID = p.chart.ID
		snap.Chart = render("chart", &chartView{
			URL:    p.chartURL(p.chart),
			Width:  p.chart.Width,
			Height: p.chart.Height,
		})
	}
	return snap
}

func render(name string, data interface{}) string {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return ""
	}
	return buf.String()
}

var (
	_ viewer.Display  = (*Page)(nil)
	_ viewer.Notifier = (*Page)(nil)
)
