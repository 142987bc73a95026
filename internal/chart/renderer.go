package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/orvd/logviewer/internal/models"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// SeriesLabel names the single line series of the speed chart.
const SeriesLabel = "Speed over Time"

const (
	DefaultWidth  = 1024
	DefaultHeight = 400

	// maxTicks bounds the number of minute ticks on the time axis.
	maxTicks = 20
)

var lineColor = drawing.Color{R: 75, G: 192, B: 192, A: 255}

// minuteSteps are the tick spacings tried, smallest first.
var minuteSteps = []time.Duration{
	time.Minute, 2 * time.Minute, 5 * time.Minute, 10 * time.Minute, 15 * time.Minute,
	30 * time.Minute, time.Hour, 2 * time.Hour, 6 * time.Hour, 12 * time.Hour, 24 * time.Hour,
}

// Renderer draws speed series to PNG chart instances.
type Renderer struct {
	Width    int
	Height   int
	Location *time.Location

	live atomic.Int64
}

// NewRenderer creates a renderer with the given image size. Tick labels are
// formatted in loc (time.Local when nil).
func NewRenderer(width, height int, loc *time.Location) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{Width: width, Height: height, Location: loc}
}

// Live returns the number of instances rendered and not yet destroyed.
func (r *Renderer) Live() int {
	return int(r.live.Load())
}

// Render draws the series as a single line labelled SeriesLabel with a time
// x-axis ticked on minute boundaries and a y-axis starting at zero. Points
// with a zero timestamp or a NaN speed are skipped. A series with no
// plottable points renders a blank canvas.
func (r *Renderer) Render(series models.SpeedSeries) (*Instance, error) {
	times, speeds := plottable(series)
	points := len(times)

	var buf bytes.Buffer
	if len(times) == 0 {
		if err := png.Encode(&buf, blank(r.Width, r.Height)); err != nil {
			return nil, fmt.Errorf("encoding blank chart: %w", err)
		}
	} else {
		if len(times) == 1 {
			// go-chart needs two X values to build a range
			times = append(times, times[0].Add(time.Minute))
			speeds = append(speeds, speeds[0])
		}
		ch := chart.Chart{
			Width:      r.Width,
			Height:     r.Height,
			Background: chart.Style{Padding: chart.Box{Top: 20, Left: 16, Right: 16, Bottom: 16}},
			XAxis:      r.timeAxis(times),
			YAxis:      chart.YAxis{Name: "Speed", Range: &chart.ContinuousRange{Min: 0, Max: yMax(speeds)}},
			Series: []chart.Series{
				chart.TimeSeries{
					Name:    SeriesLabel,
					XValues: times,
					YValues: speeds,
					Style: chart.Style{
						StrokeColor: lineColor,
						StrokeWidth: 1,
					},
				},
			},
		}
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}

		if err := ch.Render(chart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("rendering speed chart: %w", err)
		}
	}

	inst := &Instance{
		ID:        uuid.New().String(),
		Label:     SeriesLabel,
		Points:    points,
		Width:     r.Width,
		Height:    r.Height,
		CreatedAt: time.Now(),
		png:       buf.Bytes(),
	}
	r.live.Add(1)
	inst.onDestroy = func() { r.live.Add(-1) }
	return inst, nil
}

// timeAxis builds a time x-axis with ticks aligned to whole minutes.
func (r *Renderer) timeAxis(times []time.Time) chart.XAxis {
	minT, maxT := times[0], times[0]
	for _, t := range times[1:] {
		if t.Before(minT) {
			minT = t
		}
		if t.After(maxT) {
			maxT = t
		}
	}
	if !maxT.After(minT) {
		maxT = minT.Add(time.Minute)
	}

	step := minuteSteps[len(minuteSteps)-1]
	for _, s := range minuteSteps {
		if int(maxT.Sub(minT)/s)+1 <= maxTicks {
			step = s
			break
		}
	}

	ticks := make([]chart.Tick, 0, maxTicks+2)
	for t := minT.Truncate(step); !t.After(maxT); t = t.Add(step) {
		ticks = append(ticks, chart.Tick{
			Value: float64(chart.TimeToFloat64(t)),
			Label: t.In(r.Location).Format("15:04"),
		})
	}

	return chart.XAxis{
		Name:  "Time",
		Ticks: ticks,
		Range: &chart.ContinuousRange{
			Min: float64(chart.TimeToFloat64(minT.Truncate(step))),
			Max: float64(chart.TimeToFloat64(maxT)),
		},
	}
}

func plottable(series models.SpeedSeries) ([]time.Time, []float64) {
	times := make([]time.Time, 0, series.Len())
	speeds := make([]float64, 0, series.Len())
	for i, t := range series.Times {
		if i >= len(series.Speeds) {
			break
		}
		s := series.Speeds[i]
		if t.IsZero() || math.IsNaN(s) || math.IsInf(s, 0) {
			continue
		}
		times = append(times, t)
		speeds = append(speeds, s)
	}
	return times, speeds
}

func yMax(speeds []float64) float64 {
	max := 0.0
	for _, s := range speeds {
		if s > max {
			max = s
		}
	}
	if max <= 0 {
		return 1
	}
	return max * 1.1
}

func blank(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	return img
}
