package chart

import (
	"bytes"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/orvd/logviewer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeries(n int) models.SpeedSeries {
	var s models.SpeedSeries
	start := time.Date(2024, 9, 15, 16, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		s.Append(start.Add(time.Duration(i)*30*time.Second), float64(i)*1.5)
	}
	return s
}

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer(640, 320, time.UTC)

	inst, err := r.Render(testSeries(10))
	require.NoError(t, err)
	defer inst.Destroy()

	assert.NotEmpty(t, inst.ID)
	assert.Equal(t, SeriesLabel, inst.Label)
	assert.Equal(t, 10, inst.Points)

	img, err := png.Decode(bytes.NewReader(inst.PNG()))
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 320, img.Bounds().Dy())
}

func TestRenderer_EdgeSeries(t *testing.T) {
	r := NewRenderer(320, 200, time.UTC)

	t.Run("empty series renders blank canvas", func(t *testing.T) {
		inst, err := r.Render(models.SpeedSeries{})
		require.NoError(t, err)
		defer inst.Destroy()
		assert.Equal(t, 0, inst.Points)
		assert.NotEmpty(t, inst.PNG())
	})

	t.Run("single point", func(t *testing.T) {
		inst, err := r.Render(testSeries(1))
		require.NoError(t, err)
		defer inst.Destroy()
		assert.Equal(t, 1, inst.Points)
		assert.NotEmpty(t, inst.PNG())
	})

	t.Run("NaN speeds and zero times are skipped", func(t *testing.T) {
		s := testSeries(3)
		s.Append(time.Time{}, 5)
		s.Append(time.Date(2024, 9, 15, 17, 0, 0, 0, time.UTC), math.NaN())
		inst, err := r.Render(s)
		require.NoError(t, err)
		defer inst.Destroy()
		assert.Equal(t, 3, inst.Points, "skipped points are not counted")
		assert.NotEmpty(t, inst.PNG())
	})

	t.Run("all zero speeds", func(t *testing.T) {
		var s models.SpeedSeries
		s.Append(time.Date(2024, 9, 15, 16, 0, 0, 0, time.UTC), 0)
		s.Append(time.Date(2024, 9, 15, 16, 5, 0, 0, time.UTC), 0)
		inst, err := r.Render(s)
		require.NoError(t, err)
		inst.Destroy()
	})
}

func TestRenderer_LiveCount(t *testing.T) {
	r := NewRenderer(320, 200, time.UTC)

	a, err := r.Render(testSeries(4))
	require.NoError(t, err)
	b, err := r.Render(testSeries(4))
	require.NoError(t, err)
	assert.Equal(t, 2, r.Live())

	a.Destroy()
	a.Destroy()
	assert.Equal(t, 1, r.Live())
	assert.True(t, a.Destroyed())
	assert.Nil(t, a.PNG())

	b.Destroy()
	assert.Equal(t, 0, r.Live())
}

func TestHandle_Replace(t *testing.T) {
	r := NewRenderer(320, 200, time.UTC)
	h := NewHandle()
	assert.Nil(t, h.Current())

	for i := 0; i < 5; i++ {
		inst, err := r.Render(testSeries(3))
		require.NoError(t, err)
		h.Replace(inst)
		assert.Equal(t, 1, r.Live())
		assert.Same(t, inst, h.Current())
	}

	current := h.Current()
	h.Replace(current)
	assert.False(t, current.Destroyed())

	h.Destroy()
	assert.Nil(t, h.Current())
	assert.True(t, current.Destroyed())
	assert.Equal(t, 0, r.Live())
}

func TestTimeAxis_MinuteTicks(t *testing.T) {
	r := NewRenderer(320, 200, time.UTC)
	start := time.Date(2024, 9, 15, 16, 0, 10, 0, time.UTC)

	axis := r.timeAxis([]time.Time{start, start.Add(5 * time.Minute)})

	require.NotEmpty(t, axis.Ticks)
	assert.Equal(t, "16:00", axis.Ticks[0].Label)
	assert.Equal(t, "16:01", axis.Ticks[1].Label)
	assert.LessOrEqual(t, len(axis.Ticks), maxTicks+2)

	long := r.timeAxis([]time.Time{start, start.Add(10 * time.Hour)})
	assert.LessOrEqual(t, len(long.Ticks), maxTicks+2)
}
