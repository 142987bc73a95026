package session

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/orvd/logviewer/internal/backend"
	"github.com/orvd/logviewer/internal/models"
	"github.com/orvd/logviewer/internal/storage"
	"github.com/orvd/logviewer/internal/testutil"
	"github.com/orvd/logviewer/internal/viewer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct{}

func (stubFetcher) Logs(ctx context.Context, id string) (*backend.Response, error) {
	return &backend.Response{StatusCode: http.StatusOK, StatusText: "OK", Body: []byte("line 1\nline 2")}, nil
}

func (stubFetcher) TelemetryCSV(ctx context.Context, id string) (*backend.Response, error) {
	body := "record_time,lat,lon,alt,azimuth,dop,sats,speed\r\n2024-09-15 16:46:38,1,2,3,4,5,6,12.5\r\n"
	return &backend.Response{StatusCode: http.StatusOK, StatusText: "OK", Body: []byte(body)}, nil
}

func (stubFetcher) Events(ctx context.Context, id string) (*backend.Response, error) {
	return &backend.Response{StatusCode: http.StatusOK, StatusText: "OK", ContentType: "application/json", Body: []byte("[]")}, nil
}

func newTestManager(t *testing.T, max int) *Manager {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	m := NewManager(Options{
		Fetcher:     stubFetcher{},
		Store:       store,
		ChartWidth:  200,
		ChartHeight: 100,
		Location:    time.UTC,
		MaxSessions: max,
		BasePath:    "/api/view",
	})
	t.Cleanup(m.Close)
	return m
}

func TestSessionManager_CreateAndGet(t *testing.T) {
	m := newTestManager(t, 4)

	s := m.Create()
	require.NotEmpty(t, s.ID)

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, models.RegionNone, s.Info().Region)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestSessionManager_GetOrCreate(t *testing.T) {
	m := newTestManager(t, 4)

	s, created := m.GetOrCreate("")
	assert.True(t, created)

	again, created := m.GetOrCreate(s.ID)
	assert.False(t, created)
	assert.Same(t, s, again)

	_, created = m.GetOrCreate("stale-cookie")
	assert.True(t, created)
	assert.Equal(t, 2, m.Len())
}

func TestSessionManager_Eviction(t *testing.T) {
	m := newTestManager(t, 2)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	m.nowFunc = func() time.Time { return base }
	oldest := m.Create()
	m.nowFunc = func() time.Time { return base.Add(time.Minute) }
	second := m.Create()
	m.nowFunc = func() time.Time { return base.Add(2 * time.Minute) }
	third := m.Create()

	assert.Equal(t, 2, m.Len())
	_, ok := m.Get(oldest.ID)
	assert.False(t, ok, "least recently used session is evicted")
	_, ok = m.Get(second.ID)
	assert.True(t, ok)
	_, ok = m.Get(third.ID)
	assert.True(t, ok)
}

func TestSessionManager_CleanupOldSessions(t *testing.T) {
	m := newTestManager(t, 8)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	m.nowFunc = func() time.Time { return now.Add(-time.Hour) }
	idle := m.Create()
	m.nowFunc = func() time.Time { return now.Add(-time.Minute) }
	active := m.Create()
	m.nowFunc = func() time.Time { return now }

	require.NoError(t, idle.Controller.ShowSpeed(context.Background(), "7"))
	require.Equal(t, 1, idle.Renderer.Live())

	removed := m.CleanupOldSessions(SessionMaxAge)
	assert.Equal(t, 1, removed)

	_, ok := m.Get(idle.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, idle.Renderer.Live(), "closing a session destroys its chart")

	_, ok = m.Get(active.ID)
	assert.True(t, ok)
}

func TestSessionManager_Touch(t *testing.T) {
	m := newTestManager(t, 4)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.nowFunc = func() time.Time { return base }
	s := m.Create()

	m.nowFunc = func() time.Time { return base.Add(time.Hour) }
	assert.True(t, m.Touch(s.ID))
	assert.Equal(t, base.Add(time.Hour), s.LastAccessed())
	assert.False(t, m.Touch("missing"))
}

func TestSession_DownloadIsOffered(t *testing.T) {
	m := newTestManager(t, 4)
	s := m.Create()

	require.NoError(t, s.Controller.DownloadTelemetryCsv(context.Background(), "7"))

	d := s.Page.Snapshot().Download
	require.NotNil(t, d)
	assert.Equal(t, viewer.TelemetryFileName("7"), d.Name)
	assert.Equal(t, "/api/view/files/"+d.FileID, d.URL)

	info, err := m.opts.Store.Get(d.FileID)
	require.NoError(t, err)
	assert.Equal(t, d.Name, info.Name)
}

func TestSession_PageFollowsController(t *testing.T) {
	m := newTestManager(t, 4)
	s := m.Create()
	ctx := context.Background()

	require.NoError(t, s.Controller.ShowSpeed(ctx, "7"))
	snap := s.Page.Snapshot()
	assert.True(t, snap.Visible.Chart)
	assert.Contains(t, snap.Chart, "/api/view/chart.png?v="+s.Controller.Chart().ID)

	require.NoError(t, s.Controller.ShowEvents(ctx, "7"))
	snap = s.Page.Snapshot()
	assert.True(t, snap.Visible.Events)
	assert.Empty(t, snap.Chart)
	assert.Equal(t, viewer.MsgNoEvents, snap.Events)

	assert.ErrorIs(t, s.Controller.ShowLogs(ctx, ""), viewer.ErrMissingID)
	snap = s.Page.Snapshot()
	require.NotNil(t, snap.Alert)
	assert.Equal(t, viewer.MsgMissingID, snap.Alert.Message)
}

func TestSession_DownloadSaveFailure(t *testing.T) {
	store := testutil.NewMockStorage(t.TempDir())
	store.SaveErr = errors.New("disk full")
	m := NewManager(Options{Fetcher: stubFetcher{}, Store: store, Location: time.UTC, BasePath: "/api/view"})
	t.Cleanup(m.Close)
	s := m.Create()

	err := s.Controller.DownloadTelemetryCsv(context.Background(), "7")
	assert.ErrorContains(t, err, "disk full")
	assert.Nil(t, s.Page.Snapshot().Download)

	files, err := store.List(0)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestSessionManager_List(t *testing.T) {
	store := testutil.NewMockStorage(t.TempDir())
	m := NewManager(Options{Fetcher: stubFetcher{}, Store: store, Location: time.UTC})
	t.Cleanup(m.Close)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	m.nowFunc = func() time.Time { return base }
	first := m.Create()
	m.nowFunc = func() time.Time { return base.Add(time.Minute) }
	second := m.Create()

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, models.RegionNone, list[0].Region)
}
