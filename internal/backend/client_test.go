package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Endpoints(t *testing.T) {
	var gotPath, gotID, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotID = r.URL.Query().Get("id")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("line1\nline2"))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL + "/orvd")
	require.NoError(t, err)
	ctx := context.Background()

	resp, err := c.Logs(ctx, "UAV 7&x")
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, "/orvd/logs/get_logs", gotPath)
	assert.Equal(t, "UAV 7&x", gotID)
	assert.Equal(t, "line1\nline2", string(resp.Body))
	assert.Equal(t, "text/plain", resp.ContentType)

	_, err = c.TelemetryCSV(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "/orvd/logs/get_telemetry_csv", gotPath)

	_, err = c.Events(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "/orvd/logs/get_events", gotPath)
	assert.Equal(t, "application/json", gotAccept)

	mc, err := NewClient(srv.URL, WithMsgpackEvents())
	require.NoError(t, err)
	_, err = mc.Events(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "/logs/get_events", gotPath)
	assert.Equal(t, "application/msgpack", gotAccept)
}

func TestClient_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	resp, err := c.TelemetryCSV(context.Background(), "1")
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not Found", resp.StatusText)

	var httpErr *HTTPError
	require.ErrorAs(t, resp.Err(), &httpErr)
	assert.Equal(t, "Not Found", httpErr.StatusText)
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewClient(url)
	require.NoError(t, err)

	_, err = c.Logs(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
}

func TestNewClient_Invalid(t *testing.T) {
	_, err := NewClient("not a url")
	assert.Error(t, err)

	_, err = NewClient("/relative/only")
	assert.Error(t, err)
}
