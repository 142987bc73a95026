// Package backend fetches logs, telemetry and events from the flight server's
// logs endpoints.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/orvd/logviewer/internal/parser"
)

// Endpoint paths, relative to the client's base URL.
const (
	PathLogs         = "logs/get_logs"
	PathTelemetryCSV = "logs/get_telemetry_csv"
	PathEvents       = "logs/get_events"
)

// DefaultTimeout bounds a single request when the caller supplies no deadline.
const DefaultTimeout = 30 * time.Second

// Response is a completed HTTP exchange. Non-2xx responses are still
// responses; use OK or Err to check the status.
type Response struct {
	StatusCode  int
	StatusText  string
	ContentType string
	Body        []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns an *HTTPError for non-2xx responses and nil otherwise.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return &HTTPError{StatusCode: r.StatusCode, StatusText: r.StatusText}
}

// HTTPError is a response with a non-2xx status.
type HTTPError struct {
	StatusCode int
	StatusText string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.StatusText)
}

// NetworkError means the request did not complete: the connection failed,
// timed out or the body could not be read.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request %s failed: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetworkError reports whether err is or wraps a *NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// Client talks to the logs endpoints of one flight server.
type Client struct {
	baseURL      *url.URL
	httpClient   *http.Client
	eventsAccept string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMsgpackEvents asks the events endpoint for msgpack instead of JSON.
func WithMsgpackEvents() Option {
	return func(c *Client) {
		c.eventsAccept = parser.MIMEMsgpack
	}
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://orvd.local:8080/". Endpoint paths are resolved against it.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	c := &Client{
		baseURL:      u,
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		eventsAccept: "application/json",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the server base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Logs fetches the raw log text of the UAV id.
func (c *Client) Logs(ctx context.Context, id string) (*Response, error) {
	return c.Get(ctx, PathLogs, id, "text/plain")
}

// TelemetryCSV fetches the telemetry export of the UAV id.
func (c *Client) TelemetryCSV(ctx context.Context, id string) (*Response, error) {
	return c.Get(ctx, PathTelemetryCSV, id, "text/csv")
}

// Events fetches the event list of the UAV id.
func (c *Client) Events(ctx context.Context, id string) (*Response, error) {
	return c.Get(ctx, PathEvents, id, c.eventsAccept)
}

// Get issues GET <base>/<path>?id=<id>. Only failures to complete the
// exchange are returned as errors, wrapped in *NetworkError.
func (c *Client) Get(ctx context.Context, path, id, accept string) (*Response, error) {
	ref := &url.URL{Path: path, RawQuery: url.Values{"id": {id}}.Encode()}
	target := c.baseURL.ResolveReference(ref).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: target, Err: fmt.Errorf("reading body: %w", err)}
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		StatusText:  statusText(resp),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// statusText returns the reason phrase of the status line, e.g. "Not Found".
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
