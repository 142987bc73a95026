// Command logview runs the viewer actions against a logs backend from a
// terminal.
//
//	logview [-url http://host:port/] [-out dir] logs|speed|events|download <id>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/orvd/logviewer/internal/backend"
	"github.com/orvd/logviewer/internal/chart"
	"github.com/orvd/logviewer/internal/logging"
	"github.com/orvd/logviewer/internal/models"
	"github.com/orvd/logviewer/internal/storage"
	"github.com/orvd/logviewer/internal/viewer"
)

func main() {
	var (
		baseURL  = flag.String("url", envOr("ORVD_URL", "http://127.0.0.1:8090/"), "logs backend base URL")
		outDir   = flag.String("out", ".", "directory for the chart and downloaded files")
		msgpack  = flag.Bool("msgpack", false, "request events as msgpack")
		timeout  = flag.Duration("timeout", 30*time.Second, "request timeout")
		tz       = flag.String("tz", "Local", "time zone for timestamps")
		width    = flag.Int("width", 1024, "chart width in pixels")
		height   = flag.Int("height", 400, "chart height in pixels")
		logLevel = flag.String("log-level", "warn", "log level")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: logview [flags] %s <id>\n", actionNames())
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		os.Exit(2)
	}
	action, err := viewer.ParseAction(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	logger := logging.New(logging.Options{Level: *logLevel, Format: "console", Output: os.Stderr})

	loc := time.Local
	if *tz != "Local" {
		if loc, err = time.LoadLocation(*tz); err != nil {
			logger.Fatal().Err(err).Str("tz", *tz).Msg("invalid time zone")
		}
	}

	opts := []backend.Option{backend.WithHTTPClient(&http.Client{Timeout: *timeout})}
	if *msgpack {
		opts = append(opts, backend.WithMsgpackEvents())
	}
	client, err := backend.NewClient(*baseURL, opts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid backend url")
	}

	term := &terminal{out: os.Stdout, dir: *outDir}
	ctrl := viewer.New(viewer.Deps{
		Fetcher:  client,
		Display:  term,
		Notifier: term,
		Saver:    &reportingSaver{DirSaver: storage.DirSaver{Dir: *outDir}, out: os.Stdout},
		Renderer: chart.NewRenderer(*width, *height, loc),
	}, viewer.Options{Location: loc, Logger: logger})
	defer ctrl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := ctrl.Dispatch(ctx, viewer.Command{Action: action, ID: flag.Arg(1)}); err != nil {
		if errors.Is(err, viewer.ErrMissingID) {
			os.Exit(2)
		}
		logger.Error().Err(err).Str("action", string(action)).Msg("request failed")
		os.Exit(1)
	}
	if term.err != nil {
		logger.Error().Err(term.err).Msg("failed to write output")
		os.Exit(1)
	}
}

// terminal prints the visible region to out. The chart is written as a PNG
// into dir.
type terminal struct {
	out io.Writer
	dir string
	err error
}

func (t *terminal) Activate(r models.Region) {}

func (t *terminal) SetLogs(lines []string) {
	for _, line := range lines {
		fmt.Fprintln(t.out, line)
	}
}

func (t *terminal) SetChart(inst *chart.Instance) {
	if inst == nil {
		return
	}
	path := filepath.Join(t.dir, "speed-chart.png")
	if err := os.WriteFile(path, inst.PNG(), 0644); err != nil {
		t.err = err
		return
	}
	fmt.Fprintf(t.out, "%s: %d points -> %s\n", inst.Label, inst.Points, path)
}

func (t *terminal) SetEvents(v viewer.EventsView) {
	if v.Table == nil {
		fmt.Fprintln(t.out, v.Message)
		return
	}
	w := tabwriter.NewWriter(t.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(v.Table.Header, "\t"))
	for _, row := range v.Table.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	t.err = w.Flush()
}

func (t *terminal) Notify(message string) {
	fmt.Fprintln(os.Stderr, message)
}

type reportingSaver struct {
	storage.DirSaver
	out io.Writer
}

func (s *reportingSaver) SaveFile(ctx context.Context, name string, r io.Reader) error {
	if err := s.DirSaver.SaveFile(ctx, name, r); err != nil {
		return err
	}
	fmt.Fprintln(s.out, filepath.Join(s.Dir, name))
	return nil
}

func actionNames() string {
	names := make([]string, len(viewer.Actions))
	for i, a := range viewer.Actions {
		names[i] = string(a)
	}
	return strings.Join(names, "|")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
