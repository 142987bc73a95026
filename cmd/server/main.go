package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/orvd/logviewer/internal/api"
	"github.com/orvd/logviewer/internal/backend"
	"github.com/orvd/logviewer/internal/config"
	"github.com/orvd/logviewer/internal/logging"
	"github.com/orvd/logviewer/internal/logstore"
	"github.com/orvd/logviewer/internal/session"
	"github.com/orvd/logviewer/internal/storage"
	"github.com/orvd/logviewer/internal/web"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "logviewer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	configPath := filepath.Join(filepath.Dir(exePath), config.FileName)
	if p := os.Getenv("LOGVIEWER_CONFIG"); p != "" {
		configPath = p
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.New(logging.Options{
		Level:  cfg.Advanced.LogLevel,
		Format: cfg.Advanced.LogFormat,
	})

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	downloads, err := storage.NewLocalStore(cfg.Storage.DownloadsDirectory)
	if err != nil {
		return fmt.Errorf("failed to initialize download storage: %w", err)
	}

	var logs *logstore.Service
	if cfg.Backend.Serve {
		logs, err = openLogstore(cfg, logger)
		if err != nil {
			return err
		}
		defer logs.Close()
	}

	client, err := newBackendClient(cfg)
	if err != nil {
		return err
	}

	sessions := session.NewManager(session.Options{
		Fetcher:     client,
		Store:       downloads,
		ChartWidth:  cfg.Viewer.ChartWidth,
		ChartHeight: cfg.Viewer.ChartHeight,
		Location:    loc,
		TimeLayout:  cfg.Viewer.TimeLayout,
		MaxSessions: cfg.Viewer.MaxSessions,
		BasePath:    api.ViewBasePath,
		Logger:      logger.With().Str("component", "session").Logger(),
	})
	defer sessions.Close()

	deps := &api.Dependencies{
		Sessions: sessions,
		Store:    downloads,
		Version:  Version,
		Logger:   logger,
	}
	if logs != nil {
		deps.Logs = logs
	}
	handlers := api.NewHandlers(deps)

	e := newEcho(cfg, logger)
	api.RegisterRoutes(e, handlers)
	if cfg.GetBackendAddr() == "" {
		api.RegisterBackendRoutes(e, handlers, cfg.Backend.EnableIngest)
	}
	if web.HasEmbeddedFiles() {
		if err := web.RegisterStaticRoutes(e); err != nil {
			logger.Warn().Err(err).Msg("failed to register static routes")
		}
	}

	servers := []*echoServer{{name: "viewer", e: e, addr: cfg.GetServerAddr()}}
	if addr := cfg.GetBackendAddr(); addr != "" {
		be := newEcho(cfg, logger)
		api.RegisterBackendRoutes(be, handlers, cfg.Backend.EnableIngest)
		servers = append(servers, &echoServer{name: "backend", e: be, addr: addr})
	}

	printBanner(cfg, configPath, client.BaseURL())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		s := s
		g.Go(func() error { return s.start(cfg) })
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return s.e.Shutdown(shutdownCtx)
		})
	}
	g.Go(func() error {
		sessions.Run(ctx, cfg.CleanupInterval(), cfg.SessionTimeout())
		return nil
	})
	g.Go(func() error {
		pruneDownloads(ctx, downloads, cfg.CleanupInterval(), cfg.DownloadRetention(), logger)
		return nil
	})

	err = g.Wait()
	logger.Info().Msg("server stopped")
	return err
}

func openLogstore(cfg *config.AppConfig, logger zerolog.Logger) (*logstore.Service, error) {
	dir, err := logstore.NewLogDir(cfg.Storage.LogsDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to open logs directory: %w", err)
	}
	store, err := logstore.OpenDuckStore(cfg.Storage.DatabasePath, logstore.DuckOptions{
		Threads:     cfg.Advanced.DuckDBThreads,
		MemoryLimit: cfg.Advanced.DuckDBMemoryLimit,
	}, logger.With().Str("component", "duckdb").Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry database: %w", err)
	}
	return logstore.NewService(dir, store, logger.With().Str("component", "logstore").Logger()), nil
}

func newBackendClient(cfg *config.AppConfig) (*backend.Client, error) {
	opts := []backend.Option{backend.WithHTTPClient(&http.Client{Timeout: cfg.BackendTimeout()})}
	if cfg.Backend.MsgpackEvents {
		opts = append(opts, backend.WithMsgpackEvents())
	}
	client, err := backend.NewClient(cfg.GetBackendURL(), opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	return client, nil
}

func newEcho(cfg *config.AppConfig, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	var origins []string
	if cfg.Server.EnableCORS {
		for _, o := range strings.Split(cfg.Server.AllowOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) == 0 {
			origins = []string{"*"}
		}
	}

	api.SetupMiddleware(e, api.MiddlewareOptions{
		RequestLogging:   cfg.Advanced.EnableRequestLogging,
		Compression:      cfg.Advanced.EnableCompression,
		CompressionLevel: cfg.Advanced.CompressionLevel,
		Timeout:          time.Duration(cfg.Server.ReadTimeout) * time.Second,
		BodyLimit:        cfg.Server.BodyLimit,
		AllowOrigins:     origins,
	}, logger.With().Str("component", "http").Logger())
	return e
}

type echoServer struct {
	name string
	e    *echo.Echo
	addr string
}

func (s *echoServer) start(cfg *config.AppConfig) error {
	srv := &http.Server{
		Addr:         s.addr,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}
	if err := s.e.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", s.name, err)
	}
	return nil
}

func pruneDownloads(ctx context.Context, store storage.Store, interval, maxAge time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Prune(maxAge); n > 0 {
				logger.Info().Int("removed", n).Msg("pruned old downloads")
			}
		}
	}
}

func printBanner(cfg *config.AppConfig, configPath, backendURL string) {
	backendMode := "remote"
	if cfg.Backend.Serve {
		backendMode = "built-in"
		if addr := cfg.GetBackendAddr(); addr != "" {
			backendMode = "built-in on " + addr
		}
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           UAV Log Viewer                                  ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Backend:    %-45s║\n", backendMode)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Logs URL:  %-46s║\n", backendURL)
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.Storage.DataDirectory)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
}
