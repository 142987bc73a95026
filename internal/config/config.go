// Package config provides YAML-based configuration for the log viewer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up next to the executable.
const FileName = "logviewer.yaml"

// AppConfig represents the root configuration structure.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Backend  BackendConfig  `yaml:"backend"`
	Storage  StorageConfig  `yaml:"storage"`
	Viewer   ViewerConfig   `yaml:"viewer"`
	Advanced AdvancedConfig `yaml:"advanced"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bindAddress"`
	EnableCORS   bool   `yaml:"enableCors"`
	AllowOrigins string `yaml:"allowOrigins"`
	ReadTimeout  int    `yaml:"readTimeoutSeconds"`
	WriteTimeout int    `yaml:"writeTimeoutSeconds"`
	IdleTimeout  int    `yaml:"idleTimeoutSeconds"`
	BodyLimit    string `yaml:"bodyLimit"`
}

// BackendConfig points the viewer at the logs backend and optionally serves
// one from this process.
type BackendConfig struct {
	// URL is the base the logs/* paths are resolved against. When empty and
	// Serve is set, the built-in backend is used.
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	// MsgpackEvents asks for the events list as msgpack.
	MsgpackEvents bool `yaml:"msgpackEvents"`
	// Serve mounts the logs/* endpoints on this process.
	Serve bool `yaml:"serve"`
	// Port serves the backend on its own listener; 0 shares the viewer's.
	Port int `yaml:"port"`
	// EnableIngest exposes the endpoints that record logs, telemetry and events.
	EnableIngest bool `yaml:"enableIngest"`
}

// StorageConfig contains file storage settings.
type StorageConfig struct {
	DataDirectory      string `yaml:"dataDirectory"`
	DownloadsDirectory string `yaml:"downloadsDirectory"`
	LogsDirectory      string `yaml:"logsDirectory"`
	DatabasePath       string `yaml:"databasePath"`
}

// ViewerConfig contains display and session settings.
type ViewerConfig struct {
	ChartWidth               int    `yaml:"chartWidth"`
	ChartHeight              int    `yaml:"chartHeight"`
	TimeZone                 string `yaml:"timeZone"`
	TimeLayout               string `yaml:"timeLayout"`
	MaxSessions              int    `yaml:"maxSessions"`
	SessionTimeoutMinutes    int    `yaml:"sessionTimeoutMinutes"`
	CleanupIntervalMinutes   int    `yaml:"cleanupIntervalMinutes"`
	DownloadRetentionMinutes int    `yaml:"downloadRetentionMinutes"`
}

// AdvancedConfig contains logging and tuning options.
type AdvancedConfig struct {
	LogLevel             string `yaml:"logLevel"`
	LogFormat            string `yaml:"logFormat"` // "console" or "json"
	EnableRequestLogging bool   `yaml:"enableRequestLogging"`
	EnableCompression    bool   `yaml:"enableCompression"`
	CompressionLevel     int    `yaml:"compressionLevel"`
	DuckDBThreads        int    `yaml:"duckdbThreads"`
	DuckDBMemoryLimit    string `yaml:"duckdbMemoryLimit"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "8M",
		},
		Backend: BackendConfig{
			URL:            "",
			TimeoutSeconds: 30,
			Serve:          true,
			EnableIngest:   true,
		},
		Storage: StorageConfig{
			DataDirectory:      "./data",
			DownloadsDirectory: "./data/downloads",
			LogsDirectory:      "./logs",
			DatabasePath:       "./data/orvd.duckdb",
		},
		Viewer: ViewerConfig{
			ChartWidth:               1024,
			ChartHeight:              400,
			TimeZone:                 "Local",
			TimeLayout:               "02.01.2006, 15:04:05",
			MaxSessions:              64,
			SessionTimeoutMinutes:    30,
			CleanupIntervalMinutes:   5,
			DownloadRetentionMinutes: 60,
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			LogFormat:            "console",
			EnableRequestLogging: true,
			EnableCompression:    true,
			CompressionLevel:     5,
			DuckDBThreads:        2,
			DuckDBMemoryLimit:    "512MB",
		},
	}
}

// LoadConfig loads configuration from a YAML file. A missing file is
// created with the defaults.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to a YAML file.
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# UAV log viewer configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports settings that cannot work.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Backend.Port < 0 || c.Backend.Port > 65535 {
		return fmt.Errorf("invalid backend port %d", c.Backend.Port)
	}
	if c.Backend.Serve && c.Backend.Port == c.Server.Port {
		return fmt.Errorf("backend port %d collides with the server port; use 0 to share it", c.Backend.Port)
	}
	if c.Backend.URL == "" && !c.Backend.Serve {
		return fmt.Errorf("backend.url is required when backend.serve is off")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values.
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.DownloadsDirectory = filepath.Join(dataDir, "downloads")
		c.Storage.DatabasePath = filepath.Join(dataDir, "orvd.duckdb")
	}

	if url := os.Getenv("ORVD_URL"); url != "" {
		c.Backend.URL = url
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = strings.ToLower(level)
	}
}

// resolvePaths converts relative paths to absolute based on config file location.
func (c *AppConfig) resolvePaths(configDir string) {
	for _, p := range []*string{
		&c.Storage.DataDirectory,
		&c.Storage.DownloadsDirectory,
		&c.Storage.LogsDirectory,
		&c.Storage.DatabasePath,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// Location returns the time zone used to read and format timestamps.
func (c *AppConfig) Location() (*time.Location, error) {
	switch c.Viewer.TimeZone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Viewer.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", c.Viewer.TimeZone, err)
	}
	return loc, nil
}

// GetServerAddr returns the server bind address.
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GetBackendAddr returns the bind address of a separate backend listener, or
// "" when the backend shares the viewer's.
func (c *AppConfig) GetBackendAddr() string {
	if !c.Backend.Serve || c.Backend.Port == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Backend.Port)
}

// GetBackendURL returns the base URL of the logs backend. Without an explicit
// URL this is the built-in backend on the loopback interface.
func (c *AppConfig) GetBackendURL() string {
	if c.Backend.URL != "" {
		return c.Backend.URL
	}
	port := c.Server.Port
	if c.Backend.Port != 0 {
		port = c.Backend.Port
	}
	return fmt.Sprintf("http://127.0.0.1:%d/", port)
}

// CleanupInterval returns how often idle sessions and old downloads are pruned.
func (c *AppConfig) CleanupInterval() time.Duration {
	return minutes(c.Viewer.CleanupIntervalMinutes, 5)
}

// SessionTimeout returns how long an idle session is kept.
func (c *AppConfig) SessionTimeout() time.Duration {
	return minutes(c.Viewer.SessionTimeoutMinutes, 30)
}

// DownloadRetention returns how long a saved download stays available.
func (c *AppConfig) DownloadRetention() time.Duration {
	return minutes(c.Viewer.DownloadRetentionMinutes, 60)
}

// BackendTimeout returns the request timeout of the backend client.
func (c *AppConfig) BackendTimeout() time.Duration {
	if c.Backend.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// EnsureDirectories creates all necessary directories.
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.DownloadsDirectory,
		c.Storage.LogsDirectory,
	}
	if c.Storage.DatabasePath != "" {
		dirs = append(dirs, filepath.Dir(c.Storage.DatabasePath))
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

func minutes(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Minute
}
