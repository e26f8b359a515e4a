// Package config provides YAML-based configuration for the sun path server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sunpath-tracker/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// AppConfig is the root of config.yaml.
type AppConfig struct {
	Server   ServerConfig          `yaml:"server"`
	Storage  StorageConfig         `yaml:"storage"`
	Playback models.PlaybackConfig `yaml:"playback"`
	Chart    ChartConfig           `yaml:"chart"`
	Loader   LoaderConfig          `yaml:"loader"`
	Logging  LoggingConfig         `yaml:"logging"`
	Metrics  MetricsConfig         `yaml:"metrics"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port            int    `yaml:"port"`
	BindAddress     string `yaml:"bind_address"`
	EnableCORS      bool   `yaml:"enable_cors"`
	AllowOrigins    string `yaml:"allow_origins"`
	ReadTimeout     int    `yaml:"read_timeout_seconds"`
	WriteTimeout    int    `yaml:"write_timeout_seconds"`
	IdleTimeout     int    `yaml:"idle_timeout_seconds"`
	ShutdownTimeout int    `yaml:"shutdown_timeout_seconds"`
	BodyLimit       string `yaml:"body_limit"`
}

// StorageConfig contains file storage settings
type StorageConfig struct {
	DataDirectory    string `yaml:"data_directory"`
	UploadsDirectory string `yaml:"uploads_directory"`
	AllowedFileTypes string `yaml:"allowed_file_types"`
}

// ChartConfig holds the startup chart style.
type ChartConfig struct {
	Title           string `yaml:"title"`
	SeriesColor     string `yaml:"series_color"`
	BackgroundColor string `yaml:"background_color"`
	LegendVisible   bool   `yaml:"legend_visible"`
	Width           int    `yaml:"width"`
	Height          int    `yaml:"height"`
}

// LoaderConfig tunes the incremental loader.
type LoaderConfig struct {
	UIQueueSize       int    `yaml:"ui_queue_size"`
	MaxReportedErrors int    `yaml:"max_reported_errors"`
	InitialFile       string `yaml:"initial_file"`
	AllowLocalPaths   bool   `yaml:"allow_local_paths"`
}

type LoggingConfig struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	RequestLogging bool   `yaml:"request_logging"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	style := models.DefaultChartStyle()
	return &AppConfig{
		Server: ServerConfig{
			Port:            8089,
			BindAddress:     "0.0.0.0",
			EnableCORS:      true,
			AllowOrigins:    "*",
			ReadTimeout:     30,
			WriteTimeout:    0,
			IdleTimeout:     120,
			ShutdownTimeout: 10,
			BodyLimit:       "256M",
		},
		Storage: StorageConfig{
			DataDirectory:    "./data",
			UploadsDirectory: "./data/uploads",
			AllowedFileTypes: ".csv,.txt",
		},
		Playback: models.DefaultPlaybackConfig(),
		Chart: ChartConfig{
			Title:           style.Title,
			SeriesColor:     style.SeriesColor,
			BackgroundColor: style.BackgroundColor,
			LegendVisible:   style.LegendVisible,
			Width:           1024,
			Height:          480,
		},
		Loader: LoaderConfig{
			UIQueueSize:       256,
			MaxReportedErrors: 100,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "console",
			RequestLogging: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// LoadConfig loads configuration from a YAML file, writing the defaults
// there first if it does not exist.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Unmarshal over the defaults so omitted keys keep them.
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

// Save writes the configuration as YAML
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Sun Path Tracker configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate rejects values the server cannot start with.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Loader.UIQueueSize <= 0 {
		return fmt.Errorf("loader.ui_queue_size must be positive, got %d", c.Loader.UIQueueSize)
	}
	if err := c.ChartStyle().Validate(); err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// DATA_DIR moves uploads along with it
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.UploadsDirectory = filepath.Join(dataDir, "uploads")
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if !filepath.IsAbs(c.Storage.UploadsDirectory) {
		c.Storage.UploadsDirectory = filepath.Join(configDir, c.Storage.UploadsDirectory)
	}
	if c.Loader.InitialFile != "" && !filepath.IsAbs(c.Loader.InitialFile) {
		c.Loader.InitialFile = filepath.Join(configDir, c.Loader.InitialFile)
	}
}

// PlaybackSettings returns the startup playback config, clamped.
func (c *AppConfig) PlaybackSettings() models.PlaybackConfig {
	return c.Playback.Clamped()
}

// ChartStyle returns the startup chart style.
func (c *AppConfig) ChartStyle() models.ChartStyle {
	return models.ChartStyle{
		Title:           c.Chart.Title,
		SeriesColor:     c.Chart.SeriesColor,
		BackgroundColor: c.Chart.BackgroundColor,
		LegendVisible:   c.Chart.LegendVisible,
	}
}

// GetUploadDir returns the absolute uploads directory path
func (c *AppConfig) GetUploadDir() string {
	return c.Storage.UploadsDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.UploadsDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
