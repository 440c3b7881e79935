// Package config provides configuration management for the Emendo Agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// Default values
	DefaultPort      = 8765
	DefaultLogLevel  = "info"
	DefaultDataDir   = ".emendo"
	DefaultExportDir = "Emendo"

	// Environment variable names
	EnvPort       = "EMENDO_PORT"
	EnvLogLevel   = "EMENDO_LOG_LEVEL"
	EnvDataDir    = "EMENDO_DATA_DIR"
	EnvExportDir  = "EMENDO_EXPORT_DIR"
	EnvToolPrefix = "EMENDO_TOOL_PREFIX"
	EnvFFmpeg     = "EMENDO_FFMPEG"
	EnvFFprobe    = "EMENDO_FFPROBE"
	EnvHeadless   = "EMENDO_HEADLESS"

	// Database filename
	DBFilename = "emendo.db"

	// External tool timeouts (seconds)
	DefaultEncoderCheckTimeout = 2
	DefaultProbeTimeout        = 10
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	ExportDir() string
	ToolPrefix() []string
	FFmpegPath() string
	FFprobePath() string
	Headless() bool
	EncoderCheckTimeout() time.Duration
	ProbeTimeout() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port       int
	logLevel   string
	dataDir    string
	exportDir  string
	toolPrefix []string
	ffmpeg     string
	ffprobe    string
	headless   bool
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:      DefaultPort,
		logLevel:  DefaultLogLevel,
		dataDir:   defaultDataDir(),
		exportDir: defaultExportDir(),
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	// Override log level from environment
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	// Override data directory from environment
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	// Override export directory from environment
	if ed := os.Getenv(EnvExportDir); ed != "" {
		cfg.exportDir = ed
	}

	if tp := os.Getenv(EnvToolPrefix); tp != "" {
		cfg.toolPrefix = strings.Fields(tp)
	}

	cfg.ffmpeg = os.Getenv(EnvFFmpeg)
	cfg.ffprobe = os.Getenv(EnvFFprobe)

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// ExportDir returns the directory exported clips are written to
func (c *EnvConfig) ExportDir() string {
	return c.exportDir
}

// ToolPrefix returns an explicit command prefix for external tools.
// Empty means auto-detect (flatpak-spawn --host inside a Flatpak sandbox).
func (c *EnvConfig) ToolPrefix() []string {
	return c.toolPrefix
}

// FFmpegPath returns an override path for the ffmpeg binary, or "" for PATH lookup
func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpeg
}

// FFprobePath returns an override path for the ffprobe binary, or "" for PATH lookup
func (c *EnvConfig) FFprobePath() string {
	return c.ffprobe
}

// Headless reports whether the system tray should be disabled
func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) EncoderCheckTimeout() time.Duration {
	return DefaultEncoderCheckTimeout * time.Second
}

func (c *EnvConfig) ProbeTimeout() time.Duration {
	return DefaultProbeTimeout * time.Second
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// defaultExportDir returns the default export directory path
func defaultExportDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultExportDir
	}
	return filepath.Join(home, DefaultExportDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
