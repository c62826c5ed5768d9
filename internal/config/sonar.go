package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/banshee-data/sonarmap/internal/serialmux"
	"github.com/banshee-data/sonarmap/internal/sonar"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/sonar.defaults.json"

// Defaults for the runtime fields. The pipeline constants live in the sonar
// package.
const (
	DefaultSerialPort       = "/dev/ttyACM0"
	DefaultBaudRate         = 115200
	DefaultSettleDelay      = 2 * time.Second
	DefaultIngestInterval   = 100 * time.Millisecond
	DefaultRenderInterval   = 100 * time.Millisecond
	DefaultSaveEveryNFrames = 20
	DefaultPlotDir          = "plots"
	DefaultDBPath           = "sonar_map.db"
	DefaultListen           = ":8080"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// SonarConfig is the on-disk configuration for a sonarmap run. Every field is
// optional; the Get* accessors fall back to defaults for unset values, so
// partial files are safe.
type SonarConfig struct {
	// Pipeline constants
	MaxSensorRangeMM *int `json:"max_sensor_range_mm,omitempty" toml:"max_sensor_range_mm"`
	FilterWindowSize *int `json:"filter_window_size,omitempty" toml:"filter_window_size"`
	MaxDisplayPoints *int `json:"max_display_points,omitempty" toml:"max_display_points"`

	// Serial transport
	SerialPort  *string                `json:"serial_port,omitempty" toml:"serial_port"`
	Serial      *serialmux.PortOptions `json:"serial,omitempty" toml:"serial"`
	SettleDelay *string                `json:"settle_delay,omitempty" toml:"settle_delay"` // duration string like "2s"

	// Loop timing
	IngestInterval *string `json:"ingest_interval,omitempty" toml:"ingest_interval"`
	RenderInterval *string `json:"render_interval,omitempty" toml:"render_interval"`

	// Output
	SaveEveryNFrames *int    `json:"save_every_n_frames,omitempty" toml:"save_every_n_frames"`
	PlotDir          *string `json:"plot_dir,omitempty" toml:"plot_dir"`
	DBPath           *string `json:"db_path,omitempty" toml:"db_path"`
	Listen           *string `json:"listen,omitempty" toml:"listen"`
	LogRejections    *bool   `json:"log_rejections,omitempty" toml:"log_rejections"`
}

// Helper functions to create pointers
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// EmptySonarConfig returns a SonarConfig with all fields set to nil.
func EmptySonarConfig() *SonarConfig {
	return &SonarConfig{}
}

// DefaultSonarConfig returns a fully populated config holding the built-in
// defaults. It matches DefaultConfigPath.
func DefaultSonarConfig() *SonarConfig {
	return &SonarConfig{
		MaxSensorRangeMM: ptrInt(sonar.DefaultMaxSensorRangeMM),
		FilterWindowSize: ptrInt(sonar.DefaultFilterWindowSize),
		MaxDisplayPoints: ptrInt(sonar.DefaultMaxDisplayPoints),
		SerialPort:       ptrString(DefaultSerialPort),
		Serial:           &serialmux.PortOptions{BaudRate: DefaultBaudRate, DataBits: 8, StopBits: 1, Parity: "N"},
		SettleDelay:      ptrString(DefaultSettleDelay.String()),
		IngestInterval:   ptrString(DefaultIngestInterval.String()),
		RenderInterval:   ptrString(DefaultRenderInterval.String()),
		SaveEveryNFrames: ptrInt(DefaultSaveEveryNFrames),
		PlotDir:          ptrString(DefaultPlotDir),
		DBPath:           ptrString(DefaultDBPath),
		Listen:           ptrString(DefaultListen),
		LogRejections:    ptrBool(false),
	}
}

// LoadSonarConfig loads a SonarConfig from a .json or .toml file.
// The file is validated to ensure it has a supported extension and is under
// the max file size. Fields omitted from the file retain their default values.
func LoadSonarConfig(path string) (*SonarConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".toml" {
		return nil, fmt.Errorf("config file must have .json or .toml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySonarConfig()
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown config keys: %v", undecoded)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *SonarConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadSonarConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *SonarConfig) Validate() error {
	if err := c.PipelineConfig().Validate(); err != nil {
		return err
	}

	durations := []struct {
		name  string
		value *string
	}{
		{"settle_delay", c.SettleDelay},
		{"ingest_interval", c.IngestInterval},
		{"render_interval", c.RenderInterval},
	}
	for _, d := range durations {
		if d.value == nil || *d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(*d.value)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, *d.value, err)
		}
		if parsed < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", d.name, *d.value)
		}
	}

	if c.SaveEveryNFrames != nil && *c.SaveEveryNFrames < 0 {
		return fmt.Errorf("save_every_n_frames must be non-negative, got %d", *c.SaveEveryNFrames)
	}

	if c.Serial != nil {
		if _, err := c.Serial.Normalize(); err != nil {
			return fmt.Errorf("invalid serial options: %w", err)
		}
	}

	return nil
}

// PipelineConfig returns the constants the sonar pipeline is built with.
func (c *SonarConfig) PipelineConfig() sonar.Config {
	return sonar.Config{
		MaxSensorRangeMM: c.GetMaxSensorRangeMM(),
		FilterWindowSize: c.GetFilterWindowSize(),
		MaxDisplayPoints: c.GetMaxDisplayPoints(),
	}
}

// GetMaxSensorRangeMM returns the max_sensor_range_mm value or the default.
func (c *SonarConfig) GetMaxSensorRangeMM() int {
	if c.MaxSensorRangeMM == nil {
		return sonar.DefaultMaxSensorRangeMM
	}
	return *c.MaxSensorRangeMM
}

// GetFilterWindowSize returns the filter_window_size value or the default.
func (c *SonarConfig) GetFilterWindowSize() int {
	if c.FilterWindowSize == nil {
		return sonar.DefaultFilterWindowSize
	}
	return *c.FilterWindowSize
}

// GetMaxDisplayPoints returns the max_display_points value or the default.
func (c *SonarConfig) GetMaxDisplayPoints() int {
	if c.MaxDisplayPoints == nil {
		return sonar.DefaultMaxDisplayPoints
	}
	return *c.MaxDisplayPoints
}

// GetSerialPort returns the serial_port value or the default.
func (c *SonarConfig) GetSerialPort() string {
	if c.SerialPort == nil || *c.SerialPort == "" {
		return DefaultSerialPort
	}
	return *c.SerialPort
}

// GetSerialOptions returns the serial options with defaults applied to any
// unset field.
func (c *SonarConfig) GetSerialOptions() serialmux.PortOptions {
	opts := serialmux.PortOptions{BaudRate: DefaultBaudRate}
	if c.Serial != nil {
		opts = *c.Serial
		if opts.BaudRate <= 0 {
			opts.BaudRate = DefaultBaudRate
		}
	}
	if normalized, err := opts.Normalize(); err == nil {
		return normalized
	}
	return opts
}

// GetSettleDelay parses and returns the SettleDelay as a time.Duration.
func (c *SonarConfig) GetSettleDelay() time.Duration {
	return parseDurationOr(c.SettleDelay, DefaultSettleDelay)
}

// GetIngestInterval parses and returns the IngestInterval as a time.Duration.
func (c *SonarConfig) GetIngestInterval() time.Duration {
	return positiveOr(parseDurationOr(c.IngestInterval, DefaultIngestInterval), DefaultIngestInterval)
}

// GetRenderInterval parses and returns the RenderInterval as a time.Duration.
func (c *SonarConfig) GetRenderInterval() time.Duration {
	return positiveOr(parseDurationOr(c.RenderInterval, DefaultRenderInterval), DefaultRenderInterval)
}

// GetSaveEveryNFrames returns the save_every_n_frames value or the default.
// Zero disables periodic snapshots.
func (c *SonarConfig) GetSaveEveryNFrames() int {
	if c.SaveEveryNFrames == nil {
		return DefaultSaveEveryNFrames
	}
	return *c.SaveEveryNFrames
}

// GetPlotDir returns the plot_dir value or the default.
func (c *SonarConfig) GetPlotDir() string {
	if c.PlotDir == nil || *c.PlotDir == "" {
		return DefaultPlotDir
	}
	return *c.PlotDir
}

// GetDBPath returns the db_path value or the default.
func (c *SonarConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return DefaultDBPath
	}
	return *c.DBPath
}

// GetListen returns the listen value or the default. An explicit empty
// string disables the HTTP server.
func (c *SonarConfig) GetListen() string {
	if c.Listen == nil {
		return DefaultListen
	}
	return *c.Listen
}

// GetLogRejections returns the log_rejections value or the default.
func (c *SonarConfig) GetLogRejections() bool {
	if c.LogRejections == nil {
		return false
	}
	return *c.LogRejections
}

func parseDurationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def // default on parse error
	}
	return d
}

func positiveOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
