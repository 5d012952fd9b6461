package engine

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/germanamz/camview/pkg/camera"
	"github.com/germanamz/camview/pkg/devices"
	"github.com/germanamz/camview/pkg/kvstore"
)

// Config is the top-level engine configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Devices DevicesConfig `yaml:"devices"`
	Feed    FeedConfig    `yaml:"feed"`
	Control ControlConfig `yaml:"control"`
	Log     LogConfig     `yaml:"log"`
}

// StoreConfig selects where the durable camera record lives.
type StoreConfig struct {
	Kind string `yaml:"kind" env:"CAMVIEW_STORE_KIND"` // memory, file or sqlite (default memory).
	Path string `yaml:"path" env:"CAMVIEW_STORE_PATH"` // Directory for file, database file for sqlite.
}

// DevicesConfig selects the device source and how changes are detected.
type DevicesConfig struct {
	Source       string          `yaml:"source" env:"CAMVIEW_DEVICES_SOURCE"`               // sysfs, file or static (default sysfs).
	Path         string          `yaml:"path" env:"CAMVIEW_DEVICES_PATH"`                   // Fixture file for the file source; sysfs root for sysfs.
	PollInterval string          `yaml:"poll_interval" env:"CAMVIEW_DEVICES_POLL_INTERVAL"` // Duration string; "0s" disables change detection.
	Static       []camera.Device `yaml:"static"`
}

// FeedConfig controls the HTTP render feed.
type FeedConfig struct {
	Addr string `yaml:"addr" env:"CAMVIEW_FEED_ADDR"` // Empty disables the feed.
}

// ControlConfig controls the MCP remote-control server.
type ControlConfig struct {
	Enabled bool `yaml:"enabled" env:"CAMVIEW_CONTROL_ENABLED"`
}

// LogConfig controls the structured log file.
type LogConfig struct {
	Level string `yaml:"level" env:"CAMVIEW_LOG_LEVEL"` // debug, info, warn or error (default info).
	File  string `yaml:"file" env:"CAMVIEW_LOG_FILE"`
}

// Device source kinds.
const (
	SourceSysfs  = "sysfs"
	SourceFile   = "file"
	SourceStatic = "static"
)

var logLevels = []string{"", "debug", "info", "warn", "error"}

// LoadConfig reads a YAML file and returns a Config.
// Environment variables referenced as ${VAR} or $VAR in the YAML are expanded
// before parsing, and CAMVIEW_* variables override the parsed values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("engine: load config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ApplyEnv overrides cfg with any CAMVIEW_* environment variables that are
// set. Unset variables leave the current values alone.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("engine: parse env: %w", err)
	}
	return nil
}

// Marshal renders cfg as YAML.
func (c Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("engine: marshal config: %w", err)
	}
	return data, nil
}

// PollIntervalDuration returns the parsed device poll interval. Zero disables
// change detection.
func (c DevicesConfig) PollIntervalDuration() (time.Duration, error) {
	if c.PollInterval == "" {
		return devices.DefaultPollInterval, nil
	}

	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("engine: config: devices: invalid poll_interval %q: %w", c.PollInterval, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("engine: config: devices: poll_interval %q is negative", c.PollInterval)
	}
	return d, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.Store.Kind != "" && !slices.Contains(kvstore.Kinds(), kvstore.Kind(c.Store.Kind)) {
		return fmt.Errorf("engine: config: store: unknown kind %q", c.Store.Kind)
	}
	if (c.Store.Kind == string(kvstore.KindFile) || c.Store.Kind == string(kvstore.KindSQLite)) && c.Store.Path == "" {
		return fmt.Errorf("engine: config: store: %s store requires a path", c.Store.Kind)
	}

	if _, ok := lookupSource(c.Devices.Source); !ok {
		return fmt.Errorf("engine: config: devices: unknown source %q", c.Devices.Source)
	}
	if c.Devices.Source == SourceFile && c.Devices.Path == "" {
		return fmt.Errorf("engine: config: devices: file source requires a path")
	}
	if _, err := c.Devices.PollIntervalDuration(); err != nil {
		return err
	}

	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("engine: config: log: unknown level %q", c.Log.Level)
	}

	return nil
}
