package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultChannelPath     = "/api/ws"
	DefaultHistoryDays     = 30
	DefaultHistoryInterval = 60
)

// LoggingConfig defines runtime logging behavior. When LogToFile is set the
// file becomes the primary sink and the console only mirrors records at
// ConsoleLevel and above, so an attended terminal stays readable.
type LoggingConfig struct {
	Level     string `json:"level"`
	LogToFile bool   `json:"log_to_file"`
	// FileFormat selects the log file encoding: "text" or "json".
	FileFormat string `json:"file_format"`
	// ConsoleLevel is the minimum level mirrored to the console while
	// logging to a file.
	ConsoleLevel string `json:"console_level"`
}

// ServerConfig points the console at the router management backend.
type ServerConfig struct {
	// BaseURL is the HTTP(S) origin of the backend, e.g. "http://192.168.1.1".
	BaseURL string `json:"base_url"`
	// ChannelPath is the live channel endpoint path on the backend.
	ChannelPath string `json:"channel_path"`
	// InsecureSkipVerify disables TLS certificate checks for self-signed
	// appliance certificates.
	InsecureSkipVerify bool `json:"insecure_skip_verify"`
}

// HistoryConfig controls the local metrics/speedtest journal.
type HistoryConfig struct {
	RetentionDays   int `json:"retention_days"`
	SampleBatchSize int `json:"sample_batch_size"`
}

// NotificationConfig stores desktop notification preferences.
type NotificationConfig struct {
	Enabled bool                     `json:"enabled"`
	Events  NotificationEventsConfig `json:"events"`
}

// NotificationEventsConfig stores per-event notification toggles.
type NotificationEventsConfig struct {
	ConnectionStatus   bool `json:"connection_status"`
	DeviceDiscovered   bool `json:"device_discovered"`
	SpeedtestCompleted bool `json:"speedtest_completed"`
	ServerNotice       bool `json:"server_notice"`
	FirmwareUpdate     bool `json:"firmware_update"`
}

// AppConfig is the root persisted application configuration.
type AppConfig struct {
	Server        ServerConfig       `json:"server"`
	Logging       LoggingConfig      `json:"logging"`
	History       HistoryConfig      `json:"history"`
	Notifications NotificationConfig `json:"notifications"`
}

func Default() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			BaseURL:     "",
			ChannelPath: DefaultChannelPath,
		},
		Logging: LoggingConfig{
			Level:        "info",
			LogToFile:    false,
			FileFormat:   "text",
			ConsoleLevel: "warn",
		},
		History: HistoryConfig{
			RetentionDays:   DefaultHistoryDays,
			SampleBatchSize: DefaultHistoryInterval,
		},
		Notifications: NotificationConfig{
			Enabled: true,
			Events: NotificationEventsConfig{
				ConnectionStatus:   true,
				DeviceDiscovered:   true,
				SpeedtestCompleted: true,
				ServerNotice:       true,
				FirmwareUpdate:     true,
			},
		},
	}
}

func Load(path string) (AppConfig, error) {
	cfg := Default()
	cleanPath := filepath.Clean(path)
	// #nosec G304 -- path is resolved by app runtime and points to user config dir.
	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(raw, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decode config json: %w", err)
	}

	cfg.FillMissingDefaults()

	return cfg, nil
}

func (c *AppConfig) FillMissingDefaults() {
	if strings.TrimSpace(c.Server.ChannelPath) == "" {
		c.Server.ChannelPath = DefaultChannelPath
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if strings.TrimSpace(c.Logging.FileFormat) == "" {
		c.Logging.FileFormat = "text"
	}
	if strings.TrimSpace(c.Logging.ConsoleLevel) == "" {
		c.Logging.ConsoleLevel = "warn"
	}
	if c.History.RetentionDays <= 0 {
		c.History.RetentionDays = DefaultHistoryDays
	}
	if c.History.SampleBatchSize <= 0 {
		c.History.SampleBatchSize = DefaultHistoryInterval
	}
}

func (c AppConfig) Validate() error {
	base := strings.TrimSpace(c.Server.BaseURL)
	if base == "" {
		return errors.New("server base url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("parse server base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported server url scheme: %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("server base url is missing a host")
	}
	if !strings.HasPrefix(c.Server.ChannelPath, "/") {
		return fmt.Errorf("channel path must start with /: %q", c.Server.ChannelPath)
	}

	return nil
}

// ChannelURL derives the ws(s) endpoint of the live channel from the base URL.
func (c AppConfig) ChannelURL() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	parsed, err := url.Parse(strings.TrimSpace(c.Server.BaseURL))
	if err != nil {
		return "", fmt.Errorf("parse server base url: %w", err)
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = c.Server.ChannelPath
	parsed.RawQuery = ""

	return parsed.String(), nil
}

func Save(path string, cfg AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}

	return nil
}
