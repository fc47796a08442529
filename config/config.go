// Package config loads service configuration from a YAML file with
// HACKRT_* environment overrides. A missing file is fine; defaults cover
// local development.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Config struct {
	HTTP HTTPConfig `mapstructure:"http"`
	Bus  BusConfig  `mapstructure:"bus"`
	Hub  HubConfig  `mapstructure:"hub"`
	Log  LogConfig  `mapstructure:"log"`

	v *viper.Viper
}

type HTTPConfig struct {
	// Addr is the listen address for /ws, /stats, /healthz and /metrics.
	Addr string `mapstructure:"addr"`
}

type BusConfig struct {
	// URL is the AMQP broker URI. Empty disables the bus: no ingress
	// consumers, no presence export.
	URL string `mapstructure:"url"`
}

type HubConfig struct {
	// SendBuffer is the per-connection outbound frame buffer. A frame
	// arriving at a full buffer is dropped, not queued.
	SendBuffer int `mapstructure:"send_buffer"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("http.addr", ":8090")
	v.SetDefault("bus.url", "")
	v.SetDefault("hub.send_buffer", 64)
	v.SetDefault("log.level", "info")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/hack-realtime")
	}

	v.SetEnvPrefix("HACKRT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// SlogLevel parses the configured log level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WatchLogLevel re-applies log.level when the config file changes on disk,
// so verbosity can be raised on a live process.
func (c *Config) WatchLogLevel(logger *slog.Logger, level *slog.LevelVar) {
	if c.v.ConfigFileUsed() == "" {
		return
	}

	c.v.OnConfigChange(func(e fsnotify.Event) {
		if err := c.v.Unmarshal(c); err != nil {
			logger.Warn("config reload failed", "file", e.Name, "error", err)
			return
		}
		level.Set(c.SlogLevel())
		logger.Info("log level reloaded", "level", c.Log.Level)
	})
	c.v.WatchConfig()
}
