// Package config loads tunestream settings from defaults, an optional YAML
// file, a .env file and TUNESTREAM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/logger"
)

// EnvPrefix prefixes every environment override, e.g. TUNESTREAM_CATALOG_CLIENT_ID.
const EnvPrefix = "TUNESTREAM"

// Config holds application configuration.
type Config struct {
	Log      LogConfig
	Playback PlaybackConfig
	Catalog  CatalogConfig
	Audio    AudioConfig

	// File is the config file that was read, "" if none
	File string
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string
	Format string
}

// PlaybackConfig configures the playback controller.
type PlaybackConfig struct {
	StatusInterval   time.Duration
	RestartThreshold time.Duration
	AutoAdvance      bool
}

// CatalogConfig configures the Jamendo catalog client.
type CatalogConfig struct {
	BaseURL  string
	ClientID string
	Timeout  time.Duration
	Limit    int
}

// AudioConfig configures the media player.
type AudioConfig struct {
	SampleRate     int
	MaxStreamBytes int64

	// Mock replaces the audio stack with the in-memory player
	Mock bool
}

// Options control where configuration is read from.
type Options struct {
	// File is an explicit config file; when empty the standard locations are searched
	File string

	// EnvFile is a dotenv file loaded before reading the environment.
	// A missing file is ignored. Defaults to ".env".
	EnvFile string

	// SearchPaths overrides the directories searched for config.yaml
	SearchPaths []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("playback.status_interval", "500ms")
	v.SetDefault("playback.restart_threshold", "3s")
	v.SetDefault("playback.auto_advance", false)

	v.SetDefault("catalog.base_url", "https://api.jamendo.com/v3.0")
	v.SetDefault("catalog.client_id", "")
	v.SetDefault("catalog.timeout", "10s")
	v.SetDefault("catalog.limit", 10)

	v.SetDefault("audio.sample_rate", 44100)
	v.SetDefault("audio.max_stream_bytes", 64<<20)
	v.SetDefault("audio.mock", false)
}

// Load reads configuration. Later sources win: defaults, config file,
// environment (including values from the dotenv file).
func Load(opts Options) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", opts.File, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		paths := opts.SearchPaths
		if paths == nil {
			paths = DefaultSearchPaths()
		}
		for _, p := range paths {
			v.AddConfigPath(p)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := fromViper(v)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file or
// the environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Playback: PlaybackConfig{
			StatusInterval:   v.GetDuration("playback.status_interval"),
			RestartThreshold: v.GetDuration("playback.restart_threshold"),
			AutoAdvance:      v.GetBool("playback.auto_advance"),
		},
		Catalog: CatalogConfig{
			BaseURL:  v.GetString("catalog.base_url"),
			ClientID: v.GetString("catalog.client_id"),
			Timeout:  v.GetDuration("catalog.timeout"),
			Limit:    v.GetInt("catalog.limit"),
		},
		Audio: AudioConfig{
			SampleRate:     v.GetInt("audio.sample_rate"),
			MaxStreamBytes: v.GetInt64("audio.max_stream_bytes"),
			Mock:           v.GetBool("audio.mock"),
		},
		File: v.ConfigFileUsed(),
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return domain.NewValidationError("log.level", c.Log.Level, err.Error())
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return domain.NewValidationError("log.format", c.Log.Format, "must be text or json")
	}
	if c.Playback.StatusInterval <= 0 {
		return domain.NewValidationError("playback.status_interval", c.Playback.StatusInterval, "must be positive")
	}
	if c.Playback.RestartThreshold <= 0 {
		return domain.NewValidationError("playback.restart_threshold", c.Playback.RestartThreshold, "must be positive")
	}
	if c.Catalog.Timeout <= 0 {
		return domain.NewValidationError("catalog.timeout", c.Catalog.Timeout, "must be positive")
	}
	if c.Catalog.Limit < 1 || c.Catalog.Limit > 200 {
		return domain.NewValidationError("catalog.limit", c.Catalog.Limit, "must be between 1 and 200")
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return domain.NewValidationError("audio.sample_rate", c.Audio.SampleRate, "must be between 8000 and 192000")
	}
	if c.Audio.MaxStreamBytes <= 0 {
		return domain.NewValidationError("audio.max_stream_bytes", c.Audio.MaxStreamBytes, "must be positive")
	}
	return nil
}

// DefaultSearchPaths returns the directories searched for config.yaml, in
// order: $XDG_CONFIG_HOME/tunestream, ~/.config/tunestream and the working
// directory.
func DefaultSearchPaths() []string {
	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "tunestream"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "tunestream"))
	}
	return append(paths, ".")
}

func loadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}
