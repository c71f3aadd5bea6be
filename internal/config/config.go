// SPDX-License-Identifier: EPL-2.0

// Package config loads runtime settings from defaults, an optional config
// file and MIXPREVIEW_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "MIXPREVIEW"

var (
	ErrInvalidConfig = errors.New("invalid config")
)

type Config struct {
	Addr           string        `mapstructure:"addr"`
	LogLevel       string        `mapstructure:"log_level"`
	MaxUploadMB    int64         `mapstructure:"max_upload_mb"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	SampleRate     int           `mapstructure:"sample_rate"`
	PreloadTimeout time.Duration `mapstructure:"preload_timeout"`
	DriveInterval  time.Duration `mapstructure:"drive_interval"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("max_upload_mb", 200)
	v.SetDefault("cors_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("sample_rate", 44100)
	v.SetDefault("preload_timeout", 30*time.Second)
	v.SetDefault("drive_interval", 20*time.Millisecond)
}

// Load reads the configuration. An empty path skips the file; a path that
// does not exist is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	// env values arrive comma separated, with or without spaces
	cfg.CORSOrigins = splitList(strings.Join(cfg.CORSOrigins, ","))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample_rate %d", ErrInvalidConfig, c.SampleRate)
	case c.MaxUploadMB <= 0:
		return fmt.Errorf("%w: max_upload_mb %d", ErrInvalidConfig, c.MaxUploadMB)
	case c.PreloadTimeout < 0:
		return fmt.Errorf("%w: preload_timeout %s", ErrInvalidConfig, c.PreloadTimeout)
	case c.DriveInterval <= 0:
		return fmt.Errorf("%w: drive_interval %s", ErrInvalidConfig, c.DriveInterval)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// MaxUploadBytes is the multipart memory limit.
func (c *Config) MaxUploadBytes() int64 { return c.MaxUploadMB << 20 }

// Level returns the slog level for LogLevel.
func (c *Config) Level() slog.Level {
	l, _ := ParseLevel(c.LogLevel)
	return l
}

func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log_level %q", ErrInvalidConfig, s)
	}
	return l, nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
