package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultConfigName = "config"
	envPrefix         = "SC"
)

type Config struct {
	ChannelName string

	// PendingMaxAge drops unanswered requests older than this. Zero keeps them
	// until a reply or Cancel.
	PendingMaxAge     time.Duration
	PendingSweepEvery time.Duration

	// StatusAddr enables the status/metrics HTTP server when set.
	StatusAddr string

	// NDJSONPath enables frame telemetry when set. Leave empty to disable file logging.
	NDJSONPath string

	LogLevel slog.Level
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("channel.name", "BungeeCord")
	v.SetDefault("pending.max_age", "0s")
	v.SetDefault("pending.sweep_every", "1m")
	v.SetDefault("status.addr", "")
	v.SetDefault("telemetry.ndjson_path", "")
	v.SetDefault("log.level", "info")
}

// New returns a viper instance with defaults, search paths and env binding
// set up but no file read yet.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName(defaultConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("config")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

func Load() (Config, error) {
	v := New()
	// Config file is optional; env-only is fine.
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return FromViper(v)
}

func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		ChannelName:       strings.TrimSpace(v.GetString("channel.name")),
		PendingMaxAge:     v.GetDuration("pending.max_age"),
		PendingSweepEvery: v.GetDuration("pending.sweep_every"),
		StatusAddr:        strings.TrimSpace(v.GetString("status.addr")),
		NDJSONPath:        strings.TrimSpace(v.GetString("telemetry.ndjson_path")),
	}

	if cfg.ChannelName == "" {
		return Config{}, fmt.Errorf("channel.name must not be empty")
	}
	if cfg.PendingMaxAge < 0 {
		return Config{}, fmt.Errorf("invalid pending.max_age %s", cfg.PendingMaxAge)
	}
	if cfg.PendingMaxAge > 0 && cfg.PendingSweepEvery <= 0 {
		return Config{}, fmt.Errorf("invalid pending.sweep_every %s", cfg.PendingSweepEvery)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log.level"))); err != nil {
		return Config{}, fmt.Errorf("invalid log.level %q: %w", v.GetString("log.level"), err)
	}

	if cfg.NDJSONPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.NDJSONPath), 0o755); err != nil {
			return Config{}, fmt.Errorf("create telemetry dir: %w", err)
		}
	}
	return cfg, nil
}
