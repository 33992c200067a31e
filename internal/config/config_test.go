package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "BungeeCord", cfg.ChannelName)
	require.Zero(t, cfg.PendingMaxAge)
	require.Equal(t, time.Minute, cfg.PendingSweepEvery)
	require.Empty(t, cfg.StatusAddr)
	require.Empty(t, cfg.NDJSONPath)
	require.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("SC_CHANNEL_NAME", "bungeecord:main")
	t.Setenv("SC_PENDING_MAX_AGE", "30s")
	t.Setenv("SC_STATUS_ADDR", "127.0.0.1:9100")
	t.Setenv("SC_TELEMETRY_NDJSON_PATH", filepath.Join(dir, "logs", "frames.ndjson"))
	t.Setenv("SC_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "bungeecord:main", cfg.ChannelName)
	require.Equal(t, 30*time.Second, cfg.PendingMaxAge)
	require.Equal(t, "127.0.0.1:9100", cfg.StatusAddr)
	require.Equal(t, slog.LevelDebug, cfg.LogLevel)

	st, err := os.Stat(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	require.True(t, st.IsDir())
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "config"), 0o755))
	yaml := "channel:\n  name: legacy\npending:\n  max_age: 2m\n  sweep_every: 10s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "legacy", cfg.ChannelName)
	require.Equal(t, 2*time.Minute, cfg.PendingMaxAge)
	require.Equal(t, 10*time.Second, cfg.PendingSweepEvery)
}

func TestFromViper_Validation(t *testing.T) {
	cases := map[string]func(t *testing.T){
		"empty channel": func(t *testing.T) { t.Setenv("SC_CHANNEL_NAME", " ") },
		"negative age":  func(t *testing.T) { t.Setenv("SC_PENDING_MAX_AGE", "-1s") },
		"no sweep": func(t *testing.T) {
			t.Setenv("SC_PENDING_MAX_AGE", "1s")
			t.Setenv("SC_PENDING_SWEEP_EVERY", "0s")
		},
		"bad level": func(t *testing.T) { t.Setenv("SC_LOG_LEVEL", "loud") },
	}
	for name, set := range cases {
		t.Run(name, func(t *testing.T) {
			set(t)
			_, err := FromViper(New())
			require.Error(t, err)
		})
	}
}

// chdir is a Go 1.21-compatible stand-in for testing.T.Chdir (Go 1.24+):
// it changes the working directory and restores it when the test ends.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
