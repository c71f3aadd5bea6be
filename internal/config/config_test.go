// SPDX-License-Identifier: EPL-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 44100, cfg.SampleRate)
	assert.Equal(t, int64(200), cfg.MaxUploadMB)
	assert.Equal(t, int64(200<<20), cfg.MaxUploadBytes())
	assert.Equal(t, 30*time.Second, cfg.PreloadTimeout)
	assert.Equal(t, 20*time.Millisecond, cfg.DriveInterval)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.NotEmpty(t, cfg.CORSOrigins)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixpreview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9000"
log_level: debug
sample_rate: 48000
preload_timeout: 5s
cors_origins:
  - https://example.com
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, 48000, cfg.SampleRate)
	assert.Equal(t, 5*time.Second, cfg.PreloadTimeout)
	assert.Equal(t, []string{"https://example.com"}, cfg.CORSOrigins)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixpreview.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"addr": ":9000", "sample_rate": 48000}`), 0o600))

	t.Setenv("MIXPREVIEW_ADDR", ":7000")
	t.Setenv("MIXPREVIEW_DRIVE_INTERVAL", "50ms")
	t.Setenv("MIXPREVIEW_CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, 48000, cfg.SampleRate)
	assert.Equal(t, 50*time.Millisecond, cfg.DriveInterval)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero sample rate", "MIXPREVIEW_SAMPLE_RATE", "0"},
		{"bad level", "MIXPREVIEW_LOG_LEVEL", "loud"},
		{"zero upload limit", "MIXPREVIEW_MAX_UPLOAD_MB", "0"},
		{"zero drive interval", "MIXPREVIEW_DRIVE_INTERVAL", "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load("")
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
