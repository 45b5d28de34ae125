package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestParseJson(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"api_base_url":               "https://lh.example/api",
		"request_timeout":            "1500ms",
		"hub_start_attempts":         4,
		"hub_start_retry_delay":      int64(time.Second),
		"hub_reconnect_long_delay":   "20s",
		"hub_max_reconnect_attempts": 0,
	})

	t.Run("loads from -config", func(t *testing.T) {
		t.Setenv("LEARNHUB_CONFIG", "")
		cfg := defaults()
		require.NoError(t, parseJson(cfg, []string{"-config", path}))

		want := defaults()
		want.APIBaseURL = "https://lh.example/api"
		want.RequestTimeout = 1500 * time.Millisecond
		want.HubStartAttempts = 4
		want.HubStartRetryDelay = time.Second
		want.HubReconnectLongDelay = 20 * time.Second
		want.HubMaxReconnectAttempts = 0
		assert.Empty(t, cmp.Diff(want, cfg))
	})

	t.Run("loads from environment", func(t *testing.T) {
		t.Setenv("LEARNHUB_CONFIG", path)
		cfg := defaults()
		require.NoError(t, parseJson(cfg, nil))
		assert.Equal(t, "https://lh.example/api", cfg.APIBaseURL)
	})

	t.Run("no file, no changes", func(t *testing.T) {
		t.Setenv("LEARNHUB_CONFIG", "")
		cfg := defaults()
		require.NoError(t, parseJson(cfg, []string{"-a", "x"}))
		assert.Empty(t, cmp.Diff(defaults(), cfg))
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("LEARNHUB_CONFIG", "")
		require.Error(t, parseJson(defaults(), []string{"-c", filepath.Join(t.TempDir(), "nope.json")}))
	})

	t.Run("invalid JSON", func(t *testing.T) {
		t.Setenv("LEARNHUB_CONFIG", "")
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))
		require.Error(t, parseJson(defaults(), []string{"-c", bad}))
	})
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	t.Setenv("LEARNHUB_CONFIG", "")
	path := writeTempJSON(t, map[string]any{
		"api_base_url":  "https://json.example/api",
		"database_path": "json.db",
	})

	cfg, err := LoadConfig([]string{"-c", path, "-a", "https://flag.example/api"})
	require.NoError(t, err)
	assert.Equal(t, "https://flag.example/api", cfg.APIBaseURL)
	assert.Equal(t, "json.db", cfg.DatabasePath)
	assert.Equal(t, "wss://flag.example/hubs/livesession", cfg.HubURL)
}
