package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://127.0.0.1:8000", cfg.API.BaseURL)
	assert.True(t, cfg.API.SendAccessToken)
	assert.Equal(t, "iphone", cfg.Search.Query)
	assert.Equal(t, "kijiji", cfg.Search.Sources)
	assert.Equal(t, 20, cfg.Search.Limit)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.False(t, cfg.HasAuthProvider())
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
api:
  base_url: "http://api.example.test:9000/"
auth:
  url: "https://project.supabase.example"
  anon_key: "anon"
search:
  sources: "kijiji,ebay"
  limit: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://api.example.test:9000", cfg.API.BaseURL, "trailing slash trimmed")
	assert.Equal(t, "https://project.supabase.example", cfg.Auth.URL)
	assert.Equal(t, "anon", cfg.Auth.AnonKey)
	assert.Equal(t, "kijiji,ebay", cfg.Search.Sources)
	assert.Equal(t, 5, cfg.Search.Limit)
	// Unset keys keep their defaults
	assert.Equal(t, "iphone", cfg.Search.Query)
	assert.True(t, cfg.API.SendAccessToken)
	assert.True(t, cfg.HasAuthProvider())
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: http://from-file\n"), 0644))

	t.Setenv("MARKETLY_API_BASE_URL", "http://from-env:8000")
	t.Setenv("MARKETLY_SEARCH_LIMIT", "7")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://from-env:8000", cfg.API.BaseURL)
	assert.Equal(t, 7, cfg.Search.Limit)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestNormalize_BlankBaseURLFallsBackToLoopback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.BaseURL = "   "
	cfg.Normalize()

	assert.Equal(t, DefaultAPIBaseURL, cfg.API.BaseURL)
}

func TestNormalize_ExpandsHomeInFilePaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := DefaultConfig()
	cfg.Session.File = "~/marketly/session.db"
	cfg.Logging.File = "~/marketly/marketly.log"
	cfg.Normalize()

	assert.Equal(t, filepath.Join(home, "marketly", "session.db"), cfg.Session.File)
	assert.Equal(t, filepath.Join(home, "marketly", "marketly.log"), cfg.Logging.File)
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"~", home},
		{"~/a/b.db", filepath.Join(home, "a", "b.db")},
		{"/var/lib/session.db", "/var/lib/session.db"},
		{"relative/session.db", "relative/session.db"},
		{"~other/session.db", "~other/session.db"},
	}
	for _, tt := range tests {
		got, err := ExpandHome(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLoadConfig_ExpandsSessionFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  file: \"~/.marketly/session.db\"\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".marketly", "session.db"), cfg.Session.File)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.API.BaseURL = "http://saved:1234"
	cfg.Search.Limit = 33

	path, err := SaveConfig(cfg, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), path)

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://saved:1234", loaded.API.BaseURL)
	assert.Equal(t, 33, loaded.Search.Limit)
}
