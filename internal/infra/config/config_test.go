package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.Server.Addr)
	assert.Empty(t, cfg.Server.ControlToken)
	assert.Equal(t, "http://localhost:5000/api", cfg.Catalog.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Catalog.Timeout())
	assert.Equal(t, 60*time.Second, cfg.Catalog.UploadTimeout())
	assert.Equal(t, "speaker", cfg.Media.Type)
	assert.Equal(t, 1.0, cfg.Playback.InitialVolume)
	assert.True(t, cfg.Playback.ShouldContinueOnEnded())
	assert.True(t, cfg.Playback.ShouldAutoloadCatalog())
	assert.Equal(t, "US", cfg.Spotify.Market)
	assert.False(t, cfg.Spotify.Enabled())
}

func TestParse_Values(t *testing.T) {
	data := []byte(`
server:
  addr: ":9000"
  control_token: "secret"
catalog:
  base_url: "http://music.local:5000/api"
  timeout_sec: 5
media:
  type: silent
  settings:
    tick_ms: 100
playback:
  initial_volume: 0.4
  continue_on_ended: false
  autoload_catalog: false
upload:
  filters:
    size_limit_filter:
      enabled: true
      settings:
        max_mb: 10
    extension_filter:
      enabled: false
spotify:
  client_id: id
  client_secret: secret
  refresh_token: refresh
  market: JP
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "secret", cfg.Server.ControlToken)
	assert.Equal(t, 5*time.Second, cfg.Catalog.Timeout())
	assert.Equal(t, "silent", cfg.Media.Type)
	assert.Equal(t, 100, cfg.Media.Settings["tick_ms"])
	assert.Equal(t, 0.4, cfg.Playback.InitialVolume)
	assert.False(t, cfg.Playback.ShouldContinueOnEnded())
	assert.False(t, cfg.Playback.ShouldAutoloadCatalog())
	assert.True(t, cfg.IsFilterEnabled("size_limit_filter"))
	assert.False(t, cfg.IsFilterEnabled("extension_filter"))
	assert.True(t, cfg.IsFilterEnabled("metadata_filter"))
	assert.Equal(t, 10, cfg.FilterSettings("size_limit_filter")["max_mb"])
	assert.Nil(t, cfg.FilterSettings("metadata_filter"))
	assert.True(t, cfg.Spotify.Enabled())
	assert.Equal(t, "JP", cfg.Spotify.Market)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "unknown media type",
			yaml: "media:\n  type: vinyl\n",
		},
		{
			name: "volume out of range",
			yaml: "playback:\n  initial_volume: 1.5\n",
		},
		{
			name: "spotify without secret",
			yaml: "spotify:\n  client_id: id\n  refresh_token: r\n",
		},
		{
			name: "invalid market",
			yaml: "spotify:\n  market: USA\n",
		},
		{
			name: "catalog url not a url",
			yaml: "catalog:\n  base_url: not a url\n",
		},
		{
			name: "broken yaml",
			yaml: "server: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "player.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  control_token: from-file\n"), 0o600))

	t.Setenv("MELODECK_CONTROL_TOKEN", "from-env")
	t.Setenv("MELODECK_CATALOG_URL", "http://backend:5000/api")
	t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "env-secret")
	t.Setenv("SPOTIFY_REFRESH_TOKEN", "env-refresh")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Server.ControlToken)
	assert.Equal(t, "http://backend:5000/api", cfg.Catalog.BaseURL)
	assert.Equal(t, "env-id", cfg.Spotify.ClientID)
	assert.Equal(t, "env-secret", cfg.Spotify.ClientSecret)
	assert.Equal(t, "env-refresh", cfg.Spotify.RefreshToken)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
