package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{in: "debug", want: zerolog.DebugLevel},
		{in: "", want: zerolog.InfoLevel},
		{in: "INFO", want: zerolog.InfoLevel},
		{in: "warning", want: zerolog.WarnLevel},
		{in: "error", want: zerolog.ErrorLevel},
		{in: "loud", want: zerolog.InfoLevel, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInit_Console(t *testing.T) {
	var buf bytes.Buffer
	closer, err := Init(Options{Level: "warn", Console: &buf})
	require.NoError(t, err)
	defer closer.Close()

	zlog.Info().Msg("hidden")
	zlog.Warn().Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestInit_FileWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "player.log")
	closer, err := Init(Options{Level: "info", File: path})
	require.NoError(t, err)

	zlog.Info().Str("song", "s1").Msg("loaded")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	line := strings.TrimSpace(string(data))
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "loaded", entry["message"])
	assert.Equal(t, "s1", entry["song"])
	assert.Equal(t, "info", entry["level"])
}

func TestInit_BadLevel(t *testing.T) {
	closer, err := Init(Options{Level: "nope"})
	assert.Error(t, err)
	assert.NotNil(t, closer)
}

func TestShortCaller(t *testing.T) {
	assert.Equal(t, "playback/controller.go:12", shortCaller(0, "/src/internal/app/playback/controller.go", 12))
	assert.Equal(t, "main.go:3", shortCaller(0, "main.go", 3))
}
