package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/melodeck/internal/infra/config"
)

func TestNew_Silent(t *testing.T) {
	res, err := New(config.MediaConfig{
		Type:     "silent",
		Settings: map[string]any{"tick_ms": 50},
	})
	require.NoError(t, err)
	defer res.Close()

	s, ok := res.(*Silent)
	require.True(t, ok)
	assert.Equal(t, int64(50), s.tick.Milliseconds())
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MediaConfig
	}{
		{
			name: "unknown type",
			cfg:  config.MediaConfig{Type: "vinyl"},
		},
		{
			name: "tick out of range",
			cfg:  config.MediaConfig{Type: "silent", Settings: map[string]any{"tick_ms": 1}},
		},
		{
			name: "unknown setting",
			cfg:  config.MediaConfig{Type: "silent", Settings: map[string]any{"volume": 1}},
		},
		{
			name: "unsupported sample rate",
			cfg:  config.MediaConfig{Type: "speaker", Settings: map[string]any{"sample_rate": 12345}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestDecodeSettings_Defaults(t *testing.T) {
	var s SpeakerSettings
	require.NoError(t, decodeSettings(nil, &s))

	assert.Equal(t, 44100, s.SampleRate)
	assert.Equal(t, 100, s.BufferMs)
	assert.Equal(t, 250, s.TickMs)
	assert.Equal(t, 60, s.FetchTimeoutSec)
}
