package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zmb3/spotify/v2"
)

func TestExtractPlaylistID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Spotify URI format",
			input:    "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Spotify URL with query params",
			input:    "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc123",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "localized URL",
			input:    "https://open.spotify.com/intl-ja/playlist/abc123/",
			expected: "abc123",
		},
		{
			name:     "Plain playlist ID",
			input:    "  37i9dQZF1DXcBWIGoYBM5M ",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractPlaylistID(tt.input))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "api rate limit", err: spotify.Error{Status: 429, Message: "slow down"}, expected: true},
		{name: "api server error", err: spotify.Error{Status: 503, Message: "unavailable"}, expected: true},
		{name: "api not found", err: spotify.Error{Status: 404, Message: "missing"}, expected: false},
		{name: "rate limit text", err: errors.New("rate limit exceeded"), expected: true},
		{name: "server error 502", err: errors.New("502 Bad Gateway"), expected: true},
		{name: "client error 400", err: errors.New("400 Bad Request"), expected: false},
		{name: "generic error", err: errors.New("something went wrong"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryable(tt.err))
		})
	}
}

func trackJSON(id, name string, preview string) string {
	p := "null"
	if preview != "" {
		p = fmt.Sprintf("%q", preview)
	}
	return fmt.Sprintf(`{"track": {"type": "track", "id": %q, "name": %q, "duration_ms": 30000,
		"preview_url": %s, "artists": [{"name": "A1"}, {"name": "A2"}],
		"album": {"name": "Album", "images": [{"url": "https://i.scdn.co/%s.jpg"}]}}}`, id, name, p, id)
}

func TestClient_GetPlaylistSongs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/playlists/pl1/tracks"):
			assert.Equal(t, "JP", r.URL.Query().Get("market"))
			fmt.Fprintf(w, `{"items": [%s, %s], "total": 2, "limit": 100, "offset": 0}`,
				trackJSON("t1", "With Preview", "https://p.scdn.co/mp3-preview/t1"),
				trackJSON("t2", "No Preview", ""))
		case strings.HasSuffix(r.URL.Path, "/playlists/pl1"):
			fmt.Fprint(w, `{"id": "pl1", "name": "Mix", "description": "weekly"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error": {"status": 404, "message": "Not found."}}`)
		}
	}))
	defer srv.Close()

	c := newClient(srv.Client(), "JP", spotify.WithBaseURL(srv.URL+"/"))
	c.retryDelay = time.Millisecond

	p, err := c.GetPlaylistSongs(context.Background(), "https://open.spotify.com/playlist/pl1?si=x")
	require.NoError(t, err)

	assert.Equal(t, "spotify:pl1", p.ID)
	assert.Equal(t, "Mix", p.Name)
	assert.Equal(t, "weekly", p.Description)
	require.Len(t, p.Songs, 1)

	s := p.Songs[0]
	assert.Equal(t, "spotify:t1", s.ID)
	assert.Equal(t, "With Preview", s.Title)
	assert.Equal(t, "A1, A2", s.Artist)
	assert.Equal(t, "Album", s.Album)
	assert.Equal(t, 30*time.Second, s.Duration)
	assert.Equal(t, "https://p.scdn.co/mp3-preview/t1", s.MediaURL)
	assert.Equal(t, "https://i.scdn.co/t1.jpg", s.CoverURL)

	err = c.CheckPlaylistExists(context.Background(), "spotify:playlist:missing")
	assert.Error(t, err)
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{ClientID: "id"})
	assert.Error(t, err)

	c, err := New(context.Background(), Config{ClientID: "id", ClientSecret: "s", RefreshToken: "r"})
	require.NoError(t, err)
	assert.Equal(t, "US", c.market)
}
