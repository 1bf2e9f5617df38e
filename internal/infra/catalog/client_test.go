package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/api", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c, srv
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "/api"})
	assert.Error(t, err)

	c, err := New(Config{BaseURL: "http://localhost:5000/api/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/api", c.baseURL.String())
}

func TestClient_ListSongs(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/songs", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"id": 2, "title": "Second", "artist": "B", "album": null, "duration": 181.5,
			 "file_url": "/api/files/second.mp3", "cover_url": null, "created_at": "2024-01-02 10:00:00"},
			{"id": 1, "title": "First", "artist": "A", "album": "LP", "duration": 60,
			 "file_url": "https://cdn.example.com/first.mp3", "cover_url": "https://cdn.example.com/first.jpg",
			 "created_at": "2024-01-01 10:00:00"}
		]`)
	})

	songs, err := c.ListSongs(context.Background())
	require.NoError(t, err)
	require.Len(t, songs, 2)

	assert.Equal(t, "2", songs[0].ID)
	assert.Equal(t, "Second", songs[0].Title)
	assert.Empty(t, songs[0].Album)
	assert.Equal(t, 181500*time.Millisecond, songs[0].Duration)
	assert.Equal(t, srv.URL+"/api/files/second.mp3", songs[0].MediaURL)
	assert.False(t, songs[0].HasCover())

	assert.Equal(t, "https://cdn.example.com/first.mp3", songs[1].MediaURL)
	assert.Equal(t, "https://cdn.example.com/first.jpg", songs[1].CoverURL)
}

func TestClient_GetSong(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/songs/7" {
			fmt.Fprint(w, `{"id": 7, "title": "Seven", "file_url": "/api/files/7.mp3"}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error": "Song not found"}`)
	})

	s, err := c.GetSong(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "Seven", s.Title)

	_, err = c.GetSong(context.Background(), "8")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Song not found", apiErr.Message)
}

func TestClient_UploadSong(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/songs/upload", r.URL.Path)

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "track.mp3", hdr.Filename)
		assert.Equal(t, "ID3 audio bytes", string(data))

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 12, "message": "Song uploaded successfully",
			"song": {"id": 12, "title": "track", "artist": "Unknown Artist", "album": "Unknown Album",
			"duration": 200, "file_url": "/api/files/abc_track.mp3", "cover_url": null}}`)
	})

	s, err := c.UploadSong(context.Background(), "/home/me/music/track.mp3", strings.NewReader("ID3 audio bytes"))
	require.NoError(t, err)
	assert.Equal(t, "12", s.ID)
	assert.Equal(t, 200*time.Second, s.Duration)
	assert.True(t, strings.HasSuffix(s.MediaURL, "/api/files/abc_track.mp3"))
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		message string
	}{
		{
			name:    "file too large",
			status:  http.StatusRequestEntityTooLarge,
			body:    "",
			wantErr: ErrFileTooLarge,
			message: "Request Entity Too Large",
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `{"error": "Upload failed: disk full"}`,
			wantErr: ErrServer,
			message: "Upload failed: disk full",
		},
		{
			name:    "bad request keeps backend message",
			status:  http.StatusBadRequest,
			body:    `{"error": "File type not allowed"}`,
			message: "File type not allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := c.UploadSong(context.Background(), "a.mp3", strings.NewReader("x"))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestClient_BackendUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: addr + "/api", Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.HealthCheck(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBackendUnavailable))
}

func TestClient_Playlists(t *testing.T) {
	var added map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/playlists":
			fmt.Fprint(w, `[{"id": 3, "name": "Road", "description": "", "created_at": "2024-01-01", "song_count": 4}]`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/playlists":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Chill", body["name"])
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"id": 4, "name": %q, "description": %q, "message": "Playlist created successfully"}`, body["name"], body["description"])
		case r.Method == http.MethodPost && r.URL.Path == "/api/playlists/4/songs":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&added))
			fmt.Fprint(w, `{"message": "Song added to playlist successfully"}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/playlists/4/songs/9":
			fmt.Fprint(w, `{"message": "Song removed from playlist successfully"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error": "Song not found in playlist"}`)
		}
	})
	ctx := context.Background()

	lists, err := c.ListPlaylists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, PlaylistInfo{ID: "3", Name: "Road", SongCount: 4, CreatedAt: "2024-01-01"}, lists[0])

	p, err := c.CreatePlaylist(ctx, "Chill", "evening")
	require.NoError(t, err)
	assert.Equal(t, "4", p.ID)
	assert.Equal(t, "evening", p.Description)

	require.NoError(t, c.AddToPlaylist(ctx, "4", "9"))
	assert.Equal(t, float64(9), added["song_id"])

	require.NoError(t, c.RemoveFromPlaylist(ctx, "4", "9"))
	err = c.RemoveFromPlaylist(ctx, "4", "10")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Error(t, c.AddToPlaylist(ctx, "4", "not-a-number"))
	_, err = c.CreatePlaylist(ctx, "", "")
	assert.Error(t, err)
}

func TestClient_DeleteAndHealth(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/songs/5":
			assert.Equal(t, http.MethodDelete, r.Method)
			fmt.Fprint(w, `{"message": "Song deleted successfully"}`)
		case "/api/health":
			fmt.Fprint(w, `{"status": "healthy", "message": "Music Player API is running"}`)
		}
	})

	require.NoError(t, c.DeleteSong(context.Background(), "5"))

	h, err := c.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
}

func TestClient_ResolveURL(t *testing.T) {
	c, err := New(Config{BaseURL: "http://music.local:5000/api"})
	require.NoError(t, err)

	assert.Equal(t, "", c.ResolveURL(""))
	assert.Equal(t, "http://music.local:5000/api/files/a.mp3", c.ResolveURL("/api/files/a.mp3"))
	assert.Equal(t, "https://cdn.example.com/a.mp3", c.ResolveURL("https://cdn.example.com/a.mp3"))
}
