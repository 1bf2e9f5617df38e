// Package catalog provides a client for the song catalog REST backend.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/melodeck/internal/domain/song"
)

// Errors
var (
	ErrBackendUnavailable = errors.New("catalog backend is not running")
	ErrFileTooLarge       = errors.New("file too large")
	ErrNotFound           = errors.New("not found")
	ErrServer             = errors.New("catalog server error")
)

// maxResponseBytes bounds JSON response bodies.
const maxResponseBytes = 10 << 20

// Config represents catalog client configuration.
type Config struct {
	BaseURL       string        // e.g. http://localhost:5000/api
	Timeout       time.Duration // Timeout for regular requests
	UploadTimeout time.Duration // Timeout for uploads
}

// Client is a catalog backend client.
type Client struct {
	baseURL      *url.URL
	httpClient   *http.Client
	uploadClient *http.Client
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return "catalog: " + strconv.Itoa(e.StatusCode) + " " + e.Message
}

// PlaylistInfo is a playlist summary as listed by the backend.
type PlaylistInfo struct {
	ID          string
	Name        string
	Description string
	SongCount   int
	CreatedAt   string
}

// Health is the backend health status.
type Health struct {
	Status  string
	Message string
}

type songJSON struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Artist    string  `json:"artist"`
	Album     string  `json:"album"`
	Duration  float64 `json:"duration"`
	FileURL   string  `json:"file_url"`
	CoverURL  string  `json:"cover_url"`
	CreatedAt string  `json:"created_at"`
}

type playlistJSON struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	SongCount   int    `json:"song_count"`
}

type uploadResponse struct {
	ID      int64    `json:"id"`
	Message string   `json:"message"`
	Song    songJSON `json:"song"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("catalog base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid catalog base url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Newf("catalog base url must be absolute: %s", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 60 * time.Second
	}

	return &Client{
		baseURL:      base,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		uploadClient: &http.Client{Timeout: cfg.UploadTimeout},
	}, nil
}

// ListSongs returns all songs, newest first.
func (c *Client) ListSongs(ctx context.Context) ([]song.Song, error) {
	var items []songJSON
	if err := c.doJSON(ctx, http.MethodGet, "/songs", nil, &items); err != nil {
		return nil, errors.Wrap(err, "failed to list songs")
	}

	songs := make([]song.Song, 0, len(items))
	for _, item := range items {
		songs = append(songs, c.convertSong(item))
	}
	return songs, nil
}

// GetSong returns a single song.
func (c *Client) GetSong(ctx context.Context, id string) (song.Song, error) {
	var item songJSON
	if err := c.doJSON(ctx, http.MethodGet, "/songs/"+url.PathEscape(id), nil, &item); err != nil {
		return song.Song{}, errors.Wrapf(err, "failed to get song %s", id)
	}
	return c.convertSong(item), nil
}

// UploadSong uploads an audio file as multipart field "file".
func (c *Client) UploadSong(ctx context.Context, filename string, r io.Reader) (song.Song, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", path.Base(filename))
	if err != nil {
		return song.Song{}, errors.Wrap(err, "failed to create form file")
	}
	if _, err := io.Copy(part, r); err != nil {
		return song.Song{}, errors.Wrap(err, "failed to read upload")
	}
	if err := mw.Close(); err != nil {
		return song.Song{}, errors.Wrap(err, "failed to finish form")
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/songs/upload", &buf)
	if err != nil {
		return song.Song{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp uploadResponse
	if err := c.do(c.uploadClient, req, &resp); err != nil {
		return song.Song{}, errors.Wrapf(err, "failed to upload %s", filename)
	}
	if resp.Song.ID == 0 {
		resp.Song.ID = resp.ID
	}
	return c.convertSong(resp.Song), nil
}

// DeleteSong deletes a song and its file.
func (c *Client) DeleteSong(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/songs/"+url.PathEscape(id), nil, nil); err != nil {
		return errors.Wrapf(err, "failed to delete song %s", id)
	}
	return nil
}

// ListPlaylists returns playlist summaries.
func (c *Client) ListPlaylists(ctx context.Context) ([]PlaylistInfo, error) {
	var items []playlistJSON
	if err := c.doJSON(ctx, http.MethodGet, "/playlists", nil, &items); err != nil {
		return nil, errors.Wrap(err, "failed to list playlists")
	}

	out := make([]PlaylistInfo, 0, len(items))
	for _, item := range items {
		out = append(out, convertPlaylist(item))
	}
	return out, nil
}

// CreatePlaylist creates an empty playlist.
func (c *Client) CreatePlaylist(ctx context.Context, name, description string) (PlaylistInfo, error) {
	if name == "" {
		return PlaylistInfo{}, errors.New("playlist name is required")
	}
	body := map[string]string{"name": name, "description": description}

	var item playlistJSON
	if err := c.doJSON(ctx, http.MethodPost, "/playlists", body, &item); err != nil {
		return PlaylistInfo{}, errors.Wrapf(err, "failed to create playlist %q", name)
	}
	if item.Name == "" {
		item.Name = name
		item.Description = description
	}
	return convertPlaylist(item), nil
}

// AddToPlaylist appends a song to a playlist.
func (c *Client) AddToPlaylist(ctx context.Context, playlistID, songID string) error {
	sid, err := strconv.ParseInt(songID, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid song id %q", songID)
	}
	body := map[string]int64{"song_id": sid}
	p := "/playlists/" + url.PathEscape(playlistID) + "/songs"
	if err := c.doJSON(ctx, http.MethodPost, p, body, nil); err != nil {
		return errors.Wrapf(err, "failed to add song %s to playlist %s", songID, playlistID)
	}
	return nil
}

// RemoveFromPlaylist removes a song from a playlist.
func (c *Client) RemoveFromPlaylist(ctx context.Context, playlistID, songID string) error {
	p := "/playlists/" + url.PathEscape(playlistID) + "/songs/" + url.PathEscape(songID)
	if err := c.doJSON(ctx, http.MethodDelete, p, nil, nil); err != nil {
		return errors.Wrapf(err, "failed to remove song %s from playlist %s", songID, playlistID)
	}
	return nil
}

// HealthCheck reports the backend status.
func (c *Client) HealthCheck(ctx context.Context) (Health, error) {
	var h struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return Health{}, errors.Wrap(err, "health check failed")
	}
	return Health{Status: h.Status, Message: h.Message}, nil
}

// ResolveURL turns a backend-relative URL such as /api/files/a.mp3 into an
// absolute one. Absolute URLs and empty strings are returned unchanged.
func (c *Client) ResolveURL(raw string) string {
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil || ref.IsAbs() {
		return raw
	}
	return c.baseURL.ResolveReference(ref).String()
}

func (c *Client) convertSong(item songJSON) song.Song {
	return song.Song{
		ID:       strconv.FormatInt(item.ID, 10),
		Title:    item.Title,
		Artist:   item.Artist,
		Album:    item.Album,
		Duration: time.Duration(item.Duration * float64(time.Second)),
		MediaURL: c.ResolveURL(item.FileURL),
		CoverURL: c.ResolveURL(item.CoverURL),
	}
}

func convertPlaylist(item playlistJSON) PlaylistInfo {
	return PlaylistInfo{
		ID:          strconv.FormatInt(item.ID, 10),
		Name:        item.Name,
		Description: item.Description,
		SongCount:   item.SongCount,
		CreatedAt:   item.CreatedAt,
	}
}

func (c *Client) newRequest(ctx context.Context, method, p string, body io.Reader) (*http.Request, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + p
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, p string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, p, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(c.httpClient, req, out)
}

func (c *Client) do(client *http.Client, req *http.Request, out any) error {
	zlog.Debug().Msgf("catalog: %s %s", req.Method, req.URL.Path)

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return errors.Wrap(ctxErr, "request cancelled")
		}
		return errors.Mark(errors.Wrap(err, "failed to send request"), ErrBackendUnavailable)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}

func statusError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status, Message: http.StatusText(status)}
	var er errorResponse
	if json.Unmarshal(body, &er) == nil && er.Error != "" {
		apiErr.Message = er.Error
	}

	switch {
	case status == http.StatusRequestEntityTooLarge:
		return errors.Mark(apiErr, ErrFileTooLarge)
	case status == http.StatusNotFound:
		return errors.Mark(apiErr, ErrNotFound)
	case status >= 500:
		return errors.Mark(apiErr, ErrServer)
	default:
		return apiErr
	}
}
