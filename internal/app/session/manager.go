// Package session provides the library session: the song catalog, the
// playback controller and everything that feeds them.
package session

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/melodeck/internal/app/notification"
	"github.com/osa030/melodeck/internal/app/playback"
	"github.com/osa030/melodeck/internal/app/upload"
	"github.com/osa030/melodeck/internal/domain/media"
	"github.com/osa030/melodeck/internal/domain/playlist"
	"github.com/osa030/melodeck/internal/domain/song"
	"github.com/osa030/melodeck/internal/infra/catalog"
	"github.com/osa030/melodeck/internal/infra/config"
)

var (
	ErrSessionClosed  = errors.New("session is closed")
	ErrSongNotFound   = errors.New("song not found")
	ErrImportDisabled = errors.New("spotify import is not configured")
	ErrEmptyPlaylist  = errors.New("playlist has no playable songs")
)

// Importer fetches an external playlist as playable songs.
type Importer interface {
	GetPlaylistSongs(ctx context.Context, playlistURL string) (*playlist.Playlist, error)
}

// Manager manages the player session.
type Manager struct {
	mu sync.RWMutex

	config *config.Config

	catalog      *catalog.Client
	playback     *playback.Controller
	uploads      *upload.Chain
	notification *notification.Manager
	importer     Importer

	// songs is the last catalog listing, newest first.
	songs []song.Song
	// imported holds songs from imported playlists by ID.
	imported map[string]song.Song

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	started   bool
	closeOnce sync.Once
}

// NewManager creates a new session manager. importer may be nil.
func NewManager(
	cfg *config.Config,
	catalogClient *catalog.Client,
	res media.Resource,
	importer Importer,
) (*Manager, error) {
	uploads, err := upload.NewChainFromConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create upload filter chain")
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		config:  cfg,
		catalog: catalogClient,
		playback: playback.NewController(res, playback.Config{
			InitialVolume:   cfg.Playback.InitialVolume,
			ContinueOnEnded: cfg.Playback.ShouldContinueOnEnded(),
			EventBufferSize: playback.DefaultConfig().EventBufferSize,
		}),
		uploads:      uploads,
		notification: notification.NewManager(),
		importer:     importer,
		imported:     make(map[string]song.Song),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	return m, nil
}

// Start starts event forwarding, checks the backend and preloads the
// catalog when configured. A backend error is returned but the session
// stays usable, since the backend may come up later.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.ctx.Err() != nil {
		m.mu.Unlock()
		return ErrSessionClosed
	}
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	go m.playbackLoop()

	health, err := m.catalog.HealthCheck(ctx)
	if err != nil {
		return errors.Wrap(err, "catalog is not reachable")
	}
	zlog.Info().Msgf("catalog: status=%s %s", health.Status, health.Message)

	if m.config.Playback.ShouldAutoloadCatalog() {
		songs, err := m.Songs(ctx)
		if err != nil {
			return err
		}
		zlog.Info().Msgf("catalog: %d songs", len(songs))
	}
	return nil
}

// Done is closed when the session has been closed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Songs fetches the catalog and caches it.
func (m *Manager) Songs(ctx context.Context) ([]song.Song, error) {
	songs, err := m.catalog.ListSongs(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.songs = songs
	m.mu.Unlock()
	return copySongs(songs), nil
}

// CachedSongs returns the last catalog listing without a request.
func (m *Manager) CachedSongs() []song.Song {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySongs(m.songs)
}

// PlaySongByID loads a song into the controller. The playlist context is
// the given song IDs, or the whole catalog when none are given.
func (m *Manager) PlaySongByID(ctx context.Context, id string, playlistIDs []string) error {
	if err := m.ensureSongs(ctx, id); err != nil {
		return err
	}

	m.mu.RLock()
	target, ok := m.lookupLocked(id)
	var songs []song.Song
	if ok {
		if len(playlistIDs) == 0 {
			songs = copySongs(m.songs)
		} else {
			songs = make([]song.Song, 0, len(playlistIDs))
			for _, pid := range playlistIDs {
				s, found := m.lookupLocked(pid)
				if !found {
					m.mu.RUnlock()
					return errors.Wrapf(ErrSongNotFound, "playlist song %s", pid)
				}
				songs = append(songs, s)
			}
		}
	}
	m.mu.RUnlock()

	if !ok {
		return errors.Wrapf(ErrSongNotFound, "song %s", id)
	}

	zlog.Info().Msgf("play song: %s (%d in playlist)", target.DisplayName(), len(songs))
	m.playback.PlaySong(target, songs)
	return nil
}

// ensureSongs refreshes the catalog when id is unknown.
func (m *Manager) ensureSongs(ctx context.Context, id string) error {
	m.mu.RLock()
	_, ok := m.lookupLocked(id)
	m.mu.RUnlock()
	if ok {
		return nil
	}
	if _, err := m.Songs(ctx); err != nil {
		return errors.Wrap(err, "failed to refresh catalog")
	}
	return nil
}

func (m *Manager) lookupLocked(id string) (song.Song, bool) {
	if i := playlist.IndexOf(m.songs, id); i >= 0 {
		return m.songs[i], true
	}
	s, ok := m.imported[id]
	return s, ok
}

// Upload validates a file, uploads it and refreshes the catalog.
func (m *Manager) Upload(ctx context.Context, fileName string, data []byte) (song.Song, error) {
	req := upload.Request{FileName: fileName, Data: data}
	if err := m.uploads.Execute(ctx, req).Err(); err != nil {
		return song.Song{}, err
	}

	s, err := m.catalog.UploadSong(ctx, fileName, bytes.NewReader(data))
	if err != nil {
		return song.Song{}, err
	}
	zlog.Info().Msgf("uploaded: %s -> %s", fileName, s.ID)

	if _, err := m.Songs(ctx); err != nil {
		zlog.Warn().Msgf("catalog refresh after upload failed: %v", err)
	}
	return s, nil
}

// DeleteSong deletes a song from the catalog. A song that is loaded keeps
// playing until the next load.
func (m *Manager) DeleteSong(ctx context.Context, id string) error {
	if err := m.catalog.DeleteSong(ctx, id); err != nil {
		return err
	}

	m.mu.Lock()
	if i := playlist.IndexOf(m.songs, id); i >= 0 {
		m.songs = append(m.songs[:i:i], m.songs[i+1:]...)
	}
	m.mu.Unlock()
	zlog.Info().Msgf("deleted song %s", id)
	return nil
}

// Playlists returns catalog playlists.
func (m *Manager) Playlists(ctx context.Context) ([]catalog.PlaylistInfo, error) {
	return m.catalog.ListPlaylists(ctx)
}

// CreatePlaylist creates a catalog playlist.
func (m *Manager) CreatePlaylist(ctx context.Context, name, description string) (catalog.PlaylistInfo, error) {
	return m.catalog.CreatePlaylist(ctx, name, description)
}

// AddToPlaylist adds a catalog song to a catalog playlist.
func (m *Manager) AddToPlaylist(ctx context.Context, playlistID, songID string) error {
	return m.catalog.AddToPlaylist(ctx, playlistID, songID)
}

// RemoveFromPlaylist removes a song from a catalog playlist.
func (m *Manager) RemoveFromPlaylist(ctx context.Context, playlistID, songID string) error {
	return m.catalog.RemoveFromPlaylist(ctx, playlistID, songID)
}

// ImportSpotifyPlaylist fetches a Spotify playlist and loads its first song
// with the imported songs as the playlist. Playback is not started.
func (m *Manager) ImportSpotifyPlaylist(ctx context.Context, playlistURL string) (*playlist.Playlist, error) {
	if m.importer == nil {
		return nil, ErrImportDisabled
	}

	p, err := m.importer.GetPlaylistSongs(ctx, playlistURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to import playlist")
	}
	if p.Len() == 0 {
		return nil, errors.Wrapf(ErrEmptyPlaylist, "playlist %q", p.Name)
	}

	m.mu.Lock()
	for _, s := range p.Songs {
		m.imported[s.ID] = s
	}
	m.mu.Unlock()

	zlog.Info().Msgf("imported playlist %q: %d songs, %s", p.Name, p.Len(), p.TotalDuration().Round(time.Second))
	m.playback.PlaySong(p.Songs[0], p.Songs)
	return p, nil
}

// State returns the current playback state.
func (m *Manager) State() playback.State {
	return m.playback.Snapshot()
}

// TogglePlay plays or pauses the loaded song.
func (m *Manager) TogglePlay(ctx context.Context) error {
	return m.playback.TogglePlay(ctx)
}

// PlayNext loads the next song in the playlist.
func (m *Manager) PlayNext() {
	m.playback.PlayNext()
}

// PlayPrevious loads the previous song in the playlist.
func (m *Manager) PlayPrevious() {
	m.playback.PlayPrevious()
}

// SeekTo moves the playback position.
func (m *Manager) SeekTo(pos time.Duration) {
	m.playback.SeekTo(pos)
}

// SetVolume sets the playback volume.
func (m *Manager) SetVolume(level float64) {
	m.playback.SetVolume(level)
}

// GetNotificationManager returns the notification manager.
func (m *Manager) GetNotificationManager() *notification.Manager {
	return m.notification
}

// playbackLoop forwards controller events to subscribers.
func (m *Manager) playbackLoop() {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("playback loop panicked: %v", r)
			zlog.Info().Msg("restarting playback loop")
			go m.playbackLoop()
		}
	}()

	events := m.playback.Events()
	for {
		select {
		case <-m.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			m.handlePlaybackEvent(event)
		}
	}
}

// handlePlaybackEvent handles playback events.
func (m *Manager) handlePlaybackEvent(event playback.Event) {
	switch event.Type {
	case playback.EventProgress:
		// Too frequent for info.
	case playback.EventPlaybackFailed:
		zlog.Warn().Msgf("playback failed: %v", event.Err)
	case playback.EventSongLoaded:
		if cur := event.State.CurrentSong; cur != nil {
			zlog.Info().Msgf("song loaded: %s [%d/%d]", cur.DisplayName(), event.State.CurrentIndex+1, len(event.State.Playlist))
		}
	default:
		zlog.Info().Msgf("playback event: type=%s playing=%t", event.Type, event.State.IsPlaying)
	}
	m.notification.Broadcast(notification.FromEvent(event))
}

// Close stops the session and releases the controller.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.cancel()
		m.playback.Close()
		m.notification.Close()
		close(m.done)
	})
}

func copySongs(songs []song.Song) []song.Song {
	if songs == nil {
		return nil
	}
	out := make([]song.Song, len(songs))
	copy(out, songs)
	return out
}
