package connect

import (
	"context"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/melodeck/internal/api/playerv1"
	"github.com/osa030/melodeck/internal/app/notification"
	"github.com/osa030/melodeck/internal/app/playback"
	"github.com/osa030/melodeck/internal/app/session"
	"github.com/osa030/melodeck/internal/app/upload"
	"github.com/osa030/melodeck/internal/domain/song"
	"github.com/osa030/melodeck/internal/infra/catalog"
)

// uploadMessages are shown to the user for rejected uploads.
var uploadMessages = map[string]string{
	upload.CodeUnsupportedFormat: "Please select an audio file (mp3, wav, flac, aac, m4a)",
	upload.CodeFileTooLarge:      "File is too large",
	upload.CodeInvalidFile:       "File is empty or not a valid audio file",
	"success":                    "Uploaded",
}

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	session *session.Manager
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(session *session.Manager) *PlayerService {
	return &PlayerService{session: session}
}

// Ensure PlayerService implements the interface.
var _ playerv1.PlayerServiceHandler = (*PlayerService)(nil)

// GetState returns the playback state.
func (s *PlayerService) GetState(
	ctx context.Context,
	req *connect.Request[playerv1.Empty],
) (*connect.Response[playerv1.StateResponse], error) {
	return s.stateResponse(), nil
}

// ListSongs returns the catalog.
func (s *PlayerService) ListSongs(
	ctx context.Context,
	req *connect.Request[playerv1.ListSongsRequest],
) (*connect.Response[playerv1.ListSongsResponse], error) {
	songs := s.session.CachedSongs()
	if req.Msg.Refresh || songs == nil {
		var err error
		songs, err = s.session.Songs(ctx)
		if err != nil {
			return nil, toConnectError(err)
		}
	}
	return connect.NewResponse(&playerv1.ListSongsResponse{Songs: toSongs(songs)}), nil
}

// PlaySong loads a song by ID.
func (s *PlayerService) PlaySong(
	ctx context.Context,
	req *connect.Request[playerv1.PlaySongRequest],
) (*connect.Response[playerv1.StateResponse], error) {
	if req.Msg.SongID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("song id is required"))
	}
	if err := s.session.PlaySongByID(ctx, req.Msg.SongID, req.Msg.PlaylistIDs); err != nil {
		return nil, toConnectError(err)
	}
	return s.stateResponse(), nil
}

// TogglePlay plays or pauses. A refused play is reported in the response,
// not as an RPC error.
func (s *PlayerService) TogglePlay(
	ctx context.Context,
	req *connect.Request[playerv1.Empty],
) (*connect.Response[playerv1.TogglePlayResponse], error) {
	res := &playerv1.TogglePlayResponse{}
	if err := s.session.TogglePlay(ctx); err != nil {
		switch {
		case errors.Is(err, playback.ErrPlaybackRejected):
			res.Rejected = true
			res.Message = err.Error()
		case errors.Is(err, playback.ErrPlaybackSuperseded):
			res.Message = "another song was loaded before playback started"
		default:
			return nil, toConnectError(err)
		}
	}
	res.State = toState(s.session.State())
	return connect.NewResponse(res), nil
}

// PlayNext loads the next song.
func (s *PlayerService) PlayNext(
	ctx context.Context,
	req *connect.Request[playerv1.Empty],
) (*connect.Response[playerv1.StateResponse], error) {
	s.session.PlayNext()
	return s.stateResponse(), nil
}

// PlayPrevious loads the previous song.
func (s *PlayerService) PlayPrevious(
	ctx context.Context,
	req *connect.Request[playerv1.Empty],
) (*connect.Response[playerv1.StateResponse], error) {
	s.session.PlayPrevious()
	return s.stateResponse(), nil
}

// SeekTo moves the playback position.
func (s *PlayerService) SeekTo(
	ctx context.Context,
	req *connect.Request[playerv1.SeekToRequest],
) (*connect.Response[playerv1.StateResponse], error) {
	if req.Msg.PositionMs < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("position must not be negative"))
	}
	s.session.SeekTo(time.Duration(req.Msg.PositionMs) * time.Millisecond)
	return s.stateResponse(), nil
}

// SetVolume sets the volume, clamped to [0, 1].
func (s *PlayerService) SetVolume(
	ctx context.Context,
	req *connect.Request[playerv1.SetVolumeRequest],
) (*connect.Response[playerv1.StateResponse], error) {
	s.session.SetVolume(clampVolume(req.Msg.Volume))
	return s.stateResponse(), nil
}

// UploadSong validates and uploads an audio file.
func (s *PlayerService) UploadSong(
	ctx context.Context,
	req *connect.Request[playerv1.UploadSongRequest],
) (*connect.Response[playerv1.UploadSongResponse], error) {
	uploaded, err := s.session.Upload(ctx, req.Msg.FileName, req.Msg.Data)
	if err != nil {
		var code string
		switch {
		case errors.Is(err, upload.ErrRejected):
			code = rejectionCode(err)
		case errors.Is(err, catalog.ErrFileTooLarge):
			code = upload.CodeFileTooLarge
		default:
			return nil, toConnectError(err)
		}
		return connect.NewResponse(&playerv1.UploadSongResponse{
			Success: false,
			Code:    code,
			Message: uploadMessages[code],
		}), nil
	}

	out := toSong(uploaded)
	return connect.NewResponse(&playerv1.UploadSongResponse{
		Success: true,
		Message: uploadMessages["success"],
		Song:    &out,
	}), nil
}

// DeleteSong deletes a song from the catalog.
func (s *PlayerService) DeleteSong(
	ctx context.Context,
	req *connect.Request[playerv1.DeleteSongRequest],
) (*connect.Response[playerv1.Empty], error) {
	if err := s.session.DeleteSong(ctx, req.Msg.SongID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&playerv1.Empty{}), nil
}

// ListPlaylists returns catalog playlists.
func (s *PlayerService) ListPlaylists(
	ctx context.Context,
	req *connect.Request[playerv1.Empty],
) (*connect.Response[playerv1.ListPlaylistsResponse], error) {
	items, err := s.session.Playlists(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	out := make([]playerv1.Playlist, 0, len(items))
	for _, p := range items {
		out = append(out, toPlaylist(p))
	}
	return connect.NewResponse(&playerv1.ListPlaylistsResponse{Playlists: out}), nil
}

// CreatePlaylist creates a catalog playlist.
func (s *PlayerService) CreatePlaylist(
	ctx context.Context,
	req *connect.Request[playerv1.CreatePlaylistRequest],
) (*connect.Response[playerv1.Playlist], error) {
	if req.Msg.Name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("playlist name is required"))
	}
	p, err := s.session.CreatePlaylist(ctx, req.Msg.Name, req.Msg.Description)
	if err != nil {
		return nil, toConnectError(err)
	}
	out := toPlaylist(p)
	return connect.NewResponse(&out), nil
}

// AddToPlaylist adds a song to a catalog playlist.
func (s *PlayerService) AddToPlaylist(
	ctx context.Context,
	req *connect.Request[playerv1.PlaylistSongRequest],
) (*connect.Response[playerv1.Empty], error) {
	if err := s.session.AddToPlaylist(ctx, req.Msg.PlaylistID, req.Msg.SongID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&playerv1.Empty{}), nil
}

// RemoveFromPlaylist removes a song from a catalog playlist.
func (s *PlayerService) RemoveFromPlaylist(
	ctx context.Context,
	req *connect.Request[playerv1.PlaylistSongRequest],
) (*connect.Response[playerv1.Empty], error) {
	if err := s.session.RemoveFromPlaylist(ctx, req.Msg.PlaylistID, req.Msg.SongID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&playerv1.Empty{}), nil
}

// ImportSpotifyPlaylist imports a Spotify playlist and loads its first song.
func (s *PlayerService) ImportSpotifyPlaylist(
	ctx context.Context,
	req *connect.Request[playerv1.ImportSpotifyPlaylistRequest],
) (*connect.Response[playerv1.ImportSpotifyPlaylistResponse], error) {
	if req.Msg.URL == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("playlist url is required"))
	}
	p, err := s.session.ImportSpotifyPlaylist(ctx, req.Msg.URL)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&playerv1.ImportSpotifyPlaylistResponse{
		PlaylistID: p.ID,
		Name:       p.Name,
		SongCount:  int32(p.Len()),
		State:      toState(s.session.State()),
	}), nil
}

// Subscribe streams the current state followed by every playback change.
func (s *PlayerService) Subscribe(
	ctx context.Context,
	req *connect.Request[playerv1.Empty],
	stream *connect.ServerStream[playerv1.Notification],
) error {
	notifManager := s.session.GetNotificationManager()

	// Hold the adapter until the snapshot is out so broadcasts queue behind it.
	adapter := &notificationStreamAdapter{stream: stream}
	adapter.mu.Lock()
	subscriptionID := notifManager.Subscribe(adapter)
	defer notifManager.Unsubscribe(subscriptionID)

	initial := &notification.Notification{
		SequenceNo: notifManager.NextSequenceNo(),
		Kind:       notification.KindSnapshot,
		State:      s.session.State(),
	}
	err := adapter.sendLocked(initial)
	adapter.mu.Unlock()
	if err != nil {
		return err
	}
	zlog.Debug().Msgf("subscriber %s attached", subscriptionID)

	select {
	case <-ctx.Done():
	case <-s.session.Done():
	}
	return nil
}

func (s *PlayerService) stateResponse() *connect.Response[playerv1.StateResponse] {
	return connect.NewResponse(&playerv1.StateResponse{State: toState(s.session.State())})
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
// Sends are serialized since Broadcast and Send may run concurrently.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[playerv1.Notification]
}

func (a *notificationStreamAdapter) Send(n *notification.Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sendLocked(n)
}

func (a *notificationStreamAdapter) sendLocked(n *notification.Notification) error {
	return a.stream.Send(&playerv1.Notification{
		SequenceNo: n.SequenceNo,
		Kind:       n.Kind,
		State:      toState(n.State),
		Error:      n.Error,
	})
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// rejectionCode extracts the filter code from an upload rejection.
func rejectionCode(err error) string {
	var rej *upload.RejectionError
	if errors.As(err, &rej) {
		return rej.Code
	}
	return upload.CodeInvalidFile
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, session.ErrSongNotFound), errors.Is(err, catalog.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, catalog.ErrBackendUnavailable):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, session.ErrImportDisabled), errors.Is(err, session.ErrEmptyPlaylist):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, session.ErrSessionClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		var apiErr *catalog.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
			return connect.NewError(connect.CodeInvalidArgument, err)
		}
		return connect.NewError(connect.CodeInternal, err)
	}
}

func toState(st playback.State) *playerv1.PlayerState {
	out := &playerv1.PlayerState{
		IsPlaying:     st.IsPlaying,
		CurrentTimeMs: st.CurrentTime.Milliseconds(),
		DurationMs:    st.Duration.Milliseconds(),
		Volume:        st.Volume,
		Playlist:      toSongs(st.Playlist),
		CurrentIndex:  int32(st.CurrentIndex),
	}
	if st.CurrentSong != nil {
		cur := toSong(*st.CurrentSong)
		out.CurrentSong = &cur
	}
	return out
}

func toSongs(songs []song.Song) []playerv1.Song {
	out := make([]playerv1.Song, 0, len(songs))
	for _, s := range songs {
		out = append(out, toSong(s))
	}
	return out
}

func toSong(s song.Song) playerv1.Song {
	return playerv1.Song{
		ID:         s.ID,
		Title:      s.Title,
		Artist:     s.Artist,
		Album:      s.Album,
		DurationMs: s.Duration.Milliseconds(),
		MediaURL:   s.MediaURL,
		CoverURL:   s.CoverURL,
	}
}

func toPlaylist(p catalog.PlaylistInfo) playerv1.Playlist {
	return playerv1.Playlist{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		SongCount:   int32(p.SongCount),
		CreatedAt:   p.CreatedAt,
	}
}
