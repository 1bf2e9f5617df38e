package playerv1

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// PlayerServiceName is the fully-qualified name of the PlayerService service.
const PlayerServiceName = "melodeck.v1.PlayerService"

// ControlTokenHeader carries the token for mutating procedures.
const ControlTokenHeader = "X-Control-Token"

// Procedure paths.
const (
	PlayerServiceGetStateProcedure              = "/melodeck.v1.PlayerService/GetState"
	PlayerServiceListSongsProcedure             = "/melodeck.v1.PlayerService/ListSongs"
	PlayerServicePlaySongProcedure              = "/melodeck.v1.PlayerService/PlaySong"
	PlayerServiceTogglePlayProcedure            = "/melodeck.v1.PlayerService/TogglePlay"
	PlayerServicePlayNextProcedure              = "/melodeck.v1.PlayerService/PlayNext"
	PlayerServicePlayPreviousProcedure          = "/melodeck.v1.PlayerService/PlayPrevious"
	PlayerServiceSeekToProcedure                = "/melodeck.v1.PlayerService/SeekTo"
	PlayerServiceSetVolumeProcedure             = "/melodeck.v1.PlayerService/SetVolume"
	PlayerServiceUploadSongProcedure            = "/melodeck.v1.PlayerService/UploadSong"
	PlayerServiceDeleteSongProcedure            = "/melodeck.v1.PlayerService/DeleteSong"
	PlayerServiceListPlaylistsProcedure         = "/melodeck.v1.PlayerService/ListPlaylists"
	PlayerServiceCreatePlaylistProcedure        = "/melodeck.v1.PlayerService/CreatePlaylist"
	PlayerServiceAddToPlaylistProcedure         = "/melodeck.v1.PlayerService/AddToPlaylist"
	PlayerServiceRemoveFromPlaylistProcedure    = "/melodeck.v1.PlayerService/RemoveFromPlaylist"
	PlayerServiceImportSpotifyPlaylistProcedure = "/melodeck.v1.PlayerService/ImportSpotifyPlaylist"
	PlayerServiceSubscribeProcedure             = "/melodeck.v1.PlayerService/Subscribe"
)

// readOnlyProcedures never require the control token.
var readOnlyProcedures = map[string]bool{
	PlayerServiceGetStateProcedure:      true,
	PlayerServiceListSongsProcedure:     true,
	PlayerServiceListPlaylistsProcedure: true,
	PlayerServiceSubscribeProcedure:     true,
}

// IsReadOnly reports whether a procedure leaves the player unchanged.
func IsReadOnly(procedure string) bool {
	return readOnlyProcedures[procedure]
}

// PlayerServiceHandler is implemented by the server.
type PlayerServiceHandler interface {
	GetState(context.Context, *connect.Request[Empty]) (*connect.Response[StateResponse], error)
	ListSongs(context.Context, *connect.Request[ListSongsRequest]) (*connect.Response[ListSongsResponse], error)
	PlaySong(context.Context, *connect.Request[PlaySongRequest]) (*connect.Response[StateResponse], error)
	TogglePlay(context.Context, *connect.Request[Empty]) (*connect.Response[TogglePlayResponse], error)
	PlayNext(context.Context, *connect.Request[Empty]) (*connect.Response[StateResponse], error)
	PlayPrevious(context.Context, *connect.Request[Empty]) (*connect.Response[StateResponse], error)
	SeekTo(context.Context, *connect.Request[SeekToRequest]) (*connect.Response[StateResponse], error)
	SetVolume(context.Context, *connect.Request[SetVolumeRequest]) (*connect.Response[StateResponse], error)
	UploadSong(context.Context, *connect.Request[UploadSongRequest]) (*connect.Response[UploadSongResponse], error)
	DeleteSong(context.Context, *connect.Request[DeleteSongRequest]) (*connect.Response[Empty], error)
	ListPlaylists(context.Context, *connect.Request[Empty]) (*connect.Response[ListPlaylistsResponse], error)
	CreatePlaylist(context.Context, *connect.Request[CreatePlaylistRequest]) (*connect.Response[Playlist], error)
	AddToPlaylist(context.Context, *connect.Request[PlaylistSongRequest]) (*connect.Response[Empty], error)
	RemoveFromPlaylist(context.Context, *connect.Request[PlaylistSongRequest]) (*connect.Response[Empty], error)
	ImportSpotifyPlaylist(context.Context, *connect.Request[ImportSpotifyPlaylistRequest]) (*connect.Response[ImportSpotifyPlaylistResponse], error)
	Subscribe(context.Context, *connect.Request[Empty], *connect.ServerStream[Notification]) error
}

// NewPlayerServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewPlayerServiceHandler(svc PlayerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(PlayerServiceGetStateProcedure, connect.NewUnaryHandler(PlayerServiceGetStateProcedure, svc.GetState, opts...))
	mux.Handle(PlayerServiceListSongsProcedure, connect.NewUnaryHandler(PlayerServiceListSongsProcedure, svc.ListSongs, opts...))
	mux.Handle(PlayerServicePlaySongProcedure, connect.NewUnaryHandler(PlayerServicePlaySongProcedure, svc.PlaySong, opts...))
	mux.Handle(PlayerServiceTogglePlayProcedure, connect.NewUnaryHandler(PlayerServiceTogglePlayProcedure, svc.TogglePlay, opts...))
	mux.Handle(PlayerServicePlayNextProcedure, connect.NewUnaryHandler(PlayerServicePlayNextProcedure, svc.PlayNext, opts...))
	mux.Handle(PlayerServicePlayPreviousProcedure, connect.NewUnaryHandler(PlayerServicePlayPreviousProcedure, svc.PlayPrevious, opts...))
	mux.Handle(PlayerServiceSeekToProcedure, connect.NewUnaryHandler(PlayerServiceSeekToProcedure, svc.SeekTo, opts...))
	mux.Handle(PlayerServiceSetVolumeProcedure, connect.NewUnaryHandler(PlayerServiceSetVolumeProcedure, svc.SetVolume, opts...))
	mux.Handle(PlayerServiceUploadSongProcedure, connect.NewUnaryHandler(PlayerServiceUploadSongProcedure, svc.UploadSong, opts...))
	mux.Handle(PlayerServiceDeleteSongProcedure, connect.NewUnaryHandler(PlayerServiceDeleteSongProcedure, svc.DeleteSong, opts...))
	mux.Handle(PlayerServiceListPlaylistsProcedure, connect.NewUnaryHandler(PlayerServiceListPlaylistsProcedure, svc.ListPlaylists, opts...))
	mux.Handle(PlayerServiceCreatePlaylistProcedure, connect.NewUnaryHandler(PlayerServiceCreatePlaylistProcedure, svc.CreatePlaylist, opts...))
	mux.Handle(PlayerServiceAddToPlaylistProcedure, connect.NewUnaryHandler(PlayerServiceAddToPlaylistProcedure, svc.AddToPlaylist, opts...))
	mux.Handle(PlayerServiceRemoveFromPlaylistProcedure, connect.NewUnaryHandler(PlayerServiceRemoveFromPlaylistProcedure, svc.RemoveFromPlaylist, opts...))
	mux.Handle(PlayerServiceImportSpotifyPlaylistProcedure, connect.NewUnaryHandler(PlayerServiceImportSpotifyPlaylistProcedure, svc.ImportSpotifyPlaylist, opts...))
	mux.Handle(PlayerServiceSubscribeProcedure, connect.NewServerStreamHandler(PlayerServiceSubscribeProcedure, svc.Subscribe, opts...))
	return "/" + PlayerServiceName + "/", mux
}

// PlayerServiceClient is a client for the melodeck.v1.PlayerService service.
type PlayerServiceClient struct {
	getState              *connect.Client[Empty, StateResponse]
	listSongs             *connect.Client[ListSongsRequest, ListSongsResponse]
	playSong              *connect.Client[PlaySongRequest, StateResponse]
	togglePlay            *connect.Client[Empty, TogglePlayResponse]
	playNext              *connect.Client[Empty, StateResponse]
	playPrevious          *connect.Client[Empty, StateResponse]
	seekTo                *connect.Client[SeekToRequest, StateResponse]
	setVolume             *connect.Client[SetVolumeRequest, StateResponse]
	uploadSong            *connect.Client[UploadSongRequest, UploadSongResponse]
	deleteSong            *connect.Client[DeleteSongRequest, Empty]
	listPlaylists         *connect.Client[Empty, ListPlaylistsResponse]
	createPlaylist        *connect.Client[CreatePlaylistRequest, Playlist]
	addToPlaylist         *connect.Client[PlaylistSongRequest, Empty]
	removeFromPlaylist    *connect.Client[PlaylistSongRequest, Empty]
	importSpotifyPlaylist *connect.Client[ImportSpotifyPlaylistRequest, ImportSpotifyPlaylistResponse]
	subscribe             *connect.Client[Empty, Notification]
}

// NewPlayerServiceClient constructs a client for the PlayerService served
// at baseURL, e.g. http://localhost:8090.
func NewPlayerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *PlayerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &PlayerServiceClient{
		getState:              connect.NewClient[Empty, StateResponse](httpClient, baseURL+PlayerServiceGetStateProcedure, opts...),
		listSongs:             connect.NewClient[ListSongsRequest, ListSongsResponse](httpClient, baseURL+PlayerServiceListSongsProcedure, opts...),
		playSong:              connect.NewClient[PlaySongRequest, StateResponse](httpClient, baseURL+PlayerServicePlaySongProcedure, opts...),
		togglePlay:            connect.NewClient[Empty, TogglePlayResponse](httpClient, baseURL+PlayerServiceTogglePlayProcedure, opts...),
		playNext:              connect.NewClient[Empty, StateResponse](httpClient, baseURL+PlayerServicePlayNextProcedure, opts...),
		playPrevious:          connect.NewClient[Empty, StateResponse](httpClient, baseURL+PlayerServicePlayPreviousProcedure, opts...),
		seekTo:                connect.NewClient[SeekToRequest, StateResponse](httpClient, baseURL+PlayerServiceSeekToProcedure, opts...),
		setVolume:             connect.NewClient[SetVolumeRequest, StateResponse](httpClient, baseURL+PlayerServiceSetVolumeProcedure, opts...),
		uploadSong:            connect.NewClient[UploadSongRequest, UploadSongResponse](httpClient, baseURL+PlayerServiceUploadSongProcedure, opts...),
		deleteSong:            connect.NewClient[DeleteSongRequest, Empty](httpClient, baseURL+PlayerServiceDeleteSongProcedure, opts...),
		listPlaylists:         connect.NewClient[Empty, ListPlaylistsResponse](httpClient, baseURL+PlayerServiceListPlaylistsProcedure, opts...),
		createPlaylist:        connect.NewClient[CreatePlaylistRequest, Playlist](httpClient, baseURL+PlayerServiceCreatePlaylistProcedure, opts...),
		addToPlaylist:         connect.NewClient[PlaylistSongRequest, Empty](httpClient, baseURL+PlayerServiceAddToPlaylistProcedure, opts...),
		removeFromPlaylist:    connect.NewClient[PlaylistSongRequest, Empty](httpClient, baseURL+PlayerServiceRemoveFromPlaylistProcedure, opts...),
		importSpotifyPlaylist: connect.NewClient[ImportSpotifyPlaylistRequest, ImportSpotifyPlaylistResponse](httpClient, baseURL+PlayerServiceImportSpotifyPlaylistProcedure, opts...),
		subscribe:             connect.NewClient[Empty, Notification](httpClient, baseURL+PlayerServiceSubscribeProcedure, opts...),
	}
}

func (c *PlayerServiceClient) GetState(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[StateResponse], error) {
	return c.getState.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) ListSongs(ctx context.Context, req *connect.Request[ListSongsRequest]) (*connect.Response[ListSongsResponse], error) {
	return c.listSongs.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) PlaySong(ctx context.Context, req *connect.Request[PlaySongRequest]) (*connect.Response[StateResponse], error) {
	return c.playSong.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) TogglePlay(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[TogglePlayResponse], error) {
	return c.togglePlay.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) PlayNext(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[StateResponse], error) {
	return c.playNext.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) PlayPrevious(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[StateResponse], error) {
	return c.playPrevious.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) SeekTo(ctx context.Context, req *connect.Request[SeekToRequest]) (*connect.Response[StateResponse], error) {
	return c.seekTo.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) SetVolume(ctx context.Context, req *connect.Request[SetVolumeRequest]) (*connect.Response[StateResponse], error) {
	return c.setVolume.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) UploadSong(ctx context.Context, req *connect.Request[UploadSongRequest]) (*connect.Response[UploadSongResponse], error) {
	return c.uploadSong.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) DeleteSong(ctx context.Context, req *connect.Request[DeleteSongRequest]) (*connect.Response[Empty], error) {
	return c.deleteSong.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) ListPlaylists(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ListPlaylistsResponse], error) {
	return c.listPlaylists.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) CreatePlaylist(ctx context.Context, req *connect.Request[CreatePlaylistRequest]) (*connect.Response[Playlist], error) {
	return c.createPlaylist.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) AddToPlaylist(ctx context.Context, req *connect.Request[PlaylistSongRequest]) (*connect.Response[Empty], error) {
	return c.addToPlaylist.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) RemoveFromPlaylist(ctx context.Context, req *connect.Request[PlaylistSongRequest]) (*connect.Response[Empty], error) {
	return c.removeFromPlaylist.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) ImportSpotifyPlaylist(ctx context.Context, req *connect.Request[ImportSpotifyPlaylistRequest]) (*connect.Response[ImportSpotifyPlaylistResponse], error) {
	return c.importSpotifyPlaylist.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Subscribe(ctx context.Context, req *connect.Request[Empty]) (*connect.ServerStreamForClient[Notification], error) {
	return c.subscribe.CallServerStream(ctx, req)
}

// NewControlTokenClientInterceptor attaches the control token to outgoing
// requests. An empty token sends nothing.
func NewControlTokenClientInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if req.Spec().IsClient && token != "" {
				req.Header().Set(ControlTokenHeader, token)
			}
			return next(ctx, req)
		}
	}
}
