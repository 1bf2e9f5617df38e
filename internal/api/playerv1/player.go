// Package playerv1 defines the melodeck.v1.PlayerService wire messages,
// procedures, handler and client.
package playerv1

// Song is a playable song.
type Song struct {
	ID         string `json:"id"`
	Title      string `json:"title,omitempty"`
	Artist     string `json:"artist,omitempty"`
	Album      string `json:"album,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
	MediaURL   string `json:"mediaUrl,omitempty"`
	CoverURL   string `json:"coverUrl,omitempty"`
}

// PlayerState is a snapshot of the playback controller.
type PlayerState struct {
	CurrentSong   *Song   `json:"currentSong,omitempty"`
	IsPlaying     bool    `json:"isPlaying"`
	CurrentTimeMs int64   `json:"currentTimeMs"`
	DurationMs    int64   `json:"durationMs"`
	Volume        float64 `json:"volume"`
	Playlist      []Song  `json:"playlist,omitempty"`
	CurrentIndex  int32   `json:"currentIndex"`
}

// Playlist is a catalog playlist summary.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SongCount   int32  `json:"songCount"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// Notification is a playback change streamed by Subscribe.
type Notification struct {
	SequenceNo uint64       `json:"sequenceNo"`
	Kind       string       `json:"kind"`
	State      *PlayerState `json:"state"`
	Error      string       `json:"error,omitempty"`
}

// Empty is used by procedures without parameters or results.
type Empty struct{}

// StateResponse carries the state after a command.
type StateResponse struct {
	State *PlayerState `json:"state"`
}

type ListSongsRequest struct {
	// Refresh forces a catalog request instead of the cached listing.
	Refresh bool `json:"refresh,omitempty"`
}

type ListSongsResponse struct {
	Songs []Song `json:"songs"`
}

type PlaySongRequest struct {
	SongID string `json:"songId"`
	// PlaylistIDs is the playlist context. Empty means the whole catalog.
	PlaylistIDs []string `json:"playlistIds,omitempty"`
}

type TogglePlayResponse struct {
	State *PlayerState `json:"state"`
	// Rejected is set when the audio output refused to start.
	Rejected bool   `json:"rejected,omitempty"`
	Message  string `json:"message,omitempty"`
}

type SeekToRequest struct {
	PositionMs int64 `json:"positionMs"`
}

type SetVolumeRequest struct {
	Volume float64 `json:"volume"`
}

type UploadSongRequest struct {
	FileName string `json:"fileName"`
	Data     []byte `json:"data"`
}

type UploadSongResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Song    *Song  `json:"song,omitempty"`
}

type DeleteSongRequest struct {
	SongID string `json:"songId"`
}

type ListPlaylistsResponse struct {
	Playlists []Playlist `json:"playlists"`
}

type CreatePlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type PlaylistSongRequest struct {
	PlaylistID string `json:"playlistId"`
	SongID     string `json:"songId"`
}

type ImportSpotifyPlaylistRequest struct {
	URL string `json:"url"`
}

type ImportSpotifyPlaylistResponse struct {
	PlaylistID string       `json:"playlistId"`
	Name       string       `json:"name"`
	SongCount  int32        `json:"songCount"`
	State      *PlayerState `json:"state"`
}
