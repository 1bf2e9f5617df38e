// Package main provides the player control CLI.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/osa030/melodeck/internal/api/playerv1"
)

var (
	app     = kingpin.New("melodeck", "melodeck player control client")
	server  = app.Flag("server", "Server address").Default("http://localhost:8090").Envar("MELODECK_SERVER").String()
	token   = app.Flag("token", "Control token (or set MELODECK_CONTROL_TOKEN env)").Envar("MELODECK_CONTROL_TOKEN").String()
	timeout = app.Flag("timeout", "Request timeout").Default("30s").Duration()

	stateCmd = app.Command("state", "Show the playback state").Alias("status")

	songsCmd     = app.Command("songs", "List songs in the catalog")
	songsRefresh = songsCmd.Flag("refresh", "Fetch from the catalog instead of the server cache").Bool()

	playCmd      = app.Command("play", "Load a song")
	playSongID   = playCmd.Arg("song-id", "Song ID").Required().String()
	playPlaylist = playCmd.Flag("playlist", "Song IDs forming the playlist (default: whole catalog)").Strings()

	toggleCmd = app.Command("toggle", "Play or pause")
	nextCmd   = app.Command("next", "Play the next song")
	prevCmd   = app.Command("prev", "Play the previous song").Alias("previous")

	seekCmd     = app.Command("seek", "Seek within the current song")
	seekSeconds = seekCmd.Arg("seconds", "Position in seconds").Required().Float64()

	volumeCmd   = app.Command("volume", "Set the volume")
	volumeLevel = volumeCmd.Arg("level", "Volume between 0 and 1").Required().Float64()

	uploadCmd  = app.Command("upload", "Upload an audio file")
	uploadFile = uploadCmd.Arg("file", "Path to the audio file").Required().ExistingFile()

	deleteCmd    = app.Command("delete", "Delete a song from the catalog")
	deleteSongID = deleteCmd.Arg("song-id", "Song ID").Required().String()

	playlistsCmd = app.Command("playlists", "List catalog playlists")

	playlistCreateCmd  = app.Command("playlist-create", "Create a catalog playlist")
	playlistCreateName = playlistCreateCmd.Arg("name", "Playlist name").Required().String()
	playlistCreateDesc = playlistCreateCmd.Flag("description", "Playlist description").String()

	playlistAddCmd    = app.Command("playlist-add", "Add a song to a catalog playlist")
	playlistAddID     = playlistAddCmd.Arg("playlist-id", "Playlist ID").Required().String()
	playlistAddSongID = playlistAddCmd.Arg("song-id", "Song ID").Required().String()

	playlistRemoveCmd  = app.Command("playlist-remove", "Remove a song from a catalog playlist")
	playlistRemoveID   = playlistRemoveCmd.Arg("playlist-id", "Playlist ID").Required().String()
	playlistRemoveSong = playlistRemoveCmd.Arg("song-id", "Song ID").Required().String()

	importCmd = app.Command("import", "Import a Spotify playlist")
	importURL = importCmd.Arg("url", "Spotify playlist URL or URI").Required().String()

	watchCmd = app.Command("watch", "Stream playback changes")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := playerv1.NewPlayerServiceClient(
		http.DefaultClient,
		*server,
		connect.WithInterceptors(playerv1.NewControlTokenClientInterceptor(*token)),
	)

	if command == watchCmd.FullCommand() {
		watch(client)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var err error
	switch command {
	case stateCmd.FullCommand():
		err = showState(ctx, client)
	case songsCmd.FullCommand():
		err = listSongs(ctx, client, *songsRefresh)
	case playCmd.FullCommand():
		err = playSong(ctx, client, *playSongID, *playPlaylist)
	case toggleCmd.FullCommand():
		err = toggle(ctx, client)
	case nextCmd.FullCommand():
		err = stateCommand(ctx, client.PlayNext)
	case prevCmd.FullCommand():
		err = stateCommand(ctx, client.PlayPrevious)
	case seekCmd.FullCommand():
		err = seek(ctx, client, *seekSeconds)
	case volumeCmd.FullCommand():
		err = setVolume(ctx, client, *volumeLevel)
	case uploadCmd.FullCommand():
		err = uploadSong(ctx, client, *uploadFile)
	case deleteCmd.FullCommand():
		err = deleteSong(ctx, client, *deleteSongID)
	case playlistsCmd.FullCommand():
		err = listPlaylists(ctx, client)
	case playlistCreateCmd.FullCommand():
		err = createPlaylist(ctx, client, *playlistCreateName, *playlistCreateDesc)
	case playlistAddCmd.FullCommand():
		_, err = client.AddToPlaylist(ctx, connect.NewRequest(&playerv1.PlaylistSongRequest{
			PlaylistID: *playlistAddID,
			SongID:     *playlistAddSongID,
		}))
		if err == nil {
			fmt.Println("Added")
		}
	case playlistRemoveCmd.FullCommand():
		_, err = client.RemoveFromPlaylist(ctx, connect.NewRequest(&playerv1.PlaylistSongRequest{
			PlaylistID: *playlistRemoveID,
			SongID:     *playlistRemoveSong,
		}))
		if err == nil {
			fmt.Println("Removed")
		}
	case importCmd.FullCommand():
		err = importPlaylist(ctx, client, *importURL)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func showState(ctx context.Context, client *playerv1.PlayerServiceClient) error {
	resp, err := client.GetState(ctx, connect.NewRequest(&playerv1.Empty{}))
	if err != nil {
		return err
	}
	printState(resp.Msg.State)
	return nil
}

func listSongs(ctx context.Context, client *playerv1.PlayerServiceClient, refresh bool) error {
	resp, err := client.ListSongs(ctx, connect.NewRequest(&playerv1.ListSongsRequest{Refresh: refresh}))
	if err != nil {
		return err
	}

	if len(resp.Msg.Songs) == 0 {
		fmt.Println("No songs in the catalog")
		return nil
	}
	for _, s := range resp.Msg.Songs {
		fmt.Printf("%6s  %-40s %s\n", s.ID, songName(&s), formatMs(s.DurationMs))
	}
	return nil
}

func playSong(ctx context.Context, client *playerv1.PlayerServiceClient, id string, playlist []string) error {
	resp, err := client.PlaySong(ctx, connect.NewRequest(&playerv1.PlaySongRequest{
		SongID:      id,
		PlaylistIDs: playlist,
	}))
	if err != nil {
		return err
	}
	printState(resp.Msg.State)
	return nil
}

func toggle(ctx context.Context, client *playerv1.PlayerServiceClient) error {
	resp, err := client.TogglePlay(ctx, connect.NewRequest(&playerv1.Empty{}))
	if err != nil {
		return err
	}
	if resp.Msg.Rejected {
		fmt.Printf("Playback was refused: %s\n", resp.Msg.Message)
	} else if resp.Msg.Message != "" {
		fmt.Println(resp.Msg.Message)
	}
	printState(resp.Msg.State)
	return nil
}

func stateCommand(
	ctx context.Context,
	call func(context.Context, *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.StateResponse], error),
) error {
	resp, err := call(ctx, connect.NewRequest(&playerv1.Empty{}))
	if err != nil {
		return err
	}
	printState(resp.Msg.State)
	return nil
}

func seek(ctx context.Context, client *playerv1.PlayerServiceClient, seconds float64) error {
	if seconds < 0 {
		seconds = 0
	}
	resp, err := client.SeekTo(ctx, connect.NewRequest(&playerv1.SeekToRequest{
		PositionMs: int64(seconds * 1000),
	}))
	if err != nil {
		return err
	}
	printState(resp.Msg.State)
	return nil
}

func setVolume(ctx context.Context, client *playerv1.PlayerServiceClient, level float64) error {
	resp, err := client.SetVolume(ctx, connect.NewRequest(&playerv1.SetVolumeRequest{
		Volume: clampVolume(level),
	}))
	if err != nil {
		return err
	}
	fmt.Printf("Volume: %d%%\n", int(resp.Msg.State.Volume*100+0.5))
	return nil
}

func uploadSong(ctx context.Context, client *playerv1.PlayerServiceClient, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	resp, err := client.UploadSong(ctx, connect.NewRequest(&playerv1.UploadSongRequest{
		FileName: filepath.Base(path),
		Data:     data,
	}))
	if err != nil {
		return err
	}

	if !resp.Msg.Success {
		fmt.Printf("Rejected [%s]: %s\n", resp.Msg.Code, resp.Msg.Message)
		return nil
	}
	fmt.Printf("%s: %s (id %s)\n", resp.Msg.Message, songName(resp.Msg.Song), resp.Msg.Song.ID)
	return nil
}

func deleteSong(ctx context.Context, client *playerv1.PlayerServiceClient, id string) error {
	if _, err := client.DeleteSong(ctx, connect.NewRequest(&playerv1.DeleteSongRequest{SongID: id})); err != nil {
		return err
	}
	fmt.Printf("Deleted song %s\n", id)
	return nil
}

func listPlaylists(ctx context.Context, client *playerv1.PlayerServiceClient) error {
	resp, err := client.ListPlaylists(ctx, connect.NewRequest(&playerv1.Empty{}))
	if err != nil {
		return err
	}
	for _, p := range resp.Msg.Playlists {
		fmt.Printf("%6s  %-30s %3d songs  %s\n", p.ID, p.Name, p.SongCount, p.Description)
	}
	return nil
}

func createPlaylist(ctx context.Context, client *playerv1.PlayerServiceClient, name, description string) error {
	resp, err := client.CreatePlaylist(ctx, connect.NewRequest(&playerv1.CreatePlaylistRequest{
		Name:        name,
		Description: description,
	}))
	if err != nil {
		return err
	}
	fmt.Printf("Created playlist %s (id %s)\n", resp.Msg.Name, resp.Msg.ID)
	return nil
}

func importPlaylist(ctx context.Context, client *playerv1.PlayerServiceClient, url string) error {
	resp, err := client.ImportSpotifyPlaylist(ctx, connect.NewRequest(&playerv1.ImportSpotifyPlaylistRequest{URL: url}))
	if err != nil {
		return err
	}
	fmt.Printf("Imported %q: %d playable songs\n", resp.Msg.Name, resp.Msg.SongCount)
	printState(resp.Msg.State)
	return nil
}

func watch(client *playerv1.PlayerServiceClient) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stream, err := client.Subscribe(ctx, connect.NewRequest(&playerv1.Empty{}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer stream.Close()

	fmt.Println("Watching playback. Press Ctrl+C to exit.")
	var lastProgress time.Time
	for stream.Receive() {
		n := stream.Msg()
		// Progress arrives several times a second.
		if n.Kind == "progress" {
			if time.Since(lastProgress) < time.Second {
				continue
			}
			lastProgress = time.Now()
		}
		fmt.Printf("[%d] %-18s %s\n", n.SequenceNo, n.Kind, summary(n.State))
		if n.Error != "" {
			fmt.Printf("      error: %s\n", n.Error)
		}
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		fmt.Printf("Stream error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\nUnsubscribed")
}

func printState(st *playerv1.PlayerState) {
	if st == nil {
		return
	}
	fmt.Println(summary(st))
	if len(st.Playlist) == 0 {
		return
	}
	fmt.Println()
	for i, s := range st.Playlist {
		marker := "  "
		if int32(i) == st.CurrentIndex {
			marker = "> "
		}
		fmt.Printf("%s%2d. %s\n", marker, i+1, songName(&s))
	}
}

func summary(st *playerv1.PlayerState) string {
	if st == nil {
		return ""
	}
	if st.CurrentSong == nil {
		return fmt.Sprintf("⏹  nothing loaded  vol %d%%", int(st.Volume*100+0.5))
	}
	icon := "⏸ "
	if st.IsPlaying {
		icon = "▶️ "
	}
	return fmt.Sprintf("%s %s  %s / %s  vol %d%%",
		icon,
		songName(st.CurrentSong),
		formatMs(st.CurrentTimeMs),
		formatMs(st.DurationMs),
		int(st.Volume*100+0.5),
	)
}

func songName(s *playerv1.Song) string {
	if s == nil {
		return ""
	}
	switch {
	case s.Artist != "" && s.Title != "":
		return s.Artist + " - " + s.Title
	case s.Title != "":
		return s.Title
	default:
		return s.ID
	}
}

func formatMs(ms int64) string {
	if ms <= 0 {
		return "0:00"
	}
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
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
