// Package playback provides the playback controller that binds transport
// state to a media resource and sequences a playlist.
package playback

import (
	"time"

	"github.com/osa030/melodeck/internal/domain/song"
)

// Phase is the coarse playback phase derived from a State.
type Phase int

const (
	PhaseEmpty   Phase = iota // No song loaded
	PhaseLoaded               // Song loaded, not playing
	PhasePlaying              // Song loaded and playing
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseLoaded:
		return "loaded"
	case PhasePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// State is a snapshot of the controller's playback state.
type State struct {
	CurrentSong  *song.Song    // Loaded song (nil when nothing has been loaded)
	IsPlaying    bool          // Whether the controller believes audio is playing
	CurrentTime  time.Duration // Last position confirmed by the media resource
	Duration     time.Duration // Last duration confirmed by the media resource
	Volume       float64       // Volume level, nominally within [0, 1]
	Playlist     []song.Song   // Songs navigated by next/previous
	CurrentIndex int           // Index of CurrentSong in Playlist, or -1
}

func initialState(volume float64) State {
	return State{
		Volume:       volume,
		Playlist:     []song.Song{},
		CurrentIndex: -1,
	}
}

// Phase returns the playback phase of the snapshot.
func (s State) Phase() Phase {
	switch {
	case s.CurrentSong == nil:
		return PhaseEmpty
	case s.IsPlaying:
		return PhasePlaying
	default:
		return PhaseLoaded
	}
}

// clone returns a deep copy so callers never share memory with the controller.
func (s State) clone() State {
	out := s
	if s.CurrentSong != nil {
		cur := *s.CurrentSong
		out.CurrentSong = &cur
	}
	out.Playlist = make([]song.Song, len(s.Playlist))
	copy(out.Playlist, s.Playlist)
	return out
}
