// Package playlist provides the Playlist domain entity.
package playlist

import (
	"time"

	"github.com/osa030/melodeck/internal/domain/song"
)

// Playlist is an ordered sequence of songs. Insertion order is playback order.
type Playlist struct {
	ID          string      // Catalog playlist ID (empty for ad-hoc playlists)
	Name        string      // Playlist name
	Description string      // Playlist description
	Songs       []song.Song // Songs in playback order
}

// Len returns the number of songs.
func (p *Playlist) Len() int {
	return len(p.Songs)
}

// IndexOf returns the position of the first song with the given id, or -1.
func (p *Playlist) IndexOf(id string) int {
	return IndexOf(p.Songs, id)
}

// SongIDs returns all song IDs in the playlist.
func (p *Playlist) SongIDs() []string {
	ids := make([]string, len(p.Songs))
	for i, s := range p.Songs {
		ids[i] = s.ID
	}
	return ids
}

// TotalDuration returns the sum of the nominal song durations.
func (p *Playlist) TotalDuration() time.Duration {
	var total time.Duration
	for _, s := range p.Songs {
		total += s.Duration
	}
	return total
}

// IndexOf returns the position of the first song in songs with the given
// id, or -1. Songs are matched by id only.
func IndexOf(songs []song.Song, id string) int {
	for i, s := range songs {
		if s.ID == id {
			return i
		}
	}
	return -1
}
