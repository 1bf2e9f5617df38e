// Package song provides the Song domain entity.
package song

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Song represents a catalog entry that can be handed to a media resource.
// Songs are values; the catalog owns them and the player only copies them.
type Song struct {
	ID       string        // Catalog ID, stable within a session
	Title    string        // Song title
	Artist   string        // Artist name
	Album    string        // Album name
	Duration time.Duration // Nominal duration reported by the catalog
	MediaURL string        // URL or file path resolvable by the media resource
	CoverURL string        // Cover art URL (optional)
}

var (
	ErrMissingID       = errors.New("song id is required")
	ErrMissingMediaURL = errors.New("song media url is required")
	ErrNegativeLength  = errors.New("song duration must not be negative")
)

// HasCover reports whether the song carries cover art.
func (s *Song) HasCover() bool {
	return s.CoverURL != ""
}

// DisplayName returns "Artist - Title", falling back to whichever part is set.
func (s *Song) DisplayName() string {
	switch {
	case s.Artist == "" && s.Title == "":
		return s.ID
	case s.Artist == "":
		return s.Title
	case s.Title == "":
		return s.Artist
	default:
		return s.Artist + " - " + s.Title
	}
}

// Validate checks the fields the player depends on.
func (s *Song) Validate() error {
	if s.ID == "" {
		return ErrMissingID
	}
	if s.MediaURL == "" {
		return errors.Wrapf(ErrMissingMediaURL, "song %s", s.ID)
	}
	if s.Duration < 0 {
		return errors.Wrapf(ErrNegativeLength, "song %s", s.ID)
	}
	return nil
}
