package playback

// EventType represents a playback event type.
type EventType int

const (
	EventSongLoaded       EventType = iota // A song was handed to the media resource
	EventPlayStateChanged                  // IsPlaying changed
	EventProgress                          // CurrentTime or Duration confirmed by the media resource
	EventVolumeChanged                     // Volume changed
	EventPlaybackFailed                    // A play request was rejected
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventSongLoaded:
		return "song_loaded"
	case EventPlayStateChanged:
		return "play_state_changed"
	case EventProgress:
		return "progress"
	case EventVolumeChanged:
		return "volume_changed"
	case EventPlaybackFailed:
		return "playback_failed"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type  EventType
	State State // Snapshot taken when the event was emitted
	Err   error // Set for EventPlaybackFailed
}
