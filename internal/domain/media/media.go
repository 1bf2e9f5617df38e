// Package media defines the contract of a playable media resource.
package media

import (
	"context"
	"time"
)

// EventType identifies an event emitted by a Resource.
type EventType int

const (
	EventTimeUpdate     EventType = iota // Playback position advanced
	EventLoadedMetadata                  // Duration of the loaded track is known
	EventEnded                           // Loaded track played to its end
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTimeUpdate:
		return "timeupdate"
	case EventLoadedMetadata:
		return "loadedmetadata"
	case EventEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Handler receives resource events.
type Handler func(EventType)

// Registration is returned by Listen. Remove detaches the handler and is
// safe to call more than once.
type Registration interface {
	Remove()
}

// Resource is an opaque playable-media handle.
//
// Events are delivered in emission order from a goroutine owned by the
// resource, never from inside a call into the resource, so handlers may
// call back into it.
type Resource interface {
	// Load replaces the current track. It returns immediately; decoding
	// happens in the background and ends with EventLoadedMetadata.
	Load(locator string)
	// Play starts or resumes playback. It blocks until playback has started
	// or failed.
	Play(ctx context.Context) error
	Pause()
	CurrentTime() time.Duration
	SetCurrentTime(pos time.Duration)
	Volume() float64
	SetVolume(level float64)
	// Duration returns 0 until metadata for the loaded track is known.
	Duration() time.Duration
	Listen(h Handler) Registration
}
