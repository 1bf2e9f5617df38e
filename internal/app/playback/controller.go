package playback

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/melodeck/internal/domain/media"
	"github.com/osa030/melodeck/internal/domain/playlist"
	"github.com/osa030/melodeck/internal/domain/song"
)

// Errors
var (
	// ErrPlaybackRejected marks a play request the media resource refused.
	ErrPlaybackRejected = errors.New("playback rejected")
	// ErrPlaybackSuperseded is returned when a play request resolved after a
	// different song had been loaded. The result was discarded.
	ErrPlaybackSuperseded = errors.New("playback superseded by a newer load")
)

const defaultEventBufferSize = 64

// Config holds controller configuration.
type Config struct {
	InitialVolume   float64 // Volume applied at construction
	ContinueOnEnded bool    // Resume playback on the next song after "ended"
	EventBufferSize int     // Capacity of the event channel
}

// DefaultConfig returns the configuration used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		InitialVolume:   1,
		ContinueOnEnded: true,
		EventBufferSize: defaultEventBufferSize,
	}
}

// Controller owns the playback state and drives a single media resource.
//
// Commands and media event handlers are serialised by one mutex. The lock is
// released while a play request is pending; a load generation counter makes
// sure a late play result never applies to a song loaded after it.
type Controller struct {
	mu sync.Mutex

	res        media.Resource
	state      State
	generation uint64
	config     Config

	registrations []media.Registration

	eventCh chan Event
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewController creates a controller bound to res for its whole lifetime.
// A nil res yields a controller whose commands are no-ops.
func NewController(res media.Resource, config Config) *Controller {
	if config.EventBufferSize <= 0 {
		config.EventBufferSize = defaultEventBufferSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		res:     res,
		state:   initialState(config.InitialVolume),
		config:  config,
		eventCh: make(chan Event, config.EventBufferSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	if res != nil {
		res.SetVolume(config.InitialVolume)
		c.registrations = append(c.registrations, res.Listen(c.handleMediaEvent))
	}
	return c
}

// Events returns the event channel. It is closed by Close.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Snapshot returns a copy of the current playback state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// PlaySong loads s and makes it the current song. The id of s is looked up in
// songs, or in the stored playlist when songs is empty. When it is not found
// the current index is left as it was. songs replaces the stored playlist only
// when non-empty. Loading never starts playback.
func (c *Controller) PlaySong(s song.Song, songs []song.Song) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.usableLocked("play song") {
		return
	}
	c.playSongLocked(s, songs)
}

// TogglePlay pauses when playing and requests playback otherwise.
//
// A rejected play request leaves the controller not playing, is reported on
// the event channel and is returned marked with ErrPlaybackRejected. Callers
// may treat it as informational. ErrPlaybackSuperseded is returned when the
// loaded song changed while the request was pending.
func (c *Controller) TogglePlay(ctx context.Context) error {
	c.mu.Lock()
	if !c.usableLocked("toggle play") {
		c.mu.Unlock()
		return nil
	}
	if c.state.CurrentSong == nil {
		zlog.Debug().Msg("playback: toggle ignored, no active song")
		c.mu.Unlock()
		return nil
	}
	if c.state.IsPlaying {
		c.res.Pause()
		c.state.IsPlaying = false
		c.sendEventLocked(EventPlayStateChanged, nil)
		c.mu.Unlock()
		return nil
	}

	gen := c.generation
	c.mu.Unlock()

	err := c.res.Play(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyPlayResultLocked(gen, err)
}

// PlayNext loads the next song, wrapping to the first after the last.
func (c *Controller) PlayNext() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.usableLocked("play next") {
		return
	}
	c.stepLocked(1)
}

// PlayPrevious loads the previous song, wrapping to the last before the first.
func (c *Controller) PlayPrevious() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.usableLocked("play previous") {
		return
	}
	c.stepLocked(-1)
}

// SeekTo moves the media position. CurrentTime is updated only once the
// media resource confirms the new position.
func (c *Controller) SeekTo(pos time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.usableLocked("seek") {
		return
	}
	c.res.SetCurrentTime(pos)
}

// SetVolume sets the media volume and records it immediately. The level is
// not clamped.
func (c *Controller) SetVolume(level float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.usableLocked("set volume") {
		return
	}
	c.res.SetVolume(level)
	c.state.Volume = level
	c.sendEventLocked(EventVolumeChanged, nil)
}

// Close detaches the media handlers and closes the event channel. Commands
// issued afterwards are no-ops.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, r := range c.registrations {
		r.Remove()
	}
	c.registrations = nil
	c.cancel()
	c.mu.Unlock()

	// Pending resume requests observe the cancelled context and return.
	c.wg.Wait()
	close(c.eventCh)
}

// usableLocked reports whether commands can reach the media resource.
// Must be called with lock held.
func (c *Controller) usableLocked(op string) bool {
	if c.closed {
		zlog.Debug().Msgf("playback: %s ignored, controller closed", op)
		return false
	}
	if c.res == nil {
		zlog.Debug().Msgf("playback: %s ignored, no media resource bound", op)
		return false
	}
	return true
}

// playSongLocked must be called with lock held.
func (c *Controller) playSongLocked(s song.Song, songs []song.Song) {
	lookup := songs
	if len(lookup) == 0 {
		lookup = c.state.Playlist
	}
	if idx := playlist.IndexOf(lookup, s.ID); idx >= 0 {
		c.state.CurrentIndex = idx
	} else {
		zlog.Debug().Msgf("playback: song %s not in playlist, index stays %d", s.ID, c.state.CurrentIndex)
	}

	cur := s
	c.state.CurrentSong = &cur
	if len(songs) > 0 {
		c.state.Playlist = make([]song.Song, len(songs))
		copy(c.state.Playlist, songs)
	}
	c.state.CurrentTime = 0
	c.state.Duration = 0
	c.generation++

	zlog.Debug().Msgf("playback: loading song=%s index=%d generation=%d", s.DisplayName(), c.state.CurrentIndex, c.generation)
	c.res.Load(s.MediaURL)
	c.sendEventLocked(EventSongLoaded, nil)
}

// stepLocked moves delta positions with wraparound. It reports whether a
// song was loaded. Must be called with lock held.
func (c *Controller) stepLocked(delta int) bool {
	n := len(c.state.Playlist)
	if n == 0 || c.state.CurrentIndex == -1 {
		zlog.Debug().Msg("playback: navigation ignored, empty playlist or no current index")
		return false
	}
	idx := ((c.state.CurrentIndex+delta)%n + n) % n
	c.playSongLocked(c.state.Playlist[idx], c.state.Playlist)
	return true
}

// applyPlayResultLocked must be called with lock held.
func (c *Controller) applyPlayResultLocked(gen uint64, err error) error {
	if c.closed {
		return ErrPlaybackSuperseded
	}
	if gen != c.generation {
		zlog.Debug().Msgf("playback: discarding play result for generation %d (current %d)", gen, c.generation)
		return ErrPlaybackSuperseded
	}
	if err != nil {
		name := ""
		if c.state.CurrentSong != nil {
			name = c.state.CurrentSong.DisplayName()
		}
		rejected := errors.Mark(errors.Wrapf(err, "failed to play %q", name), ErrPlaybackRejected)
		zlog.Warn().Err(err).Msgf("playback: play rejected: song=%s", name)
		changed := c.state.IsPlaying
		c.state.IsPlaying = false
		if changed {
			c.sendEventLocked(EventPlayStateChanged, nil)
		}
		c.sendEventLocked(EventPlaybackFailed, rejected)
		return rejected
	}
	if !c.state.IsPlaying {
		c.state.IsPlaying = true
		c.sendEventLocked(EventPlayStateChanged, nil)
	}
	return nil
}

// handleMediaEvent is the single handler registered on the media resource.
func (c *Controller) handleMediaEvent(ev media.EventType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	switch ev {
	case media.EventTimeUpdate, media.EventLoadedMetadata:
		c.state.CurrentTime = c.res.CurrentTime()
		c.state.Duration = c.res.Duration()
		c.sendEventLocked(EventProgress, nil)
	case media.EventEnded:
		c.onEndedLocked()
	}
}

// onEndedLocked advances to the next song. Must be called with lock held.
func (c *Controller) onEndedLocked() {
	wasPlaying := c.state.IsPlaying

	if !c.stepLocked(1) {
		// Nothing to advance to; the resource has stopped.
		if c.state.IsPlaying {
			c.state.IsPlaying = false
			c.sendEventLocked(EventPlayStateChanged, nil)
		}
		return
	}

	if !c.config.ContinueOnEnded || !wasPlaying {
		return
	}

	gen := c.generation
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.res.Play(c.ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		_ = c.applyPlayResultLocked(gen, err)
	}()
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(t EventType, err error) {
	if c.closed {
		return
	}
	e := Event{Type: t, State: c.state.clone(), Err: err}
	select {
	case c.eventCh <- e:
	default:
		zlog.Debug().Msgf("playback: event channel full, dropping %s", t)
	}
}
