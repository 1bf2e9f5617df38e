package media

import (
	"context"
	"net/http"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/melodeck/internal/domain/media"
)

// Silent is a media resource without an audio device. It decodes tracks to
// learn their duration and advances a wall clock while playing.
type Silent struct {
	mu     sync.Mutex
	events *emitter
	loader *loader
	load   pendingLoad
	tick   time.Duration

	length   time.Duration
	offset   time.Duration // Position when playback last started, paused or seeked
	started  time.Time
	playing  bool
	level    float64
	stopTick chan struct{}
	closed   bool
}

// NewSilent creates a silent resource emitting timeupdate every tick.
func NewSilent(client *http.Client, tick time.Duration) *Silent {
	return &Silent{
		events: newEmitter(),
		loader: newLoader(client),
		tick:   tick,
		level:  1,
	}
}

// Load replaces the current track and decodes it in the background.
func (s *Silent) Load(locator string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.stopTickerLocked()
	s.playing = false
	s.length = 0
	s.offset = 0
	gen, ctx := s.load.start()
	s.mu.Unlock()

	go s.decode(ctx, gen, locator)
}

func (s *Silent) decode(ctx context.Context, gen uint64, locator string) {
	var length time.Duration
	streamer, format, err := s.loader.open(ctx, locator)
	if err == nil {
		length = format.SampleRate.D(streamer.Len())
		_ = streamer.Close()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.load.finish(gen, err) {
		return
	}
	if err != nil {
		zlog.Warn().Err(err).Msgf("media: failed to load %s", locator)
		return
	}
	s.length = length
	zlog.Debug().Msgf("media: loaded %s duration=%v", locator, length)
	// Queued before Play can observe the load, so metadata precedes timeupdate.
	s.events.emit(media.EventLoadedMetadata)
}

// Play starts the clock once the current track has loaded.
func (s *Silent) Play(ctx context.Context) error {
	gen, err := s.load.wait(ctx, &s.mu)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrNotLoaded
	}
	if s.load.gen != gen {
		return ErrSuperseded
	}
	if s.playing {
		return nil
	}
	if s.offset >= s.length {
		s.offset = 0
	}
	s.started = time.Now()
	s.playing = true

	stop := make(chan struct{})
	s.stopTick = stop
	go s.runTicker(gen, stop)
	return nil
}

// Pause freezes the clock.
func (s *Silent) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing {
		return
	}
	s.offset = s.positionLocked()
	s.playing = false
	s.stopTickerLocked()
}

// CurrentTime returns the clock position.
func (s *Silent) CurrentTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionLocked()
}

// SetCurrentTime moves the clock, clamped to the track length.
func (s *Silent) SetCurrentTime(pos time.Duration) {
	s.mu.Lock()
	if pos < 0 {
		pos = 0
	}
	if pos > s.length {
		pos = s.length
	}
	s.offset = pos
	if s.playing {
		s.started = time.Now()
	}
	s.mu.Unlock()

	s.events.emit(media.EventTimeUpdate)
}

// Volume returns the stored level.
func (s *Silent) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// SetVolume stores the level.
func (s *Silent) SetVolume(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
}

// Duration returns the decoded track length, or 0 before it is known.
func (s *Silent) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.length
}

// Listen registers h for resource events.
func (s *Silent) Listen(h media.Handler) media.Registration {
	return s.events.listen(h)
}

// Close stops the clock and the event dispatcher.
func (s *Silent) Close() error {
	s.mu.Lock()
	s.closed = true
	s.playing = false
	s.stopTickerLocked()
	s.load.stop()
	s.mu.Unlock()

	s.events.close()
	return nil
}

// positionLocked must be called with lock held.
func (s *Silent) positionLocked() time.Duration {
	if !s.playing {
		return s.offset
	}
	pos := s.offset + time.Since(s.started)
	if pos > s.length {
		pos = s.length
	}
	return pos
}

// stopTickerLocked must be called with lock held.
func (s *Silent) stopTickerLocked() {
	if s.stopTick != nil {
		close(s.stopTick)
		s.stopTick = nil
	}
}

func (s *Silent) runTicker(gen uint64, stop chan struct{}) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if s.load.gen != gen || !s.playing || s.stopTick != stop {
			s.mu.Unlock()
			return
		}
		ended := s.positionLocked() >= s.length
		if ended {
			s.offset = s.length
			s.playing = false
			s.stopTick = nil
		}
		s.mu.Unlock()

		s.events.emit(media.EventTimeUpdate)
		if ended {
			s.events.emit(media.EventEnded)
			return
		}
	}
}
