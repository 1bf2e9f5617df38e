//go:build (linux && cgo) || windows || darwin

package media

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/melodeck/internal/domain/media"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

var (
	speakerOnce sync.Once
	speakerErr  error
)

// initSpeaker initializes the process-wide speaker once.
func initSpeaker(rate beep.SampleRate, buffer time.Duration) error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(rate, rate.N(buffer))
		if speakerErr == nil {
			zlog.Info().Msgf("media: speaker initialized: rate=%d buffer=%v", rate, buffer)
		}
	})
	return speakerErr
}

// Speaker plays tracks on the default audio device.
type Speaker struct {
	mu     sync.Mutex
	events *emitter
	loader *loader
	load   pendingLoad

	sampleRate beep.SampleRate
	bufferSize time.Duration
	tick       time.Duration

	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	queued   bool // Stream has been handed to the speaker
	playing  bool
	level    float64
	stopTick chan struct{}
	closed   bool
}

// NewSpeaker creates a speaker resource. The audio device is opened on the
// first successful Play.
func NewSpeaker(client *http.Client, sampleRate int, bufferSize, tick time.Duration) (*Speaker, error) {
	if sampleRate <= 0 {
		return nil, errors.Newf("invalid sample rate: %d", sampleRate)
	}
	return &Speaker{
		events:     newEmitter(),
		loader:     newLoader(client),
		sampleRate: beep.SampleRate(sampleRate),
		bufferSize: bufferSize,
		tick:       tick,
		level:      1,
	}, nil
}

// Load stops the current track and decodes locator in the background.
func (s *Speaker) Load(locator string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.releaseLocked()
	gen, ctx := s.load.start()
	s.mu.Unlock()

	go s.decode(ctx, gen, locator)
}

func (s *Speaker) decode(ctx context.Context, gen uint64, locator string) {
	streamer, format, err := s.loader.open(ctx, locator)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.load.finish(gen, err) {
		if err == nil {
			_ = streamer.Close()
		}
		return
	}
	if err != nil {
		zlog.Warn().Err(err).Msgf("media: failed to load %s", locator)
		return
	}
	s.streamer = streamer
	s.format = format
	zlog.Debug().Msgf("media: loaded %s rate=%d channels=%d", locator, format.SampleRate, format.NumChannels)
	s.events.emit(media.EventLoadedMetadata)
}

// Play starts or resumes the loaded track, waiting for a pending load.
func (s *Speaker) Play(ctx context.Context) error {
	gen, err := s.load.wait(ctx, &s.mu)
	if err != nil {
		return err
	}
	if err := initSpeaker(s.sampleRate, s.bufferSize); err != nil {
		return errors.Wrap(err, "failed to initialize speaker")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.streamer == nil {
		return ErrNotLoaded
	}
	if s.load.gen != gen {
		return ErrSuperseded
	}
	if s.playing {
		return nil
	}

	if !s.queued {
		resampled := beep.Resample(4, s.format.SampleRate, s.sampleRate, s.streamer)
		s.ctrl = &beep.Ctrl{Streamer: resampled, Paused: false}
		s.volume = &effects.Volume{
			Streamer: s.ctrl,
			Base:     2,
			Volume:   levelToGain(s.level),
			Silent:   s.level <= 0,
		}
		speaker.Play(beep.Seq(s.volume, beep.Callback(func() {
			// Runs on the speaker goroutine with the speaker lock held.
			go s.onDrained(gen)
		})))
		s.queued = true
	} else {
		speaker.Lock()
		s.ctrl.Paused = false
		speaker.Unlock()
	}

	s.playing = true
	stop := make(chan struct{})
	s.stopTick = stop
	go s.runTicker(gen, stop)
	return nil
}

// Pause pauses the stream in place.
func (s *Speaker) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing {
		return
	}
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
	s.playing = false
	s.stopTickerLocked()
}

// CurrentTime returns the stream position.
func (s *Speaker) CurrentTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := s.streamer.Position()
	speaker.Unlock()
	return s.format.SampleRate.D(pos)
}

// SetCurrentTime seeks the stream, clamped to the track.
func (s *Speaker) SetCurrentTime(pos time.Duration) {
	s.mu.Lock()
	if s.streamer == nil {
		s.mu.Unlock()
		return
	}
	n := s.format.SampleRate.N(pos)
	if n < 0 {
		n = 0
	}
	if last := s.streamer.Len() - 1; n > last && last >= 0 {
		n = last
	}
	speaker.Lock()
	err := s.streamer.Seek(n)
	speaker.Unlock()
	s.mu.Unlock()

	if err != nil {
		zlog.Warn().Err(err).Msgf("media: seek to %v failed", pos)
		return
	}
	s.events.emit(media.EventTimeUpdate)
}

// Volume returns the current level.
func (s *Speaker) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// SetVolume applies level to the stream.
func (s *Speaker) SetVolume(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.level = level
	if s.volume != nil {
		speaker.Lock()
		s.volume.Volume = levelToGain(level)
		s.volume.Silent = level <= 0
		speaker.Unlock()
	}
}

// Duration returns the decoded track length, or 0 before it is known.
func (s *Speaker) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streamer == nil {
		return 0
	}
	return s.format.SampleRate.D(s.streamer.Len())
}

// Listen registers h for resource events.
func (s *Speaker) Listen(h media.Handler) media.Registration {
	return s.events.listen(h)
}

// Close stops playback and releases the current track.
func (s *Speaker) Close() error {
	s.mu.Lock()
	s.closed = true
	s.releaseLocked()
	s.load.stop()
	s.mu.Unlock()

	s.events.close()
	return nil
}

// releaseLocked detaches the current stream from the speaker.
// Must be called with lock held.
func (s *Speaker) releaseLocked() {
	s.stopTickerLocked()
	if s.queued {
		speaker.Clear()
	}
	if s.streamer != nil {
		_ = s.streamer.Close()
	}
	s.streamer = nil
	s.ctrl = nil
	s.volume = nil
	s.queued = false
	s.playing = false
}

// onDrained rewinds after the stream played to its end so a later Play
// starts over.
func (s *Speaker) onDrained(gen uint64) {
	s.mu.Lock()
	if s.load.gen != gen || !s.queued {
		s.mu.Unlock()
		return
	}
	s.queued = false
	s.playing = false
	s.stopTickerLocked()
	if err := s.streamer.Seek(0); err != nil {
		zlog.Warn().Err(err).Msg("media: rewind failed")
	}
	s.mu.Unlock()

	s.events.emit(media.EventTimeUpdate)
	s.events.emit(media.EventEnded)
}

// stopTickerLocked must be called with lock held.
func (s *Speaker) stopTickerLocked() {
	if s.stopTick != nil {
		close(s.stopTick)
		s.stopTick = nil
	}
}

func (s *Speaker) runTicker(gen uint64, stop chan struct{}) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			current := s.load.gen == gen && s.playing
			s.mu.Unlock()
			if !current {
				return
			}
			s.events.emit(media.EventTimeUpdate)
		}
	}
}
