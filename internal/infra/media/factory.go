package media

import (
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/melodeck/internal/domain/media"
	"github.com/osa030/melodeck/internal/infra/config"
)

// Resource is a media resource owning background goroutines.
type Resource interface {
	media.Resource
	io.Closer
}

// SpeakerSettings configures the "speaker" media type.
type SpeakerSettings struct {
	SampleRate      int `mapstructure:"sample_rate" default:"44100" validate:"oneof=22050 44100 48000 96000"`
	BufferMs        int `mapstructure:"buffer_ms" default:"100" validate:"gte=10,lte=1000"`
	TickMs          int `mapstructure:"tick_ms" default:"250" validate:"gte=10,lte=5000"`
	FetchTimeoutSec int `mapstructure:"fetch_timeout_sec" default:"60" validate:"gte=1,lte=600"`
}

// SilentSettings configures the "silent" media type.
type SilentSettings struct {
	TickMs          int `mapstructure:"tick_ms" default:"250" validate:"gte=10,lte=5000"`
	FetchTimeoutSec int `mapstructure:"fetch_timeout_sec" default:"60" validate:"gte=1,lte=600"`
}

// New creates the media resource selected by cfg.
func New(cfg config.MediaConfig) (Resource, error) {
	zlog.Debug().Msgf("creating media resource: type=%s settings=%+v", cfg.Type, cfg.Settings)

	switch cfg.Type {
	case "speaker":
		var s SpeakerSettings
		if err := decodeSettings(cfg.Settings, &s); err != nil {
			return nil, errors.Wrap(err, "invalid speaker settings")
		}
		if !AudioAvailable {
			return nil, errors.New("media type speaker is not supported by this build, use silent")
		}
		sp, err := NewSpeaker(
			fetchClient(s.FetchTimeoutSec),
			s.SampleRate,
			time.Duration(s.BufferMs)*time.Millisecond,
			time.Duration(s.TickMs)*time.Millisecond,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create speaker")
		}
		zlog.Info().Msgf("media resource: speaker sample_rate=%d buffer_ms=%d", s.SampleRate, s.BufferMs)
		return sp, nil

	case "silent":
		var s SilentSettings
		if err := decodeSettings(cfg.Settings, &s); err != nil {
			return nil, errors.Wrap(err, "invalid silent settings")
		}
		zlog.Info().Msgf("media resource: silent tick_ms=%d", s.TickMs)
		return NewSilent(fetchClient(s.FetchTimeoutSec), time.Duration(s.TickMs)*time.Millisecond), nil

	default:
		return nil, errors.Newf("unsupported media type: %s", cfg.Type)
	}
}

func fetchClient(timeoutSec int) *http.Client {
	return &http.Client{Timeout: time.Duration(timeoutSec) * time.Second}
}

func decodeSettings(settings map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
