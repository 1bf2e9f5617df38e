//go:build !((linux && cgo) || windows || darwin)

package media

import (
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
)

// AudioAvailable indicates whether audio playback is supported in this build.
// Audio output on linux requires cgo for the native sound library.
const AudioAvailable = false

// ErrAudioUnavailable is returned when the build has no audio output.
var ErrAudioUnavailable = errors.New("audio output not available in this build")

// Speaker is unavailable in this build; use Silent instead.
type Speaker struct {
	*Silent
}

// NewSpeaker always fails in builds without audio output.
func NewSpeaker(_ *http.Client, _ int, _, _ time.Duration) (*Speaker, error) {
	return nil, ErrAudioUnavailable
}
