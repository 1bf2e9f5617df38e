package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_OpenFile(t *testing.T) {
	p := writeWAV(t, "tone.wav", 500*time.Millisecond)

	streamer, format, err := newLoader(nil).open(context.Background(), p)
	require.NoError(t, err)
	defer streamer.Close()

	assert.Equal(t, testSampleRate, int(format.SampleRate))
	assert.Equal(t, 500*time.Millisecond, format.SampleRate.D(streamer.Len()))
}

func TestLoader_OpenFileURL(t *testing.T) {
	p := writeWAV(t, "tone.wav", 250*time.Millisecond)

	streamer, _, err := newLoader(nil).open(context.Background(), "file://"+p)
	require.NoError(t, err)
	_ = streamer.Close()
}

func TestLoader_OpenHTTP(t *testing.T) {
	data := wavBytes(time.Second)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/files/song.wav":
			_, _ = w.Write(data)
		case "/preview/abc":
			w.Header().Set("Content-Type", "audio/wav; charset=binary")
			_, _ = w.Write(data)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := newLoader(srv.Client())

	t.Run("extension from path", func(t *testing.T) {
		streamer, format, err := l.open(context.Background(), srv.URL+"/api/files/song.wav")
		require.NoError(t, err)
		defer streamer.Close()
		assert.Equal(t, time.Second, format.SampleRate.D(streamer.Len()))
	})

	t.Run("extension from content type", func(t *testing.T) {
		streamer, _, err := l.open(context.Background(), srv.URL+"/preview/abc")
		require.NoError(t, err)
		_ = streamer.Close()
	})

	t.Run("not found", func(t *testing.T) {
		_, _, err := l.open(context.Background(), srv.URL+"/missing.mp3")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}

func TestLoader_OpenHTTPTooLarge(t *testing.T) {
	data := wavBytes(time.Second)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	l := newLoader(srv.Client())

	l.maxBytes = int64(len(data)) - 1
	_, _, err := l.open(context.Background(), srv.URL+"/big.wav")
	assert.True(t, errors.Is(err, ErrMediaTooLarge))

	l.maxBytes = int64(len(data))
	streamer, _, err := l.open(context.Background(), srv.URL+"/big.wav")
	require.NoError(t, err)
	_ = streamer.Close()
}

func TestLoader_Errors(t *testing.T) {
	t.Run("unsupported extension", func(t *testing.T) {
		_, _, err := decode([]byte("data"), ".m4a")
		assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	})

	t.Run("corrupt data", func(t *testing.T) {
		_, _, err := decode([]byte("not a wav file"), ".wav")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := newLoader(nil).open(context.Background(), "/nonexistent/song.mp3")
		assert.Error(t, err)
	})
}

func TestLevelToGain(t *testing.T) {
	assert.Equal(t, float64(silentGain), levelToGain(0))
	assert.Equal(t, float64(silentGain), levelToGain(-1))
	assert.Equal(t, 0.0, levelToGain(1))
	assert.Equal(t, -1.0, levelToGain(0.5))
	assert.Equal(t, -2.0, levelToGain(0.25))
	assert.Equal(t, 1.0, levelToGain(2))
}
