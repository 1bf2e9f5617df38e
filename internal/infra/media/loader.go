package media

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	zlog "github.com/rs/zerolog/log"
)

// Errors
var (
	ErrNotLoaded         = errors.New("no media loaded")
	ErrSuperseded        = errors.New("media load superseded")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrMediaTooLarge     = errors.New("media too large")
)

// maxMediaBytes bounds how much of a remote file is read into memory.
const maxMediaBytes = 256 << 20

var contentTypeExt = map[string]string{
	"audio/mpeg":   ".mp3",
	"audio/mp3":    ".mp3",
	"audio/flac":   ".flac",
	"audio/x-flac": ".flac",
	"audio/wav":    ".wav",
	"audio/wave":   ".wav",
	"audio/x-wav":  ".wav",
	"audio/ogg":    ".ogg",
	"audio/vorbis": ".ogg",
}

// loader fetches audio from a file path or an HTTP(S) URL and decodes it.
type loader struct {
	client   *http.Client
	maxBytes int64
}

func newLoader(client *http.Client) *loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &loader{client: client, maxBytes: maxMediaBytes}
}

// open returns a seekable stream over the whole decoded file.
func (l *loader) open(ctx context.Context, locator string) (beep.StreamSeekCloser, beep.Format, error) {
	data, ext, err := l.fetch(ctx, locator)
	if err != nil {
		return nil, beep.Format{}, err
	}
	return decode(data, ext)
}

func (l *loader) fetch(ctx context.Context, locator string) ([]byte, string, error) {
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		return l.fetchHTTP(ctx, locator)
	}

	p := strings.TrimPrefix(locator, "file://")
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, "", errors.Wrapf(err, "failed to read %s", p)
	}
	return data, strings.ToLower(filepath.Ext(p)), nil
}

func (l *loader) fetchHTTP(ctx context.Context, locator string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to create request")
	}

	zlog.Debug().Msgf("media: fetching %s", locator)
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to fetch media")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", errors.Newf("failed to fetch media: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to read media")
	}
	if int64(len(data)) > l.maxBytes {
		return nil, "", errors.Wrapf(ErrMediaTooLarge, "%s exceeds %d bytes", locator, l.maxBytes)
	}

	ext := ""
	if u, err := url.Parse(locator); err == nil {
		ext = strings.ToLower(path.Ext(u.Path))
	}
	if _, ok := decoders[ext]; !ok {
		ct := strings.ToLower(strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0]))
		if e, ok := contentTypeExt[ct]; ok {
			ext = e
		}
	}
	return data, ext, nil
}

// nopCloser keeps Seek available to the decoders.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }

type decodeFunc func(r nopCloser) (beep.StreamSeekCloser, beep.Format, error)

var decoders = map[string]decodeFunc{
	".mp3": func(r nopCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return mp3.Decode(r)
	},
	".flac": func(r nopCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return flac.Decode(r)
	},
	".wav": func(r nopCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return wav.Decode(r)
	},
	".ogg": func(r nopCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return vorbis.Decode(r)
	},
}

func decode(data []byte, ext string) (beep.StreamSeekCloser, beep.Format, error) {
	dec, ok := decoders[ext]
	if !ok {
		return nil, beep.Format{}, errors.Wrapf(ErrUnsupportedFormat, "extension %q", ext)
	}
	streamer, format, err := dec(nopCloser{bytes.NewReader(data)})
	if err != nil {
		return nil, beep.Format{}, errors.Wrapf(err, "failed to decode %s", ext)
	}
	return streamer, format, nil
}

// pendingLoad tracks the most recent asynchronous load of a resource.
// Its fields are guarded by the owning resource's mutex.
type pendingLoad struct {
	gen    uint64
	ready  chan struct{}
	done   bool // ready is closed
	err    error
	cancel context.CancelFunc
}

// start begins a new load, cancelling the previous one. Waiters on the
// previous load are released and observe ErrSuperseded.
func (p *pendingLoad) start() (uint64, context.Context) {
	p.stop()
	if p.ready != nil && !p.done {
		close(p.ready)
	}
	p.done = false
	p.gen++
	p.ready = make(chan struct{})
	p.err = nil
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	return p.gen, ctx
}

// finish records the outcome of load gen and reports whether gen is current.
func (p *pendingLoad) finish(gen uint64, err error) bool {
	if gen != p.gen {
		return false
	}
	p.err = err
	p.done = true
	close(p.ready)
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	return true
}

func (p *pendingLoad) stop() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// wait blocks until the current load finishes and returns its generation.
func (p *pendingLoad) wait(ctx context.Context, mu *sync.Mutex) (uint64, error) {
	mu.Lock()
	ready, gen := p.ready, p.gen
	mu.Unlock()

	if ready == nil {
		return 0, ErrNotLoaded
	}

	select {
	case <-ready:
	case <-ctx.Done():
		return 0, errors.Wrap(ctx.Err(), "waiting for media to load")
	}

	mu.Lock()
	defer mu.Unlock()
	if p.gen != gen {
		return 0, ErrSuperseded
	}
	if p.err != nil {
		return 0, p.err
	}
	return gen, nil
}
