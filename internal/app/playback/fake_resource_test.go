package playback

import (
	"context"
	"sync"
	"time"

	"github.com/osa030/melodeck/internal/domain/media"
)

// fakeResource records commands and lets tests emit media events directly.
type fakeResource struct {
	mu sync.Mutex

	loads      []string
	playCalls  int
	pauseCalls int
	seeks      []time.Duration
	volumes    []float64

	current  time.Duration
	duration time.Duration
	volume   float64

	playErr  error
	playGate chan struct{} // Play blocks until closed when non-nil

	handlers map[int]media.Handler
	nextID   int
}

func newFakeResource() *fakeResource {
	return &fakeResource{handlers: make(map[int]media.Handler)}
}

func (f *fakeResource) Load(locator string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, locator)
	f.current = 0
	f.duration = 0
}

func (f *fakeResource) Play(ctx context.Context) error {
	f.mu.Lock()
	f.playCalls++
	gate := f.playGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playErr
}

func (f *fakeResource) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauseCalls++
}

func (f *fakeResource) CurrentTime() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeResource) SetCurrentTime(pos time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, pos)
	f.current = pos
}

func (f *fakeResource) Volume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

func (f *fakeResource) SetVolume(level float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes = append(f.volumes, level)
	f.volume = level
}

func (f *fakeResource) Duration() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration
}

type fakeRegistration struct {
	f  *fakeResource
	id int
}

func (r fakeRegistration) Remove() {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	delete(r.f.handlers, r.id)
}

func (f *fakeResource) Listen(h media.Handler) media.Registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.handlers[id] = h
	return fakeRegistration{f: f, id: id}
}

// emit delivers ev to every handler on the calling goroutine.
func (f *fakeResource) emit(ev media.EventType) {
	f.mu.Lock()
	hs := make([]media.Handler, 0, len(f.handlers))
	for _, h := range f.handlers {
		hs = append(hs, h)
	}
	f.mu.Unlock()

	for _, h := range hs {
		h(ev)
	}
}

func (f *fakeResource) setPosition(current, duration time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = current
	f.duration = duration
}

func (f *fakeResource) setPlayErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playErr = err
}

func (f *fakeResource) lastLoad() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.loads) == 0 {
		return ""
	}
	return f.loads[len(f.loads)-1]
}

func (f *fakeResource) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loads)
}

func (f *fakeResource) plays() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playCalls
}

func (f *fakeResource) handlerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}
