// Package media provides media resource implementations backed by
// gopxl/beep: an audio-device Speaker and a device-less Silent clock.
package media

import (
	"sync"

	"github.com/osa030/melodeck/internal/domain/media"
)

// emitter keeps the listener registry of a resource and delivers events in
// emission order from its own goroutine.
type emitter struct {
	mu       sync.Mutex
	handlers map[uint64]media.Handler
	nextID   uint64
	pending  []media.EventType

	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newEmitter() *emitter {
	e := &emitter{
		handlers: make(map[uint64]media.Handler),
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go e.run()
	return e
}

type registration struct {
	e  *emitter
	id uint64
}

// Remove detaches the handler. Calling it again has no effect.
func (r registration) Remove() {
	r.e.mu.Lock()
	defer r.e.mu.Unlock()
	delete(r.e.handlers, r.id)
}

func (e *emitter) listen(h media.Handler) media.Registration {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.handlers[id] = h
	return registration{e: e, id: id}
}

// emit queues ev and returns immediately.
func (e *emitter) emit(ev media.EventType) {
	e.mu.Lock()
	e.pending = append(e.pending, ev)
	e.mu.Unlock()

	select {
	case e.signal <- struct{}{}:
	default:
	}
}

func (e *emitter) close() {
	e.once.Do(func() { close(e.done) })
}

func (e *emitter) run() {
	for {
		select {
		case <-e.done:
			return
		case <-e.signal:
		}

		for {
			e.mu.Lock()
			batch := e.pending
			e.pending = nil
			e.mu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, ev := range batch {
				e.dispatch(ev)
			}
		}
	}
}

func (e *emitter) dispatch(ev media.EventType) {
	e.mu.Lock()
	handlers := make([]media.Handler, 0, len(e.handlers))
	for _, h := range e.handlers {
		handlers = append(handlers, h)
	}
	e.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}
