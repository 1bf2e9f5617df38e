// Package notification broadcasts playback changes to subscribers.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/melodeck/internal/app/playback"
)

// sendTimeout bounds a single stream send during Broadcast.
const sendTimeout = 500 * time.Millisecond

// Notification is a playback change delivered to subscribers.
type Notification struct {
	SequenceNo uint64
	// Kind is the playback event name, or "snapshot" for the initial state.
	Kind  string
	State playback.State
	// Error is set for playback_failed.
	Error string
}

// KindSnapshot marks the state sent right after subscribing.
const KindSnapshot = "snapshot"

// FromEvent builds a notification from a controller event.
func FromEvent(ev playback.Event) *Notification {
	n := &Notification{
		Kind:  ev.Type.String(),
		State: ev.State,
	}
	if ev.Err != nil {
		n.Error = ev.Err.Error()
	}
	return n
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

type subscription struct {
	id     string
	stream Stream
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:     id,
		stream: stream,
	}
	zlog.Debug().Msgf("notification: subscribed %s (%d total)", id, len(m.subscriptions))
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// NextSequenceNo returns the next sequence number.
func (m *Manager) NextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Broadcast stamps the notification with the next sequence number and sends
// it to every subscriber in parallel. A subscriber whose send fails is
// dropped; one that times out is skipped for this notification only.
func (m *Manager) Broadcast(n *Notification) {
	n.SequenceNo = m.NextSequenceNo()

	m.mu.RLock()
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(n)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Msgf("notification: dropping %s: %v", s.id, err)
					m.Unsubscribe(s.id)
				}
			case <-ctx.Done():
				zlog.Debug().Msgf("notification: send to %s timed out", s.id)
			}
		}(sub)
	}
	wg.Wait()
}

// Send sends a notification to a specific subscriber. Unknown IDs are ignored.
func (m *Manager) Send(subscriptionID string, n *Notification) error {
	m.mu.RLock()
	sub, ok := m.subscriptions[subscriptionID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if n.SequenceNo == 0 {
		n.SequenceNo = m.NextSequenceNo()
	}
	return sub.stream.Send(n)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
