// Package live is the in-process revocation fan-out: a subscriber registry
// keyed by session id that pushes a single "logout" event to the open
// connection of a revoked session. It is a latency optimization, not a
// correctness mechanism; a client that never receives the event still loses
// access at its next request because the token store rejects the revoked
// credential.
package live

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coderepojon/authcore/internal/metrics"
)

// Event is the payload pushed to a subscriber before its handle closes.
type Event struct {
	Name string
	Data string
}

// LogoutEvent is what every revocation publishes.
var LogoutEvent = Event{Name: "logout", Data: "Your session has been revoked"}

// Handle is one long-lived push registration. Events carries at most one
// event; Done closes when the handle is finished, either because the event
// was delivered or because the registration was superseded or dropped.
type Handle struct {
	sessionID string
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// Events is the receive side of the push channel.
func (h *Handle) Events() <-chan Event { return h.events }

// Done closes when the handle will deliver nothing further.
func (h *Handle) Done() <-chan struct{} { return h.done }

// SessionID returns the session this handle is registered under.
func (h *Handle) SessionID() string { return h.sessionID }

func (h *Handle) close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Broker is the concurrency-safe session id -> handle table. Replacement on
// subscribe and removal on publish are atomic per key; unrelated sessions
// never contend beyond the map lock itself.
type Broker struct {
	mu   sync.Mutex
	subs map[string]*Handle
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]*Handle)}
}

// Subscribe registers a push handle for the session id. A prior handle for
// the same id is superseded: closed cleanly, without a logout event.
func (b *Broker) Subscribe(sessionID string) *Handle {
	h := &Handle{
		sessionID: sessionID,
		events:    make(chan Event, 1),
		done:      make(chan struct{}),
	}

	b.mu.Lock()
	prev := b.subs[sessionID]
	b.subs[sessionID] = h
	b.mu.Unlock()

	if prev != nil {
		// Superseded, not added: the map size did not change.
		prev.close()
		log.Debug().Str("sessionID", sessionID).Msg("live: subscriber superseded")
	} else {
		metrics.LiveSubscribersGauge.Inc()
	}
	return h
}

// Unsubscribe removes the registration if h is still the current handle for
// its session id. Called when a connection completes or drops so the
// registry never accumulates stale entries. Safe to call more than once.
func (b *Broker) Unsubscribe(h *Handle) {
	if h == nil {
		return
	}
	b.mu.Lock()
	current, ok := b.subs[h.sessionID]
	if ok && current == h {
		delete(b.subs, h.sessionID)
		metrics.LiveSubscribersGauge.Dec()
	}
	b.mu.Unlock()
	h.close()
}

// Publish delivers the logout event to the session's subscriber, closes the
// handle and removes the registration. With no subscriber registered it is a
// silent no-op: the user may simply not be connected right now.
func (b *Broker) Publish(sessionID string) {
	b.mu.Lock()
	h, ok := b.subs[sessionID]
	if ok {
		delete(b.subs, sessionID)
		metrics.LiveSubscribersGauge.Dec()
	}
	b.mu.Unlock()

	if !ok {
		log.Debug().Str("sessionID", sessionID).Msg("live: no subscriber for revoked session")
		return
	}

	// Buffered cap 1 and the handle is already out of the map, so the send
	// cannot block and cannot race another publisher.
	h.events <- LogoutEvent
	h.close()
	metrics.LiveEventsPublishedTotal.Inc()
	log.Debug().Str("sessionID", sessionID).Msg("live: logout event published")
}

// PublishMany publishes to each session independently; a missing subscriber
// on one id does not affect the others.
func (b *Broker) PublishMany(sessionIDs []string) {
	for _, id := range sessionIDs {
		b.Publish(id)
	}
}

// Count returns the number of registered subscribers.
func (b *Broker) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
