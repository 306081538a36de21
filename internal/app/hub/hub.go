package hub

import (
	"sync"

	"github.com/rovermx/groundstation/internal/domain"
	"github.com/rovermx/groundstation/internal/ports"
)

// Session is one viewer's live-push connection. It carries no identity,
// only a buffered delivery channel; the channel closes when the session
// is unregistered.
type Session struct {
	mu     sync.Mutex
	ch     chan *domain.Sample
	closed bool
}

// Receive returns the session's delivery channel. It is closed on
// unregistration; a closed channel is the viewer's cue to end the
// connection.
func (s *Session) Receive() <-chan *domain.Sample {
	return s.ch
}

// trySend attempts a non-blocking delivery. Sends and close are mutually
// exclusive so a broadcast racing an unregistration can never hit a
// closed channel.
func (s *Session) trySend(sample *domain.Sample) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- sample:
		return true
	default:
		return false
	}
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Hub owns the set of live viewer sessions and fans newly persisted
// samples out to all of them. The session set is the only concurrently
// mutated structure in the pipeline; a single mutex guards it. Delivery
// is per-session and non-blocking: a session whose buffer is full is
// dropped so it can never stall the broadcast loop or other viewers.
type Hub struct {
	mu       sync.Mutex
	sessions map[*Session]struct{}
	buffer   int
	obs      ports.Observability
}

func New(buffer int, obs ports.Observability) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		sessions: make(map[*Session]struct{}),
		buffer:   buffer,
		obs:      obs,
	}
}

// Register creates a session and adds it to the broadcast set. A session
// registered mid-broadcast may or may not see that broadcast's sample.
func (h *Hub) Register() *Session {
	s := &Session{ch: make(chan *domain.Sample, h.buffer)}

	h.mu.Lock()
	h.sessions[s] = struct{}{}
	n := len(h.sessions)
	h.mu.Unlock()

	h.obs.SetGauge("station_live_sessions", float64(n))
	return s
}

// Unregister removes the session and closes its channel. Safe to call
// more than once and concurrently with Broadcast.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	_, present := h.sessions[s]
	delete(h.sessions, s)
	n := len(h.sessions)
	h.mu.Unlock()

	if present {
		s.close()
		h.obs.SetGauge("station_live_sessions", float64(n))
	}
}

// Broadcast delivers the sample to every currently registered session.
// Each send is isolated: a full buffer unregisters that session and the
// loop moves on.
func (h *Hub) Broadcast(sample *domain.Sample) {
	h.mu.Lock()
	targets := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		if !s.trySend(sample) {
			h.obs.IncCounter("station_sessions_dropped_total", 1)
			h.obs.LogInfo("session_dropped_slow_consumer")
			h.Unregister(s)
		}
	}
}

// Len reports the number of registered sessions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Close unregisters every session, closing all viewer channels. Called
// once during shutdown after ingestion has stopped.
func (h *Hub) Close() {
	h.mu.Lock()
	targets := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		h.Unregister(s)
	}
}

var _ ports.Broadcaster = (*Hub)(nil)
