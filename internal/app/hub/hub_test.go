package hub

import (
	"sync"
	"testing"
	"time"

	"github.com/rovermx/groundstation/internal/domain"
	"github.com/rovermx/groundstation/internal/ports"
)

type nopObs struct{}

func (nopObs) LogInfo(string, ...ports.Field)            {}
func (nopObs) LogError(string, error, ...ports.Field)    {}
func (nopObs) LogCritical(string, error, ...ports.Field) {}
func (nopObs) IncCounter(string, float64)                {}
func (nopObs) ObserveLatency(string, float64)            {}
func (nopObs) SetGauge(string, float64)                  {}

func sampleWithID(id string) *domain.Sample {
	return &domain.Sample{ID: id, Lat: 19.24, Lng: -103.7, Temperature: 25.4, Pressure: 1013.2}
}

func drainOne(t *testing.T, s *Session) *domain.Sample {
	t.Helper()
	select {
	case got, ok := <-s.Receive():
		if !ok {
			t.Fatalf("session channel closed unexpectedly")
		}
		return got
	case <-time.After(time.Second):
		t.Fatalf("no sample delivered")
		return nil
	}
}

func TestBroadcastReachesEveryRegisteredSession(t *testing.T) {
	h := New(4, nopObs{})

	s1 := h.Register()
	s2 := h.Register()
	s3 := h.Register()

	h.Broadcast(sampleWithID("a"))

	for _, s := range []*Session{s1, s2, s3} {
		if got := drainOne(t, s); got.ID != "a" {
			t.Fatalf("expected sample a, got %s", got.ID)
		}
	}
}

func TestUnregisteredSessionMissesSubsequentBroadcasts(t *testing.T) {
	h := New(4, nopObs{})

	s1 := h.Register()
	s2 := h.Register()
	s3 := h.Register()

	h.Broadcast(sampleWithID("a"))
	h.Unregister(s2)
	h.Broadcast(sampleWithID("b"))

	if got := drainOne(t, s1); got.ID != "a" {
		t.Fatalf("unexpected order for s1: %s", got.ID)
	}
	if got := drainOne(t, s1); got.ID != "b" {
		t.Fatalf("s1 should see b, got %s", got.ID)
	}
	if got := drainOne(t, s3); got.ID != "a" {
		t.Fatalf("unexpected order for s3: %s", got.ID)
	}
	if got := drainOne(t, s3); got.ID != "b" {
		t.Fatalf("s3 should see b, got %s", got.ID)
	}

	// s2 got a, then its channel closed; b never arrives.
	if got := drainOne(t, s2); got.ID != "a" {
		t.Fatalf("s2 should still have a, got %s", got.ID)
	}
	select {
	case got, ok := <-s2.Receive():
		if ok {
			t.Fatalf("unregistered session received %s", got.ID)
		}
	case <-time.After(time.Second):
		t.Fatalf("unregistered session channel should be closed")
	}
}

func TestSlowSessionIsDroppedWithoutBlockingOthers(t *testing.T) {
	h := New(1, nopObs{})

	slow := h.Register()
	fast := h.Register()

	// Fill slow's buffer, then broadcast again: slow must be dropped.
	h.Broadcast(sampleWithID("a"))
	h.Broadcast(sampleWithID("b"))

	if h.Len() != 1 {
		t.Fatalf("slow session should be dropped, have %d sessions", h.Len())
	}
	_ = slow

	if got := drainOne(t, fast); got.ID != "a" {
		t.Fatalf("fast session missed a: %s", got.ID)
	}
	// fast has buffer 1, so b dropped it too... verify it is gone as well.
	if h.Len() != 0 {
		t.Fatalf("expected both buffer-1 sessions dropped after second broadcast, have %d", h.Len())
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := New(4, nopObs{})
	s := h.Register()

	h.Unregister(s)
	h.Unregister(s)

	if h.Len() != 0 {
		t.Fatalf("expected empty hub, got %d", h.Len())
	}
}

func TestCloseClosesAllSessions(t *testing.T) {
	h := New(4, nopObs{})
	s1 := h.Register()
	s2 := h.Register()

	h.Close()

	for _, s := range []*Session{s1, s2} {
		if _, ok := <-s.Receive(); ok {
			t.Fatalf("expected closed channel after hub close")
		}
	}
	if h.Len() != 0 {
		t.Fatalf("expected empty hub after close")
	}
}

func TestConcurrentRegisterUnregisterBroadcast(t *testing.T) {
	h := New(2, nopObs{})

	stop := make(chan struct{})
	broadcasterDone := make(chan struct{})
	go func() {
		defer close(broadcasterDone)
		for {
			select {
			case <-stop:
				return
			default:
				h.Broadcast(sampleWithID("x"))
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s := h.Register()
				select {
				case <-s.Receive():
				default:
				}
				h.Unregister(s)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("concurrent register/unregister/broadcast deadlocked")
	}
	close(stop)
	<-broadcasterDone
}
