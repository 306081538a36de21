package api

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/rovermx/groundstation/internal/app/ingest"
	"github.com/rovermx/groundstation/internal/domain"
)

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + "/live"
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn) liveEvent {
	t.Helper()
	var ev liveEvent
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func TestLivePushDeliversNewDataEvents(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(f.ts.URL), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Wait for the session to register before broadcasting.
	deadline := time.Now().Add(time.Second)
	for f.hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session never registered")
		}
		time.Sleep(time.Millisecond)
	}

	sample := &domain.Sample{
		ID: "abc", Timestamp: time.Now(),
		Lat: 19.24, Lng: -103.7, Temperature: 25.4, Pressure: 1013.2,
	}
	f.hub.Broadcast(sample)

	ev := readEvent(t, ctx, conn)
	if ev.Event != "newData" {
		t.Fatalf("expected newData event, got %q", ev.Event)
	}
	if ev.Data == nil || ev.Data.ID != "abc" || ev.Data.Temperature != 25.4 {
		t.Fatalf("unexpected payload: %+v", ev.Data)
	}
}

func TestLivePushCarriesPersistedSampleFromIngest(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(f.ts.URL), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	deadline := time.Now().Add(time.Second)
	for f.hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session never registered")
		}
		time.Sleep(time.Millisecond)
	}

	coord := ingest.New(f.store, f.hub, nopObs{})
	lat, lng, temp, press := 19.24, -103.7, 25.4, 1013.2
	stored, err := coord.Accept(context.Background(), &domain.Candidate{
		Lat: &lat, Lng: &lng, Temperature: &temp, Pressure: &press,
	})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	ev := readEvent(t, ctx, conn)
	if ev.Data.ID != stored.ID {
		t.Fatalf("event id %s does not match persisted id %s", ev.Data.ID, stored.ID)
	}

	// The id announced over the live channel must already resolve via Get.
	if _, err := f.store.FindByID(context.Background(), ev.Data.ID); err != nil {
		t.Fatalf("announced sample not readable: %v", err)
	}
}

func TestLiveViewerDisconnectUnregistersSession(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(f.ts.URL), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for f.hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session never registered")
		}
		time.Sleep(time.Millisecond)
	}

	conn.Close(websocket.StatusNormalClosure, "")

	deadline = time.Now().Add(2 * time.Second)
	for f.hub.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session not unregistered after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
