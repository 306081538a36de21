package api

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/rovermx/groundstation/internal/domain"
)

const writeTimeout = 10 * time.Second

// liveEvent is the wire shape of one live-push notification. Event is
// always "newData" for persisted samples.
type liveEvent struct {
	Event string         `json:"event"`
	Data  *domain.Sample `json:"data"`
}

// handleLive upgrades the connection and streams every broadcast sample
// until the viewer disconnects or the session is dropped by the hub.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.obs.LogError("live_accept_failed", err)
		return
	}

	session := s.hub.Register()
	defer s.hub.Unregister(session)

	// No client-to-server messages are expected; CloseRead surfaces the
	// peer going away through context cancellation.
	ctx := conn.CloseRead(r.Context())
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		select {
		case <-ctx.Done():
			return
		case sample, ok := <-session.Receive():
			if !ok {
				// Dropped by the hub (slow consumer or shutdown).
				conn.Close(websocket.StatusTryAgainLater, "session dropped")
				return
			}
			if err := s.writeEvent(ctx, conn, sample); err != nil {
				s.obs.LogError("live_write_failed", err)
				return
			}
		}
	}
}

func (s *Server) writeEvent(ctx context.Context, conn *websocket.Conn, sample *domain.Sample) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, liveEvent{Event: "newData", Data: sample})
}
