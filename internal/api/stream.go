package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/solution-builder/internal/reconciler"
	"github.com/terra-clan/solution-builder/internal/session"
	"github.com/terra-clan/solution-builder/internal/wizard"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamMessage is a frame exchanged on the session websocket.
// The server sends "connected", "snapshot", "warning", "error" and "closed"
// frames; clients may send "event" frames carrying a wizard event.
type StreamMessage struct {
	Type     string            `json:"type"`
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
	Event    *wizard.Event     `json:"event,omitempty"`
	Message  string            `json:"message,omitempty"`
}

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	client := ClientFromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(streamPongWait)) //nolint:errcheck
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	slog.Info("session stream connected", "session_id", sess.ID, "client_id", sess.ClientID)

	// gorilla connections support one concurrent writer
	var writeMu sync.Mutex
	send := func(msg StreamMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return s.sendStreamMessage(conn, msg)
	}

	snap := sess.Snapshot()
	if err := send(StreamMessage{Type: "connected", Snapshot: &snap}); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	// Session changes -> WebSocket
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		ticker := time.NewTicker(streamPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-updates:
				if !ok {
					// session ended
					send(StreamMessage{Type: "closed", Message: "session ended"}) //nolint:errcheck
					return
				}
				if err := send(StreamMessage{Type: "snapshot", Snapshot: &snap}); err != nil {
					return
				}
			case <-ticker.C:
				writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait))
				writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	// WebSocket -> session
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}

			var msg StreamMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				slog.Debug("invalid message format", "error", err)
				continue
			}

			if msg.Type != "event" || msg.Event == nil {
				continue
			}

			// the resulting snapshot reaches the client through the subscription
			_, err = s.applyEvent(ctx, client, sess, *msg.Event)
			switch {
			case err == nil:
			case errors.Is(err, reconciler.ErrNotFoundWarning):
				send(StreamMessage{Type: "warning", Message: err.Error()}) //nolint:errcheck
			default:
				s.sendStreamError(send, err)
			}
		}
	}()

	<-ctx.Done()
	// unblock the reader
	conn.Close()
	wg.Wait()
	slog.Info("session stream disconnected", "session_id", sess.ID)
}

func (s *Server) sendStreamMessage(conn *websocket.Conn, msg StreamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal stream message", "error", err)
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(streamWriteWait)) //nolint:errcheck
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send stream message", "error", err)
		return err
	}
	return nil
}

func (s *Server) sendStreamError(send func(StreamMessage) error, err error) {
	send(StreamMessage{ //nolint:errcheck
		Type:    "error",
		Message: err.Error(),
	})
}
