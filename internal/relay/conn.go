package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"CollabBoard/internal/protocol"
)

const writeWait = 10 * time.Second

// pongWait is how long a peer may stay silent after a ping.
func pongWait(ping time.Duration) time.Duration {
	return ping * 2
}

// serveConn runs one websocket connection until either side closes it.
// The peer must already be registered, so its init frame is queued before
// the reader starts handing frames to the hub.
func (s *Server) serveConn(conn *websocket.Conn, p *Peer) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writePump(conn, p)
	}()
	s.readPump(conn, p)
	s.hub.Unregister(p)
	<-done
}

func (s *Server) readPump(conn *websocket.Conn, p *Peer) {
	defer conn.Close()

	if s.maxMessageBytes > 0 {
		conn.SetReadLimit(s.maxMessageBytes)
	}
	if s.pingInterval > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait(s.pingInterval)))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait(s.pingInterval)))
		})
	}

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.log.Warn("read failed", "peer", p.ID, "err", err)
			} else {
				s.log.Debug("connection closed", "peer", p.ID, "err", err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		if s.pingInterval > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(pongWait(s.pingInterval)))
		}

		if err := s.hub.Handle(p, data); err != nil {
			if errors.Is(err, ErrPeerClosed) {
				return
			}
			level := slog.LevelError
			if errors.Is(err, protocol.ErrMalformed) {
				level = slog.LevelWarn
			}
			s.log.Log(context.Background(), level, "dropped message", "peer", p.ID, "err", err)
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, p *Peer) {
	var tick <-chan time.Time
	if s.pingInterval > 0 {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer conn.Close()

	for {
		select {
		case data, ok := <-p.Outbound():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.log.Warn("write failed", "peer", p.ID, "err", err)
				return
			}
		case <-tick:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Debug("ping failed", "peer", p.ID, "err", err)
				return
			}
		}
	}
}
