package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"CollabBoard/internal/protocol"
)

// ErrNotConnected is returned by Send when there is no live connection.
var ErrNotConnected = errors.New("not connected to relay")

const writeWait = 10 * time.Second

// Session is one websocket connection to a relay. Send may be called from
// any goroutine; Receive must only be called from one.
type Session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Dial connects to the relay at url, e.g. ws://localhost:3001/.
func Dial(ctx context.Context, url string) (*Session, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return &Session{conn: conn}, nil
}

// Send writes msg as a single text frame.
func (s *Session) Send(msg protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", msg.Type, err)
	}
	return nil
}

// Receive blocks until the next frame arrives. A frame that does not decode
// returns an error wrapping protocol.ErrMalformed and leaves the session
// usable; any other error means the connection is gone.
func (s *Session) Receive() (protocol.Message, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return protocol.Message{}, err
	}
	return protocol.Decode(data)
}

// SetReadDeadline bounds the next Receive calls. A zero t clears it.
func (s *Session) SetReadDeadline(t time.Time) error {
	return s.conn.SetReadDeadline(t)
}

// Close sends a close frame and tears the connection down.
func (s *Session) Close() error {
	s.mu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.mu.Unlock()
	return s.conn.Close()
}

// Drain sends a close frame and reads until the relay answers with its own,
// so that everything written before it has been read by the relay. It must
// not run concurrently with Receive.
func (s *Session) Drain(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	s.mu.Lock()
	err := s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	s.mu.Unlock()
	if err != nil {
		_ = s.conn.Close()
		return err
	}

	_ = s.conn.SetReadDeadline(deadline)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			_ = s.conn.Close()
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
	}
}
