package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"CollabBoard/internal/protocol"
)

// DefaultRetry is how long a Link waits between connection attempts.
const DefaultRetry = time.Second

// Link keeps a session to the relay alive, redialling whenever it drops.
// Every new connection starts with a fresh init, so a reconnect resyncs the
// whole board.
type Link struct {
	URL   string
	Retry time.Duration

	// OnStatus, if set, is called from the Run goroutine when the link
	// connects (err == nil) or drops.
	OnStatus func(connected bool, err error)

	log *slog.Logger

	mu   sync.Mutex
	sess *Session
}

func NewLink(url string, log *slog.Logger) *Link {
	if log == nil {
		log = slog.Default()
	}
	return &Link{URL: url, Retry: DefaultRetry, log: log}
}

// Send forwards msg on the live session, or returns ErrNotConnected.
func (l *Link) Send(msg protocol.Message) error {
	l.mu.Lock()
	sess := l.sess
	l.mu.Unlock()
	if sess == nil {
		return ErrNotConnected
	}
	return sess.Send(msg)
}

// Connected reports whether a session is currently live.
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sess != nil
}

// Run connects and feeds every received message to handle until ctx is
// done. handle is always called from the Run goroutine.
func (l *Link) Run(ctx context.Context, handle func(protocol.Message)) error {
	retry := l.Retry
	if retry <= 0 {
		retry = DefaultRetry
	}

	for {
		err := l.session(ctx, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.log.Warn("relay connection lost", "url", l.URL, "err", err)
		l.status(false, err)

		t := time.NewTimer(retry)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
}

func (l *Link) session(ctx context.Context, handle func(protocol.Message)) error {
	sess, err := Dial(ctx, l.URL)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.sess = sess
	l.mu.Unlock()
	l.log.Info("connected to relay", "url", l.URL)
	l.status(true, nil)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = sess.Close()
		case <-done:
		}
	}()

	defer func() {
		l.mu.Lock()
		l.sess = nil
		l.mu.Unlock()
		_ = sess.Close()
	}()

	for {
		msg, err := sess.Receive()
		if errors.Is(err, protocol.ErrMalformed) {
			l.log.Warn("ignoring malformed frame from relay", "err", err)
			continue
		} else if err != nil {
			return err
		}
		handle(msg)
	}
}

func (l *Link) status(connected bool, err error) {
	if l.OnStatus != nil {
		l.OnStatus(connected, err)
	}
}
