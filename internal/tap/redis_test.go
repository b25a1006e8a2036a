package tap

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CollabBoard/internal/protocol"
	"CollabBoard/internal/relay"
	"CollabBoard/internal/state"
)

const testChannel = "collabboard:test"

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func frame(t *testing.T, kind protocol.Kind, payload any) []byte {
	t.Helper()
	raw, err := protocol.Encode(kind, payload)
	require.NoError(t, err)
	return raw
}

func nextEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestPublisherRoundTrip(t *testing.T) {
	_, rdb := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := Subscribe(ctx, rdb, testChannel)
	require.NoError(t, err)

	pub := NewPublisher(rdb, testChannel, 8, nil)
	pub.now = func() time.Time { return time.UnixMilli(1700000000000) }
	go pub.Run(ctx)

	pub.Publish(protocol.KindDraw, frame(t, protocol.KindDraw, state.LineSegment{X1: 3, Y1: 4}))
	pub.Publish(protocol.KindClearBoard, frame(t, protocol.KindClearBoard, protocol.ClearPayload{}))

	ev := nextEvent(t, events)
	assert.Equal(t, protocol.KindDraw, ev.Type)
	assert.Equal(t, int64(1700000000000), ev.AtMS)
	var seg state.LineSegment
	require.NoError(t, json.Unmarshal(ev.Data, &seg))
	assert.Equal(t, state.LineSegment{X1: 3, Y1: 4}, seg)

	ev = nextEvent(t, events)
	assert.Equal(t, protocol.KindClearBoard, ev.Type)
	assert.JSONEq(t, `{}`, string(ev.Data))
}

func TestPublisherDropsWhenFull(t *testing.T) {
	_, rdb := newRedis(t)
	pub := NewPublisher(rdb, testChannel, 2, nil)

	// Run is not started, so nothing drains the queue.
	for i := 0; i < 5; i++ {
		pub.Publish(protocol.KindDraw, frame(t, protocol.KindDraw, state.LineSegment{X0: float64(i)}))
	}
	assert.Equal(t, int64(3), pub.Dropped())
	assert.Len(t, pub.queue, 2)
}

func TestPublisherKeepsRunningWhenRedisFails(t *testing.T) {
	mr, rdb := newRedis(t)
	pub := NewPublisher(rdb, testChannel, 8, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pub.Run(ctx) }()

	mr.Close()
	pub.Publish(protocol.KindClearBoard, frame(t, protocol.KindClearBoard, protocol.ClearPayload{}))
	assert.Eventually(t, func() bool { return len(pub.queue) == 0 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestServeClosesClientAfterRun(t *testing.T) {
	_, rdb := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := Subscribe(ctx, rdb, testChannel)
	require.NoError(t, err)

	// The publisher owns its own client so closing it leaves the subscriber alone.
	pubClient := redis.NewClient(&redis.Options{Addr: rdb.Options().Addr})
	pub := NewPublisher(pubClient, testChannel, 8, nil)
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- pub.Serve(runCtx) }()

	pub.Publish(protocol.KindClearBoard, frame(t, protocol.KindClearBoard, protocol.ClearPayload{}))
	assert.Equal(t, protocol.KindClearBoard, nextEvent(t, events).Type)
	require.NoError(t, pubClient.Ping(ctx).Err(), "client stays open while running")

	stop()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.ErrorIs(t, pubClient.Ping(ctx).Err(), redis.ErrClosed)
}

func TestConnect(t *testing.T) {
	mr, _ := newRedis(t)

	pub, err := Connect(context.Background(), "redis://"+mr.Addr(), testChannel, nil)
	require.NoError(t, err)
	assert.NoError(t, pub.Close())

	_, err = Connect(context.Background(), "not a url", testChannel, nil)
	assert.ErrorContains(t, err, "failed to parse Redis URL")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = Connect(ctx, "redis://127.0.0.1:1", testChannel, nil)
	assert.ErrorContains(t, err, "failed to reach Redis")
}

func TestHubMirrorsMutations(t *testing.T) {
	_, rdb := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := Subscribe(ctx, rdb, testChannel)
	require.NoError(t, err)
	pub := NewPublisher(rdb, testChannel, 8, nil)
	go pub.Run(ctx)

	hub := relay.NewHub(state.NewStore(state.WelcomeNote()), pub, nil)
	a := relay.NewPeer(8)
	require.NoError(t, hub.Register(a))

	require.NoError(t, hub.Handle(a, frame(t, protocol.KindDeleteNote, protocol.DeletePayload{ID: state.NumericID(1)})))
	require.NoError(t, hub.Handle(a, []byte(`{"type":"cursor"}`)))
	require.NoError(t, hub.Handle(a, frame(t, protocol.KindDraw, state.LineSegment{})))

	ev := nextEvent(t, events)
	assert.Equal(t, protocol.KindDeleteNote, ev.Type)
	assert.JSONEq(t, `[]`, string(ev.Data), "deletes carry the resulting note list")
	assert.Equal(t, protocol.KindDraw, nextEvent(t, events).Type)
}
