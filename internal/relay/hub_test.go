package relay

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CollabBoard/internal/protocol"
	"CollabBoard/internal/state"
)

type recordingTap struct {
	mu     sync.Mutex
	kinds  []protocol.Kind
	frames [][]byte
}

func (r *recordingTap) Publish(kind protocol.Kind, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
	r.frames = append(r.frames, data)
}

func newTestHub(t *testing.T, seed ...state.StickyNote) (*Hub, *recordingTap) {
	t.Helper()
	tap := &recordingTap{}
	return NewHub(state.NewStore(seed...), tap, nil), tap
}

// connect registers a peer and consumes its init frame.
func connect(t *testing.T, h *Hub) (*Peer, state.Snapshot) {
	t.Helper()
	p := NewPeer(16)
	require.NoError(t, h.Register(p))
	msg := nextMessage(t, p)
	require.Equal(t, protocol.KindInit, msg.Type)
	snap, err := msg.Snapshot()
	require.NoError(t, err)
	return p, snap
}

func nextMessage(t *testing.T, p *Peer) protocol.Message {
	t.Helper()
	select {
	case raw, ok := <-p.Outbound():
		require.True(t, ok, "peer queue closed")
		msg, err := protocol.Decode(raw)
		require.NoError(t, err)
		return msg
	default:
		t.Fatalf("peer %s has nothing queued", p.ID)
		return protocol.Message{}
	}
}

func assertNothingQueued(t *testing.T, p *Peer) {
	t.Helper()
	assert.Len(t, p.send, 0, "peer %s should not have received anything", p.ID)
}

func encode(t *testing.T, kind protocol.Kind, payload any) []byte {
	t.Helper()
	raw, err := protocol.Encode(kind, payload)
	require.NoError(t, err)
	return raw
}

func TestRegisterSendsInitFirst(t *testing.T) {
	h, _ := newTestHub(t)
	a, _ := connect(t, h)
	for i := 0; i < 5; i++ {
		require.NoError(t, h.Handle(a, encode(t, protocol.KindDraw, state.LineSegment{X1: float64(i)})))
	}
	require.NoError(t, h.Handle(a, encode(t, protocol.KindUpdateNotes, []state.StickyNote{
		{ID: state.NumericID(1)}, {ID: state.NumericID(2)},
	})))

	_, snap := connect(t, h)
	assert.Len(t, snap.Drawings, 5)
	assert.Len(t, snap.Notes, 2)
}

func TestSenderExclusion(t *testing.T) {
	h, _ := newTestHub(t)
	a, _ := connect(t, h)
	b, _ := connect(t, h)
	c, _ := connect(t, h)

	frames := [][]byte{
		encode(t, protocol.KindUpdateNotes, []state.StickyNote{{ID: state.NumericID(1)}}),
		encode(t, protocol.KindDeleteNote, protocol.DeletePayload{ID: state.NumericID(1)}),
		encode(t, protocol.KindDraw, state.LineSegment{X1: 1}),
		encode(t, protocol.KindClearBoard, protocol.ClearPayload{}),
	}
	for _, f := range frames {
		require.NoError(t, h.Handle(a, f))
	}

	assertNothingQueued(t, a)
	for _, p := range []*Peer{b, c} {
		assert.Equal(t, protocol.KindUpdateNotes, nextMessage(t, p).Type)
		assert.Equal(t, protocol.KindUpdateNotes, nextMessage(t, p).Type, "deleteNote is rebroadcast as updateNotes")
		assert.Equal(t, protocol.KindDraw, nextMessage(t, p).Type)
		assert.Equal(t, protocol.KindClearBoard, nextMessage(t, p).Type)
	}
}

func TestHandleMutations(t *testing.T) {
	t.Run("updateNotes is relayed as stored", func(t *testing.T) {
		h, tap := newTestHub(t)
		a, _ := connect(t, h)
		b, _ := connect(t, h)

		raw := []byte(`{"type":"updateNotes","data":[{"id":1,"text":"New Idea","x":null,"y":70,"color":"#ffeb3b","votes":3}],"extra":true}`)
		require.NoError(t, h.Handle(a, raw))
		stored := []state.StickyNote{{ID: state.NumericID(1), Text: "New Idea", Y: 70, Color: "#ffeb3b"}}
		assert.Equal(t, stored, h.Store().Notes())

		relayed := <-b.Outbound()
		assert.JSONEq(t, string(encode(t, protocol.KindUpdateNotes, stored)), string(relayed))
		assert.NotContains(t, string(relayed), "votes")
		assert.Equal(t, relayed, tap.frames[len(tap.frames)-1])

		// A peer joining now sees exactly what b was sent.
		_, snap := connect(t, h)
		msg, err := protocol.Decode(relayed)
		require.NoError(t, err)
		notes, err := msg.Notes()
		require.NoError(t, err)
		assert.Equal(t, snap.Notes, notes)
	})

	t.Run("draw is relayed as stored", func(t *testing.T) {
		h, _ := newTestHub(t)
		a, _ := connect(t, h)
		b, _ := connect(t, h)

		require.NoError(t, h.Handle(a, []byte(`{"type":"draw","data":{"x0":1,"y0":2,"x1":3,"y1":4,"width":9}}`)))
		relayed := <-b.Outbound()
		assert.JSONEq(t, string(encode(t, protocol.KindDraw, state.LineSegment{X0: 1, Y0: 2, X1: 3, Y1: 4})), string(relayed))
	})

	t.Run("deleteNote broadcasts the full remaining list", func(t *testing.T) {
		h, _ := newTestHub(t, state.WelcomeNote(), state.StickyNote{ID: state.StringID("keep")})
		a, _ := connect(t, h)
		b, _ := connect(t, h)

		require.NoError(t, h.Handle(a, encode(t, protocol.KindDeleteNote, protocol.DeletePayload{ID: state.NumericID(1)})))
		notes, err := nextMessage(t, b).Notes()
		require.NoError(t, err)
		assert.Equal(t, []state.StickyNote{{ID: state.StringID("keep")}}, notes)
	})

	t.Run("deleting an unknown id still broadcasts the unchanged list", func(t *testing.T) {
		h, _ := newTestHub(t, state.WelcomeNote())
		a, _ := connect(t, h)
		b, _ := connect(t, h)

		require.NoError(t, h.Handle(a, encode(t, protocol.KindDeleteNote, protocol.DeletePayload{ID: state.NumericID(99)})))
		notes, err := nextMessage(t, b).Notes()
		require.NoError(t, err)
		assert.Equal(t, []state.StickyNote{state.WelcomeNote()}, notes)
	})

	t.Run("drawing history only grows until cleared", func(t *testing.T) {
		h, _ := newTestHub(t)
		a, _ := connect(t, h)
		last := 0
		for i := 0; i < 3; i++ {
			require.NoError(t, h.Handle(a, encode(t, protocol.KindDraw, state.LineSegment{X0: float64(i)})))
			assert.GreaterOrEqual(t, h.Store().DrawingCount(), last)
			last = h.Store().DrawingCount()
		}
		require.NoError(t, h.Handle(a, []byte(`{"type":"clearBoard"}`)))
		assert.Equal(t, 0, h.Store().DrawingCount())
	})
}

func TestHandleErrors(t *testing.T) {
	h, tap := newTestHub(t, state.WelcomeNote())
	a, _ := connect(t, h)
	b, _ := connect(t, h)

	t.Run("malformed frames are dropped", func(t *testing.T) {
		for _, raw := range []string{
			`not json`,
			`{"type":"updateNotes","data":{"oops":1}}`,
			`{"type":"draw","data":{"x0":"abc"}}`,
			`{"type":"deleteNote"}`,
		} {
			err := h.Handle(a, []byte(raw))
			assert.ErrorIs(t, err, protocol.ErrMalformed, raw)
		}
		assert.Equal(t, []state.StickyNote{state.WelcomeNote()}, h.Store().Notes())
		assert.Equal(t, 0, h.Store().DrawingCount())
		assertNothingQueued(t, b)
	})

	t.Run("unknown kinds are ignored", func(t *testing.T) {
		assert.NoError(t, h.Handle(a, []byte(`{"type":"cursor","data":{"x":1}}`)))
		assert.NoError(t, h.Handle(a, encode(t, protocol.KindInit, state.Snapshot{})))
		assert.Equal(t, []state.StickyNote{state.WelcomeNote()}, h.Store().Notes())
		assertNothingQueued(t, b)
	})

	t.Run("connection keeps working after a bad frame", func(t *testing.T) {
		require.NoError(t, h.Handle(a, encode(t, protocol.KindDraw, state.LineSegment{X1: 5})))
		assert.Equal(t, protocol.KindDraw, nextMessage(t, b).Type)
	})

	assert.Equal(t, []protocol.Kind{protocol.KindDraw}, tap.kinds)
}

func TestSlowPeerIsDropped(t *testing.T) {
	h, _ := newTestHub(t)
	a, _ := connect(t, h)
	fast, _ := connect(t, h)

	slow := NewPeer(2)
	require.NoError(t, h.Register(slow)) // init fills one of two slots
	require.Equal(t, 3, h.PeerCount())

	for i := 0; i < 3; i++ {
		require.NoError(t, h.Handle(a, encode(t, protocol.KindDraw, state.LineSegment{X0: float64(i)})))
	}

	assert.Equal(t, 2, h.PeerCount())
	for i := 0; i < 3; i++ {
		seg, err := nextMessage(t, fast).Segment()
		require.NoError(t, err)
		assert.Equal(t, float64(i), seg.X0, "fast peer still sees every frame in order")
	}

	// The slow peer's queue drains what it had and then reports closed.
	var drained int
	for range slow.Outbound() {
		drained++
	}
	assert.Equal(t, 2, drained)

	assert.ErrorIs(t, h.Handle(slow, encode(t, protocol.KindClearBoard, protocol.ClearPayload{})), ErrPeerClosed)
}

func TestUnregister(t *testing.T) {
	h, _ := newTestHub(t)
	a, _ := connect(t, h)
	b, _ := connect(t, h)

	h.Unregister(b)
	h.Unregister(b)
	assert.Equal(t, 1, h.PeerCount())

	require.NoError(t, h.Handle(a, encode(t, protocol.KindDraw, state.LineSegment{})))
	assert.Equal(t, 1, h.Store().DrawingCount(), "state contributed by others is untouched")
	_, ok := <-b.Outbound()
	assert.False(t, ok)
}

func TestClose(t *testing.T) {
	h, _ := newTestHub(t)
	a, _ := connect(t, h)
	b, _ := connect(t, h)

	h.Close()
	assert.Equal(t, 0, h.PeerCount())
	for _, p := range []*Peer{a, b} {
		_, ok := <-p.Outbound()
		assert.False(t, ok)
	}
	assert.ErrorIs(t, h.Handle(a, encode(t, protocol.KindDraw, state.LineSegment{})), ErrPeerClosed)
	assert.Equal(t, 0, h.Store().DrawingCount())
}

func TestConcurrentSendersKeepOrder(t *testing.T) {
	h, _ := newTestHub(t)
	observer := NewPeer(1024)
	require.NoError(t, h.Register(observer))
	<-observer.Outbound()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		// Senders also receive each other's frames, so give them room.
		p := NewPeer(1024)
		require.NoError(t, h.Register(p))
		wg.Add(1)
		go func(p *Peer) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				raw, _ := protocol.Encode(protocol.KindDraw, state.LineSegment{X0: float64(i)})
				_ = h.Handle(p, raw)
			}
		}(p)
	}
	wg.Wait()

	snap := h.Store().Snapshot()
	require.Len(t, snap.Drawings, 200)
	for i := 0; i < 200; i++ {
		seg, err := nextMessage(t, observer).Segment()
		require.NoError(t, err)
		assert.Equal(t, snap.Drawings[i], seg, "observer order matches store order at %d", i)
	}
}
