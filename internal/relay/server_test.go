package relay

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CollabBoard/internal/protocol"
	"CollabBoard/internal/state"
)

func startServer(t *testing.T, store *state.Store, opts Options) (*httptest.Server, *Hub) {
	t.Helper()
	hub := NewHub(store, nil, nil)
	srv := httptest.NewServer(NewServer(hub, opts).Handler())
	t.Cleanup(srv.Close)
	return srv, hub
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, path), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := protocol.Decode(data)
	require.NoError(t, err)
	return msg
}

func send(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(raw)))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	assert.Eventually(t, cond, 5*time.Second, 10*time.Millisecond)
}

func TestHTTPRoutes(t *testing.T) {
	srv, _ := startServer(t, state.NewStore(state.WelcomeNote()), Options{})

	t.Run("root answers plain requests with the banner", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, Banner, string(body))
	})

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "ok", string(body))
	})

	t.Run("snapshot", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/snapshot")
		require.NoError(t, err)
		defer resp.Body.Close()
		var snap state.Snapshot
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
		assert.Equal(t, []state.StickyNote{state.WelcomeNote()}, snap.Notes)
		assert.Empty(t, snap.Drawings)
	})

	t.Run("export.pdf", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/export.pdf")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
		assert.True(t, strings.HasPrefix(string(body), "%PDF-"))
	})
}

func TestTwoClientScenario(t *testing.T) {
	srv, hub := startServer(t, state.NewStore(), Options{})

	a := dial(t, srv, "/")
	assert.Equal(t, protocol.KindInit, read(t, a).Type)
	b := dial(t, srv, "/ws")
	assert.Equal(t, protocol.KindInit, read(t, b).Type)
	waitFor(t, func() bool { return hub.PeerCount() == 2 })

	send(t, a, `{"type":"updateNotes","data":[{"id":1,"text":"New Idea","x":60,"y":70,"color":"#ffeb3b"}]}`)
	msg := read(t, b)
	require.Equal(t, protocol.KindUpdateNotes, msg.Type)
	notes, err := msg.Notes()
	require.NoError(t, err)
	assert.Equal(t, []state.StickyNote{{ID: state.NumericID(1), Text: "New Idea", X: 60, Y: 70, Color: "#ffeb3b"}}, notes)

	send(t, a, `{"type":"draw","data":{"x0":0,"y0":0,"x1":10,"y1":10}}`)
	msg = read(t, b)
	require.Equal(t, protocol.KindDraw, msg.Type)
	seg, err := msg.Segment()
	require.NoError(t, err)
	assert.Equal(t, state.LineSegment{X1: 10, Y1: 10}, seg)

	send(t, a, `{"type":"deleteNote","data":{"id":1}}`)
	msg = read(t, b)
	require.Equal(t, protocol.KindUpdateNotes, msg.Type)
	notes, err = msg.Notes()
	require.NoError(t, err)
	assert.Empty(t, notes)
	assert.Empty(t, hub.Store().Notes())

	// a never hears its own frames echoed back.
	require.NoError(t, a.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = a.ReadMessage()
	assert.Error(t, err)
}

func TestLateJoinerGetsHistoryFirst(t *testing.T) {
	store := state.NewStore()
	store.ReplaceNotes([]state.StickyNote{{ID: state.NumericID(1)}, {ID: state.NumericID(2)}})
	for i := 0; i < 5; i++ {
		store.AppendDrawing(state.LineSegment{X0: float64(i)})
	}
	srv, _ := startServer(t, store, Options{})

	conn := dial(t, srv, "/")
	msg := read(t, conn)
	require.Equal(t, protocol.KindInit, msg.Type)
	snap, err := msg.Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Drawings, 5)
	assert.Len(t, snap.Notes, 2)
}

func TestMalformedFrameKeepsConnectionOpen(t *testing.T) {
	srv, hub := startServer(t, state.NewStore(), Options{})
	a := dial(t, srv, "/")
	read(t, a)
	b := dial(t, srv, "/")
	read(t, b)
	waitFor(t, func() bool { return hub.PeerCount() == 2 })

	send(t, a, `{"type":"draw","data":`)
	send(t, a, `{"type":"nope"}`)
	send(t, a, `{"type":"clearBoard"}`)

	assert.Equal(t, protocol.KindClearBoard, read(t, b).Type)
	assert.Equal(t, 2, hub.PeerCount())
}

func TestDisconnectLeavesState(t *testing.T) {
	srv, hub := startServer(t, state.NewStore(), Options{PingInterval: 50 * time.Millisecond})
	a := dial(t, srv, "/")
	read(t, a)
	send(t, a, `{"type":"draw","data":{"x0":1,"y0":1,"x1":2,"y1":2}}`)
	waitFor(t, func() bool { return hub.Store().DrawingCount() == 1 })

	require.NoError(t, a.Close())
	waitFor(t, func() bool { return hub.PeerCount() == 0 })
	assert.Equal(t, 1, hub.Store().DrawingCount())
}

func TestOversizedFrameClosesConnection(t *testing.T) {
	srv, hub := startServer(t, state.NewStore(), Options{MaxMessageBytes: 64})
	a := dial(t, srv, "/")
	read(t, a)
	waitFor(t, func() bool { return hub.PeerCount() == 1 })

	send(t, a, `{"type":"draw","data":{"x0":1,"y0":1,"x1":2,"y1":2,"color":"`+strings.Repeat("f", 128)+`"}}`)
	waitFor(t, func() bool { return hub.PeerCount() == 0 })
	assert.Equal(t, 0, hub.Store().DrawingCount())
}
