package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"CollabBoard/internal/protocol"
	"CollabBoard/internal/state"
)

// ErrPeerClosed is returned when a message arrives from a peer the hub has
// already dropped.
var ErrPeerClosed = errors.New("peer closed")

// Tap observes every mutation the hub applies. Publish must not block.
type Tap interface {
	Publish(kind protocol.Kind, data []byte)
}

// Peer is one connected client as seen by the hub. Outbound frames are
// queued on send and written by the connection's writer goroutine.
type Peer struct {
	ID     string
	send   chan []byte
	closed bool
}

// NewPeer creates a peer with an outbound queue of the given length.
func NewPeer(buffer int) *Peer {
	if buffer < 1 {
		buffer = 1
	}
	return &Peer{
		ID:   uuid.NewString(),
		send: make(chan []byte, buffer),
	}
}

// Outbound is the queue the writer drains. It is closed once the hub drops
// the peer.
func (p *Peer) Outbound() <-chan []byte {
	return p.send
}

// Hub owns the board store and the set of connected peers. All mutations
// and the fan-out that follows them run under one lock, so every peer sees
// relayed messages in the order the hub applied them.
type Hub struct {
	store *state.Store
	peers map[*Peer]struct{}
	tap   Tap
	log   *slog.Logger
	mu    sync.Mutex
}

// NewHub creates a hub over store. tap may be nil.
func NewHub(store *state.Store, tap Tap, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		store: store,
		peers: make(map[*Peer]struct{}),
		tap:   tap,
		log:   log,
	}
}

// Store returns the hub's board store.
func (h *Hub) Store() *state.Store {
	return h.store
}

// Register queues the init snapshot for p and adds it to the broadcast set.
// Both happen under the hub lock, so init is always the first frame p sees
// and no mutation can slip in between the snapshot and the registration.
func (h *Hub) Register(p *Peer) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg, err := protocol.Init(h.store.Snapshot())
	if err != nil {
		return err
	}
	raw, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("failed to encode init: %w", err)
	}
	select {
	case p.send <- raw:
	default:
		return fmt.Errorf("failed to queue init for peer %s: queue full", p.ID)
	}

	h.peers[p] = struct{}{}
	h.log.Info("client connected", "peer", p.ID, "peers", len(h.peers))
	return nil
}

// Unregister drops p from the broadcast set. Safe to call more than once.
func (h *Hub) Unregister(p *Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(p, "disconnected")
}

// Close drops every peer. Their writers send a close frame and hang up.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for p := range h.peers {
		h.dropLocked(p, "relay shutting down")
	}
}

// PeerCount returns the number of registered peers.
func (h *Hub) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

// Handle applies one inbound frame from sender and relays it to everyone
// else. Malformed frames are returned as errors wrapping
// protocol.ErrMalformed and leave the board untouched; unknown kinds are
// ignored.
func (h *Hub) Handle(sender *Peer, raw []byte) error {
	msg, err := protocol.Decode(raw)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if sender != nil && sender.closed {
		return ErrPeerClosed
	}

	var out []byte
	switch msg.Type {
	case protocol.KindUpdateNotes:
		notes, err := msg.Notes()
		if err != nil {
			return err
		}
		h.store.ReplaceNotes(notes)
		if out, err = encodeFrame(protocol.UpdateNotes(h.store.Notes())); err != nil {
			return err
		}

	case protocol.KindDeleteNote:
		id, err := msg.DeleteID()
		if err != nil {
			return err
		}
		removed := h.store.DeleteNote(id)
		h.log.Debug("note deleted", "id", id.String(), "removed", removed)
		if out, err = encodeFrame(protocol.UpdateNotes(h.store.Notes())); err != nil {
			return err
		}

	case protocol.KindDraw:
		seg, err := msg.Segment()
		if err != nil {
			return err
		}
		h.store.AppendDrawing(seg)
		if out, err = encodeFrame(protocol.Draw(seg)); err != nil {
			return err
		}

	case protocol.KindClearBoard:
		h.store.ClearDrawings()
		if out, err = encodeFrame(protocol.ClearBoard()); err != nil {
			return err
		}

	default:
		if msg.Type.Known() {
			h.log.Debug("ignoring server-bound message", "type", string(msg.Type))
		} else {
			h.log.Debug("ignoring unknown message", "type", string(msg.Type))
		}
		return nil
	}

	h.broadcastLocked(out, sender)
	if h.tap != nil {
		h.tap.Publish(msg.Type, out)
	}
	return nil
}

// encodeFrame renders a relayed frame from the decoded payload, so connected
// peers see the same shape a late joiner finds in init.
func encodeFrame(msg protocol.Message, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	out, err := msg.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", msg.Type, err)
	}
	return out, nil
}

// broadcastLocked queues data for every peer except exclude. A peer whose
// queue is full is dropped rather than allowed to stall the others.
func (h *Hub) broadcastLocked(data []byte, exclude *Peer) {
	for p := range h.peers {
		if p == exclude {
			continue
		}
		select {
		case p.send <- data:
		default:
			h.dropLocked(p, "send queue full")
		}
	}
}

func (h *Hub) dropLocked(p *Peer, reason string) {
	if p.closed {
		return
	}
	p.closed = true
	delete(h.peers, p)
	close(p.send)
	h.log.Info("client removed", "peer", p.ID, "reason", reason, "peers", len(h.peers))
}
