package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"CollabBoard/internal/state"
)

// Kind names a message type on the wire.
type Kind string

const (
	KindInit        Kind = "init"
	KindUpdateNotes Kind = "updateNotes"
	KindDeleteNote  Kind = "deleteNote"
	KindDraw        Kind = "draw"
	KindClearBoard  Kind = "clearBoard"
)

// ErrMalformed is returned for frames that are not a JSON envelope or whose
// payload does not fit the message kind.
var ErrMalformed = errors.New("malformed message")

// Message is the envelope every frame is wrapped in.
type Message struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// InitPayload is the data of an init message.
type InitPayload = state.Snapshot

// DeletePayload is the data of a deleteNote message.
type DeletePayload struct {
	ID state.NoteID `json:"id"`
}

// ClearPayload is the (unused) data of a clearBoard message.
type ClearPayload struct{}

// New wraps payload into a message of the given kind.
func New(kind Kind, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	return Message{Type: kind, Data: data}, nil
}

// Encode builds the wire form of a message of the given kind.
func Encode(kind Kind, payload any) ([]byte, error) {
	msg, err := New(kind, payload)
	if err != nil {
		return nil, err
	}
	return msg.Bytes()
}

// Bytes returns the wire form of m.
func (m Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses a frame into its envelope. The payload is left raw.
func Decode(raw []byte) (Message, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Message{}, fmt.Errorf("%w: not a JSON object", ErrMalformed)
	}
	var msg Message
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return msg, nil
}

// Bind decodes the payload into v.
func (m Message) Bind(v any) error {
	if len(m.Data) == 0 || bytes.Equal(bytes.TrimSpace(m.Data), []byte("null")) {
		return fmt.Errorf("%w: %s has no data", ErrMalformed, m.Type)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformed, m.Type, err)
	}
	return nil
}

// Notes decodes an updateNotes payload. A null list decodes as empty.
func (m Message) Notes() ([]state.StickyNote, error) {
	var notes []state.StickyNote
	if bytes.Equal(bytes.TrimSpace(m.Data), []byte("null")) {
		return state.CopyNotes(nil), nil
	}
	if err := m.Bind(&notes); err != nil {
		return nil, err
	}
	return state.CopyNotes(notes), nil
}

// Segment decodes a draw payload.
func (m Message) Segment() (state.LineSegment, error) {
	var seg state.LineSegment
	if err := m.Bind(&seg); err != nil {
		return state.LineSegment{}, err
	}
	return seg, nil
}

// DeleteID decodes a deleteNote payload.
func (m Message) DeleteID() (state.NoteID, error) {
	var p DeletePayload
	if err := m.Bind(&p); err != nil {
		return "", err
	}
	return p.ID, nil
}

// Snapshot decodes an init payload.
func (m Message) Snapshot() (state.Snapshot, error) {
	var snap state.Snapshot
	if err := m.Bind(&snap); err != nil {
		return state.Snapshot{}, err
	}
	snap.Notes = state.CopyNotes(snap.Notes)
	snap.Drawings = state.CopySegments(snap.Drawings)
	return snap, nil
}

// Known reports whether kind is part of the protocol.
func (k Kind) Known() bool {
	switch k {
	case KindInit, KindUpdateNotes, KindDeleteNote, KindDraw, KindClearBoard:
		return true
	}
	return false
}

// UpdateNotes builds an updateNotes message.
func UpdateNotes(notes []state.StickyNote) (Message, error) {
	return New(KindUpdateNotes, state.CopyNotes(notes))
}

// Draw builds a draw message.
func Draw(seg state.LineSegment) (Message, error) {
	return New(KindDraw, seg)
}

// DeleteNote builds a deleteNote message.
func DeleteNote(id state.NoteID) (Message, error) {
	return New(KindDeleteNote, DeletePayload{ID: id})
}

// ClearBoard builds a clearBoard message.
func ClearBoard() (Message, error) {
	return New(KindClearBoard, ClearPayload{})
}

// Init builds an init message.
func Init(snap state.Snapshot) (Message, error) {
	snap.Notes = state.CopyNotes(snap.Notes)
	snap.Drawings = state.CopySegments(snap.Drawings)
	return New(KindInit, snap)
}
