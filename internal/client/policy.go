package client

import (
	"CollabBoard/internal/protocol"
	"CollabBoard/internal/state"
)

// DragPhase is the state of the note drag machine.
type DragPhase int

const (
	Idle DragPhase = iota
	Dragging
)

func (p DragPhase) String() string {
	if p == Dragging {
		return "dragging"
	}
	return "idle"
}

// DragState tracks the note this client is moving, if any, and where the
// pointer has taken it so far.
type DragState struct {
	Phase  DragPhase
	NoteID state.NoteID
	X, Y   float64
}

func (d *DragState) begin(id state.NoteID, x, y float64) bool {
	if d.Phase == Dragging {
		return false
	}
	*d = DragState{Phase: Dragging, NoteID: id, X: x, Y: y}
	return true
}

func (d *DragState) moveTo(x, y float64) {
	if d.Phase == Dragging {
		d.X, d.Y = x, y
	}
}

func (d *DragState) end() {
	*d = DragState{}
}

// StrokePhase is the state of the freehand drawing machine.
type StrokePhase int

const (
	NotDrawing StrokePhase = iota
	Drawing
)

func (p StrokePhase) String() string {
	if p == Drawing {
		return "drawing"
	}
	return "not drawing"
}

// StrokeState remembers the previous pointer position of the stroke in
// progress.
type StrokeState struct {
	Phase        StrokePhase
	LastX, LastY float64
}

func (s *StrokeState) begin(x, y float64) {
	*s = StrokeState{Phase: Drawing, LastX: x, LastY: y}
}

// step returns the segment from the previous position to (x, y) and
// advances the stroke. ok is false when no stroke is active.
func (s *StrokeState) step(x, y float64, color string) (seg state.LineSegment, ok bool) {
	if s.Phase != Drawing {
		return state.LineSegment{}, false
	}
	seg = state.LineSegment{X0: s.LastX, Y0: s.LastY, X1: x, Y1: y, Color: color}
	s.LastX, s.LastY = x, y
	return seg, true
}

func (s *StrokeState) end() {
	*s = StrokeState{}
}

// Accepts reports whether a remote message of the given kind may be applied
// right now. While any note is being dragged, note lists from the relay are
// discarded so they cannot yank the note out from under the pointer. Drawing
// messages and init are always applied.
func (m *Model) Accepts(kind protocol.Kind) bool {
	switch kind {
	case protocol.KindUpdateNotes:
		return m.drag.Phase == Idle
	case protocol.KindInit, protocol.KindDraw, protocol.KindClearBoard:
		return true
	}
	return false
}
