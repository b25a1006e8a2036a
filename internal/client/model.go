package client

import (
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"CollabBoard/internal/protocol"
	"CollabBoard/internal/state"
)

// Sender delivers a message to the relay. Delivery is fire-and-forget.
type Sender interface {
	Send(msg protocol.Message) error
}

// Surface is the drawing canvas the model paints on.
type Surface interface {
	DrawSegment(seg state.LineSegment)
	Clear()
	Redraw(history []state.LineSegment)
}

// Model is a client's mirror of the board. Local edits are applied
// immediately and sent to the relay; remote messages are merged through
// Accepts.
//
// Model is not safe for concurrent use: pointer, keyboard and network
// events must all be fed to it from one goroutine.
type Model struct {
	notes    []state.StickyNote
	drawings []state.LineSegment
	drag     DragState
	stroke   StrokeState

	out     Sender
	surface Surface
	rng     *rand.Rand
	log     *slog.Logger

	// PenColor is attached to every segment this client draws. Empty means
	// the renderer's default.
	PenColor string

	// OnNotesChanged is called after any change to the displayed note list.
	OnNotesChanged func(notes []state.StickyNote)
}

// NewModel creates an empty model. surface may be nil for headless use.
func NewModel(out Sender, surface Surface, log *slog.Logger) *Model {
	if log == nil {
		log = slog.Default()
	}
	return &Model{
		notes:    make([]state.StickyNote, 0),
		drawings: make([]state.LineSegment, 0),
		out:      out,
		surface:  surface,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		log:      log,
	}
}

// Notes returns the note list as displayed, with the dragged note shown at
// its in-flight position.
func (m *Model) Notes() []state.StickyNote {
	notes := state.CopyNotes(m.notes)
	if m.drag.Phase == Dragging {
		for i := range notes {
			if notes[i].ID == m.drag.NoteID {
				notes[i].X, notes[i].Y = m.drag.X, m.drag.Y
			}
		}
	}
	return notes
}

// Drawings returns a copy of the drawing history.
func (m *Model) Drawings() []state.LineSegment {
	return state.CopySegments(m.drawings)
}

// Drag returns the current drag state.
func (m *Model) Drag() DragState {
	return m.drag
}

// Stroke returns the current stroke state.
func (m *Model) Stroke() StrokeState {
	return m.stroke
}

// Apply merges one message received from the relay.
func (m *Model) Apply(msg protocol.Message) error {
	if !m.Accepts(msg.Type) {
		if msg.Type == protocol.KindUpdateNotes {
			m.log.Debug("discarding note update during drag", "note", m.drag.NoteID.String())
		}
		return nil
	}

	switch msg.Type {
	case protocol.KindInit:
		snap, err := msg.Snapshot()
		if err != nil {
			return err
		}
		m.notes = snap.Notes
		m.drawings = snap.Drawings
		if m.surface != nil {
			m.surface.Redraw(m.Drawings())
		}
		m.notesChanged()

	case protocol.KindUpdateNotes:
		notes, err := msg.Notes()
		if err != nil {
			return err
		}
		m.notes = notes
		m.notesChanged()

	case protocol.KindDraw:
		seg, err := msg.Segment()
		if err != nil {
			return err
		}
		m.appendSegment(seg)

	case protocol.KindClearBoard:
		m.clearDrawings()
	}
	return nil
}

// AddNote appends note locally and broadcasts the new list.
func (m *Model) AddNote(note state.StickyNote) {
	m.notes = append(m.notes, note)
	m.notesChanged()
	m.broadcastNotes()
}

// CreateNote adds a fresh "New Idea" note at a random spot and returns it.
func (m *Model) CreateNote() state.StickyNote {
	note := state.RandomNote(m.rng)
	m.AddNote(note)
	return note
}

// EditText replaces the text of note id and broadcasts the new list. It
// reports false if no such note exists.
func (m *Model) EditText(id state.NoteID, text string) bool {
	if !m.update(id, func(n *state.StickyNote) { n.Text = text }) {
		return false
	}
	m.notesChanged()
	m.broadcastNotes()
	return true
}

// DeleteNote removes note id locally and asks the relay to delete it. The
// deletion is complete locally without waiting for the relay.
func (m *Model) DeleteNote(id state.NoteID) {
	m.notes = state.WithoutNote(m.notes, id)
	if m.drag.Phase == Dragging && m.drag.NoteID == id {
		m.drag.end()
	}
	m.notesChanged()
	m.send(protocol.DeleteNote(id))
}

// BeginDrag moves the drag machine to Dragging for note id. It reports false
// if the note is unknown or another drag is already in flight.
func (m *Model) BeginDrag(id state.NoteID) bool {
	note, ok := m.find(id)
	if !ok {
		return false
	}
	return m.drag.begin(id, note.X, note.Y)
}

// DragTo moves the dragged note's displayed position without broadcasting.
func (m *Model) DragTo(x, y float64) {
	if m.drag.Phase != Dragging {
		return
	}
	m.drag.moveTo(x, y)
	m.notesChanged()
}

// EndDrag commits the dragged note at (x, y), broadcasts the full list and
// returns to Idle. If the note vanished mid-drag nothing is sent.
func (m *Model) EndDrag(x, y float64) {
	if m.drag.Phase != Dragging {
		return
	}
	id := m.drag.NoteID
	m.drag.end()
	if !m.update(id, func(n *state.StickyNote) { n.X, n.Y = x, y }) {
		m.notesChanged()
		return
	}
	m.notesChanged()
	m.broadcastNotes()
}

// PointerDown starts a stroke at (x, y). It is ignored while a note is
// being dragged.
func (m *Model) PointerDown(x, y float64) {
	if m.drag.Phase == Dragging {
		return
	}
	m.stroke.begin(x, y)
}

// PointerMove extends the active stroke by one segment, drawing and sending
// it straight away.
func (m *Model) PointerMove(x, y float64) {
	seg, ok := m.stroke.step(x, y, m.PenColor)
	if !ok {
		return
	}
	m.appendSegment(seg)
	m.send(protocol.Draw(seg))
}

// PointerUp ends the active stroke.
func (m *Model) PointerUp() {
	m.stroke.end()
}

// PointerLeave ends the active stroke when the pointer leaves the surface.
func (m *Model) PointerLeave() {
	m.stroke.end()
}

// ClearBoard wipes the drawing history locally and on every other client.
func (m *Model) ClearBoard() {
	m.clearDrawings()
	m.send(protocol.ClearBoard())
}

func (m *Model) appendSegment(seg state.LineSegment) {
	m.drawings = append(m.drawings, seg)
	if m.surface != nil {
		m.surface.DrawSegment(seg)
	}
}

func (m *Model) clearDrawings() {
	m.drawings = make([]state.LineSegment, 0)
	if m.surface != nil {
		m.surface.Clear()
	}
}

func (m *Model) find(id state.NoteID) (state.StickyNote, bool) {
	for _, n := range m.notes {
		if n.ID == id {
			return n, true
		}
	}
	return state.StickyNote{}, false
}

// update rewrites every note matching id into a fresh list, leaving any
// list previously handed out untouched.
func (m *Model) update(id state.NoteID, fn func(n *state.StickyNote)) bool {
	found := false
	notes := state.CopyNotes(m.notes)
	for i := range notes {
		if notes[i].ID == id {
			fn(&notes[i])
			found = true
		}
	}
	if found {
		m.notes = notes
	}
	return found
}

func (m *Model) notesChanged() {
	if m.OnNotesChanged != nil {
		m.OnNotesChanged(m.Notes())
	}
}

func (m *Model) broadcastNotes() {
	m.send(protocol.UpdateNotes(m.notes))
}

func (m *Model) send(msg protocol.Message, err error) {
	if err != nil {
		m.log.Error("failed to encode message", "err", err)
		return
	}
	if m.out == nil {
		return
	}
	if err := m.out.Send(msg); err != nil {
		if errors.Is(err, ErrNotConnected) {
			m.log.Debug("not connected, message dropped", "type", string(msg.Type))
			return
		}
		m.log.Warn("failed to send message", "type", string(msg.Type), "err", err)
	}
}
