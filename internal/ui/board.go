package ui

import (
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"

	"CollabBoard/internal/client"
	"CollabBoard/internal/state"
)

// Board glues the local model to the drawing surface and the note widgets.
// Everything here runs on the fyne main goroutine; network callbacks must
// be funnelled through fyne.Do.
type Board struct {
	Model   *client.Model
	surface *BoardWidget
	layer   *fyne.Container
	notes   map[state.NoteID]*noteWidget
	log     *slog.Logger

	content fyne.CanvasObject
}

// NewBoard creates a board view that sends local edits to out.
func NewBoard(out client.Sender, log *slog.Logger) *Board {
	if log == nil {
		log = slog.Default()
	}
	b := &Board{
		surface: NewBoardWidget(),
		layer:   container.NewWithoutLayout(),
		notes:   make(map[state.NoteID]*noteWidget),
		log:     log,
	}
	b.Model = client.NewModel(out, b.surface, log)
	b.Model.OnNotesChanged = b.syncNotes

	b.surface.OnPointerDown = b.Model.PointerDown
	b.surface.OnPointerMove = b.Model.PointerMove
	b.surface.OnPointerUp = b.Model.PointerUp
	b.surface.OnPointerLeave = b.Model.PointerLeave

	b.content = container.NewStack(b.surface, b.layer)
	return b
}

// CanvasObject is the widget tree to place in a window.
func (b *Board) CanvasObject() fyne.CanvasObject {
	return b.content
}

// syncNotes reconciles the note widgets with notes, reusing widgets by id
// so an entry being typed in keeps its focus.
func (b *Board) syncNotes(notes []state.StickyNote) {
	seen := make(map[state.NoteID]bool, len(notes))
	objects := make([]fyne.CanvasObject, 0, len(notes))
	for _, n := range notes {
		seen[n.ID] = true
		w, ok := b.notes[n.ID]
		if ok {
			w.update(n)
		} else {
			w = b.newNote(n)
			b.notes[n.ID] = w
		}
		objects = append(objects, w)
	}
	for id := range b.notes {
		if !seen[id] {
			delete(b.notes, id)
		}
	}
	b.layer.Objects = objects
	b.layer.Refresh()
}

func (b *Board) newNote(n state.StickyNote) *noteWidget {
	w := newNoteWidget(n)
	w.onDragStart = b.Model.BeginDrag
	w.onDragMove = b.Model.DragTo
	w.onDragEnd = b.Model.EndDrag
	w.onEdit = func(id state.NoteID, text string) { b.Model.EditText(id, text) }
	w.onDelete = b.Model.DeleteNote
	return w
}
