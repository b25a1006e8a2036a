package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"CollabBoard/internal/state"
)

var noteSize = fyne.NewSize(state.DefaultNoteSize, state.DefaultNoteSize)

// noteWidget shows one sticky note. Dragging its header moves it, the entry
// edits its text and the close button deletes it.
type noteWidget struct {
	widget.BaseWidget
	note     state.StickyNote
	dragging bool

	background *canvas.Rectangle
	entry      *widget.Entry
	remove     *widget.Button

	onDragStart func(id state.NoteID) bool
	onDragMove  func(x, y float64)
	onDragEnd   func(x, y float64)
	onEdit      func(id state.NoteID, text string)
	onDelete    func(id state.NoteID)
}

func newNoteWidget(n state.StickyNote) *noteWidget {
	w := &noteWidget{note: n}
	w.background = canvas.NewRectangle(noteColor(n.Color))
	w.background.CornerRadius = 4
	w.background.StrokeColor = color.NRGBA{A: 40}
	w.background.StrokeWidth = 1

	w.entry = widget.NewMultiLineEntry()
	w.entry.Wrapping = fyne.TextWrapWord
	w.entry.SetText(n.Text)
	w.entry.OnChanged = func(text string) {
		if text == w.note.Text || w.onEdit == nil {
			return
		}
		w.note.Text = text
		w.onEdit(w.note.ID, text)
	}

	w.remove = widget.NewButtonWithIcon("", theme.CancelIcon(), func() {
		if w.onDelete != nil {
			w.onDelete(w.note.ID)
		}
	})
	w.remove.Importance = widget.LowImportance

	w.ExtendBaseWidget(w)
	w.Resize(noteSize)
	w.Move(fyne.NewPos(float32(n.X), float32(n.Y)))
	return w
}

// update shows n. The entry is only rewritten when the text really
// changed, so the cursor survives unrelated updates.
func (w *noteWidget) update(n state.StickyNote) {
	prev := w.note
	w.note = n
	if n.Text != prev.Text && n.Text != w.entry.Text {
		w.entry.SetText(n.Text)
	}
	if n.Color != prev.Color {
		w.background.FillColor = noteColor(n.Color)
		w.background.Refresh()
	}
	if !w.dragging {
		w.Move(fyne.NewPos(float32(n.X), float32(n.Y)))
	}
}

func (w *noteWidget) Dragged(e *fyne.DragEvent) {
	if !w.dragging {
		if w.onDragStart == nil || !w.onDragStart(w.note.ID) {
			return
		}
		w.dragging = true
	}
	pos := w.Position().Add(e.Dragged)
	w.Move(pos)
	if w.onDragMove != nil {
		w.onDragMove(float64(pos.X), float64(pos.Y))
	}
}

func (w *noteWidget) DragEnd() {
	if !w.dragging {
		return
	}
	w.dragging = false
	pos := w.Position()
	if w.onDragEnd != nil {
		w.onDragEnd(float64(pos.X), float64(pos.Y))
	}
}

func (w *noteWidget) CreateRenderer() fyne.WidgetRenderer {
	header := container.NewBorder(nil, nil, nil, w.remove, widget.NewLabel(""))
	body := container.NewBorder(header, nil, nil, nil, w.entry)
	return widget.NewSimpleRenderer(container.NewStack(w.background, container.NewPadded(body)))
}

func (w *noteWidget) MinSize() fyne.Size {
	return noteSize
}

func noteColor(s string) color.Color {
	if c, ok := state.ParseColor(s); ok {
		return c
	}
	c, _ := state.ParseColor(state.NotePalette[0])
	return c
}
