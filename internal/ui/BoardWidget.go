package ui

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"CollabBoard/internal/state"
)

const (
	strokeWidth = 2
	gridSize    = 50
)

var (
	backgroundColor = color.NRGBA{R: 245, G: 246, B: 248, A: 255}
	gridColor       = color.NRGBA{R: 220, G: 220, B: 220, A: 100}
)

// BoardWidget is the freehand drawing surface. It paints whatever segment
// history it is given and reports pointer activity through the On*
// callbacks; it holds no board state of its own.
type BoardWidget struct {
	widget.BaseWidget
	mu       sync.RWMutex
	segments []state.LineSegment

	OnPointerDown  func(x, y float64)
	OnPointerMove  func(x, y float64)
	OnPointerUp    func()
	OnPointerLeave func()
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)
var _ desktop.Hoverable = (*BoardWidget)(nil)

func NewBoardWidget() *BoardWidget {
	b := &BoardWidget{segments: make([]state.LineSegment, 0)}
	b.ExtendBaseWidget(b)
	return b
}

// DrawSegment adds one segment to the picture.
func (b *BoardWidget) DrawSegment(seg state.LineSegment) {
	b.mu.Lock()
	b.segments = append(b.segments, seg)
	b.mu.Unlock()
	b.Refresh()
}

// Clear wipes the picture.
func (b *BoardWidget) Clear() {
	b.mu.Lock()
	b.segments = make([]state.LineSegment, 0)
	b.mu.Unlock()
	b.Refresh()
}

// Redraw replaces the picture with history.
func (b *BoardWidget) Redraw(history []state.LineSegment) {
	b.mu.Lock()
	b.segments = state.CopySegments(history)
	b.mu.Unlock()
	b.Refresh()
}

func (b *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if e.Button == desktop.MouseButtonPrimary && b.OnPointerDown != nil {
		b.OnPointerDown(float64(e.Position.X), float64(e.Position.Y))
	}
}

func (b *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	if e.Button == desktop.MouseButtonPrimary && b.OnPointerUp != nil {
		b.OnPointerUp()
	}
}

func (b *BoardWidget) Dragged(e *fyne.DragEvent) {
	if b.OnPointerMove != nil {
		b.OnPointerMove(float64(e.Position.X), float64(e.Position.Y))
	}
}

func (b *BoardWidget) DragEnd() {
	if b.OnPointerUp != nil {
		b.OnPointerUp()
	}
}

func (b *BoardWidget) MouseOut() {
	if b.OnPointerLeave != nil {
		b.OnPointerLeave()
	}
}

func (b *BoardWidget) MouseIn(*desktop.MouseEvent)    {}
func (b *BoardWidget) MouseMoved(*desktop.MouseEvent) {}

func (b *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &boardWidgetRenderer{board: b}
	r.background = canvas.NewRectangle(backgroundColor)
	r.rebuild(fyne.NewSize(0, 0))
	return r
}

type boardWidgetRenderer struct {
	board      *BoardWidget
	background *canvas.Rectangle
	grid       []fyne.CanvasObject
	objects    []fyne.CanvasObject
	size       fyne.Size
}

func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *boardWidgetRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)
	if size != r.size {
		r.rebuild(size)
	}
}

func (r *boardWidgetRenderer) MinSize() fyne.Size {
	return fyne.NewSize(300, 300)
}

func (r *boardWidgetRenderer) Refresh() {
	r.rebuild(r.size)
	canvas.Refresh(r.board)
}

func (r *boardWidgetRenderer) Destroy() {}

func (r *boardWidgetRenderer) rebuild(size fyne.Size) {
	if size != r.size || r.grid == nil {
		r.size = size
		r.grid = gridLines(size)
	}

	r.board.mu.RLock()
	defer r.board.mu.RUnlock()

	objects := make([]fyne.CanvasObject, 0, 1+len(r.grid)+len(r.board.segments))
	objects = append(objects, r.background)
	objects = append(objects, r.grid...)
	for _, seg := range r.board.segments {
		line := canvas.NewLine(state.StrokeColor(seg.Color))
		line.StrokeWidth = strokeWidth
		line.Position1 = fyne.NewPos(float32(seg.X0), float32(seg.Y0))
		line.Position2 = fyne.NewPos(float32(seg.X1), float32(seg.Y1))
		objects = append(objects, line)
	}
	r.objects = objects
}

func gridLines(size fyne.Size) []fyne.CanvasObject {
	lines := make([]fyne.CanvasObject, 0)
	for x := float32(0); x < size.Width; x += gridSize {
		line := canvas.NewLine(gridColor)
		line.Position1 = fyne.NewPos(x, 0)
		line.Position2 = fyne.NewPos(x, size.Height)
		line.StrokeWidth = 0.5
		lines = append(lines, line)
	}
	for y := float32(0); y < size.Height; y += gridSize {
		line := canvas.NewLine(gridColor)
		line.Position1 = fyne.NewPos(0, y)
		line.Position2 = fyne.NewPos(size.Width, y)
		line.StrokeWidth = 0.5
		lines = append(lines, line)
	}
	return lines
}
