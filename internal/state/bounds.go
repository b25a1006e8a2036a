package state

// DefaultNoteSize is the rendered width and height of a sticky note.
const DefaultNoteSize = 150

// DrawingArea represents a rectangular area on the canvas
type DrawingArea struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Empty reports whether the area covers nothing.
func (a DrawingArea) Empty() bool {
	return a.Width <= 0 || a.Height <= 0
}

// Bounds returns the bounding box of everything on the board, padded on
// every side. Notes count as DefaultNoteSize squares.
func (s Snapshot) Bounds(padding float64) DrawingArea {
	first := true
	var minX, minY, maxX, maxY float64
	grow := func(x, y float64) {
		if first {
			minX, minY, maxX, maxY = x, y, x, y
			first = false
			return
		}
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}

	for _, seg := range s.Drawings {
		grow(seg.X0, seg.Y0)
		grow(seg.X1, seg.Y1)
	}
	for _, n := range s.Notes {
		grow(n.X, n.Y)
		grow(n.X+DefaultNoteSize, n.Y+DefaultNoteSize)
	}
	if first {
		return DrawingArea{}
	}

	return DrawingArea{
		X:      minX - padding,
		Y:      minY - padding,
		Width:  maxX - minX + 2*padding,
		Height: maxY - minY + 2*padding,
	}
}
