package export

import (
	"fmt"
	"io"
	"os"

	"github.com/jung-kurt/gofpdf"

	"CollabBoard/internal/state"
)

const (
	pageWidth  = 297.0 // A4 landscape, mm
	pageHeight = 210.0
	margin     = 10.0
	padding    = 20.0 // board pixels around the content
)

// WritePDF renders the board onto a single A4 landscape page: the drawing
// history in order, then the notes on top in list order.
func WritePDF(w io.Writer, snap state.Snapshot) error {
	p := gofpdf.New("L", "mm", "A4", "")
	p.SetTitle("Collaborative Board", true)
	p.AddPage()

	area := snap.Bounds(padding)
	if area.Empty() {
		area = state.DrawingArea{Width: pageWidth, Height: pageHeight}
	}
	scale := (pageWidth - 2*margin) / area.Width
	if s := (pageHeight - 2*margin) / area.Height; s < scale {
		scale = s
	}
	tx := func(x float64) float64 { return margin + (x-area.X)*scale }
	ty := func(y float64) float64 { return margin + (y-area.Y)*scale }

	p.SetLineCapStyle("round")
	p.SetLineWidth(3 * scale)
	for _, seg := range snap.Drawings {
		c := state.StrokeColor(seg.Color)
		p.SetDrawColor(int(c.R), int(c.G), int(c.B))
		p.Line(tx(seg.X0), ty(seg.Y0), tx(seg.X1), ty(seg.Y1))
	}

	tr := p.UnicodeTranslatorFromDescriptor("")
	fontSize := 12 * scale * 72 / 25.4 // 12px rendered at page scale, in points
	if fontSize < 4 {
		fontSize = 4
	}
	p.SetFont("Helvetica", "", fontSize)
	p.SetLineWidth(0.2)
	p.SetDrawColor(120, 120, 120)
	size := state.DefaultNoteSize * scale
	for _, n := range snap.Notes {
		c, ok := state.ParseColor(n.Color)
		if !ok {
			c = state.StrokeColor("#ffeb3b")
		}
		p.SetFillColor(int(c.R), int(c.G), int(c.B))
		p.Rect(tx(n.X), ty(n.Y), size, size, "FD")
		p.SetXY(tx(n.X)+1, ty(n.Y)+1)
		p.MultiCell(size-2, fontSize*25.4/72*1.2, tr(n.Text), "", "L", false)
	}

	if p.Err() {
		return fmt.Errorf("failed to render board: %w", p.Error())
	}
	if err := p.Output(w); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

// ExportPDF writes the board to a PDF file at path.
func ExportPDF(path string, snap state.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WritePDF(f, snap); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
