package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"CollabBoard/internal/state"
)

// penColors are offered as swatches; the first is the default stroke.
var penColors = []color.Color{
	state.DefaultStroke,
	color.NRGBA{R: 229, G: 57, B: 53, A: 255},
	color.NRGBA{R: 67, G: 160, B: 71, A: 255},
	color.NRGBA{R: 30, G: 136, B: 229, A: 255},
	color.NRGBA{R: 142, G: 36, B: 170, A: 255},
}

type colorSwatch struct {
	widget.BaseWidget
	Color    color.Color
	OnTapped func(color.Color)
}

func newColorSwatch(c color.Color, tapped func(color.Color)) *colorSwatch {
	s := &colorSwatch{Color: c, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(s.Color)
	rect.SetMinSize(fyne.NewSize(28, 28))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Color)
	}
}

// NewToolbar builds the row above the board: note and clear actions, PDF
// export, pen colors and the share link.
func NewToolbar(board *Board, w fyne.Window, shareLink string) fyne.CanvasObject {
	tb := widget.NewToolbar(
		widget.NewToolbarAction(theme.ContentAddIcon(), func() {
			board.Model.CreateNote()
		}),
		widget.NewToolbarAction(theme.DeleteIcon(), func() {
			board.Model.ClearBoard()
		}),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), func() {
			exportBoard(w, board)
		}),
	)

	onColorTapped := func(c color.Color) {
		board.Model.PenColor = state.HexColor(c)
	}
	colorBox := container.NewHBox()
	for _, c := range penColors {
		colorBox.Add(newColorSwatch(c, onColorTapped))
	}

	items := []fyne.CanvasObject{
		tb,
		widget.NewSeparator(),
		widget.NewLabel("Pen:"),
		colorBox,
		layout.NewSpacer(),
	}
	if shareLink != "" {
		items = append(items,
			widget.NewLabel(shareLink),
			widget.NewButtonWithIcon("", theme.ContentCopyIcon(), func() {
				w.Clipboard().SetContent(shareLink)
			}),
		)
	}
	return container.NewHBox(items...)
}
