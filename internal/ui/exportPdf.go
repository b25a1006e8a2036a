package ui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"CollabBoard/internal/export"
	"CollabBoard/internal/state"
)

// exportBoard asks for a destination and writes the board there as a PDF.
func exportBoard(w fyne.Window, board *Board) {
	snap := state.Snapshot{Notes: board.Model.Notes(), Drawings: board.Model.Drawings()}
	save := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if writer == nil {
			return
		}
		defer writer.Close()

		if err := export.WritePDF(writer, snap); err != nil {
			board.log.Error("failed to export board", "err", err)
			dialog.ShowError(fmt.Errorf("export failed: %w", err), w)
			return
		}
		board.log.Info("board exported", "uri", writer.URI().String(), "notes", len(snap.Notes), "segments", len(snap.Drawings))
	}, w)
	save.SetFileName("collab-board.pdf")
	save.Show()
}
