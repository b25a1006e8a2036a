package ui

import (
	"context"
	"fmt"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"CollabBoard/internal/client"
	"CollabBoard/internal/protocol"
)

// RunApp opens the whiteboard window on the relay at serverURL and blocks
// until the window is closed. shareLink, if not empty, is shown so it can
// be handed to others.
func RunApp(serverURL, shareLink string) {
	myApp := app.NewWithID("io.collabboard.desktop")
	myWindow := myApp.NewWindow("Collaborative Whiteboard")
	myWindow.Resize(fyne.NewSize(1024, 768))

	link := client.NewLink(serverURL, slog.Default())
	board := NewBoard(link, slog.Default())

	status := widget.NewLabel("Connecting to " + serverURL + "...")
	link.OnStatus = func(connected bool, err error) {
		text := "Connected to " + serverURL
		if !connected {
			text = fmt.Sprintf("Disconnected (%v), retrying...", err)
		}
		fyne.Do(func() { status.SetText(text) })
	}

	toolbar := NewToolbar(board, myWindow, shareLink)
	content := container.NewBorder(toolbar, status, nil, nil, board.CanvasObject())
	myWindow.SetContent(content)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = link.Run(ctx, func(msg protocol.Message) {
			fyne.Do(func() {
				if err := board.Model.Apply(msg); err != nil {
					slog.Warn("dropped message from relay", "type", string(msg.Type), "err", err)
				}
			})
		})
	}()

	myWindow.ShowAndRun()
}
